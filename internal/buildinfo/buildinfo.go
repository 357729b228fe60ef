// Package buildinfo exposes the compile-time runtime identity triple
// embedded in every decision. Version and Build are normally set at link
// time via -ldflags "-X .../buildinfo.Version=... -X .../buildinfo.Build=...".
package buildinfo

import "github.com/mindburn-labs/execgate/pkg/model"

// Name identifies this binary in RuntimeMeta.
const Name = "execgate"

// Version and Build are overridden at link time; these are the dev
// defaults for unreleased builds.
var (
	Version = "0.0.0-dev"
	Build   = "dev"
)

// Meta returns the runtime triple, suffixing Build with "+cv:<name>" when
// verifierName differs from the default reference verifier, so every
// decision's runtime.build names the verifier that decided it. The
// provenance id is not affected: it binds only the Version field.
func Meta(verifierName string) model.RuntimeMeta {
	build := Build
	if verifierName != "" && verifierName != "reference" {
		build = build + "+cv:" + verifierName
	}
	return model.RuntimeMeta{
		Name:    Name,
		Version: Version,
		Build:   build,
	}
}
