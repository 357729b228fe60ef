// Package controlverify implements the pluggable required-controls check
// for the Enforcement Engine's phase (b): deciding whether a request's
// Controls satisfy a ToolPermit's RequiredControls.
package controlverify

import "github.com/mindburn-labs/execgate/pkg/model"

// Verifier decides whether controls satisfy a permit's requirements. It
// must be a deterministic pure function of its inputs — no time,
// randomness, or external state — so that identical requests against the
// same profile and runtime always get the same decision.
type Verifier interface {
	// Satisfied reports whether controls meet permit's required controls.
	// A nil controls value must be treated as "no controls supplied".
	Satisfied(permit *model.ToolPermit, controls *model.Controls) bool

	// Name identifies this verifier (folded into runtime.build when a
	// non-default verifier is active).
	Name() string
}
