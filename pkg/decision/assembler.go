// Package decision implements the Decision Assembler (C5): builds
// ExecutionDecision values and computes the provenance id binding a
// decision to its request, profile, and runtime identity.
package decision

import (
	"encoding/json"
	"fmt"

	"github.com/mindburn-labs/execgate/pkg/canonical"
	"github.com/mindburn-labs/execgate/pkg/model"
)

// Assembler builds decisions for a fixed runtime identity.
type Assembler struct {
	runtime model.RuntimeMeta
}

// NewAssembler binds the assembler to the runtime triple that will be
// embedded in every decision it produces.
func NewAssembler(runtime model.RuntimeMeta) *Assembler {
	return &Assembler{runtime: runtime}
}

// ProvenanceID computes hash_json({request_hash, profile_ref_hash,
// runtime_version}) per spec §4.5. The key set and runtime_version (the
// runtime's version field, not its build string) are what the caller
// supplies; this function does not reach into a.runtime directly so tests
// can exercise it against arbitrary runtime versions.
func ProvenanceID(requestHash, profileRefHash, runtimeVersion string) (string, error) {
	input := map[string]string{
		"request_hash":     requestHash,
		"profile_ref_hash": profileRefHash,
		"runtime_version":  runtimeVersion,
	}
	id, err := canonical.HashJSON(input)
	if err != nil {
		return "", fmt.Errorf("decision: provenance id: %w", err)
	}
	return id, nil
}

// Allow assembles the single success-path decision.
func (a *Assembler) Allow(requestHash string, profile model.DecisionProfileInfo, toolName string, toolArgs json.RawMessage) (model.ExecutionDecision, error) {
	provenanceID, err := ProvenanceID(requestHash, profile.ProfileRefHash, a.runtime.Version)
	if err != nil {
		return model.ExecutionDecision{}, err
	}
	return model.NewAllowDecision(requestHash, provenanceID, profile, a.runtime, model.ApprovedCall{
		ToolName: toolName,
		ToolArgs: toolArgs,
	}), nil
}

// Deny assembles a DENY decision for the given reason.
func (a *Assembler) Deny(reason model.ReasonCode, requestHash string, profile model.DecisionProfileInfo) (model.ExecutionDecision, error) {
	provenanceID, err := ProvenanceID(requestHash, profile.ProfileRefHash, a.runtime.Version)
	if err != nil {
		return model.ExecutionDecision{}, err
	}
	return model.NewDenyDecision(reason, requestHash, provenanceID, profile, a.runtime)
}

// FallbackProfileRefHash is the digest substituted when the profile loader
// itself failed, keeping every decision record well-formed per spec §4.3.
func FallbackProfileRefHash() (string, error) {
	return canonical.HashJSON(map[string]interface{}{})
}
