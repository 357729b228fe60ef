package controlverify

import "github.com/mindburn-labs/execgate/pkg/model"

// ApprovedLiteral is the reference rule's required token value. Deployments
// wanting different evidence plug in a different Verifier.
const ApprovedLiteral = "APPROVED"

// Reference is the spec's default required-controls rule: if the permit
// requires approval_token, the request's controls.approval_token must equal
// the literal "APPROVED". Deterministic, no external calls.
type Reference struct{}

// NewReference returns the default reference verifier.
func NewReference() *Reference { return &Reference{} }

func (r *Reference) Satisfied(permit *model.ToolPermit, controls *model.Controls) bool {
	if !permit.RequiredControls.ApprovalToken {
		return true
	}
	if controls == nil {
		return false
	}
	return controls.ApprovalToken == ApprovedLiteral
}

func (r *Reference) Name() string { return "reference" }
