package controlverify

import (
	"fmt"

	"github.com/google/cel-go/cel"

	"github.com/mindburn-labs/execgate/pkg/model"
)

// CEL evaluates a fixed, profile-independent boolean expression over
// {permit, controls} to decide required-controls satisfaction. The
// expression is compiled once at construction, not per request, so
// evaluation stays a pure function of its input with no compile-time
// variance across calls.
type CEL struct {
	expr string
	env  *cel.Env
	prg  cel.Program
}

// NewCEL compiles expr once. expr must evaluate to a bool given the
// variables "permit" (map with key "approval_token_required": bool) and
// "controls" (map with keys "approval_token", "nonce": string, absent keys
// read as empty string).
func NewCEL(expr string) (*CEL, error) {
	env, err := cel.NewEnv(
		cel.Variable("permit", cel.MapType(cel.StringType, cel.DynType)),
		cel.Variable("controls", cel.MapType(cel.StringType, cel.DynType)),
	)
	if err != nil {
		return nil, fmt.Errorf("controlverify: cel env: %w", err)
	}
	ast, issues := env.Compile(expr)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("controlverify: cel compile %q: %w", expr, issues.Err())
	}
	prg, err := env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("controlverify: cel program %q: %w", expr, err)
	}
	return &CEL{expr: expr, env: env, prg: prg}, nil
}

func (c *CEL) Satisfied(permit *model.ToolPermit, controls *model.Controls) bool {
	approvalToken, nonce := "", ""
	if controls != nil {
		approvalToken = controls.ApprovalToken
		nonce = controls.Nonce
	}
	input := map[string]interface{}{
		"permit": map[string]interface{}{
			"approval_token_required": permit.RequiredControls.ApprovalToken,
		},
		"controls": map[string]interface{}{
			"approval_token": approvalToken,
			"nonce":          nonce,
		},
	}
	val, _, err := c.prg.Eval(input)
	if err != nil {
		// A runtime evaluation error is a broken rule, not caller input —
		// fail closed by reporting unsatisfied.
		return false
	}
	b, ok := val.Value().(bool)
	return ok && b
}

func (c *CEL) Name() string { return "cel:" + c.expr }
