package model

import "fmt"

// ArgType is the closed set of types an ArgRule may constrain.
type ArgType string

const (
	ArgTypeString ArgType = "string"
	ArgTypeNumber ArgType = "number"
	ArgTypeBool   ArgType = "bool"
)

// ArgRule restricts the shape of a single top-level tool argument.
// Path uses the minimal expression language described in spec §4.4: only
// the form "$.<key>" is supported.
type ArgRule struct {
	Path    string   `json:"path"`
	Type    ArgType  `json:"type"`
	Pattern string   `json:"pattern,omitempty"`
	MaxLen  *int     `json:"max_len,omitempty"`
	Enum    []string `json:"enum,omitempty"`
	Min     *float64 `json:"min,omitempty"`
	Max     *float64 `json:"max,omitempty"`
}

// Constraints groups the ordered argument rules a ToolPermit evaluates.
type Constraints struct {
	ArgRules []ArgRule `json:"arg_rules,omitempty"`
}

// RequiredControls names which controls a ToolPermit demands before ALLOW.
type RequiredControls struct {
	ApprovalToken bool `json:"approval_token"`
}

// ToolPermit grants conditional permission to invoke a named tool.
type ToolPermit struct {
	Name             string           `json:"name"`
	RequiredControls RequiredControls `json:"required_controls"`
	Constraints      *Constraints     `json:"constraints,omitempty"`
}

// ExecutionProfile is the resolved policy a request is enforced against.
type ExecutionProfile struct {
	ProfileID      string       `json:"profile_id"`
	ProfileVersion string       `json:"profile_version"`
	AllowedTools   []ToolPermit `json:"allowed_tools"`
	Default        string       `json:"default"`
}

// ParseExecutionProfile decodes raw profile bytes, rejecting unknown fields
// and trailing data.
func ParseExecutionProfile(data []byte) (*ExecutionProfile, error) {
	var p ExecutionProfile
	if err := decodeStrict(data, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// Validate enforces the profile's structural invariants: non-empty ids,
// non-empty permit names, and a recognized type and non-empty path on every
// arg rule. It does not check the default; DefaultIsDeny does, so that
// default != DENY (INVALID_PROFILE_DEFAULT) stays distinct from a parse
// failure.
func (p *ExecutionProfile) Validate() error {
	if err := requireNonEmpty("profile_id", p.ProfileID); err != nil {
		return err
	}
	if err := requireNonEmpty("profile_version", p.ProfileVersion); err != nil {
		return err
	}
	for i, permit := range p.AllowedTools {
		if permit.Name == "" {
			return fmt.Errorf("allowed_tools[%d].name: must not be empty", i)
		}
		if permit.Constraints == nil {
			continue
		}
		for j, rule := range permit.Constraints.ArgRules {
			switch rule.Type {
			case ArgTypeString, ArgTypeNumber, ArgTypeBool:
			default:
				return fmt.Errorf("allowed_tools[%d].constraints.arg_rules[%d]: unrecognized type %q", i, j, rule.Type)
			}
			if rule.Path == "" {
				return fmt.Errorf("allowed_tools[%d].constraints.arg_rules[%d]: path must not be empty", i, j)
			}
		}
	}
	return nil
}

// DefaultIsDeny reports whether the profile's default is the one value the
// pipeline accepts. Checked separately from Validate so the orchestrator can
// distinguish PROFILE_PARSE_ERROR from INVALID_PROFILE_DEFAULT.
func (p *ExecutionProfile) DefaultIsDeny() bool {
	return p.Default == "DENY"
}

// FindPermit looks up a permit by exact tool name equality.
func (p *ExecutionProfile) FindPermit(toolName string) (*ToolPermit, bool) {
	for i := range p.AllowedTools {
		if p.AllowedTools[i].Name == toolName {
			return &p.AllowedTools[i], true
		}
	}
	return nil, false
}
