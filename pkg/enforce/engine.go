// Package enforce implements the Enforcement Engine (C4): allowlist
// lookup, required-controls check, and argument-constraint evaluation, run
// in fixed order against a fully validated request and a loaded profile.
package enforce

import (
	"bytes"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/mindburn-labs/execgate/pkg/enforce/controlverify"
	"github.com/mindburn-labs/execgate/pkg/model"
)

// Outcome is the engine's verdict: either no violation, or exactly one
// reason code explaining the first failure encountered.
type Outcome struct {
	Reason model.ReasonCode // empty string means no violation
}

func (o Outcome) Violated() bool { return o.Reason != "" }

// Engine evaluates requests against profiles.
type Engine struct {
	verifier controlverify.Verifier
}

// NewEngine builds an engine using the given required-controls verifier.
func NewEngine(verifier controlverify.Verifier) *Engine {
	return &Engine{verifier: verifier}
}

// Evaluate runs the three enforcement phases in fixed order, returning the
// first failure. A zero-value Outcome means the request passes enforcement.
func (e *Engine) Evaluate(req *model.ExecutionRequest, profile *model.ExecutionProfile) Outcome {
	permit, ok := profile.FindPermit(req.Tool.Name)
	if !ok {
		return Outcome{Reason: model.ReasonToolNotAllowed}
	}

	if !e.verifier.Satisfied(permit, req.Controls) {
		return Outcome{Reason: model.ReasonControlRequired}
	}

	if permit.Constraints != nil {
		if reason := evaluateArgRules(req.Tool.Args, permit.Constraints.ArgRules); reason != "" {
			return Outcome{Reason: reason}
		}
	}

	return Outcome{}
}

// evaluateArgRules runs each rule in order, returning the first failing
// reason code, or "" if all rules pass.
func evaluateArgRules(rawArgs json.RawMessage, rules []model.ArgRule) model.ReasonCode {
	if len(rules) == 0 {
		return ""
	}

	var args map[string]interface{}
	if len(rawArgs) > 0 {
		dec := json.NewDecoder(bytes.NewReader(rawArgs))
		dec.UseNumber()
		var generic interface{}
		if err := dec.Decode(&generic); err != nil {
			return model.ReasonConstraintEvalError
		}
		m, ok := generic.(map[string]interface{})
		if !ok {
			return model.ReasonConstraintEvalError
		}
		args = m
	} else {
		return model.ReasonConstraintEvalError
	}

	for _, rule := range rules {
		key, ok := resolvePath(rule.Path)
		if !ok {
			return model.ReasonConstraintEvalError
		}

		value, present := args[key]
		if !present || value == nil {
			return model.ReasonConstraintViolation
		}

		reason, err := checkRule(rule, value)
		if err != nil {
			return model.ReasonConstraintEvalError
		}
		if reason != "" {
			return reason
		}
	}
	return ""
}

// resolvePath supports only the form "$.<key>": a single top-level field
// name, per spec §4.4(c)(1). Any other form is an evaluation error.
func resolvePath(path string) (key string, ok bool) {
	const prefix = "$."
	if !strings.HasPrefix(path, prefix) {
		return "", false
	}
	key = strings.TrimPrefix(path, prefix)
	if key == "" || strings.Contains(key, ".") {
		return "", false
	}
	return key, true
}

// checkRule dispatches on rule.Type and reports CONSTRAINT_VIOLATION via
// its return reason, or a non-nil error for CONSTRAINT_EVAL_ERROR.
func checkRule(rule model.ArgRule, value interface{}) (model.ReasonCode, error) {
	switch rule.Type {
	case model.ArgTypeString:
		return checkString(rule, value)
	case model.ArgTypeNumber:
		return checkNumber(rule, value), nil
	case model.ArgTypeBool:
		if _, ok := value.(bool); !ok {
			return model.ReasonConstraintViolation, nil
		}
		return "", nil
	default:
		return "", fmt.Errorf("enforce: unrecognized arg rule type %q", rule.Type)
	}
}

// checkString reports CONSTRAINT_VIOLATION via its return reason, or a
// non-nil error (mapped to CONSTRAINT_EVAL_ERROR by the caller) if the
// rule's own pattern fails to compile — a broken profile, not bad input.
func checkString(rule model.ArgRule, value interface{}) (model.ReasonCode, error) {
	s, ok := value.(string)
	if !ok {
		return model.ReasonConstraintViolation, nil
	}
	if rule.MaxLen != nil && utf8.RuneCountInString(s) > *rule.MaxLen {
		return model.ReasonConstraintViolation, nil
	}
	if len(rule.Enum) > 0 && !contains(rule.Enum, s) {
		return model.ReasonConstraintViolation, nil
	}
	if rule.Pattern != "" {
		re, err := regexp.Compile(rule.Pattern)
		if err != nil {
			return "", fmt.Errorf("enforce: invalid pattern %q: %w", rule.Pattern, err)
		}
		// Unanchored match at position 0: partial match from the start of
		// the string, not a full ^...$ match. Preserved deliberately per
		// the open question in spec §9.
		loc := re.FindStringIndex(s)
		if loc == nil || loc[0] != 0 {
			return model.ReasonConstraintViolation, nil
		}
	}
	return "", nil
}

func checkNumber(rule model.ArgRule, value interface{}) model.ReasonCode {
	// Booleans are not numbers, even though encoding/json would otherwise
	// let a bool satisfy a loose numeric-ish check; reject explicitly.
	if _, isBool := value.(bool); isBool {
		return model.ReasonConstraintViolation
	}
	num, ok := value.(json.Number)
	if !ok {
		return model.ReasonConstraintViolation
	}
	f, err := num.Float64()
	if err != nil {
		return model.ReasonConstraintViolation
	}
	if rule.Min != nil && f < *rule.Min {
		return model.ReasonConstraintViolation
	}
	if rule.Max != nil && f > *rule.Max {
		return model.ReasonConstraintViolation
	}
	return ""
}

func contains(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}
