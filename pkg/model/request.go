package model

import (
	"encoding/json"
	"fmt"
)

// Actor identifies the caller on whose behalf a tool invocation is requested.
type Actor struct {
	PrincipalID   string            `json:"principal_id"`
	PrincipalType string            `json:"principal_type"`
	Attributes    map[string]string `json:"attributes"`
}

// ToolCall names the tool and carries its arguments. Args is opaque to the
// gate except where an ArgRule addresses into it.
type ToolCall struct {
	Name string          `json:"name"`
	Args json.RawMessage `json:"args"`
}

// ProfileRef names the policy profile a request is evaluated against.
type ProfileRef struct {
	ID      string `json:"id"`
	Version string `json:"version"`
}

// RequestContext carries a caller-supplied snapshot and its claimed digest,
// checked for tamper-evidence before enforcement runs.
type RequestContext struct {
	Snapshot     json.RawMessage `json:"snapshot"`
	SnapshotHash string          `json:"snapshot_hash"`
}

// Controls carries caller-supplied approval evidence for gated tools.
type Controls struct {
	ApprovalToken string `json:"approval_token,omitempty"`
	Nonce         string `json:"nonce,omitempty"`
}

// ExecutionRequest is the immutable input to the gate. Schema is strict:
// an unknown field at any structured level rejects the request.
type ExecutionRequest struct {
	RequestID   string          `json:"request_id"`
	Actor       Actor           `json:"actor"`
	Tool        ToolCall        `json:"tool"`
	Profile     ProfileRef      `json:"profile"`
	Context     RequestContext  `json:"context"`
	Controls    *Controls       `json:"controls,omitempty"`
	SubmittedAt string          `json:"submitted_at,omitempty"`
}

// ParseExecutionRequest decodes raw bytes into a request, rejecting unknown
// fields and trailing data. A decode failure here corresponds to either
// REQUEST_PARSE_ERROR (malformed JSON) or REQUEST_SCHEMA_INVALID (well-formed
// JSON that violates the strict schema); the returned error does not say
// which, so the orchestrator tells them apart by checking whether the raw
// bytes are valid JSON at all.
func ParseExecutionRequest(data []byte) (*ExecutionRequest, error) {
	var req ExecutionRequest
	if err := decodeStrict(data, &req); err != nil {
		return nil, err
	}
	return &req, nil
}

// Validate enforces the structural invariants decodeStrict cannot express:
// required non-empty strings and the actor attribute map's presence.
func (r *ExecutionRequest) Validate() error {
	if err := requireNonEmpty("request_id", r.RequestID); err != nil {
		return err
	}
	if err := requireNonEmpty("actor.principal_id", r.Actor.PrincipalID); err != nil {
		return err
	}
	if err := requireNonEmpty("actor.principal_type", r.Actor.PrincipalType); err != nil {
		return err
	}
	if r.Actor.Attributes == nil {
		return fmt.Errorf("actor.attributes: must be present")
	}
	if err := requireNonEmpty("tool.name", r.Tool.Name); err != nil {
		return err
	}
	if err := requireNonEmpty("profile.id", r.Profile.ID); err != nil {
		return err
	}
	if err := requireNonEmpty("profile.version", r.Profile.Version); err != nil {
		return err
	}
	if err := requireNonEmpty("context.snapshot_hash", r.Context.SnapshotHash); err != nil {
		return err
	}
	if len(r.Context.Snapshot) == 0 {
		return fmt.Errorf("context.snapshot: must not be empty")
	}
	return nil
}
