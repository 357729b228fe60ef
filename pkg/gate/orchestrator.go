// Package gate implements the Gate Orchestrator (C7): owns the request
// lifecycle RECV -> PARSE -> VALIDATE -> CTX_CHECK -> LOAD_PROFILE ->
// ENFORCE -> ASSEMBLE -> AUDIT -> REPLY and the fail-closed policy gluing
// every other component together.
package gate

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/mindburn-labs/execgate/pkg/audit"
	"github.com/mindburn-labs/execgate/pkg/canonical"
	"github.com/mindburn-labs/execgate/pkg/decision"
	"github.com/mindburn-labs/execgate/pkg/enforce"
	"github.com/mindburn-labs/execgate/pkg/model"
	"github.com/mindburn-labs/execgate/pkg/profile"
	"github.com/mindburn-labs/execgate/pkg/schema"
)

// SecondaryIndex is the optional queryable audit index. Its failures are
// logged, never fatal to the request.
type SecondaryIndex interface {
	Upsert(ctx context.Context, r model.AuditRecord) error
}

// Orchestrator runs the full decision pipeline for one request at a time;
// it holds no cross-request state itself and is safe to call concurrently
// — the only serialization point is the audit log's single-writer lock.
type Orchestrator struct {
	schema    *schema.Validator
	loader    *profile.Loader
	engine    *enforce.Engine
	assembler *decision.Assembler
	auditLog  *audit.Log
	index     SecondaryIndex
	logger    *slog.Logger
	now       func() time.Time
}

// New builds an orchestrator from its already-constructed collaborators.
func New(sv *schema.Validator, loader *profile.Loader, engine *enforce.Engine, assembler *decision.Assembler, auditLog *audit.Log, index SecondaryIndex, logger *slog.Logger) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Orchestrator{
		schema:    sv,
		loader:    loader,
		engine:    engine,
		assembler: assembler,
		auditLog:  auditLog,
		index:     index,
		logger:    logger,
		now:       time.Now,
	}
}

func isoNow(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

// Execute runs the pipeline over raw request bytes and returns the final
// decision. It never returns an error: every failure mode resolves to a
// DENY decision with a reason code, per the fail-closed rule.
func (o *Orchestrator) Execute(ctx context.Context, rawBody []byte) (decisionOut model.ExecutionDecision) {
	receivedAt := o.now()

	defer func() {
		if r := recover(); r != nil {
			o.logger.Error("panic in gate pipeline", "recovered", r)
			fallbackProfile, _ := decision.FallbackProfileRefHash()
			requestHash := canonical.Hash(rawBody)
			d, err := o.assembler.Deny(model.ReasonInternalError, requestHash,
				model.DecisionProfileInfo{ProfileRefHash: fallbackProfile})
			if err != nil {
				decisionOut = model.ExecutionDecision{DecisionType: model.DecisionDeny, ReasonCode: model.ReasonInternalError}
				return
			}
			decisionOut = d
			o.appendAudit(ctx, "", d, receivedAt, o.now())
		}
	}()

	d, requestID := o.decide(ctx, rawBody, receivedAt)
	decidedAt := o.now()

	if !o.appendAudit(ctx, requestID, d, receivedAt, decidedAt) {
		// Audit append failed: substitute AUDIT_WRITE_FAILED. provenance_id
		// is unaffected since it depends only on (request_hash,
		// profile_ref_hash, runtime_version), not reason_code.
		replacement, err := o.assembler.Deny(model.ReasonAuditWriteFailed, d.RequestHash, d.Profile)
		if err != nil {
			return d
		}
		return replacement
	}

	return d
}

// decide runs PARSE -> VALIDATE -> CTX_CHECK -> LOAD_PROFILE -> ENFORCE ->
// ASSEMBLE, returning the resulting decision and the request_id (empty if
// parsing never got far enough to know one).
func (o *Orchestrator) decide(ctx context.Context, rawBody []byte, receivedAt time.Time) (model.ExecutionDecision, string) {
	// PARSE + VALIDATE (schema check first, fast reject path; then the
	// hand-written strict decoder, the ground truth).
	if err := o.schema.ValidateRequest(rawBody); err != nil {
		return o.denyPreSchema(rawBody, classifyParseReason(rawBody)), ""
	}

	req, err := model.ParseExecutionRequest(rawBody)
	if err != nil {
		return o.denyPreSchema(rawBody, classifyParseReason(rawBody)), ""
	}
	if err := req.Validate(); err != nil {
		return o.denyPreSchema(rawBody, model.ReasonRequestSchemaInvalid), ""
	}

	requestHash, err := canonical.HashJSON(req)
	if err != nil {
		fallbackHash := canonical.Hash(rawBody)
		return o.denyWithFallbackProfile(fallbackHash, model.ReasonInternalError, req.Profile.ID, req.Profile.Version), req.RequestID
	}

	// CTX_CHECK
	snapshotHash, err := hashSnapshot(req.Context.Snapshot)
	if err != nil || snapshotHash != req.Context.SnapshotHash {
		return o.denyWithFallbackProfile(requestHash, model.ReasonCtxHashMismatch, req.Profile.ID, req.Profile.Version), req.RequestID
	}

	// LOAD_PROFILE
	prof, profileRefHash, loadErr := o.loader.Load(ctx, req.Profile.ID, req.Profile.Version)
	if loadErr != nil {
		reason := classifyLoadError(loadErr)
		o.logger.Warn("profile load failed", "reason_code", reason, "profile_id", req.Profile.ID, "profile_version", req.Profile.Version)
		return o.denyWithFallbackProfile(requestHash, reason, req.Profile.ID, req.Profile.Version), req.RequestID
	}
	profileInfo := model.DecisionProfileInfo{ID: prof.ProfileID, Version: prof.ProfileVersion, ProfileRefHash: profileRefHash}

	// ENFORCE
	outcome := o.engine.Evaluate(req, prof)
	if outcome.Violated() {
		o.logger.Warn("request denied", "reason_code", outcome.Reason, "request_id", req.RequestID, "tool.name", req.Tool.Name)
		d, err := o.assembler.Deny(outcome.Reason, requestHash, profileInfo)
		if err != nil {
			return o.denyWithFallbackProfile(requestHash, model.ReasonInternalError, req.Profile.ID, req.Profile.Version), req.RequestID
		}
		return d, req.RequestID
	}

	// ASSEMBLE (the single success path)
	d, err := o.assembler.Allow(requestHash, profileInfo, req.Tool.Name, req.Tool.Args)
	if err != nil {
		return o.denyWithFallbackProfile(requestHash, model.ReasonInternalError, req.Profile.ID, req.Profile.Version), req.RequestID
	}
	return d, req.RequestID
}

// unknownProfileRef is the placeholder profile id/version used when a
// denial happens before the request's own profile reference is known
// (malformed or schema-invalid requests), mirroring the ground truth's
// "UNKNOWN" sentinel for the same case.
const unknownProfileRef = "UNKNOWN"

// denyPreSchema builds a DENY decision for failures before a request_hash
// over canonical JSON is even possible: request_hash is the raw-byte hash,
// profile_ref_hash is the fallback digest of {}, and profile id/version are
// unknown since the request never parsed far enough to name one.
func (o *Orchestrator) denyPreSchema(rawBody []byte, reason model.ReasonCode) model.ExecutionDecision {
	requestHash := canonical.Hash(rawBody)
	return o.denyWithFallbackProfile(requestHash, reason, unknownProfileRef, unknownProfileRef)
}

// denyWithFallbackProfile builds a DENY decision whose profile_ref_hash
// falls back to the digest of {} (the profile was never successfully
// loaded), but whose profile id/version name the reference the request
// actually asked for — known as soon as schema validation succeeds, per
// spec §4.3/§4.5, so a CTX_HASH_MISMATCH or profile-load failure still
// records which profile the denial was about.
func (o *Orchestrator) denyWithFallbackProfile(requestHash string, reason model.ReasonCode, profileID, profileVersion string) model.ExecutionDecision {
	fallback, err := decision.FallbackProfileRefHash()
	if err != nil {
		return model.ExecutionDecision{DecisionType: model.DecisionDeny, ReasonCode: model.ReasonInternalError, RequestHash: requestHash}
	}
	d, err := o.assembler.Deny(reason, requestHash, model.DecisionProfileInfo{ID: profileID, Version: profileVersion, ProfileRefHash: fallback})
	if err != nil {
		return model.ExecutionDecision{DecisionType: model.DecisionDeny, ReasonCode: model.ReasonInternalError, RequestHash: requestHash}
	}
	return d
}

// appendAudit builds and appends the audit record for a terminal decision.
// Returns false if the append failed, signaling the caller to substitute
// AUDIT_WRITE_FAILED.
func (o *Orchestrator) appendAudit(ctx context.Context, requestID string, d model.ExecutionDecision, receivedAt, decidedAt time.Time) bool {
	record := model.AuditRecord{
		RequestID:      requestID,
		RequestHash:    d.RequestHash,
		ProfileID:      d.Profile.ID,
		ProfileVersion: d.Profile.Version,
		ProfileRefHash: d.Profile.ProfileRefHash,
		DecisionType:   d.DecisionType,
		ReasonCode:     d.ReasonCode,
		ProvenanceID:   d.ProvenanceID,
		Runtime:        d.Runtime,
		Timestamps: model.AuditTimestamps{
			ReceivedAt: isoNow(receivedAt),
			DecidedAt:  isoNow(decidedAt),
		},
	}

	seq, err := o.auditLog.Append(record)
	if err != nil {
		o.logger.Error("audit append failed", "error", err, "request_id", requestID)
		return false
	}

	if o.index != nil {
		record.Seq = seq
		if err := o.index.Upsert(ctx, record); err != nil {
			o.logger.Error("secondary audit index upsert failed", "error", err, "seq", seq)
		}
	}
	return true
}

// hashSnapshot computes hash_json(snapshot) for the CTX_CHECK step.
func hashSnapshot(raw json.RawMessage) (string, error) {
	if len(raw) == 0 {
		return "", fmt.Errorf("gate: empty context snapshot")
	}
	var generic interface{}
	if err := json.Unmarshal(raw, &generic); err != nil {
		return "", err
	}
	return canonical.HashJSON(generic)
}

// classifyParseReason distinguishes REQUEST_PARSE_ERROR (not valid JSON at
// all) from REQUEST_SCHEMA_INVALID (valid JSON, invalid schema).
func classifyParseReason(rawBody []byte) model.ReasonCode {
	var v interface{}
	if err := json.Unmarshal(rawBody, &v); err != nil {
		return model.ReasonRequestParseError
	}
	return model.ReasonRequestSchemaInvalid
}

func classifyLoadError(err error) model.ReasonCode {
	switch err.(type) {
	case *profile.ErrNotFound:
		return model.ReasonProfileNotFound
	case *profile.ErrInvalidDefault:
		return model.ReasonInvalidProfileDefault
	default:
		return model.ReasonProfileParseError
	}
}
