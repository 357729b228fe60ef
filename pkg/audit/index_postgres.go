package audit

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"

	"github.com/mindburn-labs/execgate/pkg/model"
)

const pgSchema = `
CREATE TABLE IF NOT EXISTS audit_records (
	seq BIGINT PRIMARY KEY,
	request_id TEXT NOT NULL,
	request_hash TEXT NOT NULL,
	profile_id TEXT NOT NULL,
	profile_version TEXT NOT NULL,
	profile_ref_hash TEXT NOT NULL,
	decision_type TEXT NOT NULL,
	reason_code TEXT NOT NULL,
	provenance_id TEXT NOT NULL,
	prev_hash TEXT NOT NULL,
	record_hash TEXT NOT NULL,
	received_at TEXT NOT NULL,
	decided_at TEXT NOT NULL,
	logged_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS audit_records_request_id_idx ON audit_records (request_id);
`

// PostgresIndex maintains a queryable secondary index of appended audit
// records. It is never the source of truth — the append-only file is — so
// every write here is best-effort from the orchestrator's perspective: a
// failure here is logged, never promoted to AUDIT_WRITE_FAILED.
type PostgresIndex struct {
	db *sql.DB
}

// OpenPostgresIndex connects using dsn and ensures the schema exists.
func OpenPostgresIndex(ctx context.Context, dsn string) (*PostgresIndex, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("audit: open postgres index: %w", err)
	}
	if _, err := db.ExecContext(ctx, pgSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("audit: init postgres index schema: %w", err)
	}
	return &PostgresIndex{db: db}, nil
}

// Close releases the underlying connection pool.
func (p *PostgresIndex) Close() error {
	return p.db.Close()
}

// Upsert records one appended record. Keyed by seq, since a retried upsert
// after a transient connection error must not create a duplicate row.
func (p *PostgresIndex) Upsert(ctx context.Context, r model.AuditRecord) error {
	const query = `
		INSERT INTO audit_records (
			seq, request_id, request_hash, profile_id, profile_version, profile_ref_hash,
			decision_type, reason_code, provenance_id, prev_hash, record_hash,
			received_at, decided_at, logged_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)
		ON CONFLICT (seq) DO NOTHING
	`
	_, err := p.db.ExecContext(ctx, query,
		r.Seq, r.RequestID, r.RequestHash, r.ProfileID, r.ProfileVersion, r.ProfileRefHash,
		string(r.DecisionType), string(r.ReasonCode), r.ProvenanceID,
		r.Integrity.PrevHash, r.Integrity.RecordHash,
		r.Timestamps.ReceivedAt, r.Timestamps.DecidedAt, r.Timestamps.LoggedAt,
	)
	if err != nil {
		return fmt.Errorf("audit: upsert seq %d: %w", r.Seq, err)
	}
	return nil
}

// BySeq looks up a record by sequence number.
func (p *PostgresIndex) BySeq(ctx context.Context, seq int64) (model.AuditRecord, error) {
	const query = `
		SELECT seq, request_id, request_hash, profile_id, profile_version, profile_ref_hash,
			decision_type, reason_code, provenance_id, prev_hash, record_hash,
			received_at, decided_at, logged_at
		FROM audit_records WHERE seq = $1
	`
	var r model.AuditRecord
	var decisionType, reasonCode string
	err := p.db.QueryRowContext(ctx, query, seq).Scan(
		&r.Seq, &r.RequestID, &r.RequestHash, &r.ProfileID, &r.ProfileVersion, &r.ProfileRefHash,
		&decisionType, &reasonCode, &r.ProvenanceID,
		&r.Integrity.PrevHash, &r.Integrity.RecordHash,
		&r.Timestamps.ReceivedAt, &r.Timestamps.DecidedAt, &r.Timestamps.LoggedAt,
	)
	if err != nil {
		return model.AuditRecord{}, fmt.Errorf("audit: lookup seq %d: %w", seq, err)
	}
	r.DecisionType = model.DecisionType(decisionType)
	r.ReasonCode = model.ReasonCode(reasonCode)
	return r, nil
}

// ByRequestID looks up every record (normally one) for a given request_id.
func (p *PostgresIndex) ByRequestID(ctx context.Context, requestID string) ([]model.AuditRecord, error) {
	const query = `
		SELECT seq, request_id, request_hash, profile_id, profile_version, profile_ref_hash,
			decision_type, reason_code, provenance_id, prev_hash, record_hash,
			received_at, decided_at, logged_at
		FROM audit_records WHERE request_id = $1 ORDER BY seq
	`
	rows, err := p.db.QueryContext(ctx, query, requestID)
	if err != nil {
		return nil, fmt.Errorf("audit: lookup request_id %s: %w", requestID, err)
	}
	defer rows.Close()

	var out []model.AuditRecord
	for rows.Next() {
		var r model.AuditRecord
		var decisionType, reasonCode string
		if err := rows.Scan(
			&r.Seq, &r.RequestID, &r.RequestHash, &r.ProfileID, &r.ProfileVersion, &r.ProfileRefHash,
			&decisionType, &reasonCode, &r.ProvenanceID,
			&r.Integrity.PrevHash, &r.Integrity.RecordHash,
			&r.Timestamps.ReceivedAt, &r.Timestamps.DecidedAt, &r.Timestamps.LoggedAt,
		); err != nil {
			return nil, err
		}
		r.DecisionType = model.DecisionType(decisionType)
		r.ReasonCode = model.ReasonCode(reasonCode)
		out = append(out, r)
	}
	return out, rows.Err()
}
