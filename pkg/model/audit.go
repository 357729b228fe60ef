package model

import "encoding/json"

// AuditTimestamps captures the three points in a request's lifecycle that
// matter for forensics. None of these are inputs to any hash except
// record_hash itself — they are not load-bearing for decision correctness.
type AuditTimestamps struct {
	ReceivedAt string `json:"received_at"`
	DecidedAt  string `json:"decided_at"`
	LoggedAt   string `json:"logged_at"`
}

// AuditIntegrity chains a record to its predecessor.
type AuditIntegrity struct {
	PrevHash   string `json:"prev_hash"`
	RecordHash string `json:"record_hash"`
}

// AuditRecord is one append-only, hash-chained log entry. Never mutated
// after append.
type AuditRecord struct {
	Seq            int64           `json:"seq"`
	RequestID      string          `json:"request_id"`
	RequestHash    string          `json:"request_hash"`
	ProfileID      string          `json:"profile_id"`
	ProfileVersion string          `json:"profile_version"`
	ProfileRefHash string          `json:"profile_ref_hash"`
	DecisionType   DecisionType    `json:"decision_type"`
	ReasonCode     ReasonCode      `json:"reason_code"`
	ProvenanceID   string          `json:"provenance_id"`
	Runtime        RuntimeMeta     `json:"runtime"`
	Timestamps     AuditTimestamps `json:"timestamps"`
	Integrity      AuditIntegrity  `json:"integrity"`
}

// HashInput returns the value to canonically hash when computing this
// record's record_hash: the full record, with prev_hash present but the
// record_hash key itself removed entirely (not merely zeroed), per spec
// §4.6's "record including prev_hash but excluding its own record_hash".
func (r AuditRecord) HashInput() (interface{}, error) {
	b, err := json.Marshal(r)
	if err != nil {
		return nil, err
	}
	var m map[string]interface{}
	if err := json.Unmarshal(b, &m); err != nil {
		return nil, err
	}
	if integrity, ok := m["integrity"].(map[string]interface{}); ok {
		delete(integrity, "record_hash")
	}
	return m, nil
}
