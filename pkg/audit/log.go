// Package audit implements the Audit Log (C6): an append-only, sequenced,
// hash-chained record store backed by a single file, one canonical-JSON
// record per line.
package audit

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/mindburn-labs/execgate/pkg/canonical"
	"github.com/mindburn-labs/execgate/pkg/model"
)

// Log is a single-writer, append-only audit store. All appends serialize
// through mu, covering read-tail, compute-prev-hash, write, and flush —
// the lock is held until the bytes are durable so no concurrent appender
// can ever observe a stale prev_hash.
type Log struct {
	mu   sync.Mutex
	file *os.File

	nextSeq  int64
	tailHash string
}

// Open opens (creating if necessary) the audit log file at path and
// replays it to recover the append cursor: the next sequence number and
// the tail record_hash new appends must chain from.
func Open(path string) (*Log, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("audit: open %s: %w", path, err)
	}

	nextSeq, tailHash, err := scanTail(path)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("audit: scan %s: %w", path, err)
	}

	return &Log{file: f, nextSeq: nextSeq, tailHash: tailHash}, nil
}

// Close releases the underlying file handle.
func (l *Log) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.file.Close()
}

// Append assigns seq and integrity fields to record, writes it as one
// canonical-JSON line, and flushes before returning. record's Seq and
// Integrity fields are overwritten; ReceivedAt/DecidedAt/RequestID/etc.
// must already be set by the caller. Returns the assigned seq.
func (l *Log) Append(record model.AuditRecord) (int64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	record.Seq = l.nextSeq
	record.Integrity.PrevHash = l.tailHash
	record.Timestamps.LoggedAt = time.Now().UTC().Format(time.RFC3339Nano)
	record.Integrity.RecordHash = ""

	hashInput, err := record.HashInput()
	if err != nil {
		return 0, fmt.Errorf("audit: hash input: %w", err)
	}
	recordHash, err := canonical.HashJSON(hashInput)
	if err != nil {
		return 0, fmt.Errorf("audit: compute record hash: %w", err)
	}
	record.Integrity.RecordHash = recordHash

	line, err := canonical.JCS(record)
	if err != nil {
		return 0, fmt.Errorf("audit: canonicalize record: %w", err)
	}
	line = append(line, '\n')

	if _, err := l.file.Write(line); err != nil {
		return 0, fmt.Errorf("audit: write: %w", err)
	}
	if err := l.file.Sync(); err != nil {
		return 0, fmt.Errorf("audit: flush: %w", err)
	}

	l.nextSeq = record.Seq + 1
	l.tailHash = recordHash
	return record.Seq, nil
}

// ChainBreak describes the first integrity violation found by VerifyFile.
type ChainBreak struct {
	Seq    int64
	Reason string
}

// VerifyFile replays the audit log at path, re-hashing every record and
// checking the prev_hash chain. Returns nil if the chain is intact.
func VerifyFile(path string) (*ChainBreak, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("audit: open %s: %w", path, err)
	}
	defer f.Close()

	expectedPrev := canonical.ZeroHash
	expectedSeq := int64(0)

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var record model.AuditRecord
		if err := json.Unmarshal(line, &record); err != nil {
			return &ChainBreak{Seq: expectedSeq, Reason: fmt.Sprintf("unparseable record: %v", err)}, nil
		}
		if record.Seq != expectedSeq {
			return &ChainBreak{Seq: record.Seq, Reason: fmt.Sprintf("expected seq %d, got %d", expectedSeq, record.Seq)}, nil
		}
		if record.Integrity.PrevHash != expectedPrev {
			return &ChainBreak{Seq: record.Seq, Reason: "prev_hash mismatch"}, nil
		}
		storedHash := record.Integrity.RecordHash
		hashInput, err := record.HashInput()
		if err != nil {
			return &ChainBreak{Seq: record.Seq, Reason: fmt.Sprintf("hash input: %v", err)}, nil
		}
		recomputed, err := canonical.HashJSON(hashInput)
		if err != nil {
			return &ChainBreak{Seq: record.Seq, Reason: fmt.Sprintf("recompute hash: %v", err)}, nil
		}
		if recomputed != storedHash {
			return &ChainBreak{Seq: record.Seq, Reason: "record_hash mismatch"}, nil
		}

		expectedPrev = storedHash
		expectedSeq++
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("audit: scan %s: %w", path, err)
	}
	return nil, nil
}

// scanTail replays the file to compute the resume point: the next seq to
// assign and the tail record_hash. An empty or missing file resumes at
// seq 0 chained from the zero sentinel.
func scanTail(path string) (nextSeq int64, tailHash string, err error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, canonical.ZeroHash, nil
		}
		return 0, "", err
	}
	defer f.Close()

	nextSeq = 0
	tailHash = canonical.ZeroHash

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var record model.AuditRecord
		if err := json.Unmarshal(line, &record); err != nil {
			return 0, "", fmt.Errorf("parse line at seq %d: %w", nextSeq, err)
		}
		nextSeq = record.Seq + 1
		tailHash = record.Integrity.RecordHash
	}
	if err := scanner.Err(); err != nil {
		return 0, "", err
	}
	return nextSeq, tailHash, nil
}
