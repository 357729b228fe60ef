package audit

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mindburn-labs/execgate/pkg/canonical"
	"github.com/mindburn-labs/execgate/pkg/model"
)

func sampleRecord(requestID string) model.AuditRecord {
	return model.AuditRecord{
		RequestID:      requestID,
		RequestHash:    "sha256:req",
		ProfileID:      "example",
		ProfileVersion: "1.0.0",
		ProfileRefHash: "sha256:prof",
		DecisionType:   model.DecisionAllow,
		ReasonCode:     model.ReasonOK,
		ProvenanceID:   "sha256:prov",
		Runtime:        model.RuntimeMeta{Name: "gate", Version: "1.0.0", Build: "abc"},
		Timestamps:     model.AuditTimestamps{ReceivedAt: "t1", DecidedAt: "t2"},
	}
}

func TestLog_FirstRecordChainsFromZeroSentinel(t *testing.T) {
	path := filepath.Join(t.TempDir(), "audit.log")
	l, err := Open(path)
	require.NoError(t, err)
	defer l.Close()

	seq, err := l.Append(sampleRecord("r1"))
	require.NoError(t, err)
	assert.Equal(t, int64(0), seq)

	br, err := VerifyFile(path)
	require.NoError(t, err)
	assert.Nil(t, br)
}

func TestLog_ContiguousSeqAndChain(t *testing.T) {
	path := filepath.Join(t.TempDir(), "audit.log")
	l, err := Open(path)
	require.NoError(t, err)
	defer l.Close()

	seq1, err := l.Append(sampleRecord("r1"))
	require.NoError(t, err)
	seq2, err := l.Append(sampleRecord("r2"))
	require.NoError(t, err)

	assert.Equal(t, int64(0), seq1)
	assert.Equal(t, int64(1), seq2)

	br, err := VerifyFile(path)
	require.NoError(t, err)
	assert.Nil(t, br)
}

func TestLog_ConcurrentAppendsStayOrdered(t *testing.T) {
	path := filepath.Join(t.TempDir(), "audit.log")
	l, err := Open(path)
	require.NoError(t, err)
	defer l.Close()

	const n = 20
	var wg sync.WaitGroup
	seqs := make([]int64, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			seq, err := l.Append(sampleRecord("r"))
			require.NoError(t, err)
			seqs[i] = seq
		}(i)
	}
	wg.Wait()

	seen := make(map[int64]bool)
	for _, s := range seqs {
		assert.False(t, seen[s], "duplicate seq %d", s)
		seen[s] = true
	}
	assert.Len(t, seen, n)

	br, err := VerifyFile(path)
	require.NoError(t, err)
	assert.Nil(t, br)
}

func TestLog_ResumesFromExistingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "audit.log")
	l1, err := Open(path)
	require.NoError(t, err)
	_, err = l1.Append(sampleRecord("r1"))
	require.NoError(t, err)
	require.NoError(t, l1.Close())

	l2, err := Open(path)
	require.NoError(t, err)
	defer l2.Close()
	seq, err := l2.Append(sampleRecord("r2"))
	require.NoError(t, err)
	assert.Equal(t, int64(1), seq)
}

func TestVerifyFile_DetectsTamperedRecord(t *testing.T) {
	path := filepath.Join(t.TempDir(), "audit.log")
	l, err := Open(path)
	require.NoError(t, err)
	_, err = l.Append(sampleRecord("r1"))
	require.NoError(t, err)
	require.NoError(t, l.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	tampered := []byte(string(data)[:len(data)-2] + "X\n")
	require.NoError(t, os.WriteFile(path, tampered, 0o644))

	br, err := VerifyFile(path)
	require.NoError(t, err)
	require.NotNil(t, br)
}

func TestVerifyFile_EmptyFileIsValid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "audit.log")
	require.NoError(t, os.WriteFile(path, nil, 0o644))
	br, err := VerifyFile(path)
	require.NoError(t, err)
	assert.Nil(t, br)
}

func TestLog_GenesisPrevHashIsZeroSentinel(t *testing.T) {
	path := filepath.Join(t.TempDir(), "audit.log")
	l, err := Open(path)
	require.NoError(t, err)
	defer l.Close()

	_, err = l.Append(sampleRecord("r1"))
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	firstLine := bytes.SplitN(data, []byte("\n"), 2)[0]
	var record model.AuditRecord
	require.NoError(t, json.Unmarshal(firstLine, &record))
	assert.Equal(t, canonical.ZeroHash, record.Integrity.PrevHash)
}
