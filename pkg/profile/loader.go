// Package profile resolves (profile_id, version) pairs to parsed
// ExecutionProfile documents and their canonical reference hashes.
package profile

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/mindburn-labs/execgate/pkg/canonical"
	"github.com/mindburn-labs/execgate/pkg/model"
)

// entry is an immutable, content-addressed cache slot: once installed for a
// given (id, version) it never changes, since profile bytes never mutate
// for a fixed version.
type entry struct {
	profile *model.ExecutionProfile
	refHash string
}

// Loader resolves profiles from a root directory, naming files
// "<root>/<id>/<version>.json". Reads are cached aggressively; correctness
// never depends on invalidation because a changed profile must ship under a
// new version string.
type Loader struct {
	root      string
	readCache *RedisCache

	mu    sync.RWMutex
	cache map[string]entry // key: id+"/"+version
}

// NewLoader creates a loader rooted at dir. The directory is not required
// to exist yet; Load surfaces a PROFILE_NOT_FOUND-shaped error if it or the
// requested file is missing.
func NewLoader(dir string) *Loader {
	return &Loader{
		root:  dir,
		cache: make(map[string]entry),
	}
}

// WithRedisCache attaches an optional read-through cache in front of the
// filesystem. Disk remains authoritative; this only saves repeated reads
// of the same (id, version) across process restarts.
func (l *Loader) WithRedisCache(c *RedisCache) *Loader {
	l.readCache = c
	return l
}

// ErrNotFound indicates no profile exists for the given (id, version).
type ErrNotFound struct {
	ID, Version string
}

func (e *ErrNotFound) Error() string {
	return fmt.Sprintf("profile: not found: %s/%s", e.ID, e.Version)
}

// ErrParse indicates the profile's bytes were unparseable or schema-invalid.
type ErrParse struct {
	ID, Version string
	Cause       error
}

func (e *ErrParse) Error() string {
	return fmt.Sprintf("profile: parse %s/%s: %v", e.ID, e.Version, e.Cause)
}

func (e *ErrParse) Unwrap() error { return e.Cause }

// ErrInvalidDefault indicates the profile parsed but its default field is
// not the literal DENY, a fatal profile error distinct from ErrParse.
type ErrInvalidDefault struct {
	ID, Version string
	Got         string
}

func (e *ErrInvalidDefault) Error() string {
	return fmt.Sprintf("profile: %s/%s: default must be DENY, got %q", e.ID, e.Version, e.Got)
}

// Load resolves (id, version) to a parsed profile and its profile_ref_hash,
// the hash of the canonical form of the profile's JSON content.
func (l *Loader) Load(ctx context.Context, id, version string) (*model.ExecutionProfile, string, error) {
	key := id + "/" + version

	l.mu.RLock()
	if e, ok := l.cache[key]; ok {
		l.mu.RUnlock()
		return e.profile, e.refHash, nil
	}
	l.mu.RUnlock()

	data, fromDisk, err := l.readBytes(ctx, id, version)
	if err != nil {
		return nil, "", err
	}

	p, err := model.ParseExecutionProfile(data)
	if err != nil {
		return nil, "", &ErrParse{ID: id, Version: version, Cause: err}
	}
	if err := p.Validate(); err != nil {
		return nil, "", &ErrParse{ID: id, Version: version, Cause: err}
	}
	if !p.DefaultIsDeny() {
		return nil, "", &ErrInvalidDefault{ID: id, Version: version, Got: p.Default}
	}

	// The ref hash binds the file's JSON content, not a re-serialization of
	// the parsed struct: decode generically and re-canonicalize, rather
	// than canonicalizing the Go struct, so incidental struct-tag ordering
	// can never diverge from the file's actual JSON content. Whitespace and
	// key order on disk do not affect it.
	refHash, err := hashRawJSON(data)
	if err != nil {
		return nil, "", fmt.Errorf("profile: hash %s/%s: %w", id, version, err)
	}

	if fromDisk && l.readCache != nil {
		_ = l.readCache.Set(ctx, id, version, data)
	}

	l.mu.Lock()
	l.cache[key] = entry{profile: p, refHash: refHash}
	l.mu.Unlock()

	return p, refHash, nil
}

// readBytes returns the profile's raw bytes, preferring the Redis
// read-through cache when configured and falling back to disk on any miss
// or cache error. fromDisk reports whether disk was the source, so the
// caller knows whether the cache still needs warming.
func (l *Loader) readBytes(ctx context.Context, id, version string) (data []byte, fromDisk bool, err error) {
	if l.readCache != nil {
		if b, ok := l.readCache.Get(ctx, id, version); ok {
			return b, false, nil
		}
	}

	path := filepath.Join(l.root, id, version+".json")
	b, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, false, &ErrNotFound{ID: id, Version: version}
		}
		return nil, false, fmt.Errorf("profile: read %s: %w", path, err)
	}
	return b, true, nil
}

// hashRawJSON canonicalizes raw JSON bytes (not a Go value) by decoding and
// re-encoding through the canonical package, so the ref hash reflects the
// file's JSON content regardless of incidental formatting on disk.
func hashRawJSON(data []byte) (string, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var generic interface{}
	if err := dec.Decode(&generic); err != nil {
		return "", err
	}
	return canonical.HashJSON(generic)
}
