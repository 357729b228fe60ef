package profile

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeProfile(t *testing.T, root, id, version, body string) {
	t.Helper()
	dir := filepath.Join(root, id)
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, version+".json"), []byte(body), 0o644))
}

func TestLoader_LoadAndCache(t *testing.T) {
	root := t.TempDir()
	writeProfile(t, root, "example", "1.0.0", `{"profile_id":"example","profile_version":"1.0.0","default":"DENY","allowed_tools":[{"name":"email.send","required_controls":{"approval_token":false}}]}`)

	l := NewLoader(root)
	ctx := context.Background()

	p1, hash1, err := l.Load(ctx, "example", "1.0.0")
	require.NoError(t, err)
	assert.Equal(t, "example", p1.ProfileID)
	assert.NotEmpty(t, hash1)

	p2, hash2, err := l.Load(ctx, "example", "1.0.0")
	require.NoError(t, err)
	assert.Same(t, p1, p2)
	assert.Equal(t, hash1, hash2)
}

func TestLoader_NotFound(t *testing.T) {
	l := NewLoader(t.TempDir())
	_, _, err := l.Load(context.Background(), "missing", "1.0.0")
	var notFound *ErrNotFound
	assert.ErrorAs(t, err, &notFound)
}

func TestLoader_InvalidDefault(t *testing.T) {
	root := t.TempDir()
	writeProfile(t, root, "bad", "1.0.0", `{"profile_id":"bad","profile_version":"1.0.0","default":"ALLOW","allowed_tools":[]}`)

	l := NewLoader(root)
	_, _, err := l.Load(context.Background(), "bad", "1.0.0")
	var invalidDefault *ErrInvalidDefault
	assert.ErrorAs(t, err, &invalidDefault)
}

func TestLoader_ParseError(t *testing.T) {
	root := t.TempDir()
	writeProfile(t, root, "corrupt", "1.0.0", `not json`)

	l := NewLoader(root)
	_, _, err := l.Load(context.Background(), "corrupt", "1.0.0")
	var parseErr *ErrParse
	assert.ErrorAs(t, err, &parseErr)
}

func TestLoader_RefHashStableAcrossFormatting(t *testing.T) {
	root := t.TempDir()
	writeProfile(t, root, "compact", "1.0.0", `{"profile_id":"compact","profile_version":"1.0.0","default":"DENY","allowed_tools":[]}`)
	writeProfile(t, root, "spaced", "1.0.0", "{\n  \"profile_id\": \"compact\",\n  \"profile_version\": \"1.0.0\",\n  \"default\": \"DENY\",\n  \"allowed_tools\": []\n}\n")

	l := NewLoader(root)
	ctx := context.Background()
	_, hash1, err := l.Load(ctx, "compact", "1.0.0")
	require.NoError(t, err)
	_, hash2, err := l.Load(ctx, "spaced", "1.0.0")
	require.NoError(t, err)
	assert.Equal(t, hash1, hash2)
}
