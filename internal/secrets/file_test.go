package secrets

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileStoreRoundTrip(t *testing.T) {
	dir := t.TempDir()
	store, err := NewFileStore(dir, "hunter2")
	require.NoError(t, err)

	_, err = store.Get("missing")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, store.Set(RefreshTokenKey("production"), "r-1"))
	require.NoError(t, store.Set(IdentityKey("production"), "me@example.com"))

	got, err := store.Get(RefreshTokenKey("production"))
	require.NoError(t, err)
	assert.Equal(t, "r-1", got)

	keys, err := store.List()
	require.NoError(t, err)
	assert.Equal(t, []string{"identity.production", "refresh_token.production"}, keys)

	require.NoError(t, store.Delete(IdentityKey("production")))
	assert.ErrorIs(t, store.Delete(IdentityKey("production")), ErrNotFound)

	info, err := os.Stat(filepath.Join(dir, fileName))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())
}

func TestFileStoreIsEncrypted(t *testing.T) {
	dir := t.TempDir()
	store, err := NewFileStore(dir, "hunter2")
	require.NoError(t, err)
	require.NoError(t, store.Set("token", "plain-secret-value"))

	raw, err := os.ReadFile(filepath.Join(dir, fileName))
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "plain-secret-value")
}

func TestFileStoreWrongPassword(t *testing.T) {
	dir := t.TempDir()
	store, err := NewFileStore(dir, "right")
	require.NoError(t, err)
	require.NoError(t, store.Set("token", "v"))

	other, err := NewFileStore(dir, "wrong")
	require.NoError(t, err)
	_, err = other.Get("token")
	assert.ErrorContains(t, err, "decrypt")
}

func TestOpenForceFile(t *testing.T) {
	store, err := Open(Options{Dir: t.TempDir(), Password: "p", ForceFile: true})
	require.NoError(t, err)
	_, ok := store.(*FileStore)
	assert.True(t, ok)
}
