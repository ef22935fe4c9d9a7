package history

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileStoreRoundTrip(t *testing.T) {
	store := NewFileStoreAt(filepath.Join(t.TempDir(), "nested", "recent.json"))

	_, ok := store.LastBooted()
	assert.False(t, ok, "empty store has no record")

	require.NoError(t, store.SaveLastBooted("AAAAAAAA-0000-0000-0000-000000000001"))

	udid, ok := store.LastBooted()
	require.True(t, ok)
	assert.Equal(t, "AAAAAAAA-0000-0000-0000-000000000001", udid)

	require.NoError(t, store.SaveLastBooted("AAAAAAAA-0000-0000-0000-000000000002"))
	udid, _ = store.LastBooted()
	assert.Equal(t, "AAAAAAAA-0000-0000-0000-000000000002", udid, "latest boot wins")
}

func TestFileStoreCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "recent.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	_, ok := NewFileStoreAt(path).LastBooted()
	assert.False(t, ok, "corrupt record reads as absent, never an error")
}
