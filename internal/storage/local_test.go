package storage

import (
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalCreateOpenRemove(t *testing.T) {
	store, err := NewLocal(filepath.Join(t.TempDir(), "blobs"))
	require.NoError(t, err)

	blob, err := store.Create()
	require.NoError(t, err)
	_, err = blob.Write([]byte("content"))
	require.NoError(t, err)
	require.NoError(t, blob.Close())

	assert.Equal(t, store.BasePath(), filepath.Dir(blob.Name()))

	file, size, err := store.Open(blob.Name())
	require.NoError(t, err)
	data, err := io.ReadAll(file)
	file.Close()
	require.NoError(t, err)
	assert.Equal(t, int64(7), size)
	assert.Equal(t, "content", string(data))

	require.NoError(t, store.Remove(blob.Name()))
	require.NoError(t, store.Remove(blob.Name()))

	_, _, err = store.Open(blob.Name())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestLocalBlobNamesAreUnique(t *testing.T) {
	store, err := NewLocal(t.TempDir())
	require.NoError(t, err)

	seen := make(map[string]bool)
	for i := 0; i < 50; i++ {
		blob, err := store.Create()
		require.NoError(t, err)
		blob.Close()
		assert.False(t, seen[blob.Name()])
		seen[blob.Name()] = true
	}

	entries, err := os.ReadDir(store.BasePath())
	require.NoError(t, err)
	assert.Len(t, entries, 50)
}
