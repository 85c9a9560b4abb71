package storage

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDiskStorage(t *testing.T) {
	dir := t.TempDir()
	s, err := NewDiskStorage(dir, "http://localhost:3000/uploads/")
	require.NoError(t, err)
	ctx := context.Background()

	key, err := NewKey("essay.txt")
	require.NoError(t, err)

	t.Run("Put", func(t *testing.T) {
		stored, err := s.Put(ctx, key, 5, bytes.NewReader([]byte("hello")))
		require.NoError(t, err)
		assert.Equal(t, key, stored.Key)
		assert.Equal(t, "http://localhost:3000/uploads/"+key, stored.Location)

		data, err := os.ReadFile(filepath.Join(dir, key))
		require.NoError(t, err)
		assert.Equal(t, "hello", string(data))
	})

	t.Run("ShortWriteLeavesNothing", func(t *testing.T) {
		other, err := NewKey("other.txt")
		require.NoError(t, err)

		_, err = s.Put(ctx, other, 10, bytes.NewReader([]byte("abc")))
		assert.Error(t, err)
		_, statErr := os.Stat(filepath.Join(dir, other))
		assert.True(t, os.IsNotExist(statErr))
	})

	t.Run("RejectsTraversal", func(t *testing.T) {
		_, err := s.Put(ctx, "../escape.txt", 1, bytes.NewReader([]byte("x")))
		assert.Error(t, err)
	})

	t.Run("Delete", func(t *testing.T) {
		require.NoError(t, s.Delete(ctx, key))
		_, statErr := os.Stat(filepath.Join(dir, key))
		assert.True(t, os.IsNotExist(statErr))
		assert.NoError(t, s.Delete(ctx, key))
	})

	t.Run("NoTempFilesLeft", func(t *testing.T) {
		entries, err := os.ReadDir(dir)
		require.NoError(t, err)
		assert.Empty(t, entries)
	})
}
