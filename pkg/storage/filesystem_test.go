package storage

import (
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLocalStorageSaveOpenDelete(t *testing.T) {
	store, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	rel, err := store.Save("logbooks/course-1/export.csv", []byte("a,b\n1,2\n"))
	require.NoError(t, err)
	require.Equal(t, "logbooks/course-1/export.csv", rel)

	file, err := store.Open(rel)
	require.NoError(t, err)
	data, err := io.ReadAll(file)
	require.NoError(t, file.Close())
	require.NoError(t, err)
	require.Equal(t, "a,b\n1,2\n", string(data))

	require.NoError(t, store.Delete(rel))
	_, err = store.Open(rel)
	require.Error(t, err)

	// deleting twice is not an error
	require.NoError(t, store.Delete(rel))
}

func TestLocalStorageResolveStaysInsideBase(t *testing.T) {
	base := t.TempDir()
	store, err := NewLocalStorage(base)
	require.NoError(t, err)

	rel, err := store.Save("../../escape.csv", []byte("x"))
	require.NoError(t, err)

	parent := filepath.Dir(base)
	_, statErr := os.Stat(filepath.Join(parent, "escape.csv"))
	require.True(t, os.IsNotExist(statErr), "file must not land outside the base dir")

	file, err := store.Open(rel)
	require.NoError(t, err)
	require.NoError(t, file.Close())
	require.True(t, strings.HasPrefix(file.Name(), base))
}

func TestLocalStorageCleanupOlderThan(t *testing.T) {
	base := t.TempDir()
	store, err := NewLocalStorage(base)
	require.NoError(t, err)

	old, err := store.Save("logbooks/old.csv", []byte("old"))
	require.NoError(t, err)
	fresh, err := store.Save("logbooks/fresh.csv", []byte("fresh"))
	require.NoError(t, err)

	stale := time.Now().Add(-2 * time.Hour)
	require.NoError(t, os.Chtimes(filepath.Join(base, "logbooks", "old.csv"), stale, stale))

	deleted, err := store.CleanupOlderThan(time.Hour)
	require.NoError(t, err)
	require.Equal(t, []string{filepath.Join("logbooks", "old.csv")}, deleted)

	_, err = store.Open(old)
	require.Error(t, err)
	file, err := store.Open(fresh)
	require.NoError(t, err)
	require.NoError(t, file.Close())
}
