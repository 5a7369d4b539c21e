package metadata

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteAndLoadCache(t *testing.T) {
	path := filepath.Join(t.TempDir(), "photo_metadata.json")
	cache := Cache{"b.jpg": "2024-01-02", "a.jpg": "2023-05-06"}

	require.NoError(t, WriteCache(path, cache))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "{\n  \"a.jpg\": \"2023-05-06\",\n  \"b.jpg\": \"2024-01-02\"\n}\n", string(data))

	loaded, err := LoadCache(path)
	require.NoError(t, err)
	assert.Equal(t, cache, loaded)

	d, ok := loaded.Date("a.jpg")
	assert.True(t, ok)
	assert.Equal(t, "2023-05-06", d)
	_, ok = loaded.Date("c.jpg")
	assert.False(t, ok)
}

func TestWriteCacheReplacesContent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "photo_metadata.json")
	require.NoError(t, WriteCache(path, Cache{"old.jpg": "2001-01-01"}))
	require.NoError(t, WriteCache(path, Cache{"new.jpg": "2002-02-02"}))

	loaded, err := LoadCache(path)
	require.NoError(t, err)
	assert.Equal(t, Cache{"new.jpg": "2002-02-02"}, loaded)

	leftovers, err := filepath.Glob(path + ".*.tmp")
	require.NoError(t, err)
	assert.Empty(t, leftovers)
}

func TestWriteCacheLeavesOnlyTheCache(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "photo_metadata.json")
	require.NoError(t, WriteCache(path, Cache{"a.jpg": "2023-05-06"}))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "photo_metadata.json", entries[0].Name())
}

func TestLockPathIsPerCache(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a.json")

	assert.Equal(t, os.TempDir(), filepath.Dir(lockPath(a)))
	assert.Equal(t, lockPath(a), lockPath(a))
	assert.NotEqual(t, lockPath(a), lockPath(filepath.Join(dir, "b.json")))
}

func TestEmptyCacheMarshalsAsObject(t *testing.T) {
	data, err := Cache(nil).Marshal()
	require.NoError(t, err)
	assert.Equal(t, "{}\n", string(data))
}

func TestLoadCacheMissing(t *testing.T) {
	cache, err := LoadCache(filepath.Join(t.TempDir(), "missing.json"))
	assert.True(t, errors.Is(err, os.ErrNotExist))
	assert.NotNil(t, cache)
	assert.Empty(t, cache)
}

func TestLoadCacheMalformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "photo_metadata.json")
	require.NoError(t, os.WriteFile(path, []byte(`["a.jpg"]`), 0o644))

	_, err := LoadCache(path)
	assert.Error(t, err)
	assert.False(t, errors.Is(err, os.ErrNotExist))
}
