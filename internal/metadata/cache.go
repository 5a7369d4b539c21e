// Package metadata owns photo_metadata.json, the filename to capture date
// cache, and the builder that regenerates it.
package metadata

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
)

// Cache maps image filenames to YYYY-MM-DD capture dates.
type Cache map[string]string

// Date looks up a filename.
func (c Cache) Date(filename string) (string, bool) {
	d, ok := c[filename]
	return d, ok && d != ""
}

// LoadCache reads a cache file. A missing file returns an empty cache and
// an error wrapping os.ErrNotExist so callers can choose to carry on.
func LoadCache(path string) (Cache, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Cache{}, fmt.Errorf("reading cache: %w", err)
	}

	cache := Cache{}
	if err := json.Unmarshal(data, &cache); err != nil {
		return nil, fmt.Errorf("parsing cache %s: %w", path, err)
	}
	return cache, nil
}

// Marshal renders the cache with sorted keys and two-space indent, so equal
// caches always produce equal bytes.
func (c Cache) Marshal() ([]byte, error) {
	if c == nil {
		c = Cache{}
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(c); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// lockPath names the lock serialising writers of the cache at path. It
// lives in the temp dir so the photos directory only ever holds the cache.
func lockPath(path string) string {
	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}
	sum := sha256.Sum256([]byte(path))
	return filepath.Join(os.TempDir(), "contactsheet-"+hex.EncodeToString(sum[:8])+".lock")
}

// WriteCache replaces the file at path with cache. Writers are serialised
// through a lock file and the new content is renamed into place.
func WriteCache(path string, cache Cache) error {
	data, err := cache.Marshal()
	if err != nil {
		return fmt.Errorf("encoding cache: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating cache dir: %w", err)
	}

	lock := flock.New(lockPath(path))
	if err := lock.Lock(); err != nil {
		return fmt.Errorf("locking cache: %w", err)
	}
	defer lock.Unlock()

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp cache: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("writing cache: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("writing cache: %w", err)
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		return err
	}

	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("replacing cache: %w", err)
	}
	return nil
}
