// Package photo holds the gallery's photo types and the filesystem helpers
// shared by the cache builder, the server and the thumbnail generator.
package photo

import (
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// DateLayout is the capture date format used in the cache file and the API.
const DateLayout = "2006-01-02"

// DefaultExtensions are the image types picked up by a scan.
var DefaultExtensions = []string{".jpg", ".jpeg", ".png", ".heic"}

// Entry is one element of the /api/photos response.
type Entry struct {
	File string `json:"file"`
	Date string `json:"date"`
}

// Record is a resolved photo as stored in the index.
type Record struct {
	Filename   string
	Path       string
	ShaHash    string
	DateTaken  string
	Field      string // metadata field the date came from, empty for none
	InsertedAt time.Time
}

// IsImage reports whether name carries one of exts, ignoring case.
func IsImage(name string, exts []string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	if ext == "" {
		return false
	}
	for _, e := range exts {
		if strings.ToLower(e) == ext {
			return true
		}
	}
	return false
}

// Scan lists the image files directly inside dir, sorted by name. It does
// not descend into subdirectories. A missing dir is an empty result.
func Scan(dir string, exts []string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return []string{}, nil
		}
		return nil, fmt.Errorf("reading %s: %w", dir, err)
	}

	names := []string{}
	for _, entry := range entries {
		if !entry.Type().IsRegular() {
			continue
		}
		if IsImage(entry.Name(), exts) {
			names = append(names, entry.Name())
		}
	}

	sort.Strings(names)
	return names, nil
}

// FormatDate renders t as YYYY-MM-DD.
func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}

// ValidDate reports whether s is a real calendar date in DateLayout.
func ValidDate(s string) bool {
	_, err := time.Parse(DateLayout, s)
	return err == nil
}

// ModDate returns the file's modification date in local time.
func ModDate(path string) (string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return "", err
	}
	return FormatDate(info.ModTime().Local()), nil
}

// SortByDate orders entries by date string. The sort is stable so entries
// sharing a date keep their scan (filename) order.
func SortByDate(entries []Entry) {
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Date < entries[j].Date
	})
}

// HashFile returns the hex sha256 of the file's content.
func HashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}

	return fmt.Sprintf("%x", h.Sum(nil)), nil
}
