// Package exifdate resolves a photo's capture date from its embedded
// metadata.
//
// A Reader pulls raw date fields out of a file (via an external tool or an
// in-process EXIF decoder). The Resolver then walks an ordered list of
// Accessors, DateTimeOriginal before DateTimeDigitized before DateTime, and
// returns the first one holding a valid calendar date as YYYY-MM-DD.
package exifdate

import (
	"context"
	"errors"
	"fmt"
	"regexp"

	"github.com/choiway/contactsheet/internal/photo"
)

// Canonical field names. Readers translate their tool's naming to these.
const (
	DateTimeOriginal  = "DateTimeOriginal"
	DateTimeDigitized = "DateTimeDigitized"
	DateTime          = "DateTime"
)

// ErrNoDate means the metadata was readable but held no usable date.
var ErrNoDate = errors.New("no EXIF date found")

// Fields maps canonical field names to their raw values,
// e.g. "DateTimeOriginal" -> "2023:06:14 18:02:11".
type Fields map[string]string

// Reader extracts date fields from an image file.
type Reader interface {
	Read(ctx context.Context, path string) (Fields, error)
}

// Accessor reads one named field and interprets it as a date.
type Accessor struct {
	Name string
}

// DefaultAccessors is the priority order for capture dates.
var DefaultAccessors = []Accessor{
	{Name: DateTimeOriginal},
	{Name: DateTimeDigitized},
	{Name: DateTime},
}

var exifDatePattern = regexp.MustCompile(`^\s*(\d{4})[:\-](\d{2})[:\-](\d{2})`)

// Date returns the field's date as YYYY-MM-DD. Values that are absent, not
// date shaped, or not a real calendar day (0000:00:00 is common) fail.
func (a Accessor) Date(fields Fields) (string, bool) {
	raw, ok := fields[a.Name]
	if !ok {
		return "", false
	}
	return ParseDate(raw)
}

// ParseDate converts the leading "YYYY:MM:DD" (or "YYYY-MM-DD") of an EXIF
// timestamp to YYYY-MM-DD.
func ParseDate(raw string) (string, bool) {
	m := exifDatePattern.FindStringSubmatch(raw)
	if m == nil {
		return "", false
	}

	date := fmt.Sprintf("%s-%s-%s", m[1], m[2], m[3])
	if !photo.ValidDate(date) {
		return "", false
	}
	return date, true
}
