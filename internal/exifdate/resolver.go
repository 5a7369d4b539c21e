package exifdate

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

// Match is a resolved capture date and where it came from.
type Match struct {
	Date   string // YYYY-MM-DD
	Field  string // accessor that matched
	Source string // file the metadata was read from
}

// Resolver turns a file path into a capture date.
type Resolver struct {
	Reader    Reader
	Accessors []Accessor
	// PreferHEICSibling reads IMG_1.HEIC before IMG_1.jpg when both exist.
	// Phones keep the original capture metadata on the HEIC.
	PreferHEICSibling bool
	Logger            logrus.FieldLogger
}

func NewResolver(reader Reader, logger logrus.FieldLogger) *Resolver {
	return &Resolver{
		Reader:    reader,
		Accessors: DefaultAccessors,
		Logger:    logger,
	}
}

// Lookup returns the first accessor match. It returns ErrNoDate when the
// metadata holds no usable date, or the reader's error when the metadata
// could not be read at all.
func (r *Resolver) Lookup(ctx context.Context, path string) (Match, error) {
	sources := []string{path}
	if r.PreferHEICSibling {
		if sibling := heicSibling(path); sibling != "" {
			sources = []string{sibling, path}
		}
	}

	var lastErr error
	for _, src := range sources {
		fields, err := r.Reader.Read(ctx, src)
		if err != nil {
			lastErr = fmt.Errorf("reading metadata from %s: %w", filepath.Base(src), err)
			continue
		}

		for _, a := range r.Accessors {
			if date, ok := a.Date(fields); ok {
				return Match{Date: date, Field: a.Name, Source: src}, nil
			}
		}
		lastErr = ErrNoDate
	}

	return Match{}, lastErr
}

// Resolve is Lookup for callers that only want a value. Failures are logged
// and reported as no date.
func (r *Resolver) Resolve(ctx context.Context, path string) (string, bool) {
	m, err := r.Lookup(ctx, path)
	if err != nil {
		log := r.Logger.WithField("file", filepath.Base(path))
		if errors.Is(err, ErrNoDate) {
			log.Debug("No EXIF date found")
		} else {
			log.WithError(err).Warn("Could not read EXIF")
		}
		return "", false
	}
	return m.Date, true
}

func heicSibling(path string) string {
	ext := strings.ToLower(filepath.Ext(path))
	if ext != ".jpg" && ext != ".jpeg" {
		return ""
	}

	stem := strings.TrimSuffix(path, filepath.Ext(path))
	for _, candidate := range []string{stem + ".HEIC", stem + ".heic"} {
		if info, err := os.Stat(candidate); err == nil && info.Mode().IsRegular() {
			return candidate
		}
	}
	return ""
}

// NewReader builds the named reader: "identify", "exiftool" or "exif". The
// returned closer releases any long-lived process.
func NewReader(name, identifyCommand string, timeout time.Duration) (Reader, io.Closer, error) {
	switch name {
	case "identify":
		if identifyCommand == "" {
			identifyCommand = DefaultIdentifyCommand
		}
		r, err := NewIdentifyReader(identifyCommand, timeout)
		if err != nil {
			return nil, nil, err
		}
		return r, nopCloser{}, nil
	case "exiftool":
		r, err := NewExiftoolReader()
		if err != nil {
			return nil, nil, err
		}
		return r, r, nil
	case "exif":
		return ExifReader{}, nopCloser{}, nil
	default:
		return nil, nil, fmt.Errorf("unknown metadata reader %q", name)
	}
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
