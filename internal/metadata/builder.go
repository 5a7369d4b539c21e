package metadata

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"

	"github.com/choiway/contactsheet/internal/exifdate"
	"github.com/choiway/contactsheet/internal/index"
	"github.com/choiway/contactsheet/internal/photo"
	"github.com/fatih/color"
	"github.com/sirupsen/logrus"
)

// Builder regenerates the cache from scratch: every run re-reads every
// image in Dir and overwrites Output.
type Builder struct {
	Dir        string
	Extensions []string
	Output     string
	Resolver   *exifdate.Resolver
	Index      index.Store // optional
	Out        io.Writer
	Logger     logrus.FieldLogger
}

type Result struct {
	Scanned int
	Dated   int
	Cache   Cache
	RunID   string
}

var (
	okMark   = color.New(color.FgGreen).SprintFunc()
	warnMark = color.New(color.FgYellow).SprintFunc()
)

func (b *Builder) Run(ctx context.Context) (Result, error) {
	out := b.Out
	if out == nil {
		out = io.Discard
	}

	fmt.Fprintf(out, "Scanning %s for photos...\n\n", b.Dir)

	names, err := photo.Scan(b.Dir, b.Extensions)
	if err != nil {
		return Result{}, err
	}
	fmt.Fprintf(out, "Found %d photos to process\n\n", len(names))

	var run index.Run
	if b.Index != nil {
		if run, err = b.Index.BeginRun(ctx, b.Dir); err != nil {
			return Result{}, err
		}
	}

	cache := Cache{}
	for i, name := range names {
		if err := ctx.Err(); err != nil {
			return Result{}, err
		}

		path := filepath.Join(b.Dir, name)
		fmt.Fprintf(out, "[%d/%d] Processing %s...\n", i+1, len(names), name)

		m, err := b.Resolver.Lookup(ctx, path)
		switch {
		case err == nil:
			cache[name] = m.Date
			fmt.Fprintf(out, "  %s Date: %s\n", okMark("OK"), m.Date)
		case errors.Is(err, exifdate.ErrNoDate):
			fmt.Fprintf(out, "  %s No EXIF date found\n", warnMark("WARN"))
		default:
			b.Logger.WithError(err).WithField("file", name).Warn("Could not read EXIF")
			fmt.Fprintf(out, "  %s No EXIF date found\n", warnMark("WARN"))
		}

		if b.Index != nil {
			if err := b.record(ctx, run.ID, name, path, m); err != nil {
				return Result{}, err
			}
		}
	}

	if err := WriteCache(b.Output, cache); err != nil {
		return Result{}, err
	}

	if b.Index != nil {
		if err := b.Index.CompleteRun(ctx, run.ID, len(cache)); err != nil {
			return Result{}, err
		}
	}

	fmt.Fprintf(out, "\nMetadata written to %s\n", b.Output)
	fmt.Fprintf(out, "Total photos processed: %d\n", len(cache))

	return Result{Scanned: len(names), Dated: len(cache), Cache: cache, RunID: run.ID}, nil
}

func (b *Builder) record(ctx context.Context, runID, name, path string, m exifdate.Match) error {
	sha, err := photo.HashFile(path)
	if err != nil {
		b.Logger.WithError(err).WithField("file", name).Warn("Could not hash file")
	}

	return b.Index.RecordPhoto(ctx, runID, photo.Record{
		Filename:  name,
		Path:      path,
		ShaHash:   sha,
		DateTaken: m.Date,
		Field:     m.Field,
	})
}
