// Package thumbnail writes downscaled web copies of the gallery photos.
package thumbnail

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync/atomic"

	"github.com/choiway/contactsheet/internal/photo"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

const (
	DefaultMaxWidth = 1200
	DefaultQuality  = 85
)

// Generator resizes every JPEG and PNG in SrcDir into DstDir under the same
// name. Images are never enlarged and existing outputs are left alone.
type Generator struct {
	SrcDir     string
	DstDir     string
	Extensions []string
	MaxWidth   int
	Quality    int
	Workers    int // 0 means one per CPU
	Logger     logrus.FieldLogger
}

type Result struct {
	Written int
	Skipped int // already present or unsupported
	Failed  int
}

func (g *Generator) Run(ctx context.Context) (Result, error) {
	names, err := photo.Scan(g.SrcDir, g.extensions())
	if err != nil {
		return Result{}, err
	}
	if err := os.MkdirAll(g.DstDir, 0o755); err != nil {
		return Result{}, fmt.Errorf("creating %s: %w", g.DstDir, err)
	}

	var written, skipped, failed atomic.Int64

	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(g.workers())
	for _, name := range names {
		if egCtx.Err() != nil {
			break
		}
		name := name
		eg.Go(func() error {
			if err := egCtx.Err(); err != nil {
				return err
			}

			log := g.Logger.WithField("file", name)
			ok, err := g.thumbnail(name)
			switch {
			case errors.Is(err, errUnsupported):
				log.Warn("Skipping unsupported format")
				skipped.Add(1)
			case err != nil:
				log.WithError(err).Warn("Could not create thumbnail")
				failed.Add(1)
			case !ok:
				log.Debug("Thumbnail exists")
				skipped.Add(1)
			default:
				log.Debug("Thumbnail written")
				written.Add(1)
			}
			return nil
		})
	}

	err = eg.Wait()
	res := Result{Written: int(written.Load()), Skipped: int(skipped.Load()), Failed: int(failed.Load())}
	if err == nil {
		err = ctx.Err()
	}
	return res, err
}

func (g *Generator) extensions() []string {
	if g.Extensions == nil {
		return photo.DefaultExtensions
	}
	return g.Extensions
}

func (g *Generator) workers() int {
	if g.Workers <= 0 {
		return runtime.NumCPU()
	}
	return g.Workers
}

func (g *Generator) maxWidth() int {
	if g.MaxWidth <= 0 {
		return DefaultMaxWidth
	}
	return g.MaxWidth
}

func (g *Generator) quality() int {
	if g.Quality <= 0 || g.Quality > 100 {
		return DefaultQuality
	}
	return g.Quality
}

var errUnsupported = errors.New("unsupported image format")

type format int

const (
	formatJPEG format = iota
	formatPNG
)

func formatOf(name string) (format, error) {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".jpg", ".jpeg":
		return formatJPEG, nil
	case ".png":
		return formatPNG, nil
	}
	return 0, errUnsupported
}

// thumbnail writes DstDir/name. It returns false when the output already
// exists.
func (g *Generator) thumbnail(name string) (bool, error) {
	kind, err := formatOf(name)
	if err != nil {
		return false, err
	}

	dst := filepath.Join(g.DstDir, name)
	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		if errors.Is(err, os.ErrExist) {
			return false, nil
		}
		return false, err
	}
	var done bool
	defer func() {
		if !done {
			out.Close()
			os.Remove(dst)
		}
	}()

	img, err := g.load(filepath.Join(g.SrcDir, name), kind)
	if err != nil {
		return false, err
	}

	if w, h := fit(img.Bounds().Dx(), img.Bounds().Dy(), g.maxWidth()); w != img.Bounds().Dx() {
		img = resizeImage(img, w, h)
	}

	switch kind {
	case formatPNG:
		err = png.Encode(out, img)
	default:
		err = jpeg.Encode(out, img, &jpeg.Options{Quality: g.quality()})
	}
	if err != nil {
		return false, fmt.Errorf("encoding: %w", err)
	}
	if err := out.Close(); err != nil {
		return false, err
	}
	done = true
	return true, nil
}

func (g *Generator) load(path string, kind format) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	if kind == formatPNG {
		return png.Decode(f)
	}

	orientation := readOrientation(f)
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return nil, err
	}
	img, err := jpeg.Decode(f)
	if err != nil {
		return nil, err
	}
	return orient(img, orientation), nil
}

// fit scales width down to maxWidth keeping the aspect ratio. Narrower
// images keep their size.
func fit(w, h, maxWidth int) (int, int) {
	if w <= maxWidth || w == 0 {
		return w, h
	}
	nh := int(float64(h)*float64(maxWidth)/float64(w) + 0.5)
	if nh < 1 {
		nh = 1
	}
	return maxWidth, nh
}
