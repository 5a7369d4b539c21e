package exifdate

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/rwcarlsen/goexif/exif"
	"github.com/rwcarlsen/goexif/mknote"
	"github.com/rwcarlsen/goexif/tiff"
)

var registerMakerNotes sync.Once

var goexifFields = map[string]exif.FieldName{
	DateTimeOriginal:  exif.DateTimeOriginal,
	DateTimeDigitized: exif.DateTimeDigitized,
	DateTime:          exif.DateTime,
}

// ExifReader decodes EXIF in-process with goexif. It handles JPEG and TIFF
// containers; anything else fails to decode.
type ExifReader struct{}

func (ExifReader) Read(ctx context.Context, path string) (Fields, error) {
	registerMakerNotes.Do(func() {
		// Nikon and Canon maker notes
		exif.RegisterParsers(mknote.All...)
	})

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	x, err := exif.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decoding exif: %w", err)
	}

	fields := Fields{}
	for name, field := range goexifFields {
		tag, err := x.Get(field)
		if err != nil || tag.Format() != tiff.StringVal {
			continue
		}
		val, err := tag.StringVal()
		if err != nil {
			continue
		}
		fields[name] = strings.TrimRight(val, "\x00")
	}

	return fields, nil
}
