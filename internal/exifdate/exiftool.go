package exifdate

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/barasher/go-exiftool"
)

// exiftool names the digitized and modify timestamps differently from the
// EXIF standard.
var exiftoolFields = map[string]string{
	"DateTimeOriginal": DateTimeOriginal,
	"CreateDate":       DateTimeDigitized,
	"ModifyDate":       DateTime,
}

// ExiftoolReader keeps one exiftool process open for the reader's lifetime.
type ExiftoolReader struct {
	mu sync.Mutex
	et *exiftool.Exiftool
}

func NewExiftoolReader() (*ExiftoolReader, error) {
	et, err := exiftool.NewExiftool()
	if err != nil {
		return nil, fmt.Errorf("starting exiftool: %w", err)
	}
	return &ExiftoolReader{et: et}, nil
}

func (r *ExiftoolReader) Read(ctx context.Context, path string) (Fields, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.Lock()
	infos := r.et.ExtractMetadata(path)
	r.mu.Unlock()

	if len(infos) == 0 {
		return nil, errors.New("exiftool returned no metadata")
	}
	if infos[0].Err != nil {
		return nil, fmt.Errorf("exiftool: %w", infos[0].Err)
	}

	fields := Fields{}
	for src, dst := range exiftoolFields {
		if v, err := infos[0].GetString(src); err == nil {
			fields[dst] = v
		}
	}

	return fields, nil
}

func (r *ExiftoolReader) Close() error {
	return r.et.Close()
}
