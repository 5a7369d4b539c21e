package gallery

import (
	"context"
	"path/filepath"

	"github.com/choiway/contactsheet/internal/exifdate"
	"github.com/choiway/contactsheet/internal/metadata"
)

// DateSource supplies a capture date for an image path. ok is false when
// the source has nothing for the file and the caller should fall back to
// the modification time.
type DateSource interface {
	Date(ctx context.Context, path string) (date string, ok bool)
}

// CacheSource answers from a cache loaded once at startup. It never
// touches the image itself.
type CacheSource struct {
	Cache metadata.Cache
}

func (s CacheSource) Date(_ context.Context, path string) (string, bool) {
	return s.Cache.Date(filepath.Base(path))
}

// LiveSource reads metadata on every request.
type LiveSource struct {
	Resolver *exifdate.Resolver
}

func (s LiveSource) Date(ctx context.Context, path string) (string, bool) {
	return s.Resolver.Resolve(ctx, path)
}
