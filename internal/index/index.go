// Package index keeps a history of cache builder runs and the photos each
// run resolved. It is optional; the JSON cache works without it.
package index

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/choiway/contactsheet/internal/photo"
)

// ErrUnknownRun is returned when a run id is not in the index.
var ErrUnknownRun = errors.New("unknown run")

const (
	StatusStarted   = "started"
	StatusCompleted = "completed"
)

// Run is one cache builder pass over a directory.
type Run struct {
	ID          string
	Dir         string
	Status      string
	PhotoCount  int
	StartedAt   time.Time
	CompletedAt time.Time // zero while the run is in progress
}

type Store interface {
	BeginRun(ctx context.Context, dir string) (Run, error)
	RecordPhoto(ctx context.Context, runID string, rec photo.Record) error
	CompleteRun(ctx context.Context, runID string, photoCount int) error
	Runs(ctx context.Context, limit int) ([]Run, error)
	Photos(ctx context.Context, runID string) ([]photo.Record, error)
	Close() error
}

// ErrUnsupportedDSN is returned for URL DSNs naming another database.
var ErrUnsupportedDSN = errors.New("unsupported index dsn")

var urlScheme = regexp.MustCompile(`^([A-Za-z][A-Za-z0-9+.\-]*)://`)

// Open picks the backend from the DSN: postgres:// and postgresql:// URLs go
// to PostgreSQL, file: URIs and plain paths to SQLite. Any other URL is
// rejected.
func Open(ctx context.Context, dsn string) (Store, error) {
	if IsPostgres(dsn) {
		return OpenPostgres(ctx, dsn)
	}
	if m := urlScheme.FindStringSubmatch(dsn); m != nil && m[1] != "file" {
		return nil, fmt.Errorf("%w: %s:// (use postgres:// or a sqlite file path)", ErrUnsupportedDSN, m[1])
	}
	return OpenSQLite(dsn)
}

func IsPostgres(dsn string) bool {
	return strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://")
}
