package cmd

import (
	"context"
	"io"
	"net/url"
	"os"

	"github.com/choiway/contactsheet/internal/config"
	"github.com/choiway/contactsheet/internal/exifdate"
	"github.com/choiway/contactsheet/internal/index"
)

// newResolver builds a resolver around the named metadata reader. Close
// the returned closer when done.
func newResolver(readerName string) (*exifdate.Resolver, io.Closer, error) {
	reader, closer, err := exifdate.NewReader(readerName, cfg.Photos.IdentifyCommand, cfg.ReaderTimeout())
	if err != nil {
		return nil, nil, err
	}

	r := exifdate.NewResolver(reader, logger)
	r.PreferHEICSibling = cfg.Photos.PreferHEICSibling
	return r, closer, nil
}

// openIndex opens the configured index. With no DSN it falls back to the
// SQLite file created by init, and returns nil when that does not exist.
func openIndex(ctx context.Context) (index.Store, error) {
	dsn := cfg.Index.DSN
	if dsn == "" {
		dsn = config.DefaultIndexPath()
		if _, err := os.Stat(dsn); err != nil {
			return nil, nil
		}
	}

	logger.WithField("dsn", redact(dsn)).Debug("Opening index")
	return index.Open(ctx, dsn)
}

// explicitIndex reports whether index.dsn was set in the config file, as
// opposed to inherited from DATABASE_URL or the init default.
func explicitIndex() bool {
	return cfg.Index.DSN != "" && !cfg.Index.FromEnv
}

// redact hides the password of a postgres URL.
func redact(dsn string) string {
	if !index.IsPostgres(dsn) {
		return dsn
	}
	u, err := url.Parse(dsn)
	if err != nil {
		return "postgres"
	}
	return u.Redacted()
}
