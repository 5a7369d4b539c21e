package index

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/choiway/contactsheet/internal/photo"
	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3" // Import go-sqlite3 library
)

type SQLite struct {
	db *sql.DB
}

// OpenSQLite opens (creating if needed) the index database at path.
func OpenSQLite(path string) (*SQLite, error) {
	if err := os.MkdirAll(filepath.Dir(sqliteFile(path)), 0o755); err != nil {
		return nil, fmt.Errorf("creating index dir: %w", err)
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("opening index: %w", err)
	}
	db.SetMaxOpenConns(1)

	s := &SQLite{db: db}
	if err := s.createTables(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// sqliteFile strips the file: scheme and query of a SQLite URI.
func sqliteFile(dsn string) string {
	if !strings.HasPrefix(dsn, "file:") {
		return dsn
	}
	dsn = strings.TrimPrefix(strings.TrimPrefix(dsn, "file:"), "//")
	if i := strings.IndexByte(dsn, '?'); i >= 0 {
		dsn = dsn[:i]
	}
	return dsn
}

func (s *SQLite) createTables() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS runs (
			"id" TEXT NOT NULL PRIMARY KEY,
			"dir" TEXT NOT NULL,
			"status" TEXT NOT NULL,
			"photo_count" INTEGER NOT NULL DEFAULT 0,
			"started_at" DATETIME NOT NULL,
			"completed_at" DATETIME
		);
		CREATE TABLE IF NOT EXISTS photos (
			"id" integer NOT NULL PRIMARY KEY AUTOINCREMENT,
			"run_id" TEXT NOT NULL REFERENCES runs(id),
			"inserted_at" DATETIME NOT NULL,
			"filename" TEXT NOT NULL,
			"path" TEXT NOT NULL,
			"sha_hash" TEXT,
			"date_taken" TEXT,
			"field" TEXT
		);
		CREATE INDEX IF NOT EXISTS idx_photos_run ON photos(run_id);
	`)
	if err != nil {
		return fmt.Errorf("creating index tables: %w", err)
	}
	return nil
}

func (s *SQLite) BeginRun(ctx context.Context, dir string) (Run, error) {
	run := Run{
		ID:        uuid.NewString(),
		Dir:       dir,
		Status:    StatusStarted,
		StartedAt: time.Now().UTC(),
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO runs(id, dir, status, started_at) VALUES(?, ?, ?, ?)`,
		run.ID, run.Dir, run.Status, run.StartedAt)
	if err != nil {
		return Run{}, fmt.Errorf("inserting run: %w", err)
	}

	return run, nil
}

func (s *SQLite) RecordPhoto(ctx context.Context, runID string, rec photo.Record) error {
	if rec.InsertedAt.IsZero() {
		rec.InsertedAt = time.Now().UTC()
	}

	stmt, err := s.db.PrepareContext(ctx, `
	INSERT INTO photos(
		run_id,
		inserted_at,
		filename,
		path,
		sha_hash,
		date_taken,
		field
	) values(?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	_, err = stmt.ExecContext(ctx, runID, rec.InsertedAt, rec.Filename, rec.Path, rec.ShaHash, rec.DateTaken, rec.Field)
	if err != nil {
		return fmt.Errorf("inserting photo %s: %w", rec.Filename, err)
	}
	return nil
}

func (s *SQLite) CompleteRun(ctx context.Context, runID string, photoCount int) error {
	res, err := s.db.ExecContext(ctx, `UPDATE runs
		SET status = ?,
			photo_count = ?,
			completed_at = ?
		WHERE id = ?`, StatusCompleted, photoCount, time.Now().UTC(), runID)
	if err != nil {
		return fmt.Errorf("completing run: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrUnknownRun, runID)
	}
	return nil
}

func (s *SQLite) Runs(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, dir, status, photo_count, started_at, completed_at
		FROM runs ORDER BY started_at DESC, rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("querying runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var r Run
		var completed sql.NullTime
		if err := rows.Scan(&r.ID, &r.Dir, &r.Status, &r.PhotoCount, &r.StartedAt, &completed); err != nil {
			return nil, fmt.Errorf("scanning run: %w", err)
		}
		if completed.Valid {
			r.CompletedAt = completed.Time
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

func (s *SQLite) Photos(ctx context.Context, runID string) ([]photo.Record, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT inserted_at, filename, path, sha_hash, date_taken, field
		FROM photos WHERE run_id = ? ORDER BY id`, runID)
	if err != nil {
		return nil, fmt.Errorf("querying photos: %w", err)
	}
	defer rows.Close()

	var recs []photo.Record
	for rows.Next() {
		var rec photo.Record
		var sha, date, field sql.NullString
		if err := rows.Scan(&rec.InsertedAt, &rec.Filename, &rec.Path, &sha, &date, &field); err != nil {
			return nil, fmt.Errorf("scanning photo: %w", err)
		}
		rec.ShaHash, rec.DateTaken, rec.Field = sha.String, date.String, field.String
		recs = append(recs, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if len(recs) == 0 {
		var n int
		if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM runs WHERE id = ?`, runID).Scan(&n); err != nil {
			return nil, fmt.Errorf("looking up run: %w", err)
		}
		if n == 0 {
			return nil, fmt.Errorf("%w: %s", ErrUnknownRun, runID)
		}
	}
	return recs, nil
}

func (s *SQLite) Close() error {
	return s.db.Close()
}
