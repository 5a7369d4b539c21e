package index

import (
	"context"
	"fmt"
	"time"

	"github.com/choiway/contactsheet/internal/photo"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v4/pgxpool"
)

type Postgres struct {
	pool *pgxpool.Pool
}

// OpenPostgres connects to dsn (usually DATABASE_URL) and creates the
// tables if they are missing.
func OpenPostgres(ctx context.Context, dsn string) (*Postgres, error) {
	pool, err := pgxpool.Connect(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("unable to connect to database: %w", err)
	}

	p := &Postgres{pool: pool}
	if err := p.createTables(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return p, nil
}

func (p *Postgres) createTables(ctx context.Context) error {
	_, err := p.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS runs (
			id TEXT PRIMARY KEY,
			dir TEXT NOT NULL,
			status TEXT NOT NULL,
			photo_count INTEGER NOT NULL DEFAULT 0,
			started_at TIMESTAMPTZ NOT NULL,
			completed_at TIMESTAMPTZ
		);
		CREATE TABLE IF NOT EXISTS photos (
			id BIGSERIAL PRIMARY KEY,
			run_id TEXT NOT NULL REFERENCES runs(id),
			inserted_at TIMESTAMPTZ NOT NULL,
			filename TEXT NOT NULL,
			path TEXT NOT NULL,
			sha_hash TEXT,
			date_taken TEXT,
			field TEXT
		);
		CREATE INDEX IF NOT EXISTS idx_photos_run ON photos(run_id);
	`)
	if err != nil {
		return fmt.Errorf("creating index tables: %w", err)
	}
	return nil
}

func (p *Postgres) BeginRun(ctx context.Context, dir string) (Run, error) {
	run := Run{
		ID:        uuid.NewString(),
		Dir:       dir,
		Status:    StatusStarted,
		StartedAt: time.Now().UTC(),
	}

	_, err := p.pool.Exec(ctx,
		`INSERT INTO runs(id, dir, status, started_at) VALUES($1, $2, $3, $4)`,
		run.ID, run.Dir, run.Status, run.StartedAt)
	if err != nil {
		return Run{}, fmt.Errorf("inserting run: %w", err)
	}
	return run, nil
}

func (p *Postgres) RecordPhoto(ctx context.Context, runID string, rec photo.Record) error {
	if rec.InsertedAt.IsZero() {
		rec.InsertedAt = time.Now().UTC()
	}

	_, err := p.pool.Exec(ctx, `
		INSERT INTO photos(run_id, inserted_at, filename, path, sha_hash, date_taken, field)
		VALUES($1, $2, $3, $4, $5, $6, $7)`,
		runID, rec.InsertedAt, rec.Filename, rec.Path, rec.ShaHash, rec.DateTaken, rec.Field)
	if err != nil {
		return fmt.Errorf("inserting photo %s: %w", rec.Filename, err)
	}
	return nil
}

func (p *Postgres) CompleteRun(ctx context.Context, runID string, photoCount int) error {
	tag, err := p.pool.Exec(ctx, `UPDATE runs
		SET status = $1, photo_count = $2, completed_at = $3
		WHERE id = $4`, StatusCompleted, photoCount, time.Now().UTC(), runID)
	if err != nil {
		return fmt.Errorf("completing run: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: %s", ErrUnknownRun, runID)
	}
	return nil
}

func (p *Postgres) Runs(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := p.pool.Query(ctx, `
		SELECT id, dir, status, photo_count, started_at, completed_at
		FROM runs ORDER BY started_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("querying runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var r Run
		var completed *time.Time
		if err := rows.Scan(&r.ID, &r.Dir, &r.Status, &r.PhotoCount, &r.StartedAt, &completed); err != nil {
			return nil, fmt.Errorf("scanning run: %w", err)
		}
		if completed != nil {
			r.CompletedAt = *completed
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

func (p *Postgres) Photos(ctx context.Context, runID string) ([]photo.Record, error) {
	rows, err := p.pool.Query(ctx, `
		SELECT inserted_at, filename, path, COALESCE(sha_hash, ''), COALESCE(date_taken, ''), COALESCE(field, '')
		FROM photos WHERE run_id = $1 ORDER BY id`, runID)
	if err != nil {
		return nil, fmt.Errorf("querying photos: %w", err)
	}
	defer rows.Close()

	var recs []photo.Record
	for rows.Next() {
		var rec photo.Record
		if err := rows.Scan(&rec.InsertedAt, &rec.Filename, &rec.Path, &rec.ShaHash, &rec.DateTaken, &rec.Field); err != nil {
			return nil, fmt.Errorf("scanning photo: %w", err)
		}
		recs = append(recs, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if len(recs) == 0 {
		var exists bool
		if err := p.pool.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM runs WHERE id = $1)`, runID).Scan(&exists); err != nil {
			return nil, fmt.Errorf("looking up run: %w", err)
		}
		if !exists {
			return nil, fmt.Errorf("%w: %s", ErrUnknownRun, runID)
		}
	}
	return recs, nil
}

func (p *Postgres) Close() error {
	p.pool.Close()
	return nil
}
