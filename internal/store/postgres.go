package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/jobtrace/jobtrace/internal/model"
)

var (
	_ model.SavedJobStore = (*PostgresStore)(nil)
	_ model.ProfileStore  = (*PostgresStore)(nil)
)

// uniqueViolation is the SQLSTATE for a unique constraint conflict.
const uniqueViolation = "23505"

const postgresSchema = `
CREATE TABLE IF NOT EXISTS saved_jobs (
	id           UUID PRIMARY KEY,
	user_id      TEXT NOT NULL,
	job_id       TEXT NOT NULL,
	job_title    TEXT NOT NULL,
	job_company  TEXT NOT NULL,
	job_location TEXT NOT NULL DEFAULT '',
	job_url      TEXT NOT NULL DEFAULT '',
	created_at   TIMESTAMPTZ NOT NULL DEFAULT now(),
	UNIQUE (user_id, job_id)
);
CREATE TABLE IF NOT EXISTS profiles (
	user_id      TEXT PRIMARY KEY,
	display_name TEXT NOT NULL DEFAULT '',
	updated_at   TIMESTAMPTZ NOT NULL DEFAULT now()
);`

// PostgresStore keeps saved jobs and profiles in Postgres.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore connects to dsn, verifies the connection and ensures the
// tables exist.
func NewPostgresStore(ctx context.Context, dsn string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("opening postgres pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging postgres: %w", err)
	}

	if _, err := pool.Exec(ctx, postgresSchema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("creating tables: %w", err)
	}

	return &PostgresStore{pool: pool}, nil
}

// InsertSavedJob records a bookmark. A duplicate (user, job) pair returns
// model.ErrAlreadySaved.
func (s *PostgresStore) InsertSavedJob(ctx context.Context, job model.SavedJob) error {
	job = withDefaults(job)
	_, err := s.pool.Exec(ctx,
		`INSERT INTO saved_jobs
			(id, user_id, job_id, job_title, job_company, job_location, job_url, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		job.ID, job.UserID, job.JobID, job.JobTitle, job.JobCompany, job.JobLocation, job.JobURL, job.CreatedAt,
	)
	if isUniqueViolation(err) {
		return model.ErrAlreadySaved
	}
	if err != nil {
		return fmt.Errorf("saving job %s for %s: %w", job.JobID, job.UserID, err)
	}
	return nil
}

// DeleteSavedJob removes a bookmark if present.
func (s *PostgresStore) DeleteSavedJob(ctx context.Context, userID, jobID string) error {
	_, err := s.pool.Exec(ctx, "DELETE FROM saved_jobs WHERE user_id = $1 AND job_id = $2", userID, jobID)
	if err != nil {
		return fmt.Errorf("removing job %s for %s: %w", jobID, userID, err)
	}
	return nil
}

// ListSavedJobs returns the user's bookmarks, newest first.
func (s *PostgresStore) ListSavedJobs(ctx context.Context, userID string) ([]model.SavedJob, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id::text, user_id, job_id, job_title, job_company, job_location, job_url, created_at
		FROM saved_jobs WHERE user_id = $1
		ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("listing saved jobs for %s: %w", userID, err)
	}

	out, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (model.SavedJob, error) {
		var j model.SavedJob
		err := row.Scan(&j.ID, &j.UserID, &j.JobID, &j.JobTitle, &j.JobCompany, &j.JobLocation, &j.JobURL, &j.CreatedAt)
		return j, err
	})
	if err != nil {
		return nil, fmt.Errorf("listing saved jobs for %s: %w", userID, err)
	}
	return out, nil
}

// GetProfile returns the user's profile, or nil if none was written.
func (s *PostgresStore) GetProfile(ctx context.Context, userID string) (*model.Profile, error) {
	var p model.Profile
	err := s.pool.QueryRow(ctx,
		"SELECT user_id, display_name, updated_at FROM profiles WHERE user_id = $1", userID,
	).Scan(&p.UserID, &p.DisplayName, &p.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("loading profile for %s: %w", userID, err)
	}
	return &p, nil
}

// UpsertProfile writes the display name, creating the row if needed.
func (s *PostgresStore) UpsertProfile(ctx context.Context, p model.Profile) error {
	if p.UpdatedAt.IsZero() {
		p.UpdatedAt = time.Now()
	}
	_, err := s.pool.Exec(ctx,
		`INSERT INTO profiles (user_id, display_name, updated_at) VALUES ($1, $2, $3)
		ON CONFLICT (user_id) DO UPDATE SET
			display_name = EXCLUDED.display_name,
			updated_at = EXCLUDED.updated_at`,
		p.UserID, p.DisplayName, p.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("saving profile for %s: %w", p.UserID, err)
	}
	return nil
}

// Close releases the pool.
func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}
