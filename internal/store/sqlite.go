// Package store persists saved jobs and profiles in SQLite or Postgres.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/jobtrace/jobtrace/internal/model"
)

var (
	_ model.SavedJobStore = (*SQLiteStore)(nil)
	_ model.ProfileStore  = (*SQLiteStore)(nil)
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS saved_jobs (
	id           TEXT PRIMARY KEY,
	user_id      TEXT NOT NULL,
	job_id       TEXT NOT NULL,
	job_title    TEXT NOT NULL,
	job_company  TEXT NOT NULL,
	job_location TEXT NOT NULL DEFAULT '',
	job_url      TEXT NOT NULL DEFAULT '',
	created_at   INTEGER NOT NULL,
	UNIQUE (user_id, job_id)
);
CREATE TABLE IF NOT EXISTS profiles (
	user_id      TEXT PRIMARY KEY,
	display_name TEXT NOT NULL DEFAULT '',
	updated_at   INTEGER NOT NULL
);`

// SQLiteStore keeps saved jobs and profiles in a local SQLite file.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (or creates) the database at dbPath and ensures the
// tables exist.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite db: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging sqlite db: %w", err)
	}

	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating tables: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// InsertSavedJob records a bookmark. A duplicate (user, job) pair leaves the
// table untouched and returns model.ErrAlreadySaved.
func (s *SQLiteStore) InsertSavedJob(ctx context.Context, job model.SavedJob) error {
	job = withDefaults(job)
	res, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO saved_jobs
			(id, user_id, job_id, job_title, job_company, job_location, job_url, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		job.ID, job.UserID, job.JobID, job.JobTitle, job.JobCompany, job.JobLocation, job.JobURL,
		job.CreatedAt.UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("saving job %s for %s: %w", job.JobID, job.UserID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("saving job %s for %s: %w", job.JobID, job.UserID, err)
	}
	if n == 0 {
		return model.ErrAlreadySaved
	}
	return nil
}

// DeleteSavedJob removes a bookmark if present.
func (s *SQLiteStore) DeleteSavedJob(ctx context.Context, userID, jobID string) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM saved_jobs WHERE user_id = ? AND job_id = ?", userID, jobID)
	if err != nil {
		return fmt.Errorf("removing job %s for %s: %w", jobID, userID, err)
	}
	return nil
}

// ListSavedJobs returns the user's bookmarks, newest first.
func (s *SQLiteStore) ListSavedJobs(ctx context.Context, userID string) ([]model.SavedJob, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, user_id, job_id, job_title, job_company, job_location, job_url, created_at
		FROM saved_jobs WHERE user_id = ?
		ORDER BY created_at DESC, rowid DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("listing saved jobs for %s: %w", userID, err)
	}
	defer rows.Close()

	var out []model.SavedJob
	for rows.Next() {
		var (
			j       model.SavedJob
			created int64
		)
		if err := rows.Scan(&j.ID, &j.UserID, &j.JobID, &j.JobTitle, &j.JobCompany, &j.JobLocation, &j.JobURL, &created); err != nil {
			return nil, fmt.Errorf("scanning saved job: %w", err)
		}
		j.CreatedAt = time.Unix(0, created).UTC()
		out = append(out, j)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("listing saved jobs for %s: %w", userID, err)
	}
	return out, nil
}

// GetProfile returns the user's profile, or nil if none was written.
func (s *SQLiteStore) GetProfile(ctx context.Context, userID string) (*model.Profile, error) {
	var (
		p       model.Profile
		updated int64
	)
	err := s.db.QueryRowContext(ctx,
		"SELECT user_id, display_name, updated_at FROM profiles WHERE user_id = ?", userID,
	).Scan(&p.UserID, &p.DisplayName, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("loading profile for %s: %w", userID, err)
	}
	p.UpdatedAt = time.Unix(0, updated).UTC()
	return &p, nil
}

// UpsertProfile writes the display name, creating the row if needed.
func (s *SQLiteStore) UpsertProfile(ctx context.Context, p model.Profile) error {
	if p.UpdatedAt.IsZero() {
		p.UpdatedAt = time.Now()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO profiles (user_id, display_name, updated_at) VALUES (?, ?, ?)
		ON CONFLICT (user_id) DO UPDATE SET
			display_name = excluded.display_name,
			updated_at = excluded.updated_at`,
		p.UserID, p.DisplayName, p.UpdatedAt.UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("saving profile for %s: %w", p.UserID, err)
	}
	return nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func withDefaults(job model.SavedJob) model.SavedJob {
	if job.ID == "" {
		job.ID = uuid.NewString()
	}
	if job.CreatedAt.IsZero() {
		job.CreatedAt = time.Now()
	}
	return job
}
