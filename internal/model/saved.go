package model

import (
	"context"
	"time"
)

// SavedJob is a user's bookmark of a listing. The listing fields are copied
// at save time so the bookmark survives the listing disappearing upstream.
type SavedJob struct {
	ID          string    `json:"id"`
	UserID      string    `json:"user_id"`
	JobID       string    `json:"job_id"`
	JobTitle    string    `json:"job_title"`
	JobCompany  string    `json:"job_company"`
	JobLocation string    `json:"job_location,omitempty"`
	JobURL      string    `json:"job_url,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// Profile holds the user-editable profile fields.
type Profile struct {
	UserID      string    `json:"user_id"`
	DisplayName string    `json:"display_name"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// SavedJobStore persists bookmarks keyed by (user id, job id).
type SavedJobStore interface {
	// InsertSavedJob returns ErrAlreadySaved when the pair already exists.
	InsertSavedJob(ctx context.Context, job SavedJob) error
	// DeleteSavedJob is a no-op when the pair does not exist.
	DeleteSavedJob(ctx context.Context, userID, jobID string) error
	// ListSavedJobs returns the user's bookmarks, newest first.
	ListSavedJobs(ctx context.Context, userID string) ([]SavedJob, error)
}

// ProfileStore persists user profiles.
type ProfileStore interface {
	// GetProfile returns nil, nil when the user has no profile row.
	GetProfile(ctx context.Context, userID string) (*Profile, error)
	UpsertProfile(ctx context.Context, p Profile) error
}

// NoticeLevel distinguishes success notices from failures.
type NoticeLevel string

const (
	NoticeInfo        NoticeLevel = "info"
	NoticeDestructive NoticeLevel = "destructive"
)

// Notice is a transient, user-facing message about a persistence outcome.
type Notice struct {
	Title       string      `json:"title"`
	Description string      `json:"description"`
	Level       NoticeLevel `json:"level"`
}

// Notifier delivers notices to the user.
type Notifier interface {
	Notify(n Notice) error
}
