// Package saved implements bookmarking and profile reads on top of the
// persistence interfaces, producing the notices the user sees.
package saved

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/jobtrace/jobtrace/internal/model"
)

// Notices shown for each outcome.
var (
	NoticeSaved        = model.Notice{Title: "Job saved!", Description: "This job has been added to your saved jobs", Level: model.NoticeInfo}
	NoticeAlreadySaved = model.Notice{Title: "Job already saved", Description: "This job is already in your saved jobs", Level: model.NoticeDestructive}
	NoticeSaveFailed   = model.Notice{Title: "Error saving job", Description: "Please try again later.", Level: model.NoticeDestructive}
	NoticeRemoved      = model.Notice{Title: "Job removed", Description: "Job has been removed from your saved jobs.", Level: model.NoticeInfo}
	NoticeRemoveFailed = model.Notice{Title: "Error removing job", Description: "Please try again later.", Level: model.NoticeDestructive}
)

// Service manages one store's bookmarks and profiles.
type Service struct {
	jobs     model.SavedJobStore
	profiles model.ProfileStore
	notifier model.Notifier
	logger   *slog.Logger
	now      func() time.Time
}

// NewService wires the stores and notifier. notifier may be nil.
func NewService(jobs model.SavedJobStore, profiles model.ProfileStore, notifier model.Notifier, logger *slog.Logger) *Service {
	return &Service{
		jobs:     jobs,
		profiles: profiles,
		notifier: notifier,
		logger:   logger,
		now:      time.Now,
	}
}

// Save bookmarks job for userID. A repeat save returns model.ErrAlreadySaved.
func (s *Service) Save(ctx context.Context, userID string, job model.Job) (model.Notice, error) {
	if userID == "" {
		return model.Notice{}, model.ErrUnauthenticated
	}

	err := s.jobs.InsertSavedJob(ctx, model.SavedJob{
		ID:          uuid.NewString(),
		UserID:      userID,
		JobID:       job.ID,
		JobTitle:    job.Title,
		JobCompany:  job.Company,
		JobLocation: job.Location,
		JobURL:      job.URL,
		CreatedAt:   s.now(),
	})
	switch {
	case errors.Is(err, model.ErrAlreadySaved):
		return s.notify(NoticeAlreadySaved), err
	case err != nil:
		s.logger.Error("save job failed", "user", userID, "job", job.ID, "error", err)
		return s.notify(NoticeSaveFailed), fmt.Errorf("save job %s: %w", job.ID, err)
	}
	return s.notify(NoticeSaved), nil
}

// Unsave removes the bookmark. Removing a missing bookmark succeeds.
func (s *Service) Unsave(ctx context.Context, userID, jobID string) (model.Notice, error) {
	if userID == "" {
		return model.Notice{}, model.ErrUnauthenticated
	}

	if err := s.jobs.DeleteSavedJob(ctx, userID, jobID); err != nil {
		s.logger.Error("remove job failed", "user", userID, "job", jobID, "error", err)
		return s.notify(NoticeRemoveFailed), fmt.Errorf("remove job %s: %w", jobID, err)
	}
	return s.notify(NoticeRemoved), nil
}

// Toggle saves job if it is not bookmarked and removes it otherwise. It
// reports the resulting state.
func (s *Service) Toggle(ctx context.Context, userID string, job model.Job) (bool, model.Notice, error) {
	isSaved, err := s.IsSaved(ctx, userID, job.ID)
	if err != nil {
		return false, model.Notice{}, err
	}
	if isSaved {
		n, err := s.Unsave(ctx, userID, job.ID)
		return err != nil, n, err
	}
	n, err := s.Save(ctx, userID, job)
	if errors.Is(err, model.ErrAlreadySaved) {
		return true, n, err
	}
	return err == nil, n, err
}

// List returns the user's bookmarks, newest first.
func (s *Service) List(ctx context.Context, userID string) ([]model.SavedJob, error) {
	if userID == "" {
		return nil, model.ErrUnauthenticated
	}
	jobs, err := s.jobs.ListSavedJobs(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list saved jobs: %w", err)
	}
	return jobs, nil
}

// IsSaved reports whether userID has bookmarked jobID.
func (s *Service) IsSaved(ctx context.Context, userID, jobID string) (bool, error) {
	jobs, err := s.List(ctx, userID)
	if err != nil {
		return false, err
	}
	for _, j := range jobs {
		if j.JobID == jobID {
			return true, nil
		}
	}
	return false, nil
}

// SavedIDs returns the set of job ids userID has bookmarked.
func (s *Service) SavedIDs(ctx context.Context, userID string) (map[string]bool, error) {
	jobs, err := s.List(ctx, userID)
	if err != nil {
		return nil, err
	}
	ids := make(map[string]bool, len(jobs))
	for _, j := range jobs {
		ids[j.JobID] = true
	}
	return ids, nil
}

// Profile returns the user's profile. With no stored row, the display name
// falls back to email.
func (s *Service) Profile(ctx context.Context, userID, email string) (model.Profile, error) {
	if userID == "" {
		return model.Profile{}, model.ErrUnauthenticated
	}
	p, err := s.profiles.GetProfile(ctx, userID)
	if err != nil {
		return model.Profile{}, fmt.Errorf("load profile: %w", err)
	}
	if p == nil || p.DisplayName == "" {
		return model.Profile{UserID: userID, DisplayName: email}, nil
	}
	return *p, nil
}

// UpdateProfile stores a new display name.
func (s *Service) UpdateProfile(ctx context.Context, userID, displayName string) (model.Profile, error) {
	if userID == "" {
		return model.Profile{}, model.ErrUnauthenticated
	}
	p := model.Profile{UserID: userID, DisplayName: displayName, UpdatedAt: s.now()}
	if err := s.profiles.UpsertProfile(ctx, p); err != nil {
		return model.Profile{}, fmt.Errorf("update profile: %w", err)
	}
	return p, nil
}

func (s *Service) notify(n model.Notice) model.Notice {
	if s.notifier == nil {
		return n
	}
	if err := s.notifier.Notify(n); err != nil {
		s.logger.Warn("notice delivery failed", "title", n.Title, "error", err)
	}
	return n
}
