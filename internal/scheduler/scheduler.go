// Package scheduler keeps caches warm by refreshing them on a cron schedule.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/robfig/cron/v3"
)

// Refresher reloads one cached resource.
type Refresher interface {
	Refresh(ctx context.Context) error
}

// RefreshFunc adapts a function into a Refresher.
type RefreshFunc func(ctx context.Context) error

// Refresh calls f(ctx).
func (f RefreshFunc) Refresh(ctx context.Context) error { return f(ctx) }

// Task is a named Refresher.
type Task struct {
	Name      string
	Refresher Refresher
}

// Scheduler runs every task once at start, then on each cron tick.
type Scheduler struct {
	tasks  []Task
	spec   string
	logger *slog.Logger
}

// NewScheduler creates a scheduler for tasks. spec is a standard five-field
// cron expression or a descriptor such as "@every 10m".
func NewScheduler(tasks []Task, spec string, logger *slog.Logger) *Scheduler {
	return &Scheduler{
		tasks:  tasks,
		spec:   spec,
		logger: logger,
	}
}

// Run blocks until ctx is cancelled. It returns an error only for an
// invalid schedule.
func (s *Scheduler) Run(ctx context.Context) error {
	c := cron.New()
	if _, err := c.AddFunc(s.spec, func() { s.refreshAll(ctx) }); err != nil {
		return fmt.Errorf("invalid warm schedule %q: %w", s.spec, err)
	}

	s.logger.Info("starting cache warmer", "schedule", s.spec, "tasks", len(s.tasks))

	s.refreshAll(ctx)
	c.Start()

	<-ctx.Done()
	s.logger.Info("shutting down cache warmer")
	<-c.Stop().Done()
	return nil
}

func (s *Scheduler) refreshAll(ctx context.Context) {
	for _, t := range s.tasks {
		if ctx.Err() != nil {
			return
		}
		if err := t.Refresher.Refresh(ctx); err != nil {
			s.logger.Error("cache refresh failed", "task", t.Name, "error", err)
			continue
		}
		s.logger.Debug("cache refreshed", "task", t.Name)
	}
}
