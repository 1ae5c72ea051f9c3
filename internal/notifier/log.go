// Package notifier delivers saved-job notices (the toasts of the web client)
// to a log or a Slack channel.
package notifier

import (
	"context"
	"errors"
	"log/slog"

	"github.com/jobtrace/jobtrace/internal/model"
)

var (
	_ model.Notifier = (*LogNotifier)(nil)
	_ model.Notifier = Multi(nil)
)

// LogNotifier writes notices to the given logger.
type LogNotifier struct {
	logger *slog.Logger
}

// NewLogNotifier returns a notifier that logs each notice via slog.
func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

// Notify logs destructive notices at warn level and the rest at info. It
// never fails.
func (n *LogNotifier) Notify(notice model.Notice) error {
	level := slog.LevelInfo
	if notice.Level == model.NoticeDestructive {
		level = slog.LevelWarn
	}
	n.logger.Log(context.Background(), level, "notice", "title", notice.Title, "description", notice.Description)
	return nil
}

// Multi fans a notice out to every notifier and joins their errors.
type Multi []model.Notifier

// Notify delivers to all notifiers even if some fail.
func (m Multi) Notify(notice model.Notice) error {
	var errs []error
	for _, n := range m {
		if err := n.Notify(notice); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
