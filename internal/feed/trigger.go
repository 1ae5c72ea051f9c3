package feed

import (
	"context"
	"log/slog"
)

// ScrollTrigger turns sentinel visibility events into Advance calls.
type ScrollTrigger struct {
	ctrl   *Controller
	logger *slog.Logger
}

// NewScrollTrigger attaches a trigger to ctrl.
func NewScrollTrigger(ctrl *Controller, logger *slog.Logger) *ScrollTrigger {
	return &ScrollTrigger{ctrl: ctrl, logger: logger}
}

// Observe handles one visibility report. Only a fully visible sentinel
// (ratio >= 1) counts. It reports whether a fetch was issued.
func (t *ScrollTrigger) Observe(ctx context.Context, ratio float64) bool {
	if ratio < 1 {
		return false
	}
	issued, err := t.ctrl.Advance(ctx)
	if err != nil {
		// already recorded on the controller
		t.logger.Debug("scroll advance failed", "error", err)
	}
	return issued
}

// Watch consumes visibility events until ctx is done or events is closed.
func (t *ScrollTrigger) Watch(ctx context.Context, events <-chan float64) {
	for {
		select {
		case <-ctx.Done():
			return
		case ratio, ok := <-events:
			if !ok {
				return
			}
			t.Observe(ctx, ratio)
		}
	}
}
