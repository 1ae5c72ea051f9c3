package server

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jobtrace/jobtrace/internal/feed"
)

// FeedFactory builds a fresh controller for a new session.
type FeedFactory func() *feed.Controller

type session struct {
	ctrl     *feed.Controller
	trigger  *feed.ScrollTrigger
	lastUsed time.Time
}

// Registry tracks live feed sessions by id.
type Registry struct {
	mu       sync.Mutex
	sessions map[string]*session
	newFeed  FeedFactory
	newTrig  func(*feed.Controller) *feed.ScrollTrigger
	idle     time.Duration
	now      func() time.Time
}

// NewRegistry creates an empty registry. Sessions never expire until
// SetIdleTimeout is called.
func NewRegistry(newFeed FeedFactory, newTrigger func(*feed.Controller) *feed.ScrollTrigger) *Registry {
	return &Registry{
		sessions: make(map[string]*session),
		newFeed:  newFeed,
		newTrig:  newTrigger,
		now:      time.Now,
	}
}

// SetIdleTimeout makes Sweep close sessions not used for d. Zero disables
// expiry.
func (r *Registry) SetIdleTimeout(d time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.idle = d
}

// create starts a session and returns its id.
func (r *Registry) create() (string, *session) {
	ctrl := r.newFeed()
	s := &session{ctrl: ctrl, trigger: r.newTrig(ctrl)}
	id := uuid.NewString()

	r.mu.Lock()
	s.lastUsed = r.now()
	r.sessions[id] = s
	r.mu.Unlock()
	return id, s
}

// get returns the session for id and marks it used.
func (r *Registry) get(id string) (*session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[id]
	if ok {
		s.lastUsed = r.now()
	}
	return s, ok
}

// remove tears down the session for id. It reports whether it existed.
func (r *Registry) remove(id string) bool {
	r.mu.Lock()
	s, ok := r.sessions[id]
	delete(r.sessions, id)
	r.mu.Unlock()

	if ok {
		s.ctrl.Close()
	}
	return ok
}

// Sweep closes sessions idle for at least the idle timeout and returns how
// many it closed.
func (r *Registry) Sweep() int {
	r.mu.Lock()
	if r.idle <= 0 {
		r.mu.Unlock()
		return 0
	}
	cutoff := r.now().Add(-r.idle)
	var expired []*session
	for id, s := range r.sessions {
		if !s.lastUsed.After(cutoff) {
			expired = append(expired, s)
			delete(r.sessions, id)
		}
	}
	r.mu.Unlock()

	for _, s := range expired {
		s.ctrl.Close()
	}
	return len(expired)
}

// runSweeper calls Sweep every half idle period until ctx is done.
func (r *Registry) runSweeper(ctx context.Context, logger *slog.Logger) {
	r.mu.Lock()
	idle := r.idle
	r.mu.Unlock()
	if idle <= 0 {
		return
	}

	ticker := time.NewTicker(max(idle/2, time.Second))
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := r.Sweep(); n > 0 {
				logger.Info("expired idle feed sessions", "closed", n, "live", r.Len())
			}
		}
	}
}

// Len returns the number of live sessions.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// CloseAll tears down every session.
func (r *Registry) CloseAll() {
	r.mu.Lock()
	sessions := r.sessions
	r.sessions = make(map[string]*session)
	r.mu.Unlock()

	for _, s := range sessions {
		s.ctrl.Close()
	}
}
