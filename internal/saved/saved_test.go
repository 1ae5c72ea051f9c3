package saved

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/jobtrace/jobtrace/internal/model"
	"github.com/jobtrace/jobtrace/internal/store"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type recordingNotifier struct {
	got []model.Notice
}

func (r *recordingNotifier) Notify(n model.Notice) error {
	r.got = append(r.got, n)
	return nil
}

func newService(t *testing.T) (*Service, *recordingNotifier) {
	t.Helper()
	st, err := store.NewSQLiteStore(filepath.Join(t.TempDir(), "saved.db"))
	if err != nil {
		t.Fatalf("NewSQLiteStore: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	rec := &recordingNotifier{}
	return NewService(st, st, rec, discardLogger()), rec
}

var job = model.Job{ID: "job-1", Title: "Backend Engineer", Company: "Paystack", Location: "Lagos", URL: "https://jobs.example/1"}

func TestSave_ThenDuplicate(t *testing.T) {
	svc, rec := newService(t)
	ctx := context.Background()

	n, err := svc.Save(ctx, "u1", job)
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if n != NoticeSaved {
		t.Errorf("notice = %+v, want %+v", n, NoticeSaved)
	}

	n, err = svc.Save(ctx, "u1", job)
	if !errors.Is(err, model.ErrAlreadySaved) {
		t.Fatalf("expected ErrAlreadySaved, got %v", err)
	}
	if n.Title != "Job already saved" || n.Level != model.NoticeDestructive {
		t.Errorf("unexpected duplicate notice: %+v", n)
	}

	if len(rec.got) != 2 {
		t.Fatalf("expected 2 notices delivered, got %d", len(rec.got))
	}

	list, err := svc.List(ctx, "u1")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(list) != 1 {
		t.Fatalf("expected 1 saved job, got %d", len(list))
	}
	got := list[0]
	if got.JobTitle != job.Title || got.JobCompany != job.Company || got.JobLocation != job.Location || got.JobURL != job.URL {
		t.Errorf("bookmark fields not copied: %+v", got)
	}
}

func TestUnsave_Idempotent(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	if _, err := svc.Save(ctx, "u1", job); err != nil {
		t.Fatalf("Save: %v", err)
	}
	for i := 0; i < 2; i++ {
		n, err := svc.Unsave(ctx, "u1", job.ID)
		if err != nil {
			t.Fatalf("Unsave #%d: %v", i+1, err)
		}
		if n != NoticeRemoved {
			t.Errorf("notice = %+v", n)
		}
	}
	ok, err := svc.IsSaved(ctx, "u1", job.ID)
	if err != nil {
		t.Fatalf("IsSaved: %v", err)
	}
	if ok {
		t.Error("expected job to be unsaved")
	}
}

func TestToggle(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	state, n, err := svc.Toggle(ctx, "u1", job)
	if err != nil || !state || n != NoticeSaved {
		t.Fatalf("first toggle = (%v, %+v, %v)", state, n, err)
	}

	ids, err := svc.SavedIDs(ctx, "u1")
	if err != nil {
		t.Fatalf("SavedIDs: %v", err)
	}
	if !ids[job.ID] {
		t.Errorf("expected %s in saved ids", job.ID)
	}

	state, n, err = svc.Toggle(ctx, "u1", job)
	if err != nil || state || n != NoticeRemoved {
		t.Fatalf("second toggle = (%v, %+v, %v)", state, n, err)
	}
}

func TestRequiresUser(t *testing.T) {
	svc, rec := newService(t)
	ctx := context.Background()

	if _, err := svc.Save(ctx, "", job); !errors.Is(err, model.ErrUnauthenticated) {
		t.Errorf("Save: expected ErrUnauthenticated, got %v", err)
	}
	if _, err := svc.Unsave(ctx, "", job.ID); !errors.Is(err, model.ErrUnauthenticated) {
		t.Errorf("Unsave: expected ErrUnauthenticated, got %v", err)
	}
	if _, err := svc.List(ctx, ""); !errors.Is(err, model.ErrUnauthenticated) {
		t.Errorf("List: expected ErrUnauthenticated, got %v", err)
	}
	if _, err := svc.Profile(ctx, "", "a@b.c"); !errors.Is(err, model.ErrUnauthenticated) {
		t.Errorf("Profile: expected ErrUnauthenticated, got %v", err)
	}
	if len(rec.got) != 0 {
		t.Errorf("expected no notices, got %d", len(rec.got))
	}
}

// failingStore fails every write.
type failingStore struct{}

func (failingStore) InsertSavedJob(context.Context, model.SavedJob) error { return errors.New("disk full") }
func (failingStore) DeleteSavedJob(context.Context, string, string) error { return errors.New("disk full") }
func (failingStore) ListSavedJobs(context.Context, string) ([]model.SavedJob, error) {
	return nil, nil
}

func TestStoreFailuresProduceErrorNotices(t *testing.T) {
	rec := &recordingNotifier{}
	svc := NewService(failingStore{}, nil, rec, discardLogger())
	ctx := context.Background()

	n, err := svc.Save(ctx, "u1", job)
	if err == nil || errors.Is(err, model.ErrAlreadySaved) {
		t.Fatalf("expected plain save error, got %v", err)
	}
	if n != NoticeSaveFailed {
		t.Errorf("notice = %+v", n)
	}

	n, err = svc.Unsave(ctx, "u1", job.ID)
	if err == nil {
		t.Fatal("expected remove error")
	}
	if n != NoticeRemoveFailed {
		t.Errorf("notice = %+v", n)
	}
}

func TestProfileFallsBackToEmail(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	p, err := svc.Profile(ctx, "u1", "ada@example.com")
	if err != nil {
		t.Fatalf("Profile: %v", err)
	}
	if p.DisplayName != "ada@example.com" {
		t.Errorf("DisplayName = %q, want email fallback", p.DisplayName)
	}

	svc.now = func() time.Time { return time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC) }
	if _, err := svc.UpdateProfile(ctx, "u1", "Ada"); err != nil {
		t.Fatalf("UpdateProfile: %v", err)
	}
	p, err = svc.Profile(ctx, "u1", "ada@example.com")
	if err != nil {
		t.Fatalf("Profile: %v", err)
	}
	if p.DisplayName != "Ada" {
		t.Errorf("DisplayName = %q, want Ada", p.DisplayName)
	}
	if !p.UpdatedAt.Equal(time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("UpdatedAt = %v", p.UpdatedAt)
	}
}
