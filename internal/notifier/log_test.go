package notifier

import (
	"bytes"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"github.com/jobtrace/jobtrace/internal/model"
)

func TestLogNotifier_Levels(t *testing.T) {
	var buf bytes.Buffer
	n := NewLogNotifier(slog.New(slog.NewTextHandler(&buf, nil)))

	if err := n.Notify(model.Notice{Title: "Job saved!", Description: "This job has been added to your saved jobs", Level: model.NoticeInfo}); err != nil {
		t.Fatalf("Notify = %v, want nil", err)
	}
	if err := n.Notify(model.Notice{Title: "Job already saved", Level: model.NoticeDestructive}); err != nil {
		t.Fatalf("Notify = %v, want nil", err)
	}

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 log lines, got %d: %q", len(lines), buf.String())
	}
	if !strings.Contains(lines[0], "level=INFO") || !strings.Contains(lines[0], `title="Job saved!"`) {
		t.Errorf("unexpected info line: %s", lines[0])
	}
	if !strings.Contains(lines[1], "level=WARN") {
		t.Errorf("expected destructive notice at warn: %s", lines[1])
	}
}

type recordingNotifier struct {
	got []model.Notice
	err error
}

func (r *recordingNotifier) Notify(n model.Notice) error {
	r.got = append(r.got, n)
	return r.err
}

func TestMulti_DeliversToAllAndJoinsErrors(t *testing.T) {
	boom := errors.New("boom")
	a := &recordingNotifier{err: boom}
	b := &recordingNotifier{}

	err := Multi{a, b}.Notify(model.Notice{Title: "Job removed"})
	if !errors.Is(err, boom) {
		t.Errorf("expected joined error to wrap boom, got %v", err)
	}
	if len(a.got) != 1 || len(b.got) != 1 {
		t.Errorf("expected both notifiers called, got %d and %d", len(a.got), len(b.got))
	}

	if err := (Multi{}).Notify(model.Notice{}); err != nil {
		t.Errorf("empty Multi = %v, want nil", err)
	}
}
