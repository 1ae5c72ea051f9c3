package browse

import (
	"context"
	"errors"
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/jobtrace/jobtrace/internal/feed"
)

var spinnerFrames = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}

var spinnerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("33"))

// errCancelled is returned when the user interrupts a loader.
var errCancelled = errors.New("cancelled")

type loadDoneMsg struct {
	snap feed.Snapshot
	err  error
}

type spinnerTickMsg struct{}

func tick() tea.Cmd {
	return tea.Tick(80*time.Millisecond, func(time.Time) tea.Msg {
		return spinnerTickMsg{}
	})
}

type loaderModel struct {
	label   string
	timeout time.Duration
	loadFn  func(ctx context.Context) (feed.Snapshot, error)
	frame   int
	result  feed.Snapshot
	err     error
	done    bool
}

func (m loaderModel) Init() tea.Cmd {
	return tea.Batch(m.doLoad(), tick())
}

func (m loaderModel) doLoad() tea.Cmd {
	loadFn := m.loadFn
	timeout := m.timeout
	return func() tea.Msg {
		ctx := context.Background()
		if timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, timeout)
			defer cancel()
		}
		snap, err := loadFn(ctx)
		return loadDoneMsg{snap: snap, err: err}
	}
}

func (m loaderModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case loadDoneMsg:
		m.result = msg.snap
		m.err = msg.err
		m.done = true
		return m, tea.Quit
	case spinnerTickMsg:
		if m.done {
			return m, nil
		}
		m.frame = (m.frame + 1) % len(spinnerFrames)
		return m, tick()
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			m.done = true
			m.err = errCancelled
			return m, tea.Quit
		}
	}
	return m, nil
}

func (m loaderModel) View() string {
	if m.done {
		return ""
	}
	return fmt.Sprintf("%s Loading %s...\n", spinnerStyle.Render(spinnerFrames[m.frame]), m.label)
}

// RunLoader shows an inline spinner while loadFn runs. timeout <= 0 means no
// deadline.
func RunLoader(label string, timeout time.Duration, loadFn func(ctx context.Context) (feed.Snapshot, error)) (feed.Snapshot, error) {
	m := loaderModel{
		label:   label,
		timeout: timeout,
		loadFn:  loadFn,
	}
	p := tea.NewProgram(m)
	result, err := p.Run()
	if err != nil {
		return feed.Snapshot{}, err
	}
	final := result.(loaderModel)
	return final.result, final.err
}
