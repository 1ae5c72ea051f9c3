// Package browse is the terminal front end of a feed session: a scrolling job
// list whose trailing sentinel row pulls in the next page.
package browse

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"runtime"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/jobtrace/jobtrace/internal/feed"
	"github.com/jobtrace/jobtrace/internal/filter"
	"github.com/jobtrace/jobtrace/internal/model"
	"github.com/jobtrace/jobtrace/internal/saved"
)

// Lines per job item in the list (title + subtitle + blank separator).
const jobItemHeight = 3

type promptKind int

const (
	promptNone promptKind = iota
	promptKeyword
	promptLocation
	promptTags
)

var sortCycle = []filter.Sort{filter.SortNone, filter.SortNewest, filter.SortSalaryHigh, filter.SortSalaryLow}

var (
	borderStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("39")) // bright blue

	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("39")).
			Padding(0, 1)

	criteriaStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("245"))

	statusBarStyle = lipgloss.NewStyle().
			Padding(0, 1).
			Foreground(lipgloss.Color("252")).
			Background(lipgloss.Color("236"))

	noticeInfoStyle = lipgloss.NewStyle().
			Padding(0, 1).
			Foreground(lipgloss.Color("15")).
			Background(lipgloss.Color("28"))

	noticeDestructiveStyle = lipgloss.NewStyle().
				Padding(0, 1).
				Foreground(lipgloss.Color("15")).
				Background(lipgloss.Color("160"))

	jobTitleStyle = lipgloss.NewStyle().
			Bold(true)

	jobSubtitleStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("245"))

	selectedJobTitleStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("15")).
				Background(lipgloss.Color("24"))

	selectedJobSubtitleStyle = lipgloss.NewStyle().
					Foreground(lipgloss.Color("252")).
					Background(lipgloss.Color("24"))

	bookmarkStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("214"))

	sentinelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")).
			Italic(true)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196"))
)

// feedLoadedMsg is sent when a reset or advance completes.
type feedLoadedMsg struct {
	err error
}

// bookmarkMsg is sent when a bookmark toggle completes.
type bookmarkMsg struct {
	jobID  string
	saved  bool
	notice model.Notice
	err    error
}

type savedIDsMsg struct {
	ids map[string]bool
	err error
}

// Options configures an explore session.
type Options struct {
	// Query is the initial context and criteria.
	Query feed.Query
	// Saved enables bookmarking when non-nil and UserID is set.
	Saved  *saved.Service
	UserID string
	Logger *slog.Logger
}

type browseModel struct {
	ctx     context.Context
	ctrl    *feed.Controller
	trigger *feed.ScrollTrigger
	saved   *saved.Service
	userID  string

	snap     feed.Snapshot
	jobs     []model.Job
	selected []string
	sort     filter.Sort
	savedIDs map[string]bool
	notice   *model.Notice

	vp      viewport.Model
	input   textinput.Model
	prompt  promptKind
	cursor  int
	width   int
	height  int
	ready   bool
	loading bool
	ticking bool
	frame   int
}

func newModel(ctx context.Context, ctrl *feed.Controller, opts Options) browseModel {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	ti := textinput.New()
	ti.CharLimit = 120

	m := browseModel{
		ctx:      ctx,
		ctrl:     ctrl,
		trigger:  feed.NewScrollTrigger(ctrl, logger),
		saved:    opts.Saved,
		userID:   opts.UserID,
		selected: canonicalTags(opts.Query.Selected),
		sort:     opts.Query.Sort,
		savedIDs: make(map[string]bool),
		input:    ti,
		loading:  true,
		ticking:  true,
	}
	m.snap = ctrl.Snapshot()
	m.snap.Context = opts.Query.Context
	return m
}

func (m browseModel) Init() tea.Cmd {
	q := feed.Query{Context: m.snap.Context, Selected: m.selected, Sort: m.sort}
	return tea.Batch(m.applyCmd(q), m.loadSavedCmd(), tick())
}

func (m browseModel) canBookmark() bool {
	return m.saved != nil && m.userID != ""
}

func (m browseModel) applyCmd(q feed.Query) tea.Cmd {
	ctrl, ctx := m.ctrl, m.ctx
	return func() tea.Msg {
		return feedLoadedMsg{err: ctrl.Apply(ctx, q)}
	}
}

func (m browseModel) resetCmd(fc feed.Context) tea.Cmd {
	ctrl, ctx := m.ctrl, m.ctx
	return func() tea.Msg {
		return feedLoadedMsg{err: ctrl.Reset(ctx, fc)}
	}
}

// advanceCmd reports the sentinel row as fully visible.
func (m browseModel) advanceCmd() tea.Cmd {
	trigger, ctx := m.trigger, m.ctx
	return func() tea.Msg {
		trigger.Observe(ctx, 1)
		return feedLoadedMsg{}
	}
}

func (m browseModel) loadSavedCmd() tea.Cmd {
	if !m.canBookmark() {
		return nil
	}
	svc, ctx, userID := m.saved, m.ctx, m.userID
	return func() tea.Msg {
		ids, err := svc.SavedIDs(ctx, userID)
		return savedIDsMsg{ids: ids, err: err}
	}
}

func (m browseModel) bookmarkCmd(job model.Job) tea.Cmd {
	svc, ctx, userID := m.saved, m.ctx, m.userID
	return func() tea.Msg {
		isSaved, notice, err := svc.Toggle(ctx, userID, job)
		return bookmarkMsg{jobID: job.ID, saved: isSaved, notice: notice, err: err}
	}
}

// beginLoad marks a fetch in flight and keeps the spinner running.
func (m *browseModel) beginLoad(cmd tea.Cmd) tea.Cmd {
	m.loading = true
	m.recalcContent()
	if m.ticking {
		return cmd
	}
	m.ticking = true
	return tea.Batch(cmd, tick())
}

func (m browseModel) query() feed.Query {
	return feed.Query{Context: m.snap.Context, Selected: m.selected, Sort: m.sort}
}

func (m browseModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.recalcLayout()
		return m, m.maybeAdvance()

	case spinnerTickMsg:
		if !m.loading {
			m.ticking = false
			return m, nil
		}
		m.frame = (m.frame + 1) % len(spinnerFrames)
		m.recalcContent()
		return m, tick()

	case feedLoadedMsg:
		m.loading = false
		m.refresh()
		if msg.err != nil && m.snap.Error == "" {
			m.notice = &model.Notice{Title: "Load failed", Description: msg.err.Error(), Level: model.NoticeDestructive}
		}
		return m, m.maybeAdvance()

	case savedIDsMsg:
		if msg.err == nil {
			m.savedIDs = msg.ids
			m.recalcContent()
		}
		return m, nil

	case bookmarkMsg:
		if msg.notice.Title != "" {
			n := msg.notice
			m.notice = &n
		}
		if msg.err == nil || errors.Is(msg.err, model.ErrAlreadySaved) {
			m.savedIDs[msg.jobID] = msg.saved
		}
		m.recalcContent()
		return m, nil

	case tea.KeyMsg:
		if m.prompt != promptNone {
			return m.updatePrompt(msg)
		}
		return m.updateList(msg)
	}
	return m, nil
}

func (m browseModel) updateList(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	m.notice = nil

	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit
	case "up", "k":
		m.moveCursor(-1)
		return m, m.maybeAdvance()
	case "down", "j":
		m.moveCursor(1)
		return m, m.maybeAdvance()
	case "tab":
		q := m.query()
		if q.Source == model.SourceRegional {
			q.Source = model.SourcePrimary
		} else {
			q.Source = model.SourceRegional
		}
		m.snap.Context = q.Context
		m.cursor = 0
		return m, m.beginLoad(m.applyCmd(q))
	case "/":
		return m.openPrompt(promptKeyword, "keyword: ", m.snap.Context.Keyword)
	case "l":
		return m.openPrompt(promptLocation, "location: ", m.snap.Context.Location)
	case "t":
		return m.openPrompt(promptTags, "tags: ", strings.Join(m.selected, ", "))
	case "s":
		m.sort = nextSort(m.sort)
		m.ctrl.SetCriteria(m.selected, m.sort)
		m.refresh()
		return m, m.maybeAdvance()
	case "c":
		m.selected = nil
		m.sort = filter.SortNone
		m.ctrl.SetCriteria(nil, filter.SortNone)
		m.refresh()
		return m, nil
	case "r":
		if m.loading {
			return m, nil
		}
		m.cursor = 0
		return m, m.beginLoad(m.resetCmd(m.snap.Context))
	case "b":
		job, ok := m.current()
		if !ok || !m.canBookmark() {
			return m, nil
		}
		return m, m.bookmarkCmd(job)
	case "o", "enter":
		if job, ok := m.current(); ok && job.Clickable() {
			openURL(job.URL)
		}
		return m, nil
	}

	// Forward paging keys to the viewport.
	var cmd tea.Cmd
	m.vp, cmd = m.vp.Update(msg)
	return m, tea.Batch(cmd, m.maybeAdvance())
}

func (m browseModel) openPrompt(kind promptKind, label, value string) (tea.Model, tea.Cmd) {
	m.prompt = kind
	m.input.Prompt = label
	m.input.SetValue(value)
	m.input.CursorEnd()
	return m, m.input.Focus()
}

func (m browseModel) updatePrompt(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c":
		return m, tea.Quit
	case "esc":
		m.closePrompt()
		return m, nil
	case "enter":
		kind := m.prompt
		value := strings.TrimSpace(m.input.Value())
		m.closePrompt()

		q := m.query()
		switch kind {
		case promptKeyword:
			q.Keyword = value
		case promptLocation:
			q.Location = value
		case promptTags:
			m.selected = canonicalTags(strings.Split(value, ","))
			m.ctrl.SetCriteria(m.selected, m.sort)
			m.refresh()
			return m, m.maybeAdvance()
		}
		if q.Context == m.snap.Context {
			return m, nil
		}
		m.snap.Context = q.Context
		m.cursor = 0
		return m, m.beginLoad(m.applyCmd(q))
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *browseModel) closePrompt() {
	m.prompt = promptNone
	m.input.Blur()
	m.input.Reset()
}

// refresh pulls the controller state into the model.
func (m *browseModel) refresh() {
	m.snap = m.ctrl.Snapshot()
	m.jobs = m.snap.Visible
	m.cursor = clamp(m.cursor, 0, max(len(m.jobs)-1, 0))
	m.recalcContent()
	m.ensureCursorVisible()
}

func (m browseModel) current() (model.Job, bool) {
	if len(m.jobs) == 0 {
		return model.Job{}, false
	}
	return m.jobs[m.cursor], true
}

func (m *browseModel) moveCursor(delta int) {
	m.cursor = clamp(m.cursor+delta, 0, max(len(m.jobs)-1, 0))
	m.recalcContent()
	m.ensureCursorVisible()
}

// ensureCursorVisible scrolls the cursor into view. On the last item the
// sentinel row below it is scrolled in too.
func (m *browseModel) ensureCursorVisible() {
	if !m.ready {
		return
	}
	top := m.cursor * jobItemHeight
	bottom := top + jobItemHeight - 1
	if m.cursor == len(m.jobs)-1 {
		bottom++
	}

	if top < m.vp.YOffset {
		m.vp.SetYOffset(top)
	} else if bottom >= m.vp.YOffset+m.vp.Height {
		m.vp.SetYOffset(bottom - m.vp.Height + 1)
	}
}

// sentinelVisible reports whether the row after the last job is on screen.
func (m browseModel) sentinelVisible() bool {
	line := len(m.jobs) * jobItemHeight
	return line >= m.vp.YOffset && line < m.vp.YOffset+m.vp.Height
}

// maybeAdvance asks for the next page when the sentinel row is fully shown
// and the controller is idle with pages left.
func (m *browseModel) maybeAdvance() tea.Cmd {
	if !m.ready || m.loading || !m.snap.HasMore || m.snap.Status != feed.StatusIdle {
		return nil
	}
	if !m.sentinelVisible() {
		return nil
	}
	return m.beginLoad(m.advanceCmd())
}

func (m *browseModel) recalcLayout() {
	width := max(m.width-2, 20)
	// Header (1) + criteria (1) + border top/bottom (2) + status bar (1).
	height := max(m.height-5, 4)

	if !m.ready {
		m.vp = viewport.New(width, height)
		m.ready = true
	} else {
		m.vp.Width = width
		m.vp.Height = height
	}
	m.input.Width = max(m.width-20, 10)
	m.recalcContent()
	m.ensureCursorVisible()
}

func (m *browseModel) recalcContent() {
	if !m.ready {
		return
	}
	m.vp.SetContent(m.renderJobs())
}

func (m browseModel) renderJobs() string {
	var b strings.Builder
	for i, j := range m.jobs {
		titleSt := jobTitleStyle
		subtitleSt := jobSubtitleStyle
		prefix := "  "
		if i == m.cursor {
			titleSt = selectedJobTitleStyle
			subtitleSt = selectedJobSubtitleStyle
			prefix = "> "
		}

		mark := " "
		if m.savedIDs[j.ID] {
			mark = bookmarkStyle.Render("★")
		}
		b.WriteString(prefix)
		b.WriteString(titleSt.Render(j.Title))
		b.WriteString(" ")
		b.WriteString(mark)
		b.WriteByte('\n')

		subtitle := fmt.Sprintf("%s · %s · %s · %s", j.Company, j.Location, j.WorkArrangement, j.PostedTime)
		if j.Salary != "" {
			subtitle += " · " + j.Salary
		}
		b.WriteString(prefix)
		b.WriteString(subtitleSt.Render(subtitle))
		b.WriteString("\n\n")
	}
	b.WriteString(m.sentinelLine())
	return b.String()
}

func (m browseModel) sentinelLine() string {
	switch {
	case m.loading:
		return "  " + spinnerStyle.Render(spinnerFrames[m.frame]) + sentinelStyle.Render(" loading jobs...")
	case m.snap.Error != "":
		return "  " + errorStyle.Render(m.snap.Error) + sentinelStyle.Render("  (r to retry)")
	case len(m.jobs) == 0:
		return sentinelStyle.Render("  no jobs match")
	case m.snap.HasMore:
		return sentinelStyle.Render("  more below")
	default:
		return sentinelStyle.Render("  end of results")
	}
}

func (m browseModel) View() string {
	if !m.ready {
		return "Initializing..."
	}

	fc := m.snap.Context
	header := headerStyle.Render(fmt.Sprintf("Jobs · %s (%d of %d)", fc.Source, len(m.jobs), len(m.snap.Jobs)))

	var parts []string
	if fc.Keyword != "" {
		parts = append(parts, "keyword="+fc.Keyword)
	}
	if fc.Location != "" {
		parts = append(parts, "location="+fc.Location)
	}
	if len(m.selected) > 0 {
		parts = append(parts, "tags="+strings.Join(m.selected, ","))
	}
	if m.sort != filter.SortNone {
		parts = append(parts, "sort="+string(m.sort))
	}
	criteria := criteriaStyle.Render(" " + strings.Join(parts, "  "))

	list := borderStyle.Width(m.vp.Width).Render(m.vp.View())

	var status string
	switch {
	case m.prompt != promptNone:
		status = m.input.View()
	case m.notice != nil:
		st := noticeInfoStyle
		if m.notice.Level == model.NoticeDestructive {
			st = noticeDestructiveStyle
		}
		status = st.Width(m.width).Render(m.notice.Title + "  " + m.notice.Description)
	default:
		hints := " ↑/↓ move  tab source  / keyword  l location  t tags  s sort  c clear  o open  r reload"
		if m.canBookmark() {
			hints += "  b save"
		}
		status = statusBarStyle.Width(m.width).Render(hints + "  q quit")
	}

	return header + "\n" + criteria + "\n" + list + "\n" + status
}

func nextSort(s filter.Sort) filter.Sort {
	for i, v := range sortCycle {
		if v == s {
			return sortCycle[(i+1)%len(sortCycle)]
		}
	}
	return sortCycle[0]
}

// canonicalTags maps user input onto the known tag names, case-insensitively.
// Unknown tags are dropped.
func canonicalTags(in []string) []string {
	var known []string
	for _, w := range model.WorkArrangements {
		known = append(known, string(w))
	}
	for _, t := range model.JobTypes {
		known = append(known, string(t))
	}
	for _, l := range model.LiteracyLevels {
		known = append(known, string(l))
	}

	var out []string
	for _, raw := range in {
		raw = strings.TrimSpace(raw)
		for _, k := range known {
			if strings.EqualFold(raw, k) {
				out = append(out, k)
				break
			}
		}
	}
	return out
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// openURL opens url in the default system browser, fire-and-forget.
func openURL(url string) {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", url)
	case "linux":
		cmd = exec.Command("xdg-open", url)
	case "windows":
		cmd = exec.Command("cmd", "/c", "start", url)
	default:
		return
	}
	_ = cmd.Start()
}

// RunExplore runs the interactive job list on ctrl until the user quits.
func RunExplore(ctx context.Context, ctrl *feed.Controller, opts Options) error {
	m := newModel(ctx, ctrl, opts)
	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx))
	_, err := p.Run()
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}
