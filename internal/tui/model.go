// Package tui is the terminal triage workbench. It drives a triage.Queue
// from the keyboard: confirm, edit, save, cancel, reject and reload.
//
// The model is used from the bubbletea event loop only. Queue sends run
// in the background and report back through notices.
package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textarea"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/leapstack-labs/leapcurate/internal/refresh"
	"github.com/leapstack-labs/leapcurate/internal/triage"
	"github.com/leapstack-labs/leapcurate/pkg/core"
)

// Config configures the workbench.
type Config struct {
	Queue *triage.Queue
	// Bus, when set, wakes the view on notices and snapshot changes.
	Bus *refresh.Bus
	// Notices returns the retained notices, oldest first. Optional.
	Notices func() []core.Notice
	// Context bounds reload requests. Defaults to context.Background.
	Context context.Context
}

type reloadedMsg struct{ err error }

type eventMsg refresh.Event

// Model is the bubbletea model of the workbench.
type Model struct {
	cfg    Config
	sub    *refresh.Subscription
	keys   keyMap
	help   help.Model
	editor textarea.Model
	styles styles

	width   int
	status  string
	loading bool
}

// New creates the workbench model. The caller owns cfg.Queue.
func New(cfg Config) *Model {
	if cfg.Context == nil {
		cfg.Context = context.Background()
	}
	editor := textarea.New()
	editor.Placeholder = "Edit the question..."
	editor.ShowLineNumbers = false
	editor.SetHeight(4)

	m := &Model{
		cfg:    cfg,
		keys:   newKeyMap(),
		help:   help.New(),
		editor: editor,
		styles: defaultStyles(),
	}
	if cfg.Bus != nil {
		m.sub = cfg.Bus.Subscribe(refresh.TopicNoticePosted, refresh.TopicSnapshotUpdated)
	}
	return m
}

// Close releases the bus subscription.
func (m *Model) Close() {
	if m.sub != nil {
		m.sub.Close()
	}
}

// Init implements tea.Model.
func (m *Model) Init() tea.Cmd {
	cmds := []tea.Cmd{m.waitForEvent()}
	if !m.cfg.Queue.View().Loaded {
		m.loading = true
		cmds = append(cmds, m.reload())
	}
	return tea.Batch(cmds...)
}

func (m *Model) reload() tea.Cmd {
	q, ctx := m.cfg.Queue, m.cfg.Context
	return func() tea.Msg {
		return reloadedMsg{err: q.Reload(ctx)}
	}
}

func (m *Model) waitForEvent() tea.Cmd {
	if m.sub == nil {
		return nil
	}
	ch := m.sub.C()
	return func() tea.Msg {
		ev, ok := <-ch
		if !ok {
			return nil
		}
		return eventMsg(ev)
	}
}

func (m *Model) editing() bool {
	cur, ok := m.cfg.Queue.Current()
	return ok && cur.State == triage.StateEditing
}

// Update implements tea.Model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.help.Width = msg.Width
		m.editor.SetWidth(max(msg.Width-4, 20))
		return m, nil

	case reloadedMsg:
		m.loading = false
		if msg.err != nil {
			m.status = fmt.Sprintf("reload failed: %v", msg.err)
		} else {
			m.status = fmt.Sprintf("loaded %d item(s)", m.cfg.Queue.Unresolved())
		}
		return m, nil

	case eventMsg:
		return m, m.waitForEvent()

	case tea.KeyMsg:
		if m.editing() {
			return m.updateEditing(msg)
		}
		return m.updateBrowsing(msg)
	}
	return m, nil
}

func (m *Model) updateBrowsing(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	q := m.cfg.Queue
	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.Reload):
		m.loading = true
		m.status = "reloading..."
		return m, m.reload()
	case key.Matches(msg, m.keys.Confirm):
		m.report("approved", q.Confirm())
	case key.Matches(msg, m.keys.Reject):
		m.report("rejected", q.Reject())
	case key.Matches(msg, m.keys.Edit):
		if err := q.RequestEdit(); err != nil {
			m.report("", err)
			return m, nil
		}
		cur, _ := q.Current()
		m.editor.SetValue(cur.Draft)
		m.status = ""
		return m, m.editor.Focus()
	}
	return m, nil
}

func (m *Model) updateEditing(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	q := m.cfg.Queue
	switch {
	case msg.String() == "ctrl+c":
		return m, tea.Quit
	case key.Matches(msg, m.keys.Save):
		text := strings.TrimSpace(m.editor.Value())
		if text == "" {
			m.status = "question cannot be empty"
			return m, nil
		}
		m.report("corrected", q.SaveEdit(text))
		m.editor.Blur()
		m.editor.Reset()
		return m, nil
	case key.Matches(msg, m.keys.Cancel):
		m.report("edit cancelled", q.CancelEdit())
		m.editor.Blur()
		m.editor.Reset()
		return m, nil
	}

	var cmd tea.Cmd
	m.editor, cmd = m.editor.Update(msg)
	_ = q.UpdateDraft(m.editor.Value())
	return m, cmd
}

func (m *Model) report(done string, err error) {
	switch {
	case errors.Is(err, triage.ErrQueueEmpty):
		m.status = "queue is empty, press r to reload"
	case err != nil:
		m.status = err.Error()
	default:
		m.status = done
	}
}

// View implements tea.Model.
func (m *Model) View() string {
	var b strings.Builder
	v := m.cfg.Queue.View()
	s := m.styles

	b.WriteString(s.Title.Render("Triage"))
	b.WriteString(s.Muted.Render(fmt.Sprintf("  %d unresolved", v.Unresolved)))
	if len(v.Items) > 0 && !v.Empty {
		b.WriteString(s.Muted.Render(fmt.Sprintf("  item %d of %d", v.Index+1, len(v.Items))))
	}
	b.WriteString("\n\n")

	switch {
	case m.loading && !v.Loaded:
		b.WriteString("Loading queue...\n")
	case v.Empty:
		b.WriteString("Nothing left to review. Press r to fetch the next batch.\n")
	default:
		b.WriteString(m.renderItem(*v.Current))
		b.WriteString("\n")
	}

	if m.status != "" {
		b.WriteString("\n" + s.Muted.Render(m.status) + "\n")
	}
	if n, ok := m.lastNotice(); ok {
		b.WriteString(s.notice(n.Level).Render(fmt.Sprintf("[%s] %s", n.Source, n.Message)) + "\n")
	}

	m.keys.editing = v.Current != nil && v.Current.State == triage.StateEditing
	b.WriteString("\n" + m.help.View(m.keys))
	return b.String()
}

func (m *Model) renderItem(it triage.Item) string {
	s := m.styles
	var b strings.Builder

	if it.Context != "" {
		b.WriteString(s.Label.Render("Context") + "\n" + it.Context + "\n\n")
	}
	b.WriteString(s.Label.Render("Question") + "\n")
	if it.State == triage.StateEditing {
		b.WriteString(m.editor.View() + "\n")
	} else {
		b.WriteString(s.Question.Render(it.Question) + "\n")
	}
	if it.AIRationale != "" {
		b.WriteString("\n" + s.Label.Render("Rationale") + "\n" + it.AIRationale + "\n")
	}
	b.WriteString("\n" + s.Muted.Render(fmt.Sprintf("confidence %.0f%%", it.Confidence*100)))
	if len(it.NextNodes) > 0 {
		b.WriteString(s.Muted.Render("  next: " + strings.Join(it.NextNodes, ", ")))
	}

	card := s.Card
	if m.width > 4 {
		card = card.Width(m.width - 4)
	}
	return card.Render(b.String())
}

func (m *Model) lastNotice() (core.Notice, bool) {
	if m.cfg.Notices == nil {
		return core.Notice{}, false
	}
	ns := m.cfg.Notices()
	if len(ns) == 0 {
		return core.Notice{}, false
	}
	return ns[len(ns)-1], true
}

// Run starts the workbench and blocks until the user quits or ctx is done.
func Run(ctx context.Context, cfg Config) error {
	if cfg.Context == nil {
		cfg.Context = ctx
	}
	m := New(cfg)
	defer m.Close()

	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := p.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return fmt.Errorf("triage workbench failed: %w", err)
	}
	return nil
}
