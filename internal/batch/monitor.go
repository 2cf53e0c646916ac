// Package batch reflects the state of the remote batch job and gates the
// commands a user may send to it.
//
// The monitor never infers state. After a command is sent, every command
// stays disabled until the next poll reports what the server did.
package batch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/leapstack-labs/leapcurate/internal/metrics"
	"github.com/leapstack-labs/leapcurate/internal/refresh"
	"github.com/leapstack-labs/leapcurate/pkg/core"
)

// Command is a batch job command.
type Command string

// Batch commands.
const (
	CommandStart  Command = "start"
	CommandPause  Command = "pause"
	CommandResume Command = "resume"
	CommandCancel Command = "cancel"
)

// Commands lists every command in display order.
var Commands = []Command{CommandStart, CommandPause, CommandResume, CommandCancel}

var allowedFrom = map[Command][]core.JobState{
	CommandStart:  {core.JobIdle, core.JobCompleted, core.JobCancelled},
	CommandPause:  {core.JobRunning},
	CommandResume: {core.JobPaused},
	CommandCancel: {core.JobRunning, core.JobPaused},
}

// Allowed reports whether cmd may be sent when the job is in state.
func Allowed(cmd Command, state core.JobState) bool {
	for _, s := range allowedFrom[cmd] {
		if s == state {
			return true
		}
	}
	return false
}

// ParseCommand parses a command name.
func ParseCommand(s string) (Command, error) {
	c := Command(s)
	if _, ok := allowedFrom[c]; !ok {
		return "", fmt.Errorf("unknown batch command %q", s)
	}
	return c, nil
}

// ErrCommandNotAllowed is returned for a command the last observed state
// does not allow, or while an earlier command awaits confirmation.
var ErrCommandNotAllowed = errors.New("batch command not allowed")

// Backend is the subset of the backend API the monitor needs.
type Backend interface {
	BatchStatus(ctx context.Context) (core.BatchStatus, error)
	BatchStart(ctx context.Context, cfg core.BatchConfig) error
	BatchPause(ctx context.Context) error
	BatchResume(ctx context.Context) error
	BatchCancel(ctx context.Context) error
}

// Monitor holds the last observed job status.
type Monitor struct {
	backend Backend
	bus     *refresh.Bus
	logger  *slog.Logger
	notify  func(core.Notice)
	tags    refresh.Tags

	mu       sync.RWMutex
	status   core.BatchStatus
	observed bool
	pending  bool
	lastErr  error
}

// New creates a monitor. bus and notify may be nil.
func New(b Backend, bus *refresh.Bus, logger *slog.Logger, notify func(core.Notice)) *Monitor {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Monitor{backend: b, bus: bus, logger: logger, notify: notify}
}

// Snapshot is the monitor state for display.
type Snapshot struct {
	Status   core.BatchStatus `json:"status"`
	Observed bool             `json:"observed"`
	Pending  bool             `json:"pending"`
	Allowed  []Command        `json:"allowed"`
	Error    string           `json:"error,omitempty"`
}

// Snapshot returns the current view.
func (m *Monitor) Snapshot() Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s := Snapshot{
		Status:   m.status,
		Observed: m.observed,
		Pending:  m.pending,
		Allowed:  []Command{},
	}
	if m.lastErr != nil {
		s.Error = m.lastErr.Error()
	}
	for _, c := range Commands {
		if m.allowedLocked(c) {
			s.Allowed = append(s.Allowed, c)
		}
	}
	return s
}

// State returns the last observed state, or false before the first poll.
func (m *Monitor) State() (core.JobState, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.status.State, m.observed
}

// Pending reports whether a command was sent and not yet confirmed by a poll.
func (m *Monitor) Pending() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.pending
}

// Poll fetches the job status. The result replaces the local view only if
// no later poll or command was started meanwhile. On failure the previous view is
// kept.
func (m *Monitor) Poll(ctx context.Context) error {
	tag := m.tags.Issue()
	started := time.Now()
	st, err := m.backend.BatchStatus(ctx)
	metrics.ObserveFetch("batch", started, err)

	if err != nil {
		if m.tags.Latest(tag) {
			m.mu.Lock()
			m.lastErr = err
			m.mu.Unlock()
			m.emit(core.NoticeWarn, fmt.Sprintf("batch status unavailable: %v", err))
		}
		return fmt.Errorf("failed to poll batch status: %w", err)
	}

	var prev core.JobState
	var wasObserved bool
	applied := m.tags.Apply(tag, func() {
		m.mu.Lock()
		prev, wasObserved = m.status.State, m.observed
		m.status = st
		m.observed = true
		m.pending = false
		m.lastErr = nil
		m.mu.Unlock()
	})
	if !applied {
		metrics.StaleDiscards.WithLabelValues("batch").Inc()
		m.logger.Debug("discarded stale batch status", "tag", tag)
		return nil
	}

	if !wasObserved || prev != st.State {
		m.logger.Debug("batch state changed", "from", prev, "to", st.State)
		if m.bus != nil {
			m.bus.Publish(refresh.TopicBatchStateChanged, "batch")
		}
	}
	return nil
}

// Run polls every interval until ctx is done.
func (m *Monitor) Run(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		return fmt.Errorf("batch poll interval must be positive")
	}
	_ = m.Poll(ctx)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			_ = m.Poll(ctx)
		}
	}
}

func (m *Monitor) allowedLocked(cmd Command) bool {
	return m.observed && !m.pending && Allowed(cmd, m.status.State)
}

// Start starts a job with cfg.
func (m *Monitor) Start(ctx context.Context, cfg core.BatchConfig) error {
	return m.send(ctx, CommandStart, func(ctx context.Context) error { return m.backend.BatchStart(ctx, cfg) })
}

// Pause pauses the running job.
func (m *Monitor) Pause(ctx context.Context) error {
	return m.send(ctx, CommandPause, m.backend.BatchPause)
}

// Resume resumes the paused job.
func (m *Monitor) Resume(ctx context.Context) error {
	return m.send(ctx, CommandResume, m.backend.BatchResume)
}

// Cancel cancels the running or paused job.
func (m *Monitor) Cancel(ctx context.Context) error {
	return m.send(ctx, CommandCancel, m.backend.BatchCancel)
}

// Send dispatches cmd by name. cfg is only used by CommandStart.
func (m *Monitor) Send(ctx context.Context, cmd Command, cfg core.BatchConfig) error {
	switch cmd {
	case CommandStart:
		return m.Start(ctx, cfg)
	case CommandPause:
		return m.Pause(ctx)
	case CommandResume:
		return m.Resume(ctx)
	case CommandCancel:
		return m.Cancel(ctx)
	}
	return fmt.Errorf("unknown batch command %q", cmd)
}

func (m *Monitor) send(ctx context.Context, cmd Command, call func(context.Context) error) error {
	m.mu.Lock()
	if !m.allowedLocked(cmd) {
		state, pending := m.status.State, m.pending
		m.mu.Unlock()
		metrics.BatchCommands.WithLabelValues(string(cmd), "rejected").Inc()
		if pending {
			return fmt.Errorf("%w: %s while an earlier command awaits confirmation", ErrCommandNotAllowed, cmd)
		}
		return fmt.Errorf("%w: %s in state %q", ErrCommandNotAllowed, cmd, state)
	}
	m.pending = true
	m.tags.Issue()
	m.mu.Unlock()

	err := call(ctx)
	// Polls started while the command was in flight may still report the
	// state from before it.
	m.tags.Issue()
	metrics.BatchCommands.WithLabelValues(string(cmd), metrics.Result(err)).Inc()
	if err != nil {
		m.emit(core.NoticeError, fmt.Sprintf("batch %s failed: %v", cmd, err))
		return fmt.Errorf("batch %s failed: %w", cmd, err)
	}
	m.emit(core.NoticeInfo, fmt.Sprintf("batch %s sent", cmd))
	return nil
}

func (m *Monitor) emit(level core.NoticeLevel, msg string) {
	if m.notify == nil {
		return
	}
	m.notify(core.Notice{Level: level, Source: "batch", Message: msg, At: time.Now()})
}
