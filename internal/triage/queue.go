// Package triage runs the human review workflow over candidate items.
//
// Every item moves from pending to exactly one terminal outcome. A
// terminal transition advances the queue immediately and sends the
// outcome in the background; a failed send is reported as a notice and
// never rolls the queue back. The backend is expected to be idempotent
// per item id.
package triage

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

// ErrQueueEmpty is returned for item actions once every item is resolved.
var ErrQueueEmpty = errors.New("triage queue is empty")

// Backend is the subset of the backend API the queue needs.
type Backend interface {
	Queue(ctx context.Context) ([]core.CandidateItem, error)
	SetTask(ctx context.Context, taskContext string) error
	Approve(ctx context.Context, item core.CandidateItem) error
	Correct(ctx context.Context, item core.CandidateItem) error
	Reject(ctx context.Context, item core.CandidateItem) error
}

// Config configures a Queue.
type Config struct {
	// Context bounds background sends. Defaults to context.Background.
	Context context.Context
	// SendTimeout limits each background send. Zero means no limit.
	SendTimeout time.Duration
	Bus         *refresh.Bus
	Logger      *slog.Logger
	// Notify receives user-visible notices. Optional.
	Notify func(core.Notice)
}

// Queue is the ordered list of candidates with a pointer at the first
// unresolved item.
type Queue struct {
	backend Backend
	cfg     Config
	logger  *slog.Logger

	tags refresh.Tags

	mu      sync.Mutex
	items   []Item
	current int
	loaded  bool

	wg sync.WaitGroup
}

// New creates an empty queue. Call Reload to fetch the first batch.
func New(b Backend, cfg Config) *Queue {
	if cfg.Context == nil {
		cfg.Context = context.Background()
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Queue{backend: b, cfg: cfg, logger: logger}
}

// View is a snapshot of the queue for display.
type View struct {
	Items      []Item `json:"items"`
	Current    *Item  `json:"current,omitempty"`
	Index      int    `json:"index"`
	Unresolved int    `json:"unresolved"`
	Empty      bool   `json:"empty"`
	Loaded     bool   `json:"loaded"`
}

// View returns a snapshot of the queue.
func (q *Queue) View() View {
	q.mu.Lock()
	defer q.mu.Unlock()

	v := View{
		Items:      append([]Item(nil), q.items...),
		Index:      q.current,
		Unresolved: q.unresolvedLocked(),
		Empty:      q.emptyLocked(),
		Loaded:     q.loaded,
	}
	if !v.Empty {
		cur := q.items[q.current]
		v.Current = &cur
	}
	return v
}

// Current returns the current item, or false when the queue is empty.
func (q *Queue) Current() (Item, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.emptyLocked() {
		return Item{}, false
	}
	return q.items[q.current], true
}

// Empty reports whether every item has been resolved.
func (q *Queue) Empty() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.emptyLocked()
}

// Unresolved returns the number of items not yet resolved.
func (q *Queue) Unresolved() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.unresolvedLocked()
}

func (q *Queue) emptyLocked() bool { return q.current >= len(q.items) }

func (q *Queue) unresolvedLocked() int {
	n := 0
	for _, it := range q.items[min(q.current, len(q.items)):] {
		if !it.State.Terminal() {
			n++
		}
	}
	return n
}

// Reload fetches a new batch and resets the pointer to the first item.
// On failure the current items are kept. When reloads overlap, only the
// most recently issued one replaces the items.
func (q *Queue) Reload(ctx context.Context) error {
	tag := q.tags.Issue()
	items, err := q.backend.Queue(ctx)
	if err != nil {
		if q.tags.Latest(tag) {
			q.notify(core.NoticeError, fmt.Sprintf("failed to load the triage queue: %v", err))
		}
		return fmt.Errorf("failed to reload queue: %w", err)
	}

	var unresolved int
	applied := q.tags.Apply(tag, func() {
		q.mu.Lock()
		q.items = make([]Item, len(items))
		for i, c := range items {
			q.items[i] = Item{CandidateItem: c, State: StatePending}
		}
		q.current = 0
		q.loaded = true
		unresolved = q.unresolvedLocked()
		q.mu.Unlock()
	})
	if !applied {
		metrics.StaleDiscards.WithLabelValues("queue").Inc()
		q.logger.Debug("discarded stale queue batch", "tag", tag)
		return nil
	}

	metrics.TriageUnresolved.Set(float64(unresolved))
	q.logger.Debug("triage queue reloaded", "items", len(items))
	return nil
}

// SetTask sets the task context on the backend and reloads the queue.
func (q *Queue) SetTask(ctx context.Context, taskContext string) error {
	if err := q.backend.SetTask(ctx, taskContext); err != nil {
		q.notify(core.NoticeError, fmt.Sprintf("failed to set task: %v", err))
		return fmt.Errorf("failed to set task: %w", err)
	}
	q.notify(core.NoticeInfo, "task set: "+taskContext)
	return q.Reload(ctx)
}

// Confirm approves the current item as proposed.
func (q *Queue) Confirm() error { return q.do(ActionConfirm, "") }

// RequestEdit opens an edit session on the current item's question.
func (q *Queue) RequestEdit() error { return q.do(ActionRequestEdit, "") }

// SaveEdit submits the current item with its question replaced by text.
func (q *Queue) SaveEdit(text string) error { return q.do(ActionSaveEdit, text) }

// CancelEdit closes the edit session without sending anything.
func (q *Queue) CancelEdit() error { return q.do(ActionCancelEdit, "") }

// Reject discards the current item. It is not allowed while editing.
func (q *Queue) Reject() error { return q.do(ActionReject, "") }

// UpdateDraft replaces the edit buffer of the current item.
func (q *Queue) UpdateDraft(text string) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.emptyLocked() {
		return ErrQueueEmpty
	}
	it := &q.items[q.current]
	if it.State != StateEditing {
		return &TransitionError{Action: ActionSaveEdit, State: it.State}
	}
	it.Draft = text
	return nil
}

// Do applies a named action. It lets transports map their inputs onto the
// same transitions.
func (q *Queue) Do(action Action, text string) error { return q.do(action, text) }

func (q *Queue) do(action Action, text string) error {
	q.mu.Lock()
	if q.emptyLocked() {
		q.mu.Unlock()
		return ErrQueueEmpty
	}
	it := &q.items[q.current]
	if err := it.apply(action, text); err != nil {
		q.mu.Unlock()
		return err
	}
	item := *it
	if item.State.Terminal() {
		q.current++
	}
	unresolved := q.unresolvedLocked()
	q.mu.Unlock()

	if outcome, ok := item.State.Outcome(); ok {
		metrics.TriageUnresolved.Set(float64(unresolved))
		q.send(outcome, item.CandidateItem)
	}
	return nil
}

// send delivers outcome without blocking the caller.
func (q *Queue) send(outcome core.Outcome, item core.CandidateItem) {
	q.wg.Add(1)
	go func() {
		defer q.wg.Done()

		ctx := q.cfg.Context
		if q.cfg.SendTimeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, q.cfg.SendTimeout)
			defer cancel()
		}

		var err error
		switch outcome {
		case core.OutcomeApproved:
			err = q.backend.Approve(ctx, item)
		case core.OutcomeCorrected:
			err = q.backend.Correct(ctx, item)
		case core.OutcomeRejected:
			err = q.backend.Reject(ctx, item)
		}
		metrics.TriageOutcomes.WithLabelValues(string(outcome), metrics.Result(err)).Inc()

		if err != nil {
			q.logger.Warn("triage outcome not delivered", "id", item.ID, "outcome", outcome, "error", err)
			q.notify(core.NoticeError, fmt.Sprintf("%s %s not delivered: %v", outcome, item.ID, err))
			return
		}
		q.logger.Debug("triage outcome delivered", "id", item.ID, "outcome", outcome)
		q.notify(core.NoticeInfo, fmt.Sprintf("%s %s", outcome, item.ID))
		if q.cfg.Bus != nil {
			q.cfg.Bus.Publish(refresh.TopicTaxonomyUpdated, "triage")
		}
	}()
}

// Wait blocks until every background send has finished.
func (q *Queue) Wait() { q.wg.Wait() }

func (q *Queue) notify(level core.NoticeLevel, msg string) {
	if q.cfg.Notify == nil {
		return
	}
	q.cfg.Notify(core.Notice{Level: level, Source: "triage", Message: msg, At: time.Now()})
}
