package refresh

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/leapstack-labs/leapcurate/internal/metrics"
	"golang.org/x/sync/singleflight"
)

// DefaultDebounce is the window in which repeated triggers collapse.
const DefaultDebounce = 100 * time.Millisecond

// ErrUnknownResource is returned for a resource that was never registered.
var ErrUnknownResource = errors.New("unknown resource")

// Resource describes one refetchable snapshot.
type Resource struct {
	Name string
	// Fetch loads a fresh value.
	Fetch func(ctx context.Context) (any, error)
	// Apply stores a value. It runs only for the latest issued request.
	Apply func(v any)
	// OnError is told about failures of the latest request. Optional.
	OnError func(err error)
}

type resource struct {
	Resource
	tags Tags

	mu    sync.Mutex // guards timer
	timer *time.Timer
}

// Scheduler debounces refresh triggers into single tagged fetches.
//
// Every fetch gets a tag from a per-resource counter. A result is applied
// only if its tag is still the latest issued, so a slow response can never
// overwrite a newer one. Requests are never aborted mid-flight.
type Scheduler struct {
	ctx      context.Context
	debounce time.Duration
	logger   *slog.Logger

	mu        sync.Mutex
	resources map[string]*resource
	closed    bool

	group singleflight.Group
	wg    sync.WaitGroup
}

// NewScheduler creates a scheduler whose fetches run under ctx.
// A non-positive debounce selects DefaultDebounce.
func NewScheduler(ctx context.Context, debounce time.Duration, logger *slog.Logger) *Scheduler {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Scheduler{
		ctx:       ctx,
		debounce:  debounce,
		logger:    logger,
		resources: make(map[string]*resource),
	}
}

// Register adds a resource. Names must be unique.
func (s *Scheduler) Register(r Resource) error {
	if r.Name == "" || r.Fetch == nil || r.Apply == nil {
		return fmt.Errorf("resource %q needs a name, Fetch and Apply", r.Name)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.resources[r.Name]; ok {
		return fmt.Errorf("resource %q already registered", r.Name)
	}
	s.resources[r.Name] = &resource{Resource: r}
	return nil
}

func (s *Scheduler) lookup(name string) (*resource, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.resources[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownResource, name)
	}
	return r, nil
}

// Trigger schedules a refetch of name after the debounce window. Triggers
// arriving inside the window restart it and collapse into one fetch.
func (s *Scheduler) Trigger(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	r, ok := s.resources[name]
	if !ok {
		s.logger.Warn("trigger ignored", "resource", name, "error", ErrUnknownResource)
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.timer != nil && r.timer.Stop() {
		// The stopped callback's slot in wg is reused below.
		metrics.TriggersCoalesced.WithLabelValues(name).Inc()
	} else {
		s.wg.Add(1)
	}
	r.timer = time.AfterFunc(s.debounce, func() {
		defer s.wg.Done()
		// A signal means the data changed, so do not join a flight that
		// started before it.
		s.group.Forget(name)
		if err := s.run(r); err != nil {
			s.logger.Debug("triggered refresh failed", "resource", name, "error", err)
		}
	})
}

// Refresh fetches name now and returns the fetch error, if any.
// Concurrent calls share one in-flight fetch.
func (s *Scheduler) Refresh(name string) error {
	r, err := s.lookup(name)
	if err != nil {
		return err
	}
	return s.run(r)
}

func (s *Scheduler) run(r *resource) error {
	_, err, _ := s.group.Do(r.Name, func() (any, error) {
		tag := r.tags.Issue()
		started := time.Now()
		v, err := r.Fetch(s.ctx)
		metrics.ObserveFetch(r.Name, started, err)

		if err != nil {
			if r.tags.Latest(tag) && r.OnError != nil {
				r.OnError(err)
			}
			return nil, fmt.Errorf("failed to fetch %s: %w", r.Name, err)
		}
		if !r.tags.Apply(tag, func() { r.Apply(v) }) {
			metrics.StaleDiscards.WithLabelValues(r.Name).Inc()
			s.logger.Debug("discarded stale result", "resource", r.Name, "tag", tag)
		}
		return nil, nil
	})
	return err
}

// Every triggers name immediately and then once per interval until ctx
// is done.
func (s *Scheduler) Every(ctx context.Context, name string, interval time.Duration) error {
	if _, err := s.lookup(name); err != nil {
		return err
	}
	if interval <= 0 {
		return fmt.Errorf("poll interval for %s must be positive", name)
	}

	s.Trigger(name)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			s.Trigger(name)
		}
	}
}

// Follow triggers names for every event on sub until ctx is done or the
// subscription is closed.
func (s *Scheduler) Follow(ctx context.Context, sub *Subscription, names ...string) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-sub.C():
			if !ok {
				return nil
			}
			s.logger.Debug("refresh signal", "topic", ev.Topic, "source", ev.Source)
			for _, name := range names {
				s.Trigger(name)
			}
		}
	}
}

// Wait blocks until every scheduled refetch has finished.
func (s *Scheduler) Wait() { s.wg.Wait() }

// Close cancels pending triggers and waits for running fetches.
func (s *Scheduler) Close() {
	s.mu.Lock()
	s.closed = true
	for _, r := range s.resources {
		r.mu.Lock()
		if r.timer != nil && r.timer.Stop() {
			s.wg.Done()
		}
		r.mu.Unlock()
	}
	s.mu.Unlock()

	s.wg.Wait()
}
