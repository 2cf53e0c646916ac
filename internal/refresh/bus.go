// Package refresh coordinates cache invalidation: a typed event bus for
// process-wide signals and a scheduler that turns signals and polling into
// debounced, tagged refetches.
package refresh

import (
	"sync"
	"time"

	"github.com/leapstack-labs/leapcurate/internal/metrics"
)

// Topic names a bus signal.
type Topic string

// Bus topics.
const (
	TopicTaxonomyUpdated   Topic = "taxonomy.updated"
	TopicDimensionsChanged Topic = "coverage.dimensions_changed"
	TopicBatchStateChanged Topic = "batch.state_changed"
	TopicNoticePosted      Topic = "notice.posted"
	TopicSnapshotUpdated   Topic = "snapshot.updated"
)

// Event is the payload delivered to subscribers.
type Event struct {
	Topic  Topic     `json:"topic"`
	Source string    `json:"source"`
	At     time.Time `json:"at"`
}

const defaultBuffer = 8

// Bus fans events out to subscribers without blocking the publisher.
// A subscriber whose buffer is full misses the event; since events only
// signal "refetch", the next one brings it up to date.
type Bus struct {
	mu     sync.RWMutex
	subs   map[*Subscription]struct{}
	buffer int
	now    func() time.Time
}

// NewBus creates an empty bus.
func NewBus() *Bus {
	return &Bus{
		subs:   make(map[*Subscription]struct{}),
		buffer: defaultBuffer,
		now:    time.Now,
	}
}

// Subscription receives events for a set of topics.
// The owner must call Close when done.
type Subscription struct {
	bus    *Bus
	topics map[Topic]bool
	ch     chan Event
	once   sync.Once
}

// Subscribe returns a subscription for topics. With no topics the
// subscription receives every event.
func (b *Bus) Subscribe(topics ...Topic) *Subscription {
	s := &Subscription{
		bus:    b,
		topics: make(map[Topic]bool, len(topics)),
		ch:     make(chan Event, b.buffer),
	}
	for _, t := range topics {
		s.topics[t] = true
	}
	b.mu.Lock()
	b.subs[s] = struct{}{}
	b.mu.Unlock()
	return s
}

// C returns the delivery channel. It is closed by Close.
func (s *Subscription) C() <-chan Event { return s.ch }

// Close detaches the subscription and closes its channel. It is safe to
// call more than once.
func (s *Subscription) Close() {
	s.once.Do(func() {
		s.bus.mu.Lock()
		delete(s.bus.subs, s)
		s.bus.mu.Unlock()
		close(s.ch)
	})
}

func (s *Subscription) wants(t Topic) bool {
	return len(s.topics) == 0 || s.topics[t]
}

// Publish delivers an event to every matching subscriber.
func (b *Bus) Publish(topic Topic, source string) {
	ev := Event{Topic: topic, Source: source, At: b.now()}
	metrics.BusEvents.WithLabelValues(string(topic)).Inc()

	b.mu.RLock()
	defer b.mu.RUnlock()

	for s := range b.subs {
		if !s.wants(topic) {
			continue
		}
		select {
		case s.ch <- ev:
		default:
			metrics.BusDropped.WithLabelValues(string(topic)).Inc()
		}
	}
}
