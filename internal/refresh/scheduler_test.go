package refresh

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/leapstack-labs/leapcurate/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

type counter struct {
	fetches atomic.Int32
	mu      sync.Mutex
	applied []any
}

func (c *counter) resource(name string) Resource {
	return Resource{
		Name: name,
		Fetch: func(context.Context) (any, error) {
			return int(c.fetches.Add(1)), nil
		},
		Apply: func(v any) {
			c.mu.Lock()
			c.applied = append(c.applied, v)
			c.mu.Unlock()
		},
	}
}

func (c *counter) values() []any {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]any(nil), c.applied...)
}

func TestScheduler_DebounceCollapsesTriggers(t *testing.T) {
	defer goleak.VerifyNone(t)

	s := NewScheduler(context.Background(), 20*time.Millisecond, testutil.NewTestLogger(t))
	defer s.Close()

	var c counter
	require.NoError(t, s.Register(c.resource("taxonomy")))

	for i := 0; i < 5; i++ {
		s.Trigger("taxonomy")
	}
	s.Wait()

	assert.Equal(t, int32(1), c.fetches.Load())
	assert.Equal(t, []any{1}, c.values())
}

func TestScheduler_DiscardsSlowStaleResult(t *testing.T) {
	defer goleak.VerifyNone(t)

	s := NewScheduler(context.Background(), 0, testutil.NewTestLogger(t))
	defer s.Close()

	release := make(chan struct{})
	started := make(chan struct{})
	var applied atomic.Bool
	require.NoError(t, s.Register(Resource{
		Name: "queue",
		Fetch: func(context.Context) (any, error) {
			close(started)
			<-release
			return "old", nil
		},
		Apply: func(any) { applied.Store(true) },
	}))

	done := make(chan error, 1)
	go func() { done <- s.Refresh("queue") }()

	<-started
	r, err := s.lookup("queue")
	require.NoError(t, err)
	r.tags.Issue()
	close(release)

	require.NoError(t, <-done)
	assert.False(t, applied.Load())
}

func TestScheduler_ErrorsReachLatestOnly(t *testing.T) {
	s := NewScheduler(context.Background(), 0, nil)
	defer s.Close()

	boom := errors.New("boom")
	var reported []error
	require.NoError(t, s.Register(Resource{
		Name:    "logs",
		Fetch:   func(context.Context) (any, error) { return nil, boom },
		Apply:   func(any) { t.Fatal("apply must not run on error") },
		OnError: func(err error) { reported = append(reported, err) },
	}))

	err := s.Refresh("logs")
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, []error{boom}, reported)

	assert.ErrorIs(t, s.Refresh("nope"), ErrUnknownResource)
}

func TestScheduler_Register(t *testing.T) {
	s := NewScheduler(context.Background(), 0, nil)
	defer s.Close()

	var c counter
	require.NoError(t, s.Register(c.resource("a")))
	assert.Error(t, s.Register(c.resource("a")))
	assert.Error(t, s.Register(Resource{Name: "b"}))
}

func TestScheduler_Every(t *testing.T) {
	defer goleak.VerifyNone(t)

	s := NewScheduler(context.Background(), time.Millisecond, testutil.NewTestLogger(t))
	var c counter
	require.NoError(t, s.Register(c.resource("batch")))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Every(ctx, "batch", 10*time.Millisecond) }()

	assert.Eventually(t, func() bool { return c.fetches.Load() >= 2 }, time.Second, 5*time.Millisecond)

	cancel()
	require.NoError(t, <-done)
	s.Close()

	assert.Error(t, s.Every(context.Background(), "batch", 0))
}

func TestScheduler_FollowBus(t *testing.T) {
	defer goleak.VerifyNone(t)

	s := NewScheduler(context.Background(), time.Millisecond, testutil.NewTestLogger(t))
	var tax, cov counter
	require.NoError(t, s.Register(tax.resource("taxonomy")))
	require.NoError(t, s.Register(cov.resource("coverage")))

	bus := NewBus()
	sub := bus.Subscribe(TopicTaxonomyUpdated)

	done := make(chan error, 1)
	go func() { done <- s.Follow(context.Background(), sub, "taxonomy", "coverage") }()

	bus.Publish(TopicTaxonomyUpdated, "triage")

	assert.Eventually(t, func() bool {
		return tax.fetches.Load() == 1 && cov.fetches.Load() == 1
	}, time.Second, 5*time.Millisecond)

	sub.Close()
	require.NoError(t, <-done)
	s.Close()
}

func TestScheduler_TriggerAfterClose(t *testing.T) {
	s := NewScheduler(context.Background(), time.Millisecond, nil)
	var c counter
	require.NoError(t, s.Register(c.resource("taxonomy")))

	s.Close()
	s.Trigger("taxonomy")
	s.Wait()
	assert.Zero(t, c.fetches.Load())
}
