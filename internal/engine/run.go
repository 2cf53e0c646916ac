package engine

import (
	"context"
	"time"

	"github.com/leapstack-labs/leapcurate/internal/refresh"
	"golang.org/x/sync/errgroup"
)

// Run keeps every snapshot current until ctx is done: one poll loop per
// resource, the triage queue loader, the batch monitor, a listener that
// refetches on taxonomy.updated and the dimension file watcher.
// Run is meant to be called once; Close must still be called afterwards.
func (e *Engine) Run(ctx context.Context) error {
	e.logger.Info("engine started")

	sub := e.bus.Subscribe(refresh.TopicTaxonomyUpdated)
	defer sub.Close()

	g, ctx := errgroup.WithContext(ctx)

	for _, name := range Resources {
		if e.cfg.Poll.Taxonomy > 0 {
			g.Go(func() error { return e.sched.Every(ctx, name, e.cfg.Poll.Taxonomy) })
		} else {
			e.sched.Trigger(name)
		}
	}
	g.Go(func() error { return e.sched.Follow(ctx, sub, Resources...) })
	g.Go(func() error { return e.runQueue(ctx) })
	if e.cfg.Poll.Batch > 0 {
		g.Go(func() error { return e.monitor.Run(ctx, e.cfg.Poll.Batch) })
	}
	if e.watcher != nil {
		g.Go(func() error { return e.watcher.Run(ctx) })
	}

	err := g.Wait()
	e.logger.Info("engine stopped")
	return err
}

// runQueue loads the triage queue and reloads it whenever it is exhausted.
func (e *Engine) runQueue(ctx context.Context) error {
	_ = e.queue.Reload(ctx)
	if e.cfg.Poll.Queue <= 0 {
		return nil
	}

	ticker := time.NewTicker(e.cfg.Poll.Queue)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if e.queue.Empty() {
				_ = e.queue.Reload(ctx)
			}
		}
	}
}

// Refresh fetches names now, or every resource when none are given, and
// returns the first error. Failed resources keep their last snapshot.
func (e *Engine) Refresh(names ...string) error {
	if len(names) == 0 {
		names = Resources
	}
	var g errgroup.Group
	for _, name := range names {
		g.Go(func() error { return e.sched.Refresh(name) })
	}
	return g.Wait()
}
