package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/leapstack-labs/leapcurate/internal/coverage"
	"github.com/leapstack-labs/leapcurate/internal/graph"
	"github.com/leapstack-labs/leapcurate/internal/ledger"
	"github.com/leapstack-labs/leapcurate/internal/refresh"
	"github.com/leapstack-labs/leapcurate/internal/taxonomy"
	"github.com/leapstack-labs/leapcurate/pkg/core"
	"golang.org/x/sync/errgroup"
)

type traceLog struct {
	records *ledger.Ledger
	inbox   []core.TraceRecord
}

func (e *Engine) registerResources() error {
	resources := []refresh.Resource{
		{
			Name:    ResourceTaxonomy,
			Fetch:   e.fetchTaxonomy,
			Apply:   func(v any) { e.applyTaxonomy(v.(*taxonomy.Model)) },
			OnError: e.refreshFailed(ResourceTaxonomy),
		},
		{
			Name:    ResourceRecords,
			Fetch:   e.fetchRecords,
			Apply:   func(v any) { e.applyRecords(v.(traceLog)) },
			OnError: e.refreshFailed(ResourceRecords),
		},
		{
			Name: ResourceCoverage,
			Fetch: func(ctx context.Context) (any, error) {
				return e.backend.Coverage(ctx)
			},
			Apply:   func(v any) { e.applyCoverage(v.(core.CoverageStats)) },
			OnError: e.refreshFailed(ResourceCoverage),
		},
	}
	for _, r := range resources {
		if err := e.sched.Register(r); err != nil {
			return fmt.Errorf("failed to register %s: %w", r.Name, err)
		}
	}
	return nil
}

func (e *Engine) fetchTaxonomy(ctx context.Context) (any, error) {
	t, err := e.backend.Taxonomy(ctx)
	if err != nil {
		return nil, err
	}
	normalized, dups, err := taxonomy.Normalize(t, e.cfg.Duplicates)
	if err != nil {
		return nil, err
	}
	if len(dups) > 0 && e.cfg.Duplicates != taxonomy.PolicyReject {
		e.logger.Warn("disambiguated duplicate names", "policy", e.cfg.Duplicates, "count", len(dups))
		e.Notify(core.Notice{
			Level:   core.NoticeWarn,
			Source:  ResourceTaxonomy,
			Message: fmt.Sprintf("%d duplicate name(s) handled with policy %s", len(dups), e.cfg.Duplicates),
		})
	}
	return taxonomy.New(normalized, e.cfg.RootLabel)
}

func (e *Engine) fetchRecords(ctx context.Context) (any, error) {
	var logs, inbox []core.TraceRecord
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		logs, err = e.backend.KnowledgeLogs(ctx)
		return err
	})
	g.Go(func() error {
		var err error
		inbox, err = e.backend.Inbox(ctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return traceLog{records: ledger.New(logs, inbox), inbox: inbox}, nil
}

func (e *Engine) applyTaxonomy(m *taxonomy.Model) {
	e.mu.Lock()
	e.model = m
	e.updated[ResourceTaxonomy] = time.Now()
	e.mu.Unlock()
	e.bus.Publish(refresh.TopicSnapshotUpdated, ResourceTaxonomy)
}

func (e *Engine) applyRecords(t traceLog) {
	e.mu.Lock()
	e.records = t.records
	e.inbox = t.inbox
	e.updated[ResourceRecords] = time.Now()
	e.mu.Unlock()
	e.bus.Publish(refresh.TopicSnapshotUpdated, ResourceRecords)
}

func (e *Engine) applyCoverage(s core.CoverageStats) {
	e.mu.Lock()
	e.remote = &s
	e.updated[ResourceCoverage] = time.Now()
	e.mu.Unlock()
	e.bus.Publish(refresh.TopicSnapshotUpdated, ResourceCoverage)
}

func (e *Engine) refreshFailed(name string) func(error) {
	return func(err error) {
		e.logger.Warn("refresh failed, keeping last snapshot", "resource", name, "error", err)
		e.Notify(core.Notice{
			Level:   core.NoticeWarn,
			Source:  name,
			Message: fmt.Sprintf("could not refresh %s: %v", name, err),
		})
	}
}

// Taxonomy returns the current taxonomy snapshot.
func (e *Engine) Taxonomy() (*taxonomy.Model, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.model == nil {
		return nil, ErrNotLoaded
	}
	return e.model, nil
}

// Records returns the current trace log. It is empty before the first
// successful fetch.
func (e *Engine) Records() *ledger.Ledger {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.records == nil {
		return ledger.New()
	}
	return e.records
}

// Inbox returns the records awaiting ingestion review.
func (e *Engine) Inbox() []core.TraceRecord {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return append([]core.TraceRecord(nil), e.inbox...)
}

// Updated returns when name was last refreshed successfully.
func (e *Engine) Updated(name string) (time.Time, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	t, ok := e.updated[name]
	return t, ok
}

// Graph lays out the current snapshot. An empty orientation uses the
// configured one.
func (e *Engine) Graph(orientation core.Orientation) (core.Graph, error) {
	e.mu.RLock()
	m, l := e.model, e.records
	e.mu.RUnlock()

	if m == nil {
		return core.Graph{}, ErrNotLoaded
	}
	opts := e.cfg.Layout
	if orientation != "" {
		opts.Orientation = orientation
	}
	return graph.Build(m, l, opts)
}

// Coverage estimates coverage from the current snapshot and dimension
// table.
func (e *Engine) Coverage() core.CoverageStats {
	e.mu.RLock()
	m, l := e.model, e.records
	e.mu.RUnlock()
	return coverage.Compute(e.table.Dimensions(), m, l)
}

// RemoteCoverage returns the statistics last reported by the backend.
func (e *Engine) RemoteCoverage() (core.CoverageStats, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.remote == nil {
		return core.CoverageStats{}, false
	}
	return *e.remote, true
}
