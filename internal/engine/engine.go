// Package engine composes the curation client: cached snapshots of the
// backend's taxonomy and trace log, the triage queue, the batch monitor
// and the refresh scheduler that keeps them current.
//
// Each snapshot is last-known-good. A failed refresh keeps the previous
// value and posts a notice.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/leapstack-labs/leapcurate/internal/batch"
	"github.com/leapstack-labs/leapcurate/internal/coverage"
	"github.com/leapstack-labs/leapcurate/internal/layout"
	"github.com/leapstack-labs/leapcurate/internal/ledger"
	"github.com/leapstack-labs/leapcurate/internal/refresh"
	"github.com/leapstack-labs/leapcurate/internal/taxonomy"
	"github.com/leapstack-labs/leapcurate/internal/triage"
	"github.com/leapstack-labs/leapcurate/pkg/core"
)

// Refreshable resources.
const (
	ResourceTaxonomy = "taxonomy"
	ResourceRecords  = "records"
	ResourceCoverage = "coverage"
)

// Resources lists every resource refreshed by Refresh.
var Resources = []string{ResourceTaxonomy, ResourceRecords, ResourceCoverage}

// ErrNotLoaded is returned when a snapshot is needed before the first
// successful fetch.
var ErrNotLoaded = errors.New("taxonomy not loaded yet")

const maxNotices = 50

// Backend is the backend API used by the engine.
type Backend interface {
	triage.Backend
	batch.Backend

	Taxonomy(ctx context.Context) (core.Taxonomy, error)
	KnowledgeLogs(ctx context.Context) ([]core.TraceRecord, error)
	Inbox(ctx context.Context) ([]core.TraceRecord, error)
	Coverage(ctx context.Context) (core.CoverageStats, error)

	AddService(ctx context.Context, category, service string) (core.MutationResult, error)
	RenameCategory(ctx context.Context, oldName, newName string) (core.MutationResult, error)
	DeleteCategory(ctx context.Context, name string) (core.MutationResult, error)
	BatchIngest(ctx context.Context, items []core.IngestItem) (core.MutationResult, error)

	SimulationStart(ctx context.Context, domain string) (map[string]any, error)
	SimulationNext(ctx context.Context) (map[string]any, error)
}

// PollConfig sets polling intervals. A zero interval disables polling for
// that resource; it is then refreshed by signals only.
type PollConfig struct {
	// Queue is how often an exhausted triage queue is reloaded.
	Queue time.Duration
	// Taxonomy drives the taxonomy, trace log and coverage snapshots.
	Taxonomy time.Duration
	Batch    time.Duration
}

// DefaultPollConfig returns the default polling intervals.
func DefaultPollConfig() PollConfig {
	return PollConfig{
		Queue:    30 * time.Second,
		Taxonomy: 30 * time.Second,
		Batch:    2 * time.Second,
	}
}

// Config holds engine configuration.
type Config struct {
	// Backend is required.
	Backend Backend
	// RootLabel labels the implicit taxonomy root.
	RootLabel string
	// Duplicates decides how duplicate names from the backend are handled.
	Duplicates taxonomy.Policy
	Layout     layout.Options
	// Dimensions is the coverage dimension table. Empty selects the default.
	Dimensions []core.CoverageDimension
	// DimensionsFile, when set, overrides Dimensions and is watched for changes.
	DimensionsFile string
	Poll           PollConfig
	// Debounce is the refresh trigger window.
	Debounce time.Duration
	// SendTimeout limits each background triage send.
	SendTimeout time.Duration
	// Logger is the structured logger (optional, uses discard if nil)
	Logger *slog.Logger
}

// Engine owns the client-side state.
type Engine struct {
	backend Backend
	cfg     Config
	logger  *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc

	bus     *refresh.Bus
	sched   *refresh.Scheduler
	queue   *triage.Queue
	monitor *batch.Monitor
	table   *coverage.Table
	watcher *coverage.Watcher

	mu      sync.RWMutex
	model   *taxonomy.Model
	records *ledger.Ledger
	inbox   []core.TraceRecord
	remote  *core.CoverageStats
	updated map[string]time.Time
	notices []core.Notice
}

// New creates an engine. Nothing is fetched until Run or Refresh.
func New(cfg Config) (*Engine, error) {
	if cfg.Backend == nil {
		return nil, fmt.Errorf("engine needs a backend")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if cfg.Layout == (layout.Options{}) {
		cfg.Layout = layout.DefaultOptions()
	}
	if err := cfg.Layout.Validate(); err != nil {
		return nil, fmt.Errorf("invalid layout: %w", err)
	}
	if cfg.RootLabel == "" {
		cfg.RootLabel = core.DefaultRootLabel
	}
	if cfg.Duplicates == "" {
		cfg.Duplicates = taxonomy.PolicyReject
	}

	dims := cfg.Dimensions
	if cfg.DimensionsFile != "" {
		loaded, err := coverage.LoadDimensions(cfg.DimensionsFile)
		if err != nil {
			return nil, err
		}
		dims = loaded
	}
	table, err := coverage.NewTable(dims)
	if err != nil {
		return nil, err
	}

	logger.Debug("initializing engine", "root_label", cfg.RootLabel, "dimensions", len(table.Dimensions()))

	ctx, cancel := context.WithCancel(context.Background())
	e := &Engine{
		backend: cfg.Backend,
		cfg:     cfg,
		logger:  logger,
		ctx:     ctx,
		cancel:  cancel,
		bus:     refresh.NewBus(),
		table:   table,
		updated: make(map[string]time.Time),
	}
	e.sched = refresh.NewScheduler(ctx, cfg.Debounce, logger)
	e.queue = triage.New(cfg.Backend, triage.Config{
		Context:     ctx,
		SendTimeout: cfg.SendTimeout,
		Bus:         e.bus,
		Logger:      logger,
		Notify:      e.Notify,
	})
	e.monitor = batch.New(cfg.Backend, e.bus, logger, e.Notify)
	if cfg.DimensionsFile != "" {
		e.watcher = coverage.NewWatcher(cfg.DimensionsFile, table, e.bus, logger)
	}

	if err := e.registerResources(); err != nil {
		cancel()
		return nil, err
	}
	return e, nil
}

// Bus returns the process-wide signal bus.
func (e *Engine) Bus() *refresh.Bus { return e.bus }

// Queue returns the triage queue.
func (e *Engine) Queue() *triage.Queue { return e.queue }

// Batch returns the batch job monitor.
func (e *Engine) Batch() *batch.Monitor { return e.monitor }

// Dimensions returns the coverage dimension table.
func (e *Engine) Dimensions() *coverage.Table { return e.table }

// LayoutOptions returns the configured layout options.
func (e *Engine) LayoutOptions() layout.Options { return e.cfg.Layout }

// Close stops background work and waits for pending sends.
func (e *Engine) Close() error {
	e.sched.Close()
	e.queue.Wait()
	e.cancel()
	return nil
}
