// Package metrics declares the prometheus collectors exported on /metrics.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "leapcurate"

// Result labels.
const (
	ResultOK    = "ok"
	ResultError = "error"
	ResultStale = "stale"
)

var (
	// FetchTotal counts backend fetches.
	// Labels: resource (queue, taxonomy, logs, batch, coverage), result (ok, error)
	FetchTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "refresh",
		Name:      "fetch_total",
		Help:      "Backend fetches by resource and result",
	}, []string{"resource", "result"})

	// FetchDuration measures backend fetch latency.
	FetchDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "refresh",
		Name:      "fetch_duration_seconds",
		Help:      "Backend fetch latency in seconds",
		Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
	}, []string{"resource"})

	// StaleDiscards counts fetch results dropped because a newer request was issued.
	StaleDiscards = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "refresh",
		Name:      "stale_discards_total",
		Help:      "Fetch results discarded as stale",
	}, []string{"resource"})

	// TriggersCoalesced counts triggers absorbed by the debounce window.
	TriggersCoalesced = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "refresh",
		Name:      "triggers_coalesced_total",
		Help:      "Refresh triggers merged into a pending refresh",
	}, []string{"resource"})

	// BusEvents counts published bus events.
	BusEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "bus",
		Name:      "events_total",
		Help:      "Events published on the refresh bus",
	}, []string{"topic"})

	// BusDropped counts deliveries skipped because a subscriber buffer was full.
	BusDropped = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "bus",
		Name:      "dropped_total",
		Help:      "Event deliveries dropped for slow subscribers",
	}, []string{"topic"})

	// TriageOutcomes counts triage decisions sent to the backend.
	// Labels: outcome (approved, corrected, rejected), result (ok, error)
	TriageOutcomes = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "triage",
		Name:      "outcomes_total",
		Help:      "Triage outcomes by kind and delivery result",
	}, []string{"outcome", "result"})

	// TriageUnresolved is the number of unresolved items in the local queue.
	TriageUnresolved = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "triage",
		Name:      "unresolved_items",
		Help:      "Candidate items not yet triaged",
	})

	// BatchCommands counts batch job commands.
	// Labels: command (start, pause, resume, cancel), result (ok, error, rejected)
	BatchCommands = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "batch",
		Name:      "commands_total",
		Help:      "Batch job commands by result",
	}, []string{"command", "result"})

	// CoverageRate is the last computed coverage rate in percent.
	CoverageRate = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "coverage",
		Name:      "rate_percent",
		Help:      "Last computed coverage rate",
	}, []string{"kind"})
)

// ObserveFetch records one fetch of resource.
func ObserveFetch(resource string, started time.Time, err error) {
	FetchDuration.WithLabelValues(resource).Observe(time.Since(started).Seconds())
	FetchTotal.WithLabelValues(resource, Result(err)).Inc()
}

// Result maps err to a result label.
func Result(err error) string {
	if err != nil {
		return ResultError
	}
	return ResultOK
}
