// Package ledger holds the client-side copy of the trace-record log.
package ledger

import (
	"github.com/leapstack-labs/leapcurate/pkg/core"
)

// Ledger is an append-only collection of trace records keyed by id.
// Records keep the order in which they were first seen; that order is the
// stable tie-break used by provenance matching.
type Ledger struct {
	records []core.TraceRecord
	index   map[string]int // id -> position in records
}

// New builds a ledger from records. Later records with an id already
// present replace the earlier entry in place, so insertion order follows
// first appearance.
func New(records ...[]core.TraceRecord) *Ledger {
	l := &Ledger{index: make(map[string]int)}
	for _, batch := range records {
		l.Append(batch...)
	}
	return l
}

// Append adds records to the ledger. A record without an id cannot be
// addressed and is skipped.
func (l *Ledger) Append(records ...core.TraceRecord) {
	for _, r := range records {
		if r.ID == "" {
			continue
		}
		if i, ok := l.index[r.ID]; ok {
			// Keep the filing key from whichever copy carried one.
			if r.FiledKey == "" {
				r.FiledKey = l.records[i].FiledKey
			}
			l.records[i] = r
			continue
		}
		l.index[r.ID] = len(l.records)
		l.records = append(l.records, r)
	}
}

// Len returns the number of records.
func (l *Ledger) Len() int { return len(l.records) }

// Get returns the record with the given id.
func (l *Ledger) Get(id string) (core.TraceRecord, bool) {
	i, ok := l.index[id]
	if !ok {
		return core.TraceRecord{}, false
	}
	return l.records[i], true
}

// Records returns all records in insertion order. Callers must not modify
// the returned slice.
func (l *Ledger) Records() []core.TraceRecord { return l.records }

// CoveredCount returns the number of distinct observations, where two
// records with the same query and prediction count once.
func (l *Ledger) CoveredCount() int {
	seen := make(map[string]struct{}, len(l.records))
	for _, r := range l.records {
		seen[r.DedupKey()] = struct{}{}
	}
	return len(seen)
}

// Merge returns a new ledger holding filed followed by the records of l.
// l may be nil. A record present in both keeps the filing key.
func Merge(filed []core.TraceRecord, l *Ledger) *Ledger {
	out := New(filed)
	if l != nil {
		out.Append(l.Records()...)
	}
	return out
}
