// Package provenance resolves the trace record that backs a service label.
//
// A record is a candidate for a label when its match key contains the label
// or the label contains the key. Among candidates the record with the
// greatest ISO-8601 timestamp wins; equal timestamps keep the earliest
// record in ledger order.
//
// Containment is deliberately loose: a short key such as "Tax" matches both
// "Tax Filing" and "Tax Audit". That imprecision is a known limitation and
// is kept as-is so results stay predictable.
package provenance

import (
	"strings"

	"github.com/leapstack-labs/leapcurate/pkg/core"
	"golang.org/x/text/unicode/norm"
)

type entry struct {
	key    string
	record core.TraceRecord
}

// Index is a match-ready view of a record snapshot. Keys are normalized once
// so repeated lookups against the same snapshot stay cheap.
type Index struct {
	entries []entry
}

// NewIndex indexes records in the given order. Records with an empty match
// key can never match and are left out.
func NewIndex(records []core.TraceRecord) *Index {
	ix := &Index{entries: make([]entry, 0, len(records))}
	for _, r := range records {
		key := normalize(r.MatchKey())
		if key == "" {
			continue
		}
		ix.entries = append(ix.entries, entry{key: key, record: r})
	}
	return ix
}

// Match returns the best record for label, or nil when nothing matches.
func (ix *Index) Match(label string) *core.TraceRecord {
	l := normalize(label)
	if l == "" {
		return nil
	}

	best := -1
	for i, e := range ix.entries {
		if !strings.Contains(l, e.key) && !strings.Contains(e.key, l) {
			continue
		}
		if best < 0 || e.record.Timestamp > ix.entries[best].record.Timestamp {
			best = i
		}
	}
	if best < 0 {
		return nil
	}
	r := ix.entries[best].record
	return &r
}

// Match is a convenience for a one-off lookup against records.
func Match(label string, records []core.TraceRecord) *core.TraceRecord {
	return NewIndex(records).Match(label)
}

func normalize(s string) string {
	return norm.NFC.String(strings.TrimSpace(s))
}
