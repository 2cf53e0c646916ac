// Package coverage estimates how much of the possibility space the trace
// log has observed.
//
// The space is the product of independent dimensions (persona, tone,
// phrasing, ...). The dimension table is configuration: it is loaded from
// config or a YAML file and is never inferred from the data.
package coverage

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/leapstack-labs/leapcurate/internal/ledger"
	"github.com/leapstack-labs/leapcurate/internal/provenance"
	"github.com/leapstack-labs/leapcurate/internal/taxonomy"
	"github.com/leapstack-labs/leapcurate/pkg/core"
)

// Expression is the display formula for the coverage rate.
const Expression = "coverage_rate = covered_count / estimated_total × 100%"

// DefaultDimensions is the table used when none is configured.
func DefaultDimensions() []core.CoverageDimension {
	return []core.CoverageDimension{
		{Key: "personas", Name: "Persona", Count: 8, Description: "Who is asking"},
		{Key: "templates", Name: "Scenario template", Count: 30, Description: "Concrete scenarios across all categories"},
		{Key: "emotions", Name: "Emotion", Count: 12, Description: "Emotional framing of the question"},
		{Key: "urgency", Name: "Urgency", Count: 6, Description: "How pressing the problem is"},
	}
}

// ErrInvalidDimension is returned for a dimension without a name, with a
// non-positive count, or for a table whose product overflows.
var ErrInvalidDimension = errors.New("invalid coverage dimension")

// ValidateDimensions checks every dimension in dims.
func ValidateDimensions(dims []core.CoverageDimension) error {
	total := 1
	for i, d := range dims {
		if strings.TrimSpace(d.Name) == "" && strings.TrimSpace(d.Key) == "" {
			return fmt.Errorf("%w: dimension %d has no name", ErrInvalidDimension, i)
		}
		if d.Count <= 0 {
			return fmt.Errorf("%w: %s has count %d", ErrInvalidDimension, label(d), d.Count)
		}
		if total > math.MaxInt/d.Count {
			return fmt.Errorf("%w: estimated total overflows at %s", ErrInvalidDimension, label(d))
		}
		total *= d.Count
	}
	return nil
}

// SortedDimensions converts a keyed table into a slice ordered by key.
// Keys fill in missing Key fields.
func SortedDimensions(byKey map[string]core.CoverageDimension) []core.CoverageDimension {
	keys := make([]string, 0, len(byKey))
	for k := range byKey {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make([]core.CoverageDimension, 0, len(keys))
	for _, k := range keys {
		d := byKey[k]
		if d.Key == "" {
			d.Key = k
		}
		out = append(out, d)
	}
	return out
}

// EstimatedTotal returns the product of dimension counts, or 0 for an
// empty table.
func EstimatedTotal(dims []core.CoverageDimension) int {
	if len(dims) == 0 {
		return 0
	}
	total := 1
	for _, d := range dims {
		total *= d.Count
	}
	return total
}

// Estimate computes coverage statistics. coveredCount is the number of
// distinct observations; service coverage counts the services of m that
// resolve to a trace record in l. m and l may be nil.
func Estimate(dims []core.CoverageDimension, coveredCount int, m *taxonomy.Model, l *ledger.Ledger) core.CoverageStats {
	total := EstimatedTotal(dims)
	stats := core.CoverageStats{
		CoveredCount:   coveredCount,
		EstimatedTotal: total,
		CoverageRate:   rate(coveredCount, total, 4),
		Dimensions:     append([]core.CoverageDimension(nil), dims...),
		Formula: core.CoverageFormula{
			Expression:            Expression,
			EstimatedTotalFormula: totalFormula(dims, total),
			Note:                  "observations are counted once per distinct query and prediction",
		},
	}

	if m == nil {
		return stats
	}

	index := provenance.NewIndex(ledger.Merge(m.FiledRecords(), l).Records())
	for _, c := range m.Categories() {
		for _, s := range c.Services {
			stats.ServiceNodeCount++
			if index.Match(s) != nil {
				stats.CoveredServiceCount++
			}
		}
	}
	stats.ServiceCoverageRate = rate(stats.CoveredServiceCount, stats.ServiceNodeCount, 2)
	return stats
}

// Compute is Estimate with the covered count taken from the records
// embedded in m together with l.
func Compute(dims []core.CoverageDimension, m *taxonomy.Model, l *ledger.Ledger) core.CoverageStats {
	var filed []core.TraceRecord
	if m != nil {
		filed = m.FiledRecords()
	}
	return Estimate(dims, ledger.Merge(filed, l).CoveredCount(), m, l)
}

// rate returns part/whole as a percentage rounded to the given number of
// decimals, or 0 when whole is 0.
func rate(part, whole, decimals int) float64 {
	if whole <= 0 {
		return 0
	}
	scale := math.Pow10(decimals)
	return math.Round(float64(part)/float64(whole)*100*scale) / scale
}

func totalFormula(dims []core.CoverageDimension, total int) string {
	if len(dims) == 0 {
		return "estimated_total = 0 (no dimensions configured)"
	}
	parts := make([]string, len(dims))
	for i, d := range dims {
		parts[i] = fmt.Sprintf("%s (%d)", label(d), d.Count)
	}
	return fmt.Sprintf("%s = %d", strings.Join(parts, " × "), total)
}

func label(d core.CoverageDimension) string {
	if d.Name != "" {
		return d.Name
	}
	return d.Key
}
