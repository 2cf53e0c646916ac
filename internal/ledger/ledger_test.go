package ledger

import (
	"testing"

	"github.com/leapstack-labs/leapcurate/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLedger_AppendKeepsFirstOrder(t *testing.T) {
	l := New([]core.TraceRecord{
		{ID: "a", Query: "q1"},
		{ID: "b", Query: "q2"},
	})
	l.Append(core.TraceRecord{ID: "a", Query: "q1-updated"}, core.TraceRecord{ID: "c"})

	require.Equal(t, 3, l.Len())
	var ids []string
	for _, r := range l.Records() {
		ids = append(ids, r.ID)
	}
	assert.Equal(t, []string{"a", "b", "c"}, ids)

	r, ok := l.Get("a")
	require.True(t, ok)
	assert.Equal(t, "q1-updated", r.Query)
}

func TestLedger_SkipsRecordsWithoutID(t *testing.T) {
	l := New([]core.TraceRecord{{Query: "orphan"}})
	assert.Equal(t, 0, l.Len())
}

func TestLedger_AppendPreservesFiledKey(t *testing.T) {
	l := New([]core.TraceRecord{{ID: "a", FiledKey: "Tax Filing"}})
	l.Append(core.TraceRecord{ID: "a", AIPrediction: "Tax"})

	r, _ := l.Get("a")
	assert.Equal(t, "Tax Filing", r.FiledKey)
	assert.Equal(t, "Tax Filing", r.MatchKey())
}

func TestLedger_CoveredCountDeduplicates(t *testing.T) {
	l := New([]core.TraceRecord{
		{ID: "1", Query: "how to file", AIPrediction: "Tax"},
		{ID: "2", Query: "how to file", AIPrediction: "Tax"},
		{ID: "3", Query: "how to file", AIPrediction: "Leave"},
	})
	assert.Equal(t, 2, l.CoveredCount())
	assert.Equal(t, 0, New().CoveredCount())
}

func TestMerge(t *testing.T) {
	filed := []core.TraceRecord{{ID: "a", FiledKey: "Tax Filing", Query: "q1"}}
	l := New([]core.TraceRecord{
		{ID: "b", Query: "q2"},
		{ID: "a", Query: "q1-updated"},
	})

	m := Merge(filed, l)
	require.Equal(t, 2, m.Len())

	a, ok := m.Get("a")
	require.True(t, ok)
	assert.Equal(t, "Tax Filing", a.FiledKey)
	assert.Equal(t, "q1-updated", a.Query)
	assert.Equal(t, "a", m.Records()[0].ID)

	assert.Equal(t, 1, Merge(filed, nil).Len())
	assert.Equal(t, 2, l.Len(), "inputs are not modified")
}
