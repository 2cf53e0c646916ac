package graph

import (
	"fmt"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/leapstack-labs/leapcurate/internal/layout"
	"github.com/leapstack-labs/leapcurate/internal/ledger"
	"github.com/leapstack-labs/leapcurate/internal/taxonomy"
	"github.com/leapstack-labs/leapcurate/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func payroll() core.Taxonomy {
	return core.Taxonomy{Categories: []core.Category{
		{Name: "Payroll", Services: []string{"Leave Policy", "Tax Filing"}},
	}}
}

// buildTaxonomy validates t and builds its graph.
func buildTaxonomy(t core.Taxonomy, rootLabel string, l *ledger.Ledger, opts layout.Options) (core.Graph, error) {
	m, err := taxonomy.New(t, rootLabel)
	if err != nil {
		return core.Graph{}, err
	}
	return Build(m, l, opts)
}

func TestBuild_PayrollEndToEnd(t *testing.T) {
	records := ledger.New([]core.TraceRecord{
		{ID: "r1", AIPrediction: "Tax Filing", Timestamp: "2024-05-01T10:00:00"},
		{ID: "r2", AIPrediction: "Tax", Timestamp: "2024-05-02T10:00:00"},
	})

	got, err := buildTaxonomy(payroll(), "", records, layout.DefaultOptions())
	require.NoError(t, err)

	r2, _ := records.Get("r2")
	want := core.Graph{
		Orientation: core.TopDown,
		Nodes: []core.GraphNode{
			{ID: "root", Kind: core.KindRoot, Label: "Taxonomy", Rank: 0, Position: core.Position{X: 135, Y: 0}},
			{ID: "cat-0", Kind: core.KindCategory, Label: "Payroll", Rank: 1, Position: core.Position{X: 135, Y: 130}},
			{ID: "svc-0-0", Kind: core.KindService, Label: "Leave Policy", Rank: 2, Position: core.Position{X: 0, Y: 260}},
			{ID: "svc-0-1", Kind: core.KindService, Label: "Tax Filing", Rank: 2, Position: core.Position{X: 270, Y: 260}, Provenance: &r2},
		},
		Edges: []core.GraphEdge{
			{ID: "e-root-cat-0", Source: "root", Target: "cat-0"},
			{ID: "e-cat-0-svc-0-0", Source: "cat-0", Target: "svc-0-0"},
			{ID: "e-cat-0-svc-0-1", Source: "cat-0", Target: "svc-0-1"},
		},
		Width:  490,
		Height: 340,
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Build() mismatch (-want +got):\n%s", diff)
	}
}

func TestBuild_CountsAndRanks(t *testing.T) {
	tax := core.Taxonomy{Categories: []core.Category{
		{Name: "Payroll", Services: []string{"Tax", "Leave", "Bonus"}},
		{Name: "Recruiting", Services: []string{"Job Posting"}},
		{Name: "Empty"},
		{Name: "Compliance", Services: []string{"Tax"}},
	}}

	g, err := buildTaxonomy(tax, "HR", nil, layout.DefaultOptions())
	require.NoError(t, err)

	assert.Len(t, g.Nodes, 1+len(tax.Categories)+tax.ServiceCount())
	assert.Len(t, g.Edges, len(g.Nodes)-1)

	ranks := make(map[string]int, len(g.Nodes))
	ids := make(map[string]bool, len(g.Nodes))
	for _, n := range g.Nodes {
		assert.False(t, ids[n.ID], "duplicate node id %s", n.ID)
		ids[n.ID] = true
		ranks[n.ID] = n.Rank
	}

	parents := make(map[string]int)
	for _, e := range g.Edges {
		parents[e.Target]++
		assert.Equal(t, ranks[e.Source]+1, ranks[e.Target], "edge %s", e.ID)
	}
	for id := range ids {
		if id == RootID {
			assert.Zero(t, parents[id])
			continue
		}
		assert.Equal(t, 1, parents[id], "node %s parents", id)
	}

	root, ok := g.Node(RootID)
	require.True(t, ok)
	assert.Equal(t, "HR", root.Label)
	assert.Equal(t, []string{"svc-0-0", "svc-0-1", "svc-0-2"}, g.Children("cat-0"))
}

func TestBuild_SharedServiceLabelsGetDistinctIDs(t *testing.T) {
	tax := core.Taxonomy{Categories: []core.Category{
		{Name: "Payroll", Services: []string{"Tax"}},
		{Name: "Compliance", Services: []string{"Tax"}},
	}}
	g, err := buildTaxonomy(tax, "", nil, layout.DefaultOptions())
	require.NoError(t, err)

	a, ok := g.Node(ServiceID(0, 0))
	require.True(t, ok)
	b, ok := g.Node(ServiceID(1, 0))
	require.True(t, ok)
	assert.Equal(t, a.Label, b.Label)
	assert.NotEqual(t, a.ID, b.ID)
}

func TestBuild_Deterministic(t *testing.T) {
	tax := core.Taxonomy{Categories: []core.Category{
		{Name: "B", Services: []string{"x", "y"}},
		{Name: "A", Services: []string{"z"}},
	}}
	var records []core.TraceRecord
	for i := 0; i < 10; i++ {
		records = append(records, core.TraceRecord{
			ID:           fmt.Sprintf("r%d", i),
			AIPrediction: []string{"x", "y", "z"}[i%3],
			Timestamp:    "2024-01-01",
		})
	}

	first, err := buildTaxonomy(tax, "", ledger.New(records), layout.DefaultOptions())
	require.NoError(t, err)
	for i := 0; i < 20; i++ {
		again, err := buildTaxonomy(tax, "", ledger.New(records), layout.DefaultOptions())
		require.NoError(t, err)
		if diff := cmp.Diff(first, again); diff != "" {
			t.Fatalf("build %d differs (-first +again):\n%s", i, diff)
		}
	}
}

func TestBuild_LeftRight(t *testing.T) {
	opts := layout.DefaultOptions()
	opts.Orientation = core.LeftRight

	g, err := buildTaxonomy(payroll(), "", nil, opts)
	require.NoError(t, err)

	assert.Equal(t, core.LeftRight, g.Orientation)
	svc, _ := g.Node("svc-0-1")
	assert.Equal(t, core.Position{X: 540, Y: 130}, svc.Position)
	assert.Equal(t, float64(760), g.Width)
	assert.Equal(t, float64(210), g.Height)
}

func TestBuild_DuplicateName(t *testing.T) {
	tax := core.Taxonomy{Categories: []core.Category{
		{Name: "Payroll", Services: []string{"Tax", "Tax"}},
	}}
	_, err := buildTaxonomy(tax, "", nil, layout.DefaultOptions())

	var dup *core.DuplicateNameError
	require.ErrorAs(t, err, &dup)
	assert.Equal(t, "Tax", dup.Name)
	assert.Equal(t, core.LevelService, dup.Level)
	assert.Equal(t, "Payroll", dup.Parent)
}

func TestBuild_EmptyName(t *testing.T) {
	tax := core.Taxonomy{Categories: []core.Category{{Name: ""}}}
	_, err := buildTaxonomy(tax, "", nil, layout.DefaultOptions())
	assert.ErrorIs(t, err, core.ErrEmptyName)
}

func TestBuild_EmbeddedRecordsWinOverPredictionKey(t *testing.T) {
	tax := core.Taxonomy{Categories: []core.Category{{
		Name:     "Payroll",
		Services: []string{"Leave Policy"},
		TraceRecords: map[string][]core.TraceRecord{
			"Leave Policy": {{ID: "filed", AIPrediction: "Something Else", Timestamp: "2024-01-01"}},
		},
	}}}

	g, err := buildTaxonomy(tax, "", ledger.New(), layout.DefaultOptions())
	require.NoError(t, err)

	svc, _ := g.Node("svc-0-0")
	require.NotNil(t, svc.Provenance)
	assert.Equal(t, "filed", svc.Provenance.ID)
}

func TestBuild_InvalidOptions(t *testing.T) {
	opts := layout.DefaultOptions()
	opts.NodeWidth = 0
	_, err := buildTaxonomy(payroll(), "", nil, opts)
	assert.Error(t, err)
}
