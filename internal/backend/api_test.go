package backend

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/leapstack-labs/leapcurate/internal/testutil"
	"github.com/leapstack-labs/leapcurate/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newClient(t *testing.T) (*Client, *testutil.FakeBackend) {
	t.Helper()
	fake := testutil.NewFakeBackend(t)
	return New(fake.URL(), WithLogger(testutil.NewTestLogger(t)), WithRetries(0, 0)), fake
}

func TestQueueAndDecisions(t *testing.T) {
	c, fake := newClient(t)
	fake.Queue = []core.CandidateItem{
		{ID: "c1", Question: "How is overtime taxed?", Confidence: 0.8, NextNodes: []string{"Tax Filing"}},
		{ID: "c2", Question: "Can I carry over leave?"},
	}
	ctx := context.Background()

	items, err := c.Queue(ctx)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, []string{"Tax Filing"}, items[0].NextNodes)

	require.NoError(t, c.Approve(ctx, items[0]))
	edited := items[1]
	edited.Question = "Can unused leave be carried over?"
	require.NoError(t, c.Correct(ctx, edited))

	assert.Equal(t, core.OutcomeApproved, fake.Decision("c1"))
	assert.Equal(t, core.OutcomeCorrected, fake.Decision("c2"))

	var body core.CandidateItem
	calls := fake.Calls()
	require.NoError(t, json.Unmarshal([]byte(calls[len(calls)-1].Body), &body))
	assert.Equal(t, edited.Question, body.Question)

	require.NoError(t, c.Reject(ctx, core.CandidateItem{ID: "c3"}))
	assert.Equal(t, core.OutcomeRejected, fake.Decision("c3"))
}

func TestQueue_LooseDecoding(t *testing.T) {
	c, fake := newClient(t)
	fake.RespondRaw(PathQueue, `{"items":[
		{"id":"c1","confidence":"0.75","next_nodes":null,"unknown":true},
		"not an object",
		{"id":"c2"}
	]}`)

	items, err := c.Queue(context.Background())
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.InDelta(t, 0.75, items[0].Confidence, 1e-9)
	assert.Nil(t, items[0].NextNodes)
	assert.Equal(t, "c2", items[1].ID)
}

func TestSetTask(t *testing.T) {
	c, fake := newClient(t)
	require.NoError(t, c.SetTask(context.Background(), "payroll for startups"))
	assert.Equal(t, "payroll for startups", fake.CurrentTask())
}

func TestTaxonomy_WithEmbeddedRecords(t *testing.T) {
	c, fake := newClient(t)
	fake.RespondRaw(PathTaxonomy, `{"taxonomy":[{
		"name":"Payroll",
		"services":["Tax Filing"],
		"trace_records":{"Tax":[{"id":"r1","timestamp":"2024-01-01","confidence":1,"diagnosis_correct":true,
			"dialogue_path":[{"step":1,"role":"human","content":"hi"}]}]}
	}]}`)

	tax, err := c.Taxonomy(context.Background())
	require.NoError(t, err)
	require.Len(t, tax.Categories, 1)

	recs := tax.Categories[0].TraceRecords["Tax"]
	require.Len(t, recs, 1)
	assert.Equal(t, "r1", recs[0].ID)
	require.NotNil(t, recs[0].DiagnosisCorrect)
	assert.True(t, *recs[0].DiagnosisCorrect)
	assert.Equal(t, core.RoleHuman, recs[0].DialoguePath[0].Role)
	assert.Empty(t, recs[0].FiledKey)
}

func TestTaxonomyMutations(t *testing.T) {
	c, fake := newClient(t)
	fake.Taxonomy = core.Taxonomy{Categories: []core.Category{
		{Name: "Payroll", Services: []string{"Tax Filing"}},
		{Name: "Recruiting"},
	}}
	ctx := context.Background()

	res, err := c.AddService(ctx, "Payroll", "Leave Policy")
	require.NoError(t, err)
	assert.Equal(t, core.MutationSuccess, res.Status)

	res, err = c.AddService(ctx, "Payroll", "Leave Policy")
	require.NoError(t, err)
	assert.Equal(t, core.MutationSkipped, res.Status)
	assert.True(t, res.OK())

	_, err = c.RenameCategory(ctx, "Payroll", "Recruiting")
	assert.ErrorIs(t, err, ErrRejected)
	assert.False(t, IsTransient(err))

	_, err = c.RenameCategory(ctx, "Payroll", "Compensation")
	require.NoError(t, err)

	_, err = c.DeleteCategory(ctx, "Recruiting")
	require.NoError(t, err)

	tax, err := c.Taxonomy(ctx)
	require.NoError(t, err)
	require.Len(t, tax.Categories, 1)
	assert.Equal(t, "Compensation", tax.Categories[0].Name)
	assert.Equal(t, []string{"Tax Filing", "Leave Policy"}, tax.Categories[0].Services)
}

func TestLogsInboxIngest(t *testing.T) {
	c, fake := newClient(t)
	fake.Inbox = []core.TraceRecord{{ID: "i1", Query: "q", AIPrediction: "Tax", Status: "pending"}}
	ctx := context.Background()

	inbox, err := c.Inbox(ctx)
	require.NoError(t, err)
	require.Len(t, inbox, 1)

	res, err := c.BatchIngest(ctx, []core.IngestItem{{ID: "i1", Domain: "hr"}})
	require.NoError(t, err)
	assert.Equal(t, 1, res.IngestedCount)
	assert.Equal(t, []string{"i1"}, res.IngestedIDs)

	logs, err := c.KnowledgeLogs(ctx)
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, "imported", logs[0].Status)

	fake.RespondRaw(PathKnowledgeLogs, `{"total":1,"records":[{"id":"k1"}]}`)
	logs, err = c.KnowledgeLogs(ctx)
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, "k1", logs[0].ID)
}

func TestCoverage_KeyedDimensions(t *testing.T) {
	c, fake := newClient(t)
	fake.RespondRaw(PathCoverage, `{
		"coverage_rate": 5,
		"covered_count": 15,
		"estimated_total": 300,
		"service_node_count": "4",
		"formula": {"expression": "x", "estimated_total_formula": "y"},
		"dimensions": {
			"tone": {"name": "Tone", "count": 3, "description": "register"},
			"persona": {"name": "Persona", "count": 5, "description": "who"}
		},
		"categories": []
	}`)

	stats, err := c.Coverage(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 300, stats.EstimatedTotal)
	assert.Equal(t, 4, stats.ServiceNodeCount)
	assert.Equal(t, "x", stats.Formula.Expression)
	require.Len(t, stats.Dimensions, 2)
	assert.Equal(t, "persona", stats.Dimensions[0].Key)
	assert.Equal(t, 5, stats.Dimensions[0].Count)
}

func TestCoverage_ListDimensions(t *testing.T) {
	c, fake := newClient(t)
	fake.Coverage = core.CoverageStats{
		CoveredCount: 1,
		Dimensions:   []core.CoverageDimension{{Key: "p", Name: "P", Count: 2}},
	}

	stats, err := c.Coverage(context.Background())
	require.NoError(t, err)
	assert.Equal(t, fake.Coverage.Dimensions, stats.Dimensions)
}

func TestSimulation(t *testing.T) {
	c, _ := newClient(t)
	ctx := context.Background()

	start, err := c.SimulationStart(ctx, "hr")
	require.NoError(t, err)
	assert.Equal(t, "hr", start["domain"])

	next, err := c.SimulationNext(ctx)
	require.NoError(t, err)
	assert.Equal(t, "running", next["status"])
}

func TestBatch(t *testing.T) {
	c, fake := newClient(t)
	ctx := context.Background()

	st, err := c.BatchStatus(ctx)
	require.NoError(t, err)
	assert.Equal(t, core.JobIdle, st.State)

	require.NoError(t, c.BatchStart(ctx, core.BatchConfig{BatchSize: 10, Domain: "hr"}))
	assert.Contains(t, fake.Calls()[len(fake.Calls())-1].Body, `"batch_size":10`)

	err = c.BatchResume(ctx)
	assert.ErrorIs(t, err, ErrRejected)

	require.NoError(t, c.BatchPause(ctx))
	require.NoError(t, c.BatchResume(ctx))
	require.NoError(t, c.BatchCancel(ctx))

	st, err = c.BatchStatus(ctx)
	require.NoError(t, err)
	assert.Equal(t, core.JobCancelled, st.State)
}

func TestBatchStatus_Unavailable(t *testing.T) {
	c, fake := newClient(t)
	fake.BatchAvailable = false

	st, err := c.BatchStatus(context.Background())
	require.NoError(t, err)
	assert.Equal(t, core.JobUnavailable, st.State)

	fake.RespondRaw(PathBatchStatus, `{"state":"exploded"}`)
	st, err = c.BatchStatus(context.Background())
	require.NoError(t, err)
	assert.Equal(t, core.JobUnavailable, st.State)
}

func TestFailureStatus(t *testing.T) {
	c, fake := newClient(t)
	fake.FailWith(PathQueue, http.StatusServiceUnavailable)

	_, err := c.Queue(context.Background())
	require.Error(t, err)
	assert.True(t, IsTransient(err))
}
