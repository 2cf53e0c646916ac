package server

import (
	"bufio"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/leapstack-labs/leapcurate/internal/backend"
	"github.com/leapstack-labs/leapcurate/internal/engine"
	"github.com/leapstack-labs/leapcurate/internal/testutil"
	"github.com/leapstack-labs/leapcurate/internal/triage"
	"github.com/leapstack-labs/leapcurate/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	fake   *testutil.FakeBackend
	engine *engine.Engine
	srv    *httptest.Server
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	fake := testutil.NewFakeBackend(t)
	fake.Taxonomy = core.Taxonomy{Categories: []core.Category{
		{Name: "Payroll", Services: []string{"Leave Policy", "Tax Filing"}},
	}}
	fake.Queue = []core.CandidateItem{
		{ID: "c1", Question: "Is bonus taxable?"},
		{ID: "c2", Question: "How much leave?"},
	}

	logger := testutil.NewTestLogger(t)
	eng, err := engine.New(engine.Config{
		Backend: backend.New(fake.URL(), backend.WithRetries(0, 0)),
		Logger:  logger,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = eng.Close() })

	srv := httptest.NewServer(NewServer(Config{Engine: eng, Logger: logger}).Handler())
	t.Cleanup(srv.Close)
	return &fixture{fake: fake, engine: eng, srv: srv}
}

func (f *fixture) do(t *testing.T, method, path, body string) (*http.Response, map[string]any) {
	t.Helper()
	req, err := http.NewRequest(method, f.srv.URL+path, strings.NewReader(body))
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var out map[string]any
	_ = json.NewDecoder(resp.Body).Decode(&out)
	return resp, out
}

func TestGraph(t *testing.T) {
	f := newFixture(t)

	resp, _ := f.do(t, http.MethodGet, "/api/graph", "")
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)

	require.NoError(t, f.engine.Refresh(engine.ResourceTaxonomy))

	resp, body := f.do(t, http.MethodGet, "/api/graph?orientation=LR", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "LR", body["orientation"])
	assert.Len(t, body["nodes"], 4)
	assert.Len(t, body["edges"], 3)

	resp, _ = f.do(t, http.MethodGet, "/api/graph?orientation=diagonal", "")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestCoverage(t *testing.T) {
	f := newFixture(t)

	resp, body := f.do(t, http.MethodGet, "/api/coverage", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.EqualValues(t, 17280, body["estimated_total"])

	resp, _ = f.do(t, http.MethodGet, "/api/coverage?source=remote", "")
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}

func TestQueueRoutes(t *testing.T) {
	f := newFixture(t)

	resp, _ := f.do(t, http.MethodPost, "/api/queue/confirm", "")
	assert.Equal(t, http.StatusConflict, resp.StatusCode, "empty queue allows only reload")

	resp, body := f.do(t, http.MethodPost, "/api/queue/reload", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.EqualValues(t, 2, body["unresolved"])

	resp, _ = f.do(t, http.MethodPost, "/api/queue/edit", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, _ = f.do(t, http.MethodPost, "/api/queue/reject", "")
	assert.Equal(t, http.StatusConflict, resp.StatusCode, "reject is blocked while editing")

	resp, body = f.do(t, http.MethodPost, "/api/queue/save", `{"text":"Is a bonus taxable income?"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.EqualValues(t, 1, body["unresolved"])

	f.engine.Queue().Wait()
	assert.Equal(t, core.OutcomeCorrected, f.fake.Decision("c1"))

	resp, _ = f.do(t, http.MethodPost, "/api/queue/teleport", "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, body = f.do(t, http.MethodGet, "/api/queue/current", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	current := body["current"].(map[string]any)
	assert.Equal(t, "c2", current["id"])
	assert.Equal(t, string(triage.StatePending), current["state"])
}

func TestBatchRoutes(t *testing.T) {
	f := newFixture(t)
	f.fake.Batch.State = core.JobRunning

	resp, _ := f.do(t, http.MethodPost, "/api/batch/pause", "")
	assert.Equal(t, http.StatusConflict, resp.StatusCode, "no command before the first poll")

	require.NoError(t, f.engine.Batch().Poll(context.Background()))

	resp, _ = f.do(t, http.MethodPost, "/api/batch/resume", "")
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Zero(t, f.fake.CallCount(http.MethodPost, "/api/batch/resume"))

	resp, body := f.do(t, http.MethodPost, "/api/batch/pause", "")
	require.Equal(t, http.StatusAccepted, resp.StatusCode)
	assert.Equal(t, true, body["pending"])

	resp, body = f.do(t, http.MethodGet, "/api/batch", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Empty(t, body["allowed"])

	resp, _ = f.do(t, http.MethodPost, "/api/batch/explode", "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestMetricsAndHealth(t *testing.T) {
	f := newFixture(t)

	resp, body := f.do(t, http.MethodGet, "/healthz", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok", body["status"])

	resp, err := http.Get(f.srv.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestUpdatesStreamsSignals(t *testing.T) {
	f := newFixture(t)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.srv.URL+"/updates", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Contains(t, resp.Header.Get("Content-Type"), "text/event-stream")

	lines := bufio.NewScanner(resp.Body)
	readEvent := func() string {
		var b strings.Builder
		for lines.Scan() {
			line := lines.Text()
			if line == "" && b.Len() > 0 {
				return b.String()
			}
			b.WriteString(line)
			b.WriteString("\n")
		}
		return b.String()
	}

	first := readEvent()
	assert.Contains(t, first, "datastar-patch-signals")
	assert.Contains(t, first, `"source":"server"`)

	f.engine.Notify(core.Notice{Level: core.NoticeInfo, Source: "test", Message: "hello"})
	next := readEvent()
	assert.Contains(t, next, `"topic":"notice.posted"`)
	assert.Contains(t, next, `"notices":1`)
}
