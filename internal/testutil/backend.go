package testutil

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/leapstack-labs/leapcurate/pkg/core"
)

// Call is one request received by FakeBackend.
type Call struct {
	Method string
	Path   string
	Body   string
}

// FakeBackend is an in-memory curation backend served over httptest.
// Fields may be set directly before requests are made; use Lock/Unlock
// when changing them while a client is running.
type FakeBackend struct {
	Server *httptest.Server

	mu    sync.Mutex
	calls []Call
	fail  map[string]int
	raw   map[string]string

	Taxonomy       core.Taxonomy
	Queue          []core.CandidateItem
	Logs           []core.TraceRecord
	Inbox          []core.TraceRecord
	Coverage       core.CoverageStats
	Batch          core.BatchStatus
	BatchAvailable bool
	Task           string
	Decisions      map[string]core.Outcome
}

// NewFakeBackend starts a fake backend that is closed with the test.
func NewFakeBackend(t testing.TB) *FakeBackend {
	t.Helper()
	f := &FakeBackend{
		fail:           make(map[string]int),
		raw:            make(map[string]string),
		Batch:          core.BatchStatus{State: core.JobIdle},
		BatchAvailable: true,
		Decisions:      make(map[string]core.Outcome),
	}

	r := chi.NewRouter()
	r.Use(f.record)
	r.Get("/api/queue", f.getQueue)
	r.Post("/api/set_task", f.setTask)
	r.Post("/api/approve/{id}", f.decide(core.OutcomeApproved))
	r.Post("/api/correct/{id}", f.decide(core.OutcomeCorrected))
	r.Post("/api/reject/{id}", f.decide(core.OutcomeRejected))
	r.Get("/api/taxonomy", f.getTaxonomy)
	r.Post("/api/taxonomy/add", f.addService)
	r.Put("/api/taxonomy/category", f.renameCategory)
	r.Delete("/api/taxonomy/category", f.deleteCategory)
	r.Get("/api/knowledge/logs", f.list(func() any { return f.Logs }))
	r.Get("/api/etl/inbox", f.list(func() any { return f.Inbox }))
	r.Post("/api/etl/batch_ingest", f.ingest)
	r.Get("/api/coverage", f.list(func() any { return f.Coverage }))
	r.Post("/api/start", f.simStart)
	r.Post("/api/next", f.simNext)
	r.Get("/api/batch/status", f.batchStatus)
	r.Post("/api/batch/{command}", f.batchCommand)

	f.Server = httptest.NewServer(r)
	t.Cleanup(f.Server.Close)
	return f
}

// URL returns the base URL of the fake backend.
func (f *FakeBackend) URL() string { return f.Server.URL }

// Lock locks the fake's state.
func (f *FakeBackend) Lock() { f.mu.Lock() }

// Unlock unlocks the fake's state.
func (f *FakeBackend) Unlock() { f.mu.Unlock() }

// FailWith makes every request to path answer status until cleared with 0.
func (f *FakeBackend) FailWith(path string, status int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if status == 0 {
		delete(f.fail, path)
		return
	}
	f.fail[path] = status
}

// RespondRaw makes path answer body verbatim with status 200.
func (f *FakeBackend) RespondRaw(path, body string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.raw[path] = body
}

// Calls returns the requests received so far.
func (f *FakeBackend) Calls() []Call {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Call(nil), f.calls...)
}

// CallCount counts requests with method whose path starts with prefix.
// An empty method matches any method.
func (f *FakeBackend) CallCount(method, prefix string) int {
	n := 0
	for _, c := range f.Calls() {
		if (method == "" || c.Method == method) && strings.HasPrefix(c.Path, prefix) {
			n++
		}
	}
	return n
}

func (f *FakeBackend) record(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		_ = r.Body.Close()
		r.Body = io.NopCloser(strings.NewReader(string(body)))

		f.mu.Lock()
		f.calls = append(f.calls, Call{Method: r.Method, Path: r.URL.Path, Body: string(body)})
		status, failing := f.fail[r.URL.Path]
		raw, hasRaw := f.raw[r.URL.Path]
		f.mu.Unlock()

		switch {
		case failing:
			http.Error(w, `{"detail":"injected failure"}`, status)
		case hasRaw:
			w.Header().Set("Content-Type", "application/json")
			_, _ = io.WriteString(w, raw)
		default:
			next.ServeHTTP(w, r)
		}
	})
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func readJSON(r *http.Request, v any) error {
	return json.NewDecoder(r.Body).Decode(v)
}

func (f *FakeBackend) list(get func() any) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		f.mu.Lock()
		v := get()
		f.mu.Unlock()
		writeJSON(w, v)
	}
}

func (f *FakeBackend) getQueue(w http.ResponseWriter, _ *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	items := f.Queue
	if items == nil {
		items = []core.CandidateItem{}
	}
	writeJSON(w, items)
}

func (f *FakeBackend) setTask(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Context string `json:"context"`
	}
	if err := readJSON(r, &req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	f.mu.Lock()
	f.Task = req.Context
	f.mu.Unlock()
	writeJSON(w, map[string]string{"status": "success"})
}

func (f *FakeBackend) decide(outcome core.Outcome) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		f.mu.Lock()
		defer f.mu.Unlock()
		f.Decisions[id] = outcome
		for i, item := range f.Queue {
			if item.ID == id {
				f.Queue = append(f.Queue[:i:i], f.Queue[i+1:]...)
				break
			}
		}
		writeJSON(w, map[string]string{"status": "success"})
	}
}

func (f *FakeBackend) getTaxonomy(w http.ResponseWriter, _ *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	cats := f.Taxonomy.Categories
	if cats == nil {
		cats = []core.Category{}
	}
	writeJSON(w, map[string]any{"taxonomy": cats})
}

func (f *FakeBackend) addService(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Category string `json:"category"`
		Service  string `json:"service"`
	}
	if err := readJSON(r, &req); err != nil || req.Category == "" || req.Service == "" {
		writeJSON(w, core.MutationResult{Status: core.MutationError, Message: "category and service are required"})
		return
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	for i, c := range f.Taxonomy.Categories {
		if c.Name != req.Category {
			continue
		}
		if c.HasService(req.Service) {
			writeJSON(w, core.MutationResult{Status: core.MutationSkipped, Message: "service already exists"})
			return
		}
		f.Taxonomy.Categories[i].Services = append(c.Services, req.Service)
		writeJSON(w, core.MutationResult{Status: core.MutationSuccess})
		return
	}
	f.Taxonomy.Categories = append(f.Taxonomy.Categories, core.Category{Name: req.Category, Services: []string{req.Service}})
	writeJSON(w, core.MutationResult{Status: core.MutationSuccess})
}

func (f *FakeBackend) renameCategory(w http.ResponseWriter, r *http.Request) {
	var req struct {
		OldName string `json:"old_name"`
		NewName string `json:"new_name"`
	}
	if err := readJSON(r, &req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if _, exists := f.Taxonomy.Category(req.NewName); exists {
		writeJSON(w, core.MutationResult{Status: core.MutationError, Message: "category already exists"})
		return
	}
	for i, c := range f.Taxonomy.Categories {
		if c.Name == req.OldName {
			f.Taxonomy.Categories[i].Name = req.NewName
			writeJSON(w, core.MutationResult{Status: core.MutationSuccess})
			return
		}
	}
	writeJSON(w, core.MutationResult{Status: core.MutationError, Message: "category not found"})
}

func (f *FakeBackend) deleteCategory(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name string `json:"category_name"`
	}
	if err := readJSON(r, &req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	for i, c := range f.Taxonomy.Categories {
		if c.Name == req.Name {
			f.Taxonomy.Categories = append(f.Taxonomy.Categories[:i:i], f.Taxonomy.Categories[i+1:]...)
			writeJSON(w, core.MutationResult{Status: core.MutationSuccess})
			return
		}
	}
	writeJSON(w, core.MutationResult{Status: core.MutationError, Message: "category not found"})
}

func (f *FakeBackend) ingest(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Items []core.IngestItem `json:"items"`
	}
	if err := readJSON(r, &req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	res := core.MutationResult{Status: core.MutationSuccess}
	for _, item := range req.Items {
		for i, rec := range f.Inbox {
			if rec.ID != item.ID {
				continue
			}
			rec.Status = "imported"
			f.Inbox[i] = rec
			f.Logs = append(f.Logs, rec)
			res.IngestedIDs = append(res.IngestedIDs, rec.ID)
			res.IngestedCount++
		}
	}
	writeJSON(w, res)
}

func (f *FakeBackend) simStart(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Domain string `json:"domain"`
	}
	_ = readJSON(r, &req)
	writeJSON(w, map[string]any{"status": "started", "domain": req.Domain, "mission": "fake mission"})
}

func (f *FakeBackend) simNext(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, map[string]any{"status": "running", "step": 1})
}

func (f *FakeBackend) batchStatus(w http.ResponseWriter, _ *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.BatchAvailable {
		writeJSON(w, map[string]bool{"available": false})
		return
	}
	writeJSON(w, f.Batch)
}

func (f *FakeBackend) batchCommand(w http.ResponseWriter, r *http.Request) {
	command := chi.URLParam(r, "command")

	f.mu.Lock()
	defer f.mu.Unlock()

	from := map[string][]core.JobState{
		"start":  {core.JobIdle, core.JobCompleted, core.JobCancelled},
		"pause":  {core.JobRunning},
		"resume": {core.JobPaused},
		"cancel": {core.JobRunning, core.JobPaused},
	}
	to := map[string]core.JobState{
		"start":  core.JobRunning,
		"pause":  core.JobPaused,
		"resume": core.JobRunning,
		"cancel": core.JobCancelled,
	}

	allowed, ok := from[command]
	if !ok {
		http.NotFound(w, r)
		return
	}
	for _, s := range allowed {
		if f.Batch.State == s {
			f.Batch.State = to[command]
			writeJSON(w, map[string]any{"status": string(to[command])})
			return
		}
	}
	writeJSON(w, map[string]string{"status": "error", "message": "command not valid in state " + string(f.Batch.State)})
}

// Decision returns the outcome recorded for a candidate id.
func (f *FakeBackend) Decision(id string) core.Outcome {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.Decisions[id]
}

// CurrentTask returns the last task context set by a client.
func (f *FakeBackend) CurrentTask() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.Task
}

// BatchState returns the state of the fake batch job.
func (f *FakeBackend) BatchState() core.JobState {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.Batch.State
}
