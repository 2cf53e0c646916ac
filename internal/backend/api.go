package backend

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/leapstack-labs/leapcurate/internal/coverage"
	"github.com/leapstack-labs/leapcurate/pkg/core"
)

// Endpoint paths.
const (
	PathQueue         = "/api/queue"
	PathSetTask       = "/api/set_task"
	PathApprove       = "/api/approve/"
	PathCorrect       = "/api/correct/"
	PathReject        = "/api/reject/"
	PathTaxonomy      = "/api/taxonomy"
	PathTaxonomyAdd   = "/api/taxonomy/add"
	PathCategory      = "/api/taxonomy/category"
	PathKnowledgeLogs = "/api/knowledge/logs"
	PathInbox         = "/api/etl/inbox"
	PathBatchIngest   = "/api/etl/batch_ingest"
	PathCoverage      = "/api/coverage"
	PathSimStart      = "/api/start"
	PathSimNext       = "/api/next"
	PathBatchStatus   = "/api/batch/status"
	PathBatchCommand  = "/api/batch/"
)

// Queue fetches the candidate items awaiting triage.
func (c *Client) Queue(ctx context.Context) ([]core.CandidateItem, error) {
	raw, err := c.do(ctx, http.MethodGet, PathQueue, nil, nil)
	if err != nil {
		return nil, err
	}
	return decodeList[core.CandidateItem]("GET "+PathQueue, unwrapList(raw, "items", "queue"))
}

// SetTask sets the task context used to generate the next candidates.
func (c *Client) SetTask(ctx context.Context, taskContext string) error {
	_, err := c.do(ctx, http.MethodPost, PathSetTask, nil, map[string]string{"context": taskContext})
	return err
}

// Approve accepts item as proposed.
func (c *Client) Approve(ctx context.Context, item core.CandidateItem) error {
	return c.decide(ctx, PathApprove, item)
}

// Correct submits item with edited content.
func (c *Client) Correct(ctx context.Context, item core.CandidateItem) error {
	return c.decide(ctx, PathCorrect, item)
}

// Reject discards item.
func (c *Client) Reject(ctx context.Context, item core.CandidateItem) error {
	return c.decide(ctx, PathReject, item)
}

func (c *Client) decide(ctx context.Context, prefix string, item core.CandidateItem) error {
	path := prefix + url.PathEscape(item.ID)
	raw, err := c.do(ctx, http.MethodPost, path, nil, item)
	if err != nil {
		return err
	}
	return rejection("POST "+path, raw)
}

// Taxonomy fetches the category tree.
func (c *Client) Taxonomy(ctx context.Context) (core.Taxonomy, error) {
	raw, err := c.do(ctx, http.MethodGet, PathTaxonomy, nil, nil)
	if err != nil {
		return core.Taxonomy{}, err
	}
	cats, err := decodeList[core.Category]("GET "+PathTaxonomy, unwrapList(raw, "taxonomy"))
	if err != nil {
		return core.Taxonomy{}, err
	}
	return core.Taxonomy{Categories: cats}, nil
}

// AddService adds service under category. The backend answers skipped
// when the service already exists.
func (c *Client) AddService(ctx context.Context, category, service string) (core.MutationResult, error) {
	return c.mutate(ctx, http.MethodPost, PathTaxonomyAdd, map[string]string{
		"category": category,
		"service":  service,
	})
}

// RenameCategory renames a category.
func (c *Client) RenameCategory(ctx context.Context, oldName, newName string) (core.MutationResult, error) {
	return c.mutate(ctx, http.MethodPut, PathCategory, map[string]string{
		"old_name": oldName,
		"new_name": newName,
	})
}

// DeleteCategory removes a category and its services.
func (c *Client) DeleteCategory(ctx context.Context, name string) (core.MutationResult, error) {
	return c.mutate(ctx, http.MethodDelete, PathCategory, map[string]string{"category_name": name})
}

// BatchIngest moves accepted inbox records into the knowledge base.
func (c *Client) BatchIngest(ctx context.Context, items []core.IngestItem) (core.MutationResult, error) {
	return c.mutate(ctx, http.MethodPost, PathBatchIngest, map[string]any{"items": items})
}

func (c *Client) mutate(ctx context.Context, method, path string, body any) (core.MutationResult, error) {
	op := method + " " + path
	raw, err := c.do(ctx, method, path, nil, body)
	if err != nil {
		return core.MutationResult{}, err
	}
	var res core.MutationResult
	if err := decode(op, raw, &res); err != nil {
		return core.MutationResult{}, err
	}
	if res.Status == "" {
		res.Status = core.MutationSuccess
	}
	if res.Status == core.MutationError {
		return res, fmt.Errorf("%s: %w: %s", op, ErrRejected, res.Message)
	}
	return res, nil
}

// KnowledgeLogs fetches the trace log of the knowledge base.
func (c *Client) KnowledgeLogs(ctx context.Context) ([]core.TraceRecord, error) {
	return c.records(ctx, PathKnowledgeLogs)
}

// Inbox fetches trace records waiting for review.
func (c *Client) Inbox(ctx context.Context) ([]core.TraceRecord, error) {
	return c.records(ctx, PathInbox)
}

func (c *Client) records(ctx context.Context, path string) ([]core.TraceRecord, error) {
	raw, err := c.do(ctx, http.MethodGet, path, nil, nil)
	if err != nil {
		return nil, err
	}
	return decodeList[core.TraceRecord]("GET "+path, unwrapList(raw, "records", "logs", "items"))
}

// Coverage fetches the coverage stats computed by the backend. The
// dimension table may arrive keyed by dimension or as a list.
func (c *Client) Coverage(ctx context.Context) (core.CoverageStats, error) {
	op := "GET " + PathCoverage
	raw, err := c.do(ctx, http.MethodGet, PathCoverage, nil, nil)
	if err != nil {
		return core.CoverageStats{}, err
	}
	obj, ok := raw.(map[string]any)
	if !ok {
		return core.CoverageStats{}, &TransientError{Op: op, Err: fmt.Errorf("%w: expected an object", ErrMalformed)}
	}

	rest := make(map[string]any, len(obj))
	for k, v := range obj {
		if k != "dimensions" {
			rest[k] = v
		}
	}
	var stats core.CoverageStats
	if err := decode(op, rest, &stats); err != nil {
		return core.CoverageStats{}, err
	}

	switch dims := obj["dimensions"].(type) {
	case []any:
		stats.Dimensions, err = decodeList[core.CoverageDimension](op, dims)
	case map[string]any:
		byKey := make(map[string]core.CoverageDimension, len(dims))
		if err = decode(op, dims, &byKey); err == nil {
			stats.Dimensions = coverage.SortedDimensions(byKey)
		}
	}
	if err != nil {
		return core.CoverageStats{}, err
	}
	return stats, nil
}

// SimulationStart starts a dialogue simulation for domain. The payload is
// passed through untouched.
func (c *Client) SimulationStart(ctx context.Context, domain string) (map[string]any, error) {
	raw, err := c.do(ctx, http.MethodPost, PathSimStart, nil, map[string]string{"domain": domain})
	if err != nil {
		return nil, err
	}
	return object(raw), nil
}

// SimulationNext advances the running simulation by one step.
func (c *Client) SimulationNext(ctx context.Context) (map[string]any, error) {
	raw, err := c.do(ctx, http.MethodPost, PathSimNext, nil, nil)
	if err != nil {
		return nil, err
	}
	return object(raw), nil
}

// BatchStatus fetches the batch job status. A backend without a batch
// runner reports state unavailable.
func (c *Client) BatchStatus(ctx context.Context) (core.BatchStatus, error) {
	op := "GET " + PathBatchStatus
	raw, err := c.do(ctx, http.MethodGet, PathBatchStatus, nil, nil)
	if err != nil {
		return core.BatchStatus{}, err
	}
	if obj, ok := raw.(map[string]any); ok {
		if avail, ok := obj["available"].(bool); ok && !avail {
			return core.BatchStatus{State: core.JobUnavailable}, nil
		}
	}

	var st core.BatchStatus
	if err := decode(op, raw, &st); err != nil {
		return core.BatchStatus{}, err
	}
	if !st.State.Valid() {
		st.State = core.JobUnavailable
	}
	return st, nil
}

// BatchStart starts a batch job.
func (c *Client) BatchStart(ctx context.Context, cfg core.BatchConfig) error {
	return c.batchCommand(ctx, "start", cfg)
}

// BatchPause pauses the running job.
func (c *Client) BatchPause(ctx context.Context) error { return c.batchCommand(ctx, "pause", nil) }

// BatchResume resumes the paused job.
func (c *Client) BatchResume(ctx context.Context) error { return c.batchCommand(ctx, "resume", nil) }

// BatchCancel cancels the running or paused job.
func (c *Client) BatchCancel(ctx context.Context) error { return c.batchCommand(ctx, "cancel", nil) }

func (c *Client) batchCommand(ctx context.Context, command string, body any) error {
	path := PathBatchCommand + command
	raw, err := c.do(ctx, http.MethodPost, path, nil, body)
	if err != nil {
		return err
	}
	return rejection("POST "+path, raw)
}

// rejection turns an explicit {"status": "error"} acknowledgement into an
// error.
func rejection(op string, raw any) error {
	obj, ok := raw.(map[string]any)
	if !ok {
		return nil
	}
	if status, _ := obj["status"].(string); status != string(core.MutationError) {
		return nil
	}
	msg, _ := obj["message"].(string)
	return fmt.Errorf("%s: %w: %s", op, ErrRejected, msg)
}

func object(raw any) map[string]any {
	if obj, ok := raw.(map[string]any); ok {
		return obj
	}
	return map[string]any{}
}
