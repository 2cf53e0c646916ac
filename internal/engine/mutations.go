package engine

import (
	"context"
	"fmt"
	"strings"

	"github.com/leapstack-labs/leapcurate/internal/refresh"
	"github.com/leapstack-labs/leapcurate/pkg/core"
)

// AddService adds service under category on the backend. A service the
// loaded snapshot already lists is skipped without a request.
func (e *Engine) AddService(ctx context.Context, category, service string) (core.MutationResult, error) {
	category, service = strings.TrimSpace(category), strings.TrimSpace(service)
	if category == "" || service == "" {
		return core.MutationResult{}, core.ErrEmptyName
	}
	if m, err := e.Taxonomy(); err == nil {
		if status, _ := m.PreviewAddService(category, service); status == core.MutationSkipped {
			return core.MutationResult{
				Status:  core.MutationSkipped,
				Message: fmt.Sprintf("%s already lists %s", category, service),
			}, nil
		}
	}
	res, err := e.backend.AddService(ctx, category, service)
	return e.mutated("add service", res, err)
}

// RenameCategory renames a category. A rename onto an existing category
// name is refused locally when the snapshot already shows the collision.
func (e *Engine) RenameCategory(ctx context.Context, oldName, newName string) (core.MutationResult, error) {
	oldName, newName = strings.TrimSpace(oldName), strings.TrimSpace(newName)
	if oldName == "" || newName == "" {
		return core.MutationResult{}, core.ErrEmptyName
	}
	if m, err := e.Taxonomy(); err == nil {
		if err := m.PreviewRename(oldName, newName); err != nil {
			return core.MutationResult{}, err
		}
	}
	res, err := e.backend.RenameCategory(ctx, oldName, newName)
	return e.mutated("rename category", res, err)
}

// DeleteCategory deletes a category with all its services. A category
// missing from the loaded snapshot is refused locally.
func (e *Engine) DeleteCategory(ctx context.Context, name string) (core.MutationResult, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return core.MutationResult{}, core.ErrEmptyName
	}
	removed := -1
	if m, err := e.Taxonomy(); err == nil {
		if removed, err = m.PreviewDelete(name); err != nil {
			return core.MutationResult{}, err
		}
	}
	res, err := e.backend.DeleteCategory(ctx, name)
	if err == nil && res.Status == core.MutationSuccess && res.Message == "" && removed >= 0 {
		res.Message = fmt.Sprintf("deleted %s with %d services", name, removed)
	}
	return e.mutated("delete category", res, err)
}

// Ingest accepts inbox records into the knowledge log.
func (e *Engine) Ingest(ctx context.Context, items []core.IngestItem) (core.MutationResult, error) {
	if len(items) == 0 {
		return core.MutationResult{}, fmt.Errorf("nothing to ingest")
	}
	res, err := e.backend.BatchIngest(ctx, items)
	return e.mutated("ingest", res, err)
}

// SetTask sets the task context and reloads the triage queue.
func (e *Engine) SetTask(ctx context.Context, taskContext string) error {
	return e.queue.SetTask(ctx, taskContext)
}

// SimulationStart starts a simulated dialogue for domain.
func (e *Engine) SimulationStart(ctx context.Context, domain string) (map[string]any, error) {
	out, err := e.backend.SimulationStart(ctx, domain)
	if err != nil {
		return nil, fmt.Errorf("failed to start simulation: %w", err)
	}
	return out, nil
}

// SimulationNext advances the simulated dialogue by one step.
func (e *Engine) SimulationNext(ctx context.Context) (map[string]any, error) {
	out, err := e.backend.SimulationNext(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to advance simulation: %w", err)
	}
	return out, nil
}

// mutated reports a mutation outcome and signals a successful change.
func (e *Engine) mutated(op string, res core.MutationResult, err error) (core.MutationResult, error) {
	if err != nil {
		e.Notify(core.Notice{Level: core.NoticeError, Source: "taxonomy", Message: fmt.Sprintf("%s failed: %v", op, err)})
		return res, fmt.Errorf("%s failed: %w", op, err)
	}
	if res.Status == core.MutationSuccess {
		e.bus.Publish(refresh.TopicTaxonomyUpdated, "taxonomy")
	}
	e.logger.Debug("mutation applied", "op", op, "status", res.Status)
	return res, nil
}
