// Package taxonomy holds the in-memory category/service tree and its
// structural rules. It performs no I/O.
package taxonomy

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/leapstack-labs/leapcurate/pkg/core"
)

// Validate checks that every name is non-empty, category names are unique
// and service names are unique within their category. It returns the first
// violation in input order.
func Validate(t core.Taxonomy) error {
	seen := make(map[string]bool, len(t.Categories))
	for i, c := range t.Categories {
		if strings.TrimSpace(c.Name) == "" {
			return fmt.Errorf("%w: category at index %d", core.ErrEmptyName, i)
		}
		if seen[c.Name] {
			return &core.DuplicateNameError{Name: c.Name, Level: core.LevelCategory}
		}
		seen[c.Name] = true

		services := make(map[string]bool, len(c.Services))
		for j, s := range c.Services {
			if strings.TrimSpace(s) == "" {
				return fmt.Errorf("%w: service at index %d of category %q", core.ErrEmptyName, j, c.Name)
			}
			if services[s] {
				return &core.DuplicateNameError{Name: s, Level: core.LevelService, Parent: c.Name}
			}
			services[s] = true
		}
	}
	return nil
}

// Policy decides what Normalize does with a duplicate name.
type Policy string

// Duplicate handling policies.
const (
	// PolicyReject leaves the taxonomy unchanged and reports the error.
	PolicyReject Policy = "reject"
	// PolicyDrop removes later occurrences of a duplicate name.
	PolicyDrop Policy = "drop"
	// PolicyRename suffixes later occurrences with " (2)", " (3)", ...
	PolicyRename Policy = "rename"
)

// ParsePolicy parses a policy name. Empty selects PolicyReject.
func ParsePolicy(s string) (Policy, error) {
	switch Policy(s) {
	case "", PolicyReject:
		return PolicyReject, nil
	case PolicyDrop, PolicyRename:
		return Policy(s), nil
	}
	return "", fmt.Errorf("unknown duplicate policy %q (want reject, drop or rename)", s)
}

// Normalize applies policy to every duplicate name and returns the
// resulting taxonomy with one DuplicateNameError per collision found.
// Under PolicyReject the input is returned as-is together with the
// collisions, so callers can refuse it. Empty names are always an error.
func Normalize(t core.Taxonomy, policy Policy) (core.Taxonomy, []*core.DuplicateNameError, error) {
	var dups []*core.DuplicateNameError
	out := core.Taxonomy{Categories: make([]core.Category, 0, len(t.Categories))}

	taken := make(map[string]bool, len(t.Categories))
	for i, c := range t.Categories {
		if strings.TrimSpace(c.Name) == "" {
			return t, nil, fmt.Errorf("%w: category at index %d", core.ErrEmptyName, i)
		}
		name := c.Name
		if taken[name] {
			dups = append(dups, &core.DuplicateNameError{Name: name, Level: core.LevelCategory})
			switch policy {
			case PolicyDrop:
				continue
			case PolicyRename:
				name = disambiguate(name, taken)
			}
		}
		taken[name] = true

		nc := core.Category{Name: name, TraceRecords: c.TraceRecords}
		svcTaken := make(map[string]bool, len(c.Services))
		for j, s := range c.Services {
			if strings.TrimSpace(s) == "" {
				return t, nil, fmt.Errorf("%w: service at index %d of category %q", core.ErrEmptyName, j, c.Name)
			}
			svc := s
			if svcTaken[svc] {
				dups = append(dups, &core.DuplicateNameError{Name: svc, Level: core.LevelService, Parent: c.Name})
				switch policy {
				case PolicyDrop:
					continue
				case PolicyRename:
					svc = disambiguate(svc, svcTaken)
				}
			}
			svcTaken[svc] = true
			nc.Services = append(nc.Services, svc)
		}
		out.Categories = append(out.Categories, nc)
	}

	if policy == PolicyReject {
		return t, dups, nil
	}
	return out, dups, nil
}

// disambiguate returns the first "name (n)" not yet taken, n starting at 2.
func disambiguate(name string, taken map[string]bool) string {
	for n := 2; ; n++ {
		candidate := fmt.Sprintf("%s (%d)", name, n)
		if !taken[candidate] {
			return candidate
		}
	}
}

// Model is a validated, read-mostly copy of the backend taxonomy.
type Model struct {
	taxonomy  core.Taxonomy
	rootLabel string
}

// New validates t and wraps it in a Model. An empty rootLabel selects
// core.DefaultRootLabel.
func New(t core.Taxonomy, rootLabel string) (*Model, error) {
	if err := Validate(t); err != nil {
		return nil, err
	}
	if rootLabel == "" {
		rootLabel = core.DefaultRootLabel
	}
	return &Model{taxonomy: clone(t), rootLabel: rootLabel}, nil
}

// RootLabel returns the label of the implicit root.
func (m *Model) RootLabel() string { return m.rootLabel }

// Taxonomy returns a copy of the underlying taxonomy.
func (m *Model) Taxonomy() core.Taxonomy { return clone(m.taxonomy) }

// Categories returns the categories in order. Callers must not modify them.
func (m *Model) Categories() []core.Category { return m.taxonomy.Categories }

// ServiceCount returns the number of service nodes.
func (m *Model) ServiceCount() int { return m.taxonomy.ServiceCount() }

// ErrCategoryNotFound is returned by previews that reference a missing category.
var ErrCategoryNotFound = errors.New("category not found")

// PreviewAddService reports what adding service to category would do:
// skipped when the service already exists, success otherwise. Adding to an
// unknown category creates it, as the backend does.
func (m *Model) PreviewAddService(category, service string) (core.MutationStatus, error) {
	if strings.TrimSpace(category) == "" || strings.TrimSpace(service) == "" {
		return core.MutationError, core.ErrEmptyName
	}
	if c, ok := m.taxonomy.Category(category); ok && c.HasService(service) {
		return core.MutationSkipped, nil
	}
	return core.MutationSuccess, nil
}

// PreviewRename checks a category rename against the current names.
func (m *Model) PreviewRename(oldName, newName string) error {
	if strings.TrimSpace(newName) == "" {
		return core.ErrEmptyName
	}
	if _, ok := m.taxonomy.Category(oldName); !ok {
		return fmt.Errorf("%w: %q", ErrCategoryNotFound, oldName)
	}
	if oldName == newName {
		return nil
	}
	if _, ok := m.taxonomy.Category(newName); ok {
		return &core.DuplicateNameError{Name: newName, Level: core.LevelCategory}
	}
	return nil
}

// PreviewDelete checks that a category exists and returns how many
// services would be removed with it.
func (m *Model) PreviewDelete(name string) (int, error) {
	c, ok := m.taxonomy.Category(name)
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrCategoryNotFound, name)
	}
	return len(c.Services), nil
}

// FiledRecords returns the trace records embedded in the taxonomy, each
// stamped with the key it was filed under. Order is deterministic: categories
// in order, then the category's services in order, then any remaining filing
// keys sorted.
func (m *Model) FiledRecords() []core.TraceRecord {
	var out []core.TraceRecord
	for _, c := range m.taxonomy.Categories {
		if len(c.TraceRecords) == 0 {
			continue
		}
		keys := make([]string, 0, len(c.TraceRecords))
		listed := make(map[string]bool, len(c.Services))
		for _, s := range c.Services {
			if _, ok := c.TraceRecords[s]; ok {
				keys = append(keys, s)
				listed[s] = true
			}
		}
		var rest []string
		for k := range c.TraceRecords {
			if !listed[k] {
				rest = append(rest, k)
			}
		}
		sort.Strings(rest)
		keys = append(keys, rest...)

		for _, k := range keys {
			for _, r := range c.TraceRecords[k] {
				r.FiledKey = k
				if r.Category == "" {
					r.Category = c.Name
				}
				out = append(out, r)
			}
		}
	}
	return out
}

func clone(t core.Taxonomy) core.Taxonomy {
	out := core.Taxonomy{Categories: make([]core.Category, len(t.Categories))}
	for i, c := range t.Categories {
		out.Categories[i] = core.Category{
			Name:         c.Name,
			Services:     append([]string(nil), c.Services...),
			TraceRecords: c.TraceRecords,
		}
	}
	return out
}
