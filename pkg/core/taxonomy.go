package core

// DefaultRootLabel is the label of the implicit taxonomy root.
const DefaultRootLabel = "Taxonomy"

// Category is a first-level grouping of services.
type Category struct {
	Name     string   `json:"name"`
	Services []string `json:"services"`

	// TraceRecords holds evidence filed under a service name when the
	// backend embeds it in the taxonomy payload. Keys are filing keys,
	// which may be shortened or expanded variants of a service name.
	TraceRecords map[string][]TraceRecord `json:"trace_records,omitempty"`
}

// HasService reports whether the category lists the given service.
func (c Category) HasService(name string) bool {
	for _, s := range c.Services {
		if s == name {
			return true
		}
	}
	return false
}

// Taxonomy is the ordered category list under the implicit root.
type Taxonomy struct {
	Categories []Category `json:"taxonomy"`
}

// ServiceCount returns the number of services across all categories.
func (t Taxonomy) ServiceCount() int {
	n := 0
	for _, c := range t.Categories {
		n += len(c.Services)
	}
	return n
}

// Category returns the category with the given name.
func (t Taxonomy) Category(name string) (Category, bool) {
	for _, c := range t.Categories {
		if c.Name == name {
			return c, true
		}
	}
	return Category{}, false
}

// MutationStatus is the status string returned by taxonomy mutations.
type MutationStatus string

// Mutation statuses reported by the backend.
const (
	MutationSuccess MutationStatus = "success"
	MutationSkipped MutationStatus = "skipped"
	MutationError   MutationStatus = "error"
)

// MutationResult is the backend reply to a taxonomy or ingest mutation.
type MutationResult struct {
	Status        MutationStatus `json:"status"`
	Message       string         `json:"message,omitempty"`
	IngestedCount int            `json:"ingested_count,omitempty"`
	IngestedIDs   []string       `json:"ingested_ids,omitempty"`
}

// OK reports whether the mutation took effect or was a no-op.
func (r MutationResult) OK() bool {
	return r.Status == MutationSuccess || r.Status == MutationSkipped
}

// IngestItem identifies an accepted trace record for batch ingestion.
type IngestItem struct {
	ID     string `json:"id"`
	Domain string `json:"domain,omitempty"`
}
