package coverage

import (
	"fmt"
	"os"
	"sync"

	"github.com/leapstack-labs/leapcurate/pkg/core"
	"gopkg.in/yaml.v3"
)

// Table is the live dimension table shared by the engine and the watcher.
type Table struct {
	mu   sync.RWMutex
	dims []core.CoverageDimension
}

// NewTable returns a table holding dims. An empty dims selects
// DefaultDimensions.
func NewTable(dims []core.CoverageDimension) (*Table, error) {
	if len(dims) == 0 {
		dims = DefaultDimensions()
	}
	t := &Table{}
	if err := t.Set(dims); err != nil {
		return nil, err
	}
	return t, nil
}

// Dimensions returns a copy of the current table.
func (t *Table) Dimensions() []core.CoverageDimension {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return append([]core.CoverageDimension(nil), t.dims...)
}

// Set validates and replaces the table.
func (t *Table) Set(dims []core.CoverageDimension) error {
	if err := ValidateDimensions(dims); err != nil {
		return err
	}
	t.mu.Lock()
	t.dims = append([]core.CoverageDimension(nil), dims...)
	t.mu.Unlock()
	return nil
}

// dimensionFile is the on-disk layout of a dimension table.
//
//	dimensions:
//	  - key: persona
//	    name: Persona
//	    count: 5
type dimensionFile struct {
	Dimensions []core.CoverageDimension `yaml:"dimensions"`
}

// LoadDimensions reads a dimension table from a YAML file.
func LoadDimensions(path string) ([]core.CoverageDimension, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read dimensions file: %w", err)
	}
	return ParseDimensions(data)
}

// ParseDimensions decodes and validates a YAML dimension table.
func ParseDimensions(data []byte) ([]core.CoverageDimension, error) {
	var f dimensionFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse dimensions: %w", err)
	}
	if err := ValidateDimensions(f.Dimensions); err != nil {
		return nil, err
	}
	return f.Dimensions, nil
}
