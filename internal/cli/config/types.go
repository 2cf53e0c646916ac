// Package config provides configuration management for the LeapCurate CLI.
//
// Values are layered from built-in defaults, a leapcurate.yaml file,
// LEAPCURATE_ environment variables and explicitly set flags, in that order.
package config

import (
	"time"

	"github.com/leapstack-labs/leapcurate/pkg/core"
)

// Default configuration values.
const (
	DefaultBackendURL = "http://localhost:8000"
	DefaultTimeout    = 15 * time.Second
	DefaultDebounce   = 250 * time.Millisecond
	DefaultPort       = 8766
	DefaultOutput     = "auto"
	DefaultDuplicates = "reject"
)

// ConfigFileNames are the file names searched for, in order.
var ConfigFileNames = []string{"leapcurate.yaml", "leapcurate.yml"}

// BackendConfig locates the curation backend.
type BackendConfig struct {
	URL     string        `koanf:"url" validate:"required,url"`
	Timeout time.Duration `koanf:"timeout" validate:"gt=0"`
}

// PollConfig holds polling intervals. Zero disables polling.
type PollConfig struct {
	Queue    time.Duration `koanf:"queue" validate:"gte=0"`
	Taxonomy time.Duration `koanf:"taxonomy" validate:"gte=0"`
	Batch    time.Duration `koanf:"batch" validate:"gte=0"`
}

// RefreshConfig tunes refresh triggering.
type RefreshConfig struct {
	Debounce time.Duration `koanf:"debounce" validate:"gte=0"`
}

// LayoutConfig sizes graph nodes and the gaps between them.
type LayoutConfig struct {
	NodeWidth   float64 `koanf:"node_width" validate:"gt=0"`
	NodeHeight  float64 `koanf:"node_height" validate:"gt=0"`
	NodeSep     float64 `koanf:"node_sep" validate:"gte=0"`
	RankSep     float64 `koanf:"rank_sep" validate:"gte=0"`
	Orientation string  `koanf:"orientation" validate:"omitempty,oneof=TB LR"`
}

// CoverageConfig selects the coverage dimension table.
type CoverageConfig struct {
	Dimensions     []core.CoverageDimension `koanf:"dimensions"`
	DimensionsFile string                   `koanf:"dimensions_file"`
}

// ServerConfig holds configuration for the local HTTP surface.
type ServerConfig struct {
	Port int `koanf:"port" validate:"gt=0,lt=65536"`
}

// Config holds all CLI configuration options.
type Config struct {
	Backend      BackendConfig  `koanf:"backend"`
	Poll         PollConfig     `koanf:"poll"`
	Refresh      RefreshConfig  `koanf:"refresh"`
	Layout       LayoutConfig   `koanf:"layout"`
	Coverage     CoverageConfig `koanf:"coverage"`
	Server       ServerConfig   `koanf:"server"`
	RootLabel    string         `koanf:"root_label"`
	Duplicates   string         `koanf:"duplicates" validate:"oneof=reject drop rename"`
	Verbose      bool           `koanf:"verbose"`
	OutputFormat string         `koanf:"output" validate:"omitempty,oneof=auto text markdown json"`

	// ProjectRoot is the directory holding the config file, or the
	// working directory when none was found.
	ProjectRoot string `koanf:"-"`
}
