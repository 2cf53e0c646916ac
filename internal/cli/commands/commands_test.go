package commands

import (
	"testing"

	"github.com/leapstack-labs/leapcurate/internal/cli/config"
	"github.com/leapstack-labs/leapcurate/internal/engine"
	"github.com/leapstack-labs/leapcurate/internal/layout"
	"github.com/leapstack-labs/leapcurate/internal/taxonomy"
	"github.com/leapstack-labs/leapcurate/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewGraphCommand(t *testing.T) {
	cmd := NewGraphCommand()

	assert.Equal(t, "graph", cmd.Use)
	assert.NotEmpty(t, cmd.Short, "Short should not be empty")
	assert.NotEmpty(t, cmd.Example, "Example should not be empty")
	assert.NotNil(t, cmd.Flags().Lookup("orientation"))
}

func TestNewTaxonomyCommand(t *testing.T) {
	cmd := NewTaxonomyCommand()

	var names []string
	for _, c := range cmd.Commands() {
		names = append(names, c.Name())
	}
	assert.ElementsMatch(t, []string{"show", "add", "rename", "delete"}, names)
	assert.Equal(t, "tax", cmd.Aliases[0])
}

func TestNewBatchCommand(t *testing.T) {
	cmd := NewBatchCommand()

	var names []string
	for _, c := range cmd.Commands() {
		names = append(names, c.Name())
	}
	assert.ElementsMatch(t, []string{"status", "start", "pause", "resume", "cancel", "watch"}, names)

	start, _, err := cmd.Find([]string{"start"})
	require.NoError(t, err)
	for _, flag := range []string{"count", "batch-size", "domain"} {
		assert.NotNil(t, start.Flags().Lookup(flag), "flag %q should exist", flag)
	}
}

func TestNewTriageCommand(t *testing.T) {
	cmd := NewTriageCommand()

	assert.Equal(t, "triage", cmd.Use)
	for _, flag := range []string{"list", "task"} {
		assert.NotNil(t, cmd.Flags().Lookup(flag), "flag %q should exist", flag)
	}
}

func TestNewServeCommand(t *testing.T) {
	cmd := NewServeCommand()

	assert.Equal(t, "serve", cmd.Use)
	assert.NotNil(t, cmd.Flags().Lookup("port"))
}

func TestEngineConfig(t *testing.T) {
	cfg := &config.Config{
		Duplicates: "rename",
		Layout:     config.LayoutConfig{NodeWidth: 100, NodeHeight: 40, NodeSep: 5, RankSep: 10, Orientation: "LR"},
		RootLabel:  "HR",
	}
	ec, err := engineConfig(cfg, nil, nil)
	require.NoError(t, err)

	assert.Equal(t, taxonomy.PolicyRename, ec.Duplicates)
	assert.Equal(t, layout.Options{NodeWidth: 100, NodeHeight: 40, NodeSep: 5, RankSep: 10, Orientation: core.LeftRight}, ec.Layout)
	assert.Equal(t, "HR", ec.RootLabel)
	assert.Equal(t, engine.PollConfig{}, ec.Poll)
}

func TestEngineConfig_Invalid(t *testing.T) {
	_, err := engineConfig(&config.Config{Duplicates: "merge"}, nil, nil)
	assert.Error(t, err)

	_, err = engineConfig(&config.Config{Layout: config.LayoutConfig{Orientation: "RL"}}, nil, nil)
	assert.Error(t, err)
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "abcd…", truncate("abcdefgh", 5))
}
