package commands

import (
	"fmt"
	"log/slog"

	"github.com/leapstack-labs/leapcurate/internal/backend"
	"github.com/leapstack-labs/leapcurate/internal/cli/config"
	"github.com/leapstack-labs/leapcurate/internal/cli/output"
	"github.com/leapstack-labs/leapcurate/internal/engine"
	"github.com/leapstack-labs/leapcurate/internal/layout"
	"github.com/leapstack-labs/leapcurate/internal/taxonomy"
	"github.com/leapstack-labs/leapcurate/pkg/core"
	"github.com/spf13/cobra"
)

// CommandContext holds common dependencies for CLI commands.
type CommandContext struct {
	Cfg      *config.Config
	Logger   *slog.Logger
	Engine   *engine.Engine
	Renderer *output.Renderer
}

// NewCommandContext creates a CommandContext with engine and renderer.
// Returns the context and a cleanup function that must be called (typically via defer).
func NewCommandContext(cmd *cobra.Command) (*CommandContext, func(), error) {
	cfg := getConfig()
	logger := config.GetLogger(cmd.Context())

	eng, err := createEngine(cfg, logger)
	if err != nil {
		return nil, nil, err
	}

	r := output.NewRenderer(cmd.OutOrStdout(), cmd.ErrOrStderr(), output.Mode(cfg.OutputFormat))

	cleanup := func() {
		_ = eng.Close()
	}

	return &CommandContext{
		Cfg:      cfg,
		Logger:   logger,
		Engine:   eng,
		Renderer: r,
	}, cleanup, nil
}

// Helper functions shared across commands

// getConfig returns the current configuration, or defaults when none was loaded.
func getConfig() *config.Config {
	if cfg := config.GetCurrentConfig(); cfg != nil {
		return cfg
	}
	cfg, err := config.LoadConfig("", nil)
	if err != nil {
		return &config.Config{
			Backend:      config.BackendConfig{URL: config.DefaultBackendURL, Timeout: config.DefaultTimeout},
			Duplicates:   config.DefaultDuplicates,
			OutputFormat: config.DefaultOutput,
		}
	}
	return cfg
}

// engineConfig maps CLI configuration onto the engine.
func engineConfig(cfg *config.Config, b engine.Backend, logger *slog.Logger) (engine.Config, error) {
	policy, err := taxonomy.ParsePolicy(cfg.Duplicates)
	if err != nil {
		return engine.Config{}, err
	}
	orientation, err := core.ParseOrientation(cfg.Layout.Orientation)
	if err != nil {
		return engine.Config{}, err
	}

	lo := layout.Options{
		NodeWidth:   cfg.Layout.NodeWidth,
		NodeHeight:  cfg.Layout.NodeHeight,
		NodeSep:     cfg.Layout.NodeSep,
		RankSep:     cfg.Layout.RankSep,
		Orientation: orientation,
	}
	if lo.NodeWidth == 0 && lo.NodeHeight == 0 {
		lo = layout.DefaultOptions()
		lo.Orientation = orientation
	}

	return engine.Config{
		Backend:        b,
		RootLabel:      cfg.RootLabel,
		Duplicates:     policy,
		Layout:         lo,
		Dimensions:     cfg.Coverage.Dimensions,
		DimensionsFile: cfg.Coverage.DimensionsFile,
		Poll: engine.PollConfig{
			Queue:    cfg.Poll.Queue,
			Taxonomy: cfg.Poll.Taxonomy,
			Batch:    cfg.Poll.Batch,
		},
		Debounce:    cfg.Refresh.Debounce,
		SendTimeout: cfg.Backend.Timeout,
		Logger:      logger,
	}, nil
}

func createEngine(cfg *config.Config, logger *slog.Logger) (*engine.Engine, error) {
	client := backend.New(cfg.Backend.URL,
		backend.WithTimeout(cfg.Backend.Timeout),
		backend.WithLogger(logger),
	)

	engineCfg, err := engineConfig(cfg, client, logger)
	if err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return engine.New(engineCfg)
}

// refresh loads the named snapshots, returning the first failure.
func (c *CommandContext) refresh(names ...string) error {
	if err := c.Engine.Refresh(names...); err != nil {
		return fmt.Errorf("failed to reach backend at %s: %w", c.Cfg.Backend.URL, err)
	}
	return nil
}
