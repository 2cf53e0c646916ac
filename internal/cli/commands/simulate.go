package commands

import (
	"fmt"
	"sort"

	"github.com/leapstack-labs/leapcurate/internal/cli/output"
	"github.com/spf13/cobra"
)

// NewSimulateCommand creates the simulate command and its subcommands.
func NewSimulateCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "Drive a simulated dialogue on the backend",
	}

	var domain string
	start := &cobra.Command{
		Use:   "start",
		Short: "Start a new simulation",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runSimulation(cmd, func(c *CommandContext) (map[string]any, error) {
				return c.Engine.SimulationStart(cmd.Context(), domain)
			})
		},
	}
	start.Flags().StringVar(&domain, "domain", "", "Domain to simulate")

	next := &cobra.Command{
		Use:   "next",
		Short: "Advance the running simulation by one step",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runSimulation(cmd, func(c *CommandContext) (map[string]any, error) {
				return c.Engine.SimulationNext(cmd.Context())
			})
		},
	}

	cmd.AddCommand(start, next)
	return cmd
}

func runSimulation(cmd *cobra.Command, fn func(*CommandContext) (map[string]any, error)) error {
	cmdCtx, cleanup, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	res, err := fn(cmdCtx)
	if err != nil {
		return err
	}

	r := cmdCtx.Renderer
	if r.EffectiveMode() == output.ModeJSON {
		return r.JSON(res)
	}

	keys := make([]string, 0, len(res))
	for k := range res {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	r.Header(1, "Simulation")
	for _, k := range keys {
		r.KeyValue(k, fmt.Sprint(res[k]))
	}
	return nil
}
