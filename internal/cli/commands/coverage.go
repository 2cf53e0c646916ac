package commands

import (
	"fmt"

	"github.com/leapstack-labs/leapcurate/internal/cli/output"
	"github.com/leapstack-labs/leapcurate/pkg/core"
	"github.com/spf13/cobra"
)

// NewCoverageCommand creates the coverage command.
func NewCoverageCommand() *cobra.Command {
	var remote bool

	cmd := &cobra.Command{
		Use:   "coverage",
		Short: "Estimate how much of the possibility space is covered",
		Long: `Compare the distinct observations in the trace log with the estimated
size of the possibility space, the product of the coverage dimension counts.

The dimension table comes from coverage.dimensions or coverage.dimensions_file.
Use --remote to show the backend's own figure instead.`,
		Example: `  leapcurate coverage
  leapcurate coverage --remote -o json`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runCoverage(cmd, remote)
		},
	}

	cmd.Flags().BoolVar(&remote, "remote", false, "Show the coverage reported by the backend")

	return cmd
}

func runCoverage(cmd *cobra.Command, remote bool) error {
	cmdCtx, cleanup, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	if err := cmdCtx.refresh(); err != nil {
		return err
	}

	stats := cmdCtx.Engine.Coverage()
	if remote {
		var ok bool
		if stats, ok = cmdCtx.Engine.RemoteCoverage(); !ok {
			return fmt.Errorf("backend reported no coverage")
		}
	}

	r := cmdCtx.Renderer
	if r.EffectiveMode() == output.ModeJSON {
		return r.JSON(stats)
	}
	renderCoverage(r, stats)
	return nil
}

func renderCoverage(r *output.Renderer, s core.CoverageStats) {
	r.Header(1, "Coverage")
	r.KeyValue("Covered", fmt.Sprintf("%d of %d (%.4f%%)", s.CoveredCount, s.EstimatedTotal, s.CoverageRate))
	r.KeyValue("Services", fmt.Sprintf("%d of %d (%.2f%%)", s.CoveredServiceCount, s.ServiceNodeCount, s.ServiceCoverageRate))
	if s.Formula.Expression != "" {
		r.KeyValue("Formula", s.Formula.Expression)
	}
	if s.Formula.EstimatedTotalFormula != "" {
		r.KeyValue("Estimated total", s.Formula.EstimatedTotalFormula)
	}
	if s.Formula.Note != "" {
		r.KeyValue("Note", s.Formula.Note)
	}
	r.Println()

	if len(s.Dimensions) == 0 {
		return
	}
	r.Header(2, "Dimensions")
	rows := make([][]any, 0, len(s.Dimensions))
	for _, d := range s.Dimensions {
		rows = append(rows, []any{d.Name, d.Count, d.Description})
	}
	r.Table([]string{"Dimension", "Count", "Description"}, rows)
}
