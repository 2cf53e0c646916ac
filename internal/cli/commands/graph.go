package commands

import (
	"fmt"
	"strings"
	"time"

	"github.com/leapstack-labs/leapcurate/internal/cli/output"
	"github.com/leapstack-labs/leapcurate/internal/engine"
	"github.com/leapstack-labs/leapcurate/pkg/core"
	"github.com/spf13/cobra"
)

// NewGraphCommand creates the graph command.
func NewGraphCommand() *cobra.Command {
	var orientation string

	cmd := &cobra.Command{
		Use:   "graph",
		Short: "Show the laid-out taxonomy graph",
		Long: `Fetch the taxonomy and trace log, then print the positioned graph:
the root, its categories and their services, with the trace record that
explains each service where one matches.

Use --output json for the full node and edge list.`,
		Example: `  # Show the graph top-down
  leapcurate graph

  # Left-to-right layout as JSON
  leapcurate graph --orientation LR -o json`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runGraph(cmd, orientation)
		},
	}

	cmd.Flags().StringVar(&orientation, "orientation", "", "Layout orientation (TB|LR); defaults to layout.orientation")
	_ = cmd.RegisterFlagCompletionFunc("orientation", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return []string{string(core.TopDown), string(core.LeftRight)}, cobra.ShellCompDirectiveNoFileComp
	})

	return cmd
}

func runGraph(cmd *cobra.Command, orientation string) error {
	cmdCtx, cleanup, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	o := cmdCtx.Engine.LayoutOptions().Orientation
	if orientation != "" {
		if o, err = core.ParseOrientation(strings.ToUpper(orientation)); err != nil {
			return err
		}
	}

	if err := cmdCtx.refresh(engine.ResourceTaxonomy, engine.ResourceRecords); err != nil {
		return err
	}
	g, err := cmdCtx.Engine.Graph(o)
	if err != nil {
		return err
	}

	r := cmdCtx.Renderer
	if r.EffectiveMode() == output.ModeJSON {
		return r.JSON(g)
	}
	updated, _ := cmdCtx.Engine.Updated(engine.ResourceTaxonomy)
	renderGraph(r, g, updated)
	return nil
}

func renderGraph(r *output.Renderer, g core.Graph, updated time.Time) {
	r.Header(1, "Taxonomy Graph")

	rows := make([][]any, 0, len(g.Nodes))
	explained := 0
	for _, n := range g.Nodes {
		source := "-"
		if n.Provenance != nil {
			source = n.Provenance.ID
			explained++
		}
		rows = append(rows, []any{
			n.ID, n.Kind, n.Label, n.Rank,
			fmt.Sprintf("%.0f,%.0f", n.Position.X, n.Position.Y),
			source,
		})
	}
	r.Table([]string{"ID", "Kind", "Label", "Rank", "Position", "Trace"}, rows)

	r.Header(2, "Summary")
	r.KeyValue("Orientation", g.Orientation)
	r.KeyValue("Nodes", len(g.Nodes))
	r.KeyValue("Edges", len(g.Edges))
	r.KeyValue("Explained services", explained)
	r.KeyValue("Canvas", fmt.Sprintf("%.0fx%.0f", g.Width, g.Height))
	if !updated.IsZero() {
		r.KeyValue("Updated", updated.Format(time.RFC3339))
	}
}
