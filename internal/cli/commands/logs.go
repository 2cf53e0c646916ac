package commands

import (
	"fmt"

	"github.com/leapstack-labs/leapcurate/internal/cli/output"
	"github.com/leapstack-labs/leapcurate/internal/engine"
	"github.com/leapstack-labs/leapcurate/pkg/core"
	"github.com/spf13/cobra"
)

// NewLogsCommand creates the logs command.
func NewLogsCommand() *cobra.Command {
	var (
		inbox bool
		limit int
	)

	cmd := &cobra.Command{
		Use:   "logs",
		Short: "List trace records from the knowledge log or the inbox",
		Long: `List trace records. The knowledge log holds accepted records, merged
with the records filed in the taxonomy; --inbox lists records waiting
to be ingested.`,
		Example: `  leapcurate logs --limit 20
  leapcurate logs --inbox -o json`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cmdCtx, cleanup, err := NewCommandContext(cmd)
			if err != nil {
				return err
			}
			defer cleanup()

			if err := cmdCtx.refresh(engine.ResourceTaxonomy, engine.ResourceRecords); err != nil {
				return err
			}

			var records []core.TraceRecord
			title := "Knowledge Log"
			if inbox {
				records = cmdCtx.Engine.Inbox()
				title = "Inbox"
			} else if l := cmdCtx.Engine.Records(); l != nil {
				records = l.Records()
			}
			total := len(records)
			if limit > 0 && len(records) > limit {
				records = records[len(records)-limit:]
			}

			r := cmdCtx.Renderer
			if r.EffectiveMode() == output.ModeJSON {
				return r.JSON(records)
			}
			renderRecords(r, fmt.Sprintf("%s (%d of %d)", title, len(records), total), records)
			return nil
		},
	}

	cmd.Flags().BoolVar(&inbox, "inbox", false, "List the inbox instead of the knowledge log")
	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "Show only the newest n records (0 for all)")

	return cmd
}

func renderRecords(r *output.Renderer, title string, records []core.TraceRecord) {
	r.Header(1, title)
	rows := make([][]any, 0, len(records))
	for _, rec := range records {
		rows = append(rows, []any{
			rec.ID, rec.Timestamp, truncate(rec.Query, 60), rec.AIPrediction,
			fmt.Sprintf("%.2f", rec.Confidence),
		})
	}
	r.Table([]string{"ID", "Timestamp", "Query", "Prediction", "Confidence"}, rows)
}

// truncate shortens s to at most n runes.
func truncate(s string, n int) string {
	rs := []rune(s)
	if len(rs) <= n {
		return s
	}
	return string(rs[:n-1]) + "…"
}
