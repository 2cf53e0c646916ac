package commands

import (
	"github.com/leapstack-labs/leapcurate/pkg/core"
	"github.com/spf13/cobra"
)

// NewIngestCommand creates the ingest command.
func NewIngestCommand() *cobra.Command {
	var domain string

	cmd := &cobra.Command{
		Use:     "ingest <record-id>...",
		Short:   "Accept inbox records into the knowledge log",
		Example: `  leapcurate ingest rec-12 rec-13 --domain payroll`,
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			items := make([]core.IngestItem, 0, len(args))
			for _, id := range args {
				items = append(items, core.IngestItem{ID: id, Domain: domain})
			}
			return runMutation(cmd, "ingest", func(c *CommandContext) (core.MutationResult, error) {
				return c.Engine.Ingest(cmd.Context(), items)
			})
		},
	}

	cmd.Flags().StringVar(&domain, "domain", "", "Domain to file the records under")

	return cmd
}
