package commands

import (
	"fmt"

	"github.com/leapstack-labs/leapcurate/internal/server"
	"github.com/spf13/cobra"
)

// NewServeCommand creates the serve command.
func NewServeCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the curation API and live updates over HTTP",
		Long: `Start the local HTTP surface: the laid-out graph, coverage, triage queue
and batch controls under /api, a server-sent event stream at /updates and
Prometheus metrics at /metrics. The engine keeps every snapshot current
in the background.`,
		Example: `  leapcurate serve --port 8766`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cmdCtx, cleanup, err := NewCommandContext(cmd)
			if err != nil {
				return err
			}
			defer cleanup()

			srv := server.NewServer(server.Config{
				Engine: cmdCtx.Engine,
				Port:   cmdCtx.Cfg.Server.Port,
				Logger: cmdCtx.Logger,
			})
			cmdCtx.Renderer.Success(fmt.Sprintf("serving on http://localhost:%d", cmdCtx.Cfg.Server.Port))
			return srv.Serve(cmd.Context())
		},
	}

	cmd.Flags().Int("port", 0, "Port to listen on; defaults to server.port")

	return cmd
}
