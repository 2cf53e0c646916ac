package commands

import (
	"strings"

	"github.com/spf13/cobra"
)

// NewTaskCommand creates the task command.
func NewTaskCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "task <context>",
		Short: "Set the task context that candidates are generated for",
		Long: `Set the task context on the backend. The triage queue is reloaded
afterwards so the next candidates reflect the new task.`,
		Example: `  leapcurate task "Questions about parental leave"`,
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cmdCtx, cleanup, err := NewCommandContext(cmd)
			if err != nil {
				return err
			}
			defer cleanup()

			task := strings.Join(args, " ")
			if err := cmdCtx.Engine.SetTask(cmd.Context(), task); err != nil {
				return err
			}

			r := cmdCtx.Renderer
			view := cmdCtx.Engine.Queue().View()
			r.Success("Task context set")
			r.KeyValue("Candidates", view.Unresolved)
			return nil
		},
	}
}
