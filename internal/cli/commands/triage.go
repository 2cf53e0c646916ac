package commands

import (
	"context"
	"fmt"

	"github.com/leapstack-labs/leapcurate/internal/cli/output"
	"github.com/leapstack-labs/leapcurate/internal/triage"
	"github.com/leapstack-labs/leapcurate/internal/tui"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

// NewTriageCommand creates the triage command.
func NewTriageCommand() *cobra.Command {
	var (
		list bool
		task string
	)

	cmd := &cobra.Command{
		Use:   "triage",
		Short: "Review candidate knowledge items",
		Long: `Open the triage workbench: confirm, edit or reject each candidate in
turn. Decisions are sent to the backend in the background; the queue is
reloaded when it runs out.

Without a terminal, or with --list, the queue is printed instead.`,
		Example: `  # Interactive review
  leapcurate triage

  # Set the task first, then review
  leapcurate triage --task "Parental leave questions"

  # Print the queue for a script
  leapcurate triage --list -o json`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cmdCtx, cleanup, err := NewCommandContext(cmd)
			if err != nil {
				return err
			}
			defer cleanup()

			ctx := cmd.Context()
			q := cmdCtx.Engine.Queue()
			if task != "" {
				err = q.SetTask(ctx, task)
			} else {
				err = q.Reload(ctx)
			}
			if err != nil {
				return fmt.Errorf("failed to load triage queue: %w", err)
			}

			r := cmdCtx.Renderer
			if list || !r.IsTTY() || r.EffectiveMode() != output.ModeText {
				return renderQueue(r, q.View())
			}
			return runWorkbench(ctx, cmdCtx)
		},
	}

	cmd.Flags().BoolVar(&list, "list", false, "Print the queue instead of opening the workbench")
	cmd.Flags().StringVar(&task, "task", "", "Set the task context before loading the queue")

	return cmd
}

// runWorkbench runs the engine alongside the terminal UI and stops both
// when the user quits.
func runWorkbench(ctx context.Context, cmdCtx *CommandContext) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	eng := cmdCtx.Engine
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return eng.Run(gctx)
	})
	g.Go(func() error {
		defer cancel()
		return tui.Run(gctx, tui.Config{
			Queue:   eng.Queue(),
			Bus:     eng.Bus(),
			Notices: eng.Notices,
			Context: gctx,
		})
	})
	return g.Wait()
}

func renderQueue(r *output.Renderer, v triage.View) error {
	if r.EffectiveMode() == output.ModeJSON {
		return r.JSON(v)
	}

	r.Header(1, fmt.Sprintf("Triage Queue (%d unresolved)", v.Unresolved))
	rows := make([][]any, 0, len(v.Items))
	for _, it := range v.Items {
		rows = append(rows, []any{
			it.ID, it.State, truncate(it.Question, 60),
			fmt.Sprintf("%.2f", it.Confidence), output.Join(it.NextNodes),
		})
	}
	r.Table([]string{"ID", "State", "Question", "Confidence", "Next"}, rows)
	return nil
}
