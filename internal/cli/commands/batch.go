package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/leapstack-labs/leapcurate/internal/batch"
	"github.com/leapstack-labs/leapcurate/internal/cli/output"
	"github.com/leapstack-labs/leapcurate/pkg/core"
	"github.com/spf13/cobra"
)

// NewBatchCommand creates the batch command and its subcommands.
func NewBatchCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "batch",
		Short: "Monitor and control the remote batch job",
		Long: `Show the remote batch job and send it commands.

Commands are checked against the job state reported by a fresh poll:
start from idle, completed or cancelled; pause while running; resume
while paused; cancel while running or paused.`,
	}

	cmd.AddCommand(newBatchStatusCommand())
	cmd.AddCommand(newBatchStartCommand())
	for _, c := range []batch.Command{batch.CommandPause, batch.CommandResume, batch.CommandCancel} {
		cmd.AddCommand(newBatchControlCommand(c))
	}
	cmd.AddCommand(newBatchWatchCommand())

	return cmd
}

func newBatchStatusCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the batch job status",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cmdCtx, cleanup, err := NewCommandContext(cmd)
			if err != nil {
				return err
			}
			defer cleanup()

			mon := cmdCtx.Engine.Batch()
			if err := mon.Poll(cmd.Context()); err != nil {
				return err
			}
			return renderBatch(cmdCtx.Renderer, mon.Snapshot())
		},
	}
}

func newBatchStartCommand() *cobra.Command {
	var cfg core.BatchConfig

	cmd := &cobra.Command{
		Use:     "start",
		Short:   "Start a batch job",
		Example: `  leapcurate batch start --count 100 --batch-size 10 --domain payroll`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runBatchCommand(cmd, batch.CommandStart, cfg)
		},
	}

	cmd.Flags().IntVar(&cfg.Count, "count", 0, "Number of tasks to generate")
	cmd.Flags().IntVar(&cfg.BatchSize, "batch-size", 0, "Tasks per batch")
	cmd.Flags().StringVar(&cfg.Domain, "domain", "", "Domain to generate tasks for")

	return cmd
}

func newBatchControlCommand(c batch.Command) *cobra.Command {
	return &cobra.Command{
		Use:   string(c),
		Short: fmt.Sprintf("Send %s to the batch job", c),
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runBatchCommand(cmd, c, core.BatchConfig{})
		},
	}
}

// runBatchCommand polls once so the command is gated on the current
// state, then sends it.
func runBatchCommand(cmd *cobra.Command, c batch.Command, cfg core.BatchConfig) error {
	cmdCtx, cleanup, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	mon := cmdCtx.Engine.Batch()
	if err := mon.Poll(cmd.Context()); err != nil {
		return err
	}
	if err := mon.Send(cmd.Context(), c, cfg); err != nil {
		return err
	}

	r := cmdCtx.Renderer
	if r.EffectiveMode() == output.ModeJSON {
		return r.JSON(mon.Snapshot())
	}
	r.Success(fmt.Sprintf("batch %s sent", c))
	r.Muted("run 'leapcurate batch status' to see the result")
	return nil
}

func newBatchWatchCommand() *cobra.Command {
	var interval time.Duration

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Follow the batch job until it finishes",
		Long: `Poll the batch job and print a line whenever its state or progress
changes. Stops when the job completes or is cancelled, or on Ctrl-C.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cmdCtx, cleanup, err := NewCommandContext(cmd)
			if err != nil {
				return err
			}
			defer cleanup()

			if interval <= 0 {
				interval = cmdCtx.Cfg.Poll.Batch
			}
			if interval <= 0 {
				interval = 2 * time.Second
			}
			return watchBatch(cmd.Context(), cmdCtx.Engine.Batch(), cmdCtx.Renderer, interval)
		},
	}

	cmd.Flags().DurationVar(&interval, "interval", 0, "Poll interval; defaults to poll.batch")

	return cmd
}

func watchBatch(ctx context.Context, mon *batch.Monitor, r *output.Renderer, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var last string
	for {
		if err := mon.Poll(ctx); err != nil {
			r.Warning(err.Error())
		} else {
			snap := mon.Snapshot()
			line := progressLine(snap.Status)
			if line != last {
				if r.EffectiveMode() == output.ModeJSON {
					if err := r.JSON(snap); err != nil {
						return err
					}
				} else {
					r.StatusLine(string(snap.Status.State), stateStatus(snap.Status.State), line)
				}
				last = line
			}
			switch snap.Status.State {
			case core.JobCompleted, core.JobCancelled:
				return nil
			}
		}

		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

func progressLine(st core.BatchStatus) string {
	progress := st.Progress
	if progress == "" {
		progress = fmt.Sprintf("%d/%d", st.CurrentTask, st.TotalTasks)
	}
	return fmt.Sprintf("%s %d%% ok=%d errors=%d", progress, st.ProgressPercent, st.SuccessCount, st.ErrorCount)
}

func stateStatus(s core.JobState) string {
	switch s {
	case core.JobCompleted, core.JobRunning:
		return "success"
	case core.JobPaused, core.JobCancelled:
		return "warning"
	case core.JobUnavailable:
		return "error"
	}
	return ""
}

func renderBatch(r *output.Renderer, snap batch.Snapshot) error {
	if r.EffectiveMode() == output.ModeJSON {
		return r.JSON(snap)
	}

	st := snap.Status
	r.Header(1, "Batch Job")
	r.KeyValue("State", st.State)
	r.KeyValue("Progress", progressLine(st))
	r.KeyValue("Elapsed", (time.Duration(st.ElapsedSeconds) * time.Second).String())
	allowed := make([]string, 0, len(snap.Allowed))
	for _, c := range snap.Allowed {
		allowed = append(allowed, string(c))
	}
	r.KeyValue("Allowed", output.Join(allowed))
	if snap.Error != "" {
		r.KeyValue("Error", snap.Error)
	}
	r.Println()

	if len(st.RecentResults) > 0 {
		r.Header(2, "Recent Results")
		rows := make([][]any, 0, len(st.RecentResults))
		for _, res := range st.RecentResults {
			rows = append(rows, []any{res.ID, truncate(res.Query, 60), res.Prediction})
		}
		r.Table([]string{"ID", "Query", "Prediction"}, rows)
	}
	if len(st.RecentErrors) > 0 {
		r.Header(2, "Recent Errors")
		rows := make([][]any, 0, len(st.RecentErrors))
		for _, e := range st.RecentErrors {
			rows = append(rows, []any{e.ID, e.Error})
		}
		r.Table([]string{"ID", "Error"}, rows)
	}
	return nil
}
