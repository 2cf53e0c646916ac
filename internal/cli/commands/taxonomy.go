package commands

import (
	"fmt"

	"github.com/leapstack-labs/leapcurate/internal/cli/output"
	"github.com/leapstack-labs/leapcurate/internal/engine"
	"github.com/leapstack-labs/leapcurate/pkg/core"
	"github.com/spf13/cobra"
)

// NewTaxonomyCommand creates the taxonomy command and its subcommands.
func NewTaxonomyCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "taxonomy",
		Aliases: []string{"tax"},
		Short:   "Inspect and edit the service taxonomy",
	}

	cmd.AddCommand(newTaxonomyShowCommand())
	cmd.AddCommand(newTaxonomyAddCommand())
	cmd.AddCommand(newTaxonomyRenameCommand())
	cmd.AddCommand(newTaxonomyDeleteCommand())

	return cmd
}

func newTaxonomyShowCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "List categories and their services",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cmdCtx, cleanup, err := NewCommandContext(cmd)
			if err != nil {
				return err
			}
			defer cleanup()

			if err := cmdCtx.refresh(engine.ResourceTaxonomy); err != nil {
				return err
			}
			m, err := cmdCtx.Engine.Taxonomy()
			if err != nil {
				return err
			}

			r := cmdCtx.Renderer
			if r.EffectiveMode() == output.ModeJSON {
				return r.JSON(m.Taxonomy())
			}

			r.Header(1, fmt.Sprintf("%s (%d categories, %d services)", m.RootLabel(), len(m.Categories()), m.ServiceCount()))
			for _, c := range m.Categories() {
				r.Header(2, c.Name)
				for _, s := range c.Services {
					if r.EffectiveMode() == output.ModeText {
						r.Printf("  • %s\n", s)
					} else {
						r.Printf("- %s\n", s)
					}
				}
				r.Println()
			}
			return nil
		},
	}
}

func newTaxonomyAddCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "add <category> <service>",
		Short:   "Add a service to a category, creating the category if needed",
		Example: `  leapcurate taxonomy add Payroll "Tax Filing"`,
		Args:    cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMutation(cmd, "add", func(c *CommandContext) (core.MutationResult, error) {
				_ = c.refresh(engine.ResourceTaxonomy)
				return c.Engine.AddService(cmd.Context(), args[0], args[1])
			})
		},
	}
}

func newTaxonomyRenameCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "rename <old> <new>",
		Short:   "Rename a category",
		Example: `  leapcurate taxonomy rename Payroll Compensation`,
		Args:    cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMutation(cmd, "rename", func(c *CommandContext) (core.MutationResult, error) {
				// Load the taxonomy so clashes are refused before anything is sent.
				_ = c.refresh(engine.ResourceTaxonomy)
				return c.Engine.RenameCategory(cmd.Context(), args[0], args[1])
			})
		},
	}
}

func newTaxonomyDeleteCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <category>",
		Short: "Delete a category and its services",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMutation(cmd, "delete", func(c *CommandContext) (core.MutationResult, error) {
				_ = c.refresh(engine.ResourceTaxonomy)
				return c.Engine.DeleteCategory(cmd.Context(), args[0])
			})
		},
	}
}

// runMutation runs one backend mutation and reports its result.
func runMutation(cmd *cobra.Command, op string, fn func(*CommandContext) (core.MutationResult, error)) error {
	cmdCtx, cleanup, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	res, err := fn(cmdCtx)
	if err != nil {
		return fmt.Errorf("%s failed: %w", op, err)
	}
	return renderMutation(cmdCtx.Renderer, op, res)
}

func renderMutation(r *output.Renderer, op string, res core.MutationResult) error {
	if r.EffectiveMode() == output.ModeJSON {
		return r.JSON(res)
	}

	msg := res.Message
	if msg == "" {
		msg = fmt.Sprintf("%s %s", op, res.Status)
	}
	switch {
	case res.Status == core.MutationSkipped:
		r.Muted(msg)
	case res.OK():
		r.Success(msg)
	default:
		return fmt.Errorf("%s rejected: %s", op, msg)
	}
	if res.IngestedCount > 0 {
		r.KeyValue("Ingested", res.IngestedCount)
	}
	return nil
}
