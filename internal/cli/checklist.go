package cli

import (
	"strings"

	"github.com/spf13/cobra"
)

func newChecklistCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "checklist",
		Aliases: []string{"cl"},
		Short:   "Manage an item's checklist",
	}
	cmd.AddCommand(newChecklistAddCmd(app))
	cmd.AddCommand(newChecklistToggleCmd(app))
	cmd.AddCommand(newChecklistReorderCmd(app))
	return cmd
}

func newChecklistAddCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "add <item-id> <title>",
		Short: "Append a checklist entry",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openServices(cmd, app)
			if err != nil {
				return writeErr(cmd, err)
			}
			defer s.Close()

			e, err := s.coord.AddChecklistEntry(cmd.Context(), args[0], strings.Join(args[1:], " "))
			if err != nil {
				return writeErr(cmd, err)
			}
			return s.respond(cmd, app, e)
		},
	}
}

func newChecklistToggleCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "toggle <item-id> <entry-id>",
		Short: "Flip a checklist entry between done and open",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openServices(cmd, app)
			if err != nil {
				return writeErr(cmd, err)
			}
			defer s.Close()

			e, err := s.coord.ToggleChecklistEntry(cmd.Context(), args[0], args[1])
			if err != nil {
				return writeErr(cmd, err)
			}
			return s.respond(cmd, app, e)
		},
	}
}

func newChecklistReorderCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "reorder <item-id> <entry-id>...",
		Short: "Reorder checklist entries",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openServices(cmd, app)
			if err != nil {
				return writeErr(cmd, err)
			}
			defer s.Close()

			it, err := s.coord.ReorderChecklist(cmd.Context(), args[0], args[1:])
			if err != nil {
				return writeErr(cmd, err)
			}
			return s.respond(cmd, app, it)
		},
	}
}
