package cli

import (
	"io"
	"strings"
	"time"

	"dayplan-cli/internal/format"
	"dayplan-cli/internal/mutate"
	"dayplan-cli/internal/publish"

	"github.com/spf13/cobra"
)

func newAddCmd(app *App) *cobra.Command {
	var date, clock, description string
	cmd := &cobra.Command{
		Use:   "add <title>",
		Short: "Add an item to the end of a day",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			day, err := parseDayArg(date, time.Now())
			if err != nil {
				return writeErr(cmd, err)
			}
			s, err := openServices(cmd, app)
			if err != nil {
				return writeErr(cmd, err)
			}
			defer s.Close()

			it, err := s.coord.AddItem(cmd.Context(), mutate.NewItem{
				Title:       strings.Join(args, " "),
				Description: description,
				Date:        string(day),
				Time:        clock,
			})
			if err != nil {
				return writeErr(cmd, err)
			}
			return s.respond(cmd, app, it)
		},
	}
	cmd.Flags().StringVar(&date, "date", "", "Day (YYYY-MM-DD, today, tomorrow, yesterday; default today)")
	cmd.Flags().StringVar(&clock, "time", "", "Time of day (HH:MM); omit for an untimed item")
	cmd.Flags().StringVar(&description, "description", "", "Free-form notes")
	return cmd
}

func newEditCmd(app *App) *cobra.Command {
	var title, description, date, clock string
	cmd := &cobra.Command{
		Use:   "edit <item-id>",
		Short: "Edit an item (only the flags given are changed)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var p mutate.ItemPatch
			f := cmd.Flags()
			if f.Changed("title") {
				p.Title = &title
			}
			if f.Changed("description") {
				p.Description = &description
			}
			if f.Changed("date") {
				day, err := parseDayArg(date, time.Now())
				if err != nil {
					return writeErr(cmd, err)
				}
				v := string(day)
				p.Date = &v
			}
			if f.Changed("time") {
				p.Time = &clock
			}
			if p == (mutate.ItemPatch{}) {
				return writeErr(cmd, usageErrorf("nothing to change; pass at least one of --title, --description, --date, --time"))
			}

			s, err := openServices(cmd, app)
			if err != nil {
				return writeErr(cmd, err)
			}
			defer s.Close()

			it, err := s.coord.UpdateItem(cmd.Context(), args[0], p)
			if err != nil {
				return writeErr(cmd, err)
			}
			return s.respond(cmd, app, it)
		},
	}
	cmd.Flags().StringVar(&title, "title", "", "New title")
	cmd.Flags().StringVar(&description, "description", "", "New notes")
	cmd.Flags().StringVar(&date, "date", "", "Move to another day (appends to that day)")
	cmd.Flags().StringVar(&clock, "time", "", `New time (HH:MM); "" clears it`)
	return cmd
}

func newDeleteCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:     "delete <item-id>",
		Aliases: []string{"rm"},
		Short:   "Delete an item (synced as a tombstone until compaction)",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openServices(cmd, app)
			if err != nil {
				return writeErr(cmd, err)
			}
			defer s.Close()

			it, err := s.coord.DeleteItem(cmd.Context(), args[0])
			if err != nil {
				return writeErr(cmd, err)
			}
			return s.respond(cmd, app, it)
		},
	}
}

func newShowCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "show <item-id>",
		Short: "Show one item",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			l, err := openLocal(cmd, app)
			if err != nil {
				return writeErr(cmd, err)
			}
			defer l.Close()

			id := strings.TrimSpace(args[0])
			it, ok := l.store.All().FindItem(id)
			if !ok || it.Deleted() {
				return writeErr(cmd, mutate.NotFoundError{Kind: "item", ID: id})
			}
			if app.Format == "text" {
				md := publish.RenderItemMarkdown(it)
				_, err := io.WriteString(cmd.OutOrStdout(), format.RenderMarkdown(md, 80, format.ColorEnabled())+"\n")
				return err
			}
			return writeOut(cmd, app, map[string]any{"data": it})
		},
	}
}
