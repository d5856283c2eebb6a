package cli

import (
	"time"

	"dayplan-cli/internal/format"
	"dayplan-cli/internal/model"
	"dayplan-cli/internal/order"

	"github.com/spf13/cobra"
)

func dayView(day model.DayKey, coll model.Collection) format.DayView {
	return format.DayView{
		Day:   day,
		Mode:  string(order.ModeFor(day, coll)),
		Items: order.Resolve(day, coll),
	}
}

func newDayCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "day [date]",
		Short: "List a day's items in display order",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			arg := ""
			if len(args) > 0 {
				arg = args[0]
			}
			day, err := parseDayArg(arg, time.Now())
			if err != nil {
				return writeErr(cmd, err)
			}
			l, err := openLocal(cmd, app)
			if err != nil {
				return writeErr(cmd, err)
			}
			defer l.Close()

			v := dayView(day, l.store.All())
			if app.Format == "text" {
				return writeOut(cmd, app, v)
			}
			return writeOut(cmd, app, map[string]any{"data": v})
		},
	}
}

func newReorderCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "reorder <date> <item-id>...",
		Short: "Put a day under manual order, in the order given",
		Long: "Put a day under manual order. Items are shown in the order given; " +
			"items of the day not listed keep their relative order after them. " +
			"Unknown, deleted or other-day ids are skipped.",
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			day, err := parseDayArg(args[0], time.Now())
			if err != nil {
				return writeErr(cmd, err)
			}
			s, err := openServices(cmd, app)
			if err != nil {
				return writeErr(cmd, err)
			}
			defer s.Close()

			res, err := s.coord.ApplyReorder(cmd.Context(), day, args[1:])
			if err != nil {
				return writeErr(cmd, err)
			}
			return s.respond(cmd, app, res, "dayplan reset "+string(day))
		},
	}
}

func newMoveCmd(app *App) *cobra.Command {
	var before, after string
	cmd := &cobra.Command{
		Use:   "move <item-id>",
		Short: "Move an item before or after another item of the same day",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if (before == "" && after == "") || (before != "" && after != "") {
				return writeErr(cmd, usageErrorf("provide exactly one of --before or --after"))
			}
			anchor, isAfter := before, false
			if after != "" {
				anchor, isAfter = after, true
			}

			s, err := openServices(cmd, app)
			if err != nil {
				return writeErr(cmd, err)
			}
			defer s.Close()

			res, err := s.coord.MoveItem(cmd.Context(), args[0], anchor, isAfter)
			if err != nil {
				return writeErr(cmd, err)
			}
			return s.respond(cmd, app, res)
		},
	}
	cmd.Flags().StringVar(&before, "before", "", "Move before item id")
	cmd.Flags().StringVar(&after, "after", "", "Move after item id")
	return cmd
}

func newResetCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "reset [date]",
		Short: "Return a day to chronological order",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			arg := ""
			if len(args) > 0 {
				arg = args[0]
			}
			day, err := parseDayArg(arg, time.Now())
			if err != nil {
				return writeErr(cmd, err)
			}
			s, err := openServices(cmd, app)
			if err != nil {
				return writeErr(cmd, err)
			}
			defer s.Close()

			if _, err := s.coord.ResetToChronological(cmd.Context(), day); err != nil {
				return writeErr(cmd, err)
			}
			return s.respond(cmd, app, dayView(day, s.store.All()))
		},
	}
}
