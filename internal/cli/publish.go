package cli

import (
	"time"

	"dayplan-cli/internal/model"
	"dayplan-cli/internal/publish"

	"github.com/spf13/cobra"
)

func newPublishCmd(app *App) *cobra.Command {
	var toDir string
	var overwrite bool

	cmd := &cobra.Command{
		Use:   "publish <date>...",
		Short: "Export days and their items as Markdown (derived, not canonical)",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			days := make([]model.DayKey, 0, len(args))
			for _, a := range args {
				d, err := parseDayArg(a, time.Now())
				if err != nil {
					return writeErr(cmd, err)
				}
				days = append(days, d)
			}
			l, err := openLocal(cmd, app)
			if err != nil {
				return writeErr(cmd, err)
			}
			defer l.Close()

			res, err := publish.WriteDays(l.store.All(), days, toDir, publish.WriteOptions{Overwrite: overwrite})
			if err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, map[string]any{"data": res})
		},
	}
	cmd.Flags().StringVar(&toDir, "to", "", "Output directory")
	cmd.Flags().BoolVar(&overwrite, "overwrite", false, "Overwrite existing files")
	return cmd
}
