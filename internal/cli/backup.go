package cli

import (
	"strings"

	"dayplan-cli/internal/model"
	"dayplan-cli/internal/store"
	"dayplan-cli/internal/syncer"

	"github.com/spf13/cobra"
)

func newBackupCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "backup",
		Short: "Export or restore local state as JSONL",
	}
	cmd.AddCommand(newBackupExportCmd(app))
	cmd.AddCommand(newBackupRestoreCmd(app))
	return cmd
}

func newBackupExportCmd(app *App) *cobra.Command {
	var to string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write every item and day record (tombstones included) to a JSONL file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if strings.TrimSpace(to) == "" {
				return writeErr(cmd, usageErrorf("missing --to"))
			}
			l, err := openLocal(cmd, app)
			if err != nil {
				return writeErr(cmd, err)
			}
			defer l.Close()

			coll := l.store.All()
			if err := store.WriteBackupJSONL(to, coll); err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, map[string]any{
				"data": map[string]any{"path": to, "items": len(coll.Items), "days": len(coll.Days)},
			})
		},
	}
	cmd.Flags().StringVar(&to, "to", "", "Output file")
	return cmd
}

func newBackupRestoreCmd(app *App) *cobra.Command {
	var from string
	cmd := &cobra.Command{
		Use:   "restore",
		Short: "Merge a JSONL backup into local state (newest write wins) and push what changed",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if strings.TrimSpace(from) == "" {
				return writeErr(cmd, usageErrorf("missing --from"))
			}
			backup, err := store.ReadBackupJSONL(from)
			if err != nil {
				return writeErr(cmd, err)
			}
			s, err := openServices(cmd, app)
			if err != nil {
				return writeErr(cmd, err)
			}
			defer s.Close()

			var items []model.Item
			var days []model.DayState
			err = s.store.ReplaceWith(cmd.Context(), func(cur model.Collection) (model.Collection, error) {
				items, days = syncer.Outgoing(backup, cur)
				return syncer.Merge(cur, backup), nil
			})
			if err != nil {
				return writeErr(cmd, err)
			}
			for _, it := range items {
				s.pusher.PushItem(it)
			}
			for _, d := range days {
				s.pusher.PushDay(d)
			}
			return s.respond(cmd, app, map[string]any{"restored": len(items) + len(days)})
		},
	}
	cmd.Flags().StringVar(&from, "from", "", "Backup file written by backup export")
	return cmd
}
