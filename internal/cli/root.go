package cli

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"dayplan-cli/internal/config"
	"dayplan-cli/internal/format"

	"github.com/spf13/cobra"
)

type App struct {
	ConfigDir  string
	DataDir    string
	Remote     string
	LogLevel   string
	PrettyJSON bool
	Format     string
}

func NewRootCmd() *cobra.Command {
	app := &App{}

	cmd := &cobra.Command{
		Use:          "dayplan",
		Short:        "Local-first day planner with manual ordering and sync",
		SilenceUsage: true,
		Example: strings.TrimSpace(`
  # Plan something
  dayplan add "Standup" --date 2026-03-04 --time 09:00
  dayplan add "Buy milk" --date 2026-03-04

  # Look at a day (chronological unless reordered)
  dayplan day 2026-03-04 --format text

  # Take manual control, then hand it back
  dayplan reorder 2026-03-04 item-b item-a
  dayplan reset 2026-03-04

  # Direct item lookup (shortcut for: dayplan show <item-id>)
  dayplan item-3f2a
`),
	}

	cmd.PersistentFlags().StringVar(&app.ConfigDir, "config-dir", envOr(config.EnvConfigDir, ""), "Config dir (default: ~/.dayplan)")
	cmd.PersistentFlags().StringVar(&app.DataDir, "data-dir", envOr("DAYPLAN_DATA_DIR", ""), "Local state dir (overrides dataDir in config.yaml)")
	cmd.PersistentFlags().StringVar(&app.Remote, "remote", envOr("DAYPLAN_REMOTE", ""), "Remote kind (memory|dir|nats; overrides config.yaml)")
	cmd.PersistentFlags().StringVar(&app.LogLevel, "log-level", envOr("DAYPLAN_LOG_LEVEL", ""), "Log level (debug|info|warn|error)")
	cmd.PersistentFlags().BoolVar(&app.PrettyJSON, "pretty", false, "Pretty-print JSON output")
	cmd.PersistentFlags().StringVar(&app.Format, "format", envOr("DAYPLAN_FORMAT", "json"), "Output format (json|yaml|text)")

	cmd.AddCommand(newAddCmd(app))
	cmd.AddCommand(newEditCmd(app))
	cmd.AddCommand(newDeleteCmd(app))
	cmd.AddCommand(newShowCmd(app))
	cmd.AddCommand(newDayCmd(app))
	cmd.AddCommand(newReorderCmd(app))
	cmd.AddCommand(newMoveCmd(app))
	cmd.AddCommand(newResetCmd(app))
	cmd.AddCommand(newChecklistCmd(app))
	cmd.AddCommand(newSyncCmd(app))
	cmd.AddCommand(newCompactCmd(app))
	cmd.AddCommand(newPublishCmd(app))
	cmd.AddCommand(newBackupCmd(app))
	cmd.AddCommand(newConfigCmd(app))

	return cmd
}

func envOr(k, d string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return d
}

// newLogger writes text logs to stderr so stdout stays machine-readable.
func newLogger(cmd *cobra.Command, level string) (*slog.Logger, error) {
	var lvl slog.Level
	if strings.TrimSpace(level) != "" {
		if err := lvl.UnmarshalText([]byte(strings.TrimSpace(level))); err != nil {
			return nil, usageErrorf("invalid log level %q", level)
		}
	}
	h := slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: lvl})
	return slog.New(h), nil
}

func writeOut(cmd *cobra.Command, app *App, v any) error {
	return format.Write(cmd.OutOrStdout(), v, app.Format, app.PrettyJSON)
}

func writeErr(cmd *cobra.Command, err error) error {
	fmt.Fprintln(cmd.ErrOrStderr(), err.Error())
	return err
}
