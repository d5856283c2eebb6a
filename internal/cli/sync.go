package cli

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
)

func newSyncCmd(app *App) *cobra.Command {
	var watch bool
	var metricsAddr string
	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Pull remote changes and push local ones",
		Long: "Pull the remote collection, merge it into local state (newest write wins, " +
			"remote wins ties) and push records the remote has not seen. " +
			"With --watch, keep syncing on every interval and remote change until interrupted.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openServices(cmd, app)
			if err != nil {
				return writeErr(cmd, err)
			}
			defer s.Close()

			if !watch {
				res, err := s.syncer.Pull(cmd.Context())
				if err != nil {
					return writeErr(cmd, err)
				}
				return s.respond(cmd, app, res)
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			addr := strings.TrimSpace(metricsAddr)
			if addr == "" {
				addr = strings.TrimSpace(s.cfg.MetricsAddr)
			}
			if addr != "" {
				shutdown, err := serveMetrics(ctx, s, addr)
				if err != nil {
					return writeErr(cmd, err)
				}
				defer shutdown()
			}

			s.logger.Info("Watching for changes", "remote", s.cfg.Remote.Kind, "interval", s.cfg.Sync.Interval.Std())
			if err := s.syncer.Run(ctx); err != nil {
				return writeErr(cmd, err)
			}
			return s.respond(cmd, app, map[string]any{"stopped": true})
		},
	}
	cmd.Flags().BoolVar(&watch, "watch", false, "Keep syncing until interrupted")
	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address while watching (e.g. :9464)")
	return cmd
}

// serveMetrics exposes the sync registry on addr/metrics until the returned
// shutdown func is called.
func serveMetrics(ctx context.Context, s *services, addr string) (func(), error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{}))
	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Warn("Metrics server stopped", "error", err)
		}
	}()
	s.logger.Info("Serving metrics", "addr", ln.Addr().String())
	return func() {
		sctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(sctx)
	}, nil
}

func newCompactCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "compact",
		Short: "Permanently remove deleted items older than the retention window",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openServices(cmd, app)
			if err != nil {
				return writeErr(cmd, err)
			}
			defer s.Close()

			res, err := s.syncer.Compact(cmd.Context())
			if err != nil && len(res.Failed) == 0 {
				return writeErr(cmd, err)
			}
			// Failed remote deletes are retried next time and surface as warnings.
			return s.respond(cmd, app, res)
		},
	}
}
