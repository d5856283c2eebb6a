package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"dayplan-cli/internal/config"
	"dayplan-cli/internal/mutate"
	"dayplan-cli/internal/remote"
	"dayplan-cli/internal/store"
	"dayplan-cli/internal/syncer"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
)

// local is the read side every command needs: config plus the persisted store.
type local struct {
	cfg    config.Config
	logger *slog.Logger
	db     *store.SQLite
	store  *store.ItemStore
}

func openLocal(cmd *cobra.Command, app *App) (*local, error) {
	dir := app.ConfigDir
	if strings.TrimSpace(dir) == "" {
		d, err := config.Dir()
		if err != nil {
			return nil, err
		}
		dir = d
	}
	cfg, err := config.Load(dir)
	if err != nil {
		return nil, err
	}
	if v := strings.TrimSpace(app.DataDir); v != "" {
		cfg.DataDir = v
	}
	if v := strings.TrimSpace(app.Remote); v != "" {
		cfg.Remote.Kind = v
		if err := cfg.Validate(); err != nil {
			return nil, usageErrorf("%v", err)
		}
	}
	level := cfg.LogLevel
	if strings.TrimSpace(app.LogLevel) != "" {
		level = app.LogLevel
	}
	logger, err := newLogger(cmd, level)
	if err != nil {
		return nil, err
	}

	ctx := cmd.Context()
	db, err := store.OpenSQLite(ctx, store.StatePath(cfg.DataDir))
	if err != nil {
		return nil, fmt.Errorf("open local state: %w", err)
	}
	coll, err := db.Load(ctx)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("load local state: %w", err)
	}
	return &local{
		cfg:    cfg,
		logger: logger,
		db:     db,
		store:  store.NewItemStore(coll, store.WithPersister(db), store.WithLogger(logger)),
	}, nil
}

func (l *local) Close() error { return l.db.Close() }

// services adds the sync side: remote, push queue, syncer and the mutation
// coordinator that feeds them.
type services struct {
	*local
	remote   remote.Store
	registry *prometheus.Registry
	pusher   *syncer.Pusher
	syncer   *syncer.Syncer
	coord    *mutate.Coordinator
}

func openServices(cmd *cobra.Command, app *App) (*services, error) {
	l, err := openLocal(cmd, app)
	if err != nil {
		return nil, err
	}
	r, err := openRemote(cmd.Context(), l.cfg.Remote, l.logger)
	if err != nil {
		_ = l.Close()
		return nil, err
	}

	reg := prometheus.NewRegistry()
	metrics := syncer.NewMetrics(reg)
	sc := l.cfg.Sync
	p := syncer.NewPusher(r, syncer.PushConfig{
		QueueSize:  sc.QueueSize,
		Timeout:    sc.SaveTimeout.Std(),
		MaxRetries: sc.MaxRetries,
	}, nil, metrics, l.logger)
	sy := syncer.New(l.store, r, p, syncer.Options{
		Local:              l.db.Load,
		Interval:           sc.Interval.Std(),
		TombstoneRetention: sc.TombstoneRetention.Std(),
		Metrics:            metrics,
		Logger:             l.logger,
	})
	return &services{
		local:    l,
		remote:   r,
		registry: reg,
		pusher:   p,
		syncer:   sy,
		coord:    mutate.NewCoordinator(l.store, p, mutate.WithLogger(l.logger)),
	}, nil
}

func openRemote(ctx context.Context, rc config.RemoteConfig, logger *slog.Logger) (remote.Store, error) {
	switch rc.Kind {
	case config.RemoteMemory:
		return remote.NewMemory(), nil
	case config.RemoteDir:
		return remote.OpenDir(rc.Dir, logger)
	case config.RemoteNATS:
		return remote.DialNATS(ctx, rc.NATSURL, rc.Bucket, logger)
	default:
		return nil, usageErrorf("unknown remote kind: %q", rc.Kind)
	}
}

// flushTimeout covers every attempt of one push plus some backoff slack.
func (s *services) flushTimeout() time.Duration {
	sc := s.cfg.Sync
	return time.Duration(sc.MaxRetries+1)*sc.SaveTimeout.Std() + 5*time.Second
}

// settle waits for queued pushes and returns the sync warnings to surface.
// Push failures never fail the command: local state is already committed.
func (s *services) settle(ctx context.Context) []string {
	ctx, cancel := context.WithTimeout(ctx, s.flushTimeout())
	defer cancel()
	warnings := []string{}
	if err := s.pusher.Flush(ctx); err != nil {
		warnings = append(warnings, fmt.Sprintf("sync: %d change(s) still queued: %v", s.pusher.Pending(), err))
	}
	if n, ok := s.pusher.Errors().Last(); ok {
		warnings = append(warnings, fmt.Sprintf("sync: %v (will retry on next sync)", n.Err))
		s.logger.Warn("Sync failed", "error", n.Err, "failures", s.pusher.Errors().Count())
	}
	return warnings
}

func (s *services) Close() error {
	s.pusher.Close()
	if c, ok := s.remote.(io.Closer); ok {
		_ = c.Close()
	}
	return s.local.Close()
}

// respond settles pending pushes and writes the standard envelope.
func (s *services) respond(cmd *cobra.Command, app *App, data any, hints ...string) error {
	warnings := s.settle(cmd.Context())
	out := map[string]any{"data": data}
	if len(hints) > 0 {
		out["_hints"] = hints
	}
	if len(warnings) > 0 {
		out["_warnings"] = warnings
	}
	return writeOut(cmd, app, out)
}
