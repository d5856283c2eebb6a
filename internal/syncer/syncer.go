// Package syncer reconciles the local item store with a remote store.
//
// Local mutations are pushed record by record through a Pusher. Pulls fetch
// the whole remote collection, merge it into the store last-writer-wins, and
// re-push whatever the remote has not seen yet. Failures never touch local
// state; they land in an ErrorSlot.
package syncer

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"golang.org/x/sync/singleflight"

	"dayplan-cli/internal/model"
	"dayplan-cli/internal/remote"
	"dayplan-cli/internal/store"
)

const (
	DefaultInterval           = 5 * time.Minute
	DefaultTombstoneRetention = 30 * 24 * time.Hour
)

type Options struct {
	// Local, when set, is folded in before every pull. It lets a long-running
	// sync pick up commits other processes wrote to the shared local state.
	Local func(ctx context.Context) (model.Collection, error)

	Interval           time.Duration
	TombstoneRetention time.Duration
	Metrics            *Metrics
	Logger             *slog.Logger
	Now                func() time.Time
}

// Syncer drives pulls and compaction for one store/remote pair.
type Syncer struct {
	store   *store.ItemStore
	remote  remote.Store
	pusher  *Pusher
	metrics *Metrics
	logger  *slog.Logger
	now     func() time.Time
	local   func(ctx context.Context) (model.Collection, error)

	interval  time.Duration
	retention time.Duration

	group singleflight.Group
}

// New wires p's save callbacks so that remote refs flow back into st.
func New(st *store.ItemStore, r remote.Store, p *Pusher, opts Options) *Syncer {
	if opts.Interval <= 0 {
		opts.Interval = DefaultInterval
	}
	if opts.TombstoneRetention <= 0 {
		opts.TombstoneRetention = DefaultTombstoneRetention
	}
	if opts.Metrics == nil {
		opts.Metrics = p.metrics
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	s := &Syncer{
		store:     st,
		remote:    r,
		pusher:    p,
		metrics:   opts.Metrics,
		logger:    opts.Logger,
		now:       opts.Now,
		local:     opts.Local,
		interval:  opts.Interval,
		retention: opts.TombstoneRetention,
	}
	p.OnItemSaved = s.recordItemRef
	p.OnDaySaved = s.recordDayRef
	return s
}

func (s *Syncer) Pusher() *Pusher { return s.pusher }

// PullResult summarizes one pull.
type PullResult struct {
	Fetched  int `json:"fetched"`  // remote records seen
	Incoming int `json:"incoming"` // remote records that replaced or added local ones
	Outgoing int `json:"outgoing"` // local records queued for re-push
}

// Pull fetches the remote collection and merges it into the store.
// Concurrent calls share one fetch.
func (s *Syncer) Pull(ctx context.Context) (PullResult, error) {
	v, err, _ := s.group.Do("pull", func() (any, error) {
		return s.pull(ctx)
	})
	if err != nil {
		return PullResult{}, err
	}
	return v.(PullResult), nil
}

func (s *Syncer) pull(ctx context.Context) (PullResult, error) {
	rc, err := s.remote.FetchAll(ctx)
	if err != nil {
		s.metrics.Pulls.WithLabelValues("error").Inc()
		s.pusher.Errors().Report(err)
		return PullResult{}, err
	}

	var disk model.Collection
	if s.local != nil {
		if disk, err = s.local(ctx); err != nil {
			s.metrics.Pulls.WithLabelValues("error").Inc()
			return PullResult{}, err
		}
	}

	res := PullResult{Fetched: len(rc.Items) + len(rc.Days)}
	var outItems []model.Item
	var outDays []model.DayState
	var merged int
	err = s.store.ReplaceWith(ctx, func(cur model.Collection) (model.Collection, error) {
		if s.local != nil {
			cur = Merge(cur, disk)
		}
		inItems, inDays := Outgoing(rc, cur)
		res.Incoming = len(inItems) + len(inDays)
		outItems, outDays = Outgoing(cur, rc)
		next := Merge(cur, rc)
		merged = len(next.Items) + len(next.Days)
		return next, nil
	})
	if err != nil {
		s.metrics.Pulls.WithLabelValues("error").Inc()
		return PullResult{}, err
	}
	s.metrics.Pulls.WithLabelValues("ok").Inc()
	s.metrics.Merged.Add(float64(merged))

	for _, it := range outItems {
		s.pusher.PushItem(it)
	}
	for _, d := range outDays {
		s.pusher.PushDay(d)
	}
	res.Outgoing = len(outItems) + len(outDays)
	s.logger.Debug("Pulled remote", "fetched", res.Fetched, "incoming", res.Incoming, "outgoing", res.Outgoing)
	return res, nil
}

// Run pulls once, then on every interval tick and every remote change
// notification, until ctx is done. Pull failures are reported, not returned.
func (s *Syncer) Run(ctx context.Context) error {
	var changes <-chan struct{}
	if w, ok := s.remote.(remote.Watcher); ok {
		ch, err := w.Watch(ctx)
		if err != nil {
			s.logger.Warn("Remote watch unavailable; polling only", "error", err)
		} else {
			changes = ch
		}
	}

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.pullLogged(ctx)
	for {
		select {
		case <-ctx.Done():
			if errors.Is(ctx.Err(), context.Canceled) {
				return nil
			}
			return ctx.Err()
		case <-ticker.C:
			s.pullLogged(ctx)
		case _, ok := <-changes:
			if !ok {
				changes = nil
				continue
			}
			s.pullLogged(ctx)
		}
	}
}

func (s *Syncer) pullLogged(ctx context.Context) {
	if _, err := s.Pull(ctx); err != nil && ctx.Err() == nil {
		s.logger.Warn("Pull failed; will retry", "error", err)
	}
}

// CompactResult summarizes one compaction.
type CompactResult struct {
	Purged []string `json:"purged"`
	Failed []string `json:"failed,omitempty"`
}

// Compact hard-deletes tombstones older than the retention window, remotely
// first and then locally. A tombstone whose remote delete fails stays local and
// is retried by the next compaction.
func (s *Syncer) Compact(ctx context.Context) (CompactResult, error) {
	// A queued tombstone save must not land after its delete.
	if err := s.pusher.Flush(ctx); err != nil {
		return CompactResult{}, err
	}

	cutoff := s.now().Add(-s.retention)
	var due []model.Item
	for _, it := range s.store.All().Items {
		if it.Deleted() && it.DeletedAt.Before(cutoff) {
			due = append(due, it)
		}
	}

	res := CompactResult{Purged: []string{}}
	var errs []error
	for _, it := range due {
		if err := s.remote.DeleteItem(ctx, remote.RefOf(it)); err != nil {
			res.Failed = append(res.Failed, it.ID)
			errs = append(errs, err)
			s.pusher.Errors().Report(err)
			continue
		}
		res.Purged = append(res.Purged, it.ID)
	}
	if len(res.Purged) > 0 {
		purged := res.Purged
		if _, err := s.store.Apply(ctx, func(tx *store.Tx) error {
			for _, id := range purged {
				// Skip ids revived since the scan.
				if cur, ok := tx.Item(id); ok && cur.Deleted() {
					tx.RemoveItem(id)
				}
			}
			return nil
		}); err != nil {
			return res, err
		}
	}
	s.logger.Info("Compacted tombstones", "purged", len(res.Purged), "failed", len(res.Failed))
	return res, errors.Join(errs...)
}

func (s *Syncer) recordItemRef(saved model.Item) {
	if saved.RemoteRef == "" {
		return
	}
	_, err := s.store.Apply(context.Background(), func(tx *store.Tx) error {
		cur, ok := tx.Item(saved.ID)
		if !ok || cur.RemoteRef == saved.RemoteRef {
			return nil
		}
		cur.RemoteRef = saved.RemoteRef
		tx.PutItem(cur)
		return nil
	})
	if err != nil {
		s.logger.Warn("Failed to record remote ref", "id", saved.ID, "error", err)
	}
}

func (s *Syncer) recordDayRef(saved model.DayState) {
	if saved.RemoteRef == "" {
		return
	}
	_, err := s.store.Apply(context.Background(), func(tx *store.Tx) error {
		cur, ok := tx.Day(saved.Day)
		if !ok || cur.RemoteRef == saved.RemoteRef {
			return nil
		}
		cur.RemoteRef = saved.RemoteRef
		tx.PutDay(cur)
		return nil
	})
	if err != nil {
		s.logger.Warn("Failed to record remote ref", "day", saved.Day, "error", err)
	}
}
