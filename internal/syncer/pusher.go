package syncer

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"

	"dayplan-cli/internal/model"
	"dayplan-cli/internal/remote"
)

// PushConfig bounds the push queue.
type PushConfig struct {
	Workers        int
	QueueSize      int
	Timeout        time.Duration // per attempt
	MaxRetries     int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
}

func DefaultPushConfig() PushConfig {
	return PushConfig{
		Workers:        2,
		QueueSize:      256,
		Timeout:        10 * time.Second,
		MaxRetries:     3,
		InitialBackoff: 500 * time.Millisecond,
		MaxBackoff:     5 * time.Second,
	}
}

// Pusher writes local changes to the remote store in the background.
//
// Jobs are keyed by record. A newer job for a key replaces a queued one and
// cancels an in-flight one, so at most one write per record is ever running
// and a stale write cannot land after a newer one started. Each attempt is
// bounded by Timeout and retried with exponential backoff; exhausted jobs are
// dropped and reported through the ErrorSlot.
type Pusher struct {
	remote  remote.Store
	cfg     PushConfig
	slot    *ErrorSlot
	metrics *Metrics
	logger  *slog.Logger

	// Called after a successful save with the canonical remote form.
	OnItemSaved func(model.Item)
	OnDaySaved  func(model.DayState)

	mu       sync.Mutex
	cond     *sync.Cond
	queue    []string
	pending  map[string]job
	inflight map[string]*flight
	idle     chan struct{}
	closed   bool

	base   context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

type job struct {
	kind string // "item", "day" or "delete"
	run  func(ctx context.Context) error
}

type flight struct {
	cancel     context.CancelFunc
	superseded bool
}

func NewPusher(r remote.Store, cfg PushConfig, slot *ErrorSlot, metrics *Metrics, logger *slog.Logger) *Pusher {
	def := DefaultPushConfig()
	if cfg.Workers <= 0 {
		cfg.Workers = def.Workers
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = def.QueueSize
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = def.Timeout
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if cfg.InitialBackoff <= 0 {
		cfg.InitialBackoff = def.InitialBackoff
	}
	if cfg.MaxBackoff <= 0 {
		cfg.MaxBackoff = def.MaxBackoff
	}
	if slot == nil {
		slot = &ErrorSlot{}
	}
	if metrics == nil {
		metrics = NewMetrics(nil)
	}
	if logger == nil {
		logger = slog.Default()
	}

	base, cancel := context.WithCancel(context.Background())
	idle := make(chan struct{})
	close(idle)
	p := &Pusher{
		remote:   r,
		cfg:      cfg,
		slot:     slot,
		metrics:  metrics,
		logger:   logger,
		pending:  map[string]job{},
		inflight: map[string]*flight{},
		idle:     idle,
		base:     base,
		cancel:   cancel,
	}
	p.cond = sync.NewCond(&p.mu)
	for i := 0; i < cfg.Workers; i++ {
		p.wg.Add(1)
		go p.worker()
	}
	return p
}

// Errors exposes the slot background failures are reported to.
func (p *Pusher) Errors() *ErrorSlot { return p.slot }

// PushItem queues an upsert of it.
func (p *Pusher) PushItem(it model.Item) {
	it = it.Clone()
	p.enqueue("item:"+it.ID, job{kind: "item", run: func(ctx context.Context) error {
		saved, err := p.remote.SaveItem(ctx, it)
		if err != nil {
			return err
		}
		if p.OnItemSaved != nil {
			p.OnItemSaved(saved)
		}
		return nil
	}})
}

// PushDay queues an upsert of d.
func (p *Pusher) PushDay(d model.DayState) {
	p.enqueue("day:"+string(d.Day), job{kind: "day", run: func(ctx context.Context) error {
		saved, err := p.remote.SaveDay(ctx, d)
		if err != nil {
			return err
		}
		if p.OnDaySaved != nil {
			p.OnDaySaved(saved)
		}
		return nil
	}})
}

// PushDelete queues a hard delete. It shares the item's key, so it supersedes
// any pending save of the same item.
func (p *Pusher) PushDelete(ref remote.ItemRef) {
	p.enqueue("item:"+ref.ID, job{kind: "delete", run: func(ctx context.Context) error {
		return p.remote.DeleteItem(ctx, ref)
	}})
}

func (p *Pusher) enqueue(key string, j job) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		p.metrics.Pushes.WithLabelValues(j.kind, "dropped").Inc()
		return
	}

	if f, ok := p.inflight[key]; ok && !f.superseded {
		f.superseded = true
		f.cancel()
	}
	if _, queued := p.pending[key]; queued {
		p.pending[key] = j
		p.metrics.Pushes.WithLabelValues(j.kind, "superseded").Inc()
		return
	}
	if len(p.queue) >= p.cfg.QueueSize {
		p.metrics.Pushes.WithLabelValues(j.kind, "dropped").Inc()
		p.slot.Report(ErrQueueFull)
		p.logger.Warn("Sync queue full; dropping push", "key", key)
		return
	}

	if p.isIdleLocked() {
		p.idle = make(chan struct{})
	}
	p.pending[key] = j
	p.queue = append(p.queue, key)
	p.metrics.QueueDepth.Set(float64(len(p.queue)))
	p.cond.Broadcast()
}

func (p *Pusher) isIdleLocked() bool {
	return len(p.queue) == 0 && len(p.inflight) == 0
}

func (p *Pusher) markIdleLocked() {
	select {
	case <-p.idle:
	default:
		close(p.idle)
	}
}

// next blocks until a job whose key is not already running is available.
func (p *Pusher) next() (string, job, *flight, context.Context, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for {
		if p.closed {
			return "", job{}, nil, nil, false
		}
		for i, key := range p.queue {
			if _, busy := p.inflight[key]; busy {
				continue
			}
			j := p.pending[key]
			delete(p.pending, key)
			p.queue = append(p.queue[:i], p.queue[i+1:]...)
			p.metrics.QueueDepth.Set(float64(len(p.queue)))

			ctx, cancel := context.WithCancel(p.base)
			f := &flight{cancel: cancel}
			p.inflight[key] = f
			return key, j, f, ctx, true
		}
		p.cond.Wait()
	}
}

func (p *Pusher) worker() {
	defer p.wg.Done()
	for {
		key, j, f, ctx, ok := p.next()
		if !ok {
			return
		}
		start := time.Now()
		err := p.attempt(ctx, j)
		f.cancel()
		p.metrics.PushDuration.Observe(time.Since(start).Seconds())

		p.mu.Lock()
		superseded := f.superseded
		delete(p.inflight, key)
		switch {
		case superseded:
			p.metrics.Pushes.WithLabelValues(j.kind, "superseded").Inc()
		case err != nil:
			p.metrics.Pushes.WithLabelValues(j.kind, "error").Inc()
		default:
			p.metrics.Pushes.WithLabelValues(j.kind, "ok").Inc()
		}
		if p.isIdleLocked() {
			p.markIdleLocked()
		}
		p.cond.Broadcast()
		p.mu.Unlock()

		if err != nil && !superseded && !errors.Is(err, context.Canceled) {
			p.slot.Report(err)
			p.logger.Warn("Remote write failed; keeping local state", "key", key, "error", err)
		}
	}
}

func (p *Pusher) attempt(ctx context.Context, j job) error {
	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = p.cfg.InitialBackoff
	eb.MaxInterval = p.cfg.MaxBackoff
	eb.MaxElapsedTime = 0
	b := backoff.WithContext(backoff.WithMaxRetries(eb, uint64(p.cfg.MaxRetries)), ctx)

	return backoff.Retry(func() error {
		actx, cancel := context.WithTimeout(ctx, p.cfg.Timeout)
		defer cancel()
		return j.run(actx)
	}, b)
}

// Flush waits until every queued and in-flight write has finished, or ctx ends.
func (p *Pusher) Flush(ctx context.Context) error {
	p.mu.Lock()
	idle := p.idle
	p.mu.Unlock()
	select {
	case <-idle:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Pending reports queued plus in-flight writes.
func (p *Pusher) Pending() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.queue) + len(p.inflight)
}

// Close stops the workers. Queued writes are dropped and in-flight ones are
// cancelled; call Flush first to let them finish.
func (p *Pusher) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	dropped := len(p.queue)
	for _, key := range p.queue {
		p.metrics.Pushes.WithLabelValues(p.pending[key].kind, "dropped").Inc()
	}
	p.queue = nil
	p.pending = map[string]job{}
	if p.isIdleLocked() {
		p.markIdleLocked()
	}
	p.cond.Broadcast()
	p.mu.Unlock()

	p.cancel()
	p.wg.Wait()
	if dropped > 0 {
		p.logger.Debug("Dropped queued pushes on close", "count", dropped)
	}
}
