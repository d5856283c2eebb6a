// Package mutate holds every user-level mutation of the planner.
//
// Each operation commits to the ItemStore in one transaction and then hands
// every touched record to a Pusher for asynchronous remote persistence. The
// local commit is the system of record; remote failures never undo it.
package mutate

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"dayplan-cli/internal/model"
	"dayplan-cli/internal/store"
)

// Pusher queues records for remote persistence. *syncer.Pusher implements it.
type Pusher interface {
	PushItem(it model.Item)
	PushDay(d model.DayState)
}

type Coordinator struct {
	store  *store.ItemStore
	push   Pusher
	now    func() time.Time
	newID  func(prefix string) string
	logger *slog.Logger
}

type Option func(*Coordinator)

// WithClock overrides time.Now, mainly for tests.
func WithClock(now func() time.Time) Option { return func(c *Coordinator) { c.now = now } }

func WithLogger(l *slog.Logger) Option { return func(c *Coordinator) { c.logger = l } }

// WithIDs overrides id generation.
func WithIDs(gen func(prefix string) string) Option { return func(c *Coordinator) { c.newID = gen } }

// NewCoordinator returns a Coordinator writing to st. A nil pusher keeps all
// changes local.
func NewCoordinator(st *store.ItemStore, p Pusher, opts ...Option) *Coordinator {
	c := &Coordinator{
		store:  st,
		push:   p,
		now:    time.Now,
		newID:  newID,
		logger: slog.Default(),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

func newID(prefix string) string {
	return prefix + "-" + uuid.NewString()
}

// apply commits fn and enqueues one save per record it touched.
func (c *Coordinator) apply(ctx context.Context, fn func(tx *store.Tx, now time.Time) error) (store.Change, error) {
	now := c.now()
	ch, err := c.store.Apply(ctx, func(tx *store.Tx) error { return fn(tx, now) })
	if err != nil {
		return store.Change{}, err
	}
	c.publish(ch)
	return ch, nil
}

func (c *Coordinator) publish(ch store.Change) {
	if c.push == nil || ch.Empty() {
		return
	}
	for _, it := range ch.Items {
		c.push.PushItem(it)
	}
	for _, d := range ch.Days {
		c.push.PushDay(d)
	}
}

// liveItem loads a non-tombstoned item or fails with NotFoundError.
func liveItem(tx *store.Tx, id string) (model.Item, error) {
	it, ok := tx.Item(id)
	if !ok || it.Deleted() {
		return model.Item{}, NotFoundError{Kind: "item", ID: id}
	}
	return it, nil
}
