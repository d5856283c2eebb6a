package store

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"dayplan-cli/internal/model"
)

// Persister receives every committed change. A failing persister aborts the
// change, so memory and disk never disagree.
type Persister interface {
	SaveChange(ctx context.Context, ch Change) error
	ReplaceAll(ctx context.Context, coll model.Collection) error
}

// Change describes one committed transaction.
type Change struct {
	Version uint64
	Items   []model.Item     // post-commit state of every touched item
	Days    []model.DayState // post-commit state of every touched day
	Removed []string         // item ids hard-removed from the collection
}

func (c Change) Empty() bool {
	return len(c.Items) == 0 && len(c.Days) == 0 && len(c.Removed) == 0
}

// Snapshot is one consistent version of the collection, as seen by observers.
type Snapshot struct {
	Version    uint64
	Collection model.Collection
}

// ItemStore is the in-memory authoritative item collection and the single
// mutation surface for everything else. Writers are serialized by mu; readers
// always get deep copies.
type ItemStore struct {
	mu        sync.Mutex
	coll      model.Collection
	version   uint64
	persister Persister
	logger    *slog.Logger

	subs   map[int]chan Snapshot
	nextID int
}

type Option func(*ItemStore)

func WithPersister(p Persister) Option { return func(s *ItemStore) { s.persister = p } }
func WithLogger(l *slog.Logger) Option { return func(s *ItemStore) { s.logger = l } }

// NewItemStore seeds a store with an initial collection (typically loaded from disk).
func NewItemStore(initial model.Collection, opts ...Option) *ItemStore {
	s := &ItemStore{
		coll:   initial.Clone(),
		subs:   map[int]chan Snapshot{},
		logger: slog.Default(),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// All returns a deep copy of the current collection.
func (s *ItemStore) All() model.Collection {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.coll.Clone()
}

// Version is incremented once per committed Apply or ReplaceAll.
func (s *ItemStore) Version() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.version
}

// Apply runs fn against a working copy and commits it atomically. If fn (or the
// persister) fails, nothing changes. A transaction that touches nothing does
// not bump the version.
func (s *ItemStore) Apply(ctx context.Context, fn func(tx *Tx) error) (Change, error) {
	if fn == nil {
		return Change{}, errors.New("store: nil mutation")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	tx := newTx(s.coll.Clone())
	if err := fn(tx); err != nil {
		return Change{}, err
	}
	ch := tx.change()
	if ch.Empty() {
		return ch, nil
	}
	ch.Version = s.version + 1

	if s.persister != nil {
		if err := s.persister.SaveChange(ctx, ch); err != nil {
			return Change{}, err
		}
	}
	s.coll = tx.coll
	s.version = ch.Version
	s.publishLocked()
	return ch, nil
}

// ReplaceAll swaps in a whole collection, e.g. the output of a sync merge.
func (s *ItemStore) ReplaceAll(ctx context.Context, coll model.Collection) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := coll.Clone()
	if s.persister != nil {
		if err := s.persister.ReplaceAll(ctx, next); err != nil {
			return err
		}
	}
	s.coll = next
	s.version++
	s.publishLocked()
	return nil
}

// ReplaceWith computes the next collection from the current one under the
// store lock, so no Apply can slip in between the read and the swap. fn must
// not call back into the store.
func (s *ItemStore) ReplaceWith(ctx context.Context, fn func(cur model.Collection) (model.Collection, error)) error {
	if fn == nil {
		return errors.New("store: nil replacement")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	next, err := fn(s.coll.Clone())
	if err != nil {
		return err
	}
	next = next.Clone()
	if s.persister != nil {
		if err := s.persister.ReplaceAll(ctx, next); err != nil {
			return err
		}
	}
	s.coll = next
	s.version++
	s.publishLocked()
	return nil
}

// Subscribe returns a channel carrying the latest snapshot after each commit.
// Slow observers skip intermediate versions; they never see a partial one.
func (s *ItemStore) Subscribe() (<-chan Snapshot, func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextID
	s.nextID++
	ch := make(chan Snapshot, 1)
	s.subs[id] = ch
	cancel := func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if c, ok := s.subs[id]; ok {
			delete(s.subs, id)
			close(c)
		}
	}
	return ch, cancel
}

func (s *ItemStore) publishLocked() {
	if len(s.subs) == 0 {
		return
	}
	snap := Snapshot{Version: s.version, Collection: s.coll.Clone()}
	for _, ch := range s.subs {
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- snap:
		default:
			s.logger.Debug("dropped snapshot for slow observer", "version", snap.Version)
		}
	}
}

// Tx is a working copy handed to Apply callbacks.
type Tx struct {
	coll      model.Collection
	itemOrder []string
	items     map[string]bool
	dayOrder  []model.DayKey
	days      map[model.DayKey]bool
	removed   []string
}

func newTx(coll model.Collection) *Tx {
	return &Tx{coll: coll, items: map[string]bool{}, days: map[model.DayKey]bool{}}
}

// Collection returns a read-only view of the working copy.
func (tx *Tx) Collection() model.Collection { return tx.coll }

// Item returns a copy of the item with id.
func (tx *Tx) Item(id string) (model.Item, bool) {
	it, ok := tx.coll.FindItem(id)
	if !ok {
		return model.Item{}, false
	}
	return it.Clone(), true
}

// PutItem inserts or replaces an item; new items are appended.
func (tx *Tx) PutItem(it model.Item) {
	it = it.Clone()
	replaced := false
	for i := range tx.coll.Items {
		if tx.coll.Items[i].ID == it.ID {
			tx.coll.Items[i] = it
			replaced = true
			break
		}
	}
	if !replaced {
		tx.coll.Items = append(tx.coll.Items, it)
	}
	if !tx.items[it.ID] {
		tx.items[it.ID] = true
		tx.itemOrder = append(tx.itemOrder, it.ID)
	}
}

// RemoveItem drops an item from the collection entirely. Regular deletes use
// tombstones; this is for purging them.
func (tx *Tx) RemoveItem(id string) bool {
	for i := range tx.coll.Items {
		if tx.coll.Items[i].ID == id {
			tx.coll.Items = append(tx.coll.Items[:i], tx.coll.Items[i+1:]...)
			tx.removed = append(tx.removed, id)
			return true
		}
	}
	return false
}

func (tx *Tx) Day(day model.DayKey) (model.DayState, bool) {
	return tx.coll.Day(day)
}

// PutDay inserts or replaces the state for d.Day.
func (tx *Tx) PutDay(d model.DayState) {
	replaced := false
	for i := range tx.coll.Days {
		if tx.coll.Days[i].Day == d.Day {
			tx.coll.Days[i] = d
			replaced = true
			break
		}
	}
	if !replaced {
		tx.coll.Days = append(tx.coll.Days, d)
	}
	if !tx.days[d.Day] {
		tx.days[d.Day] = true
		tx.dayOrder = append(tx.dayOrder, d.Day)
	}
}

func (tx *Tx) change() Change {
	var ch Change
	removed := map[string]bool{}
	for _, id := range tx.removed {
		removed[id] = true
	}
	for _, id := range tx.itemOrder {
		if removed[id] {
			continue
		}
		if it, ok := tx.coll.FindItem(id); ok {
			ch.Items = append(ch.Items, it.Clone())
		}
	}
	for _, d := range tx.dayOrder {
		if st, ok := tx.coll.Day(d); ok {
			ch.Days = append(ch.Days, st)
		}
	}
	ch.Removed = append(ch.Removed, tx.removed...)
	return ch
}
