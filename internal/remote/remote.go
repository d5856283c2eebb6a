// Package remote defines the keyed record store the planner syncs with and
// ships three backends: in-memory, a diskv folder, and a NATS JetStream KV bucket.
package remote

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	"dayplan-cli/internal/model"
)

// Store is the remote persistence backend. All calls may fail; callers treat
// failures as transient and never roll back local state because of them.
type Store interface {
	// SaveItem upserts one item and returns its canonical persisted form,
	// with RemoteRef set to the backend-native key.
	SaveItem(ctx context.Context, it model.Item) (model.Item, error)
	// SaveDay upserts one day state.
	SaveDay(ctx context.Context, d model.DayState) (model.DayState, error)
	// DeleteItem removes a previously saved item. Deleting a missing item is not an error.
	DeleteItem(ctx context.Context, ref ItemRef) error
	// FetchAll returns the full remote collection.
	FetchAll(ctx context.Context) (model.Collection, error)
}

// Watcher is implemented by backends that can announce remote changes.
// Each value on the channel means "something changed; pull when convenient".
type Watcher interface {
	Watch(ctx context.Context) (<-chan struct{}, error)
}

// ItemRef addresses a remote item.
type ItemRef struct {
	ID        string
	RemoteRef string
}

func RefOf(it model.Item) ItemRef { return ItemRef{ID: it.ID, RemoteRef: it.RemoteRef} }

// Error wraps a backend failure with the operation that caused it.
type Error struct {
	Op  string
	Key string
	Err error
}

func (e *Error) Error() string {
	if e.Key == "" {
		return fmt.Sprintf("remote %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("remote %s %s: %v", e.Op, e.Key, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

var ErrClosed = errors.New("remote store closed")

const (
	itemPrefix = "item_"
	dayPrefix  = "day_"
)

func itemKey(id string) string       { return itemPrefix + strings.TrimSpace(id) }
func dayKey(day model.DayKey) string { return dayPrefix + string(day) }

func encode(v any) ([]byte, error) { return json.Marshal(v) }

func decodeItem(b []byte) (model.Item, error) {
	var it model.Item
	err := json.Unmarshal(b, &it)
	return it, err
}

func decodeDay(b []byte) (model.DayState, error) {
	var d model.DayState
	err := json.Unmarshal(b, &d)
	return d, err
}

func sortDays(days []model.DayState) {
	sort.Slice(days, func(i, j int) bool { return days[i].Day < days[j].Day })
}

// signal performs a coalescing, non-blocking notify.
func signal(ch chan struct{}) {
	select {
	case ch <- struct{}{}:
	default:
	}
}
