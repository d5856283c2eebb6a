package mutate

import (
	"context"
	"strings"
	"time"

	"dayplan-cli/internal/model"
	"dayplan-cli/internal/order"
	"dayplan-cli/internal/rank"
	"dayplan-cli/internal/store"
)

type ReorderResult struct {
	Day      model.DayKey `json:"day"`
	Order    []string     `json:"order"`
	Changed  []string     `json:"changed"`
	Skipped  []string     `json:"skipped,omitempty"`
	Respread bool         `json:"respread,omitempty"`
}

// ApplyReorder makes day manual and ranks its items so they display in the
// order of ids.
//
// Ids that are unknown, tombstoned, or in another bucket are skipped, as are
// repeats. Bucket items not listed keep their current relative order after the
// listed ones. Only items whose rank must change are rewritten.
func (c *Coordinator) ApplyReorder(ctx context.Context, day model.DayKey, ids []string) (ReorderResult, error) {
	var res ReorderResult
	_, err := c.apply(ctx, func(tx *store.Tx, now time.Time) error {
		var err error
		res, err = c.reorderTx(tx, now, day, ids)
		return err
	})
	return res, err
}

func (c *Coordinator) reorderTx(tx *store.Tx, now time.Time, day model.DayKey, ids []string) (ReorderResult, error) {
	res := ReorderResult{Day: day, Order: []string{}, Changed: []string{}}
	current := order.Resolve(day, tx.Collection())
	if len(current) == 0 {
		return res, nil
	}

	inBucket := make(map[string]model.Item, len(current))
	for _, it := range current {
		inBucket[it.ID] = it
	}
	target := make([]model.Item, 0, len(current))
	listed := map[string]bool{}
	for _, id := range ids {
		id = strings.TrimSpace(id)
		it, ok := inBucket[id]
		if !ok {
			res.Skipped = append(res.Skipped, id)
			c.logger.Debug("Skipping stale reorder entry", "day", day, "id", id)
			continue
		}
		if listed[id] {
			continue
		}
		listed[id] = true
		target = append(target, it)
	}
	for _, it := range current {
		if !listed[it.ID] {
			target = append(target, it)
		}
	}

	entries := make([]rank.Entry, len(target))
	for i, it := range target {
		entries[i] = rank.Entry{ID: it.ID, Rank: it.Rank}
	}
	plan := rank.PlanOrder(entries)
	res.Respread = plan.Respread

	for _, it := range target {
		res.Order = append(res.Order, it.ID)
		r, ok := plan.RankByID[it.ID]
		if !ok {
			continue
		}
		it.Rank = r
		it.LastModified = model.Stamp(it.LastModified, now)
		tx.PutItem(it)
		res.Changed = append(res.Changed, it.ID)
	}

	ds, ok := tx.Day(day)
	if !ok || !ds.Manual || len(res.Changed) > 0 {
		ds.Day = day
		ds.Manual = true
		ds.LastModified = model.Stamp(ds.LastModified, now)
		tx.PutDay(ds)
	}
	return res, nil
}

// MoveItem places id directly before or after anchor within its day, making
// the day manual.
func (c *Coordinator) MoveItem(ctx context.Context, id, anchor string, after bool) (ReorderResult, error) {
	id = strings.TrimSpace(id)
	anchor = strings.TrimSpace(anchor)
	if id == anchor {
		return ReorderResult{}, InvalidInputError{Field: "anchor", Msg: "cannot move an item relative to itself"}
	}

	var res ReorderResult
	_, err := c.apply(ctx, func(tx *store.Tx, now time.Time) error {
		it, err := liveItem(tx, id)
		if err != nil {
			return err
		}
		ref, err := liveItem(tx, anchor)
		if err != nil {
			return err
		}
		if ref.Date != it.Date {
			return InvalidInputError{Field: "anchor", Msg: "items are on different days"}
		}

		ids := make([]string, 0)
		for _, cur := range order.Resolve(it.Date, tx.Collection()) {
			if cur.ID == id {
				continue
			}
			if cur.ID == anchor && !after {
				ids = append(ids, id)
			}
			ids = append(ids, cur.ID)
			if cur.ID == anchor && after {
				ids = append(ids, id)
			}
		}
		res, err = c.reorderTx(tx, now, it.Date, ids)
		return err
	})
	return res, err
}

// ResetToChronological returns day to time-of-day ordering. Item ranks are
// left alone; only the day's state record changes.
func (c *Coordinator) ResetToChronological(ctx context.Context, day model.DayKey) (model.DayState, error) {
	var out model.DayState
	_, err := c.apply(ctx, func(tx *store.Tx, now time.Time) error {
		ds, _ := tx.Day(day)
		ds.Day = day
		ds.Manual = false
		ds.LastModified = model.Stamp(ds.LastModified, now)
		tx.PutDay(ds)
		out = ds
		return nil
	})
	return out, err
}
