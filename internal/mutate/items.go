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

type NewItem struct {
	Title       string
	Description string
	Date        string
	Time        string // HH:MM; empty means untimed
}

// AddItem creates an item at the end of its day's bucket.
func (c *Coordinator) AddItem(ctx context.Context, in NewItem) (model.Item, error) {
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return model.Item{}, InvalidInputError{Field: "title", Msg: "missing title"}
	}
	day, err := model.ParseDay(in.Date)
	if err != nil {
		return model.Item{}, InvalidInputError{Field: "date", Msg: err.Error()}
	}
	var clock *string
	if strings.TrimSpace(in.Time) != "" {
		v, err := model.ParseClock(in.Time)
		if err != nil {
			return model.Item{}, InvalidInputError{Field: "time", Msg: err.Error()}
		}
		clock = &v
	}

	var out model.Item
	_, err = c.apply(ctx, func(tx *store.Tx, now time.Time) error {
		r, err := rank.After(order.LastRank(day, tx.Collection()))
		if err != nil {
			return err
		}
		out = model.Item{
			ID:           c.newID("item"),
			Title:        title,
			Description:  strings.TrimSpace(in.Description),
			Date:         day,
			Time:         clock,
			Rank:         r,
			CreatedAt:    now,
			LastModified: now,
		}
		tx.PutItem(out)
		return nil
	})
	if err != nil {
		return model.Item{}, err
	}
	return out, nil
}

// ItemPatch lists field updates; nil fields are left unchanged.
type ItemPatch struct {
	Title       *string
	Description *string
	Date        *string
	Time        *string // "" clears the time
}

// UpdateItem edits an item in place. Moving it to another day ranks it after
// that bucket's last item.
func (c *Coordinator) UpdateItem(ctx context.Context, id string, p ItemPatch) (model.Item, error) {
	id = strings.TrimSpace(id)
	var out model.Item
	_, err := c.apply(ctx, func(tx *store.Tx, now time.Time) error {
		it, err := liveItem(tx, id)
		if err != nil {
			return err
		}
		changed := false

		if p.Title != nil {
			title := strings.TrimSpace(*p.Title)
			if title == "" {
				return InvalidInputError{Field: "title", Msg: "missing title"}
			}
			if title != it.Title {
				it.Title = title
				changed = true
			}
		}
		if p.Description != nil {
			desc := strings.TrimSpace(*p.Description)
			if desc != it.Description {
				it.Description = desc
				changed = true
			}
		}
		if p.Time != nil {
			var clock *string
			if strings.TrimSpace(*p.Time) != "" {
				v, err := model.ParseClock(*p.Time)
				if err != nil {
					return InvalidInputError{Field: "time", Msg: err.Error()}
				}
				clock = &v
			}
			if !sameClock(it.Time, clock) {
				it.Time = clock
				changed = true
			}
		}
		if p.Date != nil {
			day, err := model.ParseDay(*p.Date)
			if err != nil {
				return InvalidInputError{Field: "date", Msg: err.Error()}
			}
			if day != it.Date {
				r, err := rank.After(order.LastRank(day, tx.Collection()))
				if err != nil {
					return err
				}
				it.Date = day
				it.Rank = r
				changed = true
			}
		}

		out = it
		if !changed {
			return nil
		}
		it.LastModified = model.Stamp(it.LastModified, now)
		tx.PutItem(it)
		out = it
		return nil
	})
	if err != nil {
		return model.Item{}, err
	}
	return out, nil
}

func sameClock(a, b *string) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return strings.TrimSpace(*a) == strings.TrimSpace(*b)
}

// DeleteItem tombstones an item. The tombstone syncs like any other edit;
// the remote copy is hard-deleted later by compaction.
func (c *Coordinator) DeleteItem(ctx context.Context, id string) (model.Item, error) {
	id = strings.TrimSpace(id)
	var out model.Item
	_, err := c.apply(ctx, func(tx *store.Tx, now time.Time) error {
		it, ok := tx.Item(id)
		if !ok {
			return NotFoundError{Kind: "item", ID: id}
		}
		out = it
		if it.Deleted() {
			return nil
		}
		it.LastModified = model.Stamp(it.LastModified, now)
		deletedAt := it.LastModified
		it.DeletedAt = &deletedAt
		tx.PutItem(it)
		out = it
		return nil
	})
	if err != nil {
		return model.Item{}, err
	}
	return out, nil
}
