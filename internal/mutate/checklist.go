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

// AddChecklistEntry appends an entry to an item's checklist.
func (c *Coordinator) AddChecklistEntry(ctx context.Context, itemID, title string) (model.ChecklistEntry, error) {
	itemID = strings.TrimSpace(itemID)
	title = strings.TrimSpace(title)
	if title == "" {
		return model.ChecklistEntry{}, InvalidInputError{Field: "title", Msg: "missing title"}
	}

	var out model.ChecklistEntry
	_, err := c.apply(ctx, func(tx *store.Tx, now time.Time) error {
		it, err := liveItem(tx, itemID)
		if err != nil {
			return err
		}
		last := ""
		for _, e := range it.Checklist {
			if rank.Compare(e.Rank, last) > 0 {
				last = rank.Normalize(e.Rank)
			}
		}
		r, err := rank.After(last)
		if err != nil {
			return err
		}
		out = model.ChecklistEntry{ID: c.newID("chk"), Title: title, Rank: r}
		it.Checklist = append(it.Checklist, out)
		it.LastModified = model.Stamp(it.LastModified, now)
		tx.PutItem(it)
		return nil
	})
	if err != nil {
		return model.ChecklistEntry{}, err
	}
	return out, nil
}

// ToggleChecklistEntry flips an entry's done flag.
func (c *Coordinator) ToggleChecklistEntry(ctx context.Context, itemID, entryID string) (model.ChecklistEntry, error) {
	itemID = strings.TrimSpace(itemID)
	entryID = strings.TrimSpace(entryID)

	var out model.ChecklistEntry
	_, err := c.apply(ctx, func(tx *store.Tx, now time.Time) error {
		it, err := liveItem(tx, itemID)
		if err != nil {
			return err
		}
		for i := range it.Checklist {
			if it.Checklist[i].ID != entryID {
				continue
			}
			it.Checklist[i].Done = !it.Checklist[i].Done
			out = it.Checklist[i]
			it.LastModified = model.Stamp(it.LastModified, now)
			tx.PutItem(it)
			return nil
		}
		return NotFoundError{Kind: "checklist entry", ID: entryID}
	})
	if err != nil {
		return model.ChecklistEntry{}, err
	}
	return out, nil
}

// ReorderChecklist orders an item's checklist by entryIDs, with the same
// skipping rules as ApplyReorder.
func (c *Coordinator) ReorderChecklist(ctx context.Context, itemID string, entryIDs []string) (model.Item, error) {
	itemID = strings.TrimSpace(itemID)

	var out model.Item
	_, err := c.apply(ctx, func(tx *store.Tx, now time.Time) error {
		it, err := liveItem(tx, itemID)
		if err != nil {
			return err
		}
		current := order.Checklist(it)
		byID := make(map[string]model.ChecklistEntry, len(current))
		for _, e := range current {
			byID[e.ID] = e
		}
		var entries []rank.Entry
		listed := map[string]bool{}
		for _, id := range entryIDs {
			id = strings.TrimSpace(id)
			e, ok := byID[id]
			if !ok || listed[id] {
				continue
			}
			listed[id] = true
			entries = append(entries, rank.Entry{ID: id, Rank: e.Rank})
		}
		for _, e := range current {
			if !listed[e.ID] {
				entries = append(entries, rank.Entry{ID: e.ID, Rank: e.Rank})
			}
		}

		out = it
		plan := rank.PlanOrder(entries)
		if len(plan.RankByID) == 0 {
			return nil
		}
		for i := range it.Checklist {
			if r, ok := plan.RankByID[it.Checklist[i].ID]; ok {
				it.Checklist[i].Rank = r
			}
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
