package store

import (
	"context"
	"testing"
	"time"

	"dayplan-cli/internal/model"
)

func TestSQLite_RoundTripPreservesOrderAndFields(t *testing.T) {
	ctx := context.Background()
	path := StatePath(t.TempDir())

	db, err := OpenSQLite(ctx, path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer db.Close()

	now := time.Date(2026, 3, 4, 8, 0, 0, 123000000, time.UTC)
	tm := "09:30"
	seed := model.Collection{
		Items: []model.Item{
			{ID: "z", Title: "Z", Date: "2026-03-04", Rank: "h", Time: &tm, CreatedAt: now, LastModified: now},
			{ID: "a", Title: "A", Date: "2026-03-04", Rank: "q", CreatedAt: now, LastModified: now,
				Checklist: []model.ChecklistEntry{{ID: "c1", Title: "step", Rank: "h"}}},
		},
		Days: []model.DayState{{Day: "2026-03-04", Manual: true, LastModified: now}},
	}
	if err := db.ReplaceAll(ctx, seed); err != nil {
		t.Fatalf("replace: %v", err)
	}

	got, err := db.Load(ctx)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(got.Items) != 2 || got.Items[0].ID != "z" || got.Items[1].ID != "a" {
		t.Fatalf("expected insertion order [z a], got %+v", got.Items)
	}
	if got.Items[0].Time == nil || *got.Items[0].Time != "09:30" {
		t.Fatalf("time lost: %+v", got.Items[0])
	}
	if !got.Items[0].LastModified.Equal(now) {
		t.Fatalf("lastModified lost precision: %v", got.Items[0].LastModified)
	}
	if len(got.Items[1].Checklist) != 1 {
		t.Fatalf("checklist lost: %+v", got.Items[1])
	}
	if !got.IsManual("2026-03-04") {
		t.Fatalf("day state lost")
	}
}

func TestSQLite_SaveChangeUpsertsWithoutReordering(t *testing.T) {
	ctx := context.Background()
	db, err := OpenSQLite(ctx, StatePath(t.TempDir()))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer db.Close()

	s := NewItemStore(model.Collection{}, WithPersister(db))
	for _, id := range []string{"first", "second"} {
		id := id
		if _, err := s.Apply(ctx, func(tx *Tx) error {
			tx.PutItem(model.Item{ID: id, Title: id})
			return nil
		}); err != nil {
			t.Fatalf("apply: %v", err)
		}
	}
	if _, err := s.Apply(ctx, func(tx *Tx) error {
		it, _ := tx.Item("first")
		it.Title = "renamed"
		tx.PutItem(it)
		tx.RemoveItem("second")
		return nil
	}); err != nil {
		t.Fatalf("apply: %v", err)
	}

	got, err := db.Load(ctx)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(got.Items) != 1 || got.Items[0].Title != "renamed" {
		t.Fatalf("unexpected rows: %+v", got.Items)
	}
}

func TestSQLite_LoadEmptyReturnsNonNilSlices(t *testing.T) {
	ctx := context.Background()
	db, err := OpenSQLite(ctx, StatePath(t.TempDir()))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer db.Close()
	got, err := db.Load(ctx)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got.Items == nil || got.Days == nil {
		t.Fatalf("expected empty slices, got %+v", got)
	}
}
