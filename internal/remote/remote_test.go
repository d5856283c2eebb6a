package remote

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dayplan-cli/internal/model"
)

// exerciseStore runs the contract every backend must satisfy.
func exerciseStore(t *testing.T, s Store) {
	t.Helper()
	ctx := context.Background()
	now := time.Date(2026, 3, 4, 8, 0, 0, 0, time.UTC)

	saved, err := s.SaveItem(ctx, model.Item{ID: "item-a", Title: "A", Date: "2026-03-04", Rank: "h", LastModified: now})
	require.NoError(t, err)
	assert.NotEmpty(t, saved.RemoteRef, "save must assign a backend-native ref")
	assert.Equal(t, "A", saved.Title)

	_, err = s.SaveItem(ctx, model.Item{ID: "item-b", Title: "B", Date: "2026-03-04", Rank: "q", LastModified: now})
	require.NoError(t, err)

	// Upsert replaces.
	_, err = s.SaveItem(ctx, model.Item{ID: "item-a", Title: "A2", Date: "2026-03-04", Rank: "h", LastModified: now.Add(time.Minute)})
	require.NoError(t, err)

	_, err = s.SaveDay(ctx, model.DayState{Day: "2026-03-04", Manual: true, LastModified: now})
	require.NoError(t, err)

	all, err := s.FetchAll(ctx)
	require.NoError(t, err)
	require.Len(t, all.Items, 2)
	a, ok := all.FindItem("item-a")
	require.True(t, ok)
	assert.Equal(t, "A2", a.Title)
	assert.True(t, a.LastModified.Equal(now.Add(time.Minute)))
	assert.True(t, all.IsManual("2026-03-04"))

	require.NoError(t, s.DeleteItem(ctx, ItemRef{ID: "item-b"}))
	require.NoError(t, s.DeleteItem(ctx, ItemRef{ID: "item-b"}), "delete must be idempotent")

	all, err = s.FetchAll(ctx)
	require.NoError(t, err)
	require.Len(t, all.Items, 1)
	assert.Equal(t, "item-a", all.Items[0].ID)
}

func TestMemory_Contract(t *testing.T) {
	exerciseStore(t, NewMemory())
}

func TestDir_Contract(t *testing.T) {
	d, err := OpenDir(t.TempDir(), nil)
	require.NoError(t, err)
	exerciseStore(t, d)
}

func TestNATS_Contract(t *testing.T) {
	url := os.Getenv("DAYPLAN_TEST_NATS_URL")
	if url == "" {
		t.Skip("DAYPLAN_TEST_NATS_URL not set")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	n, err := DialNATS(ctx, url, "dayplan_test_"+time.Now().Format("150405"), nil)
	require.NoError(t, err)
	defer n.Close()
	exerciseStore(t, n)
}

func TestMemory_FailureIsTypedAndTransient(t *testing.T) {
	m := NewMemory()
	boom := errors.New("offline")
	m.SetFailure(boom)

	_, err := m.SaveItem(context.Background(), model.Item{ID: "x"})
	require.Error(t, err)
	var rerr *Error
	require.ErrorAs(t, err, &rerr)
	assert.Equal(t, "save", rerr.Op)
	assert.ErrorIs(t, err, boom)

	m.SetFailure(nil)
	_, err = m.SaveItem(context.Background(), model.Item{ID: "x"})
	require.NoError(t, err)
	assert.Equal(t, 1, m.Saves())
}

func TestMemory_WatchSignalsOnWrite(t *testing.T) {
	m := NewMemory()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch, err := m.Watch(ctx)
	require.NoError(t, err)

	_, err = m.SaveDay(context.Background(), model.DayState{Day: "2026-03-04"})
	require.NoError(t, err)

	select {
	case <-ch:
	case <-time.After(time.Second):
		t.Fatal("expected a change signal")
	}
}

func TestDir_WatchSignalsOnWrite(t *testing.T) {
	d, err := OpenDir(t.TempDir(), nil)
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch, err := d.Watch(ctx)
	require.NoError(t, err)

	_, err = d.SaveItem(context.Background(), model.Item{ID: "item-w"})
	require.NoError(t, err)

	select {
	case <-ch:
	case <-time.After(3 * time.Second):
		t.Fatal("expected a change signal")
	}
}

func TestDir_FetchIgnoresForeignFiles(t *testing.T) {
	base := t.TempDir()
	d, err := OpenDir(base, nil)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(base+"/README", []byte("not a record"), 0o644))

	all, err := d.FetchAll(context.Background())
	require.NoError(t, err)
	assert.Empty(t, all.Items)
	assert.Empty(t, all.Days)
}

func TestDir_FetchSkipsUndecodableRecords(t *testing.T) {
	base := t.TempDir()
	d, err := OpenDir(base, nil)
	require.NoError(t, err)
	ctx := context.Background()

	_, err = d.SaveItem(ctx, model.Item{ID: "item-ok", Title: "OK", Date: "2026-03-04"})
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(base+"/item_broken", []byte("{not json"), 0o644))
	require.NoError(t, os.WriteFile(base+"/day_2026-03-05", []byte("[]"), 0o644))

	all, err := d.FetchAll(ctx)
	require.NoError(t, err)
	require.Len(t, all.Items, 1)
	assert.Equal(t, "item-ok", all.Items[0].ID)
	assert.Empty(t, all.Days)
}
