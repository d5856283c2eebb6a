package syncer

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dayplan-cli/internal/model"
	"dayplan-cli/internal/remote"
	"dayplan-cli/internal/store"
)

func newSyncer(t *testing.T, local model.Collection, mem *remote.Memory, now time.Time) (*Syncer, *store.ItemStore) {
	t.Helper()
	st := store.NewItemStore(local)
	p := NewPusher(mem, fastConfig(), nil, nil, nil)
	t.Cleanup(p.Close)
	s := New(st, mem, p, Options{
		Interval:           time.Hour,
		TombstoneRetention: 24 * time.Hour,
		Now:                func() time.Time { return now },
	})
	return s, st
}

func TestPull_MergesAndRepushesLocalNewer(t *testing.T) {
	mem := remote.NewMemory()
	mem.Seed(model.Collection{Items: []model.Item{
		item("a", "remote-new", at(2)),
		item("b", "remote-old", at(1)),
		item("c", "remote-only", at(1)),
	}})
	local := model.Collection{Items: []model.Item{
		item("a", "local-old", at(1)),
		item("b", "local-new", at(2)),
		item("d", "local-only", at(1)),
	}}
	s, st := newSyncer(t, local, mem, at(10))

	res, err := s.Pull(context.Background())
	require.NoError(t, err)
	assert.Equal(t, PullResult{Fetched: 3, Incoming: 2, Outgoing: 2}, res)

	got := st.All()
	require.Len(t, got.Items, 4)
	a, _ := got.FindItem("a")
	b, _ := got.FindItem("b")
	assert.Equal(t, "remote-new", a.Title)
	assert.Equal(t, "local-new", b.Title)

	flush(t, s.Pusher())
	remoteNow, err := mem.FetchAll(context.Background())
	require.NoError(t, err)
	rb, _ := remoteNow.FindItem("b")
	assert.Equal(t, "local-new", rb.Title)
	_, hasD := remoteNow.FindItem("d")
	assert.True(t, hasD)

	// Saved refs flow back without touching timestamps.
	d, _ := st.All().FindItem("d")
	assert.Equal(t, "mem:item_d", d.RemoteRef)
	assert.True(t, d.LastModified.Equal(at(1)))
}

func TestPull_FailureKeepsLocalStateAndReports(t *testing.T) {
	mem := remote.NewMemory()
	boom := errors.New("offline")
	mem.SetFailure(boom)
	local := model.Collection{Items: []model.Item{item("a", "local", at(1))}}
	s, st := newSyncer(t, local, mem, at(10))

	_, err := s.Pull(context.Background())
	require.ErrorIs(t, err, boom)
	assert.Equal(t, local.Items[0].Title, st.All().Items[0].Title)
	assert.Zero(t, st.Version())

	n, ok := s.Pusher().Errors().Last()
	require.True(t, ok)
	assert.ErrorIs(t, n.Err, boom)
}

func TestPull_SecondPullIsQuiet(t *testing.T) {
	mem := remote.NewMemory()
	s, _ := newSyncer(t, model.Collection{Items: []model.Item{item("a", "x", at(1))}}, mem, at(10))

	_, err := s.Pull(context.Background())
	require.NoError(t, err)
	flush(t, s.Pusher())

	res, err := s.Pull(context.Background())
	require.NoError(t, err)
	assert.Zero(t, res.Outgoing)
	assert.Zero(t, res.Incoming)
}

func TestCompact_PurgesOnlyExpiredTombstones(t *testing.T) {
	old := at(0)
	recent := at(0).Add(47 * time.Hour)
	expired := item("expired", "", old)
	expired.DeletedAt = &old
	fresh := item("fresh", "", recent)
	fresh.DeletedAt = &recent
	live := item("live", "", old)

	mem := remote.NewMemory()
	mem.Seed(model.Collection{Items: []model.Item{expired, fresh, live}})
	s, st := newSyncer(t, model.Collection{Items: []model.Item{expired, fresh, live}}, mem, at(0).Add(48*time.Hour))

	res, err := s.Compact(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"expired"}, res.Purged)

	_, found := st.All().FindItem("expired")
	assert.False(t, found)
	_, found = st.All().FindItem("fresh")
	assert.True(t, found)

	remoteNow, err := mem.FetchAll(context.Background())
	require.NoError(t, err)
	assert.Len(t, remoteNow.Items, 2)
}

func TestCompact_RemoteFailureKeepsTombstone(t *testing.T) {
	old := at(0)
	expired := item("expired", "", old)
	expired.DeletedAt = &old

	mem := remote.NewMemory()
	s, st := newSyncer(t, model.Collection{Items: []model.Item{expired}}, mem, at(0).Add(72*time.Hour))
	mem.SetFailure(errors.New("offline"))

	res, err := s.Compact(context.Background())
	require.Error(t, err)
	assert.Equal(t, []string{"expired"}, res.Failed)
	_, found := st.All().FindItem("expired")
	assert.True(t, found)
}

func TestRun_PullsOnRemoteChange(t *testing.T) {
	mem := remote.NewMemory()
	s, st := newSyncer(t, model.Collection{}, mem, at(10))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	// Another device writes directly to the remote.
	require.Eventually(t, func() bool {
		_, err := mem.SaveItem(context.Background(), item("x", "from elsewhere", at(5)))
		if err != nil {
			return false
		}
		_, ok := st.All().FindItem("x")
		return ok
	}, 3*time.Second, 20*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not stop")
	}
}

func TestPull_FoldsInLocalStateFromOtherWriters(t *testing.T) {
	mem := remote.NewMemory()
	st := store.NewItemStore(model.Collection{Items: []model.Item{item("a", "stale", at(1))}})
	p := NewPusher(mem, fastConfig(), nil, nil, nil)
	t.Cleanup(p.Close)
	disk := model.Collection{Items: []model.Item{item("a", "written elsewhere", at(3)), item("b", "new elsewhere", at(3))}}
	s := New(st, mem, p, Options{Local: func(context.Context) (model.Collection, error) { return disk, nil }})

	res, err := s.Pull(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, res.Outgoing)

	a, _ := st.All().FindItem("a")
	assert.Equal(t, "written elsewhere", a.Title)
	flush(t, p)
	assert.Equal(t, 2, mem.Saves())
}
