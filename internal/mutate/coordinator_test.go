package mutate

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dayplan-cli/internal/model"
	"dayplan-cli/internal/store"
)

const day = model.DayKey("2026-03-04")

var base = time.Date(2026, 3, 4, 8, 0, 0, 0, time.UTC)

type recordingPusher struct {
	mu    sync.Mutex
	items []model.Item
	days  []model.DayState
}

func (p *recordingPusher) PushItem(it model.Item) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.items = append(p.items, it)
}

func (p *recordingPusher) PushDay(d model.DayState) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.days = append(p.days, d)
}

func (p *recordingPusher) reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.items = nil
	p.days = nil
}

func (p *recordingPusher) itemIDs() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.items))
	for _, it := range p.items {
		out = append(out, it.ID)
	}
	return out
}

// tickingClock advances one minute per call.
type tickingClock struct {
	mu  sync.Mutex
	cur time.Time
}

func (c *tickingClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cur = c.cur.Add(time.Minute)
	return c.cur
}

func seqIDs() func(string) string {
	n := 0
	return func(prefix string) string {
		n++
		return fmt.Sprintf("%s-%d", prefix, n)
	}
}

func newCoordinator(initial model.Collection) (*Coordinator, *store.ItemStore, *recordingPusher) {
	st := store.NewItemStore(initial)
	p := &recordingPusher{}
	clk := &tickingClock{cur: base}
	return NewCoordinator(st, p, WithClock(clk.Now), WithIDs(seqIDs())), st, p
}

func clock(s string) *string { return &s }

func TestNilPusherKeepsChangesLocal(t *testing.T) {
	st := store.NewItemStore(model.Collection{})
	clk := &tickingClock{cur: base}
	c := NewCoordinator(st, nil, WithClock(clk.Now), WithIDs(seqIDs()))
	ctx := context.Background()

	it, err := c.AddItem(ctx, NewItem{Title: "Offline", Date: string(day)})
	require.NoError(t, err)
	assert.Equal(t, "item-1", it.ID)

	_, err = c.ApplyReorder(ctx, day, []string{it.ID})
	require.NoError(t, err)
	assert.True(t, st.All().IsManual(day))
}
