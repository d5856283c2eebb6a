package mutate

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dayplan-cli/internal/model"
	"dayplan-cli/internal/order"
)

// scenario: A (untimed, created first), B (09:00), C (untimed).
func scenario() model.Collection {
	return model.Collection{Items: []model.Item{
		{ID: "A", Title: "A", Date: day, Rank: "0", CreatedAt: base, LastModified: base},
		{ID: "B", Title: "B", Date: day, Rank: "1", Time: clock("09:00"), CreatedAt: base.Add(1), LastModified: base},
		{ID: "C", Title: "C", Date: day, Rank: "2", CreatedAt: base.Add(2), LastModified: base},
	}}
}

func TestApplyReorder_EndToEnd(t *testing.T) {
	c, st, _ := newCoordinator(scenario())
	ctx := context.Background()

	require.Equal(t, []string{"B", "A", "C"}, order.IDs(order.Resolve(day, st.All())))

	res, err := c.ApplyReorder(ctx, day, []string{"C", "B", "A"})
	require.NoError(t, err)
	assert.Equal(t, []string{"C", "B", "A"}, res.Order)
	assert.Equal(t, []string{"C", "B", "A"}, order.IDs(order.Resolve(day, st.All())))
	assert.True(t, st.All().IsManual(day))
	for _, id := range []string{"A", "B", "C"} {
		assert.True(t, st.All().DayOverride(id, day), "override for %s", id)
	}

	_, err = c.ResetToChronological(ctx, day)
	require.NoError(t, err)
	assert.False(t, st.All().IsManual(day))
	assert.Equal(t, []string{"B", "A", "C"}, order.IDs(order.Resolve(day, st.All())))
}

func TestApplyReorder_TouchesOnlyMovedItems(t *testing.T) {
	initial := model.Collection{Items: []model.Item{
		{ID: "a", Date: day, Rank: "a", LastModified: base},
		{ID: "b", Date: day, Rank: "b", LastModified: base},
		{ID: "c", Date: day, Rank: "c", LastModified: base},
		{ID: "d", Date: day, Rank: "d", LastModified: base},
	}}
	c, st, p := newCoordinator(initial)

	res, err := c.ApplyReorder(context.Background(), day, []string{"a", "c", "b", "d"})
	require.NoError(t, err)
	assert.Len(t, res.Changed, 1)
	assert.Equal(t, res.Changed, p.itemIDs(), "one save per mutated item")
	require.Len(t, p.days, 1)
	assert.True(t, p.days[0].Manual)

	moved, _ := st.All().FindItem(res.Changed[0])
	assert.True(t, moved.LastModified.After(base))
	untouched, _ := st.All().FindItem("a")
	assert.True(t, untouched.LastModified.Equal(base))
	assert.Equal(t, []string{"a", "c", "b", "d"}, order.IDs(order.Resolve(day, st.All())))
}

func TestApplyReorder_SkipsStaleAndForeignIDs(t *testing.T) {
	initial := scenario()
	initial.Items = append(initial.Items, model.Item{ID: "other", Date: "2026-03-05", Rank: "0"})
	c, st, _ := newCoordinator(initial)
	ctx := context.Background()

	_, err := c.DeleteItem(ctx, "B")
	require.NoError(t, err)

	res, err := c.ApplyReorder(ctx, day, []string{"C", "gone", "B", "other", "C", "A"})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"gone", "B", "other"}, res.Skipped)
	assert.Equal(t, []string{"C", "A"}, order.IDs(order.Resolve(day, st.All())))

	o, _ := st.All().FindItem("other")
	assert.Equal(t, "0", o.Rank)
}

func TestApplyReorder_AppendsUnlistedItems(t *testing.T) {
	c, st, _ := newCoordinator(scenario())

	_, err := c.ApplyReorder(context.Background(), day, []string{"C"})
	require.NoError(t, err)
	// Unlisted items follow in their previous display order.
	assert.Equal(t, []string{"C", "B", "A"}, order.IDs(order.Resolve(day, st.All())))
}

func TestApplyReorder_EmptyDayIsNoop(t *testing.T) {
	c, st, p := newCoordinator(model.Collection{})

	res, err := c.ApplyReorder(context.Background(), day, []string{"x"})
	require.NoError(t, err)
	assert.Empty(t, res.Order)
	assert.Zero(t, st.Version())
	assert.Empty(t, p.days)
}

func TestApplyReorder_AlreadyOrderedOnlyFlagsDay(t *testing.T) {
	initial := model.Collection{Items: []model.Item{
		{ID: "x", Date: day, Rank: "h"},
		{ID: "y", Date: day, Rank: "h0"},
	}}
	c, st, p := newCoordinator(initial)

	res, err := c.ApplyReorder(context.Background(), day, []string{"x", "z", "y"})
	require.NoError(t, err)
	assert.Equal(t, []string{"z"}, res.Skipped)
	assert.Empty(t, res.Changed)
	assert.Empty(t, p.items)
	assert.True(t, st.All().IsManual(day))
	assert.Equal(t, []string{"x", "y"}, order.IDs(order.Resolve(day, st.All())))
}

func TestManualModeStaysStickyForNewItems(t *testing.T) {
	c, st, _ := newCoordinator(scenario())
	ctx := context.Background()

	_, err := c.ApplyReorder(ctx, day, []string{"C", "B", "A"})
	require.NoError(t, err)
	added, err := c.AddItem(ctx, NewItem{Title: "early", Date: string(day), Time: "06:00"})
	require.NoError(t, err)

	assert.Equal(t, []string{"C", "B", "A", added.ID}, order.IDs(order.Resolve(day, st.All())))
}

func TestResetToChronological_Idempotent(t *testing.T) {
	c, st, p := newCoordinator(scenario())
	ctx := context.Background()

	_, err := c.ApplyReorder(ctx, day, []string{"C", "A", "B"})
	require.NoError(t, err)

	first, err := c.ResetToChronological(ctx, day)
	require.NoError(t, err)
	once := order.IDs(order.Resolve(day, st.All()))

	p.reset()
	second, err := c.ResetToChronological(ctx, day)
	require.NoError(t, err)
	twice := order.IDs(order.Resolve(day, st.All()))

	assert.Equal(t, once, twice)
	assert.Equal(t, []string{"B", "A", "C"}, twice)
	assert.True(t, second.LastModified.After(first.LastModified), "each reset bumps the day record")
	require.Len(t, p.days, 1, "each reset re-persists the day")
	assert.Empty(t, p.items, "reset does not rewrite items")
}

func TestMoveItem(t *testing.T) {
	c, st, _ := newCoordinator(scenario())
	ctx := context.Background()

	_, err := c.MoveItem(ctx, "C", "B", false)
	require.NoError(t, err)
	assert.Equal(t, []string{"C", "B", "A"}, order.IDs(order.Resolve(day, st.All())))

	_, err = c.MoveItem(ctx, "C", "A", true)
	require.NoError(t, err)
	assert.Equal(t, []string{"B", "A", "C"}, order.IDs(order.Resolve(day, st.All())))
	assert.True(t, st.All().IsManual(day))

	_, err = c.MoveItem(ctx, "C", "C", true)
	var invalid InvalidInputError
	require.ErrorAs(t, err, &invalid)

	_, err = c.MoveItem(ctx, "C", "missing", true)
	var nf NotFoundError
	require.ErrorAs(t, err, &nf)
}
