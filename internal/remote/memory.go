package remote

import (
	"context"
	"errors"
	"sync"

	"dayplan-cli/internal/model"
)

// Memory is an in-process Store. It backs tests and the "memory" remote kind.
type Memory struct {
	mu       sync.Mutex
	items    map[string]model.Item
	order    []string
	days     map[model.DayKey]model.DayState
	fail     error
	saves    int
	deletes  int
	watchers []chan struct{}
}

func NewMemory() *Memory {
	return &Memory{items: map[string]model.Item{}, days: map[model.DayKey]model.DayState{}}
}

// Seed replaces the remote contents without counting as saves.
func (m *Memory) Seed(c model.Collection) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items = map[string]model.Item{}
	m.order = nil
	m.days = map[model.DayKey]model.DayState{}
	for _, it := range c.Items {
		m.putItemLocked(it.Clone())
	}
	for _, d := range c.Days {
		m.days[d.Day] = d
	}
}

// SetFailure makes every subsequent call fail with err until cleared with nil.
func (m *Memory) SetFailure(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fail = err
}

func (m *Memory) Saves() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saves
}

func (m *Memory) Deletes() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.deletes
}

func (m *Memory) SaveItem(ctx context.Context, it model.Item) (model.Item, error) {
	if err := ctx.Err(); err != nil {
		return model.Item{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail != nil {
		return model.Item{}, &Error{Op: "save", Key: itemKey(it.ID), Err: m.fail}
	}
	it = it.Clone()
	it.RemoteRef = "mem:" + itemKey(it.ID)
	m.putItemLocked(it)
	m.saves++
	m.notifyLocked()
	return it.Clone(), nil
}

func (m *Memory) SaveDay(ctx context.Context, d model.DayState) (model.DayState, error) {
	if err := ctx.Err(); err != nil {
		return model.DayState{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail != nil {
		return model.DayState{}, &Error{Op: "save", Key: dayKey(d.Day), Err: m.fail}
	}
	d.RemoteRef = "mem:" + dayKey(d.Day)
	m.days[d.Day] = d
	m.saves++
	m.notifyLocked()
	return d, nil
}

func (m *Memory) DeleteItem(ctx context.Context, ref ItemRef) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail != nil {
		return &Error{Op: "delete", Key: itemKey(ref.ID), Err: m.fail}
	}
	if _, ok := m.items[ref.ID]; ok {
		delete(m.items, ref.ID)
		for i, id := range m.order {
			if id == ref.ID {
				m.order = append(m.order[:i], m.order[i+1:]...)
				break
			}
		}
	}
	m.deletes++
	m.notifyLocked()
	return nil
}

func (m *Memory) FetchAll(ctx context.Context) (model.Collection, error) {
	if err := ctx.Err(); err != nil {
		return model.Collection{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail != nil {
		return model.Collection{}, &Error{Op: "fetch", Err: m.fail}
	}
	out := model.Collection{Items: []model.Item{}, Days: []model.DayState{}}
	for _, id := range m.order {
		out.Items = append(out.Items, m.items[id].Clone())
	}
	for _, d := range m.days {
		out.Days = append(out.Days, d)
	}
	sortDays(out.Days)
	return out, nil
}

// Watch notifies on every successful write until ctx is done.
func (m *Memory) Watch(ctx context.Context) (<-chan struct{}, error) {
	if ctx == nil {
		return nil, errors.New("remote: nil context")
	}
	ch := make(chan struct{}, 1)
	m.mu.Lock()
	m.watchers = append(m.watchers, ch)
	m.mu.Unlock()
	go func() {
		<-ctx.Done()
		m.mu.Lock()
		defer m.mu.Unlock()
		for i, w := range m.watchers {
			if w == ch {
				m.watchers = append(m.watchers[:i], m.watchers[i+1:]...)
				break
			}
		}
		close(ch)
	}()
	return ch, nil
}

func (m *Memory) putItemLocked(it model.Item) {
	if _, ok := m.items[it.ID]; !ok {
		m.order = append(m.order, it.ID)
	}
	m.items[it.ID] = it
}

func (m *Memory) notifyLocked() {
	for _, w := range m.watchers {
		signal(w)
	}
}
