package remote

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/peterbourgon/diskv/v3"

	"dayplan-cli/internal/model"
)

// Dir is a Store backed by a folder of JSON records, one file per key. Point
// it at a synced drive and every device sharing the folder sees the same records.
type Dir struct {
	d        *diskv.Diskv
	basePath string
	logger   *slog.Logger
}

// OpenDir creates the folder if needed.
func OpenDir(basePath string, logger *slog.Logger) (*Dir, error) {
	basePath = strings.TrimSpace(basePath)
	if basePath == "" {
		return nil, errors.New("remote: dir path required")
	}
	if err := os.MkdirAll(basePath, 0o755); err != nil {
		return nil, fmt.Errorf("remote: ensure dir: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	// Other devices write the folder behind our back, so reads must always
	// hit disk.
	return &Dir{
		d: diskv.New(diskv.Options{
			BasePath:     basePath,
			Transform:    func(string) []string { return []string{} },
			CacheSizeMax: 0,
		}),
		basePath: basePath,
		logger:   logger,
	}, nil
}

func (r *Dir) SaveItem(ctx context.Context, it model.Item) (model.Item, error) {
	if err := ctx.Err(); err != nil {
		return model.Item{}, err
	}
	key := itemKey(it.ID)
	it = it.Clone()
	it.RemoteRef = key
	b, err := encode(it)
	if err != nil {
		return model.Item{}, &Error{Op: "save", Key: key, Err: err}
	}
	if err := r.d.Write(key, b); err != nil {
		return model.Item{}, &Error{Op: "save", Key: key, Err: err}
	}
	return it, nil
}

func (r *Dir) SaveDay(ctx context.Context, d model.DayState) (model.DayState, error) {
	if err := ctx.Err(); err != nil {
		return model.DayState{}, err
	}
	key := dayKey(d.Day)
	d.RemoteRef = key
	b, err := encode(d)
	if err != nil {
		return model.DayState{}, &Error{Op: "save", Key: key, Err: err}
	}
	if err := r.d.Write(key, b); err != nil {
		return model.DayState{}, &Error{Op: "save", Key: key, Err: err}
	}
	return d, nil
}

func (r *Dir) DeleteItem(ctx context.Context, ref ItemRef) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	key := itemKey(ref.ID)
	if !r.d.Has(key) {
		return nil
	}
	if err := r.d.Erase(key); err != nil && !errors.Is(err, os.ErrNotExist) {
		return &Error{Op: "delete", Key: key, Err: err}
	}
	return nil
}

func (r *Dir) FetchAll(ctx context.Context) (model.Collection, error) {
	out := model.Collection{Items: []model.Item{}, Days: []model.DayState{}}

	cancel := make(chan struct{})
	defer close(cancel)
	var keys []string
	for k := range r.d.Keys(cancel) {
		if err := ctx.Err(); err != nil {
			return model.Collection{}, err
		}
		keys = append(keys, k)
	}

	for _, k := range keys {
		switch {
		case strings.HasPrefix(k, itemPrefix):
			b, err := r.d.Read(k)
			if err != nil {
				if errors.Is(err, os.ErrNotExist) {
					continue // erased concurrently
				}
				return model.Collection{}, &Error{Op: "fetch", Key: k, Err: err}
			}
			it, err := decodeItem(b)
			if err != nil {
				r.logger.Warn("Skipping undecodable remote item", "key", k, "error", err)
				continue
			}
			out.Items = append(out.Items, it)
		case strings.HasPrefix(k, dayPrefix):
			b, err := r.d.Read(k)
			if err != nil {
				if errors.Is(err, os.ErrNotExist) {
					continue
				}
				return model.Collection{}, &Error{Op: "fetch", Key: k, Err: err}
			}
			d, err := decodeDay(b)
			if err != nil {
				r.logger.Warn("Skipping undecodable remote day", "key", k, "error", err)
				continue
			}
			out.Days = append(out.Days, d)
		}
	}
	sortDays(out.Days)
	return out, nil
}

// Watch signals whenever a record file in the folder is created, written or
// removed. The channel closes once ctx is done or the watcher fails.
func (r *Dir) Watch(ctx context.Context) (<-chan struct{}, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("remote: create watcher: %w", err)
	}
	var closeOnce sync.Once
	closeWatcher := func() {
		closeOnce.Do(func() { _ = watcher.Close() })
	}
	if err := watcher.Add(r.basePath); err != nil {
		closeWatcher()
		return nil, fmt.Errorf("remote: watch %s: %w", r.basePath, err)
	}

	out := make(chan struct{}, 1)
	go func() {
		defer close(out)
		defer closeWatcher()
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-watcher.Events:
				if !ok {
					return
				}
				name := filepath.Base(ev.Name)
				if !strings.HasPrefix(name, itemPrefix) && !strings.HasPrefix(name, dayPrefix) {
					continue
				}
				if ev.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
					continue
				}
				signal(out)
			case _, ok := <-watcher.Errors:
				if !ok {
					return
				}
			}
		}
	}()
	return out, nil
}
