package remote

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"dayplan-cli/internal/model"
)

// NATS is a Store backed by a JetStream KeyValue bucket.
type NATS struct {
	nc     *nats.Conn
	kv     jetstream.KeyValue
	bucket string
	logger *slog.Logger

	mu     sync.Mutex
	closed bool
}

// DialNATS connects to url and opens (creating if needed) the KV bucket.
func DialNATS(ctx context.Context, url, bucket string, logger *slog.Logger) (*NATS, error) {
	if logger == nil {
		logger = slog.Default()
	}
	url = strings.TrimSpace(url)
	if url == "" {
		url = nats.DefaultURL
	}
	bucket = strings.TrimSpace(bucket)
	if bucket == "" {
		return nil, errors.New("remote: nats bucket required")
	}
	nc, err := nats.Connect(url, nats.Name("dayplan"))
	if err != nil {
		return nil, fmt.Errorf("remote: connect %s: %w", url, err)
	}
	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("remote: jetstream: %w", err)
	}
	kv, err := js.CreateOrUpdateKeyValue(ctx, jetstream.KeyValueConfig{
		Bucket:      bucket,
		Description: "dayplan items and day states",
		History:     1,
	})
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("remote: open bucket %s: %w", bucket, err)
	}
	logger.Debug("Opened NATS KV bucket", "url", url, "bucket", bucket)
	return &NATS{nc: nc, kv: kv, bucket: bucket, logger: logger}, nil
}

func (r *NATS) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil
	}
	r.closed = true
	r.nc.Close()
	return nil
}

func (r *NATS) checkOpen() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return ErrClosed
	}
	return nil
}

func (r *NATS) SaveItem(ctx context.Context, it model.Item) (model.Item, error) {
	if err := r.checkOpen(); err != nil {
		return model.Item{}, err
	}
	key := itemKey(it.ID)
	it = it.Clone()
	it.RemoteRef = r.bucket + "/" + key
	b, err := encode(it)
	if err != nil {
		return model.Item{}, &Error{Op: "save", Key: key, Err: err}
	}
	if _, err := r.kv.Put(ctx, key, b); err != nil {
		return model.Item{}, &Error{Op: "save", Key: key, Err: err}
	}
	return it, nil
}

func (r *NATS) SaveDay(ctx context.Context, d model.DayState) (model.DayState, error) {
	if err := r.checkOpen(); err != nil {
		return model.DayState{}, err
	}
	key := dayKey(d.Day)
	d.RemoteRef = r.bucket + "/" + key
	b, err := encode(d)
	if err != nil {
		return model.DayState{}, &Error{Op: "save", Key: key, Err: err}
	}
	if _, err := r.kv.Put(ctx, key, b); err != nil {
		return model.DayState{}, &Error{Op: "save", Key: key, Err: err}
	}
	return d, nil
}

func (r *NATS) DeleteItem(ctx context.Context, ref ItemRef) error {
	if err := r.checkOpen(); err != nil {
		return err
	}
	key := itemKey(ref.ID)
	if err := r.kv.Purge(ctx, key); err != nil && !errors.Is(err, jetstream.ErrKeyNotFound) {
		return &Error{Op: "delete", Key: key, Err: err}
	}
	return nil
}

func (r *NATS) FetchAll(ctx context.Context) (model.Collection, error) {
	if err := r.checkOpen(); err != nil {
		return model.Collection{}, err
	}
	out := model.Collection{Items: []model.Item{}, Days: []model.DayState{}}

	lister, err := r.kv.ListKeys(ctx)
	if err != nil {
		return model.Collection{}, &Error{Op: "fetch", Err: err}
	}
	var keys []string
	for k := range lister.Keys() {
		keys = append(keys, k)
	}
	_ = lister.Stop()
	if err := ctx.Err(); err != nil {
		return model.Collection{}, err
	}

	for _, key := range keys {
		entry, err := r.kv.Get(ctx, key)
		if err != nil {
			// ErrKeyDeleted is expected during concurrent access.
			if errors.Is(err, jetstream.ErrKeyDeleted) || errors.Is(err, jetstream.ErrKeyNotFound) {
				continue
			}
			return model.Collection{}, &Error{Op: "fetch", Key: key, Err: err}
		}
		switch {
		case strings.HasPrefix(key, itemPrefix):
			it, err := decodeItem(entry.Value())
			if err != nil {
				r.logger.Warn("Skipping undecodable remote item", "key", key, "error", err)
				continue
			}
			out.Items = append(out.Items, it)
		case strings.HasPrefix(key, dayPrefix):
			d, err := decodeDay(entry.Value())
			if err != nil {
				r.logger.Warn("Skipping undecodable remote day", "key", key, "error", err)
				continue
			}
			out.Days = append(out.Days, d)
		}
	}
	sortDays(out.Days)
	return out, nil
}

// Watch signals on every put or delete in the bucket made after the call.
func (r *NATS) Watch(ctx context.Context) (<-chan struct{}, error) {
	if err := r.checkOpen(); err != nil {
		return nil, err
	}
	watcher, err := r.kv.WatchAll(ctx, jetstream.UpdatesOnly())
	if err != nil {
		return nil, fmt.Errorf("remote: create KV watcher: %w", err)
	}

	out := make(chan struct{}, 1)
	go func() {
		defer close(out)
		defer func() { _ = watcher.Stop() }()
		for {
			select {
			case <-ctx.Done():
				return
			case entry, ok := <-watcher.Updates():
				if !ok {
					return
				}
				if entry == nil {
					continue
				}
				signal(out)
			}
		}
	}()
	return out, nil
}
