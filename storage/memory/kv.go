package memorystore

import (
	"context"
	"sync"
	"time"
)

const kvSweepThreshold = 1024

// KV keeps reminder-dedupe markers in process memory. Expired entries are
// evicted lazily on read and swept on write once the map grows past a
// threshold, so a long-running dev process does not accumulate dead markers.
type KV struct {
	mu    sync.Mutex
	items map[string]kvEntry
}

type kvEntry struct {
	val []byte
	exp time.Time // zero means no expiry
}

func (e kvEntry) expired(now time.Time) bool {
	return !e.exp.IsZero() && now.After(e.exp)
}

func NewKV() *KV {
	return &KV{items: make(map[string]kvEntry)}
}

func (k *KV) Get(ctx context.Context, key string) ([]byte, bool, error) {
	_ = ctx
	k.mu.Lock()
	defer k.mu.Unlock()
	e, ok := k.items[key]
	if !ok {
		return nil, false, nil
	}
	if e.expired(time.Now()) {
		delete(k.items, key)
		return nil, false, nil
	}
	return e.val, true, nil
}

func (k *KV) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	_ = ctx
	k.mu.Lock()
	defer k.mu.Unlock()
	now := time.Now()
	if len(k.items) >= kvSweepThreshold {
		for key, e := range k.items {
			if e.expired(now) {
				delete(k.items, key)
			}
		}
	}
	e := kvEntry{val: append([]byte(nil), value...)}
	if ttl > 0 {
		e.exp = now.Add(ttl)
	}
	k.items[key] = e
	return nil
}

func (k *KV) Del(ctx context.Context, key string) error {
	_ = ctx
	k.mu.Lock()
	defer k.mu.Unlock()
	delete(k.items, key)
	return nil
}
