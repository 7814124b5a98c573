package storage

import (
	"context"
	"sync"
)

// DefaultCapacity is the 5 MiB budget browsers typically give local storage.
const DefaultCapacity int64 = 5 * 1024 * 1024

// Quota rejects writes that would push the summed value size of the
// prefixed keys past the capacity. Other keys pass through unmetered.
type Quota struct {
	Store
	capacity int64
	prefixes []string
	mu       sync.Mutex
}

func WithQuota(s Store, capacity int64, prefixes ...string) *Quota {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Quota{Store: s, capacity: capacity, prefixes: prefixes}
}

func (q *Quota) Capacity() int64 { return q.capacity }

// Used sums the value sizes of the metered keys.
func (q *Quota) Used(ctx context.Context) (int64, error) {
	return q.usedExcept(ctx, "")
}

func (q *Quota) usedExcept(ctx context.Context, skip string) (int64, error) {
	keys, err := q.Store.Keys(ctx, q.prefixes...)
	if err != nil {
		return 0, err
	}
	var used int64
	for _, k := range keys {
		if k == skip {
			continue
		}
		v, ok, err := q.Store.Get(ctx, k)
		if err != nil {
			return 0, err
		}
		if ok {
			used += int64(len(v))
		}
	}
	return used, nil
}

func (q *Quota) Set(ctx context.Context, key string, value []byte) error {
	if !hasAnyPrefix(key, q.prefixes) {
		return q.Store.Set(ctx, key, value)
	}
	q.mu.Lock()
	defer q.mu.Unlock()

	used, err := q.usedExcept(ctx, key)
	if err != nil {
		return fail("set", key, err)
	}
	if used+int64(len(value)) > q.capacity {
		return fail("set", key, ErrQuotaExceeded)
	}
	return q.Store.Set(ctx, key, value)
}
