package storage

import (
	"context"
	"errors"

	"github.com/redis/go-redis/v9"
)

// Redis keeps each key as a plain Redis string.
type Redis struct {
	rdb *redis.Client
}

func NewRedis(addr, password string, db int) *Redis {
	return &Redis{rdb: redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})}
}

// Ping checks the connection; callers use it to fail fast at startup.
func (r *Redis) Ping(ctx context.Context) error {
	if err := r.rdb.Ping(ctx).Err(); err != nil {
		return fail("ping", "", unavailable(err))
	}
	return nil
}

func (r *Redis) Get(ctx context.Context, key string) ([]byte, bool, error) {
	v, err := r.rdb.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fail("get", key, unavailable(err))
	}
	return v, true, nil
}

func (r *Redis) Set(ctx context.Context, key string, value []byte) error {
	if err := r.rdb.Set(ctx, key, value, 0).Err(); err != nil {
		return fail("set", key, unavailable(err))
	}
	return nil
}

func (r *Redis) Remove(ctx context.Context, key string) error {
	if err := r.rdb.Del(ctx, key).Err(); err != nil {
		return fail("remove", key, unavailable(err))
	}
	return nil
}

func (r *Redis) Keys(ctx context.Context, prefixes ...string) ([]string, error) {
	patterns := make([]string, 0, len(prefixes))
	for _, p := range prefixes {
		patterns = append(patterns, p+"*")
	}
	if len(patterns) == 0 {
		patterns = append(patterns, "*")
	}

	seen := make(map[string]struct{})
	var keys []string
	for _, pattern := range patterns {
		iter := r.rdb.Scan(ctx, 0, pattern, 100).Iterator()
		for iter.Next(ctx) {
			k := iter.Val()
			if _, dup := seen[k]; dup {
				continue
			}
			seen[k] = struct{}{}
			keys = append(keys, k)
		}
		if err := iter.Err(); err != nil {
			return nil, fail("keys", "", unavailable(err))
		}
	}
	// SCAN globs treat some characters specially; filter on the literal prefix.
	return filterKeys(keys, prefixes), nil
}

func (r *Redis) Close() error { return r.rdb.Close() }
