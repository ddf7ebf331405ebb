package storage

import (
	"context"
	"errors"
	"sort"
	"strings"

	"github.com/go-redis/redis/v8"
)

// RedisBackend stores entries as plain string keys under a prefix.
type RedisBackend struct {
	client *redis.Client
	prefix string
}

func NewRedisBackend(client *redis.Client, prefix string) *RedisBackend {
	return &RedisBackend{client: client, prefix: prefix}
}

func (b *RedisBackend) Get(ctx context.Context, key string) ([]byte, error) {
	v, err := b.client.Get(ctx, b.prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	return v, err
}

func (b *RedisBackend) Put(ctx context.Context, key string, value []byte) error {
	return b.client.Set(ctx, b.prefix+key, value, 0).Err()
}

func (b *RedisBackend) Delete(ctx context.Context, key string) error {
	return b.client.Del(ctx, b.prefix+key).Err()
}

func (b *RedisBackend) Keys(ctx context.Context) ([]string, error) {
	var keys []string
	iter := b.client.Scan(ctx, 0, b.prefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, strings.TrimPrefix(iter.Val(), b.prefix))
	}
	if err := iter.Err(); err != nil {
		return nil, err
	}
	sort.Strings(keys)
	return keys, nil
}

func (b *RedisBackend) Usage(ctx context.Context) (int64, error) {
	keys, err := b.Keys(ctx)
	if err != nil {
		return 0, err
	}
	if len(keys) == 0 {
		return 0, nil
	}

	pipe := b.client.Pipeline()
	lens := make([]*redis.IntCmd, len(keys))
	for i, k := range keys {
		lens[i] = pipe.StrLen(ctx, b.prefix+k)
	}
	if _, err := pipe.Exec(ctx); err != nil && !errors.Is(err, redis.Nil) {
		return 0, err
	}

	var n int64
	for i, k := range keys {
		n += int64(len(k)) + lens[i].Val()
	}
	return n, nil
}
