package storage

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRedis(t *testing.T) (*RedisBackend, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewRedisBackend(client, "vox:"), mr
}

func TestRedisBackend_PutGetDelete(t *testing.T) {
	ctx := context.Background()
	b, mr := newTestRedis(t)

	require.NoError(t, b.Put(ctx, "messages", []byte(`{"v":1,"data":[]}`)))
	raw, err := mr.Get("vox:messages")
	require.NoError(t, err)
	assert.Equal(t, `{"v":1,"data":[]}`, raw)

	v, err := b.Get(ctx, "messages")
	require.NoError(t, err)
	assert.JSONEq(t, `{"v":1,"data":[]}`, string(v))

	require.NoError(t, b.Delete(ctx, "messages"))
	_, err = b.Get(ctx, "messages")
	assert.ErrorIs(t, err, ErrNotFound)

	// deleting twice is fine
	assert.NoError(t, b.Delete(ctx, "messages"))
}

func TestRedisBackend_KeysAndUsageStayInsidePrefix(t *testing.T) {
	ctx := context.Background()
	b, mr := newTestRedis(t)

	require.NoError(t, mr.Set("other:session", "not ours"))
	require.NoError(t, b.Put(ctx, "b", []byte("12345")))
	require.NoError(t, b.Put(ctx, "a", []byte("xyz")))

	keys, err := b.Keys(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, keys)

	used, err := b.Usage(ctx)
	require.NoError(t, err)
	assert.Equal(t, entrySize("a", []byte("xyz"))+entrySize("b", []byte("12345")), used)
}

func TestRedisBackend_EmptyUsage(t *testing.T) {
	b, _ := newTestRedis(t)

	used, err := b.Usage(context.Background())
	require.NoError(t, err)
	assert.Zero(t, used)
}

func TestRedisBackend_StoreQuota(t *testing.T) {
	ctx := context.Background()
	b, _ := newTestRedis(t)
	s := NewStore(b, Quota{MaxItemBytes: 100, MaxTotalBytes: 150}, DefaultCleanupPolicy(), nil)

	require.NoError(t, s.Set(ctx, "a", make([]byte, 90)))
	assert.ErrorIs(t, s.Set(ctx, "b", make([]byte, 90)), ErrQuotaExceeded)
}
