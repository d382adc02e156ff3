package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type snapshot struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

func newRedisCache(t *testing.T) (*RedisCache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisCache(client), mr
}

func TestKeys(t *testing.T) {
	assert.Equal(t, "events:all", AllEventsKey)
	assert.Equal(t, "event:7", EventKey(7))
	assert.Equal(t, "ticket:all:3", UserTicketsKey(3))
	assert.Equal(t, "ticket:12", TicketKey(12))
}

func TestRedisCache_GetMissAndSet(t *testing.T) {
	c, mr := newRedisCache(t)
	ctx := context.Background()

	_, ok, err := c.Get(ctx, "event:1")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, c.Set(ctx, "event:1", []byte(`{"id":1}`), 30*time.Second))
	raw, ok, err := c.Get(ctx, "event:1")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.JSONEq(t, `{"id":1}`, string(raw))
	assert.Equal(t, 30*time.Second, mr.TTL("event:1"))
}

func TestReadThrough_HitSkipsLoad(t *testing.T) {
	c, mr := newRedisCache(t)
	ctx := context.Background()
	logger := zap.NewNop().Sugar()

	loads := 0
	load := func(context.Context) (snapshot, error) {
		loads++
		return snapshot{ID: 7, Name: "Conf"}, nil
	}

	got, hit, err := ReadThrough(ctx, c, logger, EventKey(7), 30*time.Second, load)
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, "Conf", got.Name)

	got, hit, err = ReadThrough(ctx, c, logger, EventKey(7), 30*time.Second, load)
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, int64(7), got.ID)
	assert.Equal(t, 1, loads)

	mr.FastForward(31 * time.Second)

	_, hit, err = ReadThrough(ctx, c, logger, EventKey(7), 30*time.Second, load)
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, 2, loads)
}

func TestReadThrough_LoadErrorNotCached(t *testing.T) {
	c, mr := newRedisCache(t)
	boom := errors.New("db down")

	_, _, err := ReadThrough(context.Background(), c, zap.NewNop().Sugar(), "events:all", time.Minute,
		func(context.Context) ([]snapshot, error) { return nil, boom })
	assert.ErrorIs(t, err, boom)
	assert.False(t, mr.Exists("events:all"))
}

func TestReadThrough_CacheDownFallsBackToLoad(t *testing.T) {
	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1", MaxRetries: -1, DialTimeout: 100 * time.Millisecond})
	t.Cleanup(func() { _ = client.Close() })
	c := NewRedisCache(client)

	got, hit, err := ReadThrough(context.Background(), c, zap.NewNop().Sugar(), "event:1", time.Minute,
		func(context.Context) (snapshot, error) { return snapshot{ID: 1}, nil })
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, int64(1), got.ID)
}

func TestReadThrough_CorruptEntryReloads(t *testing.T) {
	c, mr := newRedisCache(t)
	require.NoError(t, mr.Set("event:2", "{not json"))

	got, hit, err := ReadThrough(context.Background(), c, zap.NewNop().Sugar(), "event:2", time.Minute,
		func(context.Context) (snapshot, error) { return snapshot{ID: 2}, nil })
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, int64(2), got.ID)
}
