package store

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupRedis(t *testing.T) (*redis.Client, *miniredis.Miniredis) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	return redis.NewClient(&redis.Options{Addr: mr.Addr()}), mr
}

func TestRedisExactCache_PutGet(t *testing.T) {
	client, mr := setupRedis(t)
	c := NewRedisExactCache(client, time.Hour)
	ctx := context.Background()

	miss, err := c.Get(ctx, "where is green acres?")
	require.NoError(t, err)
	assert.Nil(t, miss)

	require.NoError(t, c.Put(ctx, &CacheEntry{ID: "c1", Question: "where is green acres?", Answer: "In Pune."}))

	hit, err := c.Get(ctx, "where is green acres?")
	require.NoError(t, err)
	require.NotNil(t, hit)
	assert.Equal(t, "c1", hit.ID)
	assert.Equal(t, "In Pune.", hit.Answer)

	mr.FastForward(2 * time.Hour)
	expired, err := c.Get(ctx, "where is green acres?")
	require.NoError(t, err)
	assert.Nil(t, expired)
}

func TestRedisExactCache_Unavailable(t *testing.T) {
	client, mr := setupRedis(t)
	c := NewRedisExactCache(client, time.Hour)
	mr.Close()

	_, err := c.Get(context.Background(), "q")
	assert.Error(t, err)
}

func TestNewRedisClient(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)

	client, err := NewRedisClient(context.Background(), mr.Addr(), "", 0)
	require.NoError(t, err)
	client.Close()

	mr.Close()
	_, err = NewRedisClient(context.Background(), mr.Addr(), "", 0)
	assert.Error(t, err)
}
