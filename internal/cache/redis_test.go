package cache

import (
	"context"
	"testing"
	"time"

	"anitrack/internal/logger"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type payload struct {
	Title string `json:"title"`
	Count int    `json:"count"`
}

func newTestCache(t *testing.T) (*Cache, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	return NewCache(client, logger.Discard()), mr
}

func TestCache_SetGet(t *testing.T) {
	c, mr := newTestCache(t)
	ctx := context.Background()

	c.SetJSON(ctx, "show:1", payload{Title: "Frieren", Count: 28}, time.Minute)

	var got payload
	require.True(t, c.GetJSON(ctx, "show", "show:1", &got))
	assert.Equal(t, payload{Title: "Frieren", Count: 28}, got)

	mr.FastForward(2 * time.Minute)
	assert.False(t, c.GetJSON(ctx, "show", "show:1", &got))
}

func TestCache_MissOnCorruptValue(t *testing.T) {
	c, mr := newTestCache(t)
	require.NoError(t, mr.Set("bad", "{not json"))

	var got payload
	assert.False(t, c.GetJSON(context.Background(), "show", "bad", &got))
}

func TestCache_DeletePattern(t *testing.T) {
	c, mr := newTestCache(t)
	ctx := context.Background()

	c.SetJSON(ctx, "watchlist:u1:all", 1, time.Minute)
	c.SetJSON(ctx, "watchlist:u1:Watching", 2, time.Minute)
	c.SetJSON(ctx, "watchlist:u2:all", 3, time.Minute)

	c.DeletePattern(ctx, "watchlist:u1:*")

	assert.False(t, mr.Exists("watchlist:u1:all"))
	assert.False(t, mr.Exists("watchlist:u1:Watching"))
	assert.True(t, mr.Exists("watchlist:u2:all"))
}

func TestCache_NilIsNoop(t *testing.T) {
	var c *Cache
	ctx := context.Background()

	c.SetJSON(ctx, "k", 1, time.Minute)
	c.Delete(ctx, "k")
	c.DeletePattern(ctx, "*")

	var v int
	assert.False(t, c.GetJSON(ctx, "x", "k", &v))

	empty := NewCache(nil, logger.Discard())
	assert.False(t, empty.GetJSON(ctx, "x", "k", &v))
}

func TestNew_Unreachable(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	_, err := New(ctx, "127.0.0.1:1", "", 0)
	assert.Error(t, err)
}
