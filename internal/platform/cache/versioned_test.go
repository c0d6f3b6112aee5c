package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type payload struct {
	Count int `json:"count"`
}

func TestVersionedFetchAndBump(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	c := NewVersioned(client, "dashboard", time.Minute)
	ctx := context.Background()

	calls := 0
	loader := func(context.Context) (any, error) {
		calls++
		return payload{Count: calls}, nil
	}

	key, err := c.BuildKey(ctx, "user", "7")
	require.NoError(t, err)
	assert.Equal(t, "dashboard:user:7:v1", key)

	var got payload
	require.NoError(t, c.FetchJSON(ctx, key, &got, loader))
	require.NoError(t, c.FetchJSON(ctx, key, &got, loader))
	assert.Equal(t, 1, calls)
	assert.Equal(t, 1, got.Count)

	require.NoError(t, c.Bump(ctx))
	key, err = c.BuildKey(ctx, "user", "7")
	require.NoError(t, err)
	assert.Equal(t, "dashboard:user:7:v2", key)
	require.NoError(t, c.FetchJSON(ctx, key, &got, loader))
	assert.Equal(t, 2, calls)
	assert.Equal(t, 2, got.Count)
}

func TestVersionedWithoutClientCallsLoader(t *testing.T) {
	var c *Versioned
	var got payload
	err := c.FetchJSON(context.Background(), "k", &got, func(context.Context) (any, error) {
		return payload{Count: 3}, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, got.Count)
}

func TestVersionedRequiresLoader(t *testing.T) {
	c := NewVersioned(nil, "dashboard", time.Minute)
	var got payload
	assert.ErrorIs(t, c.FetchJSON(context.Background(), "k", &got, nil), ErrNoLoader)

	key, err := c.BuildKey(context.Background(), "summary")
	require.NoError(t, err)
	assert.Equal(t, "dashboard:summary", key)
}

func TestVersionedSeedsGeneration(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	c := NewVersioned(client, "dashboard", time.Minute)

	v, err := c.Version(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), v)
	got, err := mr.Get("dashboard:gen")
	require.NoError(t, err)
	assert.Equal(t, "1", got)
}
