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

type countingObserver struct {
	hits, misses int
}

func (o *countingObserver) CacheHit()  { o.hits++ }
func (o *countingObserver) CacheMiss() { o.misses++ }

func newTestCache(t *testing.T) (*RatingCache, *miniredis.Miniredis, *countingObserver) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })
	obs := &countingObserver{}
	return NewRatingCache(rdb, time.Minute, obs), mr, obs
}

func TestRatingCacheRoundTrip(t *testing.T) {
	cache, mr, obs := newTestCache(t)
	ctx := context.Background()

	_, ok, err := cache.Get(ctx, 7)
	require.NoError(t, err)
	assert.False(t, ok)

	rating := 7.33
	require.NoError(t, cache.Set(ctx, 7, &rating))
	assert.Equal(t, "7.33", mustGet(t, mr, "title:rating:7"))

	got, ok, err := cache.Get(ctx, 7)
	require.NoError(t, err)
	require.True(t, ok)
	require.NotNil(t, got)
	assert.InDelta(t, 7.33, *got, 1e-9)

	assert.Equal(t, 1, obs.hits)
	assert.Equal(t, 1, obs.misses)
}

func TestRatingCacheNoReviews(t *testing.T) {
	cache, _, _ := newTestCache(t)
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, 3, nil))
	got, ok, err := cache.Get(ctx, 3)
	require.NoError(t, err)
	assert.True(t, ok, "a title without reviews is still a hit")
	assert.Nil(t, got)
}

func TestRatingCacheInvalidateAndExpiry(t *testing.T) {
	cache, mr, _ := newTestCache(t)
	ctx := context.Background()
	rating := 5.0

	require.NoError(t, cache.Set(ctx, 1, &rating))
	require.NoError(t, cache.Invalidate(ctx, 1))
	_, ok, err := cache.Get(ctx, 1)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, cache.Set(ctx, 2, &rating))
	mr.FastForward(2 * time.Minute)
	_, ok, err = cache.Get(ctx, 2)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRatingCacheCorruptValue(t *testing.T) {
	cache, mr, _ := newTestCache(t)
	require.NoError(t, mr.Set("title:rating:9", "not-a-number"))

	_, ok, err := cache.Get(context.Background(), 9)
	assert.Error(t, err)
	assert.False(t, ok)
}

func mustGet(t *testing.T, mr *miniredis.Miniredis, key string) string {
	t.Helper()
	v, err := mr.Get(key)
	require.NoError(t, err)
	return v
}
