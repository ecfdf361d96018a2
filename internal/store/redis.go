package store

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// NewRedisClient creates and pings a Redis client with optional password auth.
func NewRedisClient(ctx context.Context, addr, password string) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, err
	}
	return rdb, nil
}

const (
	ratingKeyPrefix = "title:rating:"
	// noRating marks a cached "title has no reviews" so it isn't recomputed.
	noRating = "none"
)

// CacheObserver is notified of every rating lookup.
type CacheObserver interface {
	CacheHit()
	CacheMiss()
}

// RatingCache keeps computed title ratings in Redis until a review changes.
type RatingCache struct {
	rdb *redis.Client
	ttl time.Duration
	obs CacheObserver
}

// NewRatingCache returns a cache whose entries live for ttl. obs may be nil.
func NewRatingCache(rdb *redis.Client, ttl time.Duration, obs CacheObserver) *RatingCache {
	return &RatingCache{rdb: rdb, ttl: ttl, obs: obs}
}

func ratingKey(titleID int64) string {
	return ratingKeyPrefix + strconv.FormatInt(titleID, 10)
}

// Get returns the cached rating for titleID. ok is false on a miss; a hit
// may still carry a nil rating for a title without reviews.
func (c *RatingCache) Get(ctx context.Context, titleID int64) (rating *float64, ok bool, err error) {
	val, err := c.rdb.Get(ctx, ratingKey(titleID)).Result()
	if errors.Is(err, redis.Nil) {
		c.miss()
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	c.hit()
	if val == noRating {
		return nil, true, nil
	}
	f, err := strconv.ParseFloat(val, 64)
	if err != nil {
		return nil, false, fmt.Errorf("cached rating for title %d: %w", titleID, err)
	}
	return &f, true, nil
}

// Set caches rating (nil meaning "no reviews") for titleID.
func (c *RatingCache) Set(ctx context.Context, titleID int64, rating *float64) error {
	val := noRating
	if rating != nil {
		val = strconv.FormatFloat(*rating, 'f', -1, 64)
	}
	return c.rdb.Set(ctx, ratingKey(titleID), val, c.ttl).Err()
}

// Invalidate drops the cached rating for titleID.
func (c *RatingCache) Invalidate(ctx context.Context, titleID int64) error {
	return c.rdb.Del(ctx, ratingKey(titleID)).Err()
}

func (c *RatingCache) hit() {
	if c.obs != nil {
		c.obs.CacheHit()
	}
}

func (c *RatingCache) miss() {
	if c.obs != nil {
		c.obs.CacheMiss()
	}
}
