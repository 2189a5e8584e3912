package cache

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// RatingCache keeps computed title ratings in Redis so list endpoints do not
// re-aggregate on every request. A nil cache (or nil client) is valid and
// degrades to always recomputing.
type RatingCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRatingCache connects to Redis at addr. ttl bounds staleness in case an
// invalidation is ever lost.
func NewRatingCache(addr, password string, ttl time.Duration) (*RatingCache, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     password,
		DB:           0,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &RatingCache{client: rdb, ttl: ttl}, nil
}

func ratingKey(titleID int64) string {
	return fmt.Sprintf("rating:title:%d", titleID)
}

// Get returns the cached rating and whether a value was present. The sentinel
// "none" marks a title known to have zero reviews.
func (c *RatingCache) Get(ctx context.Context, titleID int64) (rating *int, ok bool) {
	if c == nil || c.client == nil {
		return nil, false
	}
	val, err := c.client.Get(ctx, ratingKey(titleID)).Result()
	if err != nil {
		return nil, false
	}
	if val == "none" {
		return nil, true
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return nil, false
	}
	return &n, true
}

// Set stores the rating; a nil rating records the no-reviews sentinel.
func (c *RatingCache) Set(ctx context.Context, titleID int64, rating *int) {
	if c == nil || c.client == nil {
		return
	}
	val := "none"
	if rating != nil {
		val = strconv.Itoa(*rating)
	}
	c.client.Set(ctx, ratingKey(titleID), val, c.ttl)
}

// Invalidate drops the cached rating for a title. Called on every review
// write or delete so the cache can never drift from the live scores.
func (c *RatingCache) Invalidate(ctx context.Context, titleID int64) {
	if c == nil || c.client == nil {
		return
	}
	c.client.Del(ctx, ratingKey(titleID))
}

// Close releases the Redis connection.
func (c *RatingCache) Close() error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Close()
}
