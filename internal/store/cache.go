package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/stitts-dev/court-iq/pkg/logger"
	"github.com/stitts-dev/court-iq/pkg/types"
)

// AdjustmentCache caches slate interaction adjustments in Redis so repeated
// lineup requests for the same slate skip Postgres.
type AdjustmentCache struct {
	client     *redis.Client
	defaultTTL time.Duration
	keyPrefix  string
	log        *logrus.Entry
}

// NewAdjustmentCache connects to Redis and verifies the connection.
func NewAdjustmentCache(redisURL string, defaultTTL time.Duration) (*AdjustmentCache, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	client := redis.NewClient(opt)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	cache := &AdjustmentCache{
		client:     client,
		defaultTTL: defaultTTL,
		keyPrefix:  "courtiq",
		log:        logger.WithComponent("adjustment_cache"),
	}

	cache.log.WithFields(logrus.Fields{
		"default_ttl": defaultTTL,
	}).Info("Adjustment cache initialized")

	return cache, nil
}

func (c *AdjustmentCache) slateKey(runID uuid.UUID, team string, date time.Time) string {
	return fmt.Sprintf("%s:adjustments:%s:%s:%s", c.keyPrefix, runID, team, date.Format("2006-01-02"))
}

// GetSlate retrieves cached adjustments for one run/team/date. A cache miss
// returns (nil, nil).
func (c *AdjustmentCache) GetSlate(ctx context.Context, runID uuid.UUID, team string, date time.Time) ([]types.InteractionAdjustment, error) {
	key := c.slateKey(runID, team, date)

	result, err := c.client.Get(ctx, key).Result()
	if err != nil {
		if err == redis.Nil {
			c.log.WithField("key", key).Debug("Cache miss for slate adjustments")
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get cached adjustments: %w", err)
	}

	var adjustments []types.InteractionAdjustment
	if err := json.Unmarshal([]byte(result), &adjustments); err != nil {
		// Corrupt entry: drop it and treat as a miss.
		c.client.Del(ctx, key)
		c.log.WithError(err).WithField("key", key).Warn("Dropped corrupt cache entry")
		return nil, nil
	}

	return adjustments, nil
}

// SetSlate caches adjustments for one run/team/date.
func (c *AdjustmentCache) SetSlate(ctx context.Context, runID uuid.UUID, team string, date time.Time, adjustments []types.InteractionAdjustment) error {
	key := c.slateKey(runID, team, date)

	data, err := json.Marshal(adjustments)
	if err != nil {
		return fmt.Errorf("failed to marshal adjustments: %w", err)
	}

	if err := c.client.Set(ctx, key, data, c.defaultTTL).Err(); err != nil {
		return fmt.Errorf("failed to cache adjustments: %w", err)
	}
	return nil
}

// InvalidateRun removes every cached slate for a run. Called when a newer
// run completes so stale adjustments are never served.
func (c *AdjustmentCache) InvalidateRun(ctx context.Context, runID uuid.UUID) error {
	pattern := fmt.Sprintf("%s:adjustments:%s:*", c.keyPrefix, runID)

	iter := c.client.Scan(ctx, 0, pattern, 100).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("failed to scan cache keys: %w", err)
	}
	if len(keys) > 0 {
		if err := c.client.Del(ctx, keys...).Err(); err != nil {
			return fmt.Errorf("failed to delete cache keys: %w", err)
		}
	}

	c.log.WithFields(logrus.Fields{
		"run_id": runID,
		"keys":   len(keys),
	}).Debug("Invalidated cached slates")
	return nil
}

// Close releases the Redis connection.
func (c *AdjustmentCache) Close() error {
	return c.client.Close()
}
