package storage

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"time"

	"escapade/internal/common/database"
	"escapade/internal/common/errors"
	"escapade/internal/common/logger"
	"escapade/internal/models"

	"github.com/redis/go-redis/v9"
)

// ResultCache stores complete pipeline results in Redis as JSON.
type ResultCache struct {
	rdb *database.RedisClient
	log logger.Logger
}

func NewResultCache(rdb *database.RedisClient, log logger.Logger) *ResultCache {
	return &ResultCache{rdb: rdb, log: log}
}

// Get returns the cached result for key. A missing key or an undecodable entry is a miss.
func (c *ResultCache) Get(ctx context.Context, key string) (*models.PipelineResult, bool, error) {
	val, err := c.rdb.Get(ctx, key)
	if stderrors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, errors.NewCacheUnavailableError(err)
	}

	var result models.PipelineResult
	if err := json.Unmarshal([]byte(val), &result); err != nil {
		c.log.Warn("Discarding undecodable cache entry", map[string]interface{}{
			"key":   key,
			"error": err.Error(),
		})
		_ = c.rdb.Del(ctx, key)
		return nil, false, nil
	}
	if result.Itineraries == nil {
		result.Itineraries = []models.Itinerary{}
	}
	return &result, true, nil
}

// Set stores result under key for ttl. The raw snapshot is not cached. ttl <= 0 disables the write.
func (c *ResultCache) Set(ctx context.Context, key string, result models.PipelineResult, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	result.Raw = nil
	result.Cached = false

	data, err := json.Marshal(result)
	if err != nil {
		return err
	}
	if err := c.rdb.Set(ctx, key, data, ttl); err != nil {
		return errors.NewCacheUnavailableError(err)
	}
	return nil
}
