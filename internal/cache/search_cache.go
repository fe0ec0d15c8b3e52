package cache

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/grocerytrack/grocery-price-tracker/internal/models"
	"github.com/grocerytrack/grocery-price-tracker/internal/updater"
)

// RedisClient is the subset of redis operations the cache needs (narrowed
// for testing).
type RedisClient interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
}

// SearchCache decorates a Searcher with a redis-backed keyword cache. Cache
// failures degrade to a direct search; they never fail the pass.
type SearchCache struct {
	next   updater.Searcher
	redis  RedisClient
	ttl    time.Duration
	logger *slog.Logger
}

func NewSearchCache(next updater.Searcher, client RedisClient, ttl time.Duration, logger *slog.Logger) *SearchCache {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}

	return &SearchCache{
		next:   next,
		redis:  client,
		ttl:    ttl,
		logger: logger.With("component", "search_cache"),
	}
}

func (c *SearchCache) Search(ctx context.Context, keyword string) ([]models.SearchResult, error) {
	key := cacheKey(keyword)

	data, err := c.redis.Get(ctx, key).Bytes()
	if err == nil {
		var results []models.SearchResult
		if jsonErr := json.Unmarshal(data, &results); jsonErr == nil {
			c.logger.Debug("cache hit", "keyword", keyword, "results", len(results))
			return results, nil
		}
		c.logger.Warn("discarding malformed cache entry", "key", key)
	} else if !errors.Is(err, redis.Nil) {
		c.logger.Warn("cache read failed", "keyword", keyword, "error", err)
	}

	results, err := c.next.Search(ctx, keyword)
	if err != nil {
		return nil, err
	}

	if data, err := json.Marshal(results); err == nil {
		if err := c.redis.Set(ctx, key, data, c.ttl).Err(); err != nil {
			c.logger.Warn("cache write failed", "keyword", keyword, "error", err)
		}
	}

	return results, nil
}

func cacheKey(keyword string) string {
	return "search:" + strings.ToLower(strings.TrimSpace(keyword))
}
