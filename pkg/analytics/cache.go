package analytics

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/hashicorp/golang-lru/v2/expirable"
	"golang.org/x/sync/singleflight"

	"github.com/guluwater/navadmin/pkg/observability"
)

const (
	defaultCacheTTL  = 30 * time.Second
	defaultLocalSize = 64
)

// CacheConfig tunes the stats cache.
type CacheConfig struct {
	TTL       time.Duration
	LocalSize int
}

// StatsCache fronts the stats service with a small in-process LRU and an
// optional shared Redis layer. Entries expire by TTL only; recording a visit
// does not invalidate them. The staleness window matches the TTL, the same
// eventual-consistency stance the rollup buckets take.
type StatsCache struct {
	service *Service
	redis   *redis.Client
	local   *expirable.LRU[string, []byte]
	group   singleflight.Group
	ttl     time.Duration
	logger  *observability.Logger
	metrics *observability.Metrics
}

// NewStatsCache creates the cache. A nil redis client disables the shared
// layer; the local LRU always runs.
func NewStatsCache(svc *Service, redisClient *redis.Client, cfg CacheConfig,
	logger *observability.Logger, metrics *observability.Metrics) *StatsCache {
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = defaultCacheTTL
	}
	size := cfg.LocalSize
	if size <= 0 {
		size = defaultLocalSize
	}
	return &StatsCache{
		service: svc,
		redis:   redisClient,
		local:   expirable.NewLRU[string, []byte](size, nil, ttl),
		ttl:     ttl,
		logger:  logger,
		metrics: metrics,
	}
}

// Overview returns the cached overview report, computing it on miss.
func (c *StatsCache) Overview(ctx context.Context) (*OverviewReport, error) {
	var report OverviewReport
	err := c.getOrCompute(ctx, "stats:overview", "overview", &report, func(ctx context.Context) (interface{}, error) {
		return c.service.Overview(ctx)
	})
	if err != nil {
		return nil, err
	}
	return &report, nil
}

// Trends returns the cached trends report for the window, computing it on
// miss. Each window size caches under its own key.
func (c *StatsCache) Trends(ctx context.Context, days int) (*TrendsReport, error) {
	if days <= 0 {
		days = defaultTrendDays
	}
	var report TrendsReport
	key := fmt.Sprintf("stats:trends:%d", days)
	err := c.getOrCompute(ctx, key, "trends", &report, func(ctx context.Context) (interface{}, error) {
		return c.service.Trends(ctx, days)
	})
	if err != nil {
		return nil, err
	}
	return &report, nil
}

// Ranking is served uncached; the ranking queries hit indexed columns and
// the result depends on three parameters, which would fragment the cache.
func (c *StatsCache) Ranking(ctx context.Context, typ RankingType, limit, days int) (*RankingReport, error) {
	return c.service.Ranking(ctx, typ, limit, days)
}

func (c *StatsCache) getOrCompute(ctx context.Context, key, view string, out interface{},
	compute func(context.Context) (interface{}, error)) error {

	if payload, ok := c.local.Get(key); ok {
		c.hit("local", view)
		return json.Unmarshal(payload, out)
	}
	c.miss("local", view)

	if c.redis != nil {
		payload, err := c.redis.Get(ctx, key).Bytes()
		if err == nil {
			c.hit("redis", view)
			c.local.Add(key, payload)
			return json.Unmarshal(payload, out)
		}
		if err != redis.Nil && c.logger != nil {
			c.logger.WithError(err).WithField("key", key).Warn("redis read failed, computing directly")
		}
		c.miss("redis", view)
	}

	result, err, _ := c.group.Do(key, func() (interface{}, error) {
		value, err := compute(ctx)
		if err != nil {
			return nil, err
		}
		payload, err := json.Marshal(value)
		if err != nil {
			return nil, err
		}
		c.local.Add(key, payload)
		if c.redis != nil {
			if err := c.redis.Set(ctx, key, payload, c.ttl).Err(); err != nil && c.logger != nil {
				c.logger.WithError(err).WithField("key", key).Warn("redis write failed")
			}
		}
		return payload, nil
	})
	if err != nil {
		return err
	}
	return json.Unmarshal(result.([]byte), out)
}

func (c *StatsCache) hit(cacheType, view string) {
	if c.metrics != nil {
		c.metrics.CacheHitsTotal.WithLabelValues(cacheType, view).Inc()
	}
}

func (c *StatsCache) miss(cacheType, view string) {
	if c.metrics != nil {
		c.metrics.CacheMissesTotal.WithLabelValues(cacheType, view).Inc()
	}
}
