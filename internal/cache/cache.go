package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/vitalbook/scheduling/internal/availability"
	"github.com/vitalbook/scheduling/internal/metrics"
)

// AvailabilityCache memoizes computed availability in Redis. Entries embed a
// per-practitioner version number, so invalidation is a single INCR and stale
// entries simply age out via TTL instead of being hunted down.
type AvailabilityCache struct {
	rdb *redis.Client
	ttl time.Duration
	log zerolog.Logger
}

func NewAvailabilityCache(rdb *redis.Client, ttl time.Duration, log zerolog.Logger) *AvailabilityCache {
	return &AvailabilityCache{
		rdb: rdb,
		ttl: ttl,
		log: log.With().Str("component", "availability_cache").Logger(),
	}
}

// Get returns the cached availability for q, if present. Redis failures are
// logged and treated as misses so the cache can never make a read fail.
func (c *AvailabilityCache) Get(ctx context.Context, q availability.Query) (*availability.Availability, bool) {
	key, err := c.entryKey(ctx, q)
	if err != nil {
		c.log.Warn().Err(err).Msg("cache lookup failed")
		metrics.CacheMisses.Inc()
		return nil, false
	}

	raw, err := c.rdb.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.log.Warn().Err(err).Msg("cache lookup failed")
		}
		metrics.CacheMisses.Inc()
		return nil, false
	}

	var avail availability.Availability
	if err := json.Unmarshal(raw, &avail); err != nil {
		c.log.Warn().Err(err).Str("key", key).Msg("corrupt cache entry")
		metrics.CacheMisses.Inc()
		return nil, false
	}

	metrics.CacheHits.Inc()
	return &avail, true
}

// Set stores a computed availability. Failures are logged and ignored.
func (c *AvailabilityCache) Set(ctx context.Context, q availability.Query, avail *availability.Availability) {
	key, err := c.entryKey(ctx, q)
	if err != nil {
		c.log.Warn().Err(err).Msg("cache store failed")
		return
	}

	raw, err := json.Marshal(avail)
	if err != nil {
		c.log.Warn().Err(err).Msg("cache store failed")
		return
	}

	if err := c.rdb.Set(ctx, key, raw, c.ttl).Err(); err != nil {
		c.log.Warn().Err(err).Msg("cache store failed")
	}
}

// Invalidate drops every cached entry for one practitioner by bumping their
// version number.
func (c *AvailabilityCache) Invalidate(ctx context.Context, practitionerID uuid.UUID) error {
	if err := c.rdb.Incr(ctx, versionKey(practitionerID)).Err(); err != nil {
		return fmt.Errorf("bump availability cache version: %w", err)
	}
	return nil
}

func versionKey(practitionerID uuid.UUID) string {
	return fmt.Sprintf("avail:ver:%s", practitionerID.String())
}

func (c *AvailabilityCache) entryKey(ctx context.Context, q availability.Query) (string, error) {
	ver, err := c.rdb.Get(ctx, versionKey(q.PractitionerID)).Result()
	if errors.Is(err, redis.Nil) {
		ver = "0"
	} else if err != nil {
		return "", fmt.Errorf("read availability cache version: %w", err)
	}

	return fmt.Sprintf("avail:%s:v%s:%s:%s:%s:%s:%d",
		q.PractitionerID, ver, q.ServiceID,
		q.Range.Start, q.Range.End, q.Timezone, q.GranularityMinutes), nil
}
