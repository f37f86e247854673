package intel

import (
	"context"
	"encoding/json"
	"time"

	"shrike/internal/domain"

	"github.com/charmbracelet/log"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
)

const (
	reputationKeyPrefix = "shrike:intel:reputation:"
	geoKeyPrefix        = "shrike:intel:geo:"
	defaultCacheTTL     = 12 * time.Hour
)

// CachedProvider decorates another provider with a Redis lookup cache.
// Concurrent lookups for the same IP collapse into one upstream call.
// Cache failures fall through to the inner provider; a nil client turns
// the decorator into singleflight-only mode.
type CachedProvider struct {
	inner  Provider
	client *redis.Client
	ttl    time.Duration

	group singleflight.Group
}

func NewCachedProvider(inner Provider, client *redis.Client, ttl time.Duration) *CachedProvider {
	if ttl <= 0 {
		ttl = defaultCacheTTL
	}
	return &CachedProvider{inner: inner, client: client, ttl: ttl}
}

func (p *CachedProvider) Reputation(ctx context.Context, ip string) (domain.ReputationInfo, error) {
	key := reputationKeyPrefix + ip

	if cached, ok := cacheGet[domain.ReputationInfo](ctx, p.client, key); ok {
		return cached, nil
	}

	result, err, _ := p.group.Do(key, func() (any, error) {
		info, err := p.inner.Reputation(ctx, ip)
		if err != nil {
			return domain.ReputationInfo{}, err
		}
		cacheSet(ctx, p.client, key, info, p.ttl)
		return info, nil
	})
	if err != nil {
		return domain.ReputationInfo{}, err
	}
	return result.(domain.ReputationInfo), nil
}

func (p *CachedProvider) Geo(ctx context.Context, ip string) (domain.GeoInfo, error) {
	key := geoKeyPrefix + ip

	if cached, ok := cacheGet[domain.GeoInfo](ctx, p.client, key); ok {
		return cached, nil
	}

	result, err, _ := p.group.Do(key, func() (any, error) {
		geo, err := p.inner.Geo(ctx, ip)
		if err != nil {
			return domain.UnknownGeoInfo(), err
		}
		cacheSet(ctx, p.client, key, geo, p.ttl)
		return geo, nil
	})
	if err != nil {
		return domain.UnknownGeoInfo(), err
	}
	return result.(domain.GeoInfo), nil
}

// URLMalicious is a local deny-list check, cheap enough to skip caching.
func (p *CachedProvider) URLMalicious(ctx context.Context, url string) (bool, error) {
	return p.inner.URLMalicious(ctx, url)
}

func cacheGet[T any](ctx context.Context, client *redis.Client, key string) (T, bool) {
	var zero T
	if client == nil {
		return zero, false
	}

	payload, err := client.Get(ctx, key).Result()
	if err != nil {
		return zero, false
	}

	var value T
	if err := json.Unmarshal([]byte(payload), &value); err != nil {
		log.Debug("Discarding unreadable intel cache entry", "key", key, "error", err)
		return zero, false
	}
	return value, true
}

func cacheSet(ctx context.Context, client *redis.Client, key string, value any, ttl time.Duration) {
	if client == nil {
		return
	}

	payload, err := json.Marshal(value)
	if err != nil {
		return
	}
	if err := client.SetEx(ctx, key, payload, ttl).Err(); err != nil {
		log.Debug("Failed to store intel cache entry", "key", key, "error", err)
	}
}
