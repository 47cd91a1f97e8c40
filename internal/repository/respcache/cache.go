package respcache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/kailas-cloud/findex/internal/db"
	"github.com/kailas-cloud/findex/internal/domain/answer"
)

const cacheKeyPrefix = "findex:resp_cache:"

// store is the consumer interface for the response cache (ISP).
type store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Del(ctx context.Context, key string) error
}

// Cache stores formatted responses with a TTL. It is strictly best-effort:
// store failures are logged and swallowed, never surfaced to the caller.
type Cache struct {
	store      store
	ttl        time.Duration
	cacheTotal *prometheus.CounterVec
	logger     *zap.Logger
	now        func() time.Time
}

// New creates a response cache.
// cacheTotal is a counter vec with label "result" ("hit"/"miss"), passed explicitly.
func New(s store, ttl time.Duration, cacheTotal *prometheus.CounterVec, logger *zap.Logger) *Cache {
	return &Cache{
		store:      s,
		ttl:        ttl,
		cacheTotal: cacheTotal,
		logger:     logger,
		now:        time.Now,
	}
}

// Get returns the cached response for a query cache key. Entries past their
// recorded TTL are treated as misses and deleted, guarding against stores
// whose own expiry lags. Returned responses are marked cached in metadata.
func (c *Cache) Get(ctx context.Context, queryKey string) (answer.Response, bool) {
	key := c.storageKey(queryKey)

	data, err := c.store.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, db.ErrKeyNotFound) {
			c.logger.Warn("Failed to read cached response", zap.String("key", key), zap.Error(err))
		}
		c.incCache("miss")
		return answer.Response{}, false
	}

	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		c.logger.Warn("Failed to parse cached response", zap.String("key", key), zap.Error(err))
		c.incCache("miss")
		return answer.Response{}, false
	}

	expiry := time.Unix(env.StoredAt, 0).Add(time.Duration(env.TTLSec) * time.Second)
	if !c.now().Before(expiry) {
		if err := c.store.Del(ctx, key); err != nil {
			c.logger.Warn("Failed to delete expired response", zap.String("key", key), zap.Error(err))
		}
		c.incCache("miss")
		return answer.Response{}, false
	}

	c.incCache("hit")
	return fromEnvelope(env), true
}

// Put stores a response under a query cache key. Confirmation responses
// are never stored: they are one-shot round-trips tied to a session.
func (c *Cache) Put(ctx context.Context, queryKey string, resp answer.Response) {
	if resp.Kind() == answer.KindConfirmation || resp.Meta().Degraded {
		return
	}
	key := c.storageKey(queryKey)

	data, err := json.Marshal(toEnvelope(resp, c.now(), c.ttl))
	if err != nil {
		c.logger.Warn("Failed to encode response for cache", zap.String("key", key), zap.Error(err))
		return
	}
	if err := c.store.SetWithTTL(ctx, key, data, c.ttl); err != nil {
		c.logger.Warn("Failed to cache response", zap.String("key", key), zap.Error(err))
	}
}

func (c *Cache) incCache(result string) {
	if c.cacheTotal != nil {
		c.cacheTotal.WithLabelValues(result).Inc()
	}
}

func (c *Cache) storageKey(queryKey string) string {
	h := sha256.Sum256([]byte(queryKey))
	return cacheKeyPrefix + hex.EncodeToString(h[:])
}
