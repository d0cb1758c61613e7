package enrichment

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/kspirits/hub/internal/domain"
	"github.com/kspirits/hub/internal/kv"
	"github.com/kspirits/hub/internal/metrics"
)

const cacheKeyPrefix = "enrich:"

// cacheStore is the consumer interface for the Redis-backed cache (ISP).
type cacheStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// CachedEnricher decorates an Enricher with a Redis read-through cache.
// Cache failures degrade to the inner provider, never to an error.
type CachedEnricher struct {
	inner  Enricher
	store  cacheStore
	ttl    time.Duration
	logger *zap.Logger
}

// NewCachedEnricher wraps inner with a read-through cache.
func NewCachedEnricher(inner Enricher, store cacheStore, ttl time.Duration, logger *zap.Logger) *CachedEnricher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CachedEnricher{inner: inner, store: store, ttl: ttl, logger: logger}
}

func (c *CachedEnricher) Enrich(ctx context.Context, sp domain.Spirit) (Fields, error) {
	key := cacheKey(sp)

	if raw, err := c.store.Get(ctx, key); err == nil {
		var fields Fields
		if err := json.Unmarshal(raw, &fields); err == nil {
			metrics.EnrichmentCacheTotal.WithLabelValues("hit").Inc()
			return fields, nil
		}
		c.logger.Warn("corrupt enrichment cache entry", zap.String("key", key))
	} else if !errors.Is(err, kv.ErrKeyNotFound) {
		c.logger.Warn("enrichment cache read failed", zap.Error(err))
	}
	metrics.EnrichmentCacheTotal.WithLabelValues("miss").Inc()

	fields, err := c.inner.Enrich(ctx, sp)
	if err != nil {
		return Fields{}, err
	}

	if raw, err := json.Marshal(fields); err == nil {
		if err := c.store.SetWithTTL(ctx, key, raw, c.ttl); err != nil {
			c.logger.Warn("enrichment cache write failed", zap.Error(err))
		}
	}
	return fields, nil
}

// cacheKey is stable across re-ingests of the same bottling: id churn
// must not defeat the cache, so the key hashes identity fields instead.
func cacheKey(sp domain.Spirit) string {
	h := sha256.Sum256([]byte(strings.ToLower(sp.Name) + "|" + strings.ToLower(sp.Distillery) + "|" + strings.ToLower(sp.Category)))
	return cacheKeyPrefix + hex.EncodeToString(h[:])
}
