package usecase

import (
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"time"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"github.com/spiralshops/relevance/internal/domain"
	"github.com/spiralshops/relevance/internal/metrics"
)

// GenerateKey derives a compact cache key from an operation name and the
// canonicalized parameters that affect its result.
func GenerateKey(operation string, params interface{}) string {
	data, err := json.Marshal(params)
	if err != nil {
		return fmt.Sprintf("%s:%v", operation, params)
	}

	hash := sha256.Sum256(data)
	return fmt.Sprintf("%s:%x", operation, hash[:16])
}

// getCached decodes a cached value. Any failure, including a corrupt entry, is a miss.
func getCached[T any](ctx context.Context, cache domain.ResultCache, key, operation string, logger zerolog.Logger) (*T, bool) {
	data, err := cache.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, domain.ErrCacheMiss) {
			metrics.CacheLookups.WithLabelValues(operation, "error").Inc()
			logger.Warn().Err(err).Str("key", key).Msg("cache read failed")
			return nil, false
		}
		metrics.CacheLookups.WithLabelValues(operation, "miss").Inc()
		logger.Debug().Str("key", key).Msg("cache miss")
		return nil, false
	}

	var value T
	if err := json.Unmarshal(data, &value); err != nil {
		metrics.CacheLookups.WithLabelValues(operation, "error").Inc()
		logger.Warn().Err(err).Str("key", key).Msg("dropping undecodable cache entry")
		_ = cache.Delete(ctx, key)
		return nil, false
	}

	metrics.CacheLookups.WithLabelValues(operation, "hit").Inc()
	logger.Debug().Str("key", key).Msg("cache hit")
	return &value, true
}

// setCached encodes and stores a value. Failures are logged, never returned.
func setCached(ctx context.Context, cache domain.ResultCache, key string, value interface{}, ttl time.Duration, logger zerolog.Logger) {
	data, err := json.Marshal(value)
	if err != nil {
		logger.Warn().Err(err).Str("key", key).Msg("cannot encode result for cache")
		return
	}
	if err := cache.Set(ctx, key, data, ttl); err != nil {
		logger.Warn().Err(err).Str("key", key).Msg("cache write failed")
	}
}

// resolveLimit applies the default for an omitted limit and caps it
func resolveLimit(requested, def, max int) int {
	if requested <= 0 {
		return def
	}
	if requested > max {
		return max
	}
	return requested
}
