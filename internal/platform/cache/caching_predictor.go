// Package cache provides caching implementations for usecase interfaces.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"tumor_backend/internal/feature/tumordetection/domain/entity"
	"tumor_backend/internal/feature/tumordetection/usecase"
)

// CachingPredictor decorates a Predictor with Redis caching.
// Predictions are deterministic for a given model and image, so the key is
// the model digest plus the SHA-256 of the image bytes.
type CachingPredictor struct {
	inner     usecase.Predictor
	rdb       *redis.Client
	ttl       time.Duration
	namespace string
	model     string
}

var _ usecase.Predictor = (*CachingPredictor)(nil)

// NewCachingPredictor decorates a Predictor with Redis caching.
// If ttl is 0, it defaults to 24 hours. If namespace is empty, it uses "predictions".
func NewCachingPredictor(rdb *redis.Client, ttl time.Duration, inner usecase.Predictor, namespace, modelDigest string) *CachingPredictor {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	if namespace == "" {
		namespace = "predictions"
	}
	return &CachingPredictor{
		inner:     inner,
		rdb:       rdb,
		ttl:       ttl,
		namespace: namespace,
		model:     modelDigest,
	}
}

// PredictBytes returns a cached prediction when available, otherwise runs the inner predictor.
// Errors are never cached.
func (c *CachingPredictor) PredictBytes(ctx context.Context, data []byte) (*entity.PredictionResult, error) {
	// Bypass cache if Redis is not configured
	if c.rdb == nil {
		return c.inner.PredictBytes(ctx, data)
	}

	key := c.cacheKey(data)

	// 1) Check cache
	if b, err := c.rdb.Get(ctx, key).Bytes(); err == nil && len(b) > 0 {
		var out entity.PredictionResult
		if err := json.Unmarshal(b, &out); err == nil {
			return &out, nil
		}
		// Delete corrupted cache entry
		_ = c.rdb.Del(ctx, key).Err()
	}

	// 2) Fallback to the pipeline
	out, err := c.inner.PredictBytes(ctx, data)
	if err != nil {
		return nil, err
	}

	// 3) Store in cache (best effort)
	if b, err := json.Marshal(out); err == nil {
		if err := c.rdb.Set(ctx, key, b, c.ttl).Err(); err != nil {
			slog.Warn("予測結果のキャッシュ保存に失敗", "key", key, "error", err)
		}
	}

	return out, nil
}

// cacheKey generates a cache key for an image under the current model.
func (c *CachingPredictor) cacheKey(data []byte) string {
	sum := sha256.Sum256(data)
	return fmt.Sprintf("%s:%s:%s", c.namespace, safe(c.model), hex.EncodeToString(sum[:]))
}

// safe escapes characters that are problematic for Redis keys.
func safe(s string) string {
	s = strings.ReplaceAll(s, " ", "_")
	s = strings.ReplaceAll(s, ":", "_")
	return s
}
