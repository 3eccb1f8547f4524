package cache

import (
	"os"
	"time"
)

// DefaultPredictionTTL は予測結果キャッシュの既定の保持期間です。
const DefaultPredictionTTL = 24 * time.Hour

// TTLFromEnv は PREDICTION_CACHE_TTL（例: "12h"）を読み込みます。未設定・不正値の場合は既定値を返します。
func TTLFromEnv() time.Duration {
	v := os.Getenv("PREDICTION_CACHE_TTL")
	if v == "" {
		return DefaultPredictionTTL
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		return DefaultPredictionTTL
	}
	return d
}
