package cache

import (
	"testing"
	"time"
)

// TestTTLFromEnv はPREDICTION_CACHE_TTLの読み込みとフォールバックを検証します。
func TestTTLFromEnv(t *testing.T) {
	tests := []struct {
		name     string
		value    string
		expected time.Duration
	}{
		{"unset uses default", "", DefaultPredictionTTL},
		{"valid duration", "90m", 90 * time.Minute},
		{"invalid duration uses default", "tomorrow", DefaultPredictionTTL},
		{"negative duration uses default", "-1h", DefaultPredictionTTL},
		{"zero uses default", "0s", DefaultPredictionTTL},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("PREDICTION_CACHE_TTL", tt.value)

			if got := TTLFromEnv(); got != tt.expected {
				t.Errorf("expected %v, got %v", tt.expected, got)
			}
		})
	}
}
