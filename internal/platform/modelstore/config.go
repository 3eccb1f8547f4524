// Package modelstore は分類モデルのローカル配置とリモートからの一回限りの取得を提供します。
package modelstore

import (
	"os"
	"time"
)

// Config はモデル取得の設定を保持します。
type Config struct {
	ModelPath    string        // ローカルのモデルファイル（例: "Models/model.onnx"）
	ManifestPath string        // ラベル順序などを記したサイドカーJSON
	ModelID      string        // リモート成果物ストアでのコンテンツ識別子
	BaseURL      string        // ダウンロードURL（例: "https://drive.google.com/uc"）
	Timeout      time.Duration // ダウンロード全体のタイムアウト
}

const (
	DefaultModelPath    = "Models/model.onnx"
	DefaultManifestPath = "Models/model_metadata.json"
	DefaultBaseURL      = "https://drive.google.com/uc"
	DefaultTimeout      = 10 * time.Minute
)

// LoadConfig は環境変数からモデル取得の設定を読み込みます。
func LoadConfig() Config {
	timeout := DefaultTimeout
	if v := os.Getenv("MODEL_DOWNLOAD_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			timeout = d
		}
	}
	return Config{
		ModelPath:    getEnv("MODEL_PATH", DefaultModelPath),
		ManifestPath: getEnv("MODEL_MANIFEST_PATH", DefaultManifestPath),
		ModelID:      os.Getenv("MODEL_ID"),
		BaseURL:      getEnv("MODEL_BASE_URL", DefaultBaseURL),
		Timeout:      timeout,
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
