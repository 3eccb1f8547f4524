// Package handler はプラットフォームレベルのエンドポイント用HTTPハンドラーを提供します。
package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// ReadinessFunc は依存コンポーネント（分類モデルなど）が利用可能かを返します。
type ReadinessFunc func() bool

// Health はサービスヘルスチェック用の /healthz エンドポイントを処理します。
// HTTPメソッドに応じて適切にレスポンスし、キャッシュを防止します。
// モデルが未ロードの場合は503を返します。
func Health(modelReady ReadinessFunc) gin.HandlerFunc {
	return func(c *gin.Context) {
		// 明示的にキャッシュを防止
		c.Header("Cache-Control", "no-store")

		ready := modelReady == nil || modelReady()
		status := http.StatusOK
		if !ready {
			status = http.StatusServiceUnavailable
		}

		switch c.Request.Method {
		case http.MethodHead:
			c.Status(status)
		case http.MethodOptions:
			c.Status(http.StatusNoContent)
		default:
			body := gin.H{"status": "ok", "model": "loaded"}
			if !ready {
				body = gin.H{"status": "unavailable", "model": "not loaded"}
			}
			c.JSON(status, body)
		}
	}
}
