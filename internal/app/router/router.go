package router

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	tumorhandler "tumor_backend/internal/feature/tumordetection/transport/handler"
	"tumor_backend/internal/platform/http/handler"
)

// maxMultipartMemory はmultipartフォームをメモリに保持する上限です（超過分は一時ファイル）。
const maxMultipartMemory = 16 << 20

func NewRouter(tumor *tumorhandler.TumorDetectionHandler, modelReady handler.ReadinessFunc) (*gin.Engine, error) {
	tmpl, err := tumorhandler.LoadTemplates()
	if err != nil {
		return nil, err
	}

	r := gin.Default()
	r.MaxMultipartMemory = maxMultipartMemory
	r.SetHTMLTemplate(tmpl)
	r.Use(cors.Default())

	// 導通確認用（モデルの読み込み状態も返す）
	r.GET("/healthz", handler.Health(modelReady))
	r.HEAD("/healthz", handler.Health(modelReady))

	// 画面: アップロードフォームと判定結果
	r.GET("/", tumor.Index)
	r.POST("/", tumor.Upload)

	// 保存済み画像の配信
	r.GET(tumorhandler.UploadsRoute+"/:filename", tumor.ServeUpload)

	// JSON API
	v1 := r.Group("/v1")
	{
		v1.POST("/tumor/predict", tumor.Predict)
	}

	return r, nil
}
