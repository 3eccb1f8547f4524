package di

import (
	"os"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"tumor_backend/internal/feature/tumordetection/adapters"
	"tumor_backend/internal/feature/tumordetection/adapters/storage"
	"tumor_backend/internal/feature/tumordetection/transport/handler"
	"tumor_backend/internal/feature/tumordetection/usecase"
	"tumor_backend/internal/platform/cache"
)

// NewPredictor returns the pipeline wrapped with a Redis prediction cache.
// If Redis is unavailable, the pipeline is used directly.
func NewPredictor(rdb *redis.Client, p usecase.Predictor, modelDigest string) usecase.Predictor {
	if rdb == nil {
		return p
	}
	return cache.NewCachingPredictor(rdb, cache.TTLFromEnv(), p, "predictions", modelDigest)
}

// UploadDir returns the upload directory from UPLOAD_DIR, defaulting to "Uploads".
func UploadDir() string {
	if v := os.Getenv("UPLOAD_DIR"); v != "" {
		return v
	}
	return storage.DefaultDir
}

// NewTumorDetectionHandler wires the upload store, upload records and usecase into a handler.
func NewTumorDetectionHandler(db *gorm.DB, predictor usecase.Predictor, uploadDir string) (*handler.TumorDetectionHandler, error) {
	store, err := storage.NewLocalStore(uploadDir)
	if err != nil {
		return nil, err
	}
	uploads := adapters.NewUploadRepository(db)
	uc := usecase.NewTumorDetectionUsecase(predictor, store, uploads)
	return handler.NewTumorDetectionHandler(uc), nil
}
