package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	redisv9 "github.com/redis/go-redis/v9"

	"tumor_backend/internal/app/di"
	"tumor_backend/internal/app/router"
	"tumor_backend/internal/feature/tumordetection/adapters/onnx"
	"tumor_backend/internal/platform/db"
	"tumor_backend/internal/platform/logger"
	infraredis "tumor_backend/internal/platform/redis"
)

func main() {
	// .envを読み込む
	if err := godotenv.Load(".env"); err != nil {
		log.Println("[INFO] .env not found; using system environment variables")
	}
	logger.Init()

	ctx := context.Background()

	// モデル（無ければ一度だけダウンロード。失敗したら起動しない）
	model, err := di.LoadModel(ctx, di.NewModelProvider())
	if err != nil {
		log.Fatalf("failed to load model: %v", err)
	}
	defer func() {
		if err := model.Close(); err != nil {
			slog.Error("failed to close model", "error", err)
		}
		if err := onnx.Shutdown(); err != nil {
			slog.Error("failed to destroy ONNX environment", "error", err)
		}
	}()

	// db
	gdb, err := db.OpenDB(db.LoadConfigFromEnv())
	if err != nil {
		log.Fatalf("failed to open database: %v", err)
	}

	// Redis
	var rdb *redisv9.Client
	if tmp, err := infraredis.NewRedisClient(ctx); err != nil {
		log.Println("[WARN] Redis unavailable. Running without cache.")
	} else if tmp != nil {
		rdb = tmp
		defer func() {
			if err := rdb.Close(); err != nil {
				log.Println("[ERROR] Failed to close Redis client:", err)
			}
		}()
	}

	// Redisキャッシュでラップ
	predictor := di.NewPredictor(rdb, model.Pipeline, model.Digest)

	// Handler
	tumorH, err := di.NewTumorDetectionHandler(gdb, predictor, di.UploadDir())
	if err != nil {
		log.Fatalf("failed to prepare upload storage: %v", err)
	}

	// ルータ生成
	r, err := router.NewRouter(tumorH, model.Classifier.Ready)
	if err != nil {
		log.Fatalf("failed to load templates: %v", err)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	server := &http.Server{
		Addr:              ":" + port,
		Handler:           r,
		ReadHeaderTimeout: 15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		slog.Info("Starting HTTP server", "port", port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Failed to start server", "error", err)
			os.Exit(1)
		}
	}()

	waitForShutdown(server)
}

func waitForShutdown(server *http.Server) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	<-quit
	slog.Info("Shutdown signal received")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		slog.Error("Server forced to shutdown", "error", err)
		return
	}
	slog.Info("Server gracefully stopped")
}
