// predict は1枚の画像を分類して結果を標準出力に表示します。
//
//	go run ./cmd/predict -image scan.jpg
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/joho/godotenv"

	"tumor_backend/internal/app/di"
	"tumor_backend/internal/feature/tumordetection/adapters/onnx"
	"tumor_backend/internal/feature/tumordetection/usecase"
	infrahttp "tumor_backend/internal/platform/http"
	"tumor_backend/internal/platform/logger"
	"tumor_backend/internal/platform/modelstore"
)

func main() {
	_ = godotenv.Load(".env")
	logger.Init()

	cfg := modelstore.LoadConfig()

	var imagePath string
	flag.StringVar(&imagePath, "image", "", "Path to MRI image file (.jpg, .jpeg, .png, .bmp, .webp)")
	flag.StringVar(&cfg.ModelPath, "model", cfg.ModelPath, "Path to ONNX model file")
	flag.StringVar(&cfg.ManifestPath, "manifest", cfg.ManifestPath, "Path to model metadata JSON")
	flag.Parse()

	if imagePath == "" {
		flag.Usage()
		os.Exit(2)
	}

	if err := run(context.Background(), cfg, imagePath); err != nil {
		log.Fatal(err)
	}
}

func run(ctx context.Context, cfg modelstore.Config, imagePath string) error {
	provider := modelstore.NewProvider(cfg, infrahttp.NewHTTPClient(cfg.Timeout))
	model, err := di.LoadModel(ctx, provider)
	if err != nil {
		return err
	}
	defer func() {
		_ = model.Close()
		_ = onnx.Shutdown()
	}()

	result, err := model.Pipeline.PredictPath(ctx, imagePath)
	if err != nil {
		return err
	}

	fmt.Println(usecase.Report(result))
	fmt.Println()
	for _, p := range result.Probabilities {
		fmt.Printf("  %-12s %s\n", p.Label, usecase.FormatPercent(p.Probability))
	}
	return nil
}
