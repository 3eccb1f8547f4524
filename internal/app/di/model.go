// Package di provides dependency injection factories for creating application components.
package di

import (
	"context"
	"fmt"
	"log/slog"

	"tumor_backend/internal/feature/tumordetection/adapters/onnx"
	"tumor_backend/internal/feature/tumordetection/usecase"
	infrahttp "tumor_backend/internal/platform/http"
	"tumor_backend/internal/platform/modelstore"
)

// Model bundles the loaded classifier with the pipeline built on it.
type Model struct {
	Pipeline   *usecase.Pipeline
	Classifier *onnx.Classifier
	Manifest   *modelstore.Manifest
	Path       string
	Digest     string
}

// Close releases the ONNX session.
func (m *Model) Close() error {
	return m.Classifier.Close()
}

// NewModelProvider creates a Provider configured from the environment.
func NewModelProvider() *modelstore.Provider {
	cfg := modelstore.LoadConfig()
	httpClient := infrahttp.NewHTTPClient(cfg.Timeout)
	return modelstore.NewProvider(cfg, httpClient)
}

// LoadModel makes sure the model file is present (downloading it once if needed),
// reads its manifest and builds the inference pipeline.
func LoadModel(ctx context.Context, provider *modelstore.Provider) (*Model, error) {
	cfg := provider.Config()

	path, err := provider.Ensure(ctx)
	if err != nil {
		return nil, err
	}

	manifest, err := modelstore.LoadManifest(cfg.ManifestPath)
	if err != nil {
		return nil, err
	}

	digest, err := modelstore.Digest(path)
	if err != nil {
		return nil, err
	}

	classifier, err := onnx.NewClassifier(path, manifest)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", path, err)
	}

	slog.Info("model loaded",
		"path", path,
		"digest", digest,
		"classes", manifest.Classes,
		"image_size", manifest.ImageSize,
	)

	return &Model{
		Pipeline:   usecase.NewPipeline(classifier, manifest.Labels(), manifest.ImageSize),
		Classifier: classifier,
		Manifest:   manifest,
		Path:       path,
		Digest:     digest,
	}, nil
}
