// Package usecase はtumordetectionフィーチャーのビジネスロジックを実装します。
package usecase

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/chewxy/math32"
	"gorgonia.org/tensor"

	"tumor_backend/internal/feature/tumordetection/domain"
	"tumor_backend/internal/feature/tumordetection/domain/entity"
)

// probabilitySumTolerance は確率の合計が1からずれてよい許容幅です。
const probabilitySumTolerance = 1e-3

// Classifier は正規化済みテンソルから確率分布を得る分類器のインターフェースです。
// Goの慣例に従い、インターフェースは利用者（usecase）側で定義します。
type Classifier interface {
	// Classify は1回の順伝播を行い、ラベル順の確率を返します。
	Classify(ctx context.Context, input *tensor.Dense) (entity.ClassProbabilities, error)
}

// Pipeline は前処理・分類・解釈を連結した推論パイプラインです。
// 分類器はプロセス起動時に一度だけ構築され、読み取り専用として共有されます。
type Pipeline struct {
	classifier Classifier
	labels     entity.LabelSet
	imageSize  int
}

// NewPipeline は分類器とラベル順序を受け取ってPipelineを生成します。
// imageSize が0以下の場合は DefaultImageSize を使用します。
func NewPipeline(c Classifier, labels entity.LabelSet, imageSize int) *Pipeline {
	if imageSize <= 0 {
		imageSize = DefaultImageSize
	}
	if labels.Len() == 0 {
		labels = entity.DefaultLabels()
	}
	return &Pipeline{classifier: c, labels: labels, imageSize: imageSize}
}

// Labels はパイプラインのラベル順序を返します。
func (p *Pipeline) Labels() entity.LabelSet {
	return p.labels
}

// Preprocess は画像をこのパイプラインの入力テンソルに変換します。
func (p *Pipeline) Preprocess(r io.Reader) (*tensor.Dense, error) {
	return Preprocess(r, p.imageSize)
}

// Classify は分類器を1回呼び出し、出力がラベル数と一致し非負であることを検証します。
func (p *Pipeline) Classify(ctx context.Context, input *tensor.Dense) (entity.ClassProbabilities, error) {
	if p.classifier == nil {
		return nil, fmt.Errorf("%w: classifier is not loaded", domain.ErrModel)
	}
	if input == nil || !input.Shape().Eq(InputShape(p.imageSize)) {
		var got tensor.Shape
		if input != nil {
			got = input.Shape()
		}
		return nil, fmt.Errorf("%w: input shape %v, expected %v", domain.ErrModel, got, InputShape(p.imageSize))
	}

	probs, err := p.classifier.Classify(ctx, input)
	if err != nil {
		if errors.Is(err, domain.ErrModel) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %w", domain.ErrModel, err)
	}
	if err := p.validate(probs); err != nil {
		return nil, err
	}
	return probs, nil
}

func (p *Pipeline) validate(probs entity.ClassProbabilities) error {
	if len(probs) != p.labels.Len() {
		return fmt.Errorf("%w: classifier returned %d scores for %d labels", domain.ErrModel, len(probs), p.labels.Len())
	}
	var sum float32
	for i, v := range probs {
		if math32.IsNaN(v) || math32.IsInf(v, 0) || v < 0 {
			return fmt.Errorf("%w: invalid score %v at index %d", domain.ErrModel, v, i)
		}
		sum += v
	}
	if math32.Abs(sum-1) > probabilitySumTolerance {
		// softmax層を持たないモデル（logits出力）はここで弾く
		return fmt.Errorf("%w: scores sum to %v, expected a probability distribution", domain.ErrModel, sum)
	}
	return nil
}

// Interpret は確率分布をこのパイプラインのラベルで解釈します。
func (p *Pipeline) Interpret(probs entity.ClassProbabilities) (*entity.PredictionResult, error) {
	return Interpret(p.labels, probs)
}

// Predict は preprocess → classify → interpret を連結して実行します。
// どの段階のエラーでも全体を中断します。
func (p *Pipeline) Predict(ctx context.Context, r io.Reader) (*entity.PredictionResult, error) {
	input, err := p.Preprocess(r)
	if err != nil {
		return nil, err
	}
	probs, err := p.Classify(ctx, input)
	if err != nil {
		return nil, err
	}
	return p.Interpret(probs)
}

// PredictBytes はメモリ上の画像データから推論します。
func (p *Pipeline) PredictBytes(ctx context.Context, data []byte) (*entity.PredictionResult, error) {
	return p.Predict(ctx, bytes.NewReader(data))
}

// PredictPath はディスク上の画像ファイルから推論します。
func (p *Pipeline) PredictPath(ctx context.Context, path string) (*entity.PredictionResult, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open image %q: %w", path, err)
	}
	defer func() { _ = f.Close() }()
	return p.Predict(ctx, f)
}
