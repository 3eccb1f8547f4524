// Package onnx はONNX Runtimeで学習済みモデルを実行するClassifier実装を提供します。
package onnx

import (
	"context"
	"fmt"
	"os"
	"sync"

	ort "github.com/yalue/onnxruntime_go"
	"gorgonia.org/tensor"

	"tumor_backend/internal/feature/tumordetection/domain"
	"tumor_backend/internal/feature/tumordetection/domain/entity"
	"tumor_backend/internal/feature/tumordetection/usecase"
	"tumor_backend/internal/platform/modelstore"
)

// EnvSharedLibraryPath はonnxruntime共有ライブラリのパスを指定する環境変数です。
const EnvSharedLibraryPath = "ONNXRUNTIME_LIB"

// Classifier は入出力テンソルを事前確保したONNXセッションです。
// テンソルを共有するため、Classify はミューテックスで直列化します。
type Classifier struct {
	mu         sync.Mutex
	session    *ort.AdvancedSession
	input      *ort.Tensor[float32]
	output     *ort.Tensor[float32]
	inputShape tensor.Shape
	classes    int
	runErr     error // 直近の推論の失敗（成功すればnilに戻る）
}

// ClassifierがClassifierインターフェースを実装していることをコンパイル時に検証します。
var _ usecase.Classifier = (*Classifier)(nil)

// NewClassifier はモデルファイルとマニフェストからONNXセッションを生成します。
func NewClassifier(modelPath string, m *modelstore.Manifest) (*Classifier, error) {
	if err := m.Validate(); err != nil {
		return nil, err
	}

	if !ort.IsInitialized() {
		if lib := os.Getenv(EnvSharedLibraryPath); lib != "" {
			ort.SetSharedLibraryPath(lib)
		}
		if err := ort.InitializeEnvironment(); err != nil {
			return nil, fmt.Errorf("%w: failed to initialize ONNX environment: %w", domain.ErrModel, err)
		}
	}

	input, err := ort.NewEmptyTensor[float32](ort.NewShape(m.InputShape...))
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create input tensor: %w", domain.ErrModel, err)
	}
	output, err := ort.NewEmptyTensor[float32](ort.NewShape(m.OutputShape...))
	if err != nil {
		_ = input.Destroy()
		return nil, fmt.Errorf("%w: failed to create output tensor: %w", domain.ErrModel, err)
	}

	session, err := ort.NewAdvancedSession(modelPath,
		[]string{m.InputName}, []string{m.OutputName},
		[]ort.ArbitraryTensor{input}, []ort.ArbitraryTensor{output},
		nil)
	if err != nil {
		_ = input.Destroy()
		_ = output.Destroy()
		return nil, fmt.Errorf("%w: failed to create ONNX session: %w", domain.ErrModel, err)
	}

	shape := make(tensor.Shape, len(m.InputShape))
	for i, d := range m.InputShape {
		shape[i] = int(d)
	}

	return &Classifier{
		session:    session,
		input:      input,
		output:     output,
		inputShape: shape,
		classes:    len(m.Classes),
	}, nil
}

// Classify は1回の順伝播を行い、ラベル順の確率を返します。
func (c *Classifier) Classify(ctx context.Context, in *tensor.Dense) (entity.ClassProbabilities, error) {
	if in == nil || !in.Shape().Eq(c.inputShape) {
		return nil, fmt.Errorf("%w: input shape mismatch, expected %v", domain.ErrModel, c.inputShape)
	}
	data, ok := in.Data().([]float32)
	if !ok {
		return nil, fmt.Errorf("%w: input dtype %v, expected float32", domain.ErrModel, in.Dtype())
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.session == nil {
		return nil, fmt.Errorf("%w: session is closed", domain.ErrModel)
	}

	copy(c.input.GetData(), data)
	if err := c.session.Run(); err != nil {
		c.runErr = err
		return nil, fmt.Errorf("%w: inference failed: %w", domain.ErrModel, err)
	}
	c.runErr = nil

	out := c.output.GetData()
	if len(out) < c.classes {
		return nil, fmt.Errorf("%w: output has %d values for %d classes", domain.ErrModel, len(out), c.classes)
	}
	probs := make(entity.ClassProbabilities, c.classes)
	copy(probs, out[:c.classes])
	return probs, nil
}

// Ready はセッションが開いていて、直近の推論が失敗していないかを返します。
// 推論に失敗すると次に成功するまで false になり、/healthz は503を返します。
func (c *Classifier) Ready() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.session != nil && c.runErr == nil
}

// Close はセッションとテンソルを解放します。
func (c *Classifier) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.input != nil {
		_ = c.input.Destroy()
		c.input = nil
	}
	if c.output != nil {
		_ = c.output.Destroy()
		c.output = nil
	}
	if c.session != nil {
		_ = c.session.Destroy()
		c.session = nil
	}
	return nil
}

// Shutdown はONNX Runtimeの環境を破棄します。プロセス終了時に一度だけ呼び出します。
func Shutdown() error {
	if !ort.IsInitialized() {
		return nil
	}
	return ort.DestroyEnvironment()
}
