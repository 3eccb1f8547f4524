package modelstore

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"

	"tumor_backend/internal/feature/tumordetection/domain"
	"tumor_backend/internal/feature/tumordetection/domain/entity"
	"tumor_backend/internal/feature/tumordetection/usecase"
)

// Manifest はモデルファイルと一緒に配布されるメタデータです。
// クラスの順序はモデル学習時の出力インデックスと一致します。
type Manifest struct {
	InputShape  []int64  `json:"input_shape"`
	OutputShape []int64  `json:"output_shape"`
	Classes     []string `json:"classes"`
	ImageSize   int      `json:"image_size"`
	InputName   string   `json:"input_name,omitempty"`
	OutputName  string   `json:"output_name,omitempty"`
}

// DefaultManifest は同梱モデル（128×128 RGB, 4クラス）のメタデータを返します。
func DefaultManifest() *Manifest {
	labels := entity.DefaultLabels()
	return &Manifest{
		InputShape:  []int64{1, usecase.DefaultImageSize, usecase.DefaultImageSize, usecase.Channels},
		OutputShape: []int64{1, int64(labels.Len())},
		Classes:     labels,
		ImageSize:   usecase.DefaultImageSize,
		InputName:   "input",
		OutputName:  "output",
	}
}

// Labels はマニフェストのクラス順序をLabelSetとして返します。
func (m *Manifest) Labels() entity.LabelSet {
	return entity.LabelSet(m.Classes)
}

// LoadManifest はサイドカーJSONを読み込みます。ファイルが無い場合はデフォルトを返します。
// 省略されたフィールドはデフォルトで補完し、形状とクラス数の整合性を検証します。
func LoadManifest(path string) (*Manifest, error) {
	b, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return DefaultManifest(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: read manifest: %w", domain.ErrModel, err)
	}

	var m Manifest
	if err := json.Unmarshal(b, &m); err != nil {
		return nil, fmt.Errorf("%w: parse manifest: %w", domain.ErrModel, err)
	}
	m.fillDefaults()
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return &m, nil
}

func (m *Manifest) fillDefaults() {
	def := DefaultManifest()
	if len(m.Classes) == 0 {
		m.Classes = def.Classes
	}
	if m.ImageSize <= 0 {
		m.ImageSize = def.ImageSize
	}
	if len(m.InputShape) == 0 {
		m.InputShape = []int64{1, int64(m.ImageSize), int64(m.ImageSize), usecase.Channels}
	}
	if len(m.OutputShape) == 0 {
		m.OutputShape = []int64{1, int64(len(m.Classes))}
	}
	if m.InputName == "" {
		m.InputName = def.InputName
	}
	if m.OutputName == "" {
		m.OutputName = def.OutputName
	}
}

// Validate は入力形状が (1, size, size, 3) であり、出力の要素数がクラス数と一致するかを検証します。
func (m *Manifest) Validate() error {
	want := []int64{1, int64(m.ImageSize), int64(m.ImageSize), usecase.Channels}
	if len(m.InputShape) != len(want) {
		return fmt.Errorf("%w: input shape %v, expected %v", domain.ErrModel, m.InputShape, want)
	}
	for i := range want {
		if m.InputShape[i] != want[i] {
			return fmt.Errorf("%w: input shape %v, expected %v", domain.ErrModel, m.InputShape, want)
		}
	}

	var n int64 = 1
	for _, d := range m.OutputShape {
		n *= d
	}
	if n != int64(len(m.Classes)) {
		return fmt.Errorf("%w: output shape %v does not match %d classes", domain.ErrModel, m.OutputShape, len(m.Classes))
	}

	seen := make(map[string]struct{}, len(m.Classes))
	for _, c := range m.Classes {
		if c == "" {
			return fmt.Errorf("%w: empty class name", domain.ErrModel)
		}
		if _, ok := seen[c]; ok {
			return fmt.Errorf("%w: duplicate class %q", domain.ErrModel, c)
		}
		seen[c] = struct{}{}
	}
	return nil
}

// Digest はモデルファイルのSHA-256を16進文字列で返します。キャッシュキーのモデル版として使います。
func Digest(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("%w: open model: %w", domain.ErrModel, err)
	}
	defer func() { _ = f.Close() }()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("%w: hash model: %w", domain.ErrModel, err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
