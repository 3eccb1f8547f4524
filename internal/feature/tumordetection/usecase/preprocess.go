package usecase

import (
	"bytes"
	"image"
	_ "image/gif"  // GIF decoder
	_ "image/jpeg" // JPEG decoder
	_ "image/png"  // PNG decoder
	"io"

	"github.com/pkg/errors"
	_ "golang.org/x/image/bmp" // BMP decoder
	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp" // WebP decoder
	"gorgonia.org/tensor"

	"tumor_backend/internal/feature/tumordetection/domain"
)

const (
	// DefaultImageSize は分類器の入力の一辺のピクセル数です。
	DefaultImageSize = 128
	// Channels はRGBのチャンネル数です。
	Channels = 3
	// MaxPixels はデコードを許可する画素数の上限（50MP）です。
	// 圧縮率の高い画像はバイト数が小さくても展開後のメモリが巨大になるため、ヘッダで判定します。
	MaxPixels = 50_000_000
)

// CheckImage はヘッダだけを読み、画像として認識できて画素数が上限以内かを確認します。
// 画素はデコードしません。問題があれば domain.ErrDecode を返します。
func CheckImage(data []byte) (image.Config, string, error) {
	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return image.Config{}, "", errors.Wrapf(domain.ErrDecode, "image header decoding failed: %v", err)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return image.Config{}, "", errors.Wrapf(domain.ErrDecode, "invalid image dimensions %dx%d", cfg.Width, cfg.Height)
	}
	if int64(cfg.Width)*int64(cfg.Height) > MaxPixels {
		return image.Config{}, "", errors.Wrapf(domain.ErrDecode, "image too large: %dx%d pixels (limit %d)", cfg.Width, cfg.Height, MaxPixels)
	}
	return cfg, format, nil
}

// Preprocess は画像をデコードし、size×sizeのNHWCテンソル (1, size, size, 3) に変換します。
// 画素値は [0, 1] に正規化されます。デコードできない入力は domain.ErrDecode を返します。
func Preprocess(r io.Reader, size int) (*tensor.Dense, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.Wrap(err, "read image")
	}
	if _, _, err := CheckImage(data); err != nil {
		return nil, err
	}
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, errors.Wrapf(domain.ErrDecode, "image decoding failed: %v", err)
	}
	return PreprocessImage(img, size)
}

// PreprocessImage はデコード済みの画像をテンソルに変換します。
// アスペクト比は維持せず、切り抜きもせずに size×size へリサイズします。
func PreprocessImage(img image.Image, size int) (*tensor.Dense, error) {
	if size <= 0 {
		return nil, errors.Errorf("invalid target size: %d", size)
	}
	if img == nil || img.Bounds().Empty() {
		return nil, errors.Wrap(domain.ErrDecode, "image has no pixels")
	}

	// 最近傍補間: 各出力画素の中心に対応する入力画素を1つだけ採る（学習時の読み込みと同じ）
	dst := image.NewNRGBA(image.Rect(0, 0, size, size))
	draw.NearestNeighbor.Scale(dst, dst.Bounds(), img, img.Bounds(), draw.Src, nil)

	data := make([]float32, size*size*Channels)
	for p, i := 0, 0; p < len(dst.Pix); p += 4 {
		// 非乗算アルファのRGBのみ使い、アルファは捨てる
		data[i] = float32(dst.Pix[p]) / 255.0
		data[i+1] = float32(dst.Pix[p+1]) / 255.0
		data[i+2] = float32(dst.Pix[p+2]) / 255.0
		i += Channels
	}

	return tensor.New(
		tensor.WithShape(1, size, size, Channels),
		tensor.Of(tensor.Float32),
		tensor.WithBacking(data),
	), nil
}

// InputShape は size に対する分類器入力の形状を返します。
func InputShape(size int) tensor.Shape {
	return tensor.Shape{1, size, size, Channels}
}
