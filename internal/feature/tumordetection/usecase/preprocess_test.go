package usecase_test

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tumor_backend/internal/feature/tumordetection/domain"
	"tumor_backend/internal/feature/tumordetection/usecase"
)

func TestPreprocess_ShapeAndRange(t *testing.T) {
	testCases := []struct {
		name string
		data func(t *testing.T) []byte
	}{
		{name: "1x1 png", data: func(t *testing.T) []byte { return encodePNG(t, uniformImage(1, 1, color.White)) }},
		{name: "square png", data: func(t *testing.T) []byte { return encodePNG(t, gradientImage(128, 128)) }},
		{name: "wide png", data: func(t *testing.T) []byte { return encodePNG(t, gradientImage(300, 50)) }},
		{name: "large jpeg", data: func(t *testing.T) []byte { return encodeJPEG(t, gradientImage(640, 480)) }},
		{name: "grayscale png", data: func(t *testing.T) []byte {
			img := image.NewGray(image.Rect(0, 0, 64, 96))
			for i := range img.Pix {
				img.Pix[i] = uint8(i % 256)
			}
			return encodePNG(t, img)
		}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			out, err := usecase.Preprocess(bytes.NewReader(tc.data(t)), usecase.DefaultImageSize)
			require.NoError(t, err)

			assert.True(t, out.Shape().Eq(usecase.InputShape(usecase.DefaultImageSize)), "shape = %v", out.Shape())
			data, ok := out.Data().([]float32)
			require.True(t, ok)
			require.Len(t, data, 128*128*3)
			for i, v := range data {
				if v < 0 || v > 1 {
					t.Fatalf("value %v at %d out of [0,1]", v, i)
				}
			}
		})
	}
}

func TestPreprocess_ChannelOrderAndScale(t *testing.T) {
	testCases := []struct {
		name     string
		color    color.Color
		expected [3]float32
	}{
		{name: "white", color: color.White, expected: [3]float32{1, 1, 1}},
		{name: "black", color: color.Black, expected: [3]float32{0, 0, 0}},
		{name: "red", color: color.NRGBA{R: 255, A: 255}, expected: [3]float32{1, 0, 0}},
		{name: "blue", color: color.NRGBA{B: 255, A: 255}, expected: [3]float32{0, 0, 1}},
		{name: "mid gray", color: color.NRGBA{R: 51, G: 102, B: 204, A: 255}, expected: [3]float32{0.2, 0.4, 0.8}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			out, err := usecase.PreprocessImage(uniformImage(40, 20, tc.color), usecase.DefaultImageSize)
			require.NoError(t, err)

			data := out.Data().([]float32)
			// 先頭と末尾の画素で確認（NHWC）
			for _, base := range []int{0, len(data) - 3} {
				assert.InDelta(t, tc.expected[0], data[base], 1e-6)
				assert.InDelta(t, tc.expected[1], data[base+1], 1e-6)
				assert.InDelta(t, tc.expected[2], data[base+2], 1e-6)
			}
		})
	}
}

func TestPreprocess_Deterministic(t *testing.T) {
	raw := encodeJPEG(t, gradientImage(200, 150))

	a, err := usecase.Preprocess(bytes.NewReader(raw), usecase.DefaultImageSize)
	require.NoError(t, err)
	b, err := usecase.Preprocess(bytes.NewReader(raw), usecase.DefaultImageSize)
	require.NoError(t, err)

	assert.Equal(t, a.Data(), b.Data())
}

func TestPreprocess_CustomSize(t *testing.T) {
	out, err := usecase.Preprocess(bytes.NewReader(encodePNG(t, gradientImage(10, 10))), 224)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 224, 224, 3}, []int(out.Shape()))
}

func TestPreprocess_DecodeError(t *testing.T) {
	testCases := []struct {
		name string
		data []byte
	}{
		{name: "plain text", data: []byte("this is not an image")},
		{name: "empty", data: nil},
		{name: "truncated png", data: []byte("\x89PNG\r\n\x1a\n\x00\x00")},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			out, err := usecase.Preprocess(bytes.NewReader(tc.data), usecase.DefaultImageSize)
			assert.Nil(t, out)
			assert.True(t, errors.Is(err, domain.ErrDecode), "got %v", err)
		})
	}
}

func TestPreprocessImage_InvalidSize(t *testing.T) {
	_, err := usecase.PreprocessImage(uniformImage(2, 2, color.White), 0)
	require.Error(t, err)
	assert.False(t, errors.Is(err, domain.ErrDecode))
	assert.True(t, strings.Contains(err.Error(), "invalid target size"))
}

// stripeImage は偶数列が黒、奇数列が白の縦縞画像を生成します。
func stripeImage(w, h int) *image.Gray {
	img := image.NewGray(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 1; x < w; x += 2 {
			img.SetGray(x, y, color.Gray{Y: 255})
		}
	}
	return img
}

// TestPreprocess_NearestNeighborPicksSinglePixel は縮小時に近傍画素を平均せず、
// 出力画素の中心に対応する入力画素を1つだけ採ることを確認します。
func TestPreprocess_NearestNeighborPicksSinglePixel(t *testing.T) {
	raw := encodePNG(t, stripeImage(256, 256))

	out, err := usecase.Preprocess(bytes.NewReader(raw), usecase.DefaultImageSize)
	require.NoError(t, err)

	// 256→128 では出力列xの中心は入力列 2x+1（白）に対応する
	for i, v := range out.Data().([]float32) {
		if v != 1 {
			t.Fatalf("value %v at %d, expected 1 (no blending)", v, i)
		}
	}
}

func TestCheckImage(t *testing.T) {
	small := encodePNG(t, gradientImage(4, 4))

	testCases := []struct {
		name    string
		data    []byte
		wantErr bool
		wantW   int
		wantH   int
		wantFmt string
	}{
		{name: "valid png", data: small, wantW: 4, wantH: 4, wantFmt: "png"},
		{name: "valid jpeg", data: encodeJPEG(t, gradientImage(30, 20)), wantW: 30, wantH: 20, wantFmt: "jpeg"},
		{name: "at pixel limit", data: withDimensions(t, small, 10000, 5000), wantW: 10000, wantH: 5000, wantFmt: "png"},
		{name: "header declares 40000x40000", data: withDimensions(t, small, 40000, 40000), wantErr: true},
		{name: "header declares one long row", data: withDimensions(t, small, 50_000_001, 1), wantErr: true},
		{name: "html", data: []byte("<html><body>hi</body></html>"), wantErr: true},
		{name: "empty", data: nil, wantErr: true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			cfg, format, err := usecase.CheckImage(tc.data)
			if tc.wantErr {
				assert.True(t, errors.Is(err, domain.ErrDecode), "got %v", err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.wantW, cfg.Width)
			assert.Equal(t, tc.wantH, cfg.Height)
			assert.Equal(t, tc.wantFmt, format)
		})
	}
}

func TestPreprocess_RejectsOversizedDimensions(t *testing.T) {
	raw := withDimensions(t, encodePNG(t, gradientImage(4, 4)), 40000, 40000)

	out, err := usecase.Preprocess(bytes.NewReader(raw), usecase.DefaultImageSize)
	assert.Nil(t, out)
	assert.True(t, errors.Is(err, domain.ErrDecode), "got %v", err)
	assert.Contains(t, err.Error(), "image too large")
}
