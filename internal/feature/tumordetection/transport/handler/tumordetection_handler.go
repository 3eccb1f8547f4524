// Package handler はtumordetectionフィーチャーのHTTPハンドラーを提供します。
package handler

import (
	"context"
	"errors"
	"fmt"
	"html/template"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"tumor_backend/internal/api"
	"tumor_backend/internal/feature/tumordetection/domain"
	"tumor_backend/internal/feature/tumordetection/domain/entity"
	"tumor_backend/internal/feature/tumordetection/usecase"
)

const (
	// FormField はアップロードファイルのフォームフィールド名です。
	FormField = "file"
	// UploadsRoute は保存済みファイルを配信するパスの接頭辞です。
	UploadsRoute = "/Uploads"
	// IndexTemplate はトップページのテンプレート名です。
	IndexTemplate = "index.html"
)

// 利用者に返すメッセージ
const (
	msgFileRequired  = "画像ファイルが必要です"
	msgReadFailed    = "画像の読み込みに失敗しました"
	msgRejected      = "画像として読み込めませんでした。JPEGまたはPNGの画像をアップロードしてください"
	msgTooLarge      = "画像サイズが大きすぎます（最大10MB）"
	msgModelError    = "推論モデルでエラーが発生しました。管理者に連絡してください"
	msgStorageError  = "画像の保存に失敗しました"
	msgUploadMissing = "ファイルが見つかりません"
	msgUnexpected    = "画像の処理中にエラーが発生しました。もう一度お試しください"
)

// TumorDetectionUsecase は腫瘍分類のユースケースインターフェースを定義します。
// Goの慣例に従い、インターフェースは利用者（handler）側で定義します。
type TumorDetectionUsecase interface {
	Analyze(ctx context.Context, img entity.RawImage) (*entity.Analysis, error)
	OpenUpload(ctx context.Context, key string) (*entity.Upload, io.ReadCloser, error)
}

// TumorDetectionHandler は画像アップロードと推論結果表示のHTTPリクエストを処理します。
type TumorDetectionHandler struct {
	uc TumorDetectionUsecase
}

// NewTumorDetectionHandler はTumorDetectionHandlerの新しいインスタンスを生成します。
func NewTumorDetectionHandler(uc TumorDetectionUsecase) *TumorDetectionHandler {
	return &TumorDetectionHandler{uc: uc}
}

// indexView はトップページのテンプレートに渡す値です。
type indexView struct {
	Error          string
	Result         string
	IsTumor        bool
	Confidence     string
	FilePath       string
	OriginalName   string
	Probabilities  []probabilityView
	ReportHref     template.URL
	ReportFileName string
}

type probabilityView struct {
	Label   string
	Percent string
	Winner  bool
}

// Index はアップロードフォームを表示します。
//
// エンドポイント: GET /
func (h *TumorDetectionHandler) Index(c *gin.Context) {
	c.HTML(http.StatusOK, IndexTemplate, indexView{})
}

// Upload はフォームからアップロードされた画像を分類し、結果をHTMLで表示します。
//
// エンドポイント: POST /
// Content-Type: multipart/form-data
// フィールド: file（画像ファイル、最大10MB）
func (h *TumorDetectionHandler) Upload(c *gin.Context) {
	img, status, msg := readUpload(c)
	if status != 0 {
		c.HTML(status, IndexTemplate, indexView{Error: msg})
		return
	}

	analysis, err := h.uc.Analyze(c.Request.Context(), img)
	if err != nil {
		status, msg := errorStatus(err)
		logAnalyzeError(c, err)
		c.HTML(status, IndexTemplate, indexView{Error: msg})
		return
	}

	p := analysis.Prediction
	view := indexView{
		Result:         p.Text,
		IsTumor:        p.IsTumor(),
		Confidence:     usecase.FormatPercent(p.Confidence),
		FilePath:       fileURL(analysis.Upload.StorageKey),
		OriginalName:   analysis.Upload.OriginalName,
		ReportHref:     reportHref(usecase.Report(p)),
		ReportFileName: usecase.ReportFileName,
	}
	for _, lp := range p.Probabilities {
		view.Probabilities = append(view.Probabilities, probabilityView{
			Label:   capitalize(lp.Label),
			Percent: usecase.FormatPercent(lp.Probability),
			Winner:  lp.Label == p.Label,
		})
	}
	c.HTML(http.StatusOK, IndexTemplate, view)
}

// Predict は画像をアップロードして分類結果をJSONで返します。
// クエリ format=txt の場合はダウンロード用テキストを添付ファイルとして返します。
//
// エンドポイント: POST /v1/tumor/predict
// Content-Type: multipart/form-data
// フィールド: file（画像ファイル、最大10MB）
func (h *TumorDetectionHandler) Predict(c *gin.Context) {
	img, status, msg := readUpload(c)
	if status != 0 {
		c.JSON(status, api.ErrorResponse{Error: msg})
		return
	}

	analysis, err := h.uc.Analyze(c.Request.Context(), img)
	if err != nil {
		status, msg := errorStatus(err)
		logAnalyzeError(c, err)
		c.JSON(status, api.ErrorResponse{Error: msg})
		return
	}

	p := analysis.Prediction
	if strings.EqualFold(c.Query("format"), "txt") {
		c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, usecase.ReportFileName))
		c.Data(http.StatusOK, "text/plain; charset=utf-8", []byte(usecase.Report(p)))
		return
	}

	out := api.PredictionResponse{
		UploadID:       analysis.Upload.StorageKey,
		FileURL:        fileURL(analysis.Upload.StorageKey),
		Result:         p.Text,
		Label:          p.Label,
		Confidence:     p.Confidence,
		ConfidenceText: usecase.FormatPercent(p.Confidence),
		Probabilities:  make([]api.ClassProbabilityResponse, 0, len(p.Probabilities)),
	}
	for _, lp := range p.Probabilities {
		out.Probabilities = append(out.Probabilities, api.ClassProbabilityResponse{
			Label:       lp.Label,
			Probability: lp.Probability,
		})
	}
	c.JSON(http.StatusOK, out)
}

// ServeUpload は保存済みのアップロードファイルをそのまま返します。
//
// エンドポイント: GET /Uploads/:filename
func (h *TumorDetectionHandler) ServeUpload(c *gin.Context) {
	key := c.Param("filename")

	upload, rc, err := h.uc.OpenUpload(c.Request.Context(), key)
	if err != nil {
		if errors.Is(err, domain.ErrUploadNotFound) {
			c.JSON(http.StatusNotFound, api.ErrorResponse{Error: msgUploadMissing})
			return
		}
		slog.Error("アップロードファイルの読み込みに失敗", "error", err, "key", key)
		c.JSON(http.StatusInternalServerError, api.ErrorResponse{Error: msgReadFailed})
		return
	}
	defer func() {
		if err := rc.Close(); err != nil {
			slog.Warn("アップロードファイルのクローズに失敗", "error", err)
		}
	}()

	c.Header("X-Content-Type-Options", "nosniff")
	c.DataFromReader(http.StatusOK, upload.Size, upload.ContentType, rc, nil)
}

// readUpload はフォームの file フィールドを読み込みます。失敗時は0以外のステータスを返します。
func readUpload(c *gin.Context) (entity.RawImage, int, string) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, usecase.MaxImageSize+1<<20)

	file, err := c.FormFile(FormField)
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return entity.RawImage{}, http.StatusRequestEntityTooLarge, msgTooLarge
		}
		slog.Warn("画像ファイルの取得に失敗", "error", err, "remote_addr", c.ClientIP())
		return entity.RawImage{}, http.StatusBadRequest, msgFileRequired
	}

	data, err := readFileHeader(file)
	if err != nil {
		slog.Error("画像データの読み取りに失敗", "error", err)
		return entity.RawImage{}, http.StatusInternalServerError, msgReadFailed
	}

	return entity.RawImage{
		Filename:    file.Filename,
		ContentType: file.Header.Get("Content-Type"),
		Data:        data,
	}, 0, ""
}

func readFileHeader(fh *multipart.FileHeader) ([]byte, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := f.Close(); err != nil {
			slog.Warn("画像ファイルのクローズに失敗", "error", err)
		}
	}()
	return io.ReadAll(io.LimitReader(f, usecase.MaxImageSize+1))
}

// errorStatus はユースケースのエラーをHTTPステータスと利用者向けメッセージに変換します。
// 入力不正（400系）とモデル故障（500）を区別します。
func errorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, domain.ErrEmptyImage):
		return http.StatusBadRequest, msgFileRequired
	case errors.Is(err, domain.ErrImageTooLarge):
		return http.StatusRequestEntityTooLarge, msgTooLarge
	case errors.Is(err, domain.ErrDecode):
		return http.StatusBadRequest, msgRejected
	case errors.Is(err, domain.ErrModel):
		return http.StatusInternalServerError, msgModelError
	case errors.Is(err, domain.ErrStorage):
		return http.StatusInternalServerError, msgStorageError
	default:
		return http.StatusInternalServerError, msgUnexpected
	}
}

func logAnalyzeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, domain.ErrDecode), errors.Is(err, domain.ErrEmptyImage), errors.Is(err, domain.ErrImageTooLarge):
		slog.Warn("アップロード画像を拒否", "error", err, "remote_addr", c.ClientIP())
	case errors.Is(err, domain.ErrModel):
		slog.Error("分類モデルのエラー", "error", err)
	default:
		slog.Error("画像の分析に失敗", "error", err)
	}
}

func fileURL(key string) string {
	return UploadsRoute + "/" + key
}

// capitalize は表示用に先頭の1文字だけを大文字にします。
func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
