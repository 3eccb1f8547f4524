package usecase

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"

	"tumor_backend/internal/feature/tumordetection/domain"
	"tumor_backend/internal/feature/tumordetection/domain/entity"
)

const (
	// MaxImageSize は画像アップロードの最大サイズ（10MB）です。
	MaxImageSize = 10 * 1024 * 1024
	// MaxOriginalNameLength は記録する元ファイル名の最大文字数（rune数）です。
	MaxOriginalNameLength = 255
)

// Predictor は画像データから推論結果を得るインターフェースです。
// Pipeline と、それをRedisでラップしたキャッシュ実装が満たします。
type Predictor interface {
	PredictBytes(ctx context.Context, data []byte) (*entity.PredictionResult, error)
}

// UploadStore はアップロードされたファイルの保存先です。
type UploadStore interface {
	// Save はキーに対応する場所へデータを書き込みます。
	Save(ctx context.Context, key string, data []byte) error
	// Open はキーに対応するファイルを開きます。
	Open(ctx context.Context, key string) (io.ReadCloser, error)
}

// UploadRepository はアップロードのメタデータを永続化するリポジトリです。
type UploadRepository interface {
	Create(ctx context.Context, u *entity.Upload) error
	FindByStorageKey(ctx context.Context, key string) (*entity.Upload, error)
}

// tumorDetectionUsecase はアップロードの保存と推論をまとめるビジネスロジックを提供します。
type tumorDetectionUsecase struct {
	predictor Predictor
	store     UploadStore
	uploads   UploadRepository
}

// NewTumorDetectionUsecase はtumorDetectionUsecaseの新しいインスタンスを生成します。
func NewTumorDetectionUsecase(p Predictor, s UploadStore, r UploadRepository) *tumorDetectionUsecase {
	return &tumorDetectionUsecase{predictor: p, store: s, uploads: r}
}

// Analyze はアップロードされた画像のヘッダを検証し、保存・メタデータ記録の後に推論します。
// 保存キーは内部生成のUUIDで、利用者のファイル名はパスに使用しません。
func (u *tumorDetectionUsecase) Analyze(ctx context.Context, img entity.RawImage) (*entity.Analysis, error) {
	if len(img.Data) == 0 {
		return nil, domain.ErrEmptyImage
	}
	if len(img.Data) > MaxImageSize {
		return nil, fmt.Errorf("%w: %d bytes (limit %d)", domain.ErrImageTooLarge, len(img.Data), MaxImageSize)
	}

	// 画像として読めないものは保存も記録もしない
	if _, _, err := CheckImage(img.Data); err != nil {
		return nil, err
	}

	mt := mimetype.Detect(img.Data)
	sum := sha256.Sum256(img.Data)
	key := uuid.NewString() + mt.Extension()

	if err := u.store.Save(ctx, key, img.Data); err != nil {
		return nil, wrapStorage("save upload", err)
	}

	upload := &entity.Upload{
		StorageKey:   key,
		OriginalName: sanitizeName(img.Filename),
		ContentType:  mt.String(),
		Size:         int64(len(img.Data)),
		SHA256:       hex.EncodeToString(sum[:]),
	}
	if err := u.uploads.Create(ctx, upload); err != nil {
		return nil, wrapStorage("record upload", err)
	}

	prediction, err := u.predictor.PredictBytes(ctx, img.Data)
	if err != nil {
		return nil, fmt.Errorf("predict upload %s: %w", key, err)
	}

	return &entity.Analysis{Upload: upload, Prediction: prediction}, nil
}

// OpenUpload は保存済みアップロードのメタデータと内容を返します。呼び出し側でCloseしてください。
func (u *tumorDetectionUsecase) OpenUpload(ctx context.Context, key string) (*entity.Upload, io.ReadCloser, error) {
	if key == "" || key != filepath.Base(key) || strings.HasPrefix(key, ".") {
		return nil, nil, domain.ErrUploadNotFound
	}
	upload, err := u.uploads.FindByStorageKey(ctx, key)
	if err != nil {
		return nil, nil, err
	}
	rc, err := u.store.Open(ctx, key)
	if err != nil {
		return nil, nil, err
	}
	return upload, rc, nil
}

// wrapStorage はエラーを domain.ErrStorage として包みます（既に包まれていればそのまま）。
func wrapStorage(op string, err error) error {
	if errors.Is(err, domain.ErrStorage) {
		return fmt.Errorf("%s: %w", op, err)
	}
	return fmt.Errorf("%s: %w: %w", op, domain.ErrStorage, err)
}

// sanitizeName は表示用に元ファイル名からディレクトリ部分と制御文字を取り除きます。
func sanitizeName(name string) string {
	name = filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	if name == "." || name == "/" {
		return ""
	}
	name = strings.Map(func(r rune) rune {
		if r < 0x20 || r == 0x7f {
			return -1
		}
		return r
	}, name)
	if utf8.RuneCountInString(name) > MaxOriginalNameLength {
		name = string([]rune(name)[:MaxOriginalNameLength])
	}
	return name
}
