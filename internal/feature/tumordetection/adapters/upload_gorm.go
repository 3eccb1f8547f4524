// Package adapters はtumordetectionフィーチャーのリポジトリ実装を提供します。
package adapters

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"tumor_backend/internal/feature/tumordetection/domain"
	"tumor_backend/internal/feature/tumordetection/domain/entity"
	"tumor_backend/internal/feature/tumordetection/usecase"
)

// uploadGorm はUploadRepositoryインターフェースのGORM実装です。
type uploadGorm struct {
	db *gorm.DB
}

var _ usecase.UploadRepository = (*uploadGorm)(nil)

// NewUploadRepository は指定されたDB接続でuploadGormリポジトリの新しいインスタンスを生成します。
func NewUploadRepository(db *gorm.DB) *uploadGorm {
	return &uploadGorm{db: db}
}

// Create はアップロードのメタデータを保存します。
func (r *uploadGorm) Create(ctx context.Context, u *entity.Upload) error {
	return r.db.WithContext(ctx).Create(u).Error
}

// FindByStorageKey はストレージキーでアップロードを検索します。
func (r *uploadGorm) FindByStorageKey(ctx context.Context, key string) (*entity.Upload, error) {
	var u entity.Upload
	if err := r.db.WithContext(ctx).Where("storage_key = ?", key).First(&u).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrUploadNotFound
		}
		return nil, err
	}
	return &u, nil
}
