package entity

import "time"

// RawImage はアップロードされたファイルの内容です。
type RawImage struct {
	Filename    string // 利用者が申告したファイル名（保存パスには使用しない）
	ContentType string // クライアントが申告したMIMEタイプ（参考値）
	Data        []byte
}

// Upload は保存済みアップロードのメタデータです。
// StorageKey は内部生成のキーで、利用者のファイル名とは独立しています。
type Upload struct {
	ID           uint      `gorm:"primaryKey"`
	StorageKey   string    `gorm:"size:64;not null;uniqueIndex"`
	OriginalName string    `gorm:"size:255;not null"`
	ContentType  string    `gorm:"size:100;not null"`
	Size         int64     `gorm:"not null"`
	SHA256       string    `gorm:"size:64;not null;index"`
	CreatedAt    time.Time `gorm:"autoCreateTime"`
}

// Analysis はアップロード1件の保存結果と推論結果の組です。
type Analysis struct {
	Upload     *Upload
	Prediction *PredictionResult
}
