// Package domain はtumordetectionフィーチャーのドメインエラーを定義します。
package domain

import "errors"

// 推論パイプラインとその周辺で発生するエラーです。
// 上位層（handler）は errors.Is で判別し、「入力不正」と「モデル故障」を区別して利用者に返します。
var (
	// ErrDecode はアップロードされた内容が画像としてデコードできないことを示します。
	ErrDecode = errors.New("image could not be decoded")

	// ErrModel は分類器が未ロード・破損・入力形状不一致であることを示します。
	ErrModel = errors.New("classifier unavailable or incompatible")

	// ErrDownload はリモートからのモデル取得に失敗したことを示します。起動時に致命的です。
	ErrDownload = errors.New("model download failed")

	// ErrStorage はアップロードディレクトリやレコードへの書き込みに失敗したことを示します。
	ErrStorage = errors.New("upload storage failed")

	// ErrUploadNotFound は指定されたストレージキーのアップロードが存在しないことを示します。
	ErrUploadNotFound = errors.New("upload not found")

	// ErrEmptyImage は空の画像データが渡されたことを示します。
	ErrEmptyImage = errors.New("image data is empty")

	// ErrImageTooLarge は画像データが上限サイズを超えていることを示します。
	ErrImageTooLarge = errors.New("image size exceeds maximum")
)
