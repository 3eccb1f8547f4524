// Package storage はアップロードファイルをローカルディスクに保存するUploadStore実装を提供します。
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"tumor_backend/internal/feature/tumordetection/domain"
	"tumor_backend/internal/feature/tumordetection/usecase"
)

// DefaultDir はアップロードの保存先ディレクトリのデフォルトです。
const DefaultDir = "Uploads"

// LocalStore はディレクトリ直下にキー名でファイルを保存します。
type LocalStore struct {
	dir string
}

// LocalStoreがUploadStoreを実装していることをコンパイル時に検証します。
var _ usecase.UploadStore = (*LocalStore)(nil)

// NewLocalStore は保存先ディレクトリを作成してLocalStoreを返します。
func NewLocalStore(dir string) (*LocalStore, error) {
	if dir == "" {
		dir = DefaultDir
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("%w: create upload dir %q: %w", domain.ErrStorage, dir, err)
	}
	return &LocalStore{dir: dir}, nil
}

// Dir は保存先ディレクトリを返します。
func (s *LocalStore) Dir() string {
	return s.dir
}

// Path はキーに対応するファイルパスを返します。キーにディレクトリ要素は含められません。
func (s *LocalStore) Path(key string) (string, error) {
	if key == "" || key != filepath.Base(key) || key == "." || key == ".." {
		return "", fmt.Errorf("%w: invalid storage key %q", domain.ErrStorage, key)
	}
	return filepath.Join(s.dir, key), nil
}

// Save は一時ファイルに書き込んでからリネームします。途中で失敗しても壊れたファイルは残りません。
func (s *LocalStore) Save(ctx context.Context, key string, data []byte) error {
	path, err := s.Path(key)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(s.dir, ".upload-*")
	if err != nil {
		return fmt.Errorf("%w: create temp file: %w", domain.ErrStorage, err)
	}
	defer func() {
		if err := os.Remove(tmp.Name()); err != nil && !errors.Is(err, fs.ErrNotExist) {
			slog.Warn("一時ファイルの削除に失敗", "path", tmp.Name(), "error", err)
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("%w: write %s: %w", domain.ErrStorage, key, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("%w: close %s: %w", domain.ErrStorage, key, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("%w: rename %s: %w", domain.ErrStorage, key, err)
	}
	return nil
}

// Open はキーに対応するファイルを開きます。存在しない場合は domain.ErrUploadNotFound を返します。
func (s *LocalStore) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	path, err := s.Path(key)
	if err != nil {
		return nil, domain.ErrUploadNotFound
	}
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, domain.ErrUploadNotFound
		}
		return nil, fmt.Errorf("%w: open %s: %w", domain.ErrStorage, key, err)
	}
	return f, nil
}
