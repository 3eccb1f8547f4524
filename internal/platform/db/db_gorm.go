// Package db はGORMによるデータベース接続を提供します。
package db

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"tumor_backend/internal/feature/tumordetection/domain/entity"
)

// retryInterval は接続リトライの間隔です。
const retryInterval = 3 * time.Second

// DefaultSQLitePath はDB_HOSTが未設定の場合に使うSQLiteファイルです。
const DefaultSQLitePath = "./tumor.db"

// Config はデータベース接続設定です。
type Config struct {
	User         string
	Password     string
	Name         string
	Host         string
	Port         string
	InstanceName string // Cloud SQLのインスタンス接続名（設定時はUnixソケット接続）
	SQLitePath   string
}

// Opener はDSNからDBを開く関数です。テストで差し替えられます。
type Opener func(dsn string) (*gorm.DB, error)

// LoadConfigFromEnv は環境変数からデータベース設定を読み込みます。
func LoadConfigFromEnv() Config {
	sqlitePath := os.Getenv("SQLITE_PATH")
	if sqlitePath == "" {
		sqlitePath = DefaultSQLitePath
	}
	return Config{
		User:         os.Getenv("DB_USER"),
		Password:     os.Getenv("DB_PASSWORD"),
		Name:         os.Getenv("DB_NAME"),
		Host:         os.Getenv("DB_HOST"),
		Port:         os.Getenv("DB_PORT"),
		InstanceName: os.Getenv("INSTANCE_CONNECTION_NAME"),
		SQLitePath:   sqlitePath,
	}
}

// UsePostgres はPostgreSQLに接続する設定かどうかを返します。
func (c Config) UsePostgres() bool {
	return c.Host != "" || c.InstanceName != ""
}

// BuildDSN はPostgreSQL用のDSN文字列を生成します。InstanceNameが優先されます。
func BuildDSN(cfg Config) string {
	if cfg.InstanceName != "" {
		return fmt.Sprintf("host=/cloudsql/%s user=%s password=%s dbname=%s sslmode=disable TimeZone=Asia/Tokyo",
			cfg.InstanceName, cfg.User, cfg.Password, cfg.Name)
	}
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable TimeZone=Asia/Tokyo",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.Name)
}

// ConnectWithRetry は timeout に達するまで retryInterval 間隔で接続を試みます。
func ConnectWithRetry(dsn string, timeout time.Duration, open Opener) (*gorm.DB, error) {
	deadline := time.Now().Add(timeout)
	for {
		db, err := open(dsn)
		if err == nil {
			return db, nil
		}
		if time.Now().Add(retryInterval).After(deadline) {
			return nil, fmt.Errorf("DB connect failed after %v: %w", timeout, err)
		}
		slog.Warn("DB connect failed, retrying...", "error", err)
		time.Sleep(retryInterval)
	}
}

// OpenDB は設定に応じてPostgreSQLまたはSQLiteに接続し、マイグレーションを実行します。
func OpenDB(cfg Config) (*gorm.DB, error) {
	gcfg := &gorm.Config{TranslateError: true}

	var (
		db  *gorm.DB
		err error
	)
	if cfg.UsePostgres() {
		db, err = ConnectWithRetry(BuildDSN(cfg), 60*time.Second, func(dsn string) (*gorm.DB, error) {
			return gorm.Open(postgres.Open(dsn), gcfg)
		})
	} else {
		slog.Info("USING_SQLITE", "path", cfg.SQLitePath)
		db, err = gorm.Open(sqlite.Open(cfg.SQLitePath), gcfg)
	}
	if err != nil {
		return nil, err
	}

	// マイグレーション（Upload）
	if err := Migrate(db); err != nil {
		return nil, fmt.Errorf("failed to migrate: %w", err)
	}
	return db, nil
}

// Migrate はアプリケーションのテーブルを作成・更新します。
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(&entity.Upload{})
}
