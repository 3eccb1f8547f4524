// Package logger はアプリケーション全体で使うslogロガーを初期化します。
package logger

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// Init は環境変数 ENV と LOG_LEVEL に従ってデフォルトロガーを設定します。
// production ではJSON、それ以外はソース位置付きのテキスト形式で出力します。
func Init() *slog.Logger {
	l := New(os.Stdout, os.Getenv("ENV"), os.Getenv("LOG_LEVEL"))
	slog.SetDefault(l)
	return l
}

// New は出力先・環境・レベルを指定してロガーを生成します。
func New(w io.Writer, env, level string) *slog.Logger {
	opts := &slog.HandlerOptions{Level: parseLevel(level)}

	var handler slog.Handler
	if env == "production" {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		opts.AddSource = true
		opts.ReplaceAttr = replaceTimeAttr
		handler = slog.NewTextHandler(w, opts)
	}
	return slog.New(handler)
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func replaceTimeAttr(groups []string, a slog.Attr) slog.Attr {
	if a.Key == slog.TimeKey && len(groups) == 0 {
		return slog.String("time", a.Value.Time().Local().Format("2006-01-02 15:04:05"))
	}
	return a
}
