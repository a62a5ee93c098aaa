// Package logging 构建进程级的 slog.Logger
package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/lmittmann/tint"
	"golang.org/x/term"
	"gorm.io/gorm/logger"
)

const (
	FormatText = "text"
	FormatJSON = "json"
)

// New 根据级别和格式创建 Logger
// text 格式使用 tint 彩色输出，json 格式用于日志采集
func New(w io.Writer, level, format string) *slog.Logger {
	lvl := ParseLevel(level)

	var handler slog.Handler
	switch strings.ToLower(format) {
	case FormatJSON:
		handler = slog.NewJSONHandler(w, &slog.HandlerOptions{Level: lvl})
	default:
		handler = tint.NewHandler(w, &tint.Options{
			Level:      lvl,
			TimeFormat: time.TimeOnly,
			NoColor:    !isTerminal(w),
		})
	}
	return slog.New(handler)
}

// Setup 创建 Logger 并设为 slog 默认值
// 日志写到 stderr，stdout 留给命令输出
func Setup(level, format string) *slog.Logger {
	l := New(os.Stderr, level, format)
	slog.SetDefault(l)
	return l
}

func ParseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
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

// GormLevel 把应用日志级别映射到 GORM 的 SQL 日志级别
// 只有 debug 才打印每条 SQL
func GormLevel(level string) logger.LogLevel {
	switch ParseLevel(level) {
	case slog.LevelDebug:
		return logger.Info
	case slog.LevelError:
		return logger.Error
	default:
		return logger.Warn
	}
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return term.IsTerminal(int(f.Fd()))
}
