// Package util 提供日志、重试、代码清洗等通用工具
package util

import (
	"log/slog"
	"os"
	"strings"
)

// NewLogger 创建指定级别的slog JSON日志器
// 支持级别: debug/info/warn/error, 无法识别时默认info
func NewLogger(level string) *slog.Logger {
	var slevel slog.Level
	switch strings.ToLower(level) {
	case "debug":
		slevel = slog.LevelDebug
	case "info":
		slevel = slog.LevelInfo
	case "warn":
		slevel = slog.LevelWarn
	case "error":
		slevel = slog.LevelError
	default:
		slevel = slog.LevelInfo
	}

	handler := slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: slevel,
	})

	return slog.New(handler)
}
