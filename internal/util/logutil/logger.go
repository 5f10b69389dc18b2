// Package logutil 构建结构化日志记录器。
package logutil

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New 创建生产配置的 zap 日志记录器
// 参数 level: 日志级别，无法识别时使用 info
// 时间字段为 ts，ISO8601 格式。
func New(level string) *zap.Logger {
	lvl := zapcore.InfoLevel
	if err := lvl.Set(level); err != nil {
		lvl = zapcore.InfoLevel
	}

	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	logger, err := cfg.Build()
	if err != nil {
		return zap.NewNop()
	}
	return logger
}
