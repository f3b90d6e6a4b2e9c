package logger

import (
	"context"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"projtrack/pkg/trace"
)

// NewLogger 创建生产环境 logger（JSON），level 为空或非法时使用 info
func NewLogger(level string) *zap.Logger {
	return build(zap.NewProductionConfig(), level)
}

// NewConsoleLogger 给命令行用：人类可读格式，输出到 stderr
func NewConsoleLogger(level string) *zap.Logger {
	cfg := zap.NewDevelopmentConfig()
	cfg.Development = false
	cfg.DisableStacktrace = true
	cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	return build(cfg, level)
}

func build(cfg zap.Config, level string) *zap.Logger {
	cfg.Level = zap.NewAtomicLevelAt(ParseLevel(level))
	l, err := cfg.Build()
	if err != nil {
		panic(err)
	}
	return l
}

// ParseLevel falls back to info for empty or unknown names.
func ParseLevel(level string) zapcore.Level {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return zapcore.InfoLevel
	}
	return lvl
}

// WithTrace 从 context 中提取 trace_id 并添加到 logger
func WithTrace(ctx context.Context, logger *zap.Logger) *zap.Logger {
	if traceID := trace.FromContext(ctx); traceID != "" {
		return logger.With(zap.String("trace_id", traceID))
	}
	return logger
}
