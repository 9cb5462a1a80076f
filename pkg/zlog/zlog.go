package zlog

import (
	"os"
	"path/filepath"
	"strings"
	"sync"

	"OmniAgent/internal/config"

	"github.com/natefinch/lumberjack"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	logger *zap.Logger
	once   sync.Once
)

// L 返回全局 logger，首次调用时按 logConfig 初始化
func L() *zap.Logger {
	once.Do(func() {
		logger = newLogger(config.GetConfig().LogConfig)
	})
	return logger
}

// SetLogger 替换全局 logger（测试中常用 zap.NewNop()）
func SetLogger(l *zap.Logger) {
	once.Do(func() {})
	if l == nil {
		l = zap.NewNop()
	}
	logger = l
}

func newLogger(conf config.LogConfig) *zap.Logger {
	level := zapcore.InfoLevel
	if err := level.UnmarshalText([]byte(strings.TrimSpace(conf.Level))); err != nil || strings.TrimSpace(conf.Level) == "" {
		level = zapcore.InfoLevel
	}

	encCfg := zap.NewProductionEncoderConfig()
	encCfg.TimeKey = "time"
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	encCfg.EncodeLevel = zapcore.CapitalLevelEncoder

	cores := []zapcore.Core{
		zapcore.NewCore(zapcore.NewConsoleEncoder(encCfg), zapcore.Lock(os.Stdout), level),
	}

	// 配置了 logPath 时额外写入滚动文件
	if p := strings.TrimSpace(conf.LogPath); p != "" {
		file := p
		if filepath.Ext(p) == "" {
			file = filepath.Join(p, "omniagent.log")
		}
		rotate := &lumberjack.Logger{
			Filename:   file,
			MaxSize:    positiveOr(conf.MaxSizeMB, 100),
			MaxBackups: positiveOr(conf.MaxBackups, 7),
			MaxAge:     positiveOr(conf.MaxAgeDays, 30),
			Compress:   true,
		}
		cores = append(cores, zapcore.NewCore(zapcore.NewJSONEncoder(encCfg), zapcore.AddSync(rotate), level))
	}

	return zap.New(zapcore.NewTee(cores...), zap.AddCaller(), zap.AddCallerSkip(1))
}

func positiveOr(v, def int) int {
	if v > 0 {
		return v
	}
	return def
}

func Debug(msg string, fields ...zap.Field) {
	L().Debug(msg, fields...)
}

func Info(msg string, fields ...zap.Field) {
	L().Info(msg, fields...)
}

func Warn(msg string, fields ...zap.Field) {
	L().Warn(msg, fields...)
}

func Error(msg string, fields ...zap.Field) {
	L().Error(msg, fields...)
}

func Fatal(msg string, fields ...zap.Field) {
	L().Fatal(msg, fields...)
}

// Sync 刷新缓冲，进程退出前调用
func Sync() {
	if logger != nil {
		_ = logger.Sync()
	}
}
