package log

import (
	"log/slog"
	"os"
	"sync"

	gormlogger "gorm.io/gorm/logger"
)

var (
	gormLevelMu sync.Mutex
	gormLevel   = gormlogger.Silent
)

// SetupGlobalLogger 配置全局 slog 输出级别
func SetupGlobalLogger(level slog.Level) {
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	slog.SetDefault(slog.New(handler))
}

// SetGormLogLevel 设置 gorm 的日志级别（dbcore 初始化时读取）
func SetGormLogLevel(level gormlogger.LogLevel) {
	gormLevelMu.Lock()
	defer gormLevelMu.Unlock()
	gormLevel = level
}

// GormLogLevel 返回当前 gorm 日志级别
func GormLogLevel() gormlogger.LogLevel {
	gormLevelMu.Lock()
	defer gormLevelMu.Unlock()
	return gormLevel
}
