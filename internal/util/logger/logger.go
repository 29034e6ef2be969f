// Package logger 提供 meshbridge 的统一日志系统
//
// 基于标准库 log/slog，支持：
//   - 按子系统配置日志级别
//   - 环境变量配置（MESHBRIDGE_LOG_LEVEL, MESHBRIDGE_LOG_FORMAT）
//   - 结构化日志
//
// 使用示例:
//
//	package relay
//
//	import "github.com/dep2p/go-meshbridge/internal/util/logger"
//
//	var log = logger.Logger("relay")
//
//	func foo() {
//	    log.Info("消息已转发", "id", msgID, "link", link)
//	}
//
// 环境变量配置:
//
//	# 设置所有子系统为 info，supervisor 子系统为 debug
//	MESHBRIDGE_LOG_LEVEL=supervisor=debug,info
//
//	# 使用 JSON 格式输出
//	MESHBRIDGE_LOG_FORMAT=json
package logger

import (
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
)

// LogFormat 日志输出格式
type LogFormat int

const (
	// FormatText 文本格式（默认）
	FormatText LogFormat = iota
	// FormatJSON JSON 格式
	FormatJSON
)

var (
	// loggers 缓存各子系统的 Logger
	loggers sync.Map // map[string]*slog.Logger

	// handlers 缓存各子系统的 Handler（用于动态调整级别）
	handlers sync.Map // map[string]*subsystemHandler

	// envConfig 环境变量配置缓存
	envConfig     *config
	envConfigOnce sync.Once
)

// config 日志配置
type config struct {
	defaultLevel    slog.Level
	subsystemLevels map[string]slog.Level
	format          LogFormat
}

// Logger 获取指定子系统的 Logger
//
// 日志级别由 MESHBRIDGE_LOG_LEVEL 环境变量决定。
// 同一子系统多次调用返回相同的 Logger 实例。
func Logger(subsystem string) *slog.Logger {
	if l, ok := loggers.Load(subsystem); ok {
		return l.(*slog.Logger)
	}

	cfg := configFromEnv()
	level := cfg.defaultLevel
	if l, ok := cfg.subsystemLevels[subsystem]; ok {
		level = l
	}

	handler := newHandler(subsystem, level, cfg.format)
	l := slog.New(handler)

	actual, loaded := loggers.LoadOrStore(subsystem, l)
	if !loaded {
		handlers.Store(subsystem, handler)
	}
	return actual.(*slog.Logger)
}

// SetLevel 动态设置子系统的日志级别
func SetLevel(subsystem string, level slog.Level) {
	if h, ok := handlers.Load(subsystem); ok {
		h.(*subsystemHandler).SetLevel(level)
	}
}

// SetGlobalLevel 设置所有已创建子系统的日志级别
func SetGlobalLevel(level slog.Level) {
	handlers.Range(func(_, value any) bool {
		value.(*subsystemHandler).SetLevel(level)
		return true
	})
}

// SetOutput 设置全局日志输出目标
//
// 所有 Logger（含已创建的）的输出都会重定向到新的 writer。
func SetOutput(w io.Writer) {
	globalOutputMu.Lock()
	globalOutput = w
	globalOutputMu.Unlock()
}

// Discard 返回一个丢弃所有日志的 Logger
//
// 主要用于测试，避免日志输出干扰测试结果。
func Discard() *slog.Logger {
	return slog.New(discardHandler{})
}

// configFromEnv 从环境变量解析配置（只解析一次）
func configFromEnv() *config {
	envConfigOnce.Do(func() {
		envConfig = parseEnv()
	})
	return envConfig
}

func parseEnv() *config {
	cfg := &config{
		defaultLevel:    slog.LevelInfo,
		subsystemLevels: make(map[string]slog.Level),
		format:          FormatText,
	}

	if levelStr := os.Getenv("MESHBRIDGE_LOG_LEVEL"); levelStr != "" {
		parseLevels(cfg, levelStr)
	}

	if strings.EqualFold(os.Getenv("MESHBRIDGE_LOG_FORMAT"), "json") {
		cfg.format = FormatJSON
	}

	return cfg
}

// parseLevels 解析级别配置字符串
// 格式: 子系统=级别,子系统=级别,默认级别
// 示例: supervisor=debug,tracker=warn,info
func parseLevels(cfg *config, levelStr string) {
	for _, part := range strings.Split(levelStr, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		if name, levelName, found := strings.Cut(part, "="); found {
			if level, ok := parseLevel(strings.TrimSpace(levelName)); ok {
				cfg.subsystemLevels[strings.TrimSpace(name)] = level
			}
			continue
		}
		if level, ok := parseLevel(part); ok {
			cfg.defaultLevel = level
		}
	}
}

// parseLevel 解析日志级别名称
func parseLevel(name string) (slog.Level, bool) {
	switch strings.ToLower(name) {
	case "debug":
		return slog.LevelDebug, true
	case "info":
		return slog.LevelInfo, true
	case "warn", "warning":
		return slog.LevelWarn, true
	case "error":
		return slog.LevelError, true
	default:
		return 0, false
	}
}
