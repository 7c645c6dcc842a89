// Package logger 提供统一的日志框架
package logger

import (
	"context"
	"io"
	"os"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

var (
	once   sync.Once
	logger zerolog.Logger
)

// Level 日志级别
type Level = zerolog.Level

const (
	DebugLevel = zerolog.DebugLevel
	InfoLevel  = zerolog.InfoLevel
	WarnLevel  = zerolog.WarnLevel
	ErrorLevel = zerolog.ErrorLevel
	FatalLevel = zerolog.FatalLevel
)

type ctxKey string

// RequestIDKey 上下文中请求ID的键
const RequestIDKey ctxKey = "request_id"

// Config 日志配置
type Config struct {
	Level      string `json:"level"`
	Format     string `json:"format"` // json/console
	Output     string `json:"output"` // stdout/stderr/file
	FilePath   string `json:"file_path,omitempty"`
	TimeFormat string `json:"time_format,omitempty"`
}

// DefaultConfig 返回默认配置
func DefaultConfig() Config {
	return Config{
		Level:      "info",
		Format:     "console",
		Output:     "stdout",
		TimeFormat: time.RFC3339,
	}
}

// Init 初始化日志器，只有第一次调用生效
func Init(cfg Config) {
	once.Do(func() {
		zerolog.SetGlobalLevel(parseLevel(cfg.Level))

		var output io.Writer
		switch cfg.Output {
		case "stderr":
			output = os.Stderr
		case "file":
			output = os.Stdout
			if cfg.FilePath != "" {
				if f, err := os.OpenFile(cfg.FilePath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644); err == nil {
					output = f
				}
			}
		default:
			output = os.Stdout
		}

		if cfg.Format == "console" {
			output = zerolog.ConsoleWriter{
				Out:        output,
				TimeFormat: cfg.TimeFormat,
			}
		}

		logger = zerolog.New(output).With().Timestamp().Logger()
	})
}

// parseLevel 解析日志级别
func parseLevel(level string) zerolog.Level {
	switch level {
	case "debug":
		return zerolog.DebugLevel
	case "info":
		return zerolog.InfoLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	case "fatal":
		return zerolog.FatalLevel
	case "disabled":
		return zerolog.Disabled
	default:
		return zerolog.InfoLevel
	}
}

// Get 获取日志器，未初始化时使用默认配置
func Get() *zerolog.Logger {
	Init(DefaultConfig())
	return &logger
}

// ContextWithRequestID 在上下文中写入请求ID
func ContextWithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, RequestIDKey, requestID)
}

// RequestIDFromContext 读取上下文中的请求ID
func RequestIDFromContext(ctx context.Context) string {
	if reqID, ok := ctx.Value(RequestIDKey).(string); ok {
		return reqID
	}
	return ""
}

// WithContext 从上下文创建日志器
func WithContext(ctx context.Context) *zerolog.Logger {
	l := Get().With().Logger()
	if reqID := RequestIDFromContext(ctx); reqID != "" {
		l = l.With().Str("request_id", reqID).Logger()
	}
	return &l
}

// Debug 记录调试日志
func Debug() *zerolog.Event {
	return Get().Debug()
}

// Info 记录信息日志
func Info() *zerolog.Event {
	return Get().Info()
}

// Warn 记录警告日志
func Warn() *zerolog.Event {
	return Get().Warn()
}

// Error 记录错误日志
func Error() *zerolog.Event {
	return Get().Error()
}

// Fatal 记录致命错误日志
func Fatal() *zerolog.Event {
	return Get().Fatal()
}

// WithError 添加错误信息
func WithError(err error) *zerolog.Event {
	return Get().Error().Err(err)
}

// WithField 添加字段
func WithField(key string, value interface{}) *zerolog.Logger {
	l := Get().With().Interface(key, value).Logger()
	return &l
}

// SolverLogger 求解器专用日志器
type SolverLogger struct {
	base *zerolog.Logger
}

// NewSolverLogger 创建求解器日志器
func NewSolverLogger() *SolverLogger {
	l := Get().With().Str("component", "solver").Logger()
	return &SolverLogger{base: &l}
}

// StartSolve 记录求解开始
func (l *SolverLogger) StartSolve(mode string, agents, slots, vars int) {
	l.base.Info().
		Str("mode", mode).
		Int("agents", agents).
		Int("slots", slots).
		Int("vars", vars).
		Msg("开始求解")
}

// Incumbent 记录搜索中找到更优解
func (l *SolverLogger) Incumbent(worker int, objective int64, nodes int64) {
	l.base.Debug().
		Int("worker", worker).
		Int64("objective", objective).
		Int64("nodes", nodes).
		Msg("找到更优解")
}

// LockConflict 记录硬锁定与候选人员不一致
func (l *SolverLogger) LockConflict(slotID int, agentID int64, details string) {
	l.base.Warn().
		Int("slot_id", slotID).
		Int64("agent_id", agentID).
		Str("details", details).
		Msg("硬锁定冲突")
}

// ModelInvalid 记录模型无效（构建器缺陷）
func (l *SolverLogger) ModelInvalid(err error) {
	l.base.Error().Err(err).Msg("约束模型无效")
}

// SolveComplete 记录求解完成
func (l *SolverLogger) SolveComplete(status string, duration time.Duration, objective int64, uncovered int) {
	l.base.Info().
		Str("status", status).
		Dur("duration", duration).
		Int64("objective", objective).
		Int("uncovered", uncovered).
		Msg("求解完成")
}
