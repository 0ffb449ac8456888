package utils

import (
	"context"
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"
)

// Logger is the logging surface handlers and middleware depend on
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
	With(args ...any) Logger
	Slog() *slog.Logger
}

type slogLogger struct {
	l *slog.Logger
}

// NewSlogLogger wraps a slog.Logger
func NewSlogLogger(l *slog.Logger) Logger {
	if l == nil {
		l = slog.Default()
	}
	return &slogLogger{l: l}
}

func (s *slogLogger) Debug(msg string, args ...any) { s.l.Debug(msg, args...) }
func (s *slogLogger) Info(msg string, args ...any)  { s.l.Info(msg, args...) }
func (s *slogLogger) Warn(msg string, args ...any)  { s.l.Warn(msg, args...) }
func (s *slogLogger) Error(msg string, args ...any) { s.l.Error(msg, args...) }

func (s *slogLogger) With(args ...any) Logger {
	return &slogLogger{l: s.l.With(args...)}
}

func (s *slogLogger) Slog() *slog.Logger { return s.l }

type loggerKey struct{}

const ginLoggerKey = "logger"

// WithLogger stores a logger on the context
func WithLogger(ctx context.Context, logger Logger) context.Context {
	return context.WithValue(ctx, loggerKey{}, logger)
}

// FromContext returns the request-scoped logger, or fallback when none was stored
func FromContext(ctx context.Context, fallback Logger) Logger {
	if logger, ok := ctx.Value(loggerKey{}).(Logger); ok {
		return logger
	}
	return fallback
}

// ContextLogger attaches a logger carrying the request id to the request
func ContextLogger(logger Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		requestLogger := logger.With("request_id", c.GetString("request_id"))
		c.Set(ginLoggerKey, requestLogger)
		c.Request = c.Request.WithContext(WithLogger(c.Request.Context(), requestLogger))
		c.Next()
	}
}

// GetLogger returns the logger set by ContextLogger
func GetLogger(c *gin.Context, fallback Logger) Logger {
	if value, ok := c.Get(ginLoggerKey); ok {
		if logger, ok := value.(Logger); ok {
			return logger
		}
	}
	return fallback
}

// LoggerMiddleware logs one line per request
func LoggerMiddleware(logger Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path

		c.Next()

		status := c.Writer.Status()
		args := []any{
			"method", c.Request.Method,
			"path", path,
			"status", status,
			"latency_ms", time.Since(start).Milliseconds(),
			"client_ip", c.ClientIP(),
		}
		if len(c.Errors) > 0 {
			args = append(args, "errors", c.Errors.String())
		}

		requestLogger := GetLogger(c, logger)
		switch {
		case status >= 500:
			requestLogger.Error("Request completed", args...)
		case status >= 400:
			requestLogger.Warn("Request completed", args...)
		default:
			requestLogger.Info("Request completed", args...)
		}
	}
}
