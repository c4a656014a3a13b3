package logger

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// GinLoggerKey holds the request-scoped logger in the gin context.
const GinLoggerKey = "logger"

func statusLevel(status int) zapcore.Level {
	switch {
	case status >= http.StatusInternalServerError:
		return zapcore.ErrorLevel
	case status >= http.StatusBadRequest:
		return zapcore.WarnLevel
	}
	return zapcore.InfoLevel
}

func quiet(path string, prefixes []string) bool {
	for _, p := range prefixes {
		if strings.HasPrefix(path, p) {
			return true
		}
	}
	return false
}

// GinMiddleware attaches a request-scoped logger and writes one access entry
// per request. Paths under quietPrefixes (probes, SSE streams) get the logger
// but no access entry.
func GinMiddleware(logger *zap.Logger, quietPrefixes ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		began := time.Now()
		path := c.Request.URL.Path
		rid := c.GetString("request_id")

		rl := logger.With(
			zap.String("request_id", rid),
			zap.String("method", c.Request.Method),
			zap.String("path", path),
		)
		c.Set(GinLoggerKey, rl)
		ctx, _ := WithRequestID(c.Request.Context(), rl, rid)
		c.Request = c.Request.WithContext(ctx)

		c.Next()

		if quiet(path, quietPrefixes) {
			return
		}
		status := c.Writer.Status()
		ce := rl.Check(statusLevel(status), "HTTP Request")
		if ce == nil {
			return
		}
		fields := []zap.Field{
			zap.Int("status", status),
			zap.Duration("latency", time.Since(began)),
			zap.String("client_ip", c.ClientIP()),
			zap.Int("body_size", c.Writer.Size()),
		}
		if route := c.FullPath(); route != "" && route != path {
			fields = append(fields, zap.String("route", route))
		}
		if uid := c.GetString("user_id"); uid != "" {
			fields = append(fields, zap.String("user_id", uid))
		}
		if len(c.Errors) > 0 {
			fields = append(fields, zap.Strings("errors", c.Errors.Errors()))
		}
		ce.Write(fields...)
	}
}

// Recovery turns a handler panic into a logged 500 with the API error envelope.
func Recovery(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			r := recover()
			if r == nil {
				return
			}
			rid := c.GetString("request_id")
			logger.Error("Panic recovered",
				zap.String("request_id", rid),
				zap.String("method", c.Request.Method),
				zap.String("path", c.Request.URL.Path),
				zap.Any("error", r),
				zap.Stack("stacktrace"),
			)
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
				"success": false,
				"error": gin.H{
					"code":       "INTERNAL_ERROR",
					"message":    "An unexpected error occurred",
					"request_id": rid,
				},
			})
		}()
		c.Next()
	}
}

// GetGinLogger returns the request-scoped logger, or a no-op logger outside GinMiddleware.
func GetGinLogger(c *gin.Context) *zap.Logger {
	if zl, ok := c.Value(GinLoggerKey).(*zap.Logger); ok {
		return zl
	}
	return zap.NewNop()
}
