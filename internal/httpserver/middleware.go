package httpserver

import (
	"net/http"
	"strconv"
	"time"

	"projtrack/internal/util"
	"projtrack/pkg/logger"
	"projtrack/pkg/metrics"
	"projtrack/pkg/trace"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// TraceMiddleware propagates X-Trace-ID into the request context.
func TraceMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		traceID := trace.FromHeader(c.GetHeader(trace.HeaderName))
		c.Request = c.Request.WithContext(trace.WithContext(c.Request.Context(), traceID))
		c.Header(trace.HeaderName, traceID)
		c.Next()
	}
}

// LoggingMiddleware 记录请求日志和延迟指标
func LoggingMiddleware(log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		duration := time.Since(start)

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		status := c.Writer.Status()
		metrics.RecordHTTPRequestDuration(c.Request.Method, path, strconv.Itoa(status), duration)

		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("path", path),
			zap.Int("status", status),
			zap.Duration("duration", duration),
		}
		l := logger.WithTrace(c.Request.Context(), log)
		if status >= http.StatusInternalServerError {
			l.Error("HTTP request", fields...)
			return
		}
		l.Info("HTTP request", fields...)
	}
}

// AuthMiddleware requires a valid bearer token signed with jwtSecret.
func AuthMiddleware(jwtSecret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := util.ExtractToken(c.Request)
		if token == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "missing token"})
			c.Abort()
			return
		}

		subject, err := util.ParseJWT(token, jwtSecret)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			c.Abort()
			return
		}

		// store subject in context so handlers can use it
		c.Set("subject", subject)

		c.Next()
	}
}
