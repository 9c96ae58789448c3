package middleware

import (
	"time"

	"github.com/GriffinCanCode/zipkin-core/internal/infrastructure/logging"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// RequestLogger logs one line per request. Register it before the tracing
// middleware so the line carries the server span's ids.
func RequestLogger(logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
			zap.String("client_ip", c.ClientIP()),
		}

		log := logger.WithTrace(c.Request.Context())
		switch {
		case len(c.Errors) > 0:
			log.Error("request failed", append(fields, zap.String("error", c.Errors.String()))...)
		case c.Writer.Status() >= 500:
			log.Error("request failed", fields...)
		default:
			log.Info("request", fields...)
		}
	}
}
