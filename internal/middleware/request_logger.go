package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stemsi/exampro-backend/internal/response"
)

// RequestLogger attaches a request-scoped logger to the request context and
// logs one line per completed request. It must run after the request ID
// middleware.
func RequestLogger(log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		reqID, _ := c.Get(response.ContextKeyRequestID)
		id, _ := reqID.(string)

		reqLog := log.With().Str("request_id", id).Logger()
		c.Request = c.Request.WithContext(reqLog.WithContext(c.Request.Context()))

		c.Next()

		status := c.Writer.Status()
		event := reqLog.Info()
		switch {
		case status >= 500:
			event = reqLog.Error()
		case status >= 400:
			event = reqLog.Warn()
		}
		if claims := GetClaims(c); claims != nil {
			event = event.Int64("user_id", claims.UserID)
		}
		event.
			Str("method", c.Request.Method).
			Str("path", c.FullPath()).
			Int("status", status).
			Dur("latency", time.Since(start)).
			Msg("Request handled")
	}
}
