package middleware

import (
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"doc-assistant/internal/shared/telemetry"
)

// AnalysisKindKey is set by handlers that trigger a generation.
const AnalysisKindKey = "analysisKind"

// Logging emits a structured log per request.
func Logging() gin.HandlerFunc {
	return func(c *gin.Context) {
		if strings.EqualFold(c.Request.Method, "OPTIONS") {
			c.Next()
			return
		}

		start := time.Now()
		c.Next()
		latency := time.Since(start)

		fields := CorrelationFields(c)
		fields["method"] = c.Request.Method
		fields["path"] = c.Request.URL.Path
		fields["route"] = c.FullPath()
		fields["status"] = c.Writer.Status()
		fields["duration_ms"] = float64(latency.Microseconds()) / 1000.0
		fields["client_ip"] = c.ClientIP()
		fields["user_agent"] = c.Request.UserAgent()
		if kind := c.GetString(AnalysisKindKey); kind != "" {
			fields["analysis_kind"] = kind
		}
		telemetry.Info("request.complete", fields)
	}
}
