package middleware

import (
	"net/http"
	"runtime/debug"

	"github.com/gin-gonic/gin"

	"doc-assistant/internal/shared/server/respond"
	"doc-assistant/internal/shared/telemetry"
)

// Recovery recovers from panics and returns a standardized error response.
// onPanic, when set, renders the response instead of the JSON envelope.
func Recovery(onPanic func(c *gin.Context)) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if rec := recover(); rec != nil {
				fields := CorrelationFields(c)
				fields["error"] = rec
				fields["stack"] = string(debug.Stack())
				fields["path"] = c.Request.URL.Path
				fields["method"] = c.Request.Method
				telemetry.Error("panic", fields)
				if onPanic != nil {
					onPanic(c)
					c.Abort()
					return
				}
				respond.Error(c, http.StatusInternalServerError, "internal", "Unexpected server error", nil)
				c.Abort()
			}
		}()
		c.Next()
	}
}
