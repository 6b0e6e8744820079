package respond

import (
	"github.com/gin-gonic/gin"

	"doc-assistant/internal/shared/telemetry"
)

// ErrorBody defines the standardized error object.
type ErrorBody struct {
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
}

// ErrorResponse wraps the error body.
type ErrorResponse struct {
	Error ErrorBody `json:"error"`
}

// Error sends a standardized error response.
func Error(c *gin.Context, status int, code, message string, details interface{}) {
	fields := map[string]any{
		"status":  status,
		"code":    code,
		"message": message,
		"path":    c.Request.URL.Path,
		"method":  c.Request.Method,
	}
	logHTTPError(c, status, fields)

	c.AbortWithStatusJSON(status, ErrorResponse{
		Error: ErrorBody{
			Code:    code,
			Message: message,
			Details: details,
		},
	})
}

// Context keys written by the request-id and session middleware.
const (
	requestIDKey  = "requestId"
	sessionRefKey = "sessionRef"
)

func logHTTPError(c *gin.Context, status int, fields map[string]any) {
	fields["request_id"] = c.GetString(requestIDKey)
	if ref := c.GetString(sessionRefKey); ref != "" {
		fields["session_id"] = ref
	}
	if kind := c.GetString("analysisKind"); kind != "" {
		fields["analysis_kind"] = kind
	}
	if status >= 500 {
		telemetry.Error("http.error", fields)
		return
	}
	telemetry.Warn("http.error", fields)
}
