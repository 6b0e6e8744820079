package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"doc-assistant/internal/shared/util"
)

const (
	requestIDHeader = "X-Request-Id"
	requestIDKey    = "requestId"
	sessionRefKey   = "sessionRef"

	maxRequestIDLen = 64
)

// RequestID tags the request with an id echoed in X-Request-Id.
// An inbound id is reused only when it is short and printable, so it can go into log lines as is.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := strings.TrimSpace(c.GetHeader(requestIDHeader))
		if !usableRequestID(id) {
			id = uuid.NewString()
		}
		c.Set(requestIDKey, id)
		c.Writer.Header().Set(requestIDHeader, id)
		c.Next()
	}
}

// RequestIDFromContext fetches the request ID stored by RequestID middleware.
func RequestIDFromContext(c *gin.Context) string {
	if c == nil {
		return ""
	}
	return c.GetString(requestIDKey)
}

// SessionRef is the log-safe form of a session id. The raw id is a bearer
// credential and never appears in logs.
func SessionRef(sessionID string) string {
	if sessionID == "" {
		return ""
	}
	return util.HashKey(sessionID)[:16]
}

// CorrelationFields returns the request and session references every log line of a request carries.
func CorrelationFields(c *gin.Context) map[string]any {
	fields := map[string]any{
		"request_id": RequestIDFromContext(c),
	}
	if ref := c.GetString(sessionRefKey); ref != "" {
		fields["session_id"] = ref
	}
	return fields
}

func usableRequestID(id string) bool {
	if id == "" || len(id) > maxRequestIDLen {
		return false
	}
	for _, r := range id {
		if r < 0x21 || r > 0x7e {
			return false
		}
	}
	return true
}
