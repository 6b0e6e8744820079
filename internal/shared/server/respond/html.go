package respond

import (
	"github.com/gin-gonic/gin"
)

// HTML renders a named template with the given status.
func HTML(c *gin.Context, status int, name string, data any) {
	c.HTML(status, name, data)
}

// HTMLError logs the failure like Error and renders a page instead of the JSON envelope.
func HTMLError(c *gin.Context, status int, code, message, name string, data any) {
	logHTTPError(c, status, map[string]any{
		"status":  status,
		"code":    code,
		"message": message,
		"path":    c.Request.URL.Path,
		"method":  c.Request.Method,
	})
	c.HTML(status, name, data)
	c.Abort()
}
