package respond

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Status writes a health-style report: 200 when ok, 503 otherwise.
// Load balancers only look at the code; the body is for operators.
func Status(c *gin.Context, ok bool, report any) {
	code := http.StatusOK
	if !ok {
		code = http.StatusServiceUnavailable
	}
	c.Header("Cache-Control", "no-store")
	c.JSON(code, report)
}
