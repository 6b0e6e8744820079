package middleware

import (
	"crypto/subtle"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"doc-assistant/internal/shared/server/respond"
)

const (
	DefaultCSRFField  = "csrf_token"
	DefaultCSRFHeader = "X-CSRF-Token"

	multipartMemory = 32 << 20
)

// CSRFConfig configures the double-submit check.
type CSRFConfig struct {
	CookieName string
	FieldName  string
	HeaderName string
	// OnReject renders the rejection.
	OnReject func(c *gin.Context)
	// OnTooLarge renders a body that exceeded BodyLimit before the token could be read.
	OnTooLarge func(c *gin.Context)
}

// CSRF enforces double-submit protection: unsafe requests must echo the CSRF cookie
// in a form field or header.
func CSRF(cfg CSRFConfig) gin.HandlerFunc {
	if cfg.CookieName == "" {
		cfg.CookieName = DefaultCSRFCookie
	}
	if cfg.FieldName == "" {
		cfg.FieldName = DefaultCSRFField
	}
	if cfg.HeaderName == "" {
		cfg.HeaderName = DefaultCSRFHeader
	}
	if cfg.OnReject == nil {
		cfg.OnReject = func(c *gin.Context) {
			respond.Error(c, http.StatusForbidden, "csrf_invalid", "invalid csrf token", nil)
		}
	}
	if cfg.OnTooLarge == nil {
		cfg.OnTooLarge = func(c *gin.Context) {
			respond.Error(c, http.StatusRequestEntityTooLarge, "too_large", "request body too large", nil)
		}
	}
	return func(c *gin.Context) {
		if !requiresCSRFCheck(c.Request.Method) {
			c.Next()
			return
		}
		submitted := strings.TrimSpace(c.GetHeader(cfg.HeaderName))
		if submitted == "" {
			value, err := formValue(c.Request, cfg.FieldName)
			if IsBodyTooLarge(err) {
				cfg.OnTooLarge(c)
				c.Abort()
				return
			}
			submitted = strings.TrimSpace(value)
		}
		cookieToken, err := c.Cookie(cfg.CookieName)
		if err != nil || submitted == "" || cookieToken == "" ||
			subtle.ConstantTimeCompare([]byte(submitted), []byte(cookieToken)) != 1 {
			cfg.OnReject(c)
			c.Abort()
			return
		}
		c.Next()
	}
}

func requiresCSRFCheck(method string) bool {
	switch strings.ToUpper(method) {
	case http.MethodGet, http.MethodHead, http.MethodOptions:
		return false
	default:
		return true
	}
}

// formValue parses the body once; later FormFile/PostForm calls reuse the parsed form.
func formValue(r *http.Request, name string) (string, error) {
	var err error
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		err = r.ParseMultipartForm(multipartMemory)
	} else {
		err = r.ParseForm()
	}
	if err != nil {
		return "", err
	}
	return r.PostFormValue(name), nil
}

// IsBodyTooLarge reports whether err came from a BodyLimit reader.
func IsBodyTooLarge(err error) bool {
	if err == nil {
		return false
	}
	var maxErr *http.MaxBytesError
	if errors.As(err, &maxErr) {
		return true
	}
	return strings.Contains(err.Error(), "request body too large")
}
