package middleware

import (
	"crypto/rand"
	"encoding/hex"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	sessionIDKey = "sessionId"
	csrfTokenKey = "csrfToken"

	DefaultSessionCookie = "docassist_session"
	DefaultCSRFCookie    = "docassist_csrf"
)

// SessionConfig controls the browser session cookies.
type SessionConfig struct {
	CookieName     string
	CSRFCookieName string
	MaxAgeSeconds  int
	Secure         bool
}

// Session assigns every browser a session id cookie and a CSRF token cookie.
// Both are stored on the gin context for handlers and later middleware.
func Session(cfg SessionConfig) gin.HandlerFunc {
	if cfg.CookieName == "" {
		cfg.CookieName = DefaultSessionCookie
	}
	if cfg.CSRFCookieName == "" {
		cfg.CSRFCookieName = DefaultCSRFCookie
	}
	return func(c *gin.Context) {
		sessionID, err := c.Cookie(cfg.CookieName)
		if err != nil || !validSessionID(sessionID) {
			sessionID = uuid.NewString()
			setCookie(c, cfg, cfg.CookieName, sessionID)
		}

		csrfToken, err := c.Cookie(cfg.CSRFCookieName)
		if err != nil || strings.TrimSpace(csrfToken) == "" {
			csrfToken = newCSRFToken()
			setCookie(c, cfg, cfg.CSRFCookieName, csrfToken)
		}

		c.Set(sessionIDKey, sessionID)
		c.Set(sessionRefKey, SessionRef(sessionID))
		c.Set(csrfTokenKey, csrfToken)
		c.Next()
	}
}

// SessionIDFromContext fetches the session id set by the Session middleware.
func SessionIDFromContext(c *gin.Context) string {
	if c == nil {
		return ""
	}
	val, _ := c.Get(sessionIDKey)
	if id, ok := val.(string); ok {
		return id
	}
	return ""
}

// CSRFTokenFromContext fetches the token to embed in rendered forms.
func CSRFTokenFromContext(c *gin.Context) string {
	if c == nil {
		return ""
	}
	val, _ := c.Get(csrfTokenKey)
	if token, ok := val.(string); ok {
		return token
	}
	return ""
}

func validSessionID(raw string) bool {
	_, err := uuid.Parse(strings.TrimSpace(raw))
	return err == nil
}

func newCSRFToken() string {
	var b [32]byte
	if _, err := rand.Read(b[:]); err != nil {
		return uuid.NewString()
	}
	return hex.EncodeToString(b[:])
}

func setCookie(c *gin.Context, cfg SessionConfig, name, value string) {
	http.SetCookie(c.Writer, &http.Cookie{
		Name:     name,
		Value:    value,
		MaxAge:   cfg.MaxAgeSeconds,
		Path:     "/",
		Secure:   cfg.Secure,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}
