package server

import (
	"time"

	"github.com/gin-gonic/gin"

	"doc-assistant/internal/services/health"
	"doc-assistant/internal/shared/config"
	"doc-assistant/internal/shared/metrics"
	"doc-assistant/internal/shared/server/middleware"
	"doc-assistant/internal/shared/server/respond"
	"doc-assistant/internal/web"
)

// RouterDeps carries the handlers the router mounts.
type RouterDeps struct {
	Config config.Config
	Web    *web.Handler
	Health *health.Service
	// HaltMessage, when set, halts the interactive flow: only /healthz stays reachable.
	HaltMessage string
}

// NewRouter constructs the Gin engine with middleware and routes registered.
func NewRouter(deps RouterDeps) (*gin.Engine, error) {
	if deps.Config.Env == "dev" || deps.Config.Env == "local" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	tmpl, err := web.Templates()
	if err != nil {
		return nil, err
	}
	r.SetHTMLTemplate(tmpl)

	healthSvc := deps.Health
	if healthSvc == nil {
		healthSvc = health.NewService(deps.Config.LLMProvider, deps.HaltMessage == "")
	}
	healthHandler := func(c *gin.Context) {
		report := healthSvc.Status(c.Request.Context())
		respond.Status(c, report.OK, report)
	}

	if deps.HaltMessage != "" || deps.Web == nil {
		message := deps.HaltMessage
		if message == "" {
			message = "Application is not configured."
		}
		r.Use(middleware.RequestID(), middleware.Logging(), middleware.Recovery(nil))
		r.GET("/healthz", healthHandler)
		r.NoRoute(web.Halt(message))
		return r, nil
	}

	cfg := deps.Config
	h := deps.Web
	r.Use(
		middleware.RequestID(),
		middleware.Session(middleware.SessionConfig{
			MaxAgeSeconds: int(cfg.SessionTTL / time.Second),
			Secure:        cfg.CookieSecure,
		}),
		middleware.Logging(),
		middleware.Recovery(h.Panic),
	)
	r.GET("/healthz", healthHandler)
	r.GET("/metrics", metrics.Handler())

	csrf := middleware.CSRF(middleware.CSRFConfig{
		OnReject:   h.RejectCSRF,
		OnTooLarge: h.RejectTooLarge,
	})
	limiter := middleware.GenerationLimit(middleware.GenerationLimitConfig{
		Rate:      cfg.RateLimitRPS,
		Burst:     cfg.RateLimitBurst,
		IdleTTL:   cfg.SessionTTL,
		OnLimited: h.RateLimited,
	})

	h.RegisterRoutes(
		&r.RouterGroup,
		[]gin.HandlerFunc{middleware.BodyLimit(cfg.MaxUploadBytes), csrf},
		[]gin.HandlerFunc{csrf, limiter},
	)
	return r, nil
}

// Addr normalizes the listen address.
func Addr(port string) string {
	if port == "" {
		return ":8080"
	}
	if port[0] == ':' {
		return port
	}
	return ":" + port
}
