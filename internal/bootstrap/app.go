package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"doc-assistant/internal/analysis"
	"doc-assistant/internal/llm"
	"doc-assistant/internal/llm/anthropic"
	"doc-assistant/internal/llm/openai"
	"doc-assistant/internal/prompts"
	"doc-assistant/internal/services/health"
	"doc-assistant/internal/sessions"
	"doc-assistant/internal/shared/config"
	"doc-assistant/internal/shared/server"
	"doc-assistant/internal/shared/telemetry"
	"doc-assistant/internal/web"
)

const sweepInterval = time.Minute

// App holds shared dependencies.
type App struct {
	Config     config.Config
	Router     *gin.Engine
	Store      sessions.Store
	Provider   llm.Provider
	Catalog    *prompts.Catalog
	Controller *analysis.Controller
	Health     *health.Service
	// ConfigErr is set when the credential is missing; Router then only serves the halt page.
	ConfigErr error

	closers []func() error
	cancel  context.CancelFunc
}

// Build prepares dependencies and routes. A missing credential is not an error here:
// the returned App serves the halt page instead of the interactive flow.
func Build(cfg config.Config) (*App, error) {
	return build(cfg, nil)
}

// BuildWithProvider wires the app around an already constructed provider.
func BuildWithProvider(cfg config.Config, provider llm.Provider) (*App, error) {
	return build(cfg, provider)
}

func build(cfg config.Config, provider llm.Provider) (*App, error) {
	if strings.TrimSpace(cfg.Env) == "" {
		cfg.Env = "dev"
	}
	app := &App{Config: cfg}

	if provider == nil {
		if err := cfg.Validate(); err != nil {
			telemetry.Error("bootstrap.config_invalid", map[string]any{"error": err.Error()})
			app.ConfigErr = err
			app.Health = health.NewService(cfg.LLMProvider, false)
			router, rerr := server.NewRouter(server.RouterDeps{
				Config:      cfg,
				Health:      app.Health,
				HaltMessage: haltMessage(cfg, err),
			})
			if rerr != nil {
				return nil, rerr
			}
			app.Router = router
			return app, nil
		}
		p, err := NewProvider(cfg)
		if err != nil {
			return nil, err
		}
		provider = p
	}
	app.Provider = provider

	ctx, cancel := context.WithCancel(context.Background())
	app.cancel = cancel

	store, pinger, err := buildStore(ctx, app, cfg)
	if err != nil {
		cancel()
		return nil, err
	}
	app.Store = store

	catalog := prompts.Default()
	if strings.TrimSpace(cfg.PromptsFile) != "" {
		catalog, err = prompts.LoadFile(cfg.PromptsFile)
		if err != nil {
			app.Close()
			return nil, fmt.Errorf("load prompts: %w", err)
		}
	}
	app.Catalog = catalog

	app.Controller = analysis.NewController(store, catalog, llm.NewClient(provider))
	app.Health = health.NewService(provider.Name(), true)
	if pinger != nil {
		app.Health.Register("redis", pinger)
	}

	router, err := server.NewRouter(server.RouterDeps{
		Config: cfg,
		Web:    web.NewHandler(app.Controller, providerLabel(provider.Name())),
		Health: app.Health,
	})
	if err != nil {
		app.Close()
		return nil, err
	}
	app.Router = router

	telemetry.Info("bootstrap.ready", map[string]any{
		"provider":      provider.Name(),
		"model":         cfg.LLMModel,
		"session_store": cfg.SessionStore,
		"prompts_file":  cfg.PromptsFile,
	})
	return app, nil
}

// Close releases background workers and connections.
func (a *App) Close() error {
	if a == nil {
		return nil
	}
	if a.cancel != nil {
		a.cancel()
	}
	var errs []error
	for _, closeFn := range a.closers {
		if err := closeFn(); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}

// NewProvider constructs the generation provider selected by cfg.
func NewProvider(cfg config.Config) (llm.Provider, error) {
	switch cfg.LLMProvider {
	case config.ProviderOpenAI:
		return openai.NewPromptClient(cfg.OpenAIAPIKey, cfg.LLMModel, cfg.LLMBaseURL)
	default:
		return anthropic.NewClient(cfg.AnthropicAPIKey, cfg.LLMModel, cfg.LLMBaseURL)
	}
}

func buildStore(ctx context.Context, app *App, cfg config.Config) (sessions.Store, health.Pinger, error) {
	switch cfg.SessionStore {
	case config.SessionStoreRedis:
		store, err := sessions.NewRedisStore(ctx, sessions.RedisOptions{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		}, cfg.SessionTTL)
		if err != nil {
			return nil, nil, err
		}
		app.closers = append(app.closers, store.Close)
		return store, store, nil
	default:
		store := sessions.NewMemoryStore(cfg.SessionTTL, nil)
		store.StartSweeper(ctx, sweepInterval)
		return store, nil, nil
	}
}

func haltMessage(cfg config.Config, err error) string {
	if errors.Is(err, config.ErrMissingCredential) {
		return "Please set your " + cfg.CredentialEnv() + " environment variable"
	}
	return err.Error()
}

func providerLabel(name string) string {
	switch name {
	case config.ProviderAnthropic:
		return "Claude"
	case config.ProviderOpenAI:
		return "OpenAI"
	default:
		return name
	}
}
