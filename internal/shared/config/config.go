package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	ProviderAnthropic = "anthropic"
	ProviderOpenAI    = "openai"

	DefaultModelAnthropic = "claude-3-sonnet-20240229"
	DefaultModelOpenAI    = "gpt-4o-mini"

	SessionStoreMemory = "memory"
	SessionStoreRedis  = "redis"
)

var (
	// ErrMissingCredential is returned by Validate when the generation-service key is absent.
	ErrMissingCredential = errors.New("generation service credential is not set")
	ErrUnknownProvider   = errors.New("unknown generation provider")
)

// Config holds application configuration.
type Config struct {
	Port            string
	Env             string
	LogLevel        string
	LLMProvider     string
	LLMModel        string
	LLMBaseURL      string
	AnthropicAPIKey string
	OpenAIAPIKey    string
	SessionStore    string
	SessionTTL      time.Duration
	RedisAddr       string
	RedisPassword   string
	RedisDB         int
	PromptsFile     string
	RateLimitRPS    float64
	RateLimitBurst  int
	MaxUploadBytes  int64
	CookieSecure    bool
}

// Load reads configuration from environment variables with sensible defaults.
func Load() Config {
	// Best-effort load of local env files for dev convenience.
	loadEnvFiles(".env", "cmd/.env")

	provider := normalizeProvider(getEnv("LLM_PROVIDER", ProviderAnthropic))
	return Config{
		Port:            getEnv("PORT", "8080"),
		Env:             normalizeEnv(getEnv("ENV", "dev")),
		LogLevel:        getEnv("LOG_LEVEL", "info"),
		LLMProvider:     provider,
		LLMModel:        getEnv("LLM_MODEL", DefaultModel(provider)),
		LLMBaseURL:      getEnv("LLM_BASE_URL", ""),
		AnthropicAPIKey: strings.TrimSpace(os.Getenv("ANTHROPIC_API_KEY")),
		OpenAIAPIKey:    strings.TrimSpace(os.Getenv("OPENAI_API_KEY")),
		SessionStore:    normalizeSessionStore(getEnv("SESSION_STORE", SessionStoreMemory)),
		SessionTTL:      time.Duration(getInt("SESSION_TTL_MINUTES", 120)) * time.Minute,
		RedisAddr:       getEnv("REDIS_ADDR", "127.0.0.1:6379"),
		RedisPassword:   getEnv("REDIS_PASSWORD", ""),
		RedisDB:         getInt("REDIS_DB", 0),
		PromptsFile:     getEnv("PROMPTS_FILE", ""),
		RateLimitRPS:    getFloat("RATE_LIMIT_RPS", 0.5),
		RateLimitBurst:  getInt("RATE_LIMIT_BURST", 5),
		MaxUploadBytes:  int64(getInt("MAX_UPLOAD_BYTES", 0)),
		CookieSecure:    getBool("COOKIE_SECURE", false),
	}
}

// Validate reports whether the credential for the selected provider is present.
func (c Config) Validate() error {
	if c.APIKey() == "" {
		return fmt.Errorf("%w: set %s", ErrMissingCredential, c.CredentialEnv())
	}
	return nil
}

// ForProvider returns a copy of c targeting provider. An empty model keeps the
// configured one only when the provider is unchanged; otherwise the provider's default is used.
func (c Config) ForProvider(provider, model string) (Config, error) {
	name, err := ParseProvider(provider)
	if err != nil {
		return c, err
	}
	model = strings.TrimSpace(model)
	if model == "" {
		model = c.LLMModel
		if name != c.LLMProvider || model == "" {
			model = DefaultModel(name)
		}
	}
	c.LLMProvider = name
	c.LLMModel = model
	return c, nil
}

// ParseProvider normalizes an explicit provider name.
func ParseProvider(raw string) (string, error) {
	switch name := strings.ToLower(strings.TrimSpace(raw)); name {
	case ProviderAnthropic, ProviderOpenAI:
		return name, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownProvider, raw)
	}
}

// DefaultModel is the model used when LLM_MODEL is not set.
func DefaultModel(provider string) string {
	if provider == ProviderOpenAI {
		return DefaultModelOpenAI
	}
	return DefaultModelAnthropic
}

// CredentialEnv names the environment variable holding the selected provider's key.
func (c Config) CredentialEnv() string {
	if c.LLMProvider == ProviderOpenAI {
		return "OPENAI_API_KEY"
	}
	return "ANTHROPIC_API_KEY"
}

// APIKey returns the credential for the selected provider.
func (c Config) APIKey() string {
	if c.LLMProvider == ProviderOpenAI {
		return c.OpenAIAPIKey
	}
	return c.AnthropicAPIKey
}

func getEnv(key, def string) string {
	if val := strings.TrimSpace(os.Getenv(key)); val != "" {
		return val
	}
	return def
}

func getInt(key string, def int) int {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	parsed, err := strconv.Atoi(raw)
	if err != nil || parsed < 0 {
		return def
	}
	return parsed
}

func getFloat(key string, def float64) float64 {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	parsed, err := strconv.ParseFloat(raw, 64)
	if err != nil || parsed < 0 {
		return def
	}
	return parsed
}

func getBool(key string, def bool) bool {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	parsed, err := strconv.ParseBool(raw)
	if err != nil {
		return def
	}
	return parsed
}

func normalizeEnv(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "production", "prod":
		return "production"
	case "staging":
		return "staging"
	default:
		return "dev"
	}
}

func normalizeProvider(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case ProviderOpenAI:
		return ProviderOpenAI
	default:
		return ProviderAnthropic
	}
}

func normalizeSessionStore(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case SessionStoreRedis:
		return SessionStoreRedis
	default:
		return SessionStoreMemory
	}
}
