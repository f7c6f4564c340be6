// Package config loads runtime settings from the environment (and an optional
// .env file). Credentials have no defaults.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port    string
	GinMode string

	GeminiAPIKey   string
	GeminiBaseURL  string
	GeminiModel    string
	AssistantModel string

	CatalogPath string
	MaxAttempts int
	RetryDelay  time.Duration
	CallTimeout time.Duration

	EnableDB    bool
	DatabaseURL string
	SessionTTL  time.Duration
}

// Load reads the configuration. The Gemini key is checked by the commands that
// need it, not here.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Port:           getEnv("PORT", "8080"),
		GinMode:        getEnv("GIN_MODE", "release"),
		GeminiAPIKey:   strings.TrimSpace(os.Getenv("GEMINI_API_KEY")),
		GeminiBaseURL:  os.Getenv("GEMINI_BASE_URL"),
		GeminiModel:    getEnv("GEMINI_MODEL", "gemini-pro"),
		AssistantModel: getEnv("ASSISTANT_MODEL", "gemini-1.5-flash"),
		CatalogPath:    getEnv("CATALOG_PATH", "data_columns.json"),
		DatabaseURL:    os.Getenv("DATABASE_URL"),
		EnableDB:       strings.EqualFold(getEnv("ENABLE_DB", "false"), "true"),
	}

	var err error
	if cfg.MaxAttempts, err = getInt("MAX_ATTEMPTS", 3); err != nil {
		return nil, err
	}
	if cfg.MaxAttempts < 1 {
		return nil, fmt.Errorf("MAX_ATTEMPTS must be at least 1, got %d", cfg.MaxAttempts)
	}
	if cfg.RetryDelay, err = getDuration("RETRY_DELAY", 2*time.Second); err != nil {
		return nil, err
	}
	if cfg.CallTimeout, err = getDuration("CALL_TIMEOUT", 30*time.Second); err != nil {
		return nil, err
	}
	if cfg.SessionTTL, err = getDuration("SESSION_TTL", 12*time.Hour); err != nil {
		return nil, err
	}
	if cfg.RetryDelay < 0 || cfg.CallTimeout < 0 {
		return nil, fmt.Errorf("RETRY_DELAY and CALL_TIMEOUT must not be negative")
	}
	if cfg.SessionTTL <= 0 {
		return nil, fmt.Errorf("SESSION_TTL must be positive, got %s", cfg.SessionTTL)
	}

	if cfg.EnableDB && cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required when ENABLE_DB=true")
	}

	return cfg, nil
}

// RequireAPIKey fails when no Gemini credential was supplied.
func (c *Config) RequireAPIKey() error {
	if c.GeminiAPIKey == "" {
		return fmt.Errorf("GEMINI_API_KEY is required")
	}
	return nil
}

// String renders the configuration with the credential redacted.
func (c Config) String() string {
	key := "<unset>"
	if c.GeminiAPIKey != "" {
		key = "<redacted>"
	}
	return fmt.Sprintf("port=%s model=%s assistant_model=%s catalog=%s attempts=%d delay=%s timeout=%s db=%t api_key=%s",
		c.Port, c.GeminiModel, c.AssistantModel, c.CatalogPath, c.MaxAttempts, c.RetryDelay, c.CallTimeout, c.EnableDB, key)
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getInt(key string, fallback int) (int, error) {
	val := os.Getenv(key)
	if val == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return n, nil
}

// getDuration accepts Go durations ("2s") or a bare number of seconds.
func getDuration(key string, fallback time.Duration) (time.Duration, error) {
	val := os.Getenv(key)
	if val == "" {
		return fallback, nil
	}
	if secs, err := strconv.ParseFloat(val, 64); err == nil {
		return time.Duration(secs * float64(time.Second)), nil
	}
	d, err := time.ParseDuration(val)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return d, nil
}
