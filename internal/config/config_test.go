package config

import (
	"strings"
	"testing"
	"time"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"PORT", "GIN_MODE", "GEMINI_API_KEY", "GEMINI_BASE_URL", "GEMINI_MODEL", "ASSISTANT_MODEL", "CATALOG_PATH",
		"MAX_ATTEMPTS", "RETRY_DELAY", "CALL_TIMEOUT", "ENABLE_DB", "DATABASE_URL", "SESSION_TTL",
	} {
		t.Setenv(key, "")
	}
}

func TestLoadConfigRequiresDatabaseURL(t *testing.T) {
	clearEnv(t)
	t.Setenv("ENABLE_DB", "true")
	if _, err := Load(); err == nil {
		t.Fatal("expected error when DATABASE_URL is missing")
	}
}

func TestLoadConfigUsesDefaults(t *testing.T) {
	clearEnv(t)
	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Port != "8080" {
		t.Fatalf("expected default port 8080, got %s", cfg.Port)
	}
	if cfg.MaxAttempts != 3 || cfg.RetryDelay != 2*time.Second {
		t.Fatalf("expected 3 attempts with 2s delay, got %d / %s", cfg.MaxAttempts, cfg.RetryDelay)
	}
	if cfg.CatalogPath != "data_columns.json" {
		t.Fatalf("unexpected catalog path %q", cfg.CatalogPath)
	}
	if err := cfg.RequireAPIKey(); err == nil {
		t.Fatal("expected missing API key to be reported")
	}
}

func TestLoadConfigDurations(t *testing.T) {
	clearEnv(t)
	t.Setenv("RETRY_DELAY", "0.5")
	t.Setenv("CALL_TIMEOUT", "1m")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.RetryDelay != 500*time.Millisecond || cfg.CallTimeout != time.Minute {
		t.Fatalf("unexpected durations: %s / %s", cfg.RetryDelay, cfg.CallTimeout)
	}

	t.Setenv("RETRY_DELAY", "soon")
	if _, err := Load(); err == nil {
		t.Fatal("expected error for an unparseable duration")
	}
}

func TestLoadConfigRejectsZeroAttempts(t *testing.T) {
	clearEnv(t)
	t.Setenv("MAX_ATTEMPTS", "0")
	if _, err := Load(); err == nil {
		t.Fatal("expected error for MAX_ATTEMPTS=0")
	}
}

func TestLoadConfigRejectsNonPositiveSessionTTL(t *testing.T) {
	for _, v := range []string{"0", "-1h", "-30"} {
		clearEnv(t)
		t.Setenv("SESSION_TTL", v)
		if _, err := Load(); err == nil || !strings.Contains(err.Error(), "SESSION_TTL") {
			t.Fatalf("SESSION_TTL=%s: expected error, got %v", v, err)
		}
	}
}

func TestLoadConfigRejectsNegativeDelays(t *testing.T) {
	clearEnv(t)
	t.Setenv("RETRY_DELAY", "-2s")
	if _, err := Load(); err == nil {
		t.Fatal("expected error for a negative RETRY_DELAY")
	}

	clearEnv(t)
	t.Setenv("CALL_TIMEOUT", "-1")
	if _, err := Load(); err == nil {
		t.Fatal("expected error for a negative CALL_TIMEOUT")
	}
}

func TestConfigStringRedactsKey(t *testing.T) {
	clearEnv(t)
	t.Setenv("GEMINI_API_KEY", "secret-value")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := cfg.RequireAPIKey(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s := cfg.String(); strings.Contains(s, "secret-value") || !strings.Contains(s, "<redacted>") {
		t.Fatalf("credential leaked in %q", s)
	}
}
