package config

import (
	"net/netip"
	"strings"
	"testing"
	"time"
)

func clearEnv(t *testing.T) {
	t.Helper()

	for _, key := range []string{
		"DB_PATH", "SERVER_PORT", "LOG_LEVEL", "LLM_PROVIDER", "LLM_ENDPOINT", "LLM_API_KEY",
		"API_KEY", "LLM_MODELS", "LLM_TEMPERATURE", "LLM_TIMEOUT", "SENTRY_DSN", "ENV",
		"RATE_LIMIT_BURST", "RATE_LIMIT_RPS", "RATE_LIMIT_CLIENT_TTL", "SESSION_TTL", "SHUTDOWN_GRACE",
		"TRUSTED_PROXIES",
	} {
		t.Setenv(key, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	if cfg.DBPath != defaultDBPath {
		t.Errorf("expected default DB path %q, got %q", defaultDBPath, cfg.DBPath)
	}

	if cfg.ServerPort != defaultServerPort {
		t.Errorf("expected default server port %d, got %d", defaultServerPort, cfg.ServerPort)
	}

	if cfg.LogLevel != defaultLogLevel {
		t.Errorf("expected default log level %q, got %q", defaultLogLevel, cfg.LogLevel)
	}

	if cfg.Environment != defaultEnvironment {
		t.Errorf("expected default environment %q, got %q", defaultEnvironment, cfg.Environment)
	}

	if cfg.LLMProvider != ProviderGemini {
		t.Errorf("expected default provider %q, got %q", ProviderGemini, cfg.LLMProvider)
	}

	if len(cfg.LLMModels) != 1 || cfg.LLMModels[0] != defaultModel {
		t.Errorf("expected default model list [%s], got %v", defaultModel, cfg.LLMModels)
	}

	if cfg.LLMTimeout != defaultLLMTimeout {
		t.Errorf("expected LLM timeout %s, got %s", defaultLLMTimeout, cfg.LLMTimeout)
	}

	if cfg.RateLimit.Burst != defaultRateBurst {
		t.Errorf("expected rate limit burst %d, got %d", defaultRateBurst, cfg.RateLimit.Burst)
	}

	if cfg.SessionTTL != defaultSessionTTL {
		t.Errorf("expected session TTL %s, got %s", defaultSessionTTL, cfg.SessionTTL)
	}

	if cfg.ShutdownGrace != defaultShutdownGrace {
		t.Errorf("expected shutdown grace %s, got %s", defaultShutdownGrace, cfg.ShutdownGrace)
	}

	if cfg.LLMAPIKey != "" {
		t.Errorf("expected empty LLM API key, got %q", cfg.LLMAPIKey)
	}

	if cfg.SentryDSN != "" {
		t.Errorf("expected empty Sentry DSN, got %q", cfg.SentryDSN)
	}
}

func TestLoadWithExplicitValues(t *testing.T) {
	clearEnv(t)
	t.Setenv("DB_PATH", "/tmp/babygo.db")
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("LLM_PROVIDER", "OpenAI")
	t.Setenv("LLM_ENDPOINT", "https://example.com/llm")
	t.Setenv("LLM_API_KEY", "secret")
	t.Setenv("LLM_MODELS", `["alpha","beta"]`)
	t.Setenv("LLM_TIMEOUT", "15s")
	t.Setenv("RATE_LIMIT_RPS", "2.5")
	t.Setenv("SENTRY_DSN", "dsn")
	t.Setenv("ENV", "production")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	if cfg.DBPath != "/tmp/babygo.db" {
		t.Errorf("expected DB path %q, got %q", "/tmp/babygo.db", cfg.DBPath)
	}

	if cfg.ServerPort != 9090 {
		t.Errorf("expected server port 9090, got %d", cfg.ServerPort)
	}

	if cfg.LLMProvider != ProviderOpenAI {
		t.Errorf("expected provider %q, got %q", ProviderOpenAI, cfg.LLMProvider)
	}

	if cfg.LLMEndpoint != "https://example.com/llm" {
		t.Errorf("expected LLM endpoint https://example.com/llm, got %q", cfg.LLMEndpoint)
	}

	if cfg.LLMAPIKey != "secret" {
		t.Errorf("expected LLM API key secret, got %q", cfg.LLMAPIKey)
	}

	expectedModels := []string{"alpha", "beta"}
	if len(cfg.LLMModels) != len(expectedModels) {
		t.Fatalf("expected %d models, got %d", len(expectedModels), len(cfg.LLMModels))
	}
	for i, model := range cfg.LLMModels {
		if model != expectedModels[i] {
			t.Errorf("expected model %q at index %d, got %q", expectedModels[i], i, model)
		}
	}

	if cfg.LLMTimeout != 15*time.Second {
		t.Errorf("expected LLM timeout 15s, got %s", cfg.LLMTimeout)
	}

	if cfg.RateLimit.RequestsPerSecond != 2.5 {
		t.Errorf("expected 2.5 requests per second, got %v", cfg.RateLimit.RequestsPerSecond)
	}

	if cfg.Environment != "production" {
		t.Errorf("expected environment production, got %q", cfg.Environment)
	}
}

func TestLoadFallsBackToLegacyAPIKey(t *testing.T) {
	clearEnv(t)
	t.Setenv("API_KEY", "legacy")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	if cfg.LLMAPIKey != "legacy" {
		t.Fatalf("expected API_KEY fallback, got %q", cfg.LLMAPIKey)
	}
}

func TestLoadWithModelObject(t *testing.T) {
	clearEnv(t)
	t.Setenv("LLM_MODELS", `{"models":["gamma","delta"]}`)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	expected := []string{"gamma", "delta"}
	if len(cfg.LLMModels) != len(expected) {
		t.Fatalf("expected %d models, got %d", len(expected), len(cfg.LLMModels))
	}
	for i, model := range cfg.LLMModels {
		if model != expected[i] {
			t.Errorf("expected model %q at index %d, got %q", expected[i], i, model)
		}
	}
}

func TestLoadInvalidPort(t *testing.T) {
	clearEnv(t)
	t.Setenv("SERVER_PORT", "invalid")

	_, err := Load()
	if err == nil {
		t.Fatalf("expected error for invalid port, got nil")
	}

	if !strings.Contains(err.Error(), "invalid SERVER_PORT value") {
		t.Fatalf("expected error to mention invalid SERVER_PORT value, got %v", err)
	}
}

func TestLoadInvalidProvider(t *testing.T) {
	clearEnv(t)
	t.Setenv("LLM_PROVIDER", "carrier-pigeon")

	_, err := Load()
	if err == nil || !strings.Contains(err.Error(), "invalid LLM_PROVIDER value") {
		t.Fatalf("expected invalid provider error, got %v", err)
	}
}

func TestLoadInvalidDuration(t *testing.T) {
	clearEnv(t)
	t.Setenv("SESSION_TTL", "forever")

	_, err := Load()
	if err == nil || !strings.Contains(err.Error(), "invalid SESSION_TTL value") {
		t.Fatalf("expected invalid SESSION_TTL error, got %v", err)
	}
}

func TestLoadInvalidModels(t *testing.T) {
	clearEnv(t)
	t.Setenv("LLM_MODELS", `{"models":null}`)

	_, err := Load()
	if err == nil {
		t.Fatalf("expected error when models JSON is invalid, got nil")
	}

	if !strings.Contains(err.Error(), "parsing LLM_MODELS") {
		t.Fatalf("expected error to mention parsing LLM_MODELS, got %v", err)
	}
}

func TestLoadKeepsZeroTemperature(t *testing.T) {
	clearEnv(t)
	t.Setenv("LLM_TEMPERATURE", "0")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.LLMTemperature != 0 {
		t.Fatalf("expected temperature 0, got %v", cfg.LLMTemperature)
	}
}

func TestLoadRejectsNegativeTemperature(t *testing.T) {
	clearEnv(t)
	t.Setenv("LLM_TEMPERATURE", "-0.5")

	_, err := Load()
	if err == nil {
		t.Fatalf("expected error for negative temperature")
	}
	if !strings.Contains(err.Error(), "LLM_TEMPERATURE") {
		t.Fatalf("expected error to name LLM_TEMPERATURE, got %v", err)
	}
}

func TestLoadTrustedProxies(t *testing.T) {
	clearEnv(t)
	t.Setenv("TRUSTED_PROXIES", " 10.0.0.0/8, 192.168.1.7 ,::1")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	want := []netip.Prefix{
		netip.MustParsePrefix("10.0.0.0/8"),
		netip.MustParsePrefix("192.168.1.7/32"),
		netip.MustParsePrefix("::1/128"),
	}
	if len(cfg.TrustedProxies) != len(want) {
		t.Fatalf("expected %d proxies, got %v", len(want), cfg.TrustedProxies)
	}
	for i, prefix := range want {
		if cfg.TrustedProxies[i] != prefix {
			t.Fatalf("expected proxy %d to be %s, got %s", i, prefix, cfg.TrustedProxies[i])
		}
	}
}

func TestLoadNoTrustedProxiesByDefault(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if len(cfg.TrustedProxies) != 0 {
		t.Fatalf("expected no trusted proxies, got %v", cfg.TrustedProxies)
	}
}

func TestLoadInvalidTrustedProxy(t *testing.T) {
	clearEnv(t)
	t.Setenv("TRUSTED_PROXIES", "10.0.0.0/8,not-an-ip")

	_, err := Load()
	if err == nil {
		t.Fatalf("expected error for invalid proxy entry")
	}
	if !strings.Contains(err.Error(), "TRUSTED_PROXIES") {
		t.Fatalf("expected error to name TRUSTED_PROXIES, got %v", err)
	}
}
