package config

import (
	"encoding/json"
	"net/netip"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rotisserie/eris"
)

// Config holds runtime configuration values for the Babygo server.
type Config struct {
	DBPath         string
	ServerPort     int
	LogLevel       string
	LLMProvider    string
	LLMEndpoint    string
	LLMAPIKey      string
	LLMModels      []string
	LLMTemperature float64
	LLMTimeout     time.Duration
	SentryDSN      string
	Environment    string
	RateLimit      RateLimitConfig
	SessionTTL     time.Duration
	ShutdownGrace  time.Duration
	// TrustedProxies lists the peers whose forwarding headers name the client address.
	TrustedProxies []netip.Prefix
}

// RateLimitConfig configures the per-client HTTP token bucket.
type RateLimitConfig struct {
	Burst             int
	RequestsPerSecond float64
	ClientTTL         time.Duration
}

const (
	ProviderOpenAI = "openai"
	ProviderGemini = "gemini"
)

const (
	defaultDBPath        = "./data/babygo.db"
	defaultServerPort    = 8080
	defaultLogLevel      = "info"
	defaultEnvironment   = "development"
	defaultProvider      = ProviderGemini
	defaultModel         = "gemini-3-flash-preview"
	defaultTemperature   = 0.7
	defaultLLMTimeout    = 60 * time.Second
	defaultRateBurst     = 10
	defaultRatePerSecond = 1.0
	defaultRateClientTTL = 10 * time.Minute
	defaultSessionTTL    = 24 * time.Hour
	defaultShutdownGrace = 10 * time.Second
)

// Load reads configuration values from environment variables, applying defaults where necessary.
func Load() (*Config, error) {
	cfg := &Config{
		DBPath:      getEnv("DB_PATH", defaultDBPath),
		LogLevel:    getEnv("LOG_LEVEL", defaultLogLevel),
		LLMProvider: strings.ToLower(getEnv("LLM_PROVIDER", defaultProvider)),
		LLMEndpoint: os.Getenv("LLM_ENDPOINT"),
		LLMAPIKey:   getEnv("LLM_API_KEY", os.Getenv("API_KEY")),
		LLMModels:   []string{defaultModel},
		SentryDSN:   os.Getenv("SENTRY_DSN"),
		Environment: getEnv("ENV", defaultEnvironment),
	}

	switch cfg.LLMProvider {
	case ProviderOpenAI, ProviderGemini:
	default:
		return nil, eris.Errorf("invalid LLM_PROVIDER value: %s", cfg.LLMProvider)
	}

	if modelsJSON := os.Getenv("LLM_MODELS"); modelsJSON != "" {
		models, err := parseModels(modelsJSON)
		if err != nil {
			return nil, eris.Wrap(err, "parsing LLM_MODELS")
		}
		cfg.LLMModels = models
	}

	portValue := getEnv("SERVER_PORT", strconv.Itoa(defaultServerPort))
	port, err := strconv.Atoi(portValue)
	if err != nil {
		return nil, eris.Wrapf(err, "invalid SERVER_PORT value: %s", portValue)
	}
	cfg.ServerPort = port

	if cfg.LLMTemperature, err = getFloat("LLM_TEMPERATURE", defaultTemperature); err != nil {
		return nil, err
	}
	if cfg.LLMTemperature < 0 {
		return nil, eris.Errorf("invalid LLM_TEMPERATURE value: %v must not be negative", cfg.LLMTemperature)
	}
	if cfg.LLMTimeout, err = getDuration("LLM_TIMEOUT", defaultLLMTimeout); err != nil {
		return nil, err
	}
	if cfg.RateLimit.Burst, err = getInt("RATE_LIMIT_BURST", defaultRateBurst); err != nil {
		return nil, err
	}
	if cfg.RateLimit.RequestsPerSecond, err = getFloat("RATE_LIMIT_RPS", defaultRatePerSecond); err != nil {
		return nil, err
	}
	if cfg.RateLimit.ClientTTL, err = getDuration("RATE_LIMIT_CLIENT_TTL", defaultRateClientTTL); err != nil {
		return nil, err
	}
	if cfg.SessionTTL, err = getDuration("SESSION_TTL", defaultSessionTTL); err != nil {
		return nil, err
	}
	if cfg.ShutdownGrace, err = getDuration("SHUTDOWN_GRACE", defaultShutdownGrace); err != nil {
		return nil, err
	}
	if cfg.TrustedProxies, err = parseTrustedProxies(os.Getenv("TRUSTED_PROXIES")); err != nil {
		return nil, err
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getInt(key string, fallback int) (int, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback, nil
	}
	value, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0, eris.Wrapf(err, "invalid %s value: %s", key, raw)
	}
	return value, nil
}

func getFloat(key string, fallback float64) (float64, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback, nil
	}
	value, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		return 0, eris.Wrapf(err, "invalid %s value: %s", key, raw)
	}
	return value, nil
}

func getDuration(key string, fallback time.Duration) (time.Duration, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback, nil
	}
	value, err := time.ParseDuration(strings.TrimSpace(raw))
	if err != nil {
		return 0, eris.Wrapf(err, "invalid %s value: %s", key, raw)
	}
	return value, nil
}

func parseModels(raw string) ([]string, error) {
	// Accept either a JSON array of strings or an object with a `models` field.
	var arrayInput []string
	if err := json.Unmarshal([]byte(raw), &arrayInput); err == nil {
		if len(arrayInput) == 0 {
			return nil, eris.New("models list is empty")
		}
		return arrayInput, nil
	}

	var objectInput struct {
		Models []string `json:"models"`
	}
	if err := json.Unmarshal([]byte(raw), &objectInput); err != nil {
		return nil, eris.Wrap(err, "decoding JSON")
	}

	if len(objectInput.Models) == 0 {
		return nil, eris.New("models list is empty")
	}

	return objectInput.Models, nil
}

// parseTrustedProxies reads a comma separated list of CIDR ranges or bare addresses.
func parseTrustedProxies(raw string) ([]netip.Prefix, error) {
	var prefixes []netip.Prefix
	for _, entry := range strings.Split(raw, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}

		if strings.Contains(entry, "/") {
			prefix, err := netip.ParsePrefix(entry)
			if err != nil {
				return nil, eris.Wrapf(err, "invalid TRUSTED_PROXIES entry: %s", entry)
			}
			prefixes = append(prefixes, prefix.Masked())
			continue
		}

		addr, err := netip.ParseAddr(entry)
		if err != nil {
			return nil, eris.Wrapf(err, "invalid TRUSTED_PROXIES entry: %s", entry)
		}
		addr = addr.Unmap()
		prefixes = append(prefixes, netip.PrefixFrom(addr, addr.BitLen()))
	}
	return prefixes, nil
}
