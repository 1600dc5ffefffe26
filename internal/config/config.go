package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	HTTPAddr         string
	APIKey           string
	DatabaseURL      string
	RedisURL         string
	TelegramBotToken string
	TelegramChatID   int64

	TracingEnabled bool
	OTLPEndpoint   string

	Provider ProviderConfig
	Scanner  ScannerConfig
	Log      LogConfig

	// Warnings collects problems found while loading; main logs them once the logger exists.
	Warnings []string
}

type ProviderConfig struct {
	APIKey             string
	BaseURL            string
	MinRequestInterval time.Duration
	RequestTimeout     time.Duration
	FailureThreshold   int
	CircuitCooldown    time.Duration
	BackoffBase        time.Duration
	OutcomeRetention   time.Duration
	OutcomeLogSize     int
	DefaultMaxDTE      int
}

type ScannerConfig struct {
	Enabled      bool
	Schedule     string
	Symbols      []string
	ContractType string
	MinScore     int
}

type LogConfig struct {
	Level       string
	Encoding    string
	File        string
	Development bool
}

const (
	defaultHTTPAddr        = ":8080"
	defaultRedisURL        = "localhost:6379"
	defaultPolygonBaseURL  = "https://api.polygon.io"
	defaultMinInterval     = 250 * time.Millisecond
	defaultRequestTimeout  = 15 * time.Second
	defaultFailures        = 3
	defaultCooldown        = 5 * time.Minute
	defaultBackoffBase     = 5 * time.Second
	defaultRetention       = 15 * time.Minute
	defaultOutcomeLogSize  = 500
	defaultMaxDTE          = 60
	defaultScannerSchedule = "0 */15 9-16 * * MON-FRI"
	defaultScannerMinScore = 70
)

var defaultScannerSymbols = []string{"SPY", "QQQ", "AAPL", "TSLA", "NVDA", "MSFT", "AMZN", "META"}

// Load reads configuration from the environment and, when CONFIG_FILE is set, a YAML file.
// Environment variables win over file values.
func Load() *Config {
	v := viper.New()
	v.AutomaticEnv()

	var warnings []string
	if file := strings.TrimSpace(v.GetString("CONFIG_FILE")); file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			warnings = append(warnings, fmt.Sprintf("failed to read CONFIG_FILE %s: %v", file, err))
		}
	}

	cfg := &Config{
		HTTPAddr:         stringOr(v, "HTTP_ADDR", defaultHTTPAddr),
		APIKey:           strings.TrimSpace(v.GetString("API_KEY")),
		DatabaseURL:      strings.TrimSpace(v.GetString("DATABASE_URL")),
		RedisURL:         strings.TrimSpace(v.GetString("REDIS_URL")),
		TelegramBotToken: strings.TrimSpace(v.GetString("TELEGRAM_BOT_TOKEN")),
		TelegramChatID:   v.GetInt64("TELEGRAM_ALERT_CHAT_ID"),
		TracingEnabled:   !strings.EqualFold(strings.TrimSpace(v.GetString("TRACING_ENABLED")), "false"),
		OTLPEndpoint:     stringOr(v, "OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
	}

	if cfg.DatabaseURL == "" {
		warnings = append(warnings, "DATABASE_URL not set, alert persistence disabled")
	}
	if cfg.RedisURL == "" {
		warnings = append(warnings, "REDIS_URL not set, defaulting to "+defaultRedisURL)
		cfg.RedisURL = defaultRedisURL
	}
	if cfg.TelegramBotToken == "" {
		warnings = append(warnings, "TELEGRAM_BOT_TOKEN not set, bot and in-app alerts disabled")
	}

	cfg.Provider = ProviderConfig{
		APIKey:             strings.TrimSpace(v.GetString("POLYGON_API_KEY")),
		BaseURL:            strings.TrimRight(stringOr(v, "POLYGON_BASE_URL", defaultPolygonBaseURL), "/"),
		MinRequestInterval: durationOr(v, &warnings, "PROVIDER_MIN_INTERVAL", defaultMinInterval),
		RequestTimeout:     durationOr(v, &warnings, "PROVIDER_REQUEST_TIMEOUT", defaultRequestTimeout),
		FailureThreshold:   positiveIntOr(v, &warnings, "PROVIDER_FAILURE_THRESHOLD", defaultFailures),
		CircuitCooldown:    durationOr(v, &warnings, "PROVIDER_CIRCUIT_COOLDOWN", defaultCooldown),
		BackoffBase:        durationOr(v, &warnings, "PROVIDER_BACKOFF_BASE", defaultBackoffBase),
		OutcomeRetention:   durationOr(v, &warnings, "PROVIDER_OUTCOME_RETENTION", defaultRetention),
		OutcomeLogSize:     positiveIntOr(v, &warnings, "PROVIDER_OUTCOME_LOG_SIZE", defaultOutcomeLogSize),
		DefaultMaxDTE:      positiveIntOr(v, &warnings, "DEFAULT_MAX_DTE", defaultMaxDTE),
	}
	if cfg.Provider.APIKey == "" {
		warnings = append(warnings, "POLYGON_API_KEY not set, provider calls will be rejected")
	}

	cfg.Scanner = ScannerConfig{
		Enabled:      strings.EqualFold(strings.TrimSpace(v.GetString("SCANNER_ENABLED")), "true"),
		Schedule:     stringOr(v, "SCANNER_SCHEDULE", defaultScannerSchedule),
		Symbols:      symbolList(v.GetString("SCANNER_SYMBOLS")),
		ContractType: strings.ToLower(stringOr(v, "SCANNER_CONTRACT_TYPE", "put")),
		MinScore:     positiveIntOr(v, &warnings, "SCANNER_MIN_SCORE", defaultScannerMinScore),
	}
	if len(cfg.Scanner.Symbols) == 0 {
		cfg.Scanner.Symbols = append([]string(nil), defaultScannerSymbols...)
	}
	if cfg.Scanner.ContractType != "put" && cfg.Scanner.ContractType != "call" {
		warnings = append(warnings, fmt.Sprintf("unsupported SCANNER_CONTRACT_TYPE=%q, defaulting to put", cfg.Scanner.ContractType))
		cfg.Scanner.ContractType = "put"
	}

	cfg.Log = LogConfig{
		Level:       stringOr(v, "LOG_LEVEL", "info"),
		Encoding:    stringOr(v, "LOG_ENCODING", "json"),
		File:        strings.TrimSpace(v.GetString("LOG_FILE")),
		Development: strings.EqualFold(strings.TrimSpace(v.GetString("LOG_DEVELOPMENT")), "true"),
	}
	if cfg.Log.Encoding != "json" && cfg.Log.Encoding != "console" {
		warnings = append(warnings, fmt.Sprintf("unsupported LOG_ENCODING=%q, defaulting to json", cfg.Log.Encoding))
		cfg.Log.Encoding = "json"
	}

	cfg.Warnings = warnings
	return cfg
}

func stringOr(v *viper.Viper, key, fallback string) string {
	if s := strings.TrimSpace(v.GetString(key)); s != "" {
		return s
	}
	return fallback
}

// positiveIntOr falls back when the value is missing, non-numeric or not positive.
// A value that is set but rejected adds a warning.
func positiveIntOr(v *viper.Viper, warnings *[]string, key string, fallback int) int {
	raw := strings.TrimSpace(v.GetString(key))
	if raw == "" {
		return fallback
	}
	if n := v.GetInt(key); n > 0 {
		return n
	}
	*warnings = append(*warnings, fmt.Sprintf("invalid %s=%q, want a positive integer, defaulting to %d", key, raw, fallback))
	return fallback
}

func durationOr(v *viper.Viper, warnings *[]string, key string, fallback time.Duration) time.Duration {
	raw := strings.TrimSpace(v.GetString(key))
	if raw == "" {
		return fallback
	}
	if d := v.GetDuration(key); d > 0 {
		return d
	}
	*warnings = append(*warnings, fmt.Sprintf("invalid %s=%q, want a positive duration, defaulting to %s", key, raw, fallback))
	return fallback
}

func symbolList(raw string) []string {
	var out []string
	seen := make(map[string]struct{})
	for _, part := range strings.Split(raw, ",") {
		sym := strings.ToUpper(strings.TrimSpace(part))
		if sym == "" {
			continue
		}
		if _, dup := seen[sym]; dup {
			continue
		}
		seen[sym] = struct{}{}
		out = append(out, sym)
	}
	return out
}
