// Package config loads the worker's runtime configuration from environment
// variables (spec.md §6, External Interfaces), following the example pack's
// typed-struct-plus-Load-function shape rather than a flag or viper layer.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config is the fully resolved runtime configuration for the worker process.
type Config struct {
	DatabaseURL string
	RedisURL    string // optional; empty disables the distributed tick lock

	LMAPIURL        string
	LMAPIKey        string
	LMModel         string
	LMTimeout       time.Duration
	ChatAppID       string
	ChatAppSecret   string
	EncryptionKey   string

	TickInterval time.Duration

	SMTPHost     string
	SMTPPort     int
	SMTPUser     string
	SMTPPassword string
	SMTPFrom     string

	// BackendInternalURL is the base URL of the API process that serves
	// POST /internal/telegram/send-notification (spec.md §6) — this
	// worker only calls it, it never serves that route itself.
	BackendInternalURL string
	BotToken           string
	BotWebhookSecret   string
	FrontendURL        string

	HTTPAddr string

	LogLevel  string
	LogFormat string // "text" or "json"

	OTLPEndpoint string
}

// Load reads and validates configuration from the process environment.
func Load() (*Config, error) {
	cfg := &Config{
		DatabaseURL:        os.Getenv("DATABASE_URL"),
		RedisURL:           os.Getenv("REDIS_URL"),
		LMAPIURL:           getenvDefault("LM_API_URL", "https://api.openai.com"),
		LMAPIKey:           os.Getenv("LM_API_KEY"),
		LMModel:            getenvDefault("LM_MODEL", "gpt-4o-mini"),
		ChatAppID:          os.Getenv("CHAT_PLATFORM_APP_ID"),
		ChatAppSecret:      os.Getenv("CHAT_PLATFORM_APP_SECRET"),
		EncryptionKey:      os.Getenv("ENCRYPTION_KEY"),
		SMTPHost:           os.Getenv("SMTP_HOST"),
		SMTPUser:           os.Getenv("SMTP_USER"),
		SMTPPassword:       os.Getenv("SMTP_PASSWORD"),
		SMTPFrom:           getenvDefault("SMTP_FROM", "leadwatch@localhost"),
		BackendInternalURL: os.Getenv("BACKEND_INTERNAL_URL"),
		BotToken:           os.Getenv("BOT_TOKEN"),
		BotWebhookSecret:   os.Getenv("BOT_WEBHOOK_SECRET"),
		FrontendURL:        getenvDefault("FRONTEND_URL", "http://localhost:3000"),
		HTTPAddr:           getenvDefault("HTTP_ADDR", ":8080"),
		LogLevel:           getenvDefault("LOG_LEVEL", "info"),
		LogFormat:          getenvDefault("LOG_FORMAT", "text"),
		OTLPEndpoint:       os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("config: DATABASE_URL is required")
	}
	if cfg.LMAPIKey == "" {
		return nil, fmt.Errorf("config: LM_API_KEY is required")
	}
	if len(cfg.EncryptionKey) == 0 {
		return nil, fmt.Errorf("config: ENCRYPTION_KEY is required")
	}

	intervalMinutes, err := parseIntEnv("WORKER_INTERVAL_MINUTES", 1)
	if err != nil {
		return nil, err
	}
	cfg.TickInterval = time.Duration(intervalMinutes) * time.Minute

	timeoutSeconds, err := parseIntEnv("LM_TIMEOUT_SECONDS", 30)
	if err != nil {
		return nil, err
	}
	cfg.LMTimeout = time.Duration(timeoutSeconds) * time.Second

	port, err := parseIntEnv("SMTP_PORT", 587)
	if err != nil {
		return nil, err
	}
	cfg.SMTPPort = port

	return cfg, nil
}

func getenvDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func parseIntEnv(key string, fallback int) (int, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("config: parsing %s=%q: %w", key, raw, err)
	}
	return n, nil
}
