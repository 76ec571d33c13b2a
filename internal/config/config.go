package config

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	// Telegram
	TelegramToken  string
	WebhookBaseURL string
	WebhookSecret  string
	SendRatePerSec float64

	// Database
	DatabaseURL string
	RedisURL    string

	// Dashboard
	FrontendURL       string
	JWTSecret         string
	DashboardTokenTTL time.Duration

	// Scheduler
	CronSecret      string
	DefaultTimezone string
	InternalCron    bool
	MorningWindow   Window
	AfternoonWindow Window
	EveningWindow   Window
	ResetWindow     Window

	// Logging
	LogLevel      string
	LogFile       string
	LogMaxSizeMB  int
	LogMaxBackups int
	LogMaxAgeDays int

	// App
	Environment string
	Port        string
}

// Window is a half-open range of local hours [Start, End).
type Window struct {
	Start int
	End   int
}

func (w Window) Contains(hour int) bool {
	return hour >= w.Start && hour < w.End
}

func (w Window) String() string {
	return fmt.Sprintf("%02d-%02d", w.Start, w.End)
}

func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

// UseWebhook reports whether updates arrive through the HTTP webhook instead of long polling.
func (c *Config) UseWebhook() bool {
	return c.WebhookBaseURL != ""
}

func (c *Config) WebhookURL() string {
	return strings.TrimRight(c.WebhookBaseURL, "/") + "/webhook/" + c.WebhookSecret
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		TelegramToken:   getEnv("TELEGRAM_BOT_TOKEN", os.Getenv("BOT_TOKEN")),
		WebhookBaseURL:  getEnv("WEBHOOK_BASE_URL", os.Getenv("RENDER_URL")),
		WebhookSecret:   os.Getenv("WEBHOOK_SECRET"),
		DatabaseURL:     os.Getenv("DATABASE_URL"),
		RedisURL:        os.Getenv("REDIS_URL"),
		FrontendURL:     os.Getenv("FRONTEND_URL"),
		JWTSecret:       os.Getenv("JWT_SECRET"),
		CronSecret:      os.Getenv("CRON_SECRET"),
		DefaultTimezone: getEnv("DEFAULT_TIMEZONE", "Asia/Almaty"),
		Environment:     getEnv("ENVIRONMENT", "development"),
		Port:            getEnv("PORT", "10000"),
		LogFile:         os.Getenv("LOG_FILE"),
	}

	if cfg.TelegramToken == "" {
		return nil, fmt.Errorf("TELEGRAM_BOT_TOKEN is required")
	}
	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	if _, err := time.LoadLocation(cfg.DefaultTimezone); err != nil {
		return nil, fmt.Errorf("invalid DEFAULT_TIMEZONE %q: %w", cfg.DefaultTimezone, err)
	}

	if cfg.WebhookSecret == "" {
		cfg.WebhookSecret = deriveSecret("webhook", cfg.TelegramToken)
	}
	if cfg.JWTSecret == "" {
		cfg.JWTSecret = deriveSecret("dashboard", cfg.TelegramToken)
	}

	defaultLevel := "info"
	if cfg.IsDevelopment() {
		defaultLevel = "debug"
	}
	cfg.LogLevel = getEnv("LOG_LEVEL", defaultLevel)

	var err error
	if cfg.LogMaxSizeMB, err = getEnvInt("LOG_MAX_SIZE_MB", 50); err != nil {
		return nil, err
	}
	if cfg.LogMaxBackups, err = getEnvInt("LOG_MAX_BACKUPS", 5); err != nil {
		return nil, err
	}
	if cfg.LogMaxAgeDays, err = getEnvInt("LOG_MAX_AGE_DAYS", 28); err != nil {
		return nil, err
	}

	rate, err := strconv.ParseFloat(getEnv("SEND_RATE_PER_SEC", "25"), 64)
	if err != nil || rate <= 0 {
		return nil, fmt.Errorf("invalid SEND_RATE_PER_SEC: %q", os.Getenv("SEND_RATE_PER_SEC"))
	}
	cfg.SendRatePerSec = rate

	ttl, err := time.ParseDuration(getEnv("DASHBOARD_TOKEN_TTL", "24h"))
	if err != nil {
		return nil, fmt.Errorf("invalid DASHBOARD_TOKEN_TTL: %w", err)
	}
	cfg.DashboardTokenTTL = ttl

	if cfg.InternalCron, err = getEnvBool("INTERNAL_CRON", true); err != nil {
		return nil, err
	}

	if cfg.MorningWindow, err = getEnvWindow("MORNING_WINDOW", Window{Start: 7, End: 11}); err != nil {
		return nil, err
	}
	if cfg.AfternoonWindow, err = getEnvWindow("AFTERNOON_WINDOW", Window{Start: 13, End: 16}); err != nil {
		return nil, err
	}
	if cfg.EveningWindow, err = getEnvWindow("EVENING_WINDOW", Window{Start: 20, End: 23}); err != nil {
		return nil, err
	}
	if cfg.ResetWindow, err = getEnvWindow("RESET_WINDOW", Window{Start: 0, End: 2}); err != nil {
		return nil, err
	}

	return cfg, nil
}

// ParseWindow parses "H1-H2" into a Window. End may be 24.
func ParseWindow(s string) (Window, error) {
	parts := strings.Split(strings.TrimSpace(s), "-")
	if len(parts) != 2 {
		return Window{}, fmt.Errorf("window %q: expected H1-H2", s)
	}
	start, err := strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil {
		return Window{}, fmt.Errorf("window %q: %w", s, err)
	}
	end, err := strconv.Atoi(strings.TrimSpace(parts[1]))
	if err != nil {
		return Window{}, fmt.Errorf("window %q: %w", s, err)
	}
	if start < 0 || end > 24 || start >= end {
		return Window{}, fmt.Errorf("window %q: hours out of range", s)
	}
	return Window{Start: start, End: end}, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}

func getEnvBool(key string, defaultValue bool) (bool, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		return false, fmt.Errorf("invalid %s: %w", key, err)
	}
	return b, nil
}

func getEnvWindow(key string, defaultValue Window) (Window, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	w, err := ParseWindow(value)
	if err != nil {
		return Window{}, fmt.Errorf("invalid %s: %w", key, err)
	}
	return w, nil
}

func deriveSecret(purpose, token string) string {
	sum := sha256.Sum256([]byte(purpose + ":" + token))
	return hex.EncodeToString(sum[:16])
}
