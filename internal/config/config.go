package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"

	"github.com/riteshkumar/ledger-assistant/internal/errors"
	"github.com/riteshkumar/ledger-assistant/internal/logging"
	"github.com/riteshkumar/ledger-assistant/internal/models"
)

const defaultRates = "USD=32.5,EUR=35.5,XAU=2150"

type Config struct {
	ServerPort string
	Logging    logging.Config

	// DatabaseURL selects the Postgres audit repositories; empty keeps them in memory.
	DatabaseURL string
	// RedisAddr selects the Redis idempotency store; empty keeps it in memory.
	RedisAddr      string
	IdempotencyTTL time.Duration

	Rates models.RateTable

	AuditQueueSize int
	AuditWorkers   int

	RateLimitRPS   float64
	RateLimitBurst int

	ShutdownTimeout time.Duration
}

// Load reads configuration from the environment. A .env file in the working
// directory is applied first when present; variables already set win.
func Load() (*Config, error) {
	// A missing .env file is normal outside local development.
	_ = godotenv.Load()

	rates, err := ParseRates(getEnv("EXCHANGE_RATES", defaultRates))
	if err != nil {
		return nil, fmt.Errorf("EXCHANGE_RATES: %w", err)
	}

	cfg := &Config{
		ServerPort: getEnv("SERVER_PORT", "8080"),
		Logging: logging.Config{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
		DatabaseURL: getEnv("DATABASE_URL", ""),
		RedisAddr:   getEnv("REDIS_ADDR", ""),
		Rates:       rates,
	}

	if cfg.Logging.Development, err = getEnvAsBool("LOG_DEV", false); err != nil {
		return nil, err
	}
	if cfg.IdempotencyTTL, err = getEnvAsDuration("IDEMPOTENCY_TTL", 24*time.Hour); err != nil {
		return nil, err
	}
	if cfg.ShutdownTimeout, err = getEnvAsDuration("SHUTDOWN_TIMEOUT", 30*time.Second); err != nil {
		return nil, err
	}
	if cfg.AuditQueueSize, err = getEnvAsInt("AUDIT_QUEUE_SIZE", 1000); err != nil {
		return nil, err
	}
	if cfg.AuditWorkers, err = getEnvAsInt("AUDIT_WORKERS", 2); err != nil {
		return nil, err
	}
	if cfg.RateLimitBurst, err = getEnvAsInt("RATE_LIMIT_BURST", 100); err != nil {
		return nil, err
	}
	if cfg.RateLimitRPS, err = getEnvAsFloat("RATE_LIMIT_RPS", 50); err != nil {
		return nil, err
	}

	if cfg.AuditQueueSize <= 0 || cfg.AuditWorkers <= 0 {
		return nil, fmt.Errorf("AUDIT_QUEUE_SIZE and AUDIT_WORKERS must be positive")
	}
	return cfg, nil
}

// ParseRates parses "USD=32.5,EUR=35.5" into a rate table. Every code must be
// a valid non-home denomination and every rate must be positive.
func ParseRates(s string) (models.RateTable, error) {
	rates := make(models.RateTable)
	for _, pair := range strings.Split(s, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		code, value, ok := strings.Cut(pair, "=")
		if !ok {
			return nil, fmt.Errorf("malformed pair %q", pair)
		}
		d := models.Denomination(strings.ToUpper(strings.TrimSpace(code)))
		if !d.Valid() {
			return nil, fmt.Errorf("invalid denomination %q", code)
		}
		if d.IsHome() {
			return nil, fmt.Errorf("%s is the home currency and has no rate", d)
		}
		rate, err := decimal.NewFromString(strings.TrimSpace(value))
		if err != nil {
			return nil, fmt.Errorf("rate for %s: %w", d, err)
		}
		if !rate.IsPositive() {
			return nil, fmt.Errorf("rate for %s: %w", d, errors.ErrInvalidRate)
		}
		rates[d] = rate
	}
	return rates, nil
}

// getEnv fetches environment variable or returns default value
func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) (int, error) {
	raw, exists := os.LookupEnv(key)
	if !exists || raw == "" {
		return defaultValue, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return v, nil
}

func getEnvAsFloat(key string, defaultValue float64) (float64, error) {
	raw, exists := os.LookupEnv(key)
	if !exists || raw == "" {
		return defaultValue, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return v, nil
}

func getEnvAsBool(key string, defaultValue bool) (bool, error) {
	raw, exists := os.LookupEnv(key)
	if !exists || raw == "" {
		return defaultValue, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("%s: %w", key, err)
	}
	return v, nil
}

func getEnvAsDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	raw, exists := os.LookupEnv(key)
	if !exists || raw == "" {
		return defaultValue, nil
	}
	v, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return v, nil
}
