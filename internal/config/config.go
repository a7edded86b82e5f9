// Package config loads application configuration from environment variables.
package config

import (
	"os"
	"time"

	"github.com/sirupsen/logrus"
)

// Config holds the runtime configuration of the reservation server.  Each
// field corresponds to an environment variable.
type Config struct {
	Env      string // APP_ENV: dev, test or prod
	Port     string // APP_PORT
	LogLevel string // LOG_LEVEL, default info

	DBDriver string // DB_DRIVER: postgres (default) or mysql
	DBUser   string
	DBPass   string // may be empty
	DBHost   string
	DBPort   string
	DBName   string

	JWTSecret           string // signs admin access tokens
	StripeWebhookSecret string // STRIPE_WEBHOOK_SECRET
	LedgerPath          string // WEBHOOK_LEDGER_PATH, BoltDB file of processed events
	LedgerRetention     time.Duration

	HoldTTL        time.Duration // HOLD_TTL, 0 disables expiry of pending holds
	ReaperSchedule string        // REAPER_SCHEDULE, cron spec
}

// Load reads configuration values from environment variables.  Required
// variables are enforced by must(); a missing value stops the process.
func Load() Config {
	return Config{
		Env:      must("APP_ENV"),
		Port:     must("APP_PORT"),
		LogLevel: getenv("LOG_LEVEL", "info"),

		DBDriver: getenv("DB_DRIVER", "postgres"),
		DBUser:   must("DB_USER"),
		DBPass:   os.Getenv("DB_PASS"),
		DBHost:   must("DB_HOST"),
		DBPort:   must("DB_PORT"),
		DBName:   must("DB_NAME"),

		JWTSecret:           must("JWT_SECRET"),
		StripeWebhookSecret: must("STRIPE_WEBHOOK_SECRET"),
		LedgerPath:          getenv("WEBHOOK_LEDGER_PATH", "data/webhook-ledger.db"),
		LedgerRetention:     envDur("WEBHOOK_LEDGER_RETENTION", 30*24*time.Hour),

		HoldTTL:        envDur("HOLD_TTL", 0),
		ReaperSchedule: getenv("REAPER_SCHEDULE", "@every 1m"),
	}
}

// must retrieves the value of a required environment variable.  If the
// variable is unset or empty, the application logs a fatal error and exits.
func must(key string) string {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		logrus.Fatalf("missing required env var: %s", key)
	}
	return v
}

