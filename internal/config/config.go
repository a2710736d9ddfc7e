// Package config centralises runtime configuration for the Farr backend.
// Values come from environment variables with local-dev defaults.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config captures every tunable of the service.
type Config struct {
	HTTPAddress string `envconfig:"HTTP_ADDRESS" default:":8080"`

	// --- Database ---
	DBHost     string `envconfig:"DB_HOST" default:"postgres"`
	DBPort     int    `envconfig:"DB_PORT" default:"5432"`
	DBUser     string `envconfig:"DB_USER" default:"farr"`
	DBPassword string `envconfig:"DB_PASSWORD" default:"farr"`
	DBName     string `envconfig:"DB_NAME" default:"farr"`
	DBSSLMode  string `envconfig:"DB_SSLMODE" default:"disable"`

	// --- Auth ---
	JWTSecret string `envconfig:"JWT_SECRET" default:"dev-secret-change-me"`
	JWTIssuer string `envconfig:"JWT_ISSUER" default:"farr.identity"`

	// --- Events ---
	KafkaBrokersRaw    string        `envconfig:"KAFKA_BROKERS" default:"kafka:9092"`
	OutboxPollInterval time.Duration `envconfig:"OUTBOX_POLL_INTERVAL" default:"2s"`
	OutboxBatchSize    int           `envconfig:"OUTBOX_BATCH_SIZE" default:"25"`

	// --- Jobs ---
	// Cron expression for the nightly consistency award, evaluated in UTC.
	ConsistencyCronSpec string `envconfig:"CONSISTENCY_CRON" default:"5 0 * * *"`
	ConsistencyCoins    int64  `envconfig:"CONSISTENCY_COINS" default:"1"`

	// --- Application ---
	LogLevel string `envconfig:"APP_LOG_LEVEL" default:"info"`
}

// Load reads environment variables into Config.
func Load() (Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return Config{}, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}

// DatabaseDSN returns the PostgreSQL connection string.
func (c Config) DatabaseDSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.DBUser, c.DBPassword, c.DBHost, c.DBPort, c.DBName, c.DBSSLMode,
	)
}

// KafkaBrokers splits the comma-separated broker list.
func (c Config) KafkaBrokers() []string {
	parts := strings.Split(c.KafkaBrokersRaw, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
