package config

import (
	"fmt"
	"os"
	"time"
)

// Config holds service configuration.
type Config struct {
	DatabaseURL       string
	ServerAddr        string
	MigrationsDir     string
	AuditSigningKey   string
	OfferSyncInterval time.Duration
}

// Load reads configuration from environment.
func Load() (*Config, error) {
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		user := getenv("POSTGRES_USER", "channelswap")
		pass := getenv("POSTGRES_PASSWORD", "channelswap_pass")
		db := getenv("POSTGRES_DB", "channelswap")
		host := getenv("POSTGRES_HOST", "localhost")
		port := getenv("POSTGRES_PORT", "5432")
		sslmode := getenv("DATABASE_SSLMODE", "disable")
		dsn = fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s", user, pass, host, port, db, sslmode)
	}

	return &Config{
		DatabaseURL:       dsn,
		ServerAddr:        getenv("SERVER_ADDR", "0.0.0.0:8080"),
		MigrationsDir:     getenv("MIGRATIONS_DIR", "migrations"),
		AuditSigningKey:   os.Getenv("AUDIT_SIGNING_KEY"),
		OfferSyncInterval: parseDuration(getenv("OFFER_SYNC_INTERVAL", "1h"), time.Hour),
	}, nil
}

func getenv(key, def string) string {
	val := os.Getenv(key)
	if val == "" {
		return def
	}
	return val
}

func parseDuration(val string, def time.Duration) time.Duration {
	if val == "" {
		return def
	}
	d, err := time.ParseDuration(val)
	if err != nil {
		return def
	}
	return d
}
