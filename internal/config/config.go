// Package config reads runtime settings from the environment, optionally
// seeded from a .env file.
package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

const devSessionSecret = "anonchat-dev-secret-change-me"

type Config struct {
	Addr string

	DBDriver string
	DBDSN    string

	RedisURL      string
	StatsCacheTTL time.Duration

	RecentWindow        time.Duration
	RecentMessagesLimit int

	DashboardPasswordHash string
	SessionSecret         string
	SessionTTL            time.Duration

	StaticDir string
}

// Load reads envFile (when it exists) into the process environment without
// overriding variables that are already set, then builds a Config.
func Load(envFile string) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil {
			log.Printf("Warning: %s not loaded: %v", envFile, err)
		}
	}
	return FromEnv(os.Getenv)
}

// FromEnv builds a Config from getenv, applying defaults.
func FromEnv(getenv func(string) string) (*Config, error) {
	var errs []error
	str := func(key, def string) string {
		if v := getenv(key); v != "" {
			return v
		}
		return def
	}
	dur := func(key string, def time.Duration) time.Duration {
		v := getenv(key)
		if v == "" {
			return def
		}
		d, err := time.ParseDuration(v)
		if err != nil || d < 0 {
			errs = append(errs, fmt.Errorf("config: %s: invalid duration %q", key, v))
			return def
		}
		return d
	}
	num := func(key string, def int) int {
		v := getenv(key)
		if v == "" {
			return def
		}
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			errs = append(errs, fmt.Errorf("config: %s: invalid positive integer %q", key, v))
			return def
		}
		return n
	}

	cfg := &Config{
		Addr:                  str("ADDR", ":8080"),
		DBDriver:              str("DB_DRIVER", "sqlite3"),
		DBDSN:                 str("DB_DSN", "anonchat.db"),
		RedisURL:              getenv("REDIS_URL"),
		StatsCacheTTL:         dur("STATS_CACHE_TTL", 5*time.Second),
		RecentWindow:          dur("RECENT_WINDOW", 24*time.Hour),
		RecentMessagesLimit:   num("RECENT_MESSAGES_LIMIT", 50),
		DashboardPasswordHash: getenv("DASHBOARD_PASSWORD_HASH"),
		SessionSecret:         str("SESSION_SECRET", devSessionSecret),
		SessionTTL:            dur("SESSION_TTL", 12*time.Hour),
		StaticDir:             str("STATIC_DIR", "static"),
	}

	switch cfg.DBDriver {
	case "sqlite3", "postgres", "pgx", "memory":
	default:
		errs = append(errs, fmt.Errorf("config: DB_DRIVER: unsupported driver %q", cfg.DBDriver))
	}
	if cfg.RecentWindow == 0 {
		errs = append(errs, errors.New("config: RECENT_WINDOW must be positive"))
	}
	if cfg.SessionTTL == 0 {
		errs = append(errs, errors.New("config: SESSION_TTL must be positive"))
	}

	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return cfg, nil
}

// DashboardProtected reports whether the dashboard API requires a login.
func (c *Config) DashboardProtected() bool {
	return c.DashboardPasswordHash != ""
}

// UsingDevSecret reports whether sessions are signed with the built-in key.
func (c *Config) UsingDevSecret() bool {
	return c.SessionSecret == devSessionSecret
}
