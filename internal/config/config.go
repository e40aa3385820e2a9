package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

type Config struct {
	Port     string `validate:"required,numeric"`
	LogLevel string `validate:"oneof=debug info warn warning error"`

	DBDriver          string `validate:"oneof=postgres sqlite"`
	DBHost            string `validate:"required_if=DBDriver postgres"`
	DBPort            string `validate:"required_if=DBDriver postgres"`
	DBName            string `validate:"required_if=DBDriver postgres"`
	DBUser            string `validate:"required_if=DBDriver postgres"`
	DBPass            string
	DBSSLMode         string `validate:"oneof=disable allow prefer require verify-ca verify-full"`
	DBPath            string `validate:"required_if=DBDriver sqlite"`
	DBConnectAttempts int    `validate:"min=1"`

	RedisAddr string

	ScrapeEnabled     bool
	ScrapeTimeout     time.Duration `validate:"gt=0"`
	ScrapeMinInterval time.Duration `validate:"gte=0"`
	ScrapeCacheTTL    time.Duration `validate:"gte=0"`
}

func envOrDefault(key, d string) string {
	v := os.Getenv(key)
	if v == "" {
		return d
	}
	return v
}

// LoadDotEnv loads a .env file into the process environment. Variables that
// are already set win. A missing file is not an error.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("load %s: %w", p, err)
		}
	}
	return nil
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{
		Port:     envOrDefault("PORT", "8080"),
		LogLevel: strings.ToLower(strings.TrimSpace(envOrDefault("LOG_LEVEL", "info"))),

		DBDriver:  envOrDefault("DB_DRIVER", "postgres"),
		DBHost:    envOrDefault("DB_HOST", "localhost"),
		DBPort:    envOrDefault("DB_PORT", "5432"),
		DBName:    envOrDefault("DB_NAME", "study_db"),
		DBUser:    envOrDefault("DB_USER", "study_user"),
		DBPass:    os.Getenv("DB_PASS"),
		DBSSLMode: envOrDefault("DB_SSLMODE", "disable"),
		DBPath:    envOrDefault("DB_PATH", "articles.db"),

		RedisAddr: os.Getenv("REDIS_ADDR"),
	}

	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}

	var err error
	if cfg.DBConnectAttempts, err = strconv.Atoi(envOrDefault("DB_CONNECT_ATTEMPTS", "10")); err != nil {
		return nil, fmt.Errorf("DB_CONNECT_ATTEMPTS: %w", err)
	}
	if cfg.ScrapeEnabled, err = strconv.ParseBool(envOrDefault("SCRAPE_ENABLED", "true")); err != nil {
		return nil, fmt.Errorf("SCRAPE_ENABLED: %w", err)
	}
	if cfg.ScrapeTimeout, err = time.ParseDuration(envOrDefault("SCRAPE_TIMEOUT", "15s")); err != nil {
		return nil, fmt.Errorf("SCRAPE_TIMEOUT: %w", err)
	}
	if cfg.ScrapeMinInterval, err = time.ParseDuration(envOrDefault("SCRAPE_MIN_INTERVAL", "1s")); err != nil {
		return nil, fmt.Errorf("SCRAPE_MIN_INTERVAL: %w", err)
	}
	if cfg.ScrapeCacheTTL, err = time.ParseDuration(envOrDefault("SCRAPE_CACHE_TTL", "1h")); err != nil {
		return nil, fmt.Errorf("SCRAPE_CACHE_TTL: %w", err)
	}

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// DSN returns the data source name for the configured driver.
func (c *Config) DSN() string {
	if c.DBDriver == "sqlite" {
		return c.DBPath
	}
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.DBUser, c.DBPass),
		Host:     c.DBHost + ":" + c.DBPort,
		Path:     "/" + c.DBName,
		RawQuery: "sslmode=" + c.DBSSLMode,
	}
	return u.String()
}
