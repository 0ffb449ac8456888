package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port        string
	Environment string
	LogLevel    slog.Level

	DatabaseURL string
	AutoMigrate bool
	RedisURL    string

	// Empty means any origin, without credentials
	CORSAllowedOrigins []string

	Casdoor CasdoorConfig
	Events  EventsConfig
	Tokens  TokenConfig
}

type CasdoorConfig struct {
	Endpoint     string
	ClientID     string
	ClientSecret string
	Cert         string
	Organization string
	Application  string
}

type EventsConfig struct {
	KafkaBrokers []string
	Topic        string
}

type TokenConfig struct {
	Secret string
	TTL    time.Duration
}

const (
	DefaultPort        = "8080"
	DefaultEventsTopic = "question-bank-events"
	DefaultTokenTTL    = 5 * time.Minute

	developmentTokenSecret = "dev-only-token-secret"
)

// LoadConfig reads .env when present, then the process environment
func LoadConfig() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	cfg := &Config{
		Port:        getEnv("PORT", DefaultPort),
		Environment: getEnv("ENVIRONMENT", "development"),
		DatabaseURL: os.Getenv("DATABASE_URL"),
		RedisURL:    os.Getenv("REDIS_URL"),

		CORSAllowedOrigins: splitList(os.Getenv("CORS_ALLOWED_ORIGINS")),

		Casdoor: CasdoorConfig{
			Endpoint:     os.Getenv("CASDOOR_ENDPOINT"),
			ClientID:     os.Getenv("CASDOOR_CLIENT_ID"),
			ClientSecret: os.Getenv("CASDOOR_CLIENT_SECRET"),
			Cert:         os.Getenv("CASDOOR_CERT"),
			Organization: os.Getenv("CASDOOR_ORGANIZATION"),
			Application:  os.Getenv("CASDOOR_APPLICATION"),
		},
		Events: EventsConfig{
			KafkaBrokers: splitList(os.Getenv("KAFKA_BROKERS")),
			Topic:        getEnv("EVENTS_TOPIC", DefaultEventsTopic),
		},
		Tokens: TokenConfig{
			Secret: os.Getenv("TOKEN_SECRET"),
		},
	}

	var err error
	if cfg.LogLevel, err = parseLogLevel(getEnv("LOG_LEVEL", "info")); err != nil {
		return nil, err
	}
	if cfg.AutoMigrate, err = strconv.ParseBool(getEnv("AUTO_MIGRATE", "true")); err != nil {
		return nil, fmt.Errorf("invalid AUTO_MIGRATE: %w", err)
	}
	if cfg.Tokens.TTL, err = time.ParseDuration(getEnv("TOKEN_TTL", DefaultTokenTTL.String())); err != nil {
		return nil, fmt.Errorf("invalid TOKEN_TTL: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

func (c *Config) validate() error {
	if c.DatabaseURL == "" {
		return errors.New("DATABASE_URL is required")
	}
	if c.Tokens.TTL <= 0 {
		return errors.New("TOKEN_TTL must be positive")
	}
	if c.Tokens.Secret == "" {
		if c.Environment != "development" {
			return errors.New("TOKEN_SECRET is required outside development")
		}
		c.Tokens.Secret = developmentTokenSecret
	}
	return nil
}

func parseLogLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return slog.LevelInfo, fmt.Errorf("invalid LOG_LEVEL %q: %w", s, err)
	}
	return level, nil
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		return value
	}
	return fallback
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
