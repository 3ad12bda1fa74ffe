// Package config loads runtime configuration from the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// StorePostgres and StoreMemory select the persistence backend. The memory
// store exists for local development and tests; it shares the repository
// interfaces with the relational one.
const (
	StorePostgres = "postgres"
	StoreMemory   = "memory"
)

type Config struct {
	Port        string
	Store       string
	CORSOrigins []string

	JWTSecret string

	DBHost      string
	DBPort      string
	DBUser      string
	DBPassword  string
	DBName      string
	DBSSLMode   string
	DBConnLimit int

	RedisAddr     string
	RedisPassword string

	RabbitURL string

	// Optional bootstrap admin, created at startup if the email is unused.
	AdminEmail    string
	AdminPassword string
}

// Load reads .env.local then .env (both optional) and builds the config.
// JWT_SECRET is always required; DB settings only when STORE is postgres.
func Load() (*Config, error) {
	_ = godotenv.Load(".env.local")
	_ = godotenv.Load()

	cfg := &Config{
		Port:          getEnv("PORT", "8080"),
		Store:         getEnv("STORE", StorePostgres),
		CORSOrigins:   splitAndTrim(getEnv("CORS_ORIGINS", "*")),
		JWTSecret:     os.Getenv("JWT_SECRET"),
		DBHost:        getEnv("DB_HOST", "localhost"),
		DBPort:        getEnv("DB_PORT", "5432"),
		DBUser:        getEnv("DB_USER", "postgres"),
		DBPassword:    os.Getenv("DB_PASSWORD"),
		DBName:        getEnv("DB_NAME", "electrabid"),
		DBSSLMode:     getEnv("DB_SSL_MODE", "disable"),
		RedisAddr:     os.Getenv("REDIS_ADDR"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
		RabbitURL:     os.Getenv("RABBITMQ_URL"),
		AdminEmail:    os.Getenv("ADMIN_EMAIL"),
		AdminPassword: os.Getenv("ADMIN_PASSWORD"),
	}

	connLimit, err := strconv.Atoi(getEnv("DB_CONN_LIMIT", "10"))
	if err != nil {
		return nil, fmt.Errorf("invalid DB_CONN_LIMIT: %w", err)
	}
	cfg.DBConnLimit = connLimit

	if cfg.JWTSecret == "" {
		return nil, errors.New("JWT_SECRET is not set")
	}
	if cfg.Store != StorePostgres && cfg.Store != StoreMemory {
		return nil, fmt.Errorf("unknown STORE %q", cfg.Store)
	}
	if cfg.Store == StorePostgres && cfg.DBPassword == "" {
		return nil, errors.New("DB_PASSWORD is not set")
	}

	return cfg, nil
}

// PostgresDSN builds the pgx connection string. DATABASE_URL, when set,
// overrides the discrete DB_* settings.
func (c *Config) PostgresDSN() string {
	if url := os.Getenv("DATABASE_URL"); url != "" {
		return url
	}
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=%s",
		c.DBUser, c.DBPassword, c.DBHost, c.DBPort, c.DBName, c.DBSSLMode,
	)
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func splitAndTrim(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
