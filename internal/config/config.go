package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application configuration
type Config struct {
	App      AppConfig
	Database DatabaseConfig
	Admin    AdminConfig
	CORS     CORSConfig
}

// AppConfig holds application-level configuration
type AppConfig struct {
	Name               string
	Version            string
	Port               string
	StaticDir          string
	RateLimitPerMinute int
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	URL              string
	Source           Source
	MaxConns         int32
	MinConns         int32
	ConnectTimeout   time.Duration
	StatementTimeout time.Duration
}

// AdminConfig holds the shared admin secret. An empty Token disables the
// admin endpoints.
type AdminConfig struct {
	Token  string
	Source Source
}

// CORSConfig holds CORS configuration
type CORSConfig struct {
	AllowedOrigins []string
}

// Source records where a secret was read from.
type Source string

const (
	SourceEnv  Source = "env"
	SourceFile Source = "file"
	SourceNone Source = "none"
)

const (
	defaultDatabaseURLFile = "/data/database_url.txt"
	defaultAdminTokenFile  = "/data/admin_token.txt"
)

var defaultOrigins = []string{
	"https://dantepropiedades.com.ar",
	"https://danterealestate.github.io",
	"http://localhost:3000",
	"http://localhost:8000",
}

// Load reads configuration from the environment. envFiles are passed to
// godotenv; a missing .env file is not an error.
func Load(envFiles ...string) (*Config, error) {
	_ = godotenv.Load(envFiles...)

	dbURL, dbSource, err := secret("DATABASE_URL", getEnv("DATABASE_URL_FILE", defaultDatabaseURLFile))
	if err != nil {
		return nil, err
	}
	token, tokenSource, err := secret("ADMIN_TOKEN", getEnv("ADMIN_TOKEN_FILE", defaultAdminTokenFile))
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		App: AppConfig{
			Name:               getEnv("APP_NAME", "Administrador de contactos"),
			Version:            getEnv("APP_VERSION", "1.1.0"),
			Port:               getEnv("PORT", "8080"),
			StaticDir:          getEnv("STATIC_DIR", ""),
			RateLimitPerMinute: getEnvAsInt("RATE_LIMIT_PER_MINUTE", 10),
		},
		Database: DatabaseConfig{
			URL:              dbURL,
			Source:           dbSource,
			MaxConns:         int32(getEnvAsInt("DB_MAX_CONNS", 10)),
			MinConns:         int32(getEnvAsInt("DB_MIN_CONNS", 1)),
			ConnectTimeout:   getEnvAsDuration("DB_CONNECT_TIMEOUT", 10*time.Second),
			StatementTimeout: getEnvAsDuration("DB_STATEMENT_TIMEOUT", 15*time.Second),
		},
		Admin: AdminConfig{
			Token:  token,
			Source: tokenSource,
		},
		CORS: CORSConfig{
			AllowedOrigins: getEnvAsSlice("ALLOWED_ORIGINS", defaultOrigins),
		},
	}

	if err := validateConfig(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

// secret resolves a value with precedence: environment variable, then the
// first line of file, then empty.
func secret(key, file string) (string, Source, error) {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v, SourceEnv, nil
	}
	if file == "" {
		return "", SourceNone, nil
	}
	b, err := os.ReadFile(file)
	if errors.Is(err, os.ErrNotExist) {
		return "", SourceNone, nil
	}
	if err != nil {
		return "", SourceNone, fmt.Errorf("read %s from %s: %w", key, file, err)
	}
	v := strings.TrimSpace(string(b))
	if v == "" {
		return "", SourceNone, nil
	}
	return v, SourceFile, nil
}

func validateConfig(cfg *Config) error {
	if cfg.App.Port == "" {
		return errors.New("PORT must be set")
	}
	if cfg.Database.MaxConns < 1 {
		return errors.New("DB_MAX_CONNS must be at least 1")
	}
	if cfg.Database.MinConns < 0 || cfg.Database.MinConns > cfg.Database.MaxConns {
		return errors.New("DB_MIN_CONNS must be between 0 and DB_MAX_CONNS")
	}
	if cfg.Database.ConnectTimeout <= 0 {
		return errors.New("DB_CONNECT_TIMEOUT must be positive")
	}
	if cfg.App.RateLimitPerMinute <= 0 {
		return errors.New("RATE_LIMIT_PER_MINUTE must be greater than 0")
	}
	return nil
}

// AdminEnabled reports whether a shared admin token is configured.
func (c *Config) AdminEnabled() bool {
	return c.Admin.Token != ""
}

// Helper functions
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := time.ParseDuration(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsSlice(key string, defaultValue []string) []string {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	var out []string
	for _, s := range strings.Split(valueStr, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
