// Package config loads service settings from the environment, reading a
// .env file first when one exists.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Supported storage drivers.
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// Config holds every setting the service reads at startup.
type Config struct {
	Port     string
	LogLevel string

	Database struct {
		Driver     string
		Host       string
		Port       string
		User       string
		Password   string
		Name       string
		SSLMode    string
		SQLitePath string
	}

	Redis struct {
		URL     string
		Channel string
	}

	// JoinUnique makes a repeated join for the same event and handle a no-op.
	JoinUnique bool

	CORSOrigins []string
}

// Load reads the optional .env file at path and builds a Config from the
// environment. A missing .env file is not an error.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load %s: %w", path, err)
	}

	cfg := &Config{}
	cfg.Port = getEnv("PORT", "8080")
	cfg.LogLevel = getEnv("LOG_LEVEL", "info")

	cfg.Database.Driver = strings.ToLower(getEnv("DB_DRIVER", DriverPostgres))
	cfg.Database.Host = getEnv("DB_HOST", "localhost")
	cfg.Database.Port = getEnv("DB_PORT", "5432")
	cfg.Database.User = getEnv("DB_USER", "postgres")
	cfg.Database.Password = getEnv("DB_PASSWORD", "postgres")
	cfg.Database.Name = getEnv("DB_NAME", "eventfeed")
	cfg.Database.SSLMode = getEnv("DB_SSLMODE", "disable")
	cfg.Database.SQLitePath = getEnv("SQLITE_PATH", "./data/eventfeed.db")

	cfg.Redis.URL = getEnv("REDIS_URL", "")
	cfg.Redis.Channel = getEnv("REDIS_CHANNEL", "eventfeed")

	unique, err := getEnvAsBool("JOIN_UNIQUE", false)
	if err != nil {
		return nil, err
	}
	cfg.JoinUnique = unique
	cfg.CORSOrigins = splitList(getEnv("CORS_ORIGINS", "*"))

	switch cfg.Database.Driver {
	case DriverPostgres, DriverSQLite:
	default:
		return nil, fmt.Errorf("unsupported DB_DRIVER %q", cfg.Database.Driver)
	}
	return cfg, nil
}

// PostgresDSN builds a libpq-compatible connection string.
func (c *Config) PostgresDSN() string {
	d := c.Database
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.Name, d.SSLMode,
	)
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvAsBool(key string, fallback bool) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("parse %s: %w", key, err)
	}
	return b, nil
}

func splitList(raw string) []string {
	var out []string
	for _, p := range strings.Split(raw, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
