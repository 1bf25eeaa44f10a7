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

const (
	StoragePostgres = "postgres"
	StorageMemory   = "memory"
)

type Config struct {
	HTTPPort        string
	DatabaseURL     string
	Storage         string
	LogLevel        string
	ShutdownTimeout time.Duration
	DefaultCountry  string
	StartupKey      string

	JWT   JWTConfig
	Admin AdminConfig
	Audit AuditConfig
}

type JWTConfig struct {
	Secret     string
	Issuer     string
	ExpiresIn  time.Duration
	RefreshTTL time.Duration
}

// AdminConfig describes the distinguished administrative account seeded at startup.
type AdminConfig struct {
	Email    string
	Password string
	CPF      string
}

type AuditConfig struct {
	// RetentionDays of 0 keeps audit rows forever.
	RetentionDays   int
	CleanupSchedule string
}

// Load reads the environment, after loading an optional .env file.
func Load() (Config, error) {
	_ = godotenv.Load()
	return FromEnv(os.Getenv)
}

// FromEnv builds a Config from a lookup function so tests need not touch the process env.
func FromEnv(getenv func(string) string) (Config, error) {
	get := func(key, def string) string {
		if v := strings.TrimSpace(getenv(key)); v != "" {
			return v
		}
		return def
	}
	var errs []error
	dur := func(key, def string) time.Duration {
		d, err := time.ParseDuration(get(key, def))
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", key, err))
		}
		return d
	}

	cfg := Config{
		HTTPPort:        get("HTTP_PORT", "8080"),
		DatabaseURL:     get("DATABASE_URL", ""),
		Storage:         strings.ToLower(get("STORAGE", StoragePostgres)),
		LogLevel:        get("LOG_LEVEL", "info"),
		ShutdownTimeout: dur("SHUTDOWN_TIMEOUT", "15s"),
		DefaultCountry:  get("DEFAULT_COUNTRY", "Brasil"),
		StartupKey:      get("STARTUP_KEY", ""),
		JWT: JWTConfig{
			Secret:     get("JWT_SECRET", ""),
			Issuer:     get("JWT_ISSUER", "erpcore"),
			ExpiresIn:  dur("JWT_EXPIRES_IN", "24h"),
			RefreshTTL: dur("JWT_REFRESH_EXPIRES_IN", "168h"),
		},
		Admin: AdminConfig{
			Email:    strings.ToLower(get("ADMIN_EMAIL", "admin@erpcore.local")),
			Password: get("ADMIN_PASSWORD", ""),
			CPF:      get("ADMIN_CPF", ""),
		},
		Audit: AuditConfig{
			CleanupSchedule: get("AUDIT_CLEANUP_SCHEDULE", "0 3 * * *"),
		},
	}

	days, err := strconv.Atoi(get("AUDIT_RETENTION_DAYS", "0"))
	if err != nil || days < 0 {
		errs = append(errs, fmt.Errorf("AUDIT_RETENTION_DAYS: must be a non-negative integer"))
	}
	cfg.Audit.RetentionDays = days

	if cfg.JWT.Secret == "" {
		errs = append(errs, errors.New("JWT_SECRET is empty"))
	}
	switch cfg.Storage {
	case StorageMemory:
	case StoragePostgres:
		if cfg.DatabaseURL == "" {
			errs = append(errs, errors.New("DATABASE_URL is empty"))
		}
	default:
		errs = append(errs, fmt.Errorf("STORAGE: unknown backend %q", cfg.Storage))
	}
	return cfg, errors.Join(errs...)
}
