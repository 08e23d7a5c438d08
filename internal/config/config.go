// Package config loads and validates app config from env and an optional .env file using Viper.
package config

import (
	"errors"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds application configuration loaded from the environment.
type Config struct {
	// HTTPAddr is the address the HTTP server listens on (e.g. :8080).
	HTTPAddr string `mapstructure:"HTTP_ADDR"`
	// DatabaseURL is the Postgres DSN.
	DatabaseURL string `mapstructure:"DATABASE_URL"`
	// JWTAccessSecret signs access tokens. Required; startup fails without it.
	JWTAccessSecret string `mapstructure:"JWT_ACCESS_SECRET"`
	// JWTRefreshSecret signs refresh tokens. Required; must differ from the access secret.
	JWTRefreshSecret string `mapstructure:"JWT_REFRESH_SECRET"`
	// JWTAccessExpiry is the access token lifetime in <int><unit> form, unit m/h/d (e.g. "15m").
	JWTAccessExpiry string `mapstructure:"JWT_ACCESS_EXPIRY"`
	// JWTRefreshExpiry is the refresh token lifetime in <int><unit> form (e.g. "7d").
	JWTRefreshExpiry string `mapstructure:"JWT_REFRESH_EXPIRY"`
	// BcryptCost is the bcrypt cost factor (4-31); default 12.
	BcryptCost int `mapstructure:"BCRYPT_COST"`
	// SessionRetentionDays is how long inactive sessions are kept before the sweep deletes them.
	SessionRetentionDays int `mapstructure:"SESSION_RETENTION_DAYS"`
	// SweepInterval is how often the in-process sweeper purges expired sessions (e.g. "1h").
	SweepInterval string `mapstructure:"SWEEP_INTERVAL"`
	// RequireLiveSession makes the request guard also check session liveness on every request.
	// Stronger logout semantics at the cost of one store read per request.
	RequireLiveSession bool `mapstructure:"AUTH_REQUIRE_LIVE_SESSION"`
	// CORSAllowedOrigins is a comma-separated list of allowed origins; empty allows all.
	CORSAllowedOrigins string `mapstructure:"CORS_ALLOWED_ORIGINS"`
	// OTLPEndpoint is the OTLP gRPC endpoint for traces (e.g. http://localhost:4317); empty disables export.
	OTLPEndpoint string `mapstructure:"OTLP_ENDPOINT"`
	// LogLevel is the slog level: debug, info, warn, error.
	LogLevel string `mapstructure:"LOG_LEVEL"`
}

// Load reads .env (if present), then builds and validates Config from the environment via Viper.
// Missing .env is ignored (e.g. in CI). Env vars override .env. Returns an error if required fields
// are invalid; missing JWT secrets are a fatal configuration error, never a per-request fault.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigFile(".env")
	v.SetConfigType("env")
	_ = v.ReadInConfig() // ignore ErrConfigFileNotFound

	v.AutomaticEnv()

	v.SetDefault("HTTP_ADDR", ":8080")
	v.SetDefault("DATABASE_URL", "")
	v.SetDefault("JWT_ACCESS_SECRET", "")
	v.SetDefault("JWT_REFRESH_SECRET", "")
	v.SetDefault("JWT_ACCESS_EXPIRY", "15m")
	v.SetDefault("JWT_REFRESH_EXPIRY", "7d")
	v.SetDefault("BCRYPT_COST", 12)
	v.SetDefault("SESSION_RETENTION_DAYS", 30)
	v.SetDefault("SWEEP_INTERVAL", "1h")
	v.SetDefault("AUTH_REQUIRE_LIVE_SESSION", false)
	v.SetDefault("CORS_ALLOWED_ORIGINS", "")
	v.SetDefault("OTLP_ENDPOINT", "")
	v.SetDefault("LOG_LEVEL", "info")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if cfg.HTTPAddr == "" {
		return nil, errors.New("config: HTTP_ADDR must be set")
	}
	if cfg.JWTAccessSecret == "" {
		return nil, errors.New("config: JWT_ACCESS_SECRET must be set")
	}
	if cfg.JWTRefreshSecret == "" {
		return nil, errors.New("config: JWT_REFRESH_SECRET must be set")
	}

	if cfg.BcryptCost == 0 {
		cfg.BcryptCost = 12
	}
	if cfg.BcryptCost < 4 || cfg.BcryptCost > 31 {
		return nil, errors.New("config: BCRYPT_COST must be between 4 and 31")
	}

	if cfg.SessionRetentionDays <= 0 {
		cfg.SessionRetentionDays = 30
	}

	return &cfg, nil
}

// SessionRetention returns the session retention window as a duration.
func (c *Config) SessionRetention() time.Duration {
	return time.Duration(c.SessionRetentionDays) * 24 * time.Hour
}

// SweepEvery parses SweepInterval as a time.Duration. Returns 1h if unset or invalid.
func (c *Config) SweepEvery() time.Duration {
	d, err := time.ParseDuration(c.SweepInterval)
	if err != nil || d <= 0 {
		return time.Hour
	}
	return d
}

// CORSOrigins returns allowed CORS origins from the comma-separated config, or nil when unset.
func (c *Config) CORSOrigins() []string {
	if c == nil || c.CORSAllowedOrigins == "" {
		return nil
	}
	parts := strings.Split(c.CORSAllowedOrigins, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if s := strings.TrimSpace(p); s != "" {
			out = append(out, s)
		}
	}
	return out
}
