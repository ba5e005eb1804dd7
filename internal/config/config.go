// Package config loads and validates app config from env and an optional .env file using Viper.
package config

import (
	"errors"
	"time"

	"github.com/spf13/viper"
)

// Config holds application configuration loaded from the environment.
type Config struct {
	// HTTPAddr is the address the HTTP server listens on (e.g. :8080).
	HTTPAddr string `mapstructure:"HTTP_ADDR"`
	// DatabaseURL is the Postgres DSN; empty until DB is wired.
	DatabaseURL string `mapstructure:"DATABASE_URL"`
	// AccessPrivateKey is the PEM-encoded private key (RSA or ECDSA) or path to file, used to sign access tokens.
	AccessPrivateKey string `mapstructure:"ACCESS_PRIVATE_KEY"`
	// AccessPublicKey is the PEM-encoded public key or path to file, used to verify access tokens.
	AccessPublicKey string `mapstructure:"ACCESS_PUBLIC_KEY"`
	// RefreshPrivateKey is the PEM-encoded private key or path to file, used to sign refresh tokens.
	// Must be a different key pair from the access keys.
	RefreshPrivateKey string `mapstructure:"REFRESH_PRIVATE_KEY"`
	// RefreshPublicKey is the PEM-encoded public key or path to file, used to verify refresh tokens.
	RefreshPublicKey string `mapstructure:"REFRESH_PUBLIC_KEY"`
	// JWTIssuer is the iss claim (e.g. "community-auth").
	JWTIssuer string `mapstructure:"JWT_ISSUER"`
	// JWTAudience is the aud claim (e.g. "community-api").
	JWTAudience string `mapstructure:"JWT_AUDIENCE"`
	// JWTAccessTTL is the access token lifetime (e.g. "15m").
	JWTAccessTTL string `mapstructure:"JWT_ACCESS_TTL"`
	// JWTRefreshTTL is the refresh token lifetime (e.g. "168h").
	JWTRefreshTTL string `mapstructure:"JWT_REFRESH_TTL"`
	// BcryptCost is the bcrypt cost factor (4–31); default 12.
	BcryptCost int `mapstructure:"BCRYPT_COST"`
	// StoreTimeoutStr bounds a single external-store round trip for token rotation
	// and membership reads (e.g. "3s"). A blocked store surfaces a timeout instead
	// of hanging a connection task.
	StoreTimeoutStr string `mapstructure:"STORE_TIMEOUT"`
	// ShutdownTimeoutStr bounds graceful shutdown of the HTTP server and gateway hub (e.g. "10s").
	ShutdownTimeoutStr string `mapstructure:"SHUTDOWN_TIMEOUT"`
	// AllowedOrigin restricts WebSocket handshake origins; empty allows same-origin only.
	AllowedOrigin string `mapstructure:"ALLOWED_ORIGIN"`
	// Env is the application environment (e.g. "development", "production").
	Env string `mapstructure:"APP_ENV"`
	// LogLevel is the zerolog level name (e.g. "debug", "info", "warn").
	LogLevel string `mapstructure:"LOG_LEVEL"`
}

// Load reads .env (if present), then builds and validates Config from the environment via Viper.
// Missing .env is ignored (e.g. in CI). Env vars override .env. Returns an error if required fields are invalid.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigFile(".env")
	v.SetConfigType("env")
	_ = v.ReadInConfig() // ignore ErrConfigFileNotFound

	v.AutomaticEnv()

	v.SetDefault("HTTP_ADDR", ":8080")
	v.SetDefault("DATABASE_URL", "")
	v.SetDefault("JWT_ISSUER", "community-auth")
	v.SetDefault("JWT_AUDIENCE", "community-api")
	v.SetDefault("JWT_ACCESS_TTL", "15m")
	v.SetDefault("JWT_REFRESH_TTL", "168h") // 7d
	v.SetDefault("BCRYPT_COST", 12)
	v.SetDefault("STORE_TIMEOUT", "3s")
	v.SetDefault("SHUTDOWN_TIMEOUT", "10s")
	v.SetDefault("ALLOWED_ORIGIN", "")
	v.SetDefault("APP_ENV", "")
	v.SetDefault("LOG_LEVEL", "info")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if cfg.HTTPAddr == "" {
		return nil, errors.New("config: HTTP_ADDR must be set")
	}

	if cfg.BcryptCost == 0 {
		cfg.BcryptCost = 12
	}
	if cfg.BcryptCost < 4 || cfg.BcryptCost > 31 {
		return nil, errors.New("config: BCRYPT_COST must be between 4 and 31")
	}

	return &cfg, nil
}

// AccessTTL parses JWTAccessTTL as a time.Duration. Returns 15m if unset or invalid.
func (c *Config) AccessTTL() time.Duration {
	d, err := time.ParseDuration(c.JWTAccessTTL)
	if err != nil || d <= 0 {
		return 15 * time.Minute
	}
	return d
}

// RefreshTTL parses JWTRefreshTTL as a time.Duration. Returns 168h if unset or invalid.
func (c *Config) RefreshTTL() time.Duration {
	d, err := time.ParseDuration(c.JWTRefreshTTL)
	if err != nil || d <= 0 {
		return 168 * time.Hour
	}
	return d
}

// StoreTimeout parses StoreTimeoutStr as a time.Duration. Returns 3s if unset or invalid.
func (c *Config) StoreTimeout() time.Duration {
	d, err := time.ParseDuration(c.StoreTimeoutStr)
	if err != nil || d <= 0 {
		return 3 * time.Second
	}
	return d
}

// ShutdownTimeout parses ShutdownTimeoutStr as a time.Duration. Returns 10s if unset or invalid.
func (c *Config) ShutdownTimeout() time.Duration {
	d, err := time.ParseDuration(c.ShutdownTimeoutStr)
	if err != nil || d <= 0 {
		return 10 * time.Second
	}
	return d
}
