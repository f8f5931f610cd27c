// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package config handles application-wide settings and environment parsing.

It leverages 'caarlos0/env' to map OS environment variables into a strongly-typed
Go struct, providing early validation and default values.

Usage:

	cfg, err := config.Load()
	if err != nil {
	    log.Fatal(err)
	}

Architecture:

  - Immutability: Once loaded, configuration is read-only.
  - DI-Friendly: Passed to core components (DB, Redis, token signer) via constructors.
  - Zero Hidden State: No global variables are used to store config.
*/
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"golang.org/x/crypto/bcrypt"
)

// MinJWTSecretLength is the minimum accepted length of the HMAC signing secret.
const MinJWTSecretLength = 32

// # Configuration Schema

// Config holds all runtime configuration for the Taskflow API server.
type Config struct {

	// Server settings
	ServerPort  string `env:"SERVER_PORT"  envDefault:"8080"`
	Environment string `env:"ENVIRONMENT"  envDefault:"development"`
	Debug       bool   `env:"DEBUG"        envDefault:"false"`

	// Relational Database (PostgreSQL)
	DatabaseURL string `env:"DATABASE_URL,required,notEmpty"`

	// MigrationPath is the filesystem path to the SQL migrations directory.
	MigrationPath string `env:"MIGRATION_PATH" envDefault:"./data/migrations"`

	// Key-Value Cache (Redis)
	RedisURL string `env:"REDIS_URL,required,notEmpty"`

	// Token signing (HS256)
	JWTSecret string `env:"JWT_SECRET,required,notEmpty"`
	JWTIssuer string `env:"JWT_ISSUER" envDefault:"taskflow"`

	// Access token lifetimes in minutes (short tier and remember-me tier).
	AccessTokenExpireMinutes         int `env:"ACCESS_TOKEN_EXPIRE_MINUTES"          envDefault:"10080"`
	AccessTokenExpireMinutesRemember int `env:"ACCESS_TOKEN_EXPIRE_MINUTES_REMEMBER" envDefault:"43200"`

	// BcryptCost is the password hashing work factor.
	BcryptCost int `env:"BCRYPT_COST" envDefault:"12"`

	// SessionSweepInterval controls how often expired sessions are purged. Zero disables the sweeper.
	SessionSweepInterval time.Duration `env:"SESSION_SWEEP_INTERVAL" envDefault:"15m"`

	// ExposeResetToken echoes password reset tokens in API responses.
	// Honoured only outside production.
	ExposeResetToken bool `env:"AUTH_EXPOSE_RESET_TOKEN" envDefault:"false"`

	// FrontendURL is used to build verification and reset links.
	FrontendURL string `env:"FRONTEND_URL" envDefault:"http://localhost:3000"`

	// Observability
	MetricsEnabled bool `env:"METRICS_ENABLED" envDefault:"true"`

	// Cross-Origin Resource Sharing
	ExtraOrigins []string `env:"EXTRA_ORIGINS" envSeparator:","`
}

// # Configuration Loading

// Load parses environment variables into a [Config] struct and validates it.
func Load() (*Config, error) {

	// Initialize an empty config struct
	cfg := &Config{}

	// This will fail if any field marked with 'required' is missing.
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("config: failed to parse environment variables: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks cross-field constraints that struct tags cannot express.
func (c *Config) Validate() error {
	var errs []error

	if len(c.JWTSecret) < MinJWTSecretLength {
		errs = append(errs, fmt.Errorf("JWT_SECRET must be at least %d characters", MinJWTSecretLength))
	}
	if c.AccessTokenExpireMinutes <= 0 {
		errs = append(errs, errors.New("ACCESS_TOKEN_EXPIRE_MINUTES must be positive"))
	}
	if c.AccessTokenExpireMinutesRemember < c.AccessTokenExpireMinutes {
		errs = append(errs, errors.New("ACCESS_TOKEN_EXPIRE_MINUTES_REMEMBER must not be shorter than ACCESS_TOKEN_EXPIRE_MINUTES"))
	}
	if c.BcryptCost < bcrypt.MinCost || c.BcryptCost > bcrypt.MaxCost {
		errs = append(errs, fmt.Errorf("BCRYPT_COST must be between %d and %d", bcrypt.MinCost, bcrypt.MaxCost))
	}
	if c.SessionSweepInterval < 0 {
		errs = append(errs, errors.New("SESSION_SWEEP_INTERVAL must not be negative"))
	}

	if len(errs) > 0 {
		return fmt.Errorf("config: invalid configuration: %w", errors.Join(errs...))
	}
	return nil
}

// AccessTokenTTL returns the short access-token lifetime.
func (c *Config) AccessTokenTTL() time.Duration {
	return time.Duration(c.AccessTokenExpireMinutes) * time.Minute
}

// RememberTokenTTL returns the extended (remember-me) access-token lifetime.
func (c *Config) RememberTokenTTL() time.Duration {
	return time.Duration(c.AccessTokenExpireMinutesRemember) * time.Minute
}

// ResetTokenExposed reports whether reset tokens may be returned to API callers.
func (c *Config) ResetTokenExposed() bool {
	return c.ExposeResetToken && !c.IsProduction()
}

// MailLinksLogged reports whether the log mail sender may write token-bearing
// links. DEBUG alone never enables it in production.
func (c *Config) MailLinksLogged() bool {
	return c.Debug && !c.IsProduction()
}

// AllowedOrigins lists the browser origins permitted by CORS outside development.
func (c *Config) AllowedOrigins() []string {
	origins := make([]string, 0, len(c.ExtraOrigins)+1)
	if c.FrontendURL != "" {
		origins = append(origins, c.FrontendURL)
	}
	return append(origins, c.ExtraOrigins...)
}

// IsDevelopment reports whether the server is running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

// IsProduction reports whether the server is running in production mode.
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}
