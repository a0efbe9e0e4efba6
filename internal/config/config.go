// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// knownWeakSecrets contains default/example secrets that must be rejected.
var knownWeakSecrets = []string{
	"change-me-to-32-byte-secret-key!",
	"REPLACE_WITH_YOUR_OWN_SECRET_KEY!",
}

// MinJWTSecretLength is the minimum required length for the token signing secret.
const MinJWTSecretLength = 32

// Config holds the application configuration loaded from environment variables.
type Config struct {
	DBPath     string        `env:"MCMS_DB_PATH" envDefault:"./data/mcms.db"`
	JWTSecret  string        `env:"MCMS_JWT_SECRET,required"`
	JWTTTL     time.Duration `env:"MCMS_JWT_TTL" envDefault:"168h"` // 7 days
	ServerHost string        `env:"MCMS_SERVER_HOST" envDefault:"localhost"`
	ServerPort int           `env:"MCMS_SERVER_PORT" envDefault:"5000"`
	Env        string        `env:"MCMS_ENV" envDefault:"development"`
	LogLevel   string        `env:"MCMS_LOG_LEVEL" envDefault:"info"`
	UploadsDir string        `env:"MCMS_UPLOADS_DIR" envDefault:"./uploads"`

	// CORS origin of the frontend SPA
	FrontendURL string `env:"MCMS_FRONTEND_URL" envDefault:"http://localhost:3000"`

	// Bootstrap admin, seeded only when no admin accounts exist
	AdminEmail    string `env:"MCMS_ADMIN_EMAIL" envDefault:"admin@metall-plant.com"`
	AdminPassword string `env:"MCMS_ADMIN_PASSWORD"`
	AdminName     string `env:"MCMS_ADMIN_NAME" envDefault:"Administrator"`

	// Rate limiting for /api routes
	RateLimitRPS   float64 `env:"MCMS_RATE_LIMIT_RPS" envDefault:"10"`
	RateLimitBurst int     `env:"MCMS_RATE_LIMIT_BURST" envDefault:"50"`
}

// IsDevelopment returns true if the application is running in development mode.
func (c Config) IsDevelopment() bool {
	return c.Env == "development"
}

// ServerAddr returns the full server address in host:port format.
func (c Config) ServerAddr() string {
	return fmt.Sprintf("%s:%d", c.ServerHost, c.ServerPort)
}

// Load parses environment variables and returns a Config struct.
// A missing or weak token signing secret is a fatal startup condition.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	if len(cfg.JWTSecret) < MinJWTSecretLength {
		return nil, fmt.Errorf("MCMS_JWT_SECRET must be at least %d bytes long, got %d bytes; "+
			"generate a secure secret with: openssl rand -base64 32",
			MinJWTSecretLength, len(cfg.JWTSecret))
	}

	for _, weak := range knownWeakSecrets {
		if cfg.JWTSecret == weak {
			return nil, fmt.Errorf("MCMS_JWT_SECRET is a known default value and must not be used; " +
				"generate a secure secret with: openssl rand -base64 32")
		}
	}

	if cfg.JWTTTL <= 0 {
		return nil, fmt.Errorf("MCMS_JWT_TTL must be positive, got %s", cfg.JWTTTL)
	}

	if !strings.HasPrefix(cfg.FrontendURL, "http://") && !strings.HasPrefix(cfg.FrontendURL, "https://") {
		return nil, fmt.Errorf("MCMS_FRONTEND_URL must be an absolute http(s) origin, got %q", cfg.FrontendURL)
	}

	return cfg, nil
}
