package config

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config holds application configuration
type Config struct {
	ServerPort      string        `env:"PORT" envDefault:"8080"`
	DatabaseType    string        `env:"DB_TYPE" envDefault:"sqlite"`
	DatabasePath    string        `env:"DB_PATH" envDefault:"./childsubs.db"`
	DatabaseURL     string        `env:"DATABASE_URL"`
	SessionDuration time.Duration `env:"SESSION_DURATION" envDefault:"24h"`
	StaticFilesPath string        `env:"STATIC_PATH" envDefault:"./static"`

	// Request tokens for the child forms and the AJAX delete endpoint
	NonceSecret string        `env:"NONCE_SECRET"`
	NonceTTL    time.Duration `env:"NONCE_TTL" envDefault:"12h"`

	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"console"`
	Debug     bool   `env:"DEBUG" envDefault:"false"`

	GoogleClientID       string `env:"GOOGLE_CLIENT_ID"`
	GoogleClientSecret   string `env:"GOOGLE_CLIENT_SECRET"`
	OAuthRedirectBaseURL string `env:"OAUTH_REDIRECT_BASE_URL"`

	AWSRegion    string `env:"AWS_REGION" envDefault:"us-east-1"`
	SESFromEmail string `env:"SES_FROM_EMAIL"`
	SESFromName  string `env:"SES_FROM_NAME" envDefault:"Child Subscriptions"`
	AppBaseURL   string `env:"APP_BASE_URL" envDefault:"http://localhost:8080"`

	RateLimitRequests int           `env:"RATE_LIMIT_REQUESTS" envDefault:"10"`
	RateLimitWindow   time.Duration `env:"RATE_LIMIT_WINDOW" envDefault:"1m"`
}

// Load reads an optional .env file and then parses configuration from
// environment variables with sensible defaults
func Load() (*Config, error) {
	if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(); err != nil {
			return nil, fmt.Errorf("load .env: %w", err)
		}
	}

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) validate() error {
	switch c.DatabaseType {
	case "postgres", "postgresql", "mysql":
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required for DB_TYPE=%s", c.DatabaseType)
		}
	}
	if c.NonceSecret == "" {
		// Tokens issued before a restart stop validating; acceptable for dev.
		c.NonceSecret = randomSecret()
	}
	if c.SessionDuration <= 0 {
		return fmt.Errorf("SESSION_DURATION must be positive")
	}
	if c.NonceTTL <= 0 {
		return fmt.Errorf("NONCE_TTL must be positive")
	}
	if c.RateLimitRequests <= 0 {
		return fmt.Errorf("RATE_LIMIT_REQUESTS must be positive")
	}
	if c.RateLimitWindow <= 0 {
		return fmt.Errorf("RATE_LIMIT_WINDOW must be positive")
	}
	return nil
}

// GoogleOAuthEnabled reports whether Google sign-in is configured
func (c *Config) GoogleOAuthEnabled() bool {
	return c.GoogleClientID != "" && c.GoogleClientSecret != ""
}

func randomSecret() string {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		panic(fmt.Sprintf("generate nonce secret: %v", err))
	}
	return hex.EncodeToString(b)
}
