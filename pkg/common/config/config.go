package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// Access modes for issued tokens. Offline tokens outlive the browser
// session; online tokens are delegated per-user credentials.
const (
	AccessModeOffline = "offline"
	AccessModeOnline  = "online"
)

// Config holds every recognized environment option for the server.
type Config struct {
	// Shopify app credentials. All three are required.
	APIKey     string `env:"SHOPIFY_API_KEY"`
	APISecret  string `env:"SHOPIFY_API_SECRET"`
	AppBaseURL string `env:"APP_BASE_URL"`

	Scopes     string `env:"SHOPIFY_SCOPES" envDefault:"read_products"`
	AccessMode string `env:"SHOPIFY_ACCESS_MODE" envDefault:"offline"`
	APIVersion string `env:"SHOPIFY_API_VERSION" envDefault:"2024-07"`

	NonceTTL         time.Duration `env:"OAUTH_STATE_TTL" envDefault:"5m"`
	RetryBaseDelay   time.Duration `env:"RETRY_BASE_DELAY" envDefault:"500ms"`
	RetryMaxAttempts int           `env:"RETRY_MAX_ATTEMPTS" envDefault:"3"`
	RequestTimeout   time.Duration `env:"UPSTREAM_REQUEST_TIMEOUT" envDefault:"15s"`

	SessionDBPath string `env:"SESSION_SQLITE_PATH" envDefault:"./sessions.db"`
	NonceDBPath   string `env:"NONCE_SQLITE_PATH" envDefault:"./nonces.db"`
	WebhookDBPath string `env:"WEBHOOK_SQLITE_PATH" envDefault:"./webhooks.db"`

	Port     string `env:"PORT" envDefault:"8080"`
	LogLevel string `env:"LOG_LEVEL" envDefault:"debug"`
}

// Load parses the environment and validates required fields.
func Load() (*Config, error) {
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
	var missing []string
	if strings.TrimSpace(c.APIKey) == "" {
		missing = append(missing, "SHOPIFY_API_KEY")
	}
	if strings.TrimSpace(c.APISecret) == "" {
		missing = append(missing, "SHOPIFY_API_SECRET")
	}
	if strings.TrimSpace(c.AppBaseURL) == "" {
		missing = append(missing, "APP_BASE_URL")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required config: %s", strings.Join(missing, ", "))
	}
	if c.AccessMode != AccessModeOffline && c.AccessMode != AccessModeOnline {
		return fmt.Errorf("invalid SHOPIFY_ACCESS_MODE %q (want %q or %q)", c.AccessMode, AccessModeOffline, AccessModeOnline)
	}
	c.AppBaseURL = strings.TrimRight(strings.TrimSpace(c.AppBaseURL), "/")
	if c.RetryMaxAttempts < 1 {
		c.RetryMaxAttempts = 1
	}
	return nil
}
