package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequired(t *testing.T) {
	t.Helper()
	t.Setenv("SHOPIFY_API_KEY", "key")
	t.Setenv("SHOPIFY_API_SECRET", "secret")
	t.Setenv("APP_BASE_URL", "https://app.example.com")
}

func TestLoad_Defaults(t *testing.T) {
	setRequired(t)

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "read_products", cfg.Scopes)
	assert.Equal(t, AccessModeOffline, cfg.AccessMode)
	assert.Equal(t, 5*time.Minute, cfg.NonceTTL)
	assert.Equal(t, 500*time.Millisecond, cfg.RetryBaseDelay)
	assert.Equal(t, 3, cfg.RetryMaxAttempts)
	assert.Equal(t, "8080", cfg.Port)
}

func TestLoad_MissingCredentialsIsFatal(t *testing.T) {
	setRequired(t)
	t.Setenv("SHOPIFY_API_SECRET", "")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SHOPIFY_API_SECRET")
}

func TestLoad_RejectsUnknownAccessMode(t *testing.T) {
	setRequired(t)
	t.Setenv("SHOPIFY_ACCESS_MODE", "sometimes")

	_, err := Load()
	assert.Error(t, err)
}

func TestLoad_TrimsBaseURLTrailingSlash(t *testing.T) {
	setRequired(t)
	t.Setenv("APP_BASE_URL", "https://app.example.com/")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "https://app.example.com", cfg.AppBaseURL)
}
