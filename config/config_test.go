package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("ENVIRONMENT", "development")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "session_token", cfg.Session.CookieName)
	assert.Equal(t, 7*24*time.Hour, cfg.Session.TTL)
	assert.Equal(t, 24*time.Hour, cfg.Session.RenewalWindow)
	assert.Equal(t, 24*time.Hour, cfg.Checkout.PendingTTL)
	assert.Equal(t, "local", cfg.Invoice.Storage)
	assert.False(t, cfg.Server.IsProduction())
}

func TestLoad_ProductionRequiresSecrets(t *testing.T) {
	t.Setenv("ENVIRONMENT", "production")
	t.Setenv("JWT_SECRET", "")
	t.Setenv("STRIPE_SECRET_KEY", "")

	_, err := Load()
	assert.Error(t, err)
}

func TestParseSlice(t *testing.T) {
	assert.Equal(t, []string{"a", "b"}, parseSlice(" a, ,b "))
	assert.Empty(t, parseSlice(""))
}

func TestParseDuration_Fallback(t *testing.T) {
	assert.Equal(t, time.Minute, parseDuration("nope", time.Minute))
	assert.Equal(t, 2*time.Hour, parseDuration("2h", time.Minute))
}
