package bootstrap

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pulseproto/pulsegate/config"
)

func TestNew_DefaultConfig(t *testing.T) {
	a, err := New(config.Default())
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0:8080", a.HTTPServer.Addr)
	assert.Nil(t, a.Metrics)

	// The demo key can drive a request end to end.
	req := httptest.NewRequest("POST", "/v1/send", nil)
	req.Header.Set("X-API-Key", "demo-key")
	rec := httptest.NewRecorder()
	a.HTTPServer.Handler.ServeHTTP(rec, req)
	// Empty body means empty action: rejected past quota with a 200.
	assert.Equal(t, 200, rec.Code)
	assert.Contains(t, rec.Body.String(), "Invalid message")
}

func TestNew_ServesHealth(t *testing.T) {
	a, err := New(config.Default())
	require.NoError(t, err)

	req := httptest.NewRequest("GET", "/health", nil)
	rec := httptest.NewRecorder()
	a.HTTPServer.Handler.ServeHTTP(rec, req)

	assert.Equal(t, 200, rec.Code)
	assert.Contains(t, rec.Body.String(), "healthy")
}

func TestNew_WellKnownProviders(t *testing.T) {
	a, err := New(config.Default())
	require.NoError(t, err)

	req := httptest.NewRequest("GET", "/v1/providers", nil)
	rec := httptest.NewRecorder()
	a.HTTPServer.Handler.ServeHTTP(rec, req)

	require.Equal(t, 200, rec.Code)
	for _, name := range []string{"echo", "openai", "anthropic", "binance", "bybit", "kraken", "okx"} {
		assert.Contains(t, rec.Body.String(), name)
	}
}

func TestNew_CustomPatternApplies(t *testing.T) {
	cfg := config.Default()
	cfg.Security.CustomPatterns = []config.PatternConfig{
		{Pattern: `secret\s+handshake`, Category: "custom_threat"},
	}

	a, err := New(cfg)
	require.NoError(t, err)

	req := httptest.NewRequest("POST", "/v1/send",
		jsonBody(`{"action":"chat","provider":"echo","parameters":{"text":"the SECRET handshake"}}`))
	req.Header.Set("X-API-Key", "demo-key")
	rec := httptest.NewRecorder()
	a.HTTPServer.Handler.ServeHTTP(rec, req)

	assert.Equal(t, 200, rec.Code)
	assert.Contains(t, rec.Body.String(), "custom_threat")
}

func TestNew_BadPatternFails(t *testing.T) {
	cfg := config.Default()
	cfg.Security.CustomPatterns = []config.PatternConfig{
		{Pattern: "[unclosed", Category: "x"},
	}

	_, err := New(cfg)
	require.Error(t, err)
}

func TestNew_UnknownKeyTierFails(t *testing.T) {
	cfg := config.Default()
	cfg.Keys = []config.KeyConfig{{Key: "k", Tier: "platinum"}}

	_, err := New(cfg)
	require.Error(t, err)
	// The key itself never appears in the error.
	assert.NotContains(t, err.Error(), `"k"`)
}

func jsonBody(s string) io.Reader {
	return strings.NewReader(s)
}
