package runtime

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/umatik/lottery-engine/internal/config"
)

func testConfig() config.Config {
	return config.Config{
		HTTP: config.HTTPConfig{
			Addr:            "127.0.0.1:0",
			ReadTimeout:     time.Second,
			WriteTimeout:    time.Second,
			ShutdownTimeout: time.Second,
			RateLimitRPS:    100,
			RateLimitBurst:  100,
		},
		Logging: config.LoggingConfig{Level: "error", Format: "json", Output: "stdout"},
	}
}

func TestNewApplicationWithConfig_MemoryStore(t *testing.T) {
	a, err := NewApplicationWithConfig(testConfig())
	require.NoError(t, err)
	assert.Nil(t, a.db)

	rec := httptest.NewRecorder()
	a.httpServer.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	a.httpServer.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAuthMiddlewareGatesAPIWhenSecretSet(t *testing.T) {
	cfg := testConfig()
	cfg.HTTP.JWTSecret = "test-secret"
	a, err := NewApplicationWithConfig(cfg)
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	a.httpServer.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/tickets", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	// Operational endpoints stay open.
	rec = httptest.NewRecorder()
	a.httpServer.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}
