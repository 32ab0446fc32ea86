package routes

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"github.com/quickcart/catalog-api/internal/auth"
	"github.com/quickcart/catalog-api/internal/config"
	"github.com/quickcart/catalog-api/internal/middleware"
	"github.com/quickcart/catalog-api/internal/store"
)

type testEnv struct {
	app    *fiber.App
	store  *store.MemoryStore
	issuer *auth.Issuer
}

func testConfig() *config.Config {
	return &config.Config{
		Server: config.ServerConfig{Port: "8000", Environment: "test"},
		Store:  config.StoreConfig{Backend: "memory"},
		JWT: config.JWTConfig{
			Secret:   "test-secret",
			TTL:      time.Hour,
			Issuer:   "catalog-api",
			Audience: "catalog-clients",
		},
		RateLimit: config.RateLimitConfig{
			Enabled:      true,
			Backend:      "memory",
			PublicLimit:  1000,
			PublicWindow: 10 * time.Minute,
			WriteLimit:   1000,
			WriteWindow:  30 * time.Minute,
			LoginLimit:   1000,
			LoginWindow:  10 * time.Minute,
		},
		Observability: config.ObservabilityConfig{MetricsPath: "/metrics"},
		Log:           config.LogConfig{Level: "error", Format: "json"},
	}
}

func newTestEnv(t *testing.T, mutate func(*config.Config)) *testEnv {
	t.Helper()

	cfg := testConfig()
	if mutate != nil {
		mutate(cfg)
	}

	logger := logrus.New()
	logger.SetOutput(io.Discard)

	issuer := auth.NewIssuer(&cfg.JWT)
	mw, err := middleware.NewManager(cfg, issuer, logger)
	require.NoError(t, err)

	st := store.NewMemoryStore()
	app := fiber.New()
	Setup(app, cfg, logger, mw, st, issuer)

	return &testEnv{app: app, store: st, issuer: issuer}
}

func (e *testEnv) request(t *testing.T, method, path, token string, body interface{}) *http.Response {
	t.Helper()

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := e.app.Test(req, -1)
	require.NoError(t, err)
	return resp
}

func decodeBody(t *testing.T, resp *http.Response) map[string]interface{} {
	t.Helper()

	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &body), "body: %s", data)
	return body
}

func (e *testEnv) authToken(t *testing.T) string {
	t.Helper()

	token, _, err := e.issuer.Issue("test-user", "tester")
	require.NoError(t, err)
	return token
}

func TestHealthEndpoints(t *testing.T) {
	env := newTestEnv(t, nil)

	for _, path := range []string{"/healthz", "/readyz", "/version", "/metrics"} {
		resp := env.request(t, "GET", path, "", nil)
		require.Equal(t, fiber.StatusOK, resp.StatusCode, path)
	}
}

func TestUnknownRouteReturns404(t *testing.T) {
	env := newTestEnv(t, nil)

	resp := env.request(t, "GET", "/api/nope", "", nil)
	require.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}
