package app

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	_ "github.com/agrotrade/agrotrade/internal/testing/guard"

	"github.com/agrotrade/agrotrade/internal/observability"
	"github.com/agrotrade/agrotrade/internal/rbac"
)

func testRouter(t *testing.T, cfg *Config) http.Handler {
	t.Helper()
	rbacMW := rbac.Middleware{Service: rbac.NewService()}
	return NewRouter(RouterParams{
		Logger:             slog.New(slog.NewTextHandler(io.Discard, nil)),
		Config:             cfg,
		RBACMiddleware:     rbacMW,
		Metrics:            observability.NewMetrics(),
		PermissionsHandler: rbac.NewPermissionsHandler(rbac.NewService(), rbacMW),
	})
}

func TestInTestModeFromGuard(t *testing.T) {
	RefreshTestMode()
	assert.True(t, InTestMode())
}

func TestHealthAndMetrics(t *testing.T) {
	h := testRouter(t, &Config{AppEnv: "test"})

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "agrotrade_http_requests_total")
}

func TestProtectedRoutesRequireAuth(t *testing.T) {
	h := testRouter(t, &Config{AppEnv: "test"})
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/permissions/me", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "application/problem+json")
}

func TestUnknownRouteIsProblemJSON(t *testing.T) {
	h := testRouter(t, &Config{AppEnv: "test"})
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/nope", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestMediaServedFromStorageDir(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "products", "1"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "products", "1", "a.txt"), []byte("hello"), 0o644))

	h := testRouter(t, &Config{AppEnv: "test", StorageDir: dir})
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/media/products/1/a.txt", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "hello", rec.Body.String())
	assert.Equal(t, "public, max-age=86400", rec.Header().Get("Cache-Control"))
}

func TestLoadConfig(t *testing.T) {
	t.Setenv("ENV_FILE", filepath.Join(t.TempDir(), "missing.env"))
	t.Setenv("JWT_SECRET", "0123456789abcdef0123456789abcdef")
	t.Setenv("LOW_STOCK_THRESHOLD", "250")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.AppAddr)
	assert.Equal(t, 250.0, cfg.LowStockThreshold)
	assert.Equal(t, int64(5<<20), cfg.UploadMaxBytes)
	assert.False(t, cfg.IsProduction())
}

func TestLoadConfigReadsDotEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.env")
	require.NoError(t, os.WriteFile(path, []byte("SKU_NODE=7\n"), 0o600))
	t.Setenv("ENV_FILE", path)
	t.Setenv("JWT_SECRET", "0123456789abcdef0123456789abcdef")
	t.Cleanup(func() { _ = os.Unsetenv("SKU_NODE") })

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, int64(7), cfg.SKUNode)
}

func TestLoadConfigRejectsShortSecret(t *testing.T) {
	t.Setenv("ENV_FILE", filepath.Join(t.TempDir(), "missing.env"))
	t.Setenv("JWT_SECRET", "short")
	_, err := LoadConfig()
	assert.Error(t, err)
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, parseLevel(&Config{LogLevel: "DEBUG"}))
	assert.Equal(t, slog.LevelInfo, parseLevel(nil))
}

func TestMiddlewareConfigDefaults(t *testing.T) {
	var cfg MiddlewareConfig
	assert.Equal(t, defaultRequestTimeout, cfg.timeout())
	assert.Equal(t, defaultRatePerMinute, cfg.ratePerMinute())
	assert.False(t, cfg.production())
	assert.Zero(t, stsSeconds(false))
	assert.Positive(t, stsSeconds(true))

	cfg.Config = &Config{RateLimitPerMin: 2}
	assert.Equal(t, 2, cfg.ratePerMinute())
}

func TestRateLimitAnswersProblemJSON(t *testing.T) {
	h := testRouter(t, &Config{AppEnv: "test", RateLimitPerMin: 1})

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "application/problem+json")
}
