package http

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/practicebeats/practice-hub/internal/interface/http/handlers"
)

func newTestServer(t *testing.T, deps Dependencies) *Server {
	t.Helper()
	cfg := DefaultConfig()
	cfg.RateLimitPerMinute = 0
	return NewServer(cfg, deps)
}

func TestHealthEndpoints(t *testing.T) {
	s := newTestServer(t, Dependencies{
		HealthChecker: handlers.NewNoopHealthChecker(),
	})

	for _, path := range []string{"/health", "/healthz", "/ready", "/live"} {
		rec := httptest.NewRecorder()
		s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusOK, rec.Code, path)
	}
}

func TestRootEndpoint(t *testing.T) {
	s := newTestServer(t, Dependencies{})

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	require.Equal(t, http.StatusOK, rec.Code)

	var resp JSONResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Success)

	data, ok := resp.Data.(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "Practice Hub API", data["name"])
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	s := newTestServer(t, Dependencies{
		Tokens: handlers.NewTokenManager("test-secret", time.Hour),
	})

	requests := []struct {
		method string
		path   string
	}{
		{http.MethodPost, "/api/v1/sessions"},
		{http.MethodGet, "/api/v1/tasks"},
		{http.MethodGet, "/api/v1/me/stats"},
		{http.MethodPost, "/api/v1/ensembles/join"},
		{http.MethodGet, "/api/v1/teacher/students"},
	}

	for _, req := range requests {
		rec := httptest.NewRecorder()
		s.Handler().ServeHTTP(rec, httptest.NewRequest(req.method, req.path, nil))
		assert.Equal(t, http.StatusUnauthorized, rec.Code, "%s %s", req.method, req.path)
	}
}

func TestProtectedRouteWithTokenButNoHandler(t *testing.T) {
	tokens := handlers.NewTokenManager("test-secret", time.Hour)
	s := newTestServer(t, Dependencies{Tokens: tokens})

	token, err := tokens.Issue("user-1", "student")
	require.NoError(t, err)

	// Authenticated but the stats handler is not wired: 501, not 401.
	r := httptest.NewRequest(http.MethodGet, "/api/v1/me/stats", nil)
	r.Header.Set("Authorization", "Bearer "+token)

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, r)
	assert.Equal(t, http.StatusNotImplemented, rec.Code)
}

func TestRequestIDHeader(t *testing.T) {
	s := newTestServer(t, Dependencies{})

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/live", nil))
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))

	// A supplied request ID is echoed back.
	r := httptest.NewRequest(http.MethodGet, "/live", nil)
	r.Header.Set("X-Request-ID", "req-42")
	rec = httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, r)
	assert.Equal(t, "req-42", rec.Header().Get("X-Request-ID"))
}

func TestRateLimiter(t *testing.T) {
	rl := newRateLimiter(3, time.Minute)

	for i := 0; i < 3; i++ {
		assert.True(t, rl.Allow("10.0.0.1"))
	}
	assert.False(t, rl.Allow("10.0.0.1"))

	// A different client is unaffected.
	assert.True(t, rl.Allow("10.0.0.2"))
}

func TestRateLimitResponse(t *testing.T) {
	cfg := DefaultConfig()
	cfg.RateLimitPerMinute = 1
	s := NewServer(cfg, Dependencies{})

	r := httptest.NewRequest(http.MethodGet, "/live", nil)
	r.RemoteAddr = "192.0.2.7:1234"

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, r)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, r)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "60", rec.Header().Get("Retry-After"))
}

func TestCORSPreflight(t *testing.T) {
	s := newTestServer(t, Dependencies{})

	r := httptest.NewRequest(http.MethodOptions, "/api/v1/tasks", nil)
	r.Header.Set("Origin", "https://app.example.com")

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, r)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "https://app.example.com", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestGetQueryParamTime(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/x?at=2026-03-09T12:00:00Z&bad=not-a-time", nil)

	at := getQueryParamTime(r, "at")
	assert.Equal(t, time.Date(2026, 3, 9, 12, 0, 0, 0, time.UTC), at.UTC())

	assert.True(t, getQueryParamTime(r, "bad").IsZero())
	assert.True(t, getQueryParamTime(r, "missing").IsZero())
}
