package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/gatewarden/gatewarden/internal/errors"
	"github.com/gatewarden/gatewarden/internal/ratelimit"
	"github.com/gatewarden/gatewarden/internal/server/handlers"
)

func newTestServer(t *testing.T, overrides map[string]ratelimit.TierOverride) *Server {
	t.Helper()

	registry, err := ratelimit.NewRegistry(overrides)
	require.NoError(t, err)

	return New("127.0.0.1", 0, Dependencies{
		Registry:         registry,
		Limiter:          ratelimit.NewLimiter(ratelimit.NewStore()),
		RateLimitEnabled: true,
	})
}

func TestServerUsesStandardErrorHandlers(t *testing.T) {
	srv := newTestServer(t, nil)

	req := httptest.NewRequest(http.MethodGet, "/does-not-exist", nil)
	rec := httptest.NewRecorder()

	srv.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusNotFound, rec.Code)

	var body apperrors.HTTPErrorResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, "NOT_FOUND", body.Error.Code)
}

func TestAdmitEndpointAllows(t *testing.T) {
	srv := newTestServer(t, nil)

	body := strings.NewReader(`{"tier":"ai","subject":"user-1","origin":"10.0.0.1"}`)
	req := httptest.NewRequest(http.MethodPost, "/v1/admit", body)
	rec := httptest.NewRecorder()

	srv.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var decision handlers.AdmitResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&decision))
	assert.True(t, decision.Allowed)
	assert.Equal(t, "ai", decision.Tier)
	assert.Equal(t, 5, decision.Limit)
	assert.Equal(t, 4, decision.Remaining)
}

func TestAdmitEndpointDeniesOverLimit(t *testing.T) {
	srv := newTestServer(t, map[string]ratelimit.TierOverride{
		"ai": {MaxOperations: 2},
	})

	do := func() *httptest.ResponseRecorder {
		body := strings.NewReader(`{"tier":"ai","subject":"user-1","origin":"10.0.0.1"}`)
		req := httptest.NewRequest(http.MethodPost, "/v1/admit", body)
		rec := httptest.NewRecorder()
		srv.Handler().ServeHTTP(rec, req)
		return rec
	}

	require.Equal(t, http.StatusOK, do().Code)
	require.Equal(t, http.StatusOK, do().Code)

	rec := do()
	require.Equal(t, http.StatusTooManyRequests, rec.Code)

	assert.Equal(t, "60", rec.Header().Get("Retry-After"))
	assert.Equal(t, "2", rec.Header().Get("X-RateLimit-Limit"))
	assert.Equal(t, "0", rec.Header().Get("X-RateLimit-Remaining"))
	assert.NotEmpty(t, rec.Header().Get("X-RateLimit-Reset"))

	var body apperrors.HTTPErrorResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, "RATE_LIMITED", body.Error.Code)
	assert.Equal(t, ratelimit.DeniedMessage, body.Error.Message)
}

func TestAdmitEndpointValidation(t *testing.T) {
	srv := newTestServer(t, nil)

	t.Run("MalformedBody", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/v1/admit", strings.NewReader("{"))
		rec := httptest.NewRecorder()
		srv.Handler().ServeHTTP(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("MissingTier", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/v1/admit", strings.NewReader(`{"subject":"u"}`))
		rec := httptest.NewRecorder()
		srv.Handler().ServeHTTP(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("UnknownTier", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/v1/admit", strings.NewReader(`{"tier":"bulk"}`))
		rec := httptest.NewRecorder()
		srv.Handler().ServeHTTP(rec, req)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestTiersEndpointListsRegistry(t *testing.T) {
	srv := newTestServer(t, nil)

	req := httptest.NewRequest(http.MethodGet, "/v1/tiers", nil)
	req.RemoteAddr = "192.0.2.1:1234"
	rec := httptest.NewRecorder()

	srv.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var body handlers.TiersResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	require.Len(t, body.Tiers, 6)

	// Sorted by class name.
	assert.Equal(t, "admin", body.Tiers[0].Class)
	assert.Equal(t, "ai", body.Tiers[1].Class)
	assert.Equal(t, 5, body.Tiers[1].MaxOperations)
	assert.Equal(t, 60, body.Tiers[1].WindowSeconds)
}

func TestTiersEndpointIsGuarded(t *testing.T) {
	srv := newTestServer(t, map[string]ratelimit.TierOverride{
		"read": {MaxOperations: 1},
	})

	do := func() *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/v1/tiers", nil)
		req.RemoteAddr = "192.0.2.7:4444"
		rec := httptest.NewRecorder()
		srv.Handler().ServeHTTP(rec, req)
		return rec
	}

	require.Equal(t, http.StatusOK, do().Code)

	rec := do()
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "60", rec.Header().Get("Retry-After"))
}

func TestTiersGuardSeparatesOrigins(t *testing.T) {
	srv := newTestServer(t, map[string]ratelimit.TierOverride{
		"read": {MaxOperations: 1},
	})

	do := func(remote string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/v1/tiers", nil)
		req.RemoteAddr = remote
		rec := httptest.NewRecorder()
		srv.Handler().ServeHTTP(rec, req)
		return rec
	}

	require.Equal(t, http.StatusOK, do("192.0.2.1:1000").Code)
	require.Equal(t, http.StatusTooManyRequests, do("192.0.2.1:2000").Code)

	// A different origin still has budget.
	require.Equal(t, http.StatusOK, do("192.0.2.2:1000").Code)
}
