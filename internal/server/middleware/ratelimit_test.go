package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gatewarden/gatewarden/internal/ratelimit"
)

func TestCallerOrigin(t *testing.T) {
	tests := []struct {
		name       string
		remoteAddr string
		forwarded  string
		realIP     string
		trustProxy bool
		want       string
	}{
		{
			name:       "remote addr host",
			remoteAddr: "192.0.2.1:5000",
			want:       "192.0.2.1",
		},
		{
			name:       "proxy headers ignored without trust",
			remoteAddr: "10.0.0.1:443",
			forwarded:  "203.0.113.9",
			realIP:     "203.0.113.10",
			want:       "10.0.0.1",
		},
		{
			name:       "forwarded first hop wins with trust",
			remoteAddr: "10.0.0.1:443",
			forwarded:  "203.0.113.9, 10.0.0.2",
			realIP:     "203.0.113.10",
			trustProxy: true,
			want:       "203.0.113.9",
		},
		{
			name:       "real ip when no forwarded",
			remoteAddr: "10.0.0.1:443",
			realIP:     "203.0.113.10",
			trustProxy: true,
			want:       "203.0.113.10",
		},
		{
			name:       "remote addr without port",
			remoteAddr: "192.0.2.4",
			want:       "192.0.2.4",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/", nil)
			r.RemoteAddr = tt.remoteAddr
			if tt.forwarded != "" {
				r.Header.Set("X-Forwarded-For", tt.forwarded)
			}
			if tt.realIP != "" {
				r.Header.Set("X-Real-IP", tt.realIP)
			}

			assert.Equal(t, tt.want, CallerOrigin(r, tt.trustProxy))
		})
	}
}

func TestAdmissionGuardEnforcesTier(t *testing.T) {
	registry, err := ratelimit.NewRegistry(map[string]ratelimit.TierOverride{
		"write": {MaxOperations: 2},
	})
	require.NoError(t, err)

	guard := &AdmissionGuard{
		Limiter:  ratelimit.NewLimiter(ratelimit.NewStore()),
		Registry: registry,
	}

	handler := guard.Guard(ratelimit.ClassWrite)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	do := func(subject string) *httptest.ResponseRecorder {
		r := httptest.NewRequest(http.MethodPost, "/thing", nil)
		r.RemoteAddr = "192.0.2.1:7000"
		if subject != "" {
			r.Header.Set(SubjectHeader, subject)
		}
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, r)
		return rec
	}

	require.Equal(t, http.StatusNoContent, do("alice").Code)
	require.Equal(t, http.StatusNoContent, do("alice").Code)

	rec := do("alice")
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "60", rec.Header().Get("Retry-After"))
	assert.Equal(t, "2", rec.Header().Get("X-RateLimit-Limit"))
	assert.Equal(t, "0", rec.Header().Get("X-RateLimit-Remaining"))

	// A different subject from the same origin is a distinct identity.
	assert.Equal(t, http.StatusNoContent, do("bob").Code)
}

func TestAdmissionGuardFailsOpenOnUnknownClass(t *testing.T) {
	guard := &AdmissionGuard{
		Limiter:  ratelimit.NewLimiter(ratelimit.NewStore()),
		Registry: ratelimit.DefaultRegistry(),
	}

	handler := guard.Guard("no-such-class")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, r)

	assert.Equal(t, http.StatusNoContent, rec.Code)
}
