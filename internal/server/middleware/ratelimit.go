package middleware

import (
	"net"
	"net/http"
	"strings"

	"github.com/fulmenhq/gofulmen/errors"

	"github.com/gatewarden/gatewarden/internal/metrics"
	"github.com/gatewarden/gatewarden/internal/ratelimit"
)

// SubjectHeader carries the authenticated caller subject, set by the
// fronting auth layer. Absent for anonymous traffic.
const SubjectHeader = "X-API-Subject"

// AdmissionGuard wraps routes with per-identity admission control.
//
// Denied is invoked to translate a deny decision into the HTTP response;
// the server package injects a responder that uses the centralized error
// pipeline (avoids a circular import, same pattern as handlers'
// SetHTTPErrorResponder).
type AdmissionGuard struct {
	Limiter           *ratelimit.Limiter
	Registry          *ratelimit.Registry
	TrustProxyHeaders bool
	Denied            func(w http.ResponseWriter, r *http.Request, decision ratelimit.Decision)
}

// Guard returns middleware enforcing the named tier class on the wrapped
// routes. An unknown class fails open: admission control must never take
// down an endpoint because of a policy typo.
func (g *AdmissionGuard) Guard(class string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if g == nil || g.Limiter == nil || g.Registry == nil {
				next.ServeHTTP(w, r)
				return
			}

			tier, ok := g.Registry.Get(class)
			if !ok {
				next.ServeHTTP(w, r)
				return
			}

			subject := r.Header.Get(SubjectHeader)
			identity := ratelimit.IdentityKey(subject, CallerOrigin(r, g.TrustProxyHeaders))

			decision := g.Limiter.Allow(tier, identity)
			metrics.RecordAdmission(class, decision.Allowed)

			if decision.Allowed {
				next.ServeHTTP(w, r)
				return
			}

			if g.Denied != nil {
				g.Denied(w, r, decision)
				return
			}

			// Fallback when no responder is injected (tests exercising the
			// guard in isolation).
			SetRateLimitHeaders(w, decision)
			envelope := errors.NewErrorEnvelope("RATE_LIMITED", ratelimit.DeniedMessage).
				WithCorrelationID(GetRequestID(r.Context()))
			writeErrorResponse(w, envelope, http.StatusTooManyRequests)
		})
	}
}

// SetRateLimitHeaders writes the standard deny headers for a decision.
// Callers must invoke this before writing the status code.
func SetRateLimitHeaders(w http.ResponseWriter, decision ratelimit.Decision) {
	w.Header().Set("Retry-After", decision.RetryAfterHeader())
	w.Header().Set("X-RateLimit-Limit", decision.LimitHeader())
	w.Header().Set("X-RateLimit-Remaining", "0")
	w.Header().Set("X-RateLimit-Reset", decision.ResetHeader())
}

// CallerOrigin derives the network origin of a request.
//
// With trustProxy set, forwarding headers win: the first hop of
// X-Forwarded-For, then X-Real-IP. Otherwise (and as the final fallback)
// the host portion of RemoteAddr is used. Returns "" when nothing usable
// is present, which IdentityKey maps to its unknown bucket.
func CallerOrigin(r *http.Request, trustProxy bool) string {
	if trustProxy {
		if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
			first, _, _ := strings.Cut(fwd, ",")
			if first = strings.TrimSpace(first); first != "" {
				return first
			}
		}
		if real := strings.TrimSpace(r.Header.Get("X-Real-IP")); real != "" {
			return real
		}
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		// RemoteAddr without a port (common in httptest setups).
		return strings.TrimSpace(r.RemoteAddr)
	}
	return host
}
