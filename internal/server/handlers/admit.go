package handlers

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	apperrors "github.com/gatewarden/gatewarden/internal/errors"
	"github.com/gatewarden/gatewarden/internal/metrics"
	"github.com/gatewarden/gatewarden/internal/ratelimit"
	servermw "github.com/gatewarden/gatewarden/internal/server/middleware"
)

// AdmitRequest is the body of POST /v1/admit. Subject and Origin are both
// optional; a request carrying neither is counted under the shared unknown
// identity.
type AdmitRequest struct {
	Tier    string `json:"tier"`
	Subject string `json:"subject,omitempty"`
	Origin  string `json:"origin,omitempty"`
}

// AdmitResponse is returned for allowed decisions.
type AdmitResponse struct {
	Allowed   bool   `json:"allowed"`
	Tier      string `json:"tier"`
	Limit     int    `json:"limit"`
	Remaining int    `json:"remaining"`
	Window    string `json:"window"`
}

// NewAdmitHandler returns the decision endpoint for host callers that gate
// their own operations. An allowed decision consumes one operation from the
// identity's window; a denied one responds 429 with the standard retry
// headers through the injected responder.
func NewAdmitHandler(limiter *ratelimit.Limiter, registry *ratelimit.Registry, denied func(http.ResponseWriter, *http.Request, ratelimit.Decision)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req AdmitRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondWithError(w, r, apperrors.NewInvalidInputError("Request body must be valid JSON"))
			return
		}

		class := strings.TrimSpace(req.Tier)
		if class == "" {
			respondWithError(w, r, apperrors.NewValidationError("Field 'tier' is required"))
			return
		}

		tier, ok := registry.Get(class)
		if !ok {
			respondWithError(w, r, apperrors.NewNotFoundError("Unknown tier: "+class))
			return
		}

		origin := req.Origin
		if strings.TrimSpace(origin) == "" {
			// Fall back to the caller's own network origin. Proxy headers
			// are not consulted here: callers that front other clients
			// pass the origin explicitly in the body.
			origin = servermw.CallerOrigin(r, false)
		}
		identity := ratelimit.IdentityKey(req.Subject, origin)

		decision := limiter.Allow(tier, identity)
		metrics.RecordAdmission(tier.Class, decision.Allowed)

		if !decision.Allowed {
			denied(w, r, decision)
			return
		}

		response := AdmitResponse{
			Allowed:   true,
			Tier:      tier.Class,
			Limit:     decision.Limit,
			Remaining: decision.Remaining,
			Window:    tier.Window.String(),
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(response)
	}
}

// TierView is the wire form of one tier policy.
type TierView struct {
	Class         string `json:"class"`
	MaxOperations int    `json:"max_operations"`
	Window        string `json:"window"`
	WindowSeconds int    `json:"window_seconds"`
}

// TiersResponse lists the active tier registry.
type TiersResponse struct {
	Tiers []TierView `json:"tiers"`
}

// NewTiersHandler returns the tier registry as data.
func NewTiersHandler(registry *ratelimit.Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tiers := registry.Tiers()
		response := TiersResponse{Tiers: make([]TierView, 0, len(tiers))}
		for _, tier := range tiers {
			response.Tiers = append(response.Tiers, TierView{
				Class:         tier.Class,
				MaxOperations: tier.MaxOperations,
				Window:        tier.Window.String(),
				WindowSeconds: int(tier.Window / time.Second),
			})
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(response)
	}
}
