package server

import (
	"context"
	"net/http"
	"os"

	"github.com/fulmenhq/gofulmen/signals"

	"github.com/gatewarden/gatewarden/internal/appid"
	"go.uber.org/zap"

	"github.com/gatewarden/gatewarden/internal/observability"
	"github.com/gatewarden/gatewarden/internal/ratelimit"
	"github.com/gatewarden/gatewarden/internal/server/handlers"
)

// registerRoutes registers all HTTP routes
func (s *Server) registerRoutes() {
	// Standard health endpoints per Workhorse §9
	s.router.Get("/health", handlers.HealthHandler)
	s.router.Get("/health/live", handlers.LivenessHandler)
	s.router.Get("/health/ready", handlers.ReadinessHandler)
	s.router.Get("/health/startup", handlers.StartupHandler)

	// Version endpoint
	s.router.Get("/version", handlers.VersionHandler)

	// Metrics endpoint (in server package to access HandleError)
	s.router.Get("/metrics", MetricsHandler)

	// Admission decision API. Always registered: host callers consult the
	// engine here even when middleware enforcement is switched off.
	if s.deps.Limiter != nil && s.deps.Registry != nil {
		s.router.Post("/v1/admit", handlers.NewAdmitHandler(s.deps.Limiter, s.deps.Registry, HandleDenied))

		tiersHandler := handlers.NewTiersHandler(s.deps.Registry)
		if s.deps.RateLimitEnabled {
			// The registry endpoint goes through the same admission
			// control it describes.
			s.router.With(s.guard.Guard(ratelimit.ClassRead)).Get("/v1/tiers", tiersHandler)
		} else {
			s.router.Get("/v1/tiers", tiersHandler)
		}
	}

	// Admin signal endpoint (optional, requires GATEWARDEN_ADMIN_TOKEN)
	s.registerAdminEndpoint()
}

// Guard exposes the admission middleware for host routers mounting their
// own guarded routes on top of this server.
func (s *Server) Guard(class string) func(next http.Handler) http.Handler {
	return s.guard.Guard(class)
}

// registerAdminEndpoint optionally registers the admin signal endpoint
func (s *Server) registerAdminEndpoint() {
	// Get admin token from environment (identity-aware)
	ctx := context.Background()
	identity, _ := appid.Get(ctx)
	envPrefix := "WORKHORSE_"
	if identity != nil && identity.EnvPrefix != "" {
		envPrefix = identity.EnvPrefix
	}

	adminToken := os.Getenv(envPrefix + "ADMIN_TOKEN")
	logger := observability.ServerLogger

	if adminToken == "" {
		if logger != nil {
			logger.Debug("Admin signal endpoint disabled (no " + envPrefix + "ADMIN_TOKEN set)")
		}
		return
	}

	// Create HTTP signal handler with bearer token auth and rate limiting
	handler := signals.NewHTTPHandler(signals.HTTPConfig{
		TokenAuth: adminToken,
		RateLimit: 10,  // 10 requests per minute
		RateBurst: 5,   // burst size
		Manager:   nil, // use default global manager
	})

	// Register admin endpoint
	s.router.Post("/admin/signal", handler.ServeHTTP)

	if logger != nil {
		logger.Info("Admin signal endpoint enabled",
			zap.String("path", "/admin/signal"),
			zap.String("auth", "bearer token"),
			zap.String("rate_limit", "10/min, burst 5"))
		logger.Warn("Admin endpoint enabled - ensure this server is not exposed to public internet")
	}
}
