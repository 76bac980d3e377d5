package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	apperrors "github.com/gatewarden/gatewarden/internal/errors"
	"github.com/gatewarden/gatewarden/internal/observability"
	"github.com/gatewarden/gatewarden/internal/ratelimit"
	"github.com/gatewarden/gatewarden/internal/server/handlers"
	servermw "github.com/gatewarden/gatewarden/internal/server/middleware"
)

// Dependencies carries the admission-control wiring the server exposes.
type Dependencies struct {
	Registry *ratelimit.Registry
	Limiter  *ratelimit.Limiter

	// RateLimitEnabled gates the admission middleware on guarded routes.
	// The /v1/admit decision API is registered regardless so host callers
	// can keep consulting the engine.
	RateLimitEnabled bool

	// TrustProxyHeaders controls whether forwarding headers are honored
	// when deriving caller origins.
	TrustProxyHeaders bool
}

// Server represents the HTTP server
type Server struct {
	router *chi.Mux
	server *http.Server
	host   string
	port   int
	deps   Dependencies
	guard  *servermw.AdmissionGuard
}

// New creates a new HTTP server instance
func New(host string, port int, deps Dependencies) *Server {
	r := chi.NewRouter()

	// RealIP rewrites RemoteAddr from forwarding headers; only safe behind
	// a trusted proxy.
	if deps.TrustProxyHeaders {
		r.Use(middleware.RealIP)
	}

	// Our custom middleware in correct order (RequestID → Metrics → Recovery)
	r.Use(servermw.RequestID)      // 1. Request ID (early for correlation)
	r.Use(servermw.RequestMetrics) // 2. Metrics (measure everything)
	r.Use(servermw.ErrorHandler)   // 3. Error handling (after metrics)
	r.Use(servermw.Recovery)       // 4. Panic recovery (outermost)

	// Standardized error responses using centralized HandleError
	r.NotFound(func(w http.ResponseWriter, req *http.Request) {
		// Use gofulmen error envelope for 404 - correlation ID extracted from request context
		err := apperrors.NewNotFoundError("The requested resource was not found")
		HandleError(w, req, err)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, req *http.Request) {
		// Use gofulmen error envelope for 405 - correlation ID extracted from request context
		err := apperrors.NewMethodNotAllowedError("The requested method is not allowed for this resource")
		HandleError(w, req, err)
	})

	s := &Server{
		router: r,
		host:   host,
		port:   port,
		deps:   deps,
	}

	// Admission guard shares the centralized error pipeline so denials are
	// logged and counted the same way as every other error response.
	s.guard = &servermw.AdmissionGuard{
		Limiter:           deps.Limiter,
		Registry:          deps.Registry,
		TrustProxyHeaders: deps.TrustProxyHeaders,
		Denied:            HandleDenied,
	}

	// Ensure handlers use the centralized error responder
	handlers.SetHTTPErrorResponder(HandleError)

	// Register routes
	s.registerRoutes()

	return s
}

// HandleDenied translates a deny decision into the standard 429 response.
func HandleDenied(w http.ResponseWriter, r *http.Request, decision ratelimit.Decision) {
	servermw.SetRateLimitHeaders(w, decision)
	HandleError(w, r, apperrors.NewRateLimitedError(decision))
}

// Start starts the HTTP server
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.host, s.port)

	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	observability.ServerLogger.Info("Starting HTTP server",
		zap.String("host", s.host),
		zap.Int("port", s.port),
		zap.String("addr", addr))

	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the HTTP server
func (s *Server) Shutdown(ctx context.Context) error {
	observability.ServerLogger.Info("Shutting down HTTP server")
	return s.server.Shutdown(ctx)
}

// Handler exposes the underlying router for testing and instrumentation
func (s *Server) Handler() http.Handler {
	return s.router
}

// Port returns the server port for testing
func (s *Server) Port() int {
	return s.port
}
