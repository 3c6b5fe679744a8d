// Package web provides the HTTP API for import, export, saved views and
// the entity records around them.
package web

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/JonMunkholm/donorcrm/internal/auth"
	"github.com/JonMunkholm/donorcrm/internal/config"
	"github.com/JonMunkholm/donorcrm/internal/core"
	"github.com/JonMunkholm/donorcrm/internal/metrics"
	"github.com/JonMunkholm/donorcrm/internal/web/middleware"
)

// rateLimitIdle is how long a quiet client's bucket is kept.
const rateLimitIdle = 10 * time.Minute

// Server is the HTTP server for the CRM API.
type Server struct {
	service *core.Service
	cfg     *config.Config
	signer  *auth.Signer
	metrics *metrics.Registry
	ping    func(context.Context) error

	router *chi.Mux
	server *http.Server
}

// Option customizes a Server.
type Option func(*Server)

// WithMetrics records HTTP metrics and serves them at cfg.Metrics.Path.
func WithMetrics(m *metrics.Registry) Option {
	return func(s *Server) { s.metrics = m }
}

// WithHealthCheck makes /healthz report the result of ping.
func WithHealthCheck(ping func(context.Context) error) Option {
	return func(s *Server) { s.ping = ping }
}

// NewServer creates a new Server instance.
func NewServer(service *core.Service, cfg *config.Config, opts ...Option) *Server {
	s := &Server{
		service: service,
		cfg:     cfg,
		signer:  auth.NewSigner(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL),
		router:  chi.NewRouter(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.setupMiddleware()
	s.setupRoutes()
	return s
}

// setupMiddleware configures middleware for all routes.
func (s *Server) setupMiddleware() {
	s.router.Use(chimw.RequestID)
	s.router.Use(middleware.TrustedRealIP(s.cfg.Security.TrustedProxies))
	s.router.Use(middleware.Logger)
	s.router.Use(chimw.Recoverer)
	if s.metrics != nil {
		s.router.Use(s.metrics.Middleware)
	}
	s.router.Use(middleware.SecurityHeaders(s.cfg.Security.EnableCSP))

	if s.cfg.Rate.Enabled {
		s.router.Use(s.newLimiter(s.cfg.Rate.RequestsPerMinute).Middleware)
	}
}

func (s *Server) newLimiter(perMinute int) *middleware.RateLimiter {
	rl := middleware.NewRateLimiter(perMinute, s.cfg.Rate.Burst, rateLimitIdle)
	if s.metrics != nil {
		rl.OnReject = s.metrics.RateLimitedRequests.Inc
	}
	return rl
}

// setupRoutes configures all HTTP routes.
func (s *Server) setupRoutes() {
	s.router.Get("/healthz", s.handleHealth)
	if s.metrics != nil && s.cfg.Metrics.Enabled {
		s.router.Handle(s.cfg.Metrics.Path, s.metrics.Handler())
	}

	s.router.Route("/api", func(r chi.Router) {
		r.Use(middleware.Authenticate(&s.cfg.Auth, s.signer))

		// Imports run under their own timeout and slot limiter, so they
		// skip the request timeout and get a stricter rate limit.
		r.Group(func(r chi.Router) {
			if s.cfg.Rate.Enabled {
				r.Use(s.newLimiter(s.cfg.Rate.ImportLimit).Middleware)
			}
			r.Post("/import", s.handleImport)
			r.Post("/import/preview", s.handlePreview)
		})

		r.Group(func(r chi.Router) {
			r.Use(chimw.Timeout(s.cfg.Server.RequestTimeout))
			r.Use(chimw.Compress(5))

			r.Get("/import/template/{entityType}", s.handleTemplate)
			r.Get("/import/fields/{entityType}", s.handleFields)

			r.Get("/export", s.handleExport)

			r.Route("/saved-views", func(r chi.Router) {
				r.Get("/", s.handleListViews)
				r.Post("/", s.handleCreateView)
				r.Get("/{id}", s.handleGetView)
				r.Get("/{id}/apply", s.handleApplyView)
				r.Put("/{id}", s.handleUpdateView)
				r.Delete("/{id}", s.handleDeleteView)
			})

			for _, et := range []core.EntityType{core.EntityPeople, core.EntityCompanies, core.EntitySchools} {
				r.Route("/"+string(et), func(r chi.Router) {
					if et == core.EntityPeople {
						r.Get("/export", s.handlePeopleExport)
					}
					r.Get("/", s.withEntity(et, s.handleListEntities))
					r.Post("/", s.withEntity(et, s.handleCreateEntity))
					r.Get("/{id}", s.withEntity(et, s.handleGetEntity))
					r.With(middleware.RequireAdmin).Delete("/{id}", s.withEntity(et, s.handleDeleteEntity))
				})
			}

			r.Get("/person-types", s.handleListPersonTypes)
			r.With(middleware.RequireAdmin).Post("/person-types", s.handleCreatePersonType)

			r.Get("/donations", s.handleListDonations)
			r.Post("/donations", s.handleCreateDonation)
			r.Put("/donations/{id}", s.handleUpdateDonation)
		})
	})
}

// Start begins listening for HTTP requests.
func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:         s.cfg.Server.Addr(),
		Handler:      s.router,
		ReadTimeout:  s.cfg.Server.ReadTimeout,
		WriteTimeout: s.cfg.Server.WriteTimeout,
		IdleTimeout:  s.cfg.Server.IdleTimeout,
	}

	slog.Info("starting server", "addr", s.server.Addr)
	return s.server.ListenAndServe()
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

// Router returns the underlying chi router for testing.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// Signer returns the token signer, used by tests and crmctl.
func (s *Server) Signer() *auth.Signer {
	return s.signer
}
