// Package api exposes the recur engine over HTTP.
//
// Mutating routes require an HS256 bearer token whose subject is the calling
// account. Lookups are public.
package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/xraph/recur"
	"github.com/xraph/recur/host"
)

// Server routes HTTP requests to an engine.
type Server struct {
	engine *recur.Engine
	secret []byte
	logger *slog.Logger
	funder host.Funder
	router chi.Router
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the request logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) { s.logger = l }
}

// WithFunder exposes POST /accounts/{account}/funds to the trusted invoker.
func WithFunder(f host.Funder) Option {
	return func(s *Server) { s.funder = f }
}

// NewServer creates a Server verifying bearer tokens with secret.
func NewServer(engine *recur.Engine, secret []byte, opts ...Option) *Server {
	s := &Server{
		engine: engine,
		secret: secret,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.router = s.routes()
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(requestID)
	r.Use(s.logRequests)
	r.Use(middleware.Recoverer)

	// Public
	r.Get("/healthz", s.health)
	r.Get("/schedules/{id}", s.getSchedule)
	r.Get("/accounts/{account}/email", s.getEmail)
	r.Get("/accounts/{account}/tenant", s.getTenantID)
	r.Get("/accounts/{account}/schedules", s.listAccountSchedules)

	// Secured
	r.Group(func(r chi.Router) {
		r.Use(s.authenticate)

		r.Post("/tenants", s.addTenant)
		r.Post("/schedules", s.addSchedule)
		r.Delete("/schedules/{id}", s.cancelSchedule)
		r.Post("/schedules/{id}/trigger", s.triggerSchedule)
		if s.funder != nil {
			r.Post("/accounts/{account}/funds", s.fundAccount)
		}
	})

	return r
}
