// Package rest exposes the authentication service over HTTP.
package rest

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/dmitrijs2005/usermanager/internal/logging"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

const (
	basePath         = "/api/authentication"
	confirmEmailPath = basePath + "/ConfirmEmail"

	shutdownTimeout = 10 * time.Second
)

type Server struct {
	address       string
	publicBaseURL string
	auth          AuthService
	parser        TokenParser
	metrics       *Metrics
	logger        logging.Logger
	router        chi.Router
}

func NewServer(address, publicBaseURL string, l logging.Logger, a AuthService, p TokenParser, m *Metrics) *Server {
	s := &Server{
		address:       address,
		publicBaseURL: publicBaseURL,
		auth:          a,
		parser:        p,
		metrics:       m,
		logger:        l.With("module", "http_server"),
	}
	s.router = s.routes()
	if publicBaseURL == "" {
		s.logger.Warn(context.Background(), "public base url is not set, confirmation links will use the request Host header")
	}
	return s
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(s.logRequests)
	r.Use(middleware.Recoverer)
	r.Use(s.metrics.Instrument)

	r.Get("/healthz", s.handleHealth)
	r.Method(http.MethodGet, "/metrics", s.metrics.Handler())

	r.Route(basePath, func(r chi.Router) {
		r.Post("/", s.handleRegister)
		r.Post("/login", s.handleLogin)
		r.Get("/ConfirmEmail", s.handleConfirmEmail)
		r.With(s.requireSession).Get("/me", s.handleMe)
	})

	return r
}

// Handler returns the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	listen, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}

	srv := &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return context.WithoutCancel(ctx) },
	}

	stopped := make(chan struct{})
	go func() {
		defer close(stopped)
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping HTTP server...")
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			s.logger.Error(ctx, "HTTP server shutdown", "error", err)
		}
	}()

	s.logger.Info(ctx, "Starting HTTP server", "address", listen.Addr().String())

	if err := srv.Serve(listen); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	<-stopped
	return nil
}
