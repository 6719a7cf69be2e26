// Package api exposes the HTTP surface: public request routes, the admin
// fulfillment endpoints and the signed download redirect.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/dharsanguruparan/unlockmate/internal/analyzer"
	"github.com/dharsanguruparan/unlockmate/internal/auth"
	"github.com/dharsanguruparan/unlockmate/internal/config"
	"github.com/dharsanguruparan/unlockmate/internal/fulfill"
	"github.com/dharsanguruparan/unlockmate/internal/lifecycle"
	"github.com/dharsanguruparan/unlockmate/internal/model"
	"github.com/dharsanguruparan/unlockmate/internal/query"
	"github.com/dharsanguruparan/unlockmate/internal/signing"
	"github.com/dharsanguruparan/unlockmate/internal/store"
)

// Presigner swaps the stored blob URL for a short-lived one at download
// time. External links pass through unchanged when the key lookup misses.
type Presigner interface {
	KeyFromURL(rawURL string) (string, bool)
	PresignGet(ctx context.Context, objectKey string, ttl time.Duration) (string, error)
}

// Server wires the HTTP routes to the lifecycle and its collaborators.
type Server struct {
	cfg        *config.Config
	store      store.Store
	controller *lifecycle.Controller
	fulfiller  *fulfill.Service
	analyzer   analyzer.Analyzer
	signer     *signing.Signer
	sessions   *auth.Sessions
	admin      auth.Authenticator
	presigner  Presigner
	pricing    query.Pricing
	logger     *slog.Logger

	server *http.Server
	once   sync.Once
}

// Options bundles the Server's collaborators.
type Options struct {
	Config     *config.Config
	Store      store.Store
	Controller *lifecycle.Controller
	Fulfiller  *fulfill.Service
	Analyzer   analyzer.Analyzer
	Signer     *signing.Signer
	Sessions   *auth.Sessions
	Admin      auth.Authenticator
	Presigner  Presigner
	Pricing    query.Pricing
	Logger     *slog.Logger
}

// New constructs a Server.
func New(opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		cfg:        opts.Config,
		store:      opts.Store,
		controller: opts.Controller,
		fulfiller:  opts.Fulfiller,
		analyzer:   opts.Analyzer,
		signer:     opts.Signer,
		sessions:   opts.Sessions,
		admin:      opts.Admin,
		presigner:  opts.Presigner,
		pricing:    opts.Pricing,
		logger:     logger,
	}
}

// Router assembles the chi route tree.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(corsMiddleware, loggingMiddleware(s.logger), metricsMiddleware)

	r.Get("/healthz", s.handleHealth)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Post("/analyze", s.handleAnalyze)
		r.Route("/requests", func(r chi.Router) {
			r.Get("/", s.handleListRequests)
			r.Post("/", s.handleCreateRequest)
			r.Get("/{id}", s.handleGetRequest)
			r.Get("/{id}/download", s.handleDownload)
			r.Put("/{id}/pay", s.handleConfirmPayment)
			r.Group(func(r chi.Router) {
				r.Use(adminOnly(s.sessions))
				r.Post("/{id}/fulfill", s.handleFulfill)
				r.Put("/{id}/cancel", s.handleCancel)
			})
		})
		r.Route("/admin", func(r chi.Router) {
			r.Post("/login", s.handleAdminLogin)
			r.With(adminOnly(s.sessions)).Get("/stats", s.handleStats)
		})
	})
	return r
}

// Run starts the HTTP server and blocks until the context is cancelled.
func (s *Server) Run(ctx context.Context) error {
	s.once.Do(func() {
		s.server = &http.Server{
			Addr:    s.cfg.Address,
			Handler: s.Router(),
		}
	})
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	}()
	s.logger.Info("api listening", slog.String("address", s.cfg.Address))
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		slog.Error("encode response", slog.String("error", err.Error()))
	}
}

// respondError maps the sentinel error kinds onto HTTP statuses. Anything
// unclassified becomes a generic 500 so internal detail never leaks.
func respondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, model.ErrValidation):
		respondJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
	case errors.Is(err, model.ErrNotFound):
		respondJSON(w, http.StatusNotFound, map[string]string{"error": "request not found"})
	case errors.Is(err, model.ErrInvalidTransition):
		respondJSON(w, http.StatusConflict, map[string]string{"error": err.Error()})
	default:
		respondJSON(w, http.StatusInternalServerError, map[string]string{"error": "something went wrong, please retry"})
	}
}
