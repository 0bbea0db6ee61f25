// Package api exposes the calculator over HTTP.
package api

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/eddiefleurent/options_calculator/internal/chain"
	"github.com/eddiefleurent/options_calculator/internal/pricing"
	"github.com/eddiefleurent/options_calculator/internal/rates"
	"github.com/eddiefleurent/options_calculator/internal/storage"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/sirupsen/logrus"
)

const (
	// BasePath prefixes every calculator route.
	BasePath = "/api/universal"

	serviceName    = "Universal Options Calculator API"
	maxRequestBody = 1 << 20
	defaultHistory = 50
)

// Server serves the calculator API.
type Server struct {
	router  *chi.Mux
	server  *http.Server
	storage storage.Interface
	rates   rates.Provider
	chains  *chain.Store
	logger  *logrus.Logger
	cfg     Config
}

// Config holds listener settings and request defaults.
type Config struct {
	Port           int
	AuthToken      string
	RequestTimeout time.Duration
	Defaults       Defaults
}

// Defaults fill fields a request leaves out.
type Defaults struct {
	DividendYield     float64
	PointValue        float64
	PriceRangePercent float64
	NumPoints         int
	MaxNumPoints      int
	CurveWorkers      int
}

func (d Defaults) normalize() Defaults {
	if d.PointValue <= 0 {
		d.PointValue = 50
	}
	if d.PriceRangePercent <= 0 {
		d.PriceRangePercent = pricing.DefaultPriceRangePercent
	}
	if d.NumPoints <= 0 {
		d.NumPoints = pricing.DefaultNumPoints
	}
	if d.MaxNumPoints < d.NumPoints {
		d.MaxNumPoints = d.NumPoints
	}
	return d
}

// NewServer wires the API. chains and history must be non-nil; rateProvider
// supplies the risk-free rate when a request omits it.
func NewServer(cfg Config, history storage.Interface, rateProvider rates.Provider, chains *chain.Store, logger *logrus.Logger) *Server {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 60 * time.Second
	}
	cfg.Defaults = cfg.Defaults.normalize()

	s := &Server{
		router:  chi.NewRouter(),
		storage: history,
		rates:   rateProvider,
		chains:  chains,
		logger:  logger,
		cfg:     cfg,
	}

	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.Logger)
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.Timeout(s.cfg.RequestTimeout))

	if s.cfg.AuthToken != "" {
		s.router.Use(s.authMiddleware)
	}

	s.router.Get("/health", s.handleHealth)

	s.router.Route(BasePath, func(r chi.Router) {
		r.Get("/health", s.handleHealth)

		r.Post("/calculate/pl", s.handleCalculatePL)
		r.Post("/calculate/curve", s.handleCalculateCurve)
		r.Post("/calculate/option", s.handleCalculateOption)

		r.Get("/rate", s.handleGetRate)

		r.Post("/tradingview/receive", s.handleReceiveChain)
		r.Get("/tradingview/chain/{ticker}", s.handleGetChain)
		r.Get("/tradingview/expirations/{ticker}", s.handleGetExpirations)
		r.Get("/tradingview/strikes/{ticker}/{expiration}", s.handleGetStrikes)
		r.Get("/tradingview/quote/{ticker}/{expiration}/{strike}/{option_type}", s.handleGetQuote)
		r.Get("/tradingview/status", s.handleChainStatus)
		r.Post("/tradingview/mock/{ticker}", s.handleGenerateMock)

		r.Get("/history", s.handleListHistory)
		r.Get("/history/{id}", s.handleGetHistory)
	})
}

func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" || r.URL.Path == BasePath+"/health" {
			next.ServeHTTP(w, r)
			return
		}

		token := r.Header.Get("X-Auth-Token")
		if token == "" {
			token = r.URL.Query().Get("token")
		}

		if subtle.ConstantTimeCompare([]byte(token), []byte(s.cfg.AuthToken)) != 1 {
			s.writeError(w, http.StatusUnauthorized, errors.New("unauthorized"))
			return
		}

		next.ServeHTTP(w, r)
	})
}

// Handler returns the routed handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start listens on the configured port until Shutdown.
func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", s.cfg.Port),
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	s.logger.Infof("Starting calculator API on port %d", s.cfg.Port)
	return s.server.ListenAndServe()
}

// Shutdown stops the listener gracefully.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":    "ok",
		"service":   serviceName,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) decode(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBody)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		s.writeError(w, http.StatusBadRequest, fmt.Errorf("invalid request body: %w", err))
		return false
	}
	return true
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		s.logger.WithError(err).Error("Failed to encode response")
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, err error) {
	s.writeJSON(w, status, map[string]string{
		"status": "error",
		"error":  err.Error(),
	})
}

// writeFailure maps domain errors to status codes.
func (s *Server) writeFailure(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, pricing.ErrInvalidInput),
		errors.Is(err, chain.ErrInvalidChain):
		s.writeError(w, http.StatusBadRequest, err)
	case errors.Is(err, storage.ErrRecordNotFound):
		s.writeError(w, http.StatusNotFound, err)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		s.writeError(w, http.StatusServiceUnavailable, err)
	default:
		s.logger.WithError(err).WithField("path", r.URL.Path).Error("Request failed")
		s.writeError(w, http.StatusInternalServerError, errors.New("internal server error"))
	}
}
