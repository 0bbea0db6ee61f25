package api

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/eddiefleurent/options_calculator/internal/chain"
	"github.com/eddiefleurent/options_calculator/internal/mock"
	"github.com/eddiefleurent/options_calculator/internal/models"
	"github.com/eddiefleurent/options_calculator/internal/pricing"
	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"
)

func (s *Server) handleReceiveChain(w http.ResponseWriter, r *http.Request) {
	var raw chain.RawChain
	if !s.decode(w, r, &raw) {
		return
	}

	receipt, err := s.chains.Receive(raw)
	if err != nil {
		s.writeFailure(w, r, err)
		return
	}

	s.logger.WithFields(logrus.Fields{
		"ticker":    receipt.Ticker,
		"contracts": receipt.ContractsCount,
	}).Info("Received option chain")
	s.writeJSON(w, http.StatusOK, receipt)
}

func (s *Server) handleGetChain(w http.ResponseWriter, r *http.Request) {
	ticker := chi.URLParam(r, "ticker")

	c, ok := s.chains.Get(ticker)
	if !ok {
		s.writeError(w, http.StatusNotFound,
			fmt.Errorf("option chain for %s not found; push it from the TradingView extension", strings.ToUpper(ticker)))
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"status": "success",
		"data":   c,
	})
}

func (s *Server) handleGetExpirations(w http.ResponseWriter, r *http.Request) {
	ticker := chi.URLParam(r, "ticker")

	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":      "success",
		"ticker":      strings.ToUpper(ticker),
		"expirations": s.chains.Expirations(ticker),
	})
}

func (s *Server) handleGetStrikes(w http.ResponseWriter, r *http.Request) {
	ticker := chi.URLParam(r, "ticker")
	expiration := chi.URLParam(r, "expiration")

	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":     "success",
		"ticker":     strings.ToUpper(ticker),
		"expiration": expiration,
		"strikes":    s.chains.Strikes(ticker, expiration),
	})
}

func (s *Server) handleGetQuote(w http.ResponseWriter, r *http.Request) {
	ticker := chi.URLParam(r, "ticker")
	expiration := chi.URLParam(r, "expiration")

	strike, err := strconv.ParseFloat(chi.URLParam(r, "strike"), 64)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, fmt.Errorf("invalid strike %q", chi.URLParam(r, "strike")))
		return
	}
	optType, err := models.ParseOptionType(chi.URLParam(r, "option_type"))
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}

	quote, ok := s.chains.Quote(ticker, expiration, strike, optType)
	if !ok {
		s.writeError(w, http.StatusNotFound,
			fmt.Errorf("option %s %s %g %s not found", strings.ToUpper(ticker), expiration, strike, optType))
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"status": "success",
		"quote":  quote,
	})
}

func (s *Server) handleChainStatus(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, s.chains.Status())
}

func (s *Server) handleGenerateMock(w http.ResponseWriter, r *http.Request) {
	ticker := chi.URLParam(r, "ticker")

	var req MockChainRequest
	if !s.decode(w, r, &req) {
		return
	}

	rate, err := s.riskFreeRate(r.Context(), nil)
	if err != nil {
		s.writeFailure(w, r, err)
		return
	}
	engine, err := pricing.NewEngine(pricing.NewEquityContext(rate, s.cfg.Defaults.DividendYield))
	if err != nil {
		s.writeFailure(w, r, err)
		return
	}

	c, err := mock.NewChainGenerator(engine).Generate(ticker, req.CurrentPrice)
	if err != nil {
		s.writeFailure(w, r, err)
		return
	}
	receipt := s.chains.Put(c)

	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":          "success",
		"message":         fmt.Sprintf("mock data for %s generated", receipt.Ticker),
		"contracts_count": receipt.ContractsCount,
		"expirations":     c.Expirations,
	})
}
