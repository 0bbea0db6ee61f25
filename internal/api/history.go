package api

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/eddiefleurent/options_calculator/internal/util"
	"github.com/go-chi/chi/v5"
)

func (s *Server) handleGetRate(w http.ResponseWriter, r *http.Request) {
	if s.rates == nil {
		s.writeError(w, http.StatusServiceUnavailable, fmt.Errorf("no rate provider configured"))
		return
	}

	info, err := s.rates.Rate(r.Context())
	if err != nil {
		s.writeFailure(w, r, err)
		return
	}
	info.Rate = util.Round(info.Rate, ratePlaces)
	info.RatePercent = util.Round(info.RatePercent, 4)

	s.writeJSON(w, http.StatusOK, info)
}

func (s *Server) handleListHistory(w http.ResponseWriter, r *http.Request) {
	limit := defaultHistory
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			s.writeError(w, http.StatusBadRequest, fmt.Errorf("limit must be a non-negative integer, got %q", raw))
			return
		}
		limit = n
	}

	records := s.storage.List(limit)
	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":  "success",
		"count":   len(records),
		"total":   s.storage.Count(),
		"records": records,
	})
}

func (s *Server) handleGetHistory(w http.ResponseWriter, r *http.Request) {
	rec, err := s.storage.Get(chi.URLParam(r, "id"))
	if err != nil {
		s.writeFailure(w, r, err)
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"status": "success",
		"record": rec,
	})
}
