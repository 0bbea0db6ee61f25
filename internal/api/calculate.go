package api

import (
	"fmt"
	"net/http"

	"github.com/eddiefleurent/options_calculator/internal/models"
	"github.com/eddiefleurent/options_calculator/internal/pricing"
	"github.com/eddiefleurent/options_calculator/internal/util"
)

func (s *Server) handleCalculatePL(w http.ResponseWriter, r *http.Request) {
	var req PLRequest
	if !s.decode(w, r, &req) {
		return
	}

	positions, err := toModels(req.Positions)
	if err != nil {
		s.writeFailure(w, r, err)
		return
	}
	engine, mode, err := s.engineFor(r.Context(), req.MarketRequest)
	if err != nil {
		s.writeFailure(w, r, err)
		return
	}

	result, err := engine.PricePortfolio(positions, req.CurrentPrice, req.TargetPrice, req.TargetDays)
	if err != nil {
		s.writeFailure(w, r, err)
		return
	}

	pctx := engine.Context()
	id := s.record(models.AnalysisRecord{
		Kind:            models.AnalysisPortfolio,
		Mode:            string(mode),
		Positions:       positions,
		TotalGreeks:     result.TotalGreeks,
		CurrentPrice:    req.CurrentPrice,
		TargetPrice:     req.TargetPrice,
		TargetDays:      req.TargetDays,
		RiskFreeRate:    pctx.RiskFreeRate,
		Multiplier:      pctx.Multiplier,
		TotalPLAtExpiry: result.TotalPLAtExpiry,
		TotalPLWithTime: result.TotalPLWithTime,
	})

	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":         "success",
		"mode":           mode,
		"risk_free_rate": util.Round(pctx.RiskFreeRate, ratePlaces),
		"analysis_id":    id,
		"result":         presentPortfolio(result),
	})
}

func (s *Server) handleCalculateCurve(w http.ResponseWriter, r *http.Request) {
	var req CurveRequest
	if !s.decode(w, r, &req) {
		return
	}

	opts := pricing.CurveOptions{
		TargetDays:        req.TargetDays,
		PriceRangePercent: s.cfg.Defaults.PriceRangePercent,
		NumPoints:         s.cfg.Defaults.NumPoints,
		Workers:           s.cfg.Defaults.CurveWorkers,
	}
	if req.PriceRangePercent != nil {
		opts.PriceRangePercent = *req.PriceRangePercent
	}
	if req.NumPoints != nil {
		opts.NumPoints = *req.NumPoints
	}
	if opts.NumPoints > s.cfg.Defaults.MaxNumPoints {
		s.writeFailure(w, r, fmt.Errorf("%w: num_points must be <= %d, got %d",
			pricing.ErrInvalidInput, s.cfg.Defaults.MaxNumPoints, opts.NumPoints))
		return
	}

	positions, err := toModels(req.Positions)
	if err != nil {
		s.writeFailure(w, r, err)
		return
	}
	engine, mode, err := s.engineFor(r.Context(), req.MarketRequest)
	if err != nil {
		s.writeFailure(w, r, err)
		return
	}

	curve, err := engine.GeneratePLCurve(r.Context(), positions, req.CurrentPrice, opts)
	if err != nil {
		s.writeFailure(w, r, err)
		return
	}

	pctx := engine.Context()
	// Inputs were validated by the sweep.
	atSpot, _ := engine.PricePortfolio(positions, req.CurrentPrice, req.CurrentPrice, req.TargetDays)
	id := s.record(models.AnalysisRecord{
		Kind:         models.AnalysisCurve,
		Mode:         string(mode),
		Positions:    positions,
		TotalGreeks:  atSpot.TotalGreeks,
		CurrentPrice: req.CurrentPrice,
		TargetDays:   req.TargetDays,
		RiskFreeRate: pctx.RiskFreeRate,
		Multiplier:   pctx.Multiplier,
		CurvePoints:  len(curve),
	})

	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":         "success",
		"mode":           mode,
		"risk_free_rate": util.Round(pctx.RiskFreeRate, ratePlaces),
		"analysis_id":    id,
		"curve":          presentCurve(curve),
	})
}

func (s *Server) handleCalculateOption(w http.ResponseWriter, r *http.Request) {
	var req OptionPricingRequest
	if !s.decode(w, r, &req) {
		return
	}

	pos, err := req.Position.toModel()
	if err != nil {
		s.writeFailure(w, r, fmt.Errorf("%w: %w", pricing.ErrInvalidInput, err))
		return
	}
	engine, mode, err := s.engineFor(r.Context(), req.MarketRequest)
	if err != nil {
		s.writeFailure(w, r, err)
		return
	}

	result, err := engine.PriceOption(pricing.OptionRequest{
		Position:     pos,
		CurrentPrice: req.CurrentPrice,
		TargetPrice:  req.TargetPrice,
		TargetDays:   req.TargetDays,
	})
	if err != nil {
		s.writeFailure(w, r, err)
		return
	}

	pctx := engine.Context()
	id := s.record(models.AnalysisRecord{
		Kind:            models.AnalysisOption,
		Mode:            string(mode),
		Positions:       []models.OptionPosition{pos},
		TotalGreeks:     result.Greeks,
		CurrentPrice:    req.CurrentPrice,
		TargetPrice:     req.TargetPrice,
		TargetDays:      req.TargetDays,
		RiskFreeRate:    pctx.RiskFreeRate,
		Multiplier:      pctx.Multiplier,
		TotalPLAtExpiry: result.PLAtExpiry,
		TotalPLWithTime: result.PLWithTime,
	})

	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":         "success",
		"mode":           mode,
		"risk_free_rate": util.Round(pctx.RiskFreeRate, ratePlaces),
		"analysis_id":    id,
		"result":         presentResult(result),
	})
}

// record stores rec and returns its ID. History is best effort; a storage
// failure is logged and the calculation is still returned.
func (s *Server) record(rec models.AnalysisRecord) string {
	if s.storage == nil {
		return ""
	}
	stored, err := s.storage.Add(rec)
	if err != nil {
		s.logger.WithError(err).WithField("kind", rec.Kind).Warn("Failed to store analysis record")
		return ""
	}
	return stored.ID
}
