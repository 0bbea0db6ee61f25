package api

import (
	"github.com/eddiefleurent/options_calculator/internal/models"
	"github.com/eddiefleurent/options_calculator/internal/pricing"
	"github.com/eddiefleurent/options_calculator/internal/util"
)

// Decimal places applied to responses.
const (
	plPlaces    = 2
	pricePlaces = 4
	greekPlaces = 4
	gammaPlaces = 6
	curvePlaces = 2
	levelPlaces = 2
	ratePlaces  = 6
)

func roundPL(v float64) float64 { return util.Round(v, plPlaces) }

func roundGreeks(g models.Greeks, gamma int32) models.Greeks {
	return models.Greeks{
		Delta: util.Round(g.Delta, greekPlaces),
		Gamma: util.Round(g.Gamma, gamma),
		Theta: util.Round(g.Theta, greekPlaces),
		Vega:  util.Round(g.Vega, greekPlaces),
	}
}

func presentResult(r pricing.PricingResult) pricing.PricingResult {
	return pricing.PricingResult{
		Greeks:           roundGreeks(r.Greeks, gammaPlaces),
		MaxProfit:        r.MaxProfit.Map(roundPL),
		MaxLoss:          r.MaxLoss.Map(roundPL),
		PLAtExpiry:       roundPL(r.PLAtExpiry),
		PLWithTime:       roundPL(r.PLWithTime),
		TheoreticalPrice: util.Round(r.TheoreticalPrice, pricePlaces),
		IntrinsicValue:   util.Round(r.IntrinsicValue, pricePlaces),
		Breakeven:        util.Round(r.Breakeven, levelPlaces),
	}
}

func presentPortfolio(r pricing.PortfolioResult) pricing.PortfolioResult {
	out := pricing.PortfolioResult{
		PositionDetails: make([]pricing.PositionDetail, 0, len(r.PositionDetails)),
		TotalGreeks:     roundGreeks(r.TotalGreeks, greekPlaces),
		TotalPLAtExpiry: roundPL(r.TotalPLAtExpiry),
		TotalPLWithTime: roundPL(r.TotalPLWithTime),
	}
	for _, d := range r.PositionDetails {
		out.PositionDetails = append(out.PositionDetails, pricing.PositionDetail{
			Position: d.Position,
			Result:   presentResult(d.Result),
		})
	}
	return out
}

func presentCurve(points []pricing.CurvePoint) []pricing.CurvePoint {
	out := make([]pricing.CurvePoint, len(points))
	for i, p := range points {
		out[i] = pricing.CurvePoint{
			Price: util.Round(p.Price, curvePlaces),
			PL:    roundPL(p.PL),
		}
	}
	return out
}
