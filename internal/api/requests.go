package api

import (
	"context"
	"fmt"

	"github.com/eddiefleurent/options_calculator/internal/models"
	"github.com/eddiefleurent/options_calculator/internal/pricing"
)

// PositionRequest is one leg as posted by the UI. Omitted quantity,
// days_to_expiry and iv take their defaults.
type PositionRequest struct {
	Quantity     *int     `json:"quantity"`
	DaysToExpiry *int     `json:"days_to_expiry"`
	IV           *float64 `json:"iv"`
	OptionType   string   `json:"option_type"`
	PositionType string   `json:"position_type"`
	Strike       float64  `json:"strike"`
	Premium      float64  `json:"premium"`
}

func (p PositionRequest) toModel() (models.OptionPosition, error) {
	optType, err := models.ParseOptionType(p.OptionType)
	if err != nil {
		return models.OptionPosition{}, err
	}
	posType, err := models.ParsePositionType(p.PositionType)
	if err != nil {
		return models.OptionPosition{}, err
	}

	pos := models.OptionPosition{
		OptionType:        optType,
		PositionType:      posType,
		Strike:            p.Strike,
		Premium:           p.Premium,
		Quantity:          models.DefaultQuantity,
		DaysToExpiry:      models.DefaultDaysToExpiry,
		ImpliedVolatility: models.DefaultIV,
	}
	if p.Quantity != nil {
		pos.Quantity = *p.Quantity
	}
	if p.DaysToExpiry != nil {
		pos.DaysToExpiry = *p.DaysToExpiry
	}
	if p.IV != nil {
		pos.ImpliedVolatility = *p.IV
	}
	return pos, nil
}

func toModels(reqs []PositionRequest) ([]models.OptionPosition, error) {
	positions := make([]models.OptionPosition, 0, len(reqs))
	for i, req := range reqs {
		pos, err := req.toModel()
		if err != nil {
			return nil, fmt.Errorf("%w: position %d: %w", pricing.ErrInvalidInput, i, err)
		}
		positions = append(positions, pos)
	}
	return positions, nil
}

// MarketRequest selects the pricing convention. Omitted rate is filled by
// the rate provider; omitted point value and dividend yield by config.
type MarketRequest struct {
	PointValue    *float64 `json:"point_value"`
	RiskFreeRate  *float64 `json:"risk_free_rate"`
	DividendYield *float64 `json:"dividend_yield"`
	Mode          string   `json:"mode"`
}

// PLRequest is the body of POST /calculate/pl.
type PLRequest struct {
	MarketRequest
	TargetDays   *int              `json:"target_days"`
	Positions    []PositionRequest `json:"positions"`
	CurrentPrice float64           `json:"current_price"`
	TargetPrice  float64           `json:"target_price"`
}

// CurveRequest is the body of POST /calculate/curve.
type CurveRequest struct {
	MarketRequest
	TargetDays        *int              `json:"target_days"`
	PriceRangePercent *float64          `json:"price_range_percent"`
	NumPoints         *int              `json:"num_points"`
	Positions         []PositionRequest `json:"positions"`
	CurrentPrice      float64           `json:"current_price"`
}

// OptionPricingRequest is the body of POST /calculate/option.
type OptionPricingRequest struct {
	MarketRequest
	TargetDays   *int            `json:"target_days"`
	Position     PositionRequest `json:"position"`
	CurrentPrice float64         `json:"current_price"`
	TargetPrice  float64         `json:"target_price"`
}

// MockChainRequest is the body of POST /tradingview/mock/{ticker}.
type MockChainRequest struct {
	CurrentPrice float64 `json:"current_price"`
}

// engineFor resolves mode, rate and multiplier into an engine.
func (s *Server) engineFor(ctx context.Context, m MarketRequest) (*pricing.Engine, pricing.Mode, error) {
	mode, err := pricing.ParseMode(m.Mode)
	if err != nil {
		return nil, "", err
	}

	rate, err := s.riskFreeRate(ctx, m.RiskFreeRate)
	if err != nil {
		return nil, "", err
	}

	var pctx pricing.Context
	switch mode {
	case pricing.ModeFutures:
		pointValue := s.cfg.Defaults.PointValue
		if m.PointValue != nil && *m.PointValue != 0 {
			pointValue = *m.PointValue
		}
		pctx, err = pricing.NewFuturesContext(rate, pointValue)
		if err != nil {
			return nil, "", err
		}
	default:
		dividendYield := s.cfg.Defaults.DividendYield
		if m.DividendYield != nil {
			dividendYield = *m.DividendYield
		}
		pctx = pricing.NewEquityContext(rate, dividendYield)
	}

	engine, err := pricing.NewEngine(pctx)
	if err != nil {
		return nil, "", err
	}
	return engine, mode, nil
}

func (s *Server) riskFreeRate(ctx context.Context, requested *float64) (float64, error) {
	if requested != nil {
		return *requested, nil
	}
	if s.rates == nil {
		return pricing.DefaultRiskFreeRate, nil
	}
	info, err := s.rates.Rate(ctx)
	if err != nil {
		return 0, fmt.Errorf("resolving risk-free rate: %w", err)
	}
	return info.Rate, nil
}
