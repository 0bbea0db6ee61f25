package pricing

import (
	"fmt"

	"github.com/eddiefleurent/options_calculator/internal/models"
)

// PositionDetail pairs a position with its pricing result.
type PositionDetail struct {
	Position models.OptionPosition `json:"position"`
	Result   PricingResult         `json:"result"`
}

// PortfolioResult is the sum of the per-position results.
type PortfolioResult struct {
	PositionDetails []PositionDetail `json:"position_details"`
	TotalGreeks     models.Greeks    `json:"total_greeks"`
	TotalPLAtExpiry float64          `json:"total_pl_at_expiry"`
	TotalPLWithTime float64          `json:"total_pl_with_time"`
}

// PricePortfolio prices every position at the same scenario and sums P&L
// and Greeks. Opposite legs offset only through their signed sums.
func (e *Engine) PricePortfolio(positions []models.OptionPosition, currentPrice, targetPrice float64, targetDays *int) (PortfolioResult, error) {
	if err := validatePortfolio(positions, currentPrice, targetDays); err != nil {
		return PortfolioResult{}, err
	}
	if targetPrice <= 0 {
		return PortfolioResult{}, fmt.Errorf("%w: target_price must be > 0, got %g", ErrInvalidInput, targetPrice)
	}
	return e.portfolio(positions, currentPrice, targetPrice, targetDays), nil
}

func (e *Engine) portfolio(positions []models.OptionPosition, currentPrice, targetPrice float64, targetDays *int) PortfolioResult {
	out := PortfolioResult{
		PositionDetails: make([]PositionDetail, 0, len(positions)),
	}
	for _, pos := range positions {
		res := e.price(OptionRequest{
			Position:     pos,
			CurrentPrice: currentPrice,
			TargetPrice:  targetPrice,
			TargetDays:   targetDays,
		})
		out.TotalPLAtExpiry += res.PLAtExpiry
		out.TotalPLWithTime += res.PLWithTime
		out.TotalGreeks = out.TotalGreeks.Add(res.Greeks)
		out.PositionDetails = append(out.PositionDetails, PositionDetail{Position: pos, Result: res})
	}
	return out
}

func validatePortfolio(positions []models.OptionPosition, currentPrice float64, targetDays *int) error {
	if currentPrice <= 0 {
		return fmt.Errorf("%w: current_price must be > 0, got %g", ErrInvalidInput, currentPrice)
	}
	if targetDays != nil && *targetDays < 0 {
		return fmt.Errorf("%w: target_days must be >= 0, got %d", ErrInvalidInput, *targetDays)
	}
	for i, pos := range positions {
		if err := pos.Validate(); err != nil {
			return fmt.Errorf("%w: position %d: %w", ErrInvalidInput, i, err)
		}
	}
	return nil
}
