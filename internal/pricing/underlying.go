package pricing

import (
	"fmt"
	"strings"
)

// Underlying describes how the underlying term of the pricing formulas is
// carried. Both conventions reduce to a continuous carry yield: the
// generalized formulas use S·e^(-yT), which is S·e^(-qT) for a dividend-paying
// stock and F·e^(-rT) (Black-76) for a futures price.
type Underlying interface {
	// CarryYield returns the continuous yield applied to the underlying.
	CarryYield(riskFreeRate float64) float64
	Name() string
}

// SpotWithDividend is a stock priced with the Black-Scholes-Merton model.
type SpotWithDividend struct {
	DividendYield float64
}

// CarryYield returns the dividend yield.
func (s SpotWithDividend) CarryYield(float64) float64 { return s.DividendYield }

// Name implements Underlying.
func (SpotWithDividend) Name() string { return "spot_with_dividend" }

// FuturesPrice is a futures contract priced with the Black-76 model.
type FuturesPrice struct{}

// CarryYield returns the risk-free rate; the futures price already reflects
// the cost of carry, so the underlying is discounted like the strike.
func (FuturesPrice) CarryYield(riskFreeRate float64) float64 { return riskFreeRate }

// Name implements Underlying.
func (FuturesPrice) Name() string { return "futures_price" }

// Mode selects the engine convention at the API boundary.
type Mode string

const (
	// ModeStocks prices equity options (BSM, multiplier 100).
	ModeStocks Mode = "stocks"
	// ModeFutures prices futures options (Black-76, multiplier = point value).
	ModeFutures Mode = "futures"
)

// ParseMode normalizes s into a Mode. An empty string means stocks.
func ParseMode(s string) (Mode, error) {
	switch m := Mode(strings.ToLower(strings.TrimSpace(s))); m {
	case "":
		return ModeStocks, nil
	case ModeStocks, ModeFutures:
		return m, nil
	default:
		return "", fmt.Errorf("%w: mode must be 'stocks' or 'futures', got %q", ErrInvalidInput, s)
	}
}
