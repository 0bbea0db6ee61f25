// Package pricing implements closed-form option pricing for equity options
// (Black-Scholes-Merton with a continuous dividend yield) and futures options
// (Black-76), their Greeks, and the portfolio P&L built on top of them.
//
// Every function in this package is a pure computation over its inputs and
// is safe for concurrent use.
package pricing

import (
	"errors"
	"fmt"
	"math"

	"github.com/eddiefleurent/options_calculator/internal/models"
)

const (
	// DaysPerYear converts calendar days to year fractions.
	DaysPerYear = 365.0
	// MinVolatility is the floor substituted for non-positive implied volatility.
	MinVolatility = 1e-4
	// DefaultRiskFreeRate is used when no rate is supplied.
	DefaultRiskFreeRate = 0.05
)

// ErrInvalidInput is returned for inputs outside the pricing domain.
var ErrInvalidInput = errors.New("invalid pricing input")

// Context is the per-request pricing configuration shared by every position.
type Context struct {
	Underlying   Underlying
	RiskFreeRate float64
	Multiplier   float64
}

// NewEquityContext returns a Black-Scholes-Merton context with the fixed
// equity contract multiplier.
func NewEquityContext(riskFreeRate, dividendYield float64) Context {
	return Context{
		Underlying:   SpotWithDividend{DividendYield: dividendYield},
		RiskFreeRate: riskFreeRate,
		Multiplier:   models.ContractMultiplier,
	}
}

// NewFuturesContext returns a Black-76 context whose multiplier is the
// currency value of one futures point.
func NewFuturesContext(riskFreeRate, pointValue float64) (Context, error) {
	if pointValue <= 0 {
		return Context{}, fmt.Errorf("%w: point_value must be > 0, got %g", ErrInvalidInput, pointValue)
	}
	return Context{
		Underlying:   FuturesPrice{},
		RiskFreeRate: riskFreeRate,
		Multiplier:   pointValue,
	}, nil
}

// Engine prices options under a single Context.
type Engine struct {
	ctx Context
}

// NewEngine validates ctx and returns an Engine.
func NewEngine(ctx Context) (*Engine, error) {
	if ctx.Underlying == nil {
		return nil, fmt.Errorf("%w: underlying convention is required", ErrInvalidInput)
	}
	if ctx.Multiplier <= 0 {
		return nil, fmt.Errorf("%w: multiplier must be > 0, got %g", ErrInvalidInput, ctx.Multiplier)
	}
	return &Engine{ctx: ctx}, nil
}

// Context returns the engine configuration.
func (e *Engine) Context() Context { return e.ctx }

// terms holds the intermediate values shared by price and Greeks.
type terms struct {
	s, k, r, y    float64
	t, sqrtT, vol float64
	d1, d2        float64
	discount      float64 // e^(-rT)
	carry         float64 // e^(-yT)
}

// newTerms requires days > 0, underlying > 0 and strike > 0.
func (e *Engine) newTerms(strike, underlying float64, days int, iv float64) terms {
	if iv <= 0 {
		iv = MinVolatility
	}
	r := e.ctx.RiskFreeRate
	y := e.ctx.Underlying.CarryYield(r)
	t := float64(days) / DaysPerYear
	sqrtT := math.Sqrt(t)
	d1 := (math.Log(underlying/strike) + (r-y+0.5*iv*iv)*t) / (iv * sqrtT)
	return terms{
		s:        underlying,
		k:        strike,
		r:        r,
		y:        y,
		t:        t,
		sqrtT:    sqrtT,
		vol:      iv,
		d1:       d1,
		d2:       d1 - iv*sqrtT,
		discount: math.Exp(-r * t),
		carry:    math.Exp(-y * t),
	}
}

// TheoreticalPrice returns the model value of one unit of the option.
// At or past expiry it is the intrinsic value.
func (e *Engine) TheoreticalPrice(optType models.OptionType, strike, underlying float64, days int, iv float64) float64 {
	if days <= 0 {
		return models.IntrinsicValue(optType, strike, underlying)
	}
	x := e.newTerms(strike, underlying, days, iv)

	var price float64
	if optType == models.Call {
		price = x.s*x.carry*NormCDF(x.d1) - x.k*x.discount*NormCDF(x.d2)
	} else {
		price = x.k*x.discount*NormCDF(-x.d2) - x.s*x.carry*NormCDF(-x.d1)
	}
	return max(0, price)
}

// Greeks returns per-unit sensitivities. At or past expiry all are zero.
func (e *Engine) Greeks(optType models.OptionType, strike, underlying float64, days int, iv float64) models.Greeks {
	if days <= 0 {
		return models.Greeks{}
	}
	x := e.newTerms(strike, underlying, days, iv)
	pdf := NormPDF(x.d1)

	g := models.Greeks{
		Gamma: x.carry * pdf / (x.s * x.vol * x.sqrtT),
		Vega:  x.s * x.carry * pdf * x.sqrtT / 100,
	}
	decay := -x.s * pdf * x.vol * x.carry / (2 * x.sqrtT)
	if optType == models.Call {
		g.Delta = x.carry * NormCDF(x.d1)
		g.Theta = (decay - x.r*x.k*x.discount*NormCDF(x.d2) + x.y*x.s*x.carry*NormCDF(x.d1)) / DaysPerYear
	} else {
		g.Delta = -x.carry * NormCDF(-x.d1)
		g.Theta = (decay + x.r*x.k*x.discount*NormCDF(-x.d2) - x.y*x.s*x.carry*NormCDF(-x.d1)) / DaysPerYear
	}
	return g
}

// OptionRequest is one position priced at one scenario.
type OptionRequest struct {
	TargetDays   *int
	Position     models.OptionPosition
	CurrentPrice float64
	TargetPrice  float64
}

// PricingResult is the outcome of pricing one position. Values are unrounded.
type PricingResult struct {
	Greeks           models.Greeks `json:"greeks"`
	MaxProfit        Bound         `json:"max_profit"`
	MaxLoss          Bound         `json:"max_loss"`
	PLAtExpiry       float64       `json:"pl_at_expiry"`
	PLWithTime       float64       `json:"pl_with_time"`
	TheoreticalPrice float64       `json:"theoretical_price"`
	IntrinsicValue   float64       `json:"intrinsic_value"`
	Breakeven        float64       `json:"breakeven"`
}

// PriceOption computes P&L at the target price, position Greeks at the
// current price, and the static risk metrics of one leg.
func (e *Engine) PriceOption(req OptionRequest) (PricingResult, error) {
	pos := req.Position
	if err := pos.Validate(); err != nil {
		return PricingResult{}, fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}
	if req.CurrentPrice <= 0 {
		return PricingResult{}, fmt.Errorf("%w: current_price must be > 0, got %g", ErrInvalidInput, req.CurrentPrice)
	}
	if req.TargetPrice <= 0 {
		return PricingResult{}, fmt.Errorf("%w: target_price must be > 0, got %g", ErrInvalidInput, req.TargetPrice)
	}
	if req.TargetDays != nil && *req.TargetDays < 0 {
		return PricingResult{}, fmt.Errorf("%w: target_days must be >= 0, got %d", ErrInvalidInput, *req.TargetDays)
	}
	return e.price(req), nil
}

// price assumes req has been validated.
func (e *Engine) price(req OptionRequest) PricingResult {
	pos := req.Position
	direction := pos.PositionType.Direction()
	size := float64(pos.Quantity) * e.ctx.Multiplier

	intrinsic := models.IntrinsicValue(pos.OptionType, pos.Strike, req.TargetPrice)
	plAtExpiry := (intrinsic - pos.Premium) * direction * size

	theoretical := intrinsic
	plWithTime := plAtExpiry
	if req.TargetDays != nil && *req.TargetDays > 0 {
		theoretical = e.TheoreticalPrice(pos.OptionType, pos.Strike, req.TargetPrice, *req.TargetDays, pos.ImpliedVolatility)
		plWithTime = (theoretical - pos.Premium) * direction * size
	}

	greeks := e.Greeks(pos.OptionType, pos.Strike, req.CurrentPrice, pos.DaysToExpiry, pos.ImpliedVolatility)

	return PricingResult{
		PLAtExpiry:       plAtExpiry,
		PLWithTime:       plWithTime,
		TheoreticalPrice: theoretical,
		IntrinsicValue:   intrinsic,
		Greeks:           greeks.Position(direction, size),
		MaxProfit:        e.maxProfit(pos),
		MaxLoss:          e.maxLoss(pos),
		Breakeven:        Breakeven(pos.OptionType, pos.Strike, pos.Premium),
	}
}

func (e *Engine) maxProfit(pos models.OptionPosition) Bound {
	size := float64(pos.Quantity) * e.ctx.Multiplier
	if pos.PositionType == models.Short {
		return Bounded(pos.Premium * size)
	}
	if pos.OptionType == models.Call {
		return Unbounded()
	}
	return Bounded((pos.Strike - pos.Premium) * size)
}

func (e *Engine) maxLoss(pos models.OptionPosition) Bound {
	size := float64(pos.Quantity) * e.ctx.Multiplier
	if pos.PositionType == models.Long {
		return Bounded(pos.Premium * size)
	}
	if pos.OptionType == models.Call {
		return Unbounded()
	}
	return Bounded((pos.Strike - pos.Premium) * size)
}

// Breakeven is the underlying price at which the intrinsic value equals the premium.
func Breakeven(optType models.OptionType, strike, premium float64) float64 {
	if optType == models.Call {
		return strike + premium
	}
	return strike - premium
}
