package pricing

import (
	"context"
	"fmt"
	"runtime"

	"github.com/eddiefleurent/options_calculator/internal/models"
	"golang.org/x/sync/errgroup"
)

// Curve defaults.
const (
	DefaultPriceRangePercent = 0.2
	DefaultNumPoints         = 100
)

// CurveOptions configures a P&L sweep.
type CurveOptions struct {
	// TargetDays selects P&L with time value; nil means P&L at expiry.
	TargetDays        *int
	PriceRangePercent float64
	NumPoints         int
	// Workers bounds parallel evaluation; <= 0 uses GOMAXPROCS.
	Workers int
}

// DefaultCurveOptions returns a ±20% sweep over 101 prices.
func DefaultCurveOptions() CurveOptions {
	return CurveOptions{
		PriceRangePercent: DefaultPriceRangePercent,
		NumPoints:         DefaultNumPoints,
	}
}

// CurvePoint is one sample of the P&L curve.
type CurvePoint struct {
	Price float64 `json:"price"`
	PL    float64 `json:"pl"`
}

// CurvePrices returns numPoints+1 equally spaced prices spanning
// [current·(1−range), current·(1+range)] inclusive.
func CurvePrices(currentPrice, rangePercent float64, numPoints int) []float64 {
	lo := currentPrice * (1 - rangePercent)
	hi := currentPrice * (1 + rangePercent)
	step := (hi - lo) / float64(numPoints)

	prices := make([]float64, numPoints+1)
	for i := range prices {
		prices[i] = lo + float64(i)*step
	}
	prices[numPoints] = hi
	return prices
}

// GeneratePLCurve sweeps the target price and returns portfolio P&L at each
// point, in ascending price order. Greeks context stays at currentPrice.
func (e *Engine) GeneratePLCurve(ctx context.Context, positions []models.OptionPosition, currentPrice float64, opts CurveOptions) ([]CurvePoint, error) {
	if opts.NumPoints < 1 {
		return nil, fmt.Errorf("%w: num_points must be >= 1, got %d", ErrInvalidInput, opts.NumPoints)
	}
	if opts.PriceRangePercent < 0 || opts.PriceRangePercent >= 1 {
		return nil, fmt.Errorf("%w: price_range_percent must be in [0,1), got %g", ErrInvalidInput, opts.PriceRangePercent)
	}
	if err := validatePortfolio(positions, currentPrice, opts.TargetDays); err != nil {
		return nil, err
	}

	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	prices := CurvePrices(currentPrice, opts.PriceRangePercent, opts.NumPoints)
	points := make([]CurvePoint, len(prices))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, price := range prices {
		i, price := i, price
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			res := e.portfolio(positions, currentPrice, price, opts.TargetDays)
			pl := res.TotalPLAtExpiry
			if opts.TargetDays != nil {
				pl = res.TotalPLWithTime
			}
			points[i] = CurvePoint{Price: price, PL: pl}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("generating P&L curve: %w", err)
	}
	return points, nil
}
