// Package mock generates synthetic option chains for exercising the
// calculator without the browser extension.
package mock

import (
	"crypto/rand"
	"fmt"
	"math"
	"math/big"
	"strings"
	"time"

	"github.com/eddiefleurent/options_calculator/internal/chain"
	"github.com/eddiefleurent/options_calculator/internal/models"
	"github.com/eddiefleurent/options_calculator/internal/pricing"
	"github.com/eddiefleurent/options_calculator/internal/util"
)

const (
	// NumExpirations is the number of weekly expirations generated.
	NumExpirations = 4
	// StrikesEachSide is the number of strikes above and below the money.
	StrikesEachSide = 10
	// StrikeStepPct is the strike spacing as a fraction of the underlying.
	StrikeStepPct = 0.025

	baseIV       = 0.25
	smileSlope   = 0.1
	baseVolume   = 1000.0
	baseOpenInt  = 5000.0
	bidAskFactor = 0.05
)

// secureFloat64 generates a cryptographically secure random float64 between 0 and 1
func secureFloat64() float64 {
	n, err := rand.Int(rand.Reader, big.NewInt(1<<53))
	if err != nil {
		// Fallback to a reasonable default if crypto/rand fails
		return 0.5
	}
	return float64(n.Int64()) / (1 << 53)
}

// ChainGenerator builds chains priced by a pricing engine.
type ChainGenerator struct {
	engine *pricing.Engine
	now    func() time.Time
	// noise scales volume and open interest; nil means no noise.
	noise func() float64
}

// NewChainGenerator creates a generator that prices contracts with engine.
func NewChainGenerator(engine *pricing.Engine) *ChainGenerator {
	return &ChainGenerator{
		engine: engine,
		now:    time.Now,
		noise:  func() float64 { return 0.8 + 0.4*secureFloat64() },
	}
}

// Generate builds a chain for ticker around currentPrice: the next four
// Fridays, 21 strikes spaced 2.5% of the price, and an IV smile
// 0.25 + |1 − S/K|·0.1.
func (g *ChainGenerator) Generate(ticker string, currentPrice float64) (chain.Chain, error) {
	ticker = strings.ToUpper(strings.TrimSpace(ticker))
	if ticker == "" {
		return chain.Chain{}, fmt.Errorf("%w: ticker is required", chain.ErrInvalidChain)
	}
	if currentPrice <= 0 || math.IsNaN(currentPrice) || math.IsInf(currentPrice, 0) {
		return chain.Chain{}, fmt.Errorf("%w: current price must be > 0, got %g", chain.ErrInvalidChain, currentPrice)
	}

	now := g.now()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	expDates := NextFridays(today, NumExpirations)
	strikes := Strikes(currentPrice)

	out := chain.Chain{
		Ticker:          ticker,
		UnderlyingPrice: currentPrice,
		Expirations:     make([]string, 0, len(expDates)),
		Options:         make([]chain.Contract, 0, len(expDates)*len(strikes)*2),
		ReceivedAt:      now,
	}

	for _, exp := range expDates {
		expiration := exp.Format("2006-01-02")
		out.Expirations = append(out.Expirations, expiration)
		days := int(exp.Sub(today).Hours() / 24)

		for _, strike := range strikes {
			moneyness := currentPrice / strike
			iv := baseIV + math.Abs(1-moneyness)*smileSlope
			liquidity := math.Max(0, 1-math.Abs(1-moneyness))

			for _, optType := range []models.OptionType{models.Call, models.Put} {
				premium := g.engine.TheoreticalPrice(optType, strike, currentPrice, days, iv)
				greeks := g.engine.Greeks(optType, strike, currentPrice, days, iv)
				out.Options = append(out.Options, chain.Contract{
					Strike:            strike,
					Expiration:        expiration,
					OptionType:        optType,
					Bid:               util.Round(premium*(1-bidAskFactor), 2),
					Ask:               util.Round(premium*(1+bidAskFactor), 2),
					Last:              util.Round(premium, 2),
					Volume:            int64(baseVolume * liquidity * g.scale()),
					OpenInterest:      int64(baseOpenInt * liquidity * g.scale()),
					ImpliedVolatility: util.Round(iv, 4),
					Delta:             util.Round(greeks.Delta, 4),
					Gamma:             util.Round(greeks.Gamma, 4),
					Theta:             util.Round(greeks.Theta, 4),
					Vega:              util.Round(greeks.Vega, 4),
				})
			}
		}
	}

	return out, nil
}

func (g *ChainGenerator) scale() float64 {
	if g.noise == nil {
		return 1
	}
	return g.noise()
}

// NextFridays returns the next n Fridays strictly after day.
func NextFridays(day time.Time, n int) []time.Time {
	fridays := make([]time.Time, 0, n)
	current := day
	for len(fridays) < n {
		current = current.AddDate(0, 0, 1)
		if current.Weekday() == time.Friday {
			fridays = append(fridays, current)
		}
	}
	return fridays
}

// Strikes returns up to 21 strikes centered on price, spaced by 2.5% of the
// price rounded to whole dollars (cents for prices under $20). Non-positive
// strikes are dropped.
func Strikes(price float64) []float64 {
	step := math.Round(price * StrikeStepPct)
	if step == 0 {
		step = util.Round(price*StrikeStepPct, 2)
	}
	if step == 0 {
		step = 0.01
	}

	strikes := make([]float64, 0, 2*StrikesEachSide+1)
	for i := -StrikesEachSide; i <= StrikesEachSide; i++ {
		strike := util.RoundToTick(price+float64(i)*step, 0.01)
		if strike <= 0 {
			continue
		}
		strikes = append(strikes, strike)
	}
	return strikes
}
