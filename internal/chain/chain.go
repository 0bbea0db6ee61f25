// Package chain holds option chains pushed by the TradingView browser
// extension (or generated by the mock generator) and answers lookups for the
// calculator UI.
package chain

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/eddiefleurent/options_calculator/internal/models"
)

// ErrInvalidChain is returned when a pushed chain cannot be normalized.
var ErrInvalidChain = errors.New("invalid option chain")

// Contract is a normalized option quote.
type Contract struct {
	Expiration        string            `json:"expiration"`
	OptionType        models.OptionType `json:"option_type"`
	Strike            float64           `json:"strike"`
	Bid               float64           `json:"bid"`
	Ask               float64           `json:"ask"`
	Last              float64           `json:"last"`
	Volume            int64             `json:"volume"`
	OpenInterest      int64             `json:"open_interest"`
	ImpliedVolatility float64           `json:"implied_volatility"`
	Delta             float64           `json:"delta"`
	Gamma             float64           `json:"gamma"`
	Theta             float64           `json:"theta"`
	Vega              float64           `json:"vega"`
}

// Chain is a normalized snapshot for one ticker.
type Chain struct {
	ReceivedAt      time.Time  `json:"received_at"`
	Ticker          string     `json:"ticker"`
	Expirations     []string   `json:"expirations"`
	Options         []Contract `json:"options"`
	UnderlyingPrice float64    `json:"underlying_price"`
	// Stale is set on reads older than the store TTL.
	Stale bool `json:"stale,omitempty"`
}

// RawContract is a contract as sent by the extension. Several fields accept
// an alternate key; the primary key wins when both are present.
type RawContract struct {
	Strike            float64  `json:"strike"`
	Expiration        string   `json:"expiration"`
	Expiry            string   `json:"expiry"`
	OptionType        string   `json:"option_type"`
	Type              string   `json:"type"`
	Bid               float64  `json:"bid"`
	Ask               float64  `json:"ask"`
	Last              *float64 `json:"last"`
	Price             *float64 `json:"price"`
	Volume            int64    `json:"volume"`
	OpenInterest      *int64   `json:"open_interest"`
	OI                *int64   `json:"oi"`
	ImpliedVolatility *float64 `json:"implied_volatility"`
	IV                *float64 `json:"iv"`
	Delta             float64  `json:"delta"`
	Gamma             float64  `json:"gamma"`
	Theta             float64  `json:"theta"`
	Vega              float64  `json:"vega"`
}

// RawChain is the extension payload.
type RawChain struct {
	Ticker          string        `json:"ticker"`
	Symbol          string        `json:"symbol"`
	UnderlyingPrice *float64      `json:"underlying_price"`
	Price           *float64      `json:"price"`
	Expirations     []string      `json:"expirations"`
	Options         []RawContract `json:"options"`
	Chain           []RawContract `json:"chain"`
}

// Normalize converts the payload into a Chain stamped with receivedAt.
// Contracts default to calls when no type is given. Expirations are derived
// from the contracts when the payload omits them.
func (r RawChain) Normalize(receivedAt time.Time) (Chain, error) {
	ticker := strings.ToUpper(strings.TrimSpace(firstString(r.Ticker, r.Symbol)))
	if ticker == "" {
		return Chain{}, fmt.Errorf("%w: ticker is required", ErrInvalidChain)
	}
	price := firstFloat(r.UnderlyingPrice, r.Price)
	if price < 0 {
		return Chain{}, fmt.Errorf("%w: underlying_price must be >= 0, got %g", ErrInvalidChain, price)
	}

	raw := r.Options
	if len(raw) == 0 {
		raw = r.Chain
	}

	out := Chain{
		Ticker:          ticker,
		UnderlyingPrice: price,
		Options:         make([]Contract, 0, len(raw)),
		ReceivedAt:      receivedAt,
	}
	for i, rc := range raw {
		c, err := rc.normalize()
		if err != nil {
			return Chain{}, fmt.Errorf("%w: contract %d: %w", ErrInvalidChain, i, err)
		}
		out.Options = append(out.Options, c)
	}

	if len(r.Expirations) > 0 {
		out.Expirations = append([]string(nil), r.Expirations...)
	} else {
		out.Expirations = uniqueExpirations(out.Options)
	}
	return out, nil
}

func (rc RawContract) normalize() (Contract, error) {
	typ := strings.ToLower(strings.TrimSpace(firstString(rc.OptionType, rc.Type)))
	if typ == "" {
		typ = string(models.Call)
	}
	optType, err := models.ParseOptionType(typ)
	if err != nil {
		return Contract{}, err
	}
	if rc.Strike <= 0 {
		return Contract{}, fmt.Errorf("strike must be > 0, got %g", rc.Strike)
	}
	exp := firstString(rc.Expiration, rc.Expiry)
	if exp == "" {
		return Contract{}, fmt.Errorf("expiration is required")
	}

	return Contract{
		Strike:            rc.Strike,
		Expiration:        exp,
		OptionType:        optType,
		Bid:               rc.Bid,
		Ask:               rc.Ask,
		Last:              firstFloat(rc.Last, rc.Price),
		Volume:            rc.Volume,
		OpenInterest:      firstInt(rc.OpenInterest, rc.OI),
		ImpliedVolatility: firstFloat(rc.ImpliedVolatility, rc.IV),
		Delta:             rc.Delta,
		Gamma:             rc.Gamma,
		Theta:             rc.Theta,
		Vega:              rc.Vega,
	}, nil
}

func uniqueExpirations(options []Contract) []string {
	seen := make(map[string]struct{})
	exps := make([]string, 0)
	for _, c := range options {
		if _, ok := seen[c.Expiration]; ok {
			continue
		}
		seen[c.Expiration] = struct{}{}
		exps = append(exps, c.Expiration)
	}
	sort.Strings(exps)
	return exps
}

func firstString(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func firstFloat(values ...*float64) float64 {
	for _, v := range values {
		if v != nil {
			return *v
		}
	}
	return 0
}

func firstInt(values ...*int64) int64 {
	for _, v := range values {
		if v != nil {
			return *v
		}
	}
	return 0
}
