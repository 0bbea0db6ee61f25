// Package rates supplies the risk-free rate used by the pricing engine.
//
// A CachedProvider fronts a live source (FRED by default) with a TTL cache,
// a circuit breaker and retry, and degrades to the last known or configured
// fallback rate when the source is unavailable.
package rates

import (
	"context"
	"errors"
	"time"
)

// Rate sources reported in RateInfo.Source.
const (
	SourceStatic   = "static"
	SourceFRED     = "fred"
	SourceFallback = "fallback"
)

// ErrNoObservation is returned when the source has no usable value.
var ErrNoObservation = errors.New("no rate observation available")

// RateInfo describes a risk-free rate and where it came from.
type RateInfo struct {
	UpdatedAt   time.Time `json:"updated_at"`
	Source      string    `json:"source"`
	SeriesID    string    `json:"series_id,omitempty"`
	ObservedOn  string    `json:"observation_date,omitempty"`
	Rate        float64   `json:"rate"`
	RatePercent float64   `json:"rate_percent"`
	Stale       bool      `json:"stale,omitempty"`
}

// Provider returns the current annualized risk-free rate.
// Implementations must be safe for concurrent use.
type Provider interface {
	Rate(ctx context.Context) (RateInfo, error)
}

// StaticProvider always returns the same rate.
type StaticProvider struct {
	rate float64
}

var _ Provider = (*StaticProvider)(nil)

// NewStaticProvider creates a provider fixed at rate (decimal, e.g. 0.05).
func NewStaticProvider(rate float64) *StaticProvider {
	return &StaticProvider{rate: rate}
}

// Rate implements Provider.
func (s *StaticProvider) Rate(_ context.Context) (RateInfo, error) {
	return newRateInfo(s.rate, SourceStatic, time.Now()), nil
}

func newRateInfo(rate float64, source string, at time.Time) RateInfo {
	return RateInfo{
		Rate:        rate,
		RatePercent: rate * 100,
		Source:      source,
		UpdatedAt:   at.UTC(),
	}
}
