// Package models defines the option positions, Greeks and analysis records
// shared by the pricing core, storage and HTTP layers.
package models

import (
	"errors"
	"fmt"
	"strings"
)

// ContractMultiplier is the number of shares controlled by one equity option contract.
const ContractMultiplier = 100.0

// Defaults applied to positions that omit optional fields.
const (
	DefaultQuantity     = 1
	DefaultDaysToExpiry = 30
	DefaultIV           = 0.25
)

// ErrInvalidPosition is returned when a position fails validation.
var ErrInvalidPosition = errors.New("invalid option position")

// OptionType is either a call or a put.
type OptionType string

const (
	// Call is the right to buy at the strike.
	Call OptionType = "call"
	// Put is the right to sell at the strike.
	Put OptionType = "put"
)

// ParseOptionType normalizes s into an OptionType.
func ParseOptionType(s string) (OptionType, error) {
	t := OptionType(strings.ToLower(strings.TrimSpace(s)))
	if !t.Valid() {
		return "", fmt.Errorf("%w: option_type must be 'call' or 'put', got %q", ErrInvalidPosition, s)
	}
	return t, nil
}

// Valid returns true if the OptionType is one of the defined constants
func (t OptionType) Valid() bool {
	return t == Call || t == Put
}

// PositionType is the side of a position.
type PositionType string

const (
	// Long positions are bought.
	Long PositionType = "long"
	// Short positions are sold.
	Short PositionType = "short"
)

// ParsePositionType normalizes s into a PositionType.
func ParsePositionType(s string) (PositionType, error) {
	t := PositionType(strings.ToLower(strings.TrimSpace(s)))
	if !t.Valid() {
		return "", fmt.Errorf("%w: position_type must be 'long' or 'short', got %q", ErrInvalidPosition, s)
	}
	return t, nil
}

// Valid returns true if the PositionType is one of the defined constants
func (t PositionType) Valid() bool {
	return t == Long || t == Short
}

// Direction is +1 for long and -1 for short.
func (t PositionType) Direction() float64 {
	if t == Short {
		return -1
	}
	return 1
}

// OptionPosition is a single leg of a strategy.
type OptionPosition struct {
	OptionType        OptionType   `json:"option_type"`
	PositionType      PositionType `json:"position_type"`
	Strike            float64      `json:"strike"`
	Premium           float64      `json:"premium"`
	Quantity          int          `json:"quantity"`
	DaysToExpiry      int          `json:"days_to_expiry"`
	ImpliedVolatility float64      `json:"iv"` // decimal (0.25 = 25%)
}

// Validate checks the position against the pricing domain.
// A non-positive IV is accepted; the engine floors it.
func (p OptionPosition) Validate() error {
	if !p.OptionType.Valid() {
		return fmt.Errorf("%w: option_type must be 'call' or 'put'", ErrInvalidPosition)
	}
	if !p.PositionType.Valid() {
		return fmt.Errorf("%w: position_type must be 'long' or 'short'", ErrInvalidPosition)
	}
	if p.Strike <= 0 {
		return fmt.Errorf("%w: strike must be > 0, got %g", ErrInvalidPosition, p.Strike)
	}
	if p.Premium < 0 {
		return fmt.Errorf("%w: premium must be >= 0, got %g", ErrInvalidPosition, p.Premium)
	}
	if p.Quantity <= 0 {
		return fmt.Errorf("%w: quantity must be > 0, got %d", ErrInvalidPosition, p.Quantity)
	}
	if p.DaysToExpiry < 0 {
		return fmt.Errorf("%w: days_to_expiry must be >= 0, got %d", ErrInvalidPosition, p.DaysToExpiry)
	}
	return nil
}

// IntrinsicValue returns the exercise value of the option at price.
func IntrinsicValue(t OptionType, strike, price float64) float64 {
	if t == Call {
		return max(0, price-strike)
	}
	return max(0, strike-price)
}
