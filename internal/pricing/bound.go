package pricing

import (
	"bytes"
	"encoding/json"
	"fmt"
)

const unboundedLiteral = "unbounded"

// Bound is a risk metric that is either a finite amount or unbounded.
// The zero value is Bounded(0).
type Bound struct {
	value     float64
	unbounded bool
}

// Bounded returns a finite Bound.
func Bounded(v float64) Bound { return Bound{value: v} }

// Unbounded returns the unbounded sentinel.
func Unbounded() Bound { return Bound{unbounded: true} }

// IsUnbounded reports whether b has no finite limit.
func (b Bound) IsUnbounded() bool { return b.unbounded }

// Value returns the finite amount and true, or 0 and false when unbounded.
func (b Bound) Value() (float64, bool) {
	if b.unbounded {
		return 0, false
	}
	return b.value, true
}

// Map applies fn to a finite value and leaves an unbounded one untouched.
func (b Bound) Map(fn func(float64) float64) Bound {
	if b.unbounded {
		return b
	}
	return Bounded(fn(b.value))
}

func (b Bound) String() string {
	if b.unbounded {
		return unboundedLiteral
	}
	return fmt.Sprintf("%g", b.value)
}

// MarshalJSON encodes a finite value as a number and the sentinel as "unbounded".
func (b Bound) MarshalJSON() ([]byte, error) {
	if b.unbounded {
		return json.Marshal(unboundedLiteral)
	}
	return json.Marshal(b.value)
}

// UnmarshalJSON accepts a number or the string "unbounded".
func (b *Bound) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		if s != unboundedLiteral {
			return fmt.Errorf("bound: unexpected string %q", s)
		}
		*b = Unbounded()
		return nil
	}
	var v float64
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("bound: %w", err)
	}
	*b = Bounded(v)
	return nil
}
