// Package util provides rounding helpers for prices and reported figures.
package util

import (
	"math"

	"github.com/shopspring/decimal"
)

// Round rounds x to places decimal places, half away from zero.
// Rounding works on the shortest decimal representation of x, so 1.005
// rounds to 1.01 rather than 1.00. NaN and infinities are returned unchanged.
func Round(x float64, places int32) float64 {
	if math.IsNaN(x) || math.IsInf(x, 0) {
		return x
	}
	return decimal.NewFromFloat(x).Round(places).InexactFloat64()
}

// RoundToTick rounds x to the nearest tick increment, ties away from zero.
// A negative tick is treated as its absolute value; a zero tick returns x.
func RoundToTick(x, tick float64) float64 {
	tick = math.Abs(tick)
	if tick == 0 || math.IsNaN(x) || math.IsInf(x, 0) || math.IsNaN(tick) || math.IsInf(tick, 0) {
		return x
	}
	t := decimal.NewFromFloat(tick)
	return decimal.NewFromFloat(x).Div(t).Round(0).Mul(t).InexactFloat64()
}
