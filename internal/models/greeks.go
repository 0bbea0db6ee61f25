package models

// Greeks holds option sensitivities. Theta is per calendar day, vega per
// one percentage point of implied volatility.
type Greeks struct {
	Delta float64 `json:"delta"`
	Gamma float64 `json:"gamma"`
	Theta float64 `json:"theta"`
	Vega  float64 `json:"vega"`
}

// Add returns the component-wise sum of g and o.
func (g Greeks) Add(o Greeks) Greeks {
	return Greeks{
		Delta: g.Delta + o.Delta,
		Gamma: g.Gamma + o.Gamma,
		Theta: g.Theta + o.Theta,
		Vega:  g.Vega + o.Vega,
	}
}

// Position scales per-unit Greeks to a position. Gamma is scaled by size
// only; it keeps its sign regardless of direction.
func (g Greeks) Position(direction, size float64) Greeks {
	return Greeks{
		Delta: g.Delta * direction * size,
		Gamma: g.Gamma * size,
		Theta: g.Theta * direction * size,
		Vega:  g.Vega * direction * size,
	}
}
