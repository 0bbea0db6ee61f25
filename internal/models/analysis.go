package models

import "time"

// AnalysisKind identifies which calculation produced an AnalysisRecord.
type AnalysisKind string

const (
	// AnalysisPortfolio is a portfolio P&L calculation.
	AnalysisPortfolio AnalysisKind = "pl"
	// AnalysisCurve is a P&L curve sweep.
	AnalysisCurve AnalysisKind = "curve"
	// AnalysisOption is a single-leg pricing.
	AnalysisOption AnalysisKind = "option"
)

// Valid returns true if the AnalysisKind is one of the defined constants
func (k AnalysisKind) Valid() bool {
	switch k {
	case AnalysisPortfolio, AnalysisCurve, AnalysisOption:
		return true
	default:
		return false
	}
}

// AnalysisRecord is a persisted summary of one calculation request.
type AnalysisRecord struct {
	CreatedAt       time.Time        `json:"created_at"`
	TargetDays      *int             `json:"target_days,omitempty"`
	ID              string           `json:"id"`
	Kind            AnalysisKind     `json:"kind"`
	Mode            string           `json:"mode"`
	Positions       []OptionPosition `json:"positions"`
	TotalGreeks     Greeks           `json:"total_greeks"`
	CurrentPrice    float64          `json:"current_price"`
	TargetPrice     float64          `json:"target_price,omitempty"`
	RiskFreeRate    float64          `json:"risk_free_rate"`
	Multiplier      float64          `json:"multiplier"`
	TotalPLAtExpiry float64          `json:"total_pl_at_expiry"`
	TotalPLWithTime float64          `json:"total_pl_with_time"`
	CurvePoints     int              `json:"curve_points,omitempty"`
}
