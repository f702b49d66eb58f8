package domain

// RiskParams is the immutable risk configuration attached to a portfolio
// at creation.
type RiskParams struct {
	// MaxPositionSize caps a single buy at this fraction of free cash.
	MaxPositionSize float64 `yaml:"max_position_size" json:"max_position_size"`
	// StopLossPct forces a full close once the mark drops this fraction
	// below entry.
	StopLossPct float64 `yaml:"stop_loss_pct" json:"stop_loss_pct"`
	// TakeProfitPct forces a full close once the mark rises this fraction
	// above entry.
	TakeProfitPct float64 `yaml:"take_profit_pct" json:"take_profit_pct"`
	// MaxDailyLoss blocks new buys once the portfolio has lost this
	// fraction of its value within the current UTC day.
	MaxDailyLoss float64 `yaml:"max_daily_loss" json:"max_daily_loss"`
}

// DefaultRiskParams are the stock limits: 20% sizing cap, 2% stop loss,
// 4% take profit, 5% daily loss breaker.
func DefaultRiskParams() RiskParams {
	return RiskParams{
		MaxPositionSize: 0.20,
		StopLossPct:     0.02,
		TakeProfitPct:   0.04,
		MaxDailyLoss:    0.05,
	}
}
