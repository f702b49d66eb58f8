package usecase

import (
	"math"

	"github.com/avolkov/paper_trade_bot/internal/domain"
)

// SignalEvaluator turns a forecast plus a technical snapshot into a
// buy/no-buy recommendation. Stateless and deterministic.
type SignalEvaluator struct {
	// MinUpside is the minimum forecast upside (fractional) required
	// before a buy is recommended.
	MinUpside float64
	// MinConfidence is the minimum conviction required alongside it.
	MinConfidence float64
}

func NewSignalEvaluator() *SignalEvaluator {
	return &SignalEvaluator{
		MinUpside:     0.01,
		MinConfidence: 0.6,
	}
}

// Evaluate scores one instrument. Confidence blends the fraction of
// technical signals firing with the forecast upside (downside is floored
// at zero), so it always lands in [0, 1]. A buy needs both the upside and
// the confidence threshold to hold.
func (e *SignalEvaluator) Evaluate(forecastPrice float64, ind domain.IndicatorSnapshot) domain.Recommendation {
	predictedChange := (forecastPrice - ind.CurrentPrice) / ind.CurrentPrice
	if math.IsNaN(predictedChange) || math.IsInf(predictedChange, 0) {
		return domain.Recommendation{}
	}

	signals := 0
	if ind.CurrentPrice > ind.SMA20 {
		signals++
	}
	if ind.RSI > 30 && ind.RSI < 70 {
		signals++
	}
	if ind.MACD > 0 {
		signals++
	}
	technicalScore := float64(signals) / 3

	confidence := (technicalScore + math.Max(0, predictedChange)) / 2
	confidence = math.Min(confidence, 1)

	return domain.Recommendation{
		Buy:        predictedChange > e.MinUpside && confidence > e.MinConfidence,
		Confidence: confidence,
	}
}
