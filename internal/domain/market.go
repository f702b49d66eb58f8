package domain

type Candle struct {
	Time   int64   `json:"time"`
	Open   float64 `json:"open"`
	High   float64 `json:"high"`
	Low    float64 `json:"low"`
	Close  float64 `json:"close"`
	Volume float64 `json:"volume"`
}

// IndicatorSnapshot is the technical picture for one symbol at one instant.
type IndicatorSnapshot struct {
	Symbol       string  `json:"symbol"`
	CurrentPrice float64 `json:"current_price"`
	SMA20        float64 `json:"sma20"`
	RSI          float64 `json:"rsi"`
	MACD         float64 `json:"macd"`
}

// Forecast is the predictive model output for one symbol.
// Ensemble is the average of the component models and is the only field
// the decision logic consumes.
type Forecast struct {
	Symbol   string  `json:"symbol"`
	Trend    float64 `json:"trend_prediction"`
	Momentum float64 `json:"momentum_prediction"`
	Ensemble float64 `json:"ensemble_prediction"`
}

// Recommendation is the signal evaluator verdict.
type Recommendation struct {
	Buy        bool    `json:"recommend_buy"`
	Confidence float64 `json:"confidence"`
}
