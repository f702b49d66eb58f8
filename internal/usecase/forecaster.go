package usecase

import (
	"fmt"

	"github.com/avolkov/paper_trade_bot/internal/domain"
)

const (
	trendWindow    = 30
	momentumPeriod = 10
	minForecast    = 3
)

// EnsembleForecaster predicts the next close as the average of two simple
// models: a least-squares trend fit over the trailing window and an
// EMA-smoothed momentum extrapolation. It replaces an external model
// service with something deterministic and cheap.
type EnsembleForecaster struct{}

func NewEnsembleForecaster() *EnsembleForecaster {
	return &EnsembleForecaster{}
}

func (f *EnsembleForecaster) Predict(symbol string, candles []domain.Candle) (domain.Forecast, error) {
	if len(candles) < minForecast {
		return domain.Forecast{}, fmt.Errorf("forecast %s: need %d candles, have %d", symbol, minForecast, len(candles))
	}

	closes := make([]float64, len(candles))
	for i, c := range candles {
		closes[i] = c.Close
	}

	trend := trendPrediction(closes)
	momentum := momentumPrediction(closes)

	return domain.Forecast{
		Symbol:   symbol,
		Trend:    trend,
		Momentum: momentum,
		Ensemble: (trend + momentum) / 2,
	}, nil
}

// trendPrediction fits price = a + b*t by least squares over the trailing
// window and extrapolates one step ahead.
func trendPrediction(closes []float64) float64 {
	window := closes
	if len(window) > trendWindow {
		window = window[len(window)-trendWindow:]
	}
	n := float64(len(window))

	var sumT, sumY, sumTY, sumTT float64
	for i, y := range window {
		t := float64(i)
		sumT += t
		sumY += y
		sumTY += t * y
		sumTT += t * t
	}

	denom := n*sumTT - sumT*sumT
	if denom == 0 {
		return window[len(window)-1]
	}
	slope := (n*sumTY - sumT*sumY) / denom
	intercept := (sumY - slope*sumT) / n
	return intercept + slope*n
}

// momentumPrediction extrapolates the last close by the EMA of recent
// fractional returns.
func momentumPrediction(closes []float64) float64 {
	alpha := 2.0 / float64(momentumPeriod+1)
	var drift float64
	for i := 1; i < len(closes); i++ {
		if closes[i-1] == 0 {
			continue
		}
		ret := (closes[i] - closes[i-1]) / closes[i-1]
		drift = alpha*ret + (1-alpha)*drift
	}
	last := closes[len(closes)-1]
	return last * (1 + drift)
}
