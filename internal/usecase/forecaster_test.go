package usecase_test

import (
	"math"
	"testing"

	"github.com/avolkov/paper_trade_bot/internal/domain"
	"github.com/avolkov/paper_trade_bot/internal/usecase"
)

func candlesFromCloses(closes []float64) []domain.Candle {
	candles := make([]domain.Candle, len(closes))
	for i, c := range closes {
		candles[i] = domain.Candle{Time: int64(i), Open: c, High: c, Low: c, Close: c, Volume: 1}
	}
	return candles
}

func TestPredict_TrendFollowsPerfectLine(t *testing.T) {
	forecaster := usecase.NewEnsembleForecaster()

	closes := make([]float64, 30)
	for i := range closes {
		closes[i] = 100 + float64(i)
	}

	forecast, err := forecaster.Predict("BTCUSDT", candlesFromCloses(closes))
	if err != nil {
		t.Fatalf("Predict failed: %v", err)
	}

	// A perfect line extrapolates exactly one step ahead.
	if math.Abs(forecast.Trend-130) > 1e-6 {
		t.Errorf("trend prediction = %f, want 130", forecast.Trend)
	}
	if want := (forecast.Trend + forecast.Momentum) / 2; forecast.Ensemble != want {
		t.Errorf("ensemble = %f, want model average %f", forecast.Ensemble, want)
	}
}

func TestPredict_FlatSeriesStaysFlat(t *testing.T) {
	forecaster := usecase.NewEnsembleForecaster()

	closes := make([]float64, 40)
	for i := range closes {
		closes[i] = 250
	}

	forecast, err := forecaster.Predict("ETHUSDT", candlesFromCloses(closes))
	if err != nil {
		t.Fatalf("Predict failed: %v", err)
	}
	if math.Abs(forecast.Ensemble-250) > 1e-6 {
		t.Errorf("flat series predicted %f, want 250", forecast.Ensemble)
	}
}

func TestPredict_RisingSeriesPredictsUpside(t *testing.T) {
	forecaster := usecase.NewEnsembleForecaster()

	closes := make([]float64, 40)
	for i := range closes {
		closes[i] = 100 * math.Pow(1.01, float64(i))
	}

	forecast, err := forecaster.Predict("SOLUSDT", candlesFromCloses(closes))
	if err != nil {
		t.Fatalf("Predict failed: %v", err)
	}
	if last := closes[len(closes)-1]; forecast.Ensemble <= last {
		t.Errorf("rising series predicted %f, want above last close %f", forecast.Ensemble, last)
	}
}

func TestPredict_TooLittleHistory(t *testing.T) {
	forecaster := usecase.NewEnsembleForecaster()

	if _, err := forecaster.Predict("BTCUSDT", candlesFromCloses([]float64{100, 101})); err == nil {
		t.Error("expected error for two candles")
	}
}
