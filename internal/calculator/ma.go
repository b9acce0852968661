package calculator

import (
	"errors"

	apperrors "TrendSentinel/internal/errors"
	"TrendSentinel/internal/model"
)

// SMA computes the simple moving average of the last period values.
func SMA(values []float64, period int) (float64, error) {
	return SMAAt(values, period, 0)
}

// SMAAt computes the simple moving average ending offset values before the tail.
func SMAAt(values []float64, period, offset int) (float64, error) {
	if period <= 0 {
		return 0, errors.New("period must be positive")
	}
	end := len(values) - offset
	if end < period {
		return 0, apperrors.NewInsufficientHistory("sma", period+offset, len(values))
	}
	sum := 0.0
	for i := end - period; i < end; i++ {
		sum += values[i]
	}
	return sum / float64(period), nil
}

// EMASeries returns the exponential moving average of values, seeded with the first value.
func EMASeries(values []float64, period int) []float64 {
	out := make([]float64, len(values))
	if len(values) == 0 {
		return out
	}
	alpha := 2.0 / float64(period+1)
	out[0] = values[0]
	for i := 1; i < len(values); i++ {
		out[i] = alpha*values[i] + (1-alpha)*out[i-1]
	}
	return out
}

// Closes extracts closing prices.
func Closes(bars []model.DailyBar) []float64 {
	closes := make([]float64, len(bars))
	for i, b := range bars {
		closes[i] = b.Close
	}
	return closes
}

func volumes(bars []model.DailyBar) []float64 {
	v := make([]float64, len(bars))
	for i, b := range bars {
		v[i] = b.Volume
	}
	return v
}
