package calculator

import (
	"errors"

	apperrors "TrendSentinel/internal/errors"
)

// RSISeries computes the Wilder-smoothed RSI over the given period.
// The first average gain/loss is a simple mean of the first period changes;
// later values are smoothed as avg = (avg*(period-1) + x) / period.
// Element i of the result is the RSI as of closes[period+i].
// Requires at least period+1 closes.
func RSISeries(closes []float64, period int) ([]float64, error) {
	if period <= 0 {
		return nil, errors.New("period must be positive")
	}
	if len(closes) < period+1 {
		return nil, apperrors.NewInsufficientHistory("rsi", period+1, len(closes))
	}

	// Initial average gain/loss over the first `period` changes
	var avgGain, avgLoss float64
	for i := 1; i <= period; i++ {
		change := closes[i] - closes[i-1]
		if change > 0 {
			avgGain += change
		} else {
			avgLoss -= change // make positive
		}
	}
	avgGain /= float64(period)
	avgLoss /= float64(period)

	out := make([]float64, 0, len(closes)-period)
	out = append(out, rsiFromAverages(avgGain, avgLoss))

	// Wilder smoothing for remaining bars
	for i := period + 1; i < len(closes); i++ {
		change := closes[i] - closes[i-1]
		gain, loss := 0.0, 0.0
		if change > 0 {
			gain = change
		} else {
			loss = -change
		}
		avgGain = (avgGain*float64(period-1) + gain) / float64(period)
		avgLoss = (avgLoss*float64(period-1) + loss) / float64(period)
		out = append(out, rsiFromAverages(avgGain, avgLoss))
	}
	return out, nil
}

// RSI returns the Wilder RSI as of the last close.
func RSI(closes []float64, period int) (float64, error) {
	s, err := RSISeries(closes, period)
	if err != nil {
		return 0, err
	}
	return s[len(s)-1], nil
}

// rsiFromAverages maps smoothed averages into [0, 100]. A flat window reads 50.
func rsiFromAverages(avgGain, avgLoss float64) float64 {
	if avgLoss == 0 {
		if avgGain == 0 {
			return 50
		}
		return 100
	}
	rsi := 100.0 - 100.0/(1.0+avgGain/avgLoss)
	return clamp(rsi, 0, 100)
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
