package calculator

import (
	"errors"
	"math"

	apperrors "TrendSentinel/internal/errors"
	"TrendSentinel/internal/model"
)

// Trading-day lookbacks.
const (
	Days20  = 20
	Days52w = 250
	// levelsLookback is the window scanned for swing highs and lows.
	levelsLookback = 30
)

// HighLow scans the most recent n bars and returns the high and low.
// With fewer than minBars bars it reports InsufficientHistory.
func HighLow(bars []model.DailyBar, n, minBars int) (high, low float64, err error) {
	if len(bars) == 0 || len(bars) < minBars {
		return 0, 0, apperrors.NewInsufficientHistory("range", minBars, len(bars))
	}
	start := len(bars) - n
	if start < 0 {
		start = 0
	}
	high = math.Inf(-1)
	low = math.Inf(1)
	for _, b := range bars[start:] {
		high = max(high, b.High)
		low = min(low, b.Low)
	}
	return high, low, nil
}

// RangePosition returns where price sits within [low, high] as a percentage (0~100).
func RangePosition(price, high, low float64) (float64, error) {
	if high == low {
		return 50, nil
	}
	if high < low {
		return 0, errors.New("high must be >= low")
	}
	return clamp((price-low)/(high-low)*100, 0, 100), nil
}

// Levels finds support and resistance candidates: swing lows and highs over
// the last 30 bars (two bars each side) plus the moving averages. Supports are
// below price sorted nearest first; resistances above price sorted nearest first.
func Levels(bars []model.DailyBar, price float64, mas map[int]float64) (supports, resistances []float64, err error) {
	if len(bars) < 5 {
		return nil, nil, apperrors.NewInsufficientHistory(model.IndLevels, 5, len(bars))
	}
	start := max(len(bars)-levelsLookback, 0)
	window := bars[start:]
	var lows, highs []float64
	for i := 2; i < len(window)-2; i++ {
		b := window[i]
		if b.Low <= window[i-1].Low && b.Low <= window[i-2].Low && b.Low <= window[i+1].Low && b.Low <= window[i+2].Low {
			lows = append(lows, b.Low)
		}
		if b.High >= window[i-1].High && b.High >= window[i-2].High && b.High >= window[i+1].High && b.High >= window[i+2].High {
			highs = append(highs, b.High)
		}
	}
	candidates := append(append([]float64{}, lows...), highs...)
	for _, v := range mas {
		candidates = append(candidates, v)
	}
	for _, v := range candidates {
		switch {
		case v > 0 && v < price:
			supports = append(supports, v)
		case v > price:
			resistances = append(resistances, v)
		}
	}
	return sortedUnique(supports, true), sortedUnique(resistances, false), nil
}
