// Package regime labels the market environment from an index series and
// selects the matching scoring weights. It holds no state between calls.
package regime

import (
	"fmt"

	"TrendSentinel/internal/calculator"
	apperrors "TrendSentinel/internal/errors"
	"TrendSentinel/internal/model"
)

// Settings tune the classifier.
type Settings struct {
	MAWindow int     // moving average whose slope is measured
	Lookback int     // bars between the two MA readings
	SlopePct float64 // |slope| above this is "steep"
	// SmoothDays > 1 requires that many consecutive identical daily readings
	// before leaving RANGE. 1 classifies on the latest day alone.
	SmoothDays int
}

// DefaultSettings classify on MA20 slope over 10 bars with a 1% threshold, single-day.
var DefaultSettings = Settings{MAWindow: 20, Lookback: 10, SlopePct: 1.0, SmoothDays: 1}

// Classification is the regime plus the readings that produced it.
type Classification struct {
	Regime    model.MarketRegime
	SlopePct  float64
	ChangePct float64
	Profile   model.WeightProfile
}

// Classify labels the regime from the index closes. With too little history
// it returns RANGE together with an InsufficientHistory error so callers can
// flag the gap and still score with balanced weights.
func Classify(index *model.SymbolSeries, s Settings) (Classification, error) {
	if s.MAWindow <= 0 || s.Lookback <= 0 {
		s = DefaultSettings
	}
	if s.SmoothDays < 1 {
		s.SmoothDays = 1
	}
	fallback := Classification{Regime: model.RegimeRange, Profile: Profile(model.RegimeRange)}
	if index == nil {
		return fallback, fmt.Errorf("regime: no index series: %w", apperrors.ErrInsufficientHistory)
	}
	closes := calculator.Closes(index.Bars)
	need := s.MAWindow + s.Lookback + s.SmoothDays
	if len(closes) < need {
		return fallback, apperrors.NewInsufficientHistory("regime", need, len(closes))
	}

	var first Classification
	for day := 0; day < s.SmoothDays; day++ {
		c := classifyAt(closes, s, day)
		if day == 0 {
			first = c
			continue
		}
		if c.Regime != first.Regime {
			first.Regime = model.RegimeRange
			break
		}
	}
	first.Profile = Profile(first.Regime)
	return first, nil
}

// classifyAt applies the decision table offset bars before the tail.
func classifyAt(closes []float64, s Settings, offset int) Classification {
	now, _ := calculator.SMAAt(closes, s.MAWindow, offset)
	then, _ := calculator.SMAAt(closes, s.MAWindow, offset+s.Lookback)
	n := len(closes) - 1 - offset

	c := Classification{Regime: model.RegimeRange}
	if then > 0 {
		c.SlopePct = (now - then) / then * 100
	}
	if closes[n-1] > 0 {
		c.ChangePct = (closes[n] - closes[n-1]) / closes[n-1] * 100
	}
	c.Regime = Decide(c.SlopePct, c.ChangePct, s.SlopePct)
	return c
}

// Decide is the regime decision table.
func Decide(slopePct, changePct, threshold float64) model.MarketRegime {
	switch {
	case slopePct > threshold && changePct >= 0:
		return model.RegimeBull
	case slopePct < -threshold && changePct <= 0:
		return model.RegimeBear
	default:
		return model.RegimeRange
	}
}
