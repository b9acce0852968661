package regime

import (
	"errors"
	"testing"
	"time"

	apperrors "TrendSentinel/internal/errors"
	"TrendSentinel/internal/model"
)

func series(closes []float64) *model.SymbolSeries {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	bars := make([]model.DailyBar, len(closes))
	for i, c := range closes {
		bars[i] = model.DailyBar{Date: start.AddDate(0, 0, i), Open: c, High: c, Low: c, Close: c}
	}
	return &model.SymbolSeries{Symbol: "sh000001", Bars: bars}
}

func path(n int, start, ratio float64) []float64 {
	out := make([]float64, n)
	v := start
	for i := range out {
		out[i] = v
		v *= ratio
	}
	return out
}

func TestDecide(t *testing.T) {
	tests := []struct {
		slope, change float64
		want          model.MarketRegime
	}{
		{2, 0.5, model.RegimeBull},
		{2, 0, model.RegimeBull},
		{2, -0.3, model.RegimeRange},
		{-2, -0.5, model.RegimeBear},
		{-2, 0, model.RegimeBear},
		{-2, 0.4, model.RegimeRange},
		{0.5, 1, model.RegimeRange},
		{1, 1, model.RegimeRange}, // threshold is exclusive
	}
	for _, tt := range tests {
		if got := Decide(tt.slope, tt.change, 1); got != tt.want {
			t.Errorf("Decide(%v, %v) = %s; want %s", tt.slope, tt.change, got, tt.want)
		}
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name   string
		closes []float64
		want   model.MarketRegime
	}{
		{"ascending", path(60, 3000, 1.01), model.RegimeBull},
		{"descending", path(60, 3000, 0.99), model.RegimeBear},
		{"flat", path(60, 3000, 1.0), model.RegimeRange},
	}
	for _, tt := range tests {
		c, err := Classify(series(tt.closes), DefaultSettings)
		if err != nil {
			t.Fatalf("%s: %v", tt.name, err)
		}
		if c.Regime != tt.want {
			t.Errorf("%s: got %s (slope %.2f%%), want %s", tt.name, c.Regime, c.SlopePct, tt.want)
		}
		if c.Profile.Total() != model.WeightProfileTotal {
			t.Errorf("%s: profile sums to %v", tt.name, c.Profile.Total())
		}
	}
}

func TestClassify_Smoothing(t *testing.T) {
	closes := path(60, 3000, 1.01)
	// A red day two sessions ago breaks an otherwise bullish run.
	closes[57] = closes[56] * 0.995
	closes[58] = closes[57] * 1.01
	closes[59] = closes[58] * 1.01

	single, _ := Classify(series(closes), DefaultSettings)
	if single.Regime != model.RegimeBull {
		t.Fatalf("single-day reading should be BULL, got %s", single.Regime)
	}
	smoothed := DefaultSettings
	smoothed.SmoothDays = 3
	c, err := Classify(series(closes), smoothed)
	if err != nil {
		t.Fatal(err)
	}
	if c.Regime != model.RegimeRange {
		t.Errorf("smoothed reading should hold RANGE, got %s", c.Regime)
	}
}

func TestClassify_InsufficientHistory(t *testing.T) {
	c, err := Classify(series(path(15, 3000, 1.01)), DefaultSettings)
	if !errors.Is(err, apperrors.ErrInsufficientHistory) {
		t.Errorf("expected ErrInsufficientHistory, got %v", err)
	}
	if c.Regime != model.RegimeRange || c.Profile.Total() != model.WeightProfileTotal {
		t.Errorf("expected balanced fallback, got %+v", c)
	}
}

func TestProfiles_SumToTotal(t *testing.T) {
	for _, r := range []model.MarketRegime{model.RegimeBull, model.RegimeBear, model.RegimeRange} {
		for _, h := range []model.Horizon{model.HorizonIntraday, model.HorizonShort, model.HorizonMedium} {
			p := ProfileFor(h, r)
			if p.Total() != model.WeightProfileTotal {
				t.Errorf("%s/%s sums to %v", r, h, p.Total())
			}
			if len(p) != len(model.Dimensions) {
				t.Errorf("%s/%s covers %d dimensions", r, h, len(p))
			}
		}
	}
	if ProfileFor(model.HorizonMedium, model.RegimeBull)[model.DimTrend] != 30 {
		t.Error("medium horizon should use the regime profile")
	}
	p := Profile(model.RegimeBull)
	p[model.DimTrend] = 0
	if Profile(model.RegimeBull)[model.DimTrend] != 30 {
		t.Error("profiles must be returned as copies")
	}
}
