package calculator

import (
	"errors"
	"math"
	"testing"
	"time"

	apperrors "TrendSentinel/internal/errors"
	"TrendSentinel/internal/model"
)

func makeBars(closes []float64) []model.DailyBar {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	bars := make([]model.DailyBar, len(closes))
	for i, c := range closes {
		bars[i] = model.DailyBar{
			Date:   start.AddDate(0, 0, i),
			Open:   c * 0.998,
			High:   c * 1.005,
			Low:    c * 0.995,
			Close:  c,
			Volume: 1e6,
		}
	}
	return bars
}

func geometric(n int, start, ratio float64) []float64 {
	out := make([]float64, n)
	v := start
	for i := range out {
		out[i] = v
		v *= ratio
	}
	return out
}

func TestSMA(t *testing.T) {
	v, err := SMA([]float64{1, 2, 3, 4, 5}, 3)
	if err != nil || v != 4 {
		t.Errorf("SMA = %v, %v; want 4", v, err)
	}
	v, err = SMAAt([]float64{1, 2, 3, 4, 5}, 3, 1)
	if err != nil || v != 3 {
		t.Errorf("SMAAt = %v, %v; want 3", v, err)
	}
	if _, err := SMA([]float64{1, 2}, 3); !errors.Is(err, apperrors.ErrInsufficientHistory) {
		t.Errorf("expected ErrInsufficientHistory, got %v", err)
	}
}

func TestRSI_Monotonic(t *testing.T) {
	up, err := RSI(geometric(60, 10, 1.01), 14)
	if err != nil {
		t.Fatal(err)
	}
	if up != 100 {
		t.Errorf("strictly rising series should read 100, got %v", up)
	}
	down, err := RSI(geometric(60, 10, 0.99), 14)
	if err != nil {
		t.Fatal(err)
	}
	if down != 0 {
		t.Errorf("strictly falling series should read 0, got %v", down)
	}
	flat, _ := RSI([]float64{5, 5, 5, 5, 5, 5, 5, 5}, 6)
	if flat != 50 {
		t.Errorf("flat series should read 50, got %v", flat)
	}
}

func TestRSI_WilderSmoothing(t *testing.T) {
	// One loss inside a long run of gains decays rather than dropping out of a window.
	closes := []float64{10, 11, 12, 11, 12, 13, 14, 15, 16, 17, 18}
	s, err := RSISeries(closes, 3)
	if err != nil {
		t.Fatal(err)
	}
	last := s[len(s)-1]
	if last >= 100 || last < 90 {
		t.Errorf("expected the loss to linger below 100, got %v", last)
	}
	for i := 1; i < len(s); i++ {
		if s[i] < s[i-1] {
			t.Errorf("rsi should rise through the gains, s[%d]=%v < %v", i, s[i], s[i-1])
		}
	}
}

func TestMACD(t *testing.T) {
	flat := make([]float64, 40)
	for i := range flat {
		flat[i] = 10
	}
	v, err := MACD(flat)
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs(v.DIF) > 1e-9 || math.Abs(v.DEA) > 1e-9 || math.Abs(v.Bar) > 1e-9 {
		t.Errorf("flat series should give zero MACD, got %+v", v)
	}

	v, err = MACD(geometric(60, 10, 1.01))
	if err != nil {
		t.Fatal(err)
	}
	if v.DIF <= 0 || v.DIF <= v.DEA {
		t.Errorf("rising series should have DIF > DEA > 0, got %+v", v)
	}

	if _, err := MACD(flat[:20]); !errors.Is(err, apperrors.ErrInsufficientHistory) {
		t.Errorf("expected ErrInsufficientHistory, got %v", err)
	}
}

func TestKDJ(t *testing.T) {
	v, err := KDJ(makeBars(geometric(30, 10, 1.01)))
	if err != nil {
		t.Fatal(err)
	}
	if v.K <= 50 || v.D <= 50 || v.K < v.D {
		t.Errorf("rising series should push K above D above 50, got %+v", v)
	}
	if math.Abs(v.J-(3*v.K-2*v.D)) > 1e-9 {
		t.Errorf("J must equal 3K-2D, got %+v", v)
	}
}

func TestATR(t *testing.T) {
	bars := make([]model.DailyBar, 20)
	for i := range bars {
		bars[i] = model.DailyBar{Open: 10, High: 11, Low: 9, Close: 10}
	}
	v, err := ATR(bars, 14)
	if err != nil || v != 2 {
		t.Errorf("ATR = %v, %v; want 2", v, err)
	}
	if _, err := ATR(bars[:10], 14); !errors.Is(err, apperrors.ErrInsufficientHistory) {
		t.Errorf("expected ErrInsufficientHistory, got %v", err)
	}
}

func TestVolumeRatio_ProjectsProvisional(t *testing.T) {
	bars := makeBars(geometric(6, 10, 1.0))
	bars[5].Volume = 5e5
	bars[5].Provisional = true
	bars[5].SessionProgress = 0.25

	v, err := VolumeRatio(bars)
	if err != nil {
		t.Fatal(err)
	}
	if v != 2 {
		t.Errorf("expected projected ratio 2, got %v", v)
	}
}

func TestBollinger(t *testing.T) {
	closes := make([]float64, 20)
	for i := range closes {
		closes[i] = 10 + float64(i%2) // alternates 10, 11
	}
	v, err := Bollinger(closes, 20, 2)
	if err != nil {
		t.Fatal(err)
	}
	if v.Middle != 10.5 || math.Abs(v.Upper-11.5) > 1e-9 || math.Abs(v.Lower-9.5) > 1e-9 {
		t.Errorf("unexpected bands %+v", v)
	}
	if math.Abs(v.PercentB-0.75) > 1e-9 {
		t.Errorf("expected %%B 0.75, got %v", v.PercentB)
	}
}

func TestMaxDrawdown(t *testing.T) {
	closes := []float64{10, 12, 9, 11, 6, 8}
	v, err := MaxDrawdown(closes, 6)
	if err != nil || v != -50 {
		t.Errorf("MaxDrawdown = %v, %v; want -50", v, err)
	}
}

func TestRangePosition(t *testing.T) {
	tests := []struct {
		price, high, low, want float64
	}{
		{15, 20, 10, 50},
		{25, 20, 10, 100},
		{5, 20, 10, 0},
		{10, 10, 10, 50},
	}
	for _, tt := range tests {
		got, err := RangePosition(tt.price, tt.high, tt.low)
		if err != nil || got != tt.want {
			t.Errorf("RangePosition(%v, %v, %v) = %v, %v; want %v", tt.price, tt.high, tt.low, got, err, tt.want)
		}
	}
}

func TestLevels(t *testing.T) {
	closes := []float64{10, 9.5, 9, 9.5, 10, 10.5, 11, 10.5, 10, 10.2, 10.4}
	bars := makeBars(closes)
	supports, resistances, err := Levels(bars, 10.4, map[int]float64{5: 10.2, 20: 10.8})
	if err != nil {
		t.Fatal(err)
	}
	if len(supports) == 0 || supports[0] != 10.2 {
		t.Errorf("expected MA5 as nearest support, got %v", supports)
	}
	for i := 1; i < len(supports); i++ {
		if supports[i] >= supports[i-1] {
			t.Errorf("supports not descending: %v", supports)
		}
	}
	if len(resistances) == 0 || resistances[0] != 10.8 {
		t.Errorf("expected MA20 as nearest resistance, got %v", resistances)
	}
}

func TestCompute_FlagsShortHistory(t *testing.T) {
	series := &model.SymbolSeries{Bars: makeBars(geometric(12, 10, 1.01))}
	snap := Compute(series, nil)

	if _, ok := snap.MAValue(10); !ok {
		t.Error("MA10 should be available with 12 bars")
	}
	for _, name := range []string{model.IndMACD, model.IndRSI, model.IndATR, model.IndBollinger, model.IndRange52w, "ma20"} {
		if snap.Has(name) {
			t.Errorf("%s should be flagged missing", name)
		}
	}
	if !snap.Has(model.IndKDJ) || !snap.Has(model.IndVolume) {
		t.Errorf("KDJ and volume ratio should be available: %v", snap.Missing)
	}
	if snap.MACD.DIF != 0 {
		t.Error("missing indicators must stay zero")
	}
}

func TestCompute_AscendingSeries(t *testing.T) {
	series := &model.SymbolSeries{Bars: makeBars(geometric(60, 10, 1.01))}
	snap := Compute(series, nil)
	if len(snap.Missing) != 1 || snap.Has(model.IndRange52w) {
		t.Errorf("only the 52-week range should be missing, got %v", snap.Missing)
	}
	if snap.MA[5] <= snap.MA[10] || snap.MA[10] <= snap.MA[20] {
		t.Errorf("moving averages should be stacked bullishly: %v", snap.MA)
	}
	if math.Abs(snap.VolumeRatio-1) > 1e-9 {
		t.Errorf("constant volume should give ratio 1, got %v", snap.VolumeRatio)
	}
	if snap.RSI.RSI6 != 100 {
		t.Errorf("expected RSI6 100, got %v", snap.RSI.RSI6)
	}
}
