package calculator

import (
	"math"
	"sort"

	apperrors "TrendSentinel/internal/errors"
	"TrendSentinel/internal/model"
)

// ATRPeriod is the true-range averaging window.
const ATRPeriod = 14

func trueRanges(bars []model.DailyBar) []float64 {
	if len(bars) < 2 {
		return nil
	}
	tr := make([]float64, len(bars)-1)
	for i := 1; i < len(bars); i++ {
		prev := bars[i-1].Close
		b := bars[i]
		tr[i-1] = max(b.High-b.Low, math.Abs(b.High-prev), math.Abs(b.Low-prev))
	}
	return tr
}

// ATR is the mean true range over the last period bars.
func ATR(bars []model.DailyBar, period int) (float64, error) {
	tr := trueRanges(bars)
	if len(tr) < period {
		return 0, apperrors.NewInsufficientHistory(model.IndATR, period+1, len(bars))
	}
	return SMA(tr, period)
}

// ATRPercentile ranks the current ATR among the rolling ATRs of the last
// lookback bars and returns a fraction in [0, 1].
func ATRPercentile(bars []model.DailyBar, period, lookback int) (float64, error) {
	tr := trueRanges(bars)
	const minSamples = 20
	samples := len(tr) - period + 1
	if samples < minSamples {
		return 0, apperrors.NewInsufficientHistory("atr_percentile", period+minSamples, len(bars))
	}
	if samples > lookback {
		samples = lookback
	}
	atrs := make([]float64, samples)
	for i := 0; i < samples; i++ {
		atrs[i], _ = SMAAt(tr, period, samples-1-i)
	}
	current := atrs[len(atrs)-1]
	below := 0
	for _, a := range atrs {
		if a < current {
			below++
		}
	}
	return float64(below) / float64(len(atrs)-1), nil
}

// Bollinger computes the 20/2 bands with population standard deviation.
func Bollinger(closes []float64, period int, k float64) (model.BollingerValue, error) {
	if len(closes) < period {
		return model.BollingerValue{}, apperrors.NewInsufficientHistory(model.IndBollinger, period, len(closes))
	}
	mid, _ := SMA(closes, period)
	var ss float64
	for _, c := range closes[len(closes)-period:] {
		ss += (c - mid) * (c - mid)
	}
	sd := math.Sqrt(ss / float64(period))
	v := model.BollingerValue{Upper: mid + k*sd, Middle: mid, Lower: mid - k*sd}
	if mid > 0 {
		v.Width = (v.Upper - v.Lower) / mid
	}
	if v.Upper > v.Lower {
		v.PercentB = (closes[len(closes)-1] - v.Lower) / (v.Upper - v.Lower)
	} else {
		v.PercentB = 0.5
	}
	return v, nil
}

// Volatility returns the annualised standard deviation of daily log returns
// over the last period returns, in percent.
func Volatility(closes []float64, period int) (float64, error) {
	if len(closes) < period+1 {
		return 0, apperrors.NewInsufficientHistory(model.IndVolatile, period+1, len(closes))
	}
	tail := closes[len(closes)-period-1:]
	rets := make([]float64, period)
	var mean float64
	for i := 1; i < len(tail); i++ {
		rets[i-1] = math.Log(tail[i] / tail[i-1])
		mean += rets[i-1]
	}
	mean /= float64(period)
	var ss float64
	for _, r := range rets {
		ss += (r - mean) * (r - mean)
	}
	sd := math.Sqrt(ss / float64(period-1))
	return sd * math.Sqrt(252) * 100, nil
}

// MaxDrawdown returns the deepest peak-to-trough decline of the last period
// closes, in percent (zero or negative).
func MaxDrawdown(closes []float64, period int) (float64, error) {
	if len(closes) < period {
		return 0, apperrors.NewInsufficientHistory(model.IndDrawdown, period, len(closes))
	}
	peak := math.Inf(-1)
	worst := 0.0
	for _, c := range closes[len(closes)-period:] {
		peak = max(peak, c)
		if dd := (c/peak - 1) * 100; dd < worst {
			worst = dd
		}
	}
	return worst, nil
}

func sortedUnique(vals []float64, desc bool) []float64 {
	sort.Float64s(vals)
	out := vals[:0]
	for _, v := range vals {
		if len(out) > 0 && math.Abs(v-out[len(out)-1]) < 1e-9 {
			continue
		}
		out = append(out, v)
	}
	if desc {
		for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
			out[i], out[j] = out[j], out[i]
		}
	}
	return out
}
