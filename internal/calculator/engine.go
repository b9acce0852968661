// Package calculator derives the indicator snapshot from a daily-bar series.
// Every function is pure and reads only the bars it is given.
package calculator

import (
	"fmt"

	"TrendSentinel/internal/model"
)

// DefaultMAWindows are used when Compute is called without windows.
var DefaultMAWindows = []int{5, 10, 20, 60}

// requiredMAWindows feed trend, bias and stop-loss logic and are always computed.
var requiredMAWindows = []int{5, 10, 20}

// Compute derives every indicator as of the series tail. An indicator whose
// history is too short is left zero and recorded in Missing; Compute itself
// never fails.
func Compute(series *model.SymbolSeries, maWindows []int) *model.IndicatorSnapshot {
	snap := &model.IndicatorSnapshot{
		MA:      map[int]float64{},
		PrevMA:  map[int]float64{},
		Missing: map[string]string{},
	}
	if series == nil || len(series.Bars) == 0 {
		snap.Missing["series"] = "no bars"
		for _, name := range []string{model.IndMA, model.IndRSI, model.IndMACD, model.IndKDJ, model.IndATR,
			model.IndVolume, model.IndBollinger, model.IndVolatile, model.IndDrawdown, model.IndLevels, model.IndRange52w} {
			snap.Missing[name] = "no bars"
		}
		return snap
	}
	bars := series.Bars
	closes := Closes(bars)
	n := len(bars) - 1
	snap.Price = closes[n]
	if n > 0 && closes[n-1] > 0 {
		snap.ChangePct = (closes[n] - closes[n-1]) / closes[n-1] * 100
	}

	if len(maWindows) == 0 {
		maWindows = DefaultMAWindows
	}
	windows := mergeWindows(requiredMAWindows, maWindows)
	for _, w := range windows {
		ma, err := SMA(closes, w)
		if err != nil {
			snap.Missing[fmt.Sprintf("%s%d", model.IndMA, w)] = err.Error()
			continue
		}
		snap.MA[w] = ma
		if prev, err := SMAAt(closes, w, 1); err == nil {
			snap.PrevMA[w] = prev
		}
	}
	for _, w := range requiredMAWindows {
		if _, ok := snap.MA[w]; !ok {
			snap.Missing[model.IndMA] = fmt.Sprintf("MA%d unavailable", w)
			break
		}
	}

	record := func(name string, err error) bool {
		if err != nil {
			snap.Missing[name] = err.Error()
			return false
		}
		return true
	}

	if v, err := RSISet(closes); record(model.IndRSI, err) {
		snap.RSI = v
	}
	if v, err := MACD(closes); record(model.IndMACD, err) {
		snap.MACD = v
	}
	if v, err := KDJ(bars); record(model.IndKDJ, err) {
		snap.KDJ = v
	}
	if v, err := ATR(bars, ATRPeriod); record(model.IndATR, err) {
		snap.ATR = v
		if p, err := ATRPercentile(bars, ATRPeriod, 60); err == nil {
			snap.ATRPercentile = p
		} else {
			snap.ATRPercentile = 0.5
		}
	}
	if v, err := VolumeRatio(bars); record(model.IndVolume, err) {
		snap.VolumeRatio = v
	}
	if v, err := Bollinger(closes, 20, 2); record(model.IndBollinger, err) {
		snap.Bollinger = v
	}
	if v, err := Volatility(closes, Days20); record(model.IndVolatile, err) {
		snap.Volatility20d = v
	}
	if v, err := MaxDrawdown(closes, 60); record(model.IndDrawdown, err) {
		snap.MaxDrawdown60d = v
	}
	if h, _, err := HighLow(bars, Days20, Days20); err == nil {
		snap.High20d = h
	} else {
		snap.High20d, _, _ = HighLow(bars, Days20, 1)
	}
	if h, l, err := HighLow(bars, Days52w, Days52w); record(model.IndRange52w, err) {
		snap.High52w, snap.Low52w = h, l
	}
	if s, r, err := Levels(bars, snap.Price, snap.MA); record(model.IndLevels, err) {
		snap.Supports, snap.Resistances = s, r
	}
	return snap
}

func mergeWindows(a, b []int) []int {
	seen := map[int]bool{}
	var out []int
	for _, w := range append(append([]int{}, a...), b...) {
		if w > 0 && !seen[w] {
			seen[w] = true
			out = append(out, w)
		}
	}
	return out
}
