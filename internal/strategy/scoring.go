package strategy

import (
	"fmt"
	"math"

	"TrendSentinel/internal/model"
	"TrendSentinel/internal/regime"
)

// Raw point scale of each dimension before weighting.
var rawMax = map[model.Dimension]float64{
	model.DimTrend:   30,
	model.DimBias:    20,
	model.DimVolume:  15,
	model.DimSupport: 10,
	model.DimMACD:    15,
	model.DimRSI:     10,
	model.DimKDJ:     13,
}

func trendPoints(s model.TrendStatus) float64 {
	switch s {
	case model.TrendStrongUp:
		return 30
	case model.TrendUp:
		return 26
	case model.TrendWeakUp:
		return 18
	case model.TrendFlat:
		return 12
	case model.TrendWeakDown:
		return 8
	case model.TrendDown:
		return 4
	case model.TrendStrongDown, model.TrendUnknown:
		return 0
	default:
		panic(unknownStatus("trend", s))
	}
}

func volumePoints(s model.VolumeStatus) float64 {
	switch s {
	case model.VolumeShrinkDown:
		return 15
	case model.VolumeHeavyUp:
		return 12
	case model.VolumeNormal:
		return 10
	case model.VolumeShrinkUp:
		return 6
	case model.VolumeHeavyDown, model.VolumeUnknown:
		return 0
	default:
		panic(unknownStatus("volume", s))
	}
}

func macdPoints(s model.MACDStatus) float64 {
	switch s {
	case model.MACDGoldenCrossAboveZero:
		return 15
	case model.MACDGoldenCross:
		return 12
	case model.MACDCrossingUp:
		return 10
	case model.MACDBullish:
		return 8
	case model.MACDNeutral:
		return 5
	case model.MACDBearish:
		return 2
	case model.MACDCrossingDown, model.MACDDeathCross, model.MACDUnknown:
		return 0
	default:
		panic(unknownStatus("macd", s))
	}
}

func rsiPoints(s model.RSIStatus) float64 {
	switch s {
	case model.RSIGoldenCrossOversold:
		return 10
	case model.RSIOversold:
		return 9
	case model.RSIGoldenCross:
		return 8
	case model.RSIStrong:
		return 7
	case model.RSINeutral:
		return 5
	case model.RSIWeak:
		return 3
	case model.RSIDeathCross:
		return 2
	case model.RSIOverbought, model.RSIUnknown:
		return 0
	default:
		panic(unknownStatus("rsi", s))
	}
}

func kdjPoints(s model.KDJStatus) float64 {
	switch s {
	case model.KDJGoldenCrossOversold:
		return 13
	case model.KDJOversold:
		return 11
	case model.KDJGoldenCross:
		return 10
	case model.KDJBullish:
		return 7
	case model.KDJNeutral:
		return 5
	case model.KDJBearish:
		return 3
	case model.KDJDeathCross:
		return 1
	case model.KDJOverbought, model.KDJUnknown:
		return 0
	default:
		panic(unknownStatus("kdj", s))
	}
}

// biasPoints scores the MA5 deviation, normalised by half the Bollinger width
// when the bands are usable.
func biasPoints(bias float64, snap *model.IndicatorSnapshot, trend model.TrendStatus) float64 {
	bull, bear := isBullTrend(trend), isBearTrend(trend)
	if snap.Has(model.IndBollinger) && snap.Bollinger.Width > 0.01 {
		norm := bias / (snap.Bollinger.Width * 50)
		switch {
		case norm > 1.5:
			return 0
		case norm > 1.0:
			return 5
		case norm >= 0 && norm <= 0.5 && bull:
			return 18
		case norm >= -0.5 && norm < 0:
			return 20
		case norm >= -1.0 && norm < -0.5:
			return 16
		case norm >= -1.5 && norm < -1.0:
			return pick(bear, 5, 12)
		case norm < -1.5:
			return pick(bear, 2, 8)
		}
		return 10
	}
	switch {
	case bias > 8:
		return 0
	case bias > 5:
		return 5
	case bias >= 0 && bias <= 3 && bull:
		return 18
	case bias >= -3 && bias < 0:
		return 20
	case bias >= -5 && bias < -3:
		return 16
	case bias >= -10 && bias < -5:
		return pick(bear, 5, 12)
	case bias < -10:
		return pick(bear, 2, 8)
	}
	return 10
}

// supportPoints rewards a price sitting just above its nearest support.
// Uncomputed levels score nothing, like any other unknown status.
func supportPoints(snap *model.IndicatorSnapshot) (float64, float64) {
	if !snap.Has(model.IndLevels) || snap.Price <= 0 {
		return 0, 0
	}
	if len(snap.Supports) == 0 {
		return 5, 0
	}
	nearest := snap.Supports[0]
	if nearest <= 0 || nearest >= snap.Price {
		return 5, 0
	}
	dist := (snap.Price - nearest) / snap.Price * 100
	switch {
	case dist <= 2:
		return 10, dist
	case dist <= 5:
		return 7, dist
	default:
		return 5, dist
	}
}

func pick(cond bool, a, b float64) float64 {
	if cond {
		return a
	}
	return b
}

// ScoreSignals is stage 1: classify statuses and weight each dimension.
// A declared intraday or short horizon replaces the regime profile.
func ScoreSignals(c *Context) {
	snap := c.snap()
	c.Signals = ClassifySignals(snap)
	c.Result.Signals = c.Signals
	c.Profile = regime.ProfileFor(c.Input.Horizon, c.Result.Regime)

	sig := c.Signals
	biasOK := snap.Has(model.IndMA) && snap.Price > 0
	supportRaw, supportDist := supportPoints(snap)

	raws := map[model.Dimension]float64{
		model.DimTrend:   trendPoints(sig.Trend),
		model.DimVolume:  volumePoints(sig.Volume),
		model.DimSupport: supportRaw,
		model.DimMACD:    macdPoints(sig.MACD),
		model.DimRSI:     rsiPoints(sig.RSI),
		model.DimKDJ:     kdjPoints(sig.KDJ),
	}
	if biasOK {
		raws[model.DimBias] = biasPoints(sig.BiasMA5, snap, sig.Trend)
	}
	notes := map[model.Dimension]string{
		model.DimTrend:   fmt.Sprintf("%s 强度%.0f", sig.Trend, sig.TrendStrength),
		model.DimBias:    fmt.Sprintf("MA5乖离 %+.2f%%", sig.BiasMA5),
		model.DimVolume:  fmt.Sprintf("%s 量比%.2f", sig.Volume, snap.VolumeRatio),
		model.DimSupport: fmt.Sprintf("距支撑 %.2f%%", supportDist),
		model.DimMACD:    fmt.Sprintf("%s DIF=%.3f DEA=%.3f", sig.MACD, snap.MACD.DIF, snap.MACD.DEA),
		model.DimRSI:     fmt.Sprintf("%s RSI6=%.1f RSI12=%.1f", sig.RSI, snap.RSI.RSI6, snap.RSI.RSI12),
		model.DimKDJ:     fmt.Sprintf("%s K=%.1f D=%.1f J=%.1f", sig.KDJ, snap.KDJ.K, snap.KDJ.D, snap.KDJ.J),
	}
	if !biasOK {
		notes[model.DimBias] = "MA5不可用"
	}
	switch {
	case !snap.Has(model.IndLevels):
		notes[model.DimSupport] = "支撑位不可用"
	case len(snap.Supports) == 0:
		notes[model.DimSupport] = "无有效支撑"
	}

	var base float64
	for _, d := range model.Dimensions {
		w := c.Profile[d]
		raw := raws[d] / rawMax[d]
		weighted := math.Min(w, math.Round(raw*w))
		base += weighted
		c.Result.Dimensions = append(c.Result.Dimensions, model.DimensionScore{
			Dimension:  d,
			Raw:        raw,
			Weight:     w,
			Weighted:   weighted,
			Commentary: notes[d],
		})
	}
	c.Result.BaseScore = clamp(base, 0, 100)
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
