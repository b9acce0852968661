package strategy

import (
	"fmt"

	"TrendSentinel/internal/model"
)

// Volume ratio bands.
const (
	volumeHeavyRatio  = 1.5
	volumeShrinkRatio = 0.7
)

// ClassifyTrend reads the MA5/MA10/MA20 alignment. Strength is 0..100.
// An aligned trend is strong once it is confirmed by trendConfirmed.
func ClassifyTrend(snap *model.IndicatorSnapshot) (model.TrendStatus, float64) {
	ma5, ok5 := snap.MAValue(5)
	ma10, ok10 := snap.MAValue(10)
	ma20, ok20 := snap.MAValue(20)
	if !ok5 || !ok10 || !ok20 || ma5 <= 0 || ma20 <= 0 {
		return model.TrendUnknown, 50
	}
	switch {
	case ma5 > ma10 && ma10 > ma20:
		if trendConfirmed(snap, true) {
			return model.TrendStrongUp, 90
		}
		return model.TrendUp, 75
	case ma5 > ma10 && ma10 <= ma20:
		return model.TrendWeakUp, 55
	case ma5 < ma10 && ma10 < ma20:
		if trendConfirmed(snap, false) {
			return model.TrendStrongDown, 10
		}
		return model.TrendDown, 25
	case ma5 < ma10 && ma10 >= ma20:
		return model.TrendWeakDown, 40
	default:
		return model.TrendFlat, 50
	}
}

// Spread between MA5 and MA20, in percent, above which an aligned trend is
// strong provided it is not narrowing.
const strongSpreadPct = 5

// trendConfirmed reports whether an aligned MA stack is a strong trend: either
// the MA5/MA20 spread exceeds strongSpreadPct and widened since the previous
// bar, or MA60 extends the alignment and every MA with a previous value moved
// in the trend's direction. The spread alone decides when no previous MAs
// are known.
func trendConfirmed(snap *model.IndicatorSnapshot, up bool) bool {
	spread := func(ma5, ma20 float64) float64 {
		if up {
			return (ma5 - ma20) / ma20 * 100
		}
		return (ma20 - ma5) / ma5 * 100
	}
	ma5, ma20 := snap.MA[5], snap.MA[20]
	curr := spread(ma5, ma20)
	prev5, okP5 := snap.PrevMA[5]
	prev20, okP20 := snap.PrevMA[20]
	if curr > strongSpreadPct {
		if !okP5 || !okP20 || prev5 <= 0 || prev20 <= 0 || curr > spread(prev5, prev20) {
			return true
		}
	}

	ma60, ok60 := snap.MAValue(60)
	if !ok60 || ma60 <= 0 || (up && ma20 <= ma60) || (!up && ma20 >= ma60) {
		return false
	}
	moving := 0
	for _, w := range []int{5, 10, 20, 60} {
		prev, ok := snap.PrevMA[w]
		if !ok || prev <= 0 {
			continue
		}
		now := snap.MA[w]
		if (up && now <= prev) || (!up && now >= prev) {
			return false
		}
		moving++
	}
	return moving >= 3
}

// ClassifyVolume combines the volume ratio with the day's direction.
func ClassifyVolume(snap *model.IndicatorSnapshot) model.VolumeStatus {
	if !snap.Has(model.IndVolume) || snap.VolumeRatio <= 0 {
		return model.VolumeUnknown
	}
	up := snap.ChangePct > 0
	switch {
	case snap.VolumeRatio >= volumeHeavyRatio && up:
		return model.VolumeHeavyUp
	case snap.VolumeRatio >= volumeHeavyRatio:
		return model.VolumeHeavyDown
	case snap.VolumeRatio <= volumeShrinkRatio && up:
		return model.VolumeShrinkUp
	case snap.VolumeRatio <= volumeShrinkRatio:
		return model.VolumeShrinkDown
	default:
		return model.VolumeNormal
	}
}

// ClassifyMACD checks crosses against the previous bar before positional states.
func ClassifyMACD(snap *model.IndicatorSnapshot) model.MACDStatus {
	if !snap.Has(model.IndMACD) {
		return model.MACDUnknown
	}
	m := snap.MACD
	golden := m.PrevDIF-m.PrevDEA <= 0 && m.DIF-m.DEA > 0
	death := m.PrevDIF-m.PrevDEA >= 0 && m.DIF-m.DEA < 0
	switch {
	case golden && m.DIF > 0:
		return model.MACDGoldenCrossAboveZero
	case m.PrevDIF <= 0 && m.DIF > 0:
		return model.MACDCrossingUp
	case golden:
		return model.MACDGoldenCross
	case death:
		return model.MACDDeathCross
	case m.PrevDIF >= 0 && m.DIF < 0:
		return model.MACDCrossingDown
	case m.DIF > 0 && m.DEA > 0:
		return model.MACDBullish
	case m.DIF < 0 && m.DEA < 0:
		return model.MACDBearish
	default:
		return model.MACDNeutral
	}
}

// ClassifyRSI uses RSI6/RSI12 crosses first, then the RSI12 level.
func ClassifyRSI(snap *model.IndicatorSnapshot) model.RSIStatus {
	if !snap.Has(model.IndRSI) {
		return model.RSIUnknown
	}
	r := snap.RSI
	golden := r.PrevRSI6 <= r.PrevRSI12 && r.RSI6 > r.RSI12
	death := r.PrevRSI6 >= r.PrevRSI12 && r.RSI6 < r.RSI12
	switch {
	case golden && r.RSI12 < 30:
		return model.RSIGoldenCrossOversold
	case golden:
		return model.RSIGoldenCross
	case death:
		return model.RSIDeathCross
	case r.RSI12 > 70:
		return model.RSIOverbought
	case r.RSI12 > 60:
		return model.RSIStrong
	case r.RSI12 >= 40:
		return model.RSINeutral
	case r.RSI12 >= 30:
		return model.RSIWeak
	default:
		return model.RSIOversold
	}
}

// ClassifyKDJ checks J extremes around the K/D crosses.
func ClassifyKDJ(snap *model.IndicatorSnapshot) model.KDJStatus {
	if !snap.Has(model.IndKDJ) {
		return model.KDJUnknown
	}
	k := snap.KDJ
	golden := k.PrevK <= k.PrevD && k.K > k.D
	death := k.PrevK >= k.PrevD && k.K < k.D
	switch {
	case golden && k.J < 20:
		return model.KDJGoldenCrossOversold
	case k.J > 100:
		return model.KDJOverbought
	case k.J < 0:
		return model.KDJOversold
	case golden:
		return model.KDJGoldenCross
	case death:
		return model.KDJDeathCross
	case k.K > k.D && k.J > 50:
		return model.KDJBullish
	case k.K < k.D && k.J < 50:
		return model.KDJBearish
	default:
		return model.KDJNeutral
	}
}

// BiasMA5 is the price deviation from MA5 in percent.
func BiasMA5(snap *model.IndicatorSnapshot) (float64, bool) {
	ma5, ok := snap.MAValue(5)
	if !ok || ma5 <= 0 || snap.Price <= 0 {
		return 0, false
	}
	return (snap.Price - ma5) / ma5 * 100, true
}

// ClassifySignals fills every status family from the snapshot.
func ClassifySignals(snap *model.IndicatorSnapshot) model.Signals {
	trend, strength := ClassifyTrend(snap)
	bias, _ := BiasMA5(snap)
	return model.Signals{
		Trend:         trend,
		TrendStrength: strength,
		Volume:        ClassifyVolume(snap),
		MACD:          ClassifyMACD(snap),
		RSI:           ClassifyRSI(snap),
		KDJ:           ClassifyKDJ(snap),
		BiasMA5:       bias,
	}
}

func isBullTrend(s model.TrendStatus) bool {
	return s == model.TrendUp || s == model.TrendStrongUp
}

func isBearTrend(s model.TrendStatus) bool {
	return s == model.TrendDown || s == model.TrendStrongDown
}

func unknownStatus(family string, v interface{}) string {
	return fmt.Sprintf("strategy: unknown %s status %q", family, v)
}
