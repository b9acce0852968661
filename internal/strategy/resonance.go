package strategy

import (
	"strings"

	"TrendSentinel/internal/model"
)

// Minimum number of agreeing statuses that counts as resonance.
const resonanceMin = 3

// ApplyResonance rewards statuses that agree on direction. Three or more
// bullish reads add 2 points each, three or more bearish reads subtract 2
// each, capped at 10 either way.
func ApplyResonance(c *Context) {
	sig := c.Signals
	var bull, bear []string
	side := func(isBull, isBear bool, bullLabel, bearLabel string) {
		switch {
		case isBull:
			bull = append(bull, bullLabel)
		case isBear:
			bear = append(bear, bearLabel)
		}
	}
	side(isBullTrend(sig.Trend), isBearTrend(sig.Trend), "趋势多头", "趋势空头")
	side(sig.MACD == model.MACDGoldenCrossAboveZero || sig.MACD == model.MACDGoldenCross || sig.MACD == model.MACDBullish,
		sig.MACD == model.MACDDeathCross || sig.MACD == model.MACDBearish, "MACD多头", "MACD空头")
	side(sig.KDJ == model.KDJGoldenCrossOversold || sig.KDJ == model.KDJGoldenCross || sig.KDJ == model.KDJBullish,
		sig.KDJ == model.KDJDeathCross || sig.KDJ == model.KDJBearish, "KDJ多头", "KDJ空头")
	side(sig.RSI == model.RSIGoldenCrossOversold || sig.RSI == model.RSIGoldenCross || sig.RSI == model.RSIStrong,
		sig.RSI == model.RSIDeathCross || sig.RSI == model.RSIWeak, "RSI强势", "RSI弱势")
	side(sig.Volume == model.VolumeHeavyUp || sig.Volume == model.VolumeShrinkDown,
		sig.Volume == model.VolumeHeavyDown, "量价配合", "放量下跌")

	switch {
	case len(bull) >= resonanceMin:
		c.Result.Resonance = bull
		c.addAdjustment("resonance", min(10, 2*float64(len(bull))), "多指标共振: %s", strings.Join(bull, "+"))
	case len(bear) >= resonanceMin:
		c.Result.Resonance = bear
		c.addAdjustment("resonance", -min(10, 2*float64(len(bear))), "多指标共振: %s", strings.Join(bear, "+"))
	}
}

// Adjustments that come from the price series itself. Everything else is a
// valuation or fund-flow factor.
var technicalAdjustments = map[string]bool{
	"continuity": true,
	"range_52w":  true,
	"limit_move": true,
	"resonance":  true,
	"adj_cap":    true,
}

// DetectConflict warns when the technical base and the valuation and flow
// factors point hard in opposite directions. It never moves the score.
func DetectConflict(c *Context) {
	r := &c.Result
	var factors float64
	for _, a := range r.Adjustments {
		if !technicalAdjustments[a.Name] {
			factors += a.Points
		}
	}
	switch {
	case r.BaseScore >= 70 && factors <= -10:
		r.Warnings = append(r.Warnings, "技术面强势但估值/资金因子转弱")
	case r.BaseScore <= 40 && factors >= 10:
		r.Warnings = append(r.Warnings, "技术面偏弱但估值/资金因子支撑")
	}
}
