package strategy

import (
	"fmt"

	"TrendSentinel/internal/model"
)

// Bands are the lower score bounds of each recommendation.
type Bands struct {
	StrongBuy float64
	Buy       float64
	Hold      float64
	Sell      float64
}

// DefaultBands map 85/65/45/30.
var DefaultBands = Bands{StrongBuy: 85, Buy: 65, Hold: 45, Sell: 30}

// Recommend maps a composite score onto its band.
func (b Bands) Recommend(score float64) model.Recommendation {
	switch {
	case score >= b.StrongBuy:
		return model.RecStrongBuy
	case score >= b.Buy:
		return model.RecBuy
	case score >= b.Hold:
		return model.RecHold
	case score >= b.Sell:
		return model.RecSell
	default:
		return model.RecStrongSell
	}
}

// Validate requires strictly descending bounds within 0..100.
func (b Bands) Validate() error {
	if !(b.StrongBuy <= 100 && b.StrongBuy > b.Buy && b.Buy > b.Hold && b.Hold > b.Sell && b.Sell >= 0) {
		return fmt.Errorf("score bands must descend within 0..100: %+v", b)
	}
	return nil
}

// CheckHalt is stage 4. It marks runs whose data say the symbol should not be
// traded at all; the composite stage then forces a defensive verdict.
func CheckHalt(c *Context) {
	snap := c.snap()
	var reasons []string
	if snap.Has(model.IndVolatile) && snap.Volatility20d > 100 {
		reasons = append(reasons, fmt.Sprintf("波动率异常(%.0f%%>100%%)", snap.Volatility20d))
	}
	if snap.Has(model.IndDrawdown) && snap.MaxDrawdown60d < -40 {
		reasons = append(reasons, fmt.Sprintf("近60日回撤%.1f%%", snap.MaxDrawdown60d))
	}
	if snap.Has(model.IndVolume) && snap.Has(model.IndBollinger) &&
		snap.VolumeRatio < 0.3 && snap.Bollinger.PercentB < 0 {
		reasons = append(reasons, "极端缩量且跌破布林下轨")
	}
	if snap.Has(model.IndATR) && snap.ATR <= 0 {
		reasons = append(reasons, "ATR为零，可能停牌或数据异常")
	}
	if len(reasons) > 0 {
		c.Result.Halted = true
		c.Result.HaltReasons = reasons
	}
}

// Totals beyond which adjustments stop counting.
const (
	maxBonus   = 15
	maxPenalty = -20
)

// CapAdjustments bounds the summed bonuses at maxBonus and the summed
// penalties at maxPenalty by appending an offsetting adj_cap entry.
func CapAdjustments(c *Context) {
	var pos, neg float64
	for _, a := range c.Result.Adjustments {
		if a.Points > 0 {
			pos += a.Points
		} else {
			neg += a.Points
		}
	}
	if pos > maxBonus {
		c.addAdjustment("adj_cap", maxBonus-pos, "加分合计%.0f，封顶%d", pos, maxBonus)
	}
	if neg < maxPenalty {
		c.addAdjustment("adj_cap", maxPenalty-neg, "扣分合计%.0f，封底%d", neg, maxPenalty)
	}
}

// Composite is stage 5: base plus adjustments, clamped, then banded. A
// halted run is capped below the HOLD band and reads SELL unless its score
// already reads STRONG_SELL.
func Composite(c *Context, bands Bands) {
	r := &c.Result
	r.Score = clamp(r.BaseScore+r.AdjustmentTotal(), 0, 100)
	r.Recommendation = bands.Recommend(r.Score)
	if r.Halted {
		r.Score = min(r.Score, max(0, bands.Hold-1))
		if r.Recommendation != model.RecStrongSell {
			r.Recommendation = model.RecSell
		}
		r.Position = model.PositionAdvice{}
	}
}
