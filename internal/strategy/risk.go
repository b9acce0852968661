package strategy

import (
	"math"

	"TrendSentinel/internal/model"
)

// atrMultipliers picks the short and medium stop multiples from where the
// current ATR sits in its recent distribution.
func atrMultipliers(percentile float64) (short, medium float64) {
	switch {
	case percentile > 0.8:
		return 1.5, 2.0
	case percentile < 0.2:
		return 0.8, 1.2
	default:
		return 1.0, 1.5
	}
}

func riskInputsOK(c *Context) bool {
	snap := c.snap()
	if snap.Price <= 0 || !snap.Has(model.IndATR) || snap.ATR <= 0 {
		c.flag("risk", "ATR unavailable")
		return false
	}
	return true
}

// StopLoss is stage 6. Every tier ends strictly below price.
func StopLoss(c *Context) {
	if !riskInputsOK(c) {
		return
	}
	snap := c.snap()
	p, atr := snap.Price, snap.ATR
	ms, mm := atrMultipliers(snap.ATRPercentile)

	high20 := snap.High20d
	if high20 <= 0 {
		high20 = p
	}
	medium := high20 - mm*atr
	if ma20, ok := snap.MAValue(20); ok && ma20 > 0 {
		medium = math.Min(medium, ma20*0.98)
	}
	floor := p - math.Max(ms*atr, p*0.01)
	below := func(v float64) float64 {
		if v >= p {
			v = floor
		}
		return math.Max(v, 0)
	}

	ladder := model.StopLossLadder{
		Intraday: below(p - 0.7*ms*atr),
		Short:    below(p - ms*atr),
		Medium:   below(medium),
		Horizon:  c.Input.Horizon,
	}
	switch c.Input.Horizon {
	case model.HorizonIntraday:
		ladder.Binding = math.Max(ladder.Intraday, math.Max(ladder.Short, ladder.Medium))
	case model.HorizonShort:
		ladder.Binding = math.Max(ladder.Short, ladder.Medium)
	case model.HorizonMedium:
		ladder.Binding = ladder.Medium
	default:
		panic(unknownStatus("horizon", c.Input.Horizon))
	}
	c.Result.StopLoss = ladder
}

// TakeProfit is stage 7: three equal tranches. The trailing level only ratchets up.
func TakeProfit(c *Context) {
	if !riskInputsOK(c) {
		return
	}
	snap := c.snap()
	p, atr := snap.Price, snap.ATR
	trend := c.Signals.Trend

	k1, k2 := 1.5, 2.5
	switch {
	case isBullTrend(trend):
		k1, k2 = 2.0, 3.5
	case trend == model.TrendFlat:
		k1, k2 = 1.2, 2.0
	}
	short := p + k1*atr
	medium := p + k2*atr
	for _, r := range snap.Resistances {
		if r > p {
			medium = r
			break
		}
	}

	high20 := snap.High20d
	if high20 <= 0 {
		high20 = p
	}
	k3 := 1.2
	if c.Signals.TrendStrength >= 75 {
		k3 = 1.5
	}
	trailing := math.Max(high20-k3*atr, c.Input.PrevTrailing)

	third := 1.0 / 3
	c.Result.TakeProfit = model.TakeProfitPlan{Tranches: [3]model.Tranche{
		{Label: "短线目标", Price: short, Fraction: third},
		{Label: "中线目标", Price: medium, Fraction: third},
		{Label: "移动止盈", Price: trailing, Fraction: third, Trailing: true},
	}}
}

// RiskReward is (short target - price) / (price - short stop).
func RiskReward(price, target, stop float64) float64 {
	risk := price - stop
	if risk <= 0 || target <= price {
		return 0
	}
	return (target - price) / risk
}

func riskVerdict(rr float64) string {
	switch {
	case rr >= 2:
		return "值得"
	case rr >= 1.5:
		return "中性"
	default:
		return "不值得"
	}
}

// basePosition sizes by band: 50% for STRONG_BUY, 40% for BUY, and the
// HOLD band split in thirds for 30/20/10%. Anything below HOLD gets nothing.
func basePosition(score float64, b Bands) float64 {
	third := (b.Buy - b.Hold) / 3
	switch {
	case score >= b.StrongBuy:
		return 50
	case score >= b.Buy:
		return 40
	case score >= b.Hold+2*third:
		return 30
	case score >= b.Hold+third:
		return 20
	case score >= b.Hold:
		return 10
	default:
		return 0
	}
}

func regimeMultiplier(r model.MarketRegime) float64 {
	switch r {
	case model.RegimeBull:
		return 1.2
	case model.RegimeRange:
		return 1.0
	case model.RegimeBear:
		return 0.6
	default:
		panic(unknownStatus("regime", r))
	}
}

// Position is stage 8: score band times risk/reward, trend, regime and
// volatility multipliers, capped at 80%.
func Position(c *Context, bands Bands) {
	r := &c.Result
	snap := c.snap()
	if r.TakeProfit.Tranches[0].Price > 0 && r.StopLoss.Short > 0 {
		r.RiskReward = RiskReward(r.Price, r.TakeProfit.Tranches[0].Price, r.StopLoss.Short)
		r.RiskVerdict = riskVerdict(r.RiskReward)
	}

	advice := model.PositionAdvice{Base: basePosition(r.Score, bands)}
	var mults []float64
	if r.RiskVerdict != "" {
		switch {
		case r.RiskReward >= 3:
			mults = append(mults, 1.3)
		case r.RiskReward >= 2:
			mults = append(mults, 1.1)
		case r.RiskReward < 1:
			mults = append(mults, 0.7)
		}
	}
	switch {
	case c.Signals.TrendStrength >= 80:
		mults = append(mults, 1.2)
	case c.Signals.TrendStrength < 50:
		mults = append(mults, 0.8)
	}
	mults = append(mults, regimeMultiplier(r.Regime))
	if snap.Has(model.IndVolatile) {
		switch {
		case snap.Volatility20d > 60:
			mults = append(mults, 0.7)
		case snap.Volatility20d < 25:
			mults = append(mults, 1.1)
		}
	}

	pos := advice.Base
	for _, m := range mults {
		pos *= m
	}
	advice.Multipliers = mults
	advice.Position = math.Round(math.Min(80, pos))
	advice.Suggested = math.Round(math.Min(30, advice.Position/2))
	r.Position = advice
}
