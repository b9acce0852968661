package strategy

import (
	"fmt"

	"TrendSentinel/internal/model"
)

// FlowThresholds bound the fund-flow bonuses. Index flows are in 100M CNY,
// stock main-force flows in 10K CNY.
type FlowThresholds struct {
	IndexSmall float64
	IndexLarge float64
	MainSmall  float64
	MainLarge  float64
}

// DefaultFlowThresholds are the absolute defaults.
var DefaultFlowThresholds = FlowThresholds{IndexSmall: 10, IndexLarge: 50, MainSmall: 5000, MainLarge: 15000}

// FundFlowStrategy scores one day of capital flows.
type FundFlowStrategy interface {
	Name() string
	Score(f model.FundFlow) []model.Adjustment
}

// AbsoluteFundFlow applies fixed thresholds to both flows.
type AbsoluteFundFlow struct {
	Thresholds FlowThresholds
}

func (s AbsoluteFundFlow) Name() string { return "absolute" }

func (s AbsoluteFundFlow) Score(f model.FundFlow) []model.Adjustment {
	return scoreFlows(f, s.Thresholds, s.Thresholds.MainSmall, s.Thresholds.MainLarge)
}

// RelativeFundFlow scales the stock thresholds to a share of the stock's
// average daily turnover so small caps and large caps are judged alike.
type RelativeFundFlow struct {
	Thresholds FlowThresholds
	SmallPct   float64 // of average daily amount
	LargePct   float64
}

func (s RelativeFundFlow) Name() string { return "relative" }

func (s RelativeFundFlow) Score(f model.FundFlow) []model.Adjustment {
	small, large := s.Thresholds.MainSmall, s.Thresholds.MainLarge
	if f.AvgDailyAmount > 0 {
		sp, lp := s.SmallPct, s.LargePct
		if sp <= 0 {
			sp = 0.05
		}
		if lp <= 0 {
			lp = 0.15
		}
		small, large = f.AvgDailyAmount*sp, f.AvgDailyAmount*lp
	}
	return scoreFlows(f, s.Thresholds, small, large)
}

func scoreFlows(f model.FundFlow, t FlowThresholds, mainSmall, mainLarge float64) []model.Adjustment {
	var out []model.Adjustment
	if f.HasIndexInflow {
		v := f.IndexNetInflow
		var p float64
		switch {
		case v > t.IndexLarge:
			p = 3
		case v > t.IndexSmall:
			p = 1
		case v < -t.IndexLarge:
			p = -3
		case v < -t.IndexSmall:
			p = -1
		}
		if p != 0 {
			out = append(out, model.Adjustment{Name: "index_flow", Points: p, Reason: fmt.Sprintf("北向净流入%.1f亿", v)})
		}
	}
	if f.HasMainInflow {
		v := f.MainNetInflow
		var p float64
		switch {
		case v > mainLarge:
			p = 3
		case v > mainSmall:
			p = 2
		case v < -mainLarge:
			p = -3
		case v < -mainSmall:
			p = -2
		}
		if p != 0 {
			out = append(out, model.Adjustment{Name: "main_flow", Points: p, Reason: fmt.Sprintf("主力净流入%.2f亿", v/1e4)})
		}
	}
	return out
}

// NewFundFlowStrategy resolves a configured strategy name.
func NewFundFlowStrategy(name string, t FlowThresholds) (FundFlowStrategy, error) {
	switch name {
	case "", "absolute":
		return AbsoluteFundFlow{Thresholds: t}, nil
	case "relative":
		return RelativeFundFlow{Thresholds: t, SmallPct: 0.05, LargePct: 0.15}, nil
	default:
		return nil, fmt.Errorf("unknown fund flow strategy %q", name)
	}
}

// ApplyFundFlow is stage 3.
func ApplyFundFlow(c *Context, s FundFlowStrategy) {
	f := c.Input.Fundamentals.FundFlow
	if f == nil {
		c.flag("fund_flow", "no fund flow data")
		return
	}
	c.Result.Adjustments = append(c.Result.Adjustments, s.Score(*f)...)
}

// ApplyContinuity scores the last three sessions' candle colour against
// their volume trend. A provisional bar's volume is projected to a full day.
func ApplyContinuity(c *Context) {
	bars := c.bars()
	if len(bars) < 5 {
		return
	}
	recent := bars[len(bars)-3:]
	var up, down int
	vols := make([]float64, 3)
	for i, b := range recent {
		switch {
		case b.Close > b.Open:
			up++
		case b.Close < b.Open:
			down++
		}
		vols[i] = b.Volume
		if b.Provisional && b.SessionProgress > 0 {
			vols[i] = b.Volume / b.SessionProgress
		}
	}
	positive := vols[0] > 0 && vols[1] > 0 && vols[2] > 0
	rising := positive && vols[2] > vols[1] && vols[1] > vols[0]
	falling := positive && vols[2] < vols[1] && vols[1] < vols[0]
	switch {
	case up == 3 && rising:
		c.addAdjustment("continuity", 2, "连续三日放量上涨")
	case down == 3 && rising:
		c.addAdjustment("continuity", -3, "连续三日放量下跌")
	case down == 3 && falling:
		c.addAdjustment("continuity", -2, "连续三日缩量阴跌")
	}
}

// ApplyRangePosition nudges the score by where price sits in its 52-week range.
func ApplyRangePosition(c *Context) {
	snap := c.snap()
	if !snap.Has(model.IndRange52w) || snap.High52w <= snap.Low52w {
		return
	}
	pos := (snap.Price - snap.Low52w) / (snap.High52w - snap.Low52w) * 100
	switch {
	case pos > 95:
		c.addAdjustment("range_52w", -2, "52周位置%.0f%%，接近年内高点", pos)
	case pos > 80:
		c.addAdjustment("range_52w", -1, "52周位置%.0f%%，偏高", pos)
	case pos < 5:
		c.addAdjustment("range_52w", 2, "52周位置%.0f%%，接近年内低点", pos)
	case pos < 20:
		c.addAdjustment("range_52w", 1, "52周位置%.0f%%，偏低", pos)
	}
}
