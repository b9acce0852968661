package strategy

import (
	"fmt"

	"TrendSentinel/internal/model"
)

// ValuationStrategy turns valuation multiples into a non-positive score
// correction and a verdict.
type ValuationStrategy interface {
	Name() string
	Assess(v model.Valuation) (points float64, verdict string)
}

// AbsoluteValuation judges PE against fixed bands.
type AbsoluteValuation struct{}

func (AbsoluteValuation) Name() string { return "absolute" }

func (AbsoluteValuation) Assess(v model.Valuation) (float64, string) {
	if v.PE <= 0 {
		return 0, "亏损或PE不可用"
	}
	var points float64
	var verdict string
	switch {
	case v.PE > 100:
		points, verdict = -15, "严重高估"
	case v.PE > 60:
		points, verdict = -10, "偏高"
	case v.PE > 30:
		points, verdict = -3, "略高"
	case v.PE > 15:
		verdict = "合理"
	case v.PE > 8:
		verdict = "偏低"
	default:
		verdict = "低估"
	}
	verdict = fmt.Sprintf("%s(PE%.0f)", verdict, v.PE)
	return applyPEG(points, verdict, v.PEG)
}

// RelativeValuation judges PE as a multiple of the industry median and falls
// back to the absolute bands when the median is unknown.
type RelativeValuation struct{}

func (RelativeValuation) Name() string { return "relative" }

func (RelativeValuation) Assess(v model.Valuation) (float64, string) {
	if v.PE <= 0 || v.IndustryPEMedian <= 0 {
		return AbsoluteValuation{}.Assess(v)
	}
	ratio := v.PE / v.IndustryPEMedian
	var points float64
	var verdict string
	switch {
	case ratio > 3:
		points, verdict = -15, "严重高估"
	case ratio > 2:
		points, verdict = -10, "偏高"
	case ratio > 1.3:
		points, verdict = -3, "略高"
	case ratio >= 0.7:
		verdict = "合理"
	case ratio >= 0.4:
		verdict = "偏低"
	default:
		verdict = "低估"
	}
	verdict = fmt.Sprintf("%s(PE%.0f,行业中位%.0f,%.1fx)", verdict, v.PE, v.IndustryPEMedian, ratio)
	return applyPEG(points, verdict, v.PEG)
}

// applyPEG softens a PE penalty for fast growers but never turns it into a
// bonus; an expensive PEG deepens it.
func applyPEG(points float64, verdict string, peg float64) (float64, string) {
	if peg <= 0 {
		return points, verdict
	}
	switch {
	case peg < 0.5:
		points = min(0, points+5)
		verdict += "(PEG极低)"
	case peg < 1:
		points = min(0, points+3)
		verdict += "(PEG合理)"
	case peg > 3:
		points -= 3
		verdict += "(PEG过高)"
	}
	return points, verdict
}

// NewValuationStrategy resolves a configured strategy name.
func NewValuationStrategy(name string) (ValuationStrategy, error) {
	switch name {
	case "", "absolute":
		return AbsoluteValuation{}, nil
	case "relative":
		return RelativeValuation{}, nil
	default:
		return nil, fmt.Errorf("unknown valuation strategy %q", name)
	}
}

// ApplyValuation is stage 2.
func ApplyValuation(c *Context, s ValuationStrategy) {
	v := c.Input.Fundamentals.Valuation
	if v == nil {
		c.flag("valuation", "no valuation data")
		return
	}
	points, verdict := s.Assess(*v)
	c.Result.Valuation = verdict
	c.addAdjustment("valuation", points, "%s估值: %s", s.Name(), verdict)
}
