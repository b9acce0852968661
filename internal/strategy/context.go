package strategy

import (
	"fmt"

	"TrendSentinel/internal/model"
	"TrendSentinel/internal/regime"
)

// Input is everything one analysis run consumes. Series must already carry
// the provisional bar when a live quote was spliced.
type Input struct {
	Series       *model.SymbolSeries
	Snapshot     *model.IndicatorSnapshot
	Regime       regime.Classification
	Fundamentals model.Fundamentals
	Horizon      model.Horizon
	// PrevTrailing is the last trailing stop issued for this symbol, 0 if none.
	PrevTrailing float64
	// Missing carries data gaps found upstream (quote, valuation, fund flow).
	Missing map[string]string
}

// Context is the scoring state shared by the stages of one run. Stages only
// add to it: dimensions and adjustments are appended, never rewritten.
type Context struct {
	Input   Input
	Signals model.Signals
	Profile model.WeightProfile
	Result  model.TrendAnalysisResult
}

// NewContext seeds the result with the run's identity and copies the
// missing-data flags of the snapshot and the collector.
func NewContext(in Input) *Context {
	if in.Horizon == "" {
		in.Horizon = model.HorizonMedium
	}
	if in.Snapshot == nil {
		in.Snapshot = emptySnapshot()
	}
	c := &Context{Input: in}
	r := &c.Result
	r.Regime = in.Regime.Regime
	if r.Regime == "" {
		r.Regime = model.RegimeRange
	}
	r.Horizon = in.Horizon
	r.Missing = make(map[string]string)
	if s := in.Series; s != nil {
		r.Symbol = s.Symbol
		r.Name = s.Name
		if last, ok := s.Last(); ok {
			r.AsOf = last.Date
			r.Provisional = last.Provisional
		}
	}
	r.Price = in.Snapshot.Price
	r.ChangePct = in.Snapshot.ChangePct
	for k, v := range in.Snapshot.Missing {
		r.Missing[k] = v
	}
	for k, v := range in.Missing {
		r.Missing[k] = v
	}
	return c
}

// snap never returns nil so stages can read zero values safely, including
// on a Context built without NewContext.
func (c *Context) snap() *model.IndicatorSnapshot {
	if c.Input.Snapshot == nil {
		c.Input.Snapshot = emptySnapshot()
	}
	return c.Input.Snapshot
}

func emptySnapshot() *model.IndicatorSnapshot {
	missing := make(map[string]string)
	for _, name := range []string{
		model.IndMA, model.IndRSI, model.IndMACD, model.IndKDJ, model.IndATR, model.IndVolume,
		model.IndBollinger, model.IndVolatile, model.IndDrawdown, model.IndLevels, model.IndRange52w,
	} {
		missing[name] = "no snapshot"
	}
	return &model.IndicatorSnapshot{Missing: missing}
}

func (c *Context) bars() []model.DailyBar {
	if c.Input.Series == nil {
		return nil
	}
	return c.Input.Series.Bars
}

func (c *Context) addAdjustment(name string, points float64, format string, args ...interface{}) {
	if points == 0 {
		return
	}
	c.Result.Adjustments = append(c.Result.Adjustments, model.Adjustment{
		Name:   name,
		Points: points,
		Reason: fmt.Sprintf(format, args...),
	})
}

func (c *Context) flag(key, reason string) {
	if _, ok := c.Result.Missing[key]; !ok {
		c.Result.Missing[key] = reason
	}
}
