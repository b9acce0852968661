// Package strategy turns an indicator snapshot into a TrendAnalysisResult
// through a fixed pipeline of scoring stages. Every stage is an exported
// function over *Context and can be called on its own.
package strategy

import (
	"time"

	"github.com/rs/zerolog"

	"TrendSentinel/internal/model"
)

// Stage is one step of the pipeline.
type Stage struct {
	Name string
	Run  func(*Context)
	// SkipOnHalt stages are not run once CheckHalt has fired.
	SkipOnHalt bool
}

// Settings select the pluggable strategies and the recommendation bands.
type Settings struct {
	Valuation ValuationStrategy
	FundFlow  FundFlowStrategy
	Bands     Bands
}

// DefaultSettings use absolute thresholds throughout.
func DefaultSettings() Settings {
	return Settings{
		Valuation: AbsoluteValuation{},
		FundFlow:  AbsoluteFundFlow{Thresholds: DefaultFlowThresholds},
		Bands:     DefaultBands,
	}
}

// Engine runs the stage pipeline. It is stateless and safe for concurrent use.
type Engine struct {
	stages []Stage
	logger zerolog.Logger
}

// NewEngine wires the stage list. Zero-valued settings fall back to defaults.
func NewEngine(s Settings, logger zerolog.Logger) *Engine {
	def := DefaultSettings()
	if s.Valuation == nil {
		s.Valuation = def.Valuation
	}
	if s.FundFlow == nil {
		s.FundFlow = def.FundFlow
	}
	if s.Bands == (Bands{}) {
		s.Bands = def.Bands
	}
	return &Engine{
		logger: logger,
		stages: []Stage{
			{Name: "signals", Run: ScoreSignals},
			{Name: "valuation", Run: func(c *Context) { ApplyValuation(c, s.Valuation) }},
			{Name: "fund_flow", Run: func(c *Context) { ApplyFundFlow(c, s.FundFlow) }},
			{Name: "continuity", Run: ApplyContinuity},
			{Name: "range_52w", Run: ApplyRangePosition},
			{Name: "limit_move", Run: ApplyLimitMove},
			{Name: "resonance", Run: ApplyResonance},
			{Name: "adj_cap", Run: CapAdjustments},
			{Name: "conflict", Run: DetectConflict},
			{Name: "halt", Run: CheckHalt},
			{Name: "composite", Run: func(c *Context) { Composite(c, s.Bands) }},
			{Name: "stop_loss", Run: StopLoss, SkipOnHalt: true},
			{Name: "take_profit", Run: TakeProfit, SkipOnHalt: true},
			{Name: "position", Run: func(c *Context) { Position(c, s.Bands) }, SkipOnHalt: true},
			{Name: "summary", Run: Summarize},
		},
	}
}

// Stages returns the pipeline in execution order.
func (e *Engine) Stages() []Stage {
	out := make([]Stage, len(e.stages))
	copy(out, e.stages)
	return out
}

// Analyze runs every stage and returns the finished result. Missing inputs
// are flagged on the result; no stage aborts the run.
func (e *Engine) Analyze(in Input) *model.TrendAnalysisResult {
	start := time.Now()
	c := NewContext(in)
	for _, st := range e.stages {
		if st.SkipOnHalt && c.Result.Halted {
			continue
		}
		st.Run(c)
	}
	r := c.Result
	e.logger.Debug().
		Str("symbol", r.Symbol).
		Str("regime", string(r.Regime)).
		Float64("base", r.BaseScore).
		Float64("score", r.Score).
		Str("recommendation", string(r.Recommendation)).
		Bool("halted", r.Halted).
		Int("missing", len(r.Missing)).
		Dur("elapsed", time.Since(start)).
		Msg("analysis complete")
	return &r
}
