// Package pipeline runs the full per-symbol analysis: collection, indicators,
// index regime, scoring, capital sizing, advisory and persistence. Batches fan
// symbols out over a bounded worker pool; one symbol's failure never stops
// its siblings.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"TrendSentinel/internal/advisory"
	"TrendSentinel/internal/calculator"
	"TrendSentinel/internal/collector"
	apperrors "TrendSentinel/internal/errors"
	"TrendSentinel/internal/fund"
	"TrendSentinel/internal/logging"
	"TrendSentinel/internal/metrics"
	"TrendSentinel/internal/model"
	"TrendSentinel/internal/recorder"
	"TrendSentinel/internal/regime"
	"TrendSentinel/internal/strategy"
)

// Options wires a Runner. Collector and Engine are required; everything else
// is optional and skipped when nil.
type Options struct {
	Collector   *collector.Collector
	Engine      *strategy.Engine
	Advisory    *advisory.Runner
	Recorder    recorder.Recorder
	Fund        *fund.Manager
	Metrics     *metrics.Metrics
	Regime      regime.Settings
	IndexSymbol string
	Horizon     model.Horizon
	MAWindows   []int
	Concurrency int
}

// Runner executes analyses.
type Runner struct {
	opts   Options
	logger zerolog.Logger
}

// SymbolError is the per-symbol entry of a failed batch member.
type SymbolError struct {
	Symbol  string `json:"symbol"`
	Err     error  `json:"-"`
	Message string `json:"error"`
	// Providers lists the adapters tried when the chain was exhausted.
	Providers []string `json:"providers,omitempty"`
}

// BatchResult collects one batch run. Results and Failures keep input order.
type BatchResult struct {
	RunID      string
	Regime     regime.Classification
	Results    []*model.TrendAnalysisResult
	Failures   []SymbolError
	StartedAt  time.Time
	FinishedAt time.Time
}

// NewRunner creates a Runner.
func NewRunner(opts Options, logger zerolog.Logger) *Runner {
	if opts.Concurrency <= 0 {
		opts.Concurrency = 3
	}
	if opts.Horizon == "" {
		opts.Horizon = model.HorizonMedium
	}
	if opts.Recorder == nil {
		opts.Recorder = recorder.NewNoopRecorder()
	}
	return &Runner{opts: opts, logger: logger.With().Str("component", "pipeline").Logger()}
}

// ClassifyRegime fetches the reference index and labels the market. Any
// failure falls back to RANGE; the reason is returned for flagging.
func (r *Runner) ClassifyRegime(ctx context.Context) (regime.Classification, string) {
	var series *model.SymbolSeries
	if r.opts.IndexSymbol != "" {
		s, err := r.opts.Collector.CollectIndex(ctx, r.opts.IndexSymbol)
		if err != nil {
			r.logger.Warn().Err(err).Str("index", r.opts.IndexSymbol).Msg("index unavailable, assuming RANGE")
			cls, _ := regime.Classify(nil, r.opts.Regime)
			return cls, err.Error()
		}
		series = s
	}
	cls, err := regime.Classify(series, r.opts.Regime)
	if err != nil {
		return cls, err.Error()
	}
	r.logger.Info().
		Str("regime", string(cls.Regime)).
		Float64("slope_pct", cls.SlopePct).
		Float64("change_pct", cls.ChangePct).
		Msg("market regime classified")
	return cls, ""
}

// AnalyzeSymbol runs one symbol end to end with a fresh regime reading.
func (r *Runner) AnalyzeSymbol(ctx context.Context, symbol, runID string) (*model.TrendAnalysisResult, error) {
	if runID == "" {
		runID = uuid.NewString()
	}
	cls, reason := r.ClassifyRegime(ctx)
	return r.analyze(ctx, symbol, runID, cls, reason)
}

func (r *Runner) analyze(ctx context.Context, symbol, runID string, cls regime.Classification, regimeGap string) (*model.TrendAnalysisResult, error) {
	start := time.Now()
	log := logging.WithRunID(logging.WithSymbol(r.logger, symbol), runID)

	data, err := r.opts.Collector.Collect(ctx, symbol)
	if err != nil {
		r.opts.Metrics.ObserveAnalysis(symbol, "error", "", 0, time.Since(start))
		r.recordFailure(ctx, runID, symbol, err)
		return nil, fmt.Errorf("collect %s: %w", symbol, err)
	}

	snap := calculator.Compute(data.Series, r.opts.MAWindows)
	missing := data.Missing
	if regimeGap != "" {
		missing["regime"] = regimeGap
	}

	var prevTrailing float64
	if last, ok := data.Series.Last(); ok {
		prevTrailing, err = r.opts.Recorder.LastTrailing(ctx, data.Series.Symbol, last.Date)
		if err != nil {
			log.Warn().Err(err).Msg("previous trailing stop unavailable")
		}
	}

	result := r.opts.Engine.Analyze(strategy.Input{
		Series:       data.Series,
		Snapshot:     snap,
		Regime:       cls,
		Fundamentals: data.Fundamentals,
		Horizon:      r.opts.Horizon,
		PrevTrailing: prevTrailing,
		Missing:      missing,
	})
	result.RunID = runID
	if result.Symbol == "" {
		result.Symbol = symbol
	}

	if r.opts.Fund != nil {
		if err := r.opts.Fund.ApplyAdvice(result.Symbol, &result.Position); err != nil {
			log.Warn().Err(err).Msg("capital allocation not persisted")
		}
	}

	// The result is final here; advisory text is the only field added after.
	text, outcome, err := r.opts.Advisory.Run(ctx, result)
	r.opts.Metrics.IncAdvisory(outcome)
	if err != nil {
		log.Warn().Err(err).Str("outcome", outcome).Msg("advisory skipped")
	}
	result.Advisory = text

	if err := r.opts.Recorder.RecordAnalysis(ctx, &recorder.AnalysisRecord{RunID: runID, Result: result}); err != nil {
		log.Error().Err(err).Msg("record analysis")
	}

	d := time.Since(start)
	r.opts.Metrics.ObserveAnalysis(result.Symbol, "ok", string(result.Recommendation), result.Score, d)
	log.Info().
		Float64("score", result.Score).
		Str("recommendation", string(result.Recommendation)).
		Bool("halted", result.Halted).
		Bool("provisional", result.Provisional).
		Int("missing", len(result.Missing)).
		Dur("took", d).
		Msg("analysis complete")
	return result, nil
}

func (r *Runner) recordFailure(ctx context.Context, runID, symbol string, err error) {
	rec := &recorder.FailureRecord{RunID: runID, Symbol: symbol, Error: err.Error(), Providers: providersOf(err), At: time.Now()}
	if rerr := r.opts.Recorder.RecordFailure(ctx, rec); rerr != nil {
		r.logger.Error().Err(rerr).Str("symbol", symbol).Msg("record failure")
	}
}

func providersOf(err error) []string {
	var du *apperrors.DataUnavailable
	if errors.As(err, &du) {
		return du.Providers()
	}
	return nil
}

// RunBatch analyses symbols with bounded concurrency under one run id. The
// regime is classified once and shared. Only cancellation of ctx fails the
// batch as a whole.
func (r *Runner) RunBatch(ctx context.Context, symbols []string) (*BatchResult, error) {
	batch := &BatchResult{RunID: uuid.NewString(), StartedAt: time.Now()}
	log := logging.WithRunID(r.logger, batch.RunID)
	log.Info().Int("symbols", len(symbols)).Int("concurrency", r.opts.Concurrency).Msg("batch started")

	cls, gap := r.ClassifyRegime(ctx)
	batch.Regime = cls

	results := make([]*model.TrendAnalysisResult, len(symbols))
	errs := make([]error, len(symbols))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.opts.Concurrency)
	for i, symbol := range symbols {
		i, symbol := i, symbol
		g.Go(func() error {
			res, err := r.analyze(gctx, symbol, batch.RunID, cls, gap)
			results[i], errs[i] = res, err
			return nil
		})
	}
	_ = g.Wait()
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	for i, symbol := range symbols {
		if errs[i] != nil {
			batch.Failures = append(batch.Failures, SymbolError{
				Symbol:    symbol,
				Err:       errs[i],
				Message:   errs[i].Error(),
				Providers: providersOf(errs[i]),
			})
			continue
		}
		batch.Results = append(batch.Results, results[i])
	}
	batch.FinishedAt = time.Now()
	log.Info().
		Int("ok", len(batch.Results)).
		Int("failed", len(batch.Failures)).
		Dur("took", batch.FinishedAt.Sub(batch.StartedAt)).
		Msg("batch finished")
	return batch, nil
}

// Watchlist guards the mutable set of symbols analysed by scheduled batches.
type Watchlist struct {
	mu      sync.RWMutex
	symbols []string
}

// NewWatchlist normalises and de-duplicates symbols.
func NewWatchlist(symbols []string) *Watchlist {
	w := &Watchlist{}
	w.Set(symbols)
	return w
}

// Symbols returns a copy of the list.
func (w *Watchlist) Symbols() []string {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return append([]string(nil), w.symbols...)
}

// Set replaces the list.
func (w *Watchlist) Set(symbols []string) {
	seen := make(map[string]bool, len(symbols))
	out := make([]string, 0, len(symbols))
	for _, s := range symbols {
		p := collector.ParseSymbol(s).Prefixed()
		if p == "" || seen[p] {
			continue
		}
		seen[p] = true
		out = append(out, p)
	}
	w.mu.Lock()
	w.symbols = out
	w.mu.Unlock()
}
