package recorder

import (
	"context"
	"time"

	"TrendSentinel/internal/model"
)

// AnalysisRecord is one finalized result tagged with its batch run.
type AnalysisRecord struct {
	RunID  string
	Result *model.TrendAnalysisResult
}

// FailureRecord is a symbol that produced no result in a run.
type FailureRecord struct {
	RunID     string
	Symbol    string
	Error     string
	Providers []string // providers attempted, when data was unavailable
	At        time.Time
}

// StoredResult is the persisted summary of one (symbol, date) analysis.
type StoredResult struct {
	Symbol         string
	TradeDate      string
	RunID          string
	Score          float64
	Recommendation string
	TrailingStop   float64
	Provisional    bool
}

// Recorder persists analysis history.
// RecordAnalysis upserts on (symbol, trade date): re-running a day replaces it.
type Recorder interface {
	RecordAnalysis(ctx context.Context, rec *AnalysisRecord) error
	RecordFailure(ctx context.Context, rec *FailureRecord) error
	// LastTrailing returns the trailing stop of the most recent result for
	// symbol dated strictly before before, or 0 when there is none.
	LastTrailing(ctx context.Context, symbol string, before time.Time) (float64, error)
	Recent(ctx context.Context, symbol string, limit int) ([]StoredResult, error)
	Close() error
}
