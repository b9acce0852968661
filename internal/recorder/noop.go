package recorder

import (
	"context"
	"time"
)

// NoopRecorder is a no-op implementation used when SQLite is not configured.
type NoopRecorder struct{}

func NewNoopRecorder() *NoopRecorder { return &NoopRecorder{} }

func (n *NoopRecorder) RecordAnalysis(context.Context, *AnalysisRecord) error { return nil }
func (n *NoopRecorder) RecordFailure(context.Context, *FailureRecord) error { return nil }
func (n *NoopRecorder) LastTrailing(context.Context, string, time.Time) (float64, error) {
	return 0, nil
}
func (n *NoopRecorder) Recent(context.Context, string, int) ([]StoredResult, error) { return nil, nil }
func (n *NoopRecorder) Close() error { return nil }
