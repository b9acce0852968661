package collector

import (
	"context"
	"time"

	"TrendSentinel/internal/model"
)

// Provider wraps one upstream data source behind a uniform contract.
// Implementations return bars ascending by date.
type Provider interface {
	Name() string
	FetchHistory(ctx context.Context, symbol string, start, end time.Time) ([]model.DailyBar, error)
	FetchQuote(ctx context.Context, symbol string) (*model.Quote, error)
}

// ValuationProvider is implemented by providers that expose valuation multiples.
type ValuationProvider interface {
	FetchValuation(ctx context.Context, symbol string) (*model.Valuation, error)
}

// FundFlowProvider is implemented by providers that expose capital flows.
type FundFlowProvider interface {
	FetchFundFlow(ctx context.Context, symbol string) (*model.FundFlow, error)
}
