package collector

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"TrendSentinel/internal/model"
)

// MarketData is everything the analysis engine needs for one symbol.
type MarketData struct {
	Series       *model.SymbolSeries
	Quote        *model.Quote
	Fundamentals model.Fundamentals
	// Missing maps optional inputs (quote, valuation, fund_flow) to the reason they are absent.
	Missing map[string]string
}

// Collector orchestrates history, quote, splice and fundamentals for a symbol.
type Collector struct {
	Manager     *Manager
	Splicer     *Splicer
	HistoryDays int
	logger      zerolog.Logger
	now         func() time.Time
}

// NewCollector creates a new Collector.
func NewCollector(m *Manager, s *Splicer, historyDays int, logger zerolog.Logger) *Collector {
	return &Collector{Manager: m, Splicer: s, HistoryDays: historyDays, logger: logger, now: time.Now}
}

// Collect fetches history first; its failure is fatal. Quote, valuation and
// fund flow are fetched concurrently afterwards and only recorded as missing
// when unavailable.
func (c *Collector) Collect(ctx context.Context, symbol string) (*MarketData, error) {
	end := c.now()
	start := end.AddDate(0, 0, -c.HistoryDays)

	series, err := c.Manager.GetHistory(ctx, symbol, start, end)
	if err != nil {
		return nil, fmt.Errorf("fetch history: %w", err)
	}

	data := &MarketData{Missing: map[string]string{}}
	var (
		quote    *model.Quote
		quoteErr error
		val      *model.Valuation
		valErr   error
		flow     *model.FundFlow
		flowErr  error
	)
	var g errgroup.Group
	g.Go(func() error {
		quote, quoteErr = c.Manager.GetQuote(ctx, symbol)
		return nil
	})
	g.Go(func() error {
		val, valErr = c.Manager.GetValuation(ctx, symbol)
		return nil
	})
	g.Go(func() error {
		flow, flowErr = c.Manager.GetFundFlow(ctx, symbol)
		return nil
	})
	_ = g.Wait()
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if quoteErr != nil {
		c.logger.Warn().Err(quoteErr).Str("symbol", symbol).Msg("real-time quote unavailable, using history only")
		data.Missing["quote"] = quoteErr.Error()
	} else {
		data.Quote = quote
		if series.Name == "" {
			series.Name = quote.Name
		}
	}
	if valErr != nil {
		data.Missing["valuation"] = valErr.Error()
	} else {
		data.Fundamentals.Valuation = val
	}
	if flowErr != nil {
		data.Missing["fund_flow"] = flowErr.Error()
	} else {
		if flow.AvgDailyAmount == 0 {
			flow.AvgDailyAmount = avgAmount(series.Bars, 20) / 1e4
		}
		data.Fundamentals.FundFlow = flow
	}

	data.Series = c.Splicer.Splice(series, data.Quote)
	return data, nil
}

// CollectIndex fetches an index series and splices today's quote when available.
func (c *Collector) CollectIndex(ctx context.Context, symbol string) (*model.SymbolSeries, error) {
	end := c.now()
	series, err := c.Manager.GetHistory(ctx, symbol, end.AddDate(0, 0, -c.HistoryDays), end)
	if err != nil {
		return nil, fmt.Errorf("fetch index history: %w", err)
	}
	quote, err := c.Manager.GetQuote(ctx, symbol)
	if err != nil {
		c.logger.Debug().Err(err).Str("symbol", symbol).Msg("index quote unavailable")
		return series, nil
	}
	return c.Splicer.Splice(series, quote), nil
}

func avgAmount(bars []model.DailyBar, n int) float64 {
	if len(bars) < n {
		n = len(bars)
	}
	var sum float64
	count := 0
	for _, b := range bars[len(bars)-n:] {
		if b.Amount > 0 {
			sum += b.Amount
			count++
		}
	}
	if count == 0 {
		return 0
	}
	return sum / float64(count)
}
