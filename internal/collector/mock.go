package collector

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"TrendSentinel/internal/model"
)

var errNoMockData = errors.New("mock: no data configured")

// MockProvider returns controllable fixed data for development and testing.
type MockProvider struct {
	ProviderName string
	Price        float64
	Bars         []model.DailyBar
	Quote        *model.Quote
	Valuation    *model.Valuation
	FundFlow     *model.FundFlow
	HistoryErr   error
	QuoteErr     error
	// Delay blocks each call until it elapses or ctx is done.
	Delay time.Duration

	historyCalls atomic.Int32
	quoteCalls   atomic.Int32
}

func (m *MockProvider) Name() string {
	if m.ProviderName == "" {
		return "mock"
	}
	return m.ProviderName
}

// HistoryCalls returns how many times FetchHistory ran.
func (m *MockProvider) HistoryCalls() int { return int(m.historyCalls.Load()) }

// QuoteCalls returns how many times FetchQuote ran.
func (m *MockProvider) QuoteCalls() int { return int(m.quoteCalls.Load()) }

func (m *MockProvider) wait(ctx context.Context) error {
	if m.Delay <= 0 {
		return nil
	}
	select {
	case <-time.After(m.Delay):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (m *MockProvider) FetchHistory(ctx context.Context, _ string, start, end time.Time) ([]model.DailyBar, error) {
	m.historyCalls.Add(1)
	if err := m.wait(ctx); err != nil {
		return nil, err
	}
	if m.HistoryErr != nil {
		return nil, m.HistoryErr
	}
	if m.Bars != nil {
		return m.Bars, nil
	}
	days := int(end.Sub(start).Hours() / 24)
	return GenerateBars(m.Price, days*5/7, end), nil
}

func (m *MockProvider) FetchQuote(ctx context.Context, symbol string) (*model.Quote, error) {
	m.quoteCalls.Add(1)
	if err := m.wait(ctx); err != nil {
		return nil, err
	}
	if m.QuoteErr != nil {
		return nil, m.QuoteErr
	}
	if m.Quote != nil {
		return m.Quote, nil
	}
	return &model.Quote{Symbol: symbol, Price: m.Price, PrevClose: m.Price, Time: time.Now(), Source: m.Name()}, nil
}

func (m *MockProvider) FetchValuation(_ context.Context, _ string) (*model.Valuation, error) {
	if m.Valuation == nil {
		return nil, errNoMockData
	}
	return m.Valuation, nil
}

func (m *MockProvider) FetchFundFlow(_ context.Context, _ string) (*model.FundFlow, error) {
	if m.FundFlow == nil {
		return nil, errNoMockData
	}
	return m.FundFlow, nil
}

// GenerateBars builds count weekday bars ending on or before end, drifting
// gently around basePrice.
func GenerateBars(basePrice float64, count int, end time.Time) []model.DailyBar {
	if count <= 0 {
		return nil
	}
	dates := make([]time.Time, 0, count)
	d := time.Date(end.Year(), end.Month(), end.Day(), 0, 0, 0, 0, end.Location())
	for len(dates) < count {
		if wd := d.Weekday(); wd != time.Saturday && wd != time.Sunday {
			dates = append(dates, d)
		}
		d = d.AddDate(0, 0, -1)
	}
	bars := make([]model.DailyBar, count)
	for i := 0; i < count; i++ {
		p := basePrice * (1 + float64(i-count/2)*0.001)
		bars[i] = model.DailyBar{
			Date:   dates[count-1-i],
			Open:   p * 0.999,
			High:   p * 1.005,
			Low:    p * 0.995,
			Close:  p,
			Volume: 1000000,
			Amount: 1000000 * p,
		}
	}
	return bars
}
