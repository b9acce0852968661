package collector

import (
	"context"
	"errors"
	"testing"
	"time"

	apperrors "TrendSentinel/internal/errors"
	"TrendSentinel/internal/model"
)

var testEnd = time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

// historyOnly implements Provider without the fundamentals interfaces.
type historyOnly struct{ name string }

func (h historyOnly) Name() string { return h.name }
func (h historyOnly) FetchHistory(context.Context, string, time.Time, time.Time) ([]model.DailyBar, error) {
	return nil, errors.New("down")
}
func (h historyOnly) FetchQuote(context.Context, string) (*model.Quote, error) {
	return nil, errors.New("down")
}

func TestManager_FallsBackWithoutRetry(t *testing.T) {
	p1 := &MockProvider{ProviderName: "p1", HistoryErr: errors.New("connection reset")}
	p2 := &MockProvider{ProviderName: "p2", Bars: []model.DailyBar{{Date: testEnd}}} // fails validation
	p3 := &MockProvider{ProviderName: "p3", Bars: GenerateBars(10, 30, testEnd)}
	p4 := &MockProvider{ProviderName: "p4", Bars: GenerateBars(20, 30, testEnd)}

	m := NewManager([]Provider{p1, p2, p3, p4})
	series, err := m.GetHistory(context.Background(), "600519", testEnd.AddDate(0, 0, -60), testEnd)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if series.Source != "p3" {
		t.Errorf("expected p3 to serve, got %s", series.Source)
	}
	if len(series.Bars) != 30 {
		t.Errorf("expected 30 bars, got %d", len(series.Bars))
	}
	for _, tc := range []struct {
		p    *MockProvider
		want int
	}{{p1, 1}, {p2, 1}, {p3, 1}, {p4, 0}} {
		if got := tc.p.HistoryCalls(); got != tc.want {
			t.Errorf("%s: expected %d calls, got %d", tc.p.Name(), tc.want, got)
		}
	}
}

func TestManager_AllSixFail(t *testing.T) {
	providers := []Provider{
		&MockProvider{ProviderName: "eastmoney", HistoryErr: errors.New("status 502")},
		&MockProvider{ProviderName: "tencent", Delay: time.Second},
		&MockProvider{ProviderName: "sina", HistoryErr: apperrors.ErrNotSupported},
		&MockProvider{ProviderName: "tushare", Bars: []model.DailyBar{}},
		&MockProvider{ProviderName: "yahoo", HistoryErr: context.DeadlineExceeded},
		&MockProvider{ProviderName: "rest", HistoryErr: errors.New("no route")},
	}
	m := NewManager(providers, WithTimeout(50*time.Millisecond))

	_, err := m.GetHistory(context.Background(), "600519", testEnd.AddDate(0, 0, -30), testEnd)
	var du *apperrors.DataUnavailable
	if !errors.As(err, &du) {
		t.Fatalf("expected DataUnavailable, got %v", err)
	}
	names := du.Providers()
	want := []string{"eastmoney", "tencent", "sina", "tushare", "yahoo", "rest"}
	if len(names) != len(want) {
		t.Fatalf("expected %d attempts, got %d: %v", len(want), len(names), names)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Errorf("attempt %d: expected %s, got %s", i, want[i], names[i])
		}
	}
	if !errors.Is(du.Attempts[1].Err, context.DeadlineExceeded) {
		t.Errorf("expected tencent to time out, got %v", du.Attempts[1].Err)
	}
}

func TestManager_QuoteFallback(t *testing.T) {
	now := time.Now()
	p1 := &MockProvider{ProviderName: "p1", QuoteErr: apperrors.ErrNotSupported}
	p2 := &MockProvider{ProviderName: "p2", Quote: &model.Quote{Price: 0, Time: now}}
	p3 := &MockProvider{ProviderName: "p3", Quote: &model.Quote{Price: 12.3, Time: now}}

	q, err := NewManager([]Provider{p1, p2, p3}).GetQuote(context.Background(), "000001")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if q.Price != 12.3 || q.Source != "p3" {
		t.Errorf("unexpected quote: %+v", q)
	}

	_, err = NewManager([]Provider{p1, p2}).GetQuote(context.Background(), "000001")
	var du *apperrors.DataUnavailable
	if !errors.As(err, &du) || len(du.Attempts) != 2 {
		t.Fatalf("expected DataUnavailable with 2 attempts, got %v", err)
	}
}

func TestManager_BreakerOpensAfterRepeatedFailures(t *testing.T) {
	bad := &MockProvider{ProviderName: "bad", HistoryErr: errors.New("down")}
	good := &MockProvider{ProviderName: "good", Bars: GenerateBars(10, 20, testEnd)}
	m := NewManager([]Provider{bad, good}, WithBreakerSettings(BreakerSettings{
		MaxRequests:  1,
		Interval:     time.Minute,
		OpenTimeout:  time.Minute,
		MinRequests:  2,
		FailureRatio: 0.5,
	}))

	for i := 0; i < 3; i++ {
		if _, err := m.GetHistory(context.Background(), "600519", testEnd.AddDate(0, 0, -30), testEnd); err != nil {
			t.Fatalf("call %d: %v", i, err)
		}
	}
	if got := bad.HistoryCalls(); got != 2 {
		t.Errorf("expected the open breaker to skip the third call, got %d calls", got)
	}
	status := m.Status()
	if status[0].Name != "bad" || status[0].State != "open" {
		t.Errorf("unexpected status: %+v", status[0])
	}
}

func TestManager_FundamentalsNotSupported(t *testing.T) {
	m := NewManager([]Provider{historyOnly{"plain"}})
	if _, err := m.GetValuation(context.Background(), "600519"); !errors.Is(err, apperrors.ErrNotSupported) {
		t.Errorf("expected ErrNotSupported, got %v", err)
	}
	if _, err := m.GetFundFlow(context.Background(), "600519"); !errors.Is(err, apperrors.ErrNotSupported) {
		t.Errorf("expected ErrNotSupported, got %v", err)
	}

	withFlow := &MockProvider{ProviderName: "em", FundFlow: &model.FundFlow{MainNetInflow: 1200, HasMainInflow: true}}
	m = NewManager([]Provider{historyOnly{"plain"}, withFlow})
	flow, err := m.GetFundFlow(context.Background(), "600519")
	if err != nil || flow.MainNetInflow != 1200 {
		t.Errorf("expected fund flow from em, got %+v, %v", flow, err)
	}
}

func TestNormalizeBars_SortsAndDedups(t *testing.T) {
	d1 := testEnd.AddDate(0, 0, -1)
	bars := []model.DailyBar{
		{Date: testEnd, Open: 1, High: 2, Low: 1, Close: 1.5},
		{Date: d1, Open: 1, High: 2, Low: 1, Close: 1.2},
		{Date: testEnd, Open: 1, High: 2, Low: 1, Close: 1.8, Provisional: true},
	}
	out, err := normalizeBars(bars)
	if err != nil {
		t.Fatal(err)
	}
	if len(out) != 2 || !out[0].Date.Equal(d1) || out[1].Close != 1.8 || out[1].Provisional {
		t.Errorf("unexpected normalisation: %+v", out)
	}
	if bars[0].Close != 1.5 {
		t.Error("input must not be mutated")
	}
}
