package collector

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	apperrors "TrendSentinel/internal/errors"
	"TrendSentinel/internal/model"
	"TrendSentinel/internal/strategy"
)

func newTestCollector(providers ...Provider) *Collector {
	c := NewCollector(NewManager(providers), newTestSplicer(), 120, zerolog.Nop())
	c.now = func() time.Time { return time.Date(2024, 3, 4, 10, 30, 0, 0, cst) }
	return c
}

func TestCollector_SplicesQuoteAndFundamentals(t *testing.T) {
	monday := time.Date(2024, 3, 4, 10, 30, 0, 0, cst)
	p := &MockProvider{
		ProviderName: "em",
		Bars:         GenerateBars(100, 60, friday),
		Quote:        quoteAt(monday, 102),
		Valuation:    &model.Valuation{PE: 35},
		FundFlow:     &model.FundFlow{MainNetInflow: 3000, HasMainInflow: true},
	}
	data, err := newTestCollector(p).Collect(context.Background(), "600519")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !data.Series.HasProvisional() || len(data.Series.Bars) != 61 {
		t.Errorf("expected a provisional tail, got %d bars", len(data.Series.Bars))
	}
	if data.Fundamentals.Valuation == nil || data.Fundamentals.Valuation.PE != 35 {
		t.Errorf("valuation missing: %+v", data.Fundamentals)
	}
	if f := data.Fundamentals.FundFlow; f == nil || f.AvgDailyAmount <= 0 {
		t.Errorf("expected average amount derived from history, got %+v", f)
	}
	if len(data.Missing) != 0 {
		t.Errorf("expected nothing missing, got %v", data.Missing)
	}
}

func TestCollector_MissingOptionalInputs(t *testing.T) {
	p := &MockProvider{ProviderName: "em", Bars: GenerateBars(100, 60, friday), QuoteErr: errors.New("closed")}
	data, err := newTestCollector(p).Collect(context.Background(), "600519")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if data.Series.HasProvisional() {
		t.Error("no quote must never fabricate a bar")
	}
	for _, k := range []string{"quote", "valuation", "fund_flow"} {
		if _, ok := data.Missing[k]; !ok {
			t.Errorf("expected %s flagged missing", k)
		}
	}
}

func TestCollector_HistoryFailureIsFatal(t *testing.T) {
	p := &MockProvider{ProviderName: "em", HistoryErr: errors.New("down")}
	_, err := newTestCollector(p).Collect(context.Background(), "600519")
	var du *apperrors.DataUnavailable
	if !errors.As(err, &du) {
		t.Errorf("expected DataUnavailable, got %v", err)
	}
}

func TestCollector_EastmoneyValuationDrivesStrategies(t *testing.T) {
	srv := newEastmoneyServer(t, emFixture{
		PE:       65,
		Growth:   260,
		Board:    "BK0477",
		BoardPEs: []float64{10, 15, 20, 25, 30},
	}, nil)
	data, err := newTestCollector(newTestEastmoney(srv)).Collect(context.Background(), "600519")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	v := data.Fundamentals.Valuation
	if v == nil {
		t.Fatalf("valuation missing: %v", data.Missing)
	}

	// 65 against a median of 20 is 3.25x: severe (-15), clawed back 5 by PEG 0.25.
	points, verdict := strategy.RelativeValuation{}.Assess(*v)
	if points != -10 {
		t.Errorf("relative: expected -10, got %v (%s)", points, verdict)
	}
	if !strings.Contains(verdict, "行业中位20") || !strings.Contains(verdict, "PEG极低") {
		t.Errorf("relative verdict lacks median or PEG: %s", verdict)
	}

	// Absolute bands see PE 65 as high (-10), with the same claw-back.
	if points, verdict := (strategy.AbsoluteValuation{}).Assess(*v); points != -5 {
		t.Errorf("absolute: expected -5, got %v (%s)", points, verdict)
	}
}
