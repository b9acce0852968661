package collector

import (
	"math"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/rs/zerolog"

	"TrendSentinel/internal/model"
)

var cst = time.FixedZone("CST", 8*3600)

var testZones = NewMarketZones(cst)

// friday is the last finalized bar in most cases below.
var friday = time.Date(2024, 3, 1, 0, 0, 0, 0, cst)

func newTestSplicer(holidays ...time.Time) *Splicer {
	return NewSplicer(NewTradingCalendar(cst, holidays), 9, 25, zerolog.Nop())
}

func testSeries(n int) *model.SymbolSeries {
	return &model.SymbolSeries{Symbol: "600519", Market: model.MarketCN, Bars: GenerateBars(100, n, friday)}
}

func quoteAt(t time.Time, price float64) *model.Quote {
	return &model.Quote{Symbol: "600519", Name: "Kweichow Moutai", Price: price, Open: price - 1, High: price + 1, Low: price - 2, Volume: 5e5, Time: t}
}

func TestSplice_AppendsProvisionalOnNextTradingDay(t *testing.T) {
	s := testSeries(30)
	monday := time.Date(2024, 3, 4, 10, 30, 0, 0, cst)

	out := newTestSplicer().Splice(s, quoteAt(monday, 105))
	if len(out.Bars) != 31 {
		t.Fatalf("expected 31 bars, got %d", len(out.Bars))
	}
	last := out.Bars[30]
	if !last.Provisional || last.Close != 105 {
		t.Errorf("unexpected tail: %+v", last)
	}
	if got := last.SessionProgress; got != 0.25 {
		t.Errorf("expected 0.25 session progress at 10:30, got %v", got)
	}
	if len(s.Bars) != 30 {
		t.Error("input series must not be mutated")
	}
	if out.Name != "Kweichow Moutai" {
		t.Errorf("expected name from quote, got %q", out.Name)
	}
}

func TestSplice_Unchanged(t *testing.T) {
	tests := []struct {
		name  string
		quote *model.Quote
	}{
		{"no quote", nil},
		{"same day as last bar", quoteAt(time.Date(2024, 3, 1, 14, 0, 0, 0, cst), 101)},
		{"older than last bar", quoteAt(time.Date(2024, 2, 28, 14, 0, 0, 0, cst), 99)},
		{"gap of a trading day", quoteAt(time.Date(2024, 3, 5, 10, 0, 0, 0, cst), 101)},
		{"before session open", quoteAt(time.Date(2024, 3, 4, 9, 0, 0, 0, cst), 101)},
		{"zero price", quoteAt(time.Date(2024, 3, 4, 10, 0, 0, 0, cst), 0)},
	}
	sp := newTestSplicer()
	for _, tt := range tests {
		s := testSeries(20)
		if out := sp.Splice(s, tt.quote); out != s {
			t.Errorf("%s: expected the input series back", tt.name)
		}
	}
}

func TestSplice_USQuoteUsesExchangeZone(t *testing.T) {
	ny := testZones.For(model.MarketUS)
	monday := time.Date(2024, 3, 4, 0, 0, 0, 0, ny)
	series := func() *model.SymbolSeries {
		return &model.SymbolSeries{Symbol: "usAAPL", Market: model.MarketUS, Bars: GenerateBars(170, 20, monday)}
	}
	tests := []struct {
		name         string
		at           time.Time
		wantAppended bool
		wantProgress float64
	}{
		{"shortly after the open", time.Date(2024, 3, 5, 10, 0, 0, 0, ny), true, 30.0 / 390},
		{"afternoon, already Wednesday in Shanghai", time.Date(2024, 3, 5, 14, 0, 0, 0, ny), true, 270.0 / 390},
		{"after the close", time.Date(2024, 3, 5, 17, 0, 0, 0, ny), true, 1},
		{"pre-market", time.Date(2024, 3, 5, 9, 0, 0, 0, ny), false, 0},
	}
	sp := newTestSplicer()
	for _, tt := range tests {
		s := series()
		out := sp.Splice(s, quoteAt(tt.at, 172))
		if appended := len(out.Bars) == 21; appended != tt.wantAppended {
			t.Errorf("%s: appended=%v, want %v", tt.name, appended, tt.wantAppended)
			continue
		}
		if !tt.wantAppended {
			continue
		}
		last := out.Bars[20]
		if !last.Date.Equal(time.Date(2024, 3, 5, 0, 0, 0, 0, ny)) {
			t.Errorf("%s: provisional bar dated %v", tt.name, last.Date)
		}
		if math.Abs(last.SessionProgress-tt.wantProgress) > 1e-9 {
			t.Errorf("%s: progress %v, want %v", tt.name, last.SessionProgress, tt.wantProgress)
		}
	}
}

func TestTradingCalendar_JudgesDatesInMarketZone(t *testing.T) {
	cal := NewTradingCalendar(cst, nil)
	// Friday 20:00 in New York is already Saturday in Shanghai.
	fridayEvening := time.Date(2024, 3, 1, 20, 0, 0, 0, testZones.For(model.MarketUS))
	if !cal.IsTradingDay(fridayEvening, model.MarketUS) {
		t.Error("expected Friday to trade in the US")
	}
	if cal.IsTradingDay(fridayEvening, model.MarketCN) {
		t.Error("expected Saturday to be closed in CN")
	}
}

func TestSplice_SkipsHolidays(t *testing.T) {
	holiday := time.Date(2024, 3, 4, 0, 0, 0, 0, cst)
	tuesday := time.Date(2024, 3, 5, 11, 0, 0, 0, cst)
	out := newTestSplicer(holiday).Splice(testSeries(10), quoteAt(tuesday, 101))
	if len(out.Bars) != 11 || !out.HasProvisional() {
		t.Errorf("expected provisional bar after holiday, got %d bars", len(out.Bars))
	}
}

func TestSplice_ReplacesExistingProvisional(t *testing.T) {
	sp := newTestSplicer()
	first := sp.Splice(testSeries(10), quoteAt(time.Date(2024, 3, 4, 10, 0, 0, 0, cst), 101))
	second := sp.Splice(first, quoteAt(time.Date(2024, 3, 4, 14, 0, 0, 0, cst), 103))
	if len(second.Bars) != 11 {
		t.Fatalf("expected 11 bars, got %d", len(second.Bars))
	}
	if second.Bars[10].Close != 103 {
		t.Errorf("expected refreshed close 103, got %v", second.Bars[10].Close)
	}
}

func TestSessionProgress(t *testing.T) {
	tests := []struct {
		hh, mm int
		want   float64
	}{
		{9, 30, 1.0 / 240},
		{11, 30, 0.5},
		{12, 15, 0.5},
		{14, 0, 0.75},
		{15, 30, 1},
	}
	for _, tt := range tests {
		got := SessionProgress(time.Date(2024, 3, 4, tt.hh, tt.mm, 0, 0, cst), model.MarketCN)
		if got != tt.want {
			t.Errorf("%02d:%02d: expected %v, got %v", tt.hh, tt.mm, tt.want, got)
		}
	}
}

func TestSplice_OrderingProperty(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)
	sp := newTestSplicer()

	properties.Property("dates strictly ascending with at most one provisional tail", prop.ForAll(
		func(n, dayOffset, minute int, twice bool) bool {
			s := testSeries(n)
			q := quoteAt(friday.AddDate(0, 0, dayOffset).Add(time.Duration(minute)*time.Minute), 100)
			out := sp.Splice(s, q)
			if twice {
				out = sp.Splice(out, q)
			}
			provisional := 0
			for i, b := range out.Bars {
				if i > 0 && !b.Date.After(out.Bars[i-1].Date) {
					return false
				}
				if b.Provisional {
					provisional++
					if i != len(out.Bars)-1 {
						return false
					}
				}
			}
			return provisional <= 1
		},
		gen.IntRange(1, 80),
		gen.IntRange(-3, 6),
		gen.IntRange(0, 24*60-1),
		gen.Bool(),
	))

	properties.TestingRun(t)
}
