package strategy

import (
	"strings"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/rs/zerolog"

	"TrendSentinel/internal/calculator"
	"TrendSentinel/internal/model"
	"TrendSentinel/internal/regime"
)

func ascendingSeries(n int) *model.SymbolSeries {
	return risingSeries(n, 1.01)
}

// risingSeries closes up by the factor rate on every bar.
func risingSeries(n int, rate float64) *model.SymbolSeries {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	bars := make([]model.DailyBar, n)
	c := 10.0
	for i := range bars {
		bars[i] = model.DailyBar{
			Date:   start.AddDate(0, 0, i),
			Open:   c * 0.998,
			High:   c * 1.005,
			Low:    c * 0.995,
			Close:  c,
			Volume: 1e6,
		}
		c *= rate
	}
	return &model.SymbolSeries{Symbol: "sh600519", Name: "测试股份", Market: model.MarketCN, Bars: bars}
}

func analyzeAscending(t *testing.T, h model.Horizon) *model.TrendAnalysisResult {
	t.Helper()
	series := ascendingSeries(60)
	cls, err := regime.Classify(series, regime.DefaultSettings)
	if err != nil {
		t.Fatal(err)
	}
	e := NewEngine(DefaultSettings(), zerolog.Nop())
	return e.Analyze(Input{
		Series:   series,
		Snapshot: calculator.Compute(series, nil),
		Regime:   cls,
		Horizon:  h,
	})
}

func TestAnalyze_AscendingSeries(t *testing.T) {
	r := analyzeAscending(t, model.HorizonMedium)

	if r.Regime != model.RegimeBull {
		t.Errorf("expected BULL regime, got %s", r.Regime)
	}
	if r.Signals.Trend != model.TrendStrongUp {
		t.Errorf("expected STRONG_UP, got %s", r.Signals.Trend)
	}
	if r.Score < 65 {
		t.Errorf("expected score >= 65, got %.0f (dims %+v)", r.Score, r.Dimensions)
	}
	if r.Recommendation != model.RecBuy && r.Recommendation != model.RecStrongBuy {
		t.Errorf("expected BUY or better, got %s", r.Recommendation)
	}
	if r.Halted {
		t.Errorf("unexpected halt: %v", r.HaltReasons)
	}
	if len(r.Dimensions) != len(model.Dimensions) {
		t.Fatalf("expected %d dimensions, got %d", len(model.Dimensions), len(r.Dimensions))
	}
	for _, d := range r.Dimensions {
		if d.Weighted > d.Weight {
			t.Errorf("%s: weighted %.0f exceeds weight %.0f", d.Dimension, d.Weighted, d.Weight)
		}
	}
	if _, ok := r.Missing["valuation"]; !ok {
		t.Error("absent valuation should be flagged")
	}
	if _, ok := r.Missing["fund_flow"]; !ok {
		t.Error("absent fund flow should be flagged")
	}
	sl := r.StopLoss
	for name, v := range map[string]float64{"intraday": sl.Intraday, "short": sl.Short, "medium": sl.Medium} {
		if v <= 0 || v >= r.Price {
			t.Errorf("%s stop %.3f not strictly below price %.3f", name, v, r.Price)
		}
	}
	if sl.Binding != sl.Medium {
		t.Errorf("medium horizon should bind on the medium stop, got %.3f vs %.3f", sl.Binding, sl.Medium)
	}
	tp := r.TakeProfit.Tranches
	if tp[0].Price <= r.Price || !tp[2].Trailing {
		t.Errorf("unexpected take-profit plan %+v", tp)
	}
	if r.Position.Position <= 0 || r.Position.Position > 80 || r.Position.Suggested > 30 {
		t.Errorf("unexpected position %+v", r.Position)
	}
	if r.RiskReward <= 0 || r.RiskVerdict == "" {
		t.Errorf("risk/reward not computed: %v %q", r.RiskReward, r.RiskVerdict)
	}
	if !strings.Contains(r.Summary, "买入") {
		t.Errorf("summary should carry the verdict: %s", r.Summary)
	}
}

func TestAnalyze_SteadyAscentIsStrongUpProperty(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	e := NewEngine(DefaultSettings(), zerolog.Nop())
	properties.Property("a steady ascent with every MA rising reads STRONG_UP", prop.ForAll(
		func(rate float64) bool {
			series := risingSeries(60, rate)
			r := e.Analyze(Input{Series: series, Snapshot: calculator.Compute(series, nil), Horizon: model.HorizonMedium})
			if r.Signals.Trend != model.TrendStrongUp || r.Signals.TrendStrength != 90 {
				return false
			}
			for _, d := range r.Dimensions {
				if d.Dimension == model.DimTrend && d.Raw != 1 {
					return false
				}
			}
			return true
		},
		gen.Float64Range(1.001, 1.02),
	))
	properties.Property("a steady descent reads STRONG_DOWN", prop.ForAll(
		func(rate float64) bool {
			series := risingSeries(60, rate)
			trend, _ := ClassifyTrend(calculator.Compute(series, nil))
			return trend == model.TrendStrongDown
		},
		gen.Float64Range(0.98, 0.999),
	))

	properties.TestingRun(t)
}

func TestAnalyze_BindingStopByHorizon(t *testing.T) {
	intraday := analyzeAscending(t, model.HorizonIntraday).StopLoss
	want := max(intraday.Intraday, intraday.Short, intraday.Medium)
	if intraday.Binding != want {
		t.Errorf("intraday binding %.3f, want tightest %.3f", intraday.Binding, want)
	}
	short := analyzeAscending(t, model.HorizonShort).StopLoss
	if short.Binding != max(short.Short, short.Medium) {
		t.Errorf("short binding %.3f, want max(short, medium)", short.Binding)
	}
}

func TestAnalyze_TrailingRatchets(t *testing.T) {
	series := ascendingSeries(60)
	e := NewEngine(DefaultSettings(), zerolog.Nop())
	in := Input{Series: series, Snapshot: calculator.Compute(series, nil), Horizon: model.HorizonMedium}
	first := e.Analyze(in).TakeProfit.Tranches[2].Price

	in.PrevTrailing = first * 1.1
	second := e.Analyze(in).TakeProfit.Tranches[2].Price
	if second != in.PrevTrailing {
		t.Errorf("trailing stop fell from %.3f to %.3f", in.PrevTrailing, second)
	}
}

func TestAnalyze_Halt(t *testing.T) {
	tests := []struct {
		name string
		snap model.IndicatorSnapshot
	}{
		{"volatility", model.IndicatorSnapshot{Price: 10, ATR: 0.5, Volatility20d: 150}},
		{"drawdown", model.IndicatorSnapshot{Price: 10, ATR: 0.5, MaxDrawdown60d: -45}},
		{"illiquid", model.IndicatorSnapshot{Price: 10, ATR: 0.5, VolumeRatio: 0.2, Bollinger: model.BollingerValue{PercentB: -0.1}}},
		{"zero atr", model.IndicatorSnapshot{Price: 10, VolumeRatio: 1}},
	}
	e := NewEngine(DefaultSettings(), zerolog.Nop())
	for _, tt := range tests {
		snap := tt.snap
		snap.Missing = map[string]string{}
		r := e.Analyze(Input{Snapshot: &snap, Horizon: model.HorizonMedium})
		if !r.Halted || len(r.HaltReasons) == 0 {
			t.Errorf("%s: expected halt", tt.name)
			continue
		}
		if r.Recommendation != model.RecSell && r.Recommendation != model.RecStrongSell {
			t.Errorf("%s: expected SELL or STRONG_SELL, got %s", tt.name, r.Recommendation)
		}
		if r.Position.Position != 0 || r.StopLoss.Binding != 0 {
			t.Errorf("%s: risk stages should be skipped, got %+v %+v", tt.name, r.Position, r.StopLoss)
		}
		if r.Score >= DefaultBands.Hold {
			t.Errorf("%s: halted score %.0f not capped", tt.name, r.Score)
		}
	}
}

func TestAnalyze_MissingSnapshot(t *testing.T) {
	e := NewEngine(Settings{}, zerolog.Nop())
	r := e.Analyze(Input{})
	if r.Score < 0 || r.Score > 100 {
		t.Errorf("score out of range: %v", r.Score)
	}
	if r.Signals.Trend != model.TrendUnknown || r.Signals.MACD != model.MACDUnknown {
		t.Errorf("missing indicators should read UNKNOWN: %+v", r.Signals)
	}
	if len(r.Missing) == 0 {
		t.Error("expected missing flags")
	}
}

func TestEngine_StageOrder(t *testing.T) {
	var names []string
	for _, s := range NewEngine(DefaultSettings(), zerolog.Nop()).Stages() {
		names = append(names, s.Name)
	}
	got := strings.Join(names, ",")
	want := "signals,valuation,fund_flow,continuity,range_52w,limit_move,resonance,adj_cap,conflict,halt,composite,stop_loss,take_profit,position,summary"
	if got != want {
		t.Errorf("stage order\n got %s\nwant %s", got, want)
	}
}
