package notifier

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"TrendSentinel/internal/model"
)

func TestFormatReport_ToleratesEmptyResult(t *testing.T) {
	out := FormatReport(&model.TrendAnalysisResult{Symbol: "sh600519"})
	if !strings.Contains(out, "sh600519") {
		t.Errorf("symbol missing from report: %s", out)
	}
	if FormatReport(nil) == "" {
		t.Error("nil result should still render a placeholder")
	}
}

func TestFormatReport_Full(t *testing.T) {
	r := &model.TrendAnalysisResult{
		Symbol:         "sh600519",
		Name:           "贵州茅台",
		AsOf:           time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
		Provisional:    true,
		Price:          1688.5,
		ChangePct:      1.2,
		Regime:         model.RegimeBull,
		Horizon:        model.HorizonMedium,
		Signals:        model.Signals{Trend: model.TrendStrongUp, TrendStrength: 90},
		Dimensions:     []model.DimensionScore{{Dimension: model.DimTrend, Weight: 30, Weighted: 30, Commentary: "强势多头"}},
		Adjustments:    []model.Adjustment{{Name: "valuation", Points: -3, Reason: "PE偏高"}},
		Score:          72,
		Recommendation: model.RecBuy,
		StopLoss:       model.StopLossLadder{Intraday: 1660, Short: 1640, Medium: 1600, Binding: 1600},
		RiskReward:     2.1,
		Position:       model.PositionAdvice{Position: 60, Suggested: 30, Amount: 30000},
		Missing:        map[string]string{"fund_flow": "no data"},
		Advisory:       "<script>",
	}
	r.TakeProfit.Tranches[0] = model.Tranche{Label: "短线目标", Price: 1750, Fraction: 1.0 / 3}

	out := FormatReport(r)
	for _, want := range []string{"贵州茅台", "1,688.5", "(盘中)", "牛市", "🟢 买入", "1,600", "短线目标", "¥30,000", "fund_flow", "&lt;script&gt;"} {
		if !strings.Contains(out, want) {
			t.Errorf("report missing %q:\n%s", want, out)
		}
	}
}

func TestFormatReport_Halted(t *testing.T) {
	r := &model.TrendAnalysisResult{
		Symbol:         "sz000001",
		Halted:         true,
		HaltReasons:    []string{"波动率过高"},
		Recommendation: model.RecSell,
	}
	out := FormatReport(r)
	if !strings.Contains(out, "波动率过高") || strings.Contains(out, "止盈") {
		t.Errorf("halted report should list reasons and omit targets:\n%s", out)
	}
}

func TestFormatBatchSummary(t *testing.T) {
	results := []*model.TrendAnalysisResult{
		{Symbol: "a", Score: 40, Recommendation: model.RecSell},
		nil,
		{Symbol: "b", Score: 80, Recommendation: model.RecBuy},
	}
	failures := []FailureEntry{{Symbol: "c", Error: "data unavailable", Providers: []string{"eastmoney", "sina"}}}
	out := FormatBatchSummary("run-1", results, failures)

	if strings.Index(out, "b:") > strings.Index(out, "a:") {
		t.Errorf("results should be ordered by score:\n%s", out)
	}
	if !strings.Contains(out, "eastmoney, sina") || !strings.Contains(out, "成功 2 | 失败 1") {
		t.Errorf("unexpected summary:\n%s", out)
	}
}

func TestFormatCapitalStatus(t *testing.T) {
	st := model.CapitalState{
		TotalCapital: decimal.NewFromInt(100000),
		MaxExposure:  80,
		Allocations: map[string]model.Allocation{
			"sh600519": {Symbol: "sh600519", Amount: decimal.NewFromInt(25000), Pct: 25},
		},
	}
	out := FormatCapitalStatus(st)
	if !strings.Contains(out, "¥100,000") || !strings.Contains(out, "已分配: ¥25,000") {
		t.Errorf("unexpected capital status:\n%s", out)
	}
}

func TestSplitMessage(t *testing.T) {
	text := strings.Repeat("一二三四五\n", 100)
	parts := SplitMessage(text, 64)
	if strings.Join(parts, "") != text {
		t.Fatal("split lost content")
	}
	for _, p := range parts {
		if len(p) > 64 {
			t.Errorf("part exceeds limit: %d", len(p))
		}
	}
	long := strings.Repeat("测", 50)
	for _, p := range SplitMessage(long, 10) {
		if !strings.HasPrefix(p, "测") {
			t.Errorf("split inside a rune: %q", p)
		}
	}
}

func TestParseCommand(t *testing.T) {
	tests := []struct {
		in   string
		cmd  string
		args int
	}{
		{"/analyze 600519", "/analyze", 1},
		{"/Analyze@trend_bot sh600519 sz000001", "/analyze", 2},
		{"  /help ", "/help", 0},
		{"", "", 0},
	}
	for _, tt := range tests {
		cmd, args := ParseCommand(tt.in)
		if cmd != tt.cmd || len(args) != tt.args {
			t.Errorf("ParseCommand(%q) = %q %v", tt.in, cmd, args)
		}
	}
}

func TestTelegram_Send(t *testing.T) {
	var got map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/botTOKEN/sendMessage" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		json.NewDecoder(r.Body).Decode(&got)
		w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	n := NewTelegramNotifier("TOKEN", "42", "", zerolog.Nop())
	n.APIBase = srv.URL
	if err := n.Send(context.Background(), "hello"); err != nil {
		t.Fatal(err)
	}
	if got["chat_id"] != "42" || got["text"] != "hello" || got["parse_mode"] != "HTML" {
		t.Errorf("unexpected payload %v", got)
	}
}

func TestTelegram_SendWithRetry(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	n := NewTelegramNotifier("TOKEN", "42", "", zerolog.Nop())
	n.APIBase = srv.URL
	n.RetryBase = time.Millisecond

	if err := n.SendWithRetry(context.Background(), "hi", 3); err != nil {
		t.Fatalf("expected success on third attempt: %v", err)
	}
	if calls != 3 {
		t.Errorf("expected 3 calls, got %d", calls)
	}

	atomic.StoreInt32(&calls, -100)
	if err := n.SendWithRetry(context.Background(), "hi", 1); err == nil {
		t.Error("expected exhausted retries")
	}
}

func TestLabels_CoverEveryValue(t *testing.T) {
	for _, tt := range []struct {
		got, want string
	}{
		{trendLabel(model.TrendUnknown), "未知"},
		{trendLabel(model.TrendStrongDown), "强势空头"},
		{regimeLabel(""), "未知"},
		{horizonLabel(model.HorizonShort), "短线"},
		{recLabel(model.RecStrongSell), "🔴 强烈卖出"},
		{dimensionLabel(model.DimSupport), "支撑"},
	} {
		if tt.got != tt.want {
			t.Errorf("got %q, want %q", tt.got, tt.want)
		}
	}
	for _, s := range []model.TrendStatus{
		model.TrendStrongUp, model.TrendUp, model.TrendWeakUp, model.TrendFlat,
		model.TrendWeakDown, model.TrendDown, model.TrendStrongDown,
	} {
		if trendLabel(s) == "" || trendLabel(s) == "未知" {
			t.Errorf("%s has no label", s)
		}
	}
	for _, d := range model.Dimensions {
		if dimensionLabel(d) == "未知" {
			t.Errorf("%s has no label", d)
		}
	}

	panics := map[string]func(){
		"trend":          func() { trendLabel("SIDEWAYS") },
		"recommendation": func() { recLabel("MAYBE") },
		"regime":         func() { regimeLabel("CRASH") },
		"horizon":        func() { horizonLabel("yearly") },
		"dimension":      func() { dimensionLabel("beta") },
	}
	for name, fn := range panics {
		func() {
			defer func() {
				if recover() == nil {
					t.Errorf("%s: unknown value should panic", name)
				}
			}()
			fn()
		}()
	}
}

func TestFormatReport_UnknownTrendAndLimit(t *testing.T) {
	r := &model.TrendAnalysisResult{
		Symbol:         "sh600519",
		Signals:        model.Signals{Trend: model.TrendUnknown},
		Recommendation: model.RecHold,
		Limit:          model.LimitMove{Up: true, Consecutive: 3},
		Resonance:      []string{"趋势多头", "MACD多头", "KDJ多头"},
		Warnings:       []string{"技术面强势但估值/资金因子转弱"},
	}
	out := FormatReport(r)
	for _, want := range []string{"趋势: 未知", "连3板", "共振: 趋势多头 + MACD多头 + KDJ多头", "⚠️ 技术面强势"} {
		if !strings.Contains(out, want) {
			t.Errorf("report lacks %q:\n%s", want, out)
		}
	}
}
