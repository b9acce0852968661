package scheduler

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"TrendSentinel/internal/collector"
	"TrendSentinel/internal/model"
	"TrendSentinel/internal/pipeline"
)

type fakeAnalyzer struct {
	mu      sync.Mutex
	single  []string
	batches [][]string
}

func (f *fakeAnalyzer) AnalyzeSymbol(_ context.Context, symbol, _ string) (*model.TrendAnalysisResult, error) {
	f.mu.Lock()
	f.single = append(f.single, symbol)
	f.mu.Unlock()
	if symbol == "sz000404" {
		return nil, errors.New("data unavailable")
	}
	return &model.TrendAnalysisResult{Symbol: symbol, Score: 70, Recommendation: model.RecBuy}, nil
}

func (f *fakeAnalyzer) RunBatch(_ context.Context, symbols []string) (*pipeline.BatchResult, error) {
	f.mu.Lock()
	f.batches = append(f.batches, symbols)
	f.mu.Unlock()
	return &pipeline.BatchResult{
		RunID:    "run-1",
		Results:  []*model.TrendAnalysisResult{{Symbol: symbols[0], Score: 70, Recommendation: model.RecBuy}},
		Failures: []pipeline.SymbolError{{Symbol: "sz000404", Err: errors.New("down"), Providers: []string{"eastmoney"}}},
	}, nil
}

type fakeSender struct {
	mu   sync.Mutex
	sent []string
}

func (f *fakeSender) SendWithRetry(_ context.Context, text string, _ int) error {
	f.mu.Lock()
	f.sent = append(f.sent, text)
	f.mu.Unlock()
	return nil
}

func newTestScheduler() (*Scheduler, *fakeAnalyzer, *fakeSender) {
	a := &fakeAnalyzer{}
	snd := &fakeSender{}
	wl := pipeline.NewWatchlist([]string{"600519", "000404"})
	cal := collector.NewTradingCalendar(time.UTC, []time.Time{time.Date(2024, 10, 1, 0, 0, 0, 0, time.UTC)})
	s := NewScheduler(context.Background(), a, wl, nil, snd, cal, zerolog.Nop())
	return s, a, snd
}

func TestHandleCommand(t *testing.T) {
	s, a, _ := newTestScheduler()
	ctx := context.Background()

	out := s.HandleCommand(ctx, "/analyze 600519 000404")
	if len(a.single) != 2 || a.single[0] != "sh600519" || a.single[1] != "sz000404" {
		t.Errorf("symbols not normalised: %v", a.single)
	}
	if !strings.Contains(out, "sh600519") || !strings.Contains(out, "❌ sz000404") {
		t.Errorf("unexpected reply:\n%s", out)
	}

	if out := s.HandleCommand(ctx, "/analyze"); !strings.Contains(out, "用法") {
		t.Errorf("expected usage, got %q", out)
	}
	if out := s.HandleCommand(ctx, "/watchlist"); !strings.Contains(out, "sz000404") {
		t.Errorf("unexpected watchlist reply %q", out)
	}
	if out := s.HandleCommand(ctx, "/capital"); !strings.Contains(out, "未启用") {
		t.Errorf("unexpected capital reply %q", out)
	}
	if out := s.HandleCommand(ctx, "hello"); !strings.Contains(out, "/analyze") {
		t.Errorf("unknown commands should get help, got %q", out)
	}
}

func TestDailyBatch_SendsSummaryAndReports(t *testing.T) {
	s, a, snd := newTestScheduler()
	s.now = func() time.Time { return time.Date(2024, 10, 8, 18, 0, 0, 0, time.UTC) }

	s.dailyBatch()
	if len(a.batches) != 1 || len(a.batches[0]) != 2 {
		t.Fatalf("expected one batch over the watchlist, got %v", a.batches)
	}
	if len(snd.sent) != 2 {
		t.Fatalf("expected summary and one report, got %d messages", len(snd.sent))
	}
	if !strings.Contains(snd.sent[0], "run-1") || !strings.Contains(snd.sent[0], "eastmoney") {
		t.Errorf("unexpected summary:\n%s", snd.sent[0])
	}
}

func TestDailyBatch_SkipsClosedDays(t *testing.T) {
	s, a, _ := newTestScheduler()
	for _, day := range []time.Time{
		time.Date(2024, 10, 1, 18, 0, 0, 0, time.UTC), // holiday
		time.Date(2024, 10, 5, 18, 0, 0, 0, time.UTC), // Saturday
	} {
		s.now = func() time.Time { return day }
		s.dailyBatch()
	}
	if len(a.batches) != 0 {
		t.Errorf("batch should not run on closed days, ran %d", len(a.batches))
	}
}

func TestRegisterAll_RejectsBadCronExpr(t *testing.T) {
	s, _, _ := newTestScheduler()
	if err := s.RegisterAll("not a cron"); err == nil {
		t.Error("expected error for invalid cron expression")
	}
	if err := s.RegisterAll("0 0 18 * * 1-5"); err != nil {
		t.Errorf("valid cron expression rejected: %v", err)
	}
}
