package scheduler

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"TrendSentinel/internal/collector"
	"TrendSentinel/internal/fund"
	"TrendSentinel/internal/model"
	"TrendSentinel/internal/notifier"
	"TrendSentinel/internal/pipeline"
)

// Analyzer runs single-symbol and batch analyses.
type Analyzer interface {
	AnalyzeSymbol(ctx context.Context, symbol, runID string) (*model.TrendAnalysisResult, error)
	RunBatch(ctx context.Context, symbols []string) (*pipeline.BatchResult, error)
}

// Sender delivers notifications with retry.
type Sender interface {
	SendWithRetry(ctx context.Context, text string, maxRetries int) error
}

// Scheduler owns the cron jobs and the bot commands.
type Scheduler struct {
	Cron      *cron.Cron
	Analyzer  Analyzer
	Watchlist *pipeline.Watchlist
	Fund      *fund.Manager
	Notifier  Sender
	Calendar  *collector.TradingCalendar
	Ctx       context.Context

	logger  zerolog.Logger
	now     func() time.Time
	running atomic.Bool
}

// NewScheduler creates a new Scheduler. fm, sender and cal may be nil.
func NewScheduler(ctx context.Context, a Analyzer, wl *pipeline.Watchlist, fm *fund.Manager, sender Sender, cal *collector.TradingCalendar, logger zerolog.Logger) *Scheduler {
	logger = logger.With().Str("component", "scheduler").Logger()
	cl := cronLogger{logger}
	return &Scheduler{
		Cron: cron.New(
			cron.WithSeconds(),
			cron.WithLogger(cl),
			cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
		),
		Analyzer:  a,
		Watchlist: wl,
		Fund:      fm,
		Notifier:  sender,
		Calendar:  cal,
		Ctx:       ctx,
		logger:    logger,
		now:       time.Now,
	}
}

// RegisterAll registers the daily batch.
func (s *Scheduler) RegisterAll(dailyCron string) error {
	if _, err := s.Cron.AddFunc(dailyCron, s.dailyBatch); err != nil {
		return fmt.Errorf("register daily batch: %w", err)
	}
	return nil
}

// Start starts the cron scheduler.
func (s *Scheduler) Start() {
	s.Cron.Start()
	s.logger.Info().Msg("scheduler started")
}

// Stop stops the cron scheduler and waits for a running batch.
func (s *Scheduler) Stop() {
	<-s.Cron.Stop().Done()
	s.logger.Info().Msg("scheduler stopped")
}

// RunDailyNow executes the daily batch immediately (manual trigger / RUN_ON_START).
// It ignores the trading calendar.
func (s *Scheduler) RunDailyNow() {
	s.runBatch()
}

func (s *Scheduler) dailyBatch() {
	if s.Calendar != nil && !s.Calendar.IsTradingDay(s.now(), model.MarketCN) {
		s.logger.Info().Msg("not a trading day, skipping daily batch")
		return
	}
	s.runBatch()
}

func (s *Scheduler) runBatch() {
	if !s.running.CompareAndSwap(false, true) {
		s.logger.Warn().Msg("batch already running, skipped")
		return
	}
	defer s.running.Store(false)

	symbols := s.Watchlist.Symbols()
	if len(symbols) == 0 {
		s.logger.Warn().Msg("watchlist empty, nothing to analyse")
		return
	}
	s.logger.Info().Strs("symbols", symbols).Msg("running daily batch")

	batch, err := s.Analyzer.RunBatch(s.Ctx, symbols)
	if err != nil {
		s.logger.Error().Err(err).Msg("daily batch")
		s.trySend(fmt.Sprintf("❌ 每日分析失败: %v", err))
		return
	}

	failures := make([]notifier.FailureEntry, 0, len(batch.Failures))
	for _, f := range batch.Failures {
		failures = append(failures, notifier.FailureEntry{Symbol: f.Symbol, Error: f.Err.Error(), Providers: f.Providers})
	}
	s.trySend(notifier.FormatBatchSummary(batch.RunID, batch.Results, failures))
	for _, r := range batch.Results {
		s.trySend(notifier.FormatReport(r))
	}
	if s.Fund != nil {
		s.trySend(notifier.FormatCapitalStatus(s.Fund.GetState()))
	}
}

// HandleCommand processes a user command and returns a reply.
func (s *Scheduler) HandleCommand(ctx context.Context, command string) string {
	cmd, args := notifier.ParseCommand(command)
	switch cmd {
	case "/analyze", "/a":
		if len(args) == 0 {
			return "用法: /analyze CODE (如 /analyze 600519)"
		}
		replies := make([]string, 0, len(args))
		for _, raw := range args {
			symbol := collector.ParseSymbol(raw).Prefixed()
			res, err := s.Analyzer.AnalyzeSymbol(ctx, symbol, "")
			if err != nil {
				s.logger.Warn().Err(err).Str("symbol", symbol).Msg("command analysis failed")
				replies = append(replies, notifier.FormatFailure(notifier.FailureEntry{Symbol: symbol, Error: err.Error()}))
				continue
			}
			replies = append(replies, notifier.FormatReport(res))
		}
		return strings.Join(replies, "\n")
	case "/watchlist":
		return notifier.FormatWatchlist(s.Watchlist.Symbols())
	case "/capital":
		if s.Fund == nil {
			return "资金管理未启用"
		}
		return notifier.FormatCapitalStatus(s.Fund.GetState())
	case "/run":
		go s.RunDailyNow()
		return "⏳ 已开始分析自选股"
	default:
		return notifier.HelpText
	}
}

func (s *Scheduler) trySend(text string) {
	if s.Notifier == nil {
		return
	}
	if err := s.Notifier.SendWithRetry(s.Ctx, text, 3); err != nil {
		s.logger.Error().Err(err).Msg("send notification")
	}
}

// cronLogger adapts zerolog to cron.Logger.
type cronLogger struct {
	l zerolog.Logger
}

func (c cronLogger) Info(msg string, keysAndValues ...interface{}) {
	c.l.Debug().Fields(keysAndValues).Msg(msg)
}

func (c cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	c.l.Error().Err(err).Fields(keysAndValues).Msg(msg)
}
