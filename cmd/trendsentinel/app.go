package main

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog"

	"TrendSentinel/internal/advisory"
	"TrendSentinel/internal/collector"
	"TrendSentinel/internal/config"
	"TrendSentinel/internal/fund"
	"TrendSentinel/internal/logging"
	"TrendSentinel/internal/metrics"
	"TrendSentinel/internal/model"
	"TrendSentinel/internal/notifier"
	"TrendSentinel/internal/pipeline"
	"TrendSentinel/internal/recorder"
	"TrendSentinel/internal/regime"
	"TrendSentinel/internal/strategy"
)

// app holds every wired component of one process.
type app struct {
	cfg       *config.Config
	logger    zerolog.Logger
	registry  *prometheus.Registry
	metrics   *metrics.Metrics
	calendar  *collector.TradingCalendar
	manager   *collector.Manager
	runner    *pipeline.Runner
	recorder  recorder.Recorder
	fund      *fund.Manager
	watchlist *pipeline.Watchlist
	telegram  *notifier.TelegramNotifier
}

func newApp(cfgPath string) (*app, error) {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}
	logger := logging.NewLoggerWithConfig(cfg.Log)

	loc, _ := cfg.Location()
	mz, _ := cfg.MarketZones()
	zones := collector.MarketZones(mz)
	holidays, _ := cfg.Holidays()
	openHour, openMinute, _ := cfg.SessionOpen()

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	mt := metrics.New(reg)

	providers, err := buildProviders(cfg, zones)
	if err != nil {
		return nil, err
	}
	manager := collector.NewManager(providers,
		collector.WithTimeout(cfg.ProviderTimeout()),
		collector.WithLogger(logger),
		collector.WithMetrics(mt),
		collector.WithBreakerSettings(collector.BreakerSettings{
			MaxRequests:  cfg.Breaker.MaxRequests,
			Interval:     time.Duration(cfg.Breaker.IntervalSec) * time.Second,
			OpenTimeout:  time.Duration(cfg.Breaker.OpenTimeoutSec) * time.Second,
			MinRequests:  cfg.Breaker.MinRequests,
			FailureRatio: cfg.Breaker.FailureRatio,
		}),
	)
	calendar := collector.NewTradingCalendar(loc, holidays)
	calendar.Zones = zones
	splicer := collector.NewSplicer(calendar, openHour, openMinute, logger)
	col := collector.NewCollector(manager, splicer, cfg.Providers.HistoryDays, logger)

	engine, err := buildEngine(cfg, logger)
	if err != nil {
		return nil, err
	}

	var rec recorder.Recorder = recorder.NewNoopRecorder()
	if cfg.Database.SQLitePath != "" {
		sr, err := recorder.NewSQLiteRecorder(cfg.Database.SQLitePath, logger)
		if err != nil {
			logger.Warn().Err(err).Msg("init sqlite recorder failed, using noop")
		} else {
			rec = sr
		}
	}

	fm, err := fund.NewManager(cfg.Capital.StateFile, cfg.Capital.TotalCapital, cfg.Capital.MaxExposure, logger)
	if err != nil {
		rec.Close()
		return nil, fmt.Errorf("init capital manager: %w", err)
	}

	var adv advisory.Advisor
	if cfg.Advisory.Enabled {
		adv = advisory.NewOpenAIAdvisor(cfg.Advisory.APIKey, cfg.Advisory.BaseURL, cfg.Advisory.Model, cfg.Proxy)
	}

	runner := pipeline.NewRunner(pipeline.Options{
		Collector: col,
		Engine:    engine,
		Advisory:  advisory.NewRunner(adv, cfg.AdvisoryTimeout(), logger),
		Recorder:  rec,
		Fund:      fm,
		Metrics:   mt,
		Regime: regime.Settings{
			MAWindow:   cfg.Analysis.RegimeMAWindow,
			Lookback:   cfg.Analysis.RegimeLookback,
			SlopePct:   cfg.Analysis.RegimeSlopePct,
			SmoothDays: cfg.Analysis.RegimeSmoothDays,
		},
		IndexSymbol: cfg.Market.IndexSymbol,
		Horizon:     model.Horizon(cfg.Analysis.Horizon),
		MAWindows:   cfg.Analysis.MAWindows,
		Concurrency: cfg.Analysis.Concurrency,
	}, logger)

	a := &app{
		cfg:       cfg,
		logger:    logger,
		registry:  reg,
		metrics:   mt,
		calendar:  calendar,
		manager:   manager,
		runner:    runner,
		recorder:  rec,
		fund:      fm,
		watchlist: pipeline.NewWatchlist(cfg.Watchlist),
	}
	if cfg.Telegram.BotToken != "" && cfg.Telegram.ChatID != "" {
		a.telegram = notifier.NewTelegramNotifier(cfg.Telegram.BotToken, cfg.Telegram.ChatID, cfg.Proxy, logger)
	}
	return a, nil
}

func (a *app) Close() {
	if err := a.recorder.Close(); err != nil {
		a.logger.Warn().Err(err).Msg("close recorder")
	}
}

// buildProviders turns the configured chain into adapters, keeping its order.
func buildProviders(cfg *config.Config, zones collector.MarketZones) ([]collector.Provider, error) {
	var out []collector.Provider
	for _, pc := range cfg.Providers.Chain {
		if !pc.IsEnabled() {
			continue
		}
		switch pc.Name {
		case "eastmoney":
			out = append(out, collector.NewEastmoneyProvider(cfg.Proxy, zones))
		case "tencent":
			out = append(out, collector.NewTencentProvider(cfg.Proxy, zones))
		case "sina":
			out = append(out, collector.NewSinaProvider(cfg.Proxy, zones))
		case "tushare":
			if pc.Token == "" {
				continue
			}
			out = append(out, collector.NewTushareProvider(pc.BaseURL, pc.Token, cfg.Proxy, zones))
		case "yahoo":
			out = append(out, collector.NewYahooProvider(cfg.Proxy, zones))
		case "rest":
			if pc.BaseURL == "" {
				continue
			}
			out = append(out, collector.NewRESTProvider(pc.BaseURL, pc.Token, cfg.Proxy, zones))
		case "mock":
			out = append(out, &collector.MockProvider{Price: 10})
		default:
			return nil, fmt.Errorf("unknown provider %q", pc.Name)
		}
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("no usable provider in chain")
	}
	return out, nil
}

func buildEngine(cfg *config.Config, logger zerolog.Logger) (*strategy.Engine, error) {
	val, err := strategy.NewValuationStrategy(cfg.Analysis.ValuationStrategy)
	if err != nil {
		return nil, err
	}
	flow, err := strategy.NewFundFlowStrategy(cfg.Analysis.FundFlowStrategy, strategy.FlowThresholds{
		IndexSmall: cfg.Analysis.IndexInflowSmall,
		IndexLarge: cfg.Analysis.IndexInflowLarge,
		MainSmall:  cfg.Analysis.MainInflowSmall,
		MainLarge:  cfg.Analysis.MainInflowLarge,
	})
	if err != nil {
		return nil, err
	}
	bands := strategy.Bands{
		StrongBuy: cfg.Analysis.BandStrongBuy,
		Buy:       cfg.Analysis.BandBuy,
		Hold:      cfg.Analysis.BandHold,
		Sell:      cfg.Analysis.BandSell,
	}
	if err := bands.Validate(); err != nil {
		return nil, err
	}
	return strategy.NewEngine(strategy.Settings{Valuation: val, FundFlow: flow, Bands: bands}, logger), nil
}
