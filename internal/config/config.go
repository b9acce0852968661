package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"

	"gopkg.in/yaml.v3"

	"TrendSentinel/internal/logging"
	"TrendSentinel/internal/model"
)

// ProviderConfig configures one adapter of the fallback chain.
type ProviderConfig struct {
	Name    string `yaml:"name"`
	Enabled *bool  `yaml:"enabled"`
	BaseURL string `yaml:"base_url"`
	Token   string `yaml:"token"`
}

// IsEnabled defaults to true when the flag is omitted.
func (p ProviderConfig) IsEnabled() bool {
	return p.Enabled == nil || *p.Enabled
}

// Config holds all application configuration.
type Config struct {
	Log logging.LogConfig `yaml:"log"`

	Providers struct {
		Chain       []ProviderConfig `yaml:"chain"`
		TimeoutSec  int              `yaml:"timeout_sec"`
		HistoryDays int              `yaml:"history_days"`
	} `yaml:"providers"`

	Breaker struct {
		MaxRequests    uint32  `yaml:"max_requests"`
		IntervalSec    int     `yaml:"interval_sec"`
		OpenTimeoutSec int     `yaml:"open_timeout_sec"`
		MinRequests    uint32  `yaml:"min_requests"`
		FailureRatio   float64 `yaml:"failure_ratio"`
	} `yaml:"breaker"`

	Market struct {
		IndexSymbol string   `yaml:"index_symbol"`
		Timezone    string   `yaml:"timezone"`
		HKTimezone  string   `yaml:"hk_timezone"`
		USTimezone  string   `yaml:"us_timezone"`
		SessionOpen string   `yaml:"session_open"` // HH:MM, quotes before it are ignored
		Holidays    []string `yaml:"holidays"`     // YYYY-MM-DD
	} `yaml:"market"`

	Analysis struct {
		MAWindows         []int   `yaml:"ma_windows"`
		Horizon           string  `yaml:"horizon"`
		RegimeMAWindow    int     `yaml:"regime_ma_window"`
		RegimeLookback    int     `yaml:"regime_lookback"`
		RegimeSlopePct    float64 `yaml:"regime_slope_pct"`
		RegimeSmoothDays  int     `yaml:"regime_smooth_days"`
		ValuationStrategy string  `yaml:"valuation_strategy"` // absolute | relative
		FundFlowStrategy  string  `yaml:"fund_flow_strategy"`  // absolute | relative
		IndexInflowSmall  float64 `yaml:"index_inflow_small"`  // 100M CNY
		IndexInflowLarge  float64 `yaml:"index_inflow_large"`
		MainInflowSmall   float64 `yaml:"main_inflow_small"` // 10K CNY
		MainInflowLarge   float64 `yaml:"main_inflow_large"`
		Concurrency       int     `yaml:"concurrency"`
		// Score bands, each the lower bound of its recommendation.
		BandStrongBuy float64 `yaml:"band_strong_buy"`
		BandBuy       float64 `yaml:"band_buy"`
		BandHold      float64 `yaml:"band_hold"`
		BandSell      float64 `yaml:"band_sell"`
	} `yaml:"analysis"`

	Advisory struct {
		Enabled    bool   `yaml:"enabled"`
		APIKey     string `yaml:"api_key"`
		BaseURL    string `yaml:"base_url"`
		Model      string `yaml:"model"`
		TimeoutSec int    `yaml:"timeout_sec"`
	} `yaml:"advisory"`

	Telegram struct {
		BotToken string `yaml:"bot_token"`
		ChatID   string `yaml:"chat_id"`
	} `yaml:"telegram"`

	Schedule struct {
		DailyCron string `yaml:"daily_cron"`
	} `yaml:"schedule"`

	Capital struct {
		TotalCapital float64 `yaml:"total_capital"`
		MaxExposure  float64 `yaml:"max_exposure_pct"`
		StateFile    string  `yaml:"state_file"`
	} `yaml:"capital"`

	Database struct {
		SQLitePath string `yaml:"sqlite_path"`
	} `yaml:"database"`

	Metrics struct {
		Addr string `yaml:"addr"`
	} `yaml:"metrics"`

	Watchlist []string `yaml:"watchlist"`
	Proxy     string   `yaml:"proxy"`
}

// Load reads config from a YAML file, fills defaults, then applies environment variable overrides.
func Load(path string) (*Config, error) {
	cfg := &Config{Log: logging.DefaultLogConfig()}

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	applyDefaults(cfg)
	applyEnv(cfg)
	return cfg, nil
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("TELEGRAM_BOT_TOKEN"); v != "" {
		cfg.Telegram.BotToken = v
	}
	if v := os.Getenv("TELEGRAM_CHAT_ID"); v != "" {
		cfg.Telegram.ChatID = v
	}
	if v := os.Getenv("TUSHARE_TOKEN"); v != "" {
		for i := range cfg.Providers.Chain {
			if cfg.Providers.Chain[i].Name == "tushare" {
				cfg.Providers.Chain[i].Token = v
			}
		}
	}
	if v := os.Getenv("OPENAI_API_KEY"); v != "" {
		cfg.Advisory.APIKey = v
	}
	if v := os.Getenv("OPENAI_BASE_URL"); v != "" {
		cfg.Advisory.BaseURL = v
	}
	if v := os.Getenv("HTTPS_PROXY"); v != "" {
		cfg.Proxy = v
	}
	if v := os.Getenv("STOCK_LIST"); v != "" {
		cfg.Watchlist = splitList(v)
	}
	if v := os.Getenv("TOTAL_CAPITAL"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Capital.TotalCapital = f
		}
	}
	if v := os.Getenv("CRON_DAILY"); v != "" {
		cfg.Schedule.DailyCron = v
	}
	if v := os.Getenv("SQLITE_PATH"); v != "" {
		cfg.Database.SQLitePath = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
}

// DefaultChain is the provider priority order used when none is configured.
var DefaultChain = []string{"eastmoney", "tencent", "sina", "tushare", "yahoo", "rest"}

func applyDefaults(cfg *Config) {
	if len(cfg.Providers.Chain) == 0 {
		for _, name := range DefaultChain {
			cfg.Providers.Chain = append(cfg.Providers.Chain, ProviderConfig{Name: name})
		}
	}
	if cfg.Providers.TimeoutSec == 0 {
		cfg.Providers.TimeoutSec = 15
	}
	if cfg.Providers.HistoryDays == 0 {
		cfg.Providers.HistoryDays = 400
	}
	if cfg.Breaker.MaxRequests == 0 {
		cfg.Breaker.MaxRequests = 1
	}
	if cfg.Breaker.IntervalSec == 0 {
		cfg.Breaker.IntervalSec = 600
	}
	if cfg.Breaker.OpenTimeoutSec == 0 {
		cfg.Breaker.OpenTimeoutSec = 300
	}
	if cfg.Breaker.MinRequests == 0 {
		cfg.Breaker.MinRequests = 5
	}
	if cfg.Breaker.FailureRatio == 0 {
		cfg.Breaker.FailureRatio = 0.6
	}
	if cfg.Market.IndexSymbol == "" {
		cfg.Market.IndexSymbol = "sh000001"
	}
	if cfg.Market.Timezone == "" {
		cfg.Market.Timezone = "Asia/Shanghai"
	}
	if cfg.Market.HKTimezone == "" {
		cfg.Market.HKTimezone = "Asia/Hong_Kong"
	}
	if cfg.Market.USTimezone == "" {
		cfg.Market.USTimezone = "America/New_York"
	}
	if cfg.Market.SessionOpen == "" {
		cfg.Market.SessionOpen = "09:25"
	}
	if len(cfg.Analysis.MAWindows) == 0 {
		cfg.Analysis.MAWindows = []int{5, 10, 20, 60}
	}
	if cfg.Analysis.Horizon == "" {
		cfg.Analysis.Horizon = "medium"
	}
	if cfg.Analysis.RegimeMAWindow == 0 {
		cfg.Analysis.RegimeMAWindow = 20
	}
	if cfg.Analysis.RegimeLookback == 0 {
		cfg.Analysis.RegimeLookback = 10
	}
	if cfg.Analysis.RegimeSlopePct == 0 {
		cfg.Analysis.RegimeSlopePct = 1.0
	}
	if cfg.Analysis.RegimeSmoothDays == 0 {
		cfg.Analysis.RegimeSmoothDays = 1
	}
	if cfg.Analysis.ValuationStrategy == "" {
		cfg.Analysis.ValuationStrategy = "absolute"
	}
	if cfg.Analysis.FundFlowStrategy == "" {
		cfg.Analysis.FundFlowStrategy = "absolute"
	}
	if cfg.Analysis.IndexInflowSmall == 0 {
		cfg.Analysis.IndexInflowSmall = 10
	}
	if cfg.Analysis.IndexInflowLarge == 0 {
		cfg.Analysis.IndexInflowLarge = 50
	}
	if cfg.Analysis.MainInflowSmall == 0 {
		cfg.Analysis.MainInflowSmall = 5000
	}
	if cfg.Analysis.MainInflowLarge == 0 {
		cfg.Analysis.MainInflowLarge = 15000
	}
	if cfg.Analysis.Concurrency == 0 {
		cfg.Analysis.Concurrency = 3
	}
	if cfg.Analysis.BandStrongBuy == 0 {
		cfg.Analysis.BandStrongBuy = 85
	}
	if cfg.Analysis.BandBuy == 0 {
		cfg.Analysis.BandBuy = 65
	}
	if cfg.Analysis.BandHold == 0 {
		cfg.Analysis.BandHold = 45
	}
	if cfg.Analysis.BandSell == 0 {
		cfg.Analysis.BandSell = 30
	}
	if cfg.Advisory.Model == "" {
		cfg.Advisory.Model = "gpt-4o-mini"
	}
	if cfg.Advisory.TimeoutSec == 0 {
		cfg.Advisory.TimeoutSec = 30
	}
	if cfg.Schedule.DailyCron == "" {
		cfg.Schedule.DailyCron = "0 0 18 * * 1-5"
	}
	if cfg.Capital.TotalCapital == 0 {
		cfg.Capital.TotalCapital = 100000
	}
	if cfg.Capital.MaxExposure == 0 {
		cfg.Capital.MaxExposure = 80
	}
	if cfg.Capital.StateFile == "" {
		cfg.Capital.StateFile = "data/capital_state.json"
	}
	if cfg.Database.SQLitePath == "" {
		cfg.Database.SQLitePath = "data/trendsentinel.db"
	}
	if cfg.Metrics.Addr == "" {
		cfg.Metrics.Addr = ":9108"
	}
}

// Validate checks that all required fields are set and consistent.
func (c *Config) Validate() error {
	if len(c.Providers.Chain) == 0 {
		return fmt.Errorf("providers.chain must not be empty")
	}
	seen := make(map[string]bool)
	for _, p := range c.Providers.Chain {
		if p.Name == "" {
			return fmt.Errorf("providers.chain: provider name is required")
		}
		if seen[p.Name] {
			return fmt.Errorf("providers.chain: duplicate provider %q", p.Name)
		}
		seen[p.Name] = true
	}
	if c.Providers.TimeoutSec <= 0 {
		return fmt.Errorf("providers.timeout_sec must be positive")
	}
	if _, err := c.MarketZones(); err != nil {
		return err
	}
	if _, _, err := c.SessionOpen(); err != nil {
		return fmt.Errorf("market.session_open: %w", err)
	}
	if _, err := c.Holidays(); err != nil {
		return fmt.Errorf("market.holidays: %w", err)
	}
	for _, w := range c.Analysis.MAWindows {
		if w <= 0 {
			return fmt.Errorf("analysis.ma_windows must be positive, got %d", w)
		}
	}
	switch c.Analysis.Horizon {
	case "intraday", "short", "medium":
	default:
		return fmt.Errorf("analysis.horizon must be intraday, short or medium, got %q", c.Analysis.Horizon)
	}
	switch c.Analysis.ValuationStrategy {
	case "absolute", "relative":
	default:
		return fmt.Errorf("analysis.valuation_strategy must be absolute or relative")
	}
	switch c.Analysis.FundFlowStrategy {
	case "absolute", "relative":
	default:
		return fmt.Errorf("analysis.fund_flow_strategy must be absolute or relative")
	}
	if c.Analysis.IndexInflowSmall > c.Analysis.IndexInflowLarge {
		return fmt.Errorf("analysis.index_inflow_small must not exceed index_inflow_large")
	}
	if c.Analysis.MainInflowSmall > c.Analysis.MainInflowLarge {
		return fmt.Errorf("analysis.main_inflow_small must not exceed main_inflow_large")
	}
	a := c.Analysis
	if !(a.BandStrongBuy <= 100 && a.BandStrongBuy > a.BandBuy && a.BandBuy > a.BandHold && a.BandHold > a.BandSell && a.BandSell > 0) {
		return fmt.Errorf("analysis bands must satisfy 100 >= strong_buy > buy > hold > sell > 0")
	}
	if a.Concurrency <= 0 {
		return fmt.Errorf("analysis.concurrency must be positive")
	}
	if c.Advisory.Enabled && c.Advisory.APIKey == "" {
		return fmt.Errorf("advisory.api_key is required when advisory is enabled")
	}
	if c.Capital.TotalCapital <= 0 {
		return fmt.Errorf("capital.total_capital must be positive")
	}
	return nil
}

// Location returns the exchange timezone.
func (c *Config) Location() (*time.Location, error) {
	return time.LoadLocation(c.Market.Timezone)
}

// MarketZones loads the zone of every market.
func (c *Config) MarketZones() (map[model.Market]*time.Location, error) {
	out := make(map[model.Market]*time.Location, 3)
	for _, z := range []struct {
		market model.Market
		key    string
		name   string
	}{
		{model.MarketCN, "market.timezone", c.Market.Timezone},
		{model.MarketHK, "market.hk_timezone", c.Market.HKTimezone},
		{model.MarketUS, "market.us_timezone", c.Market.USTimezone},
	} {
		loc, err := time.LoadLocation(z.name)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", z.key, err)
		}
		out[z.market] = loc
	}
	return out, nil
}

// SessionOpen parses market.session_open as hour and minute.
func (c *Config) SessionOpen() (int, int, error) {
	t, err := time.Parse("15:04", c.Market.SessionOpen)
	if err != nil {
		return 0, 0, err
	}
	return t.Hour(), t.Minute(), nil
}

// Holidays parses market.holidays.
func (c *Config) Holidays() ([]time.Time, error) {
	out := make([]time.Time, 0, len(c.Market.Holidays))
	for _, h := range c.Market.Holidays {
		d, err := time.Parse("2006-01-02", h)
		if err != nil {
			return nil, fmt.Errorf("parse %q: %w", h, err)
		}
		out = append(out, d)
	}
	return out, nil
}

// ProviderTimeout returns the per-call provider budget.
func (c *Config) ProviderTimeout() time.Duration {
	return time.Duration(c.Providers.TimeoutSec) * time.Second
}

// AdvisoryTimeout returns the advisory budget.
func (c *Config) AdvisoryTimeout() time.Duration {
	return time.Duration(c.Advisory.TimeoutSec) * time.Second
}

func splitList(v string) []string {
	var out []string
	for _, s := range strings.Split(v, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
