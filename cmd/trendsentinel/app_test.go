package main

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"TrendSentinel/internal/collector"
	"TrendSentinel/internal/config"
	"TrendSentinel/internal/model"
)

func loadDefaults(t *testing.T) *config.Config {
	t.Helper()
	cfg, err := config.Load(filepath.Join(t.TempDir(), "none.yaml"))
	if err != nil {
		t.Fatal(err)
	}
	return cfg
}

func TestBuildProviders_SkipsUnconfigured(t *testing.T) {
	cfg := loadDefaults(t)
	ps, err := buildProviders(cfg, collector.NewMarketZones(time.UTC))
	if err != nil {
		t.Fatal(err)
	}
	// tushare has no token and rest no base URL by default.
	want := []string{"eastmoney", "tencent", "sina", "yahoo"}
	if len(ps) != len(want) {
		t.Fatalf("expected %d providers, got %d", len(want), len(ps))
	}
	for i, p := range ps {
		if p.Name() != want[i] {
			t.Errorf("provider %d: expected %s, got %s", i, want[i], p.Name())
		}
	}
}

func TestBuildProviders_Unknown(t *testing.T) {
	cfg := loadDefaults(t)
	cfg.Providers.Chain = []config.ProviderConfig{{Name: "bloomberg"}}
	if _, err := buildProviders(cfg, collector.NewMarketZones(time.UTC)); err == nil {
		t.Error("expected error for unknown provider")
	}
}

func TestBuildEngine(t *testing.T) {
	cfg := loadDefaults(t)
	if _, err := buildEngine(cfg, zerolog.Nop()); err != nil {
		t.Fatal(err)
	}
	cfg.Analysis.FundFlowStrategy = "magic"
	if _, err := buildEngine(cfg, zerolog.Nop()); err == nil {
		t.Error("expected error for unknown fund flow strategy")
	}
}

func TestNewRootCmd_Subcommands(t *testing.T) {
	root := newRootCmd()
	for _, name := range []string{"serve", "analyze", "providers"} {
		if c, _, err := root.Find([]string{name}); err != nil || c.Name() != name {
			t.Errorf("subcommand %s not registered", name)
		}
	}
}

func TestNewApp_WiresMarketZones(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	yml := fmt.Sprintf(`
log:
  level: error
market:
  us_timezone: America/Chicago
capital:
  total_capital: 100000
  state_file: %q
database:
  sqlite_path: %q
`, filepath.Join(dir, "capital.json"), filepath.Join(dir, "trend.db"))
	if err := os.WriteFile(path, []byte(yml), 0644); err != nil {
		t.Fatal(err)
	}

	a, err := newApp(path)
	if err != nil {
		t.Fatalf("newApp: %v", err)
	}
	defer a.Close()

	for m, want := range map[model.Market]string{
		model.MarketCN: "Asia/Shanghai",
		model.MarketHK: "Asia/Hong_Kong",
		model.MarketUS: "America/Chicago",
	} {
		if got := a.calendar.Zone(m).String(); got != want {
			t.Errorf("%s zone: expected %s, got %s", m, want, got)
		}
	}
}
