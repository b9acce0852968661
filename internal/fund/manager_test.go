package fund

import (
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"TrendSentinel/internal/model"
)

func newTestManager(t *testing.T) (*Manager, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "capital.json")
	m, err := NewManager(path, 100000, 50, zerolog.Nop())
	if err != nil {
		t.Fatal(err)
	}
	return m, path
}

func TestAllocate_CapsExposure(t *testing.T) {
	m, _ := newTestManager(t)

	a, err := m.Allocate("sh600519", 30)
	if err != nil {
		t.Fatal(err)
	}
	if !a.Equal(decimal.NewFromInt(30000)) {
		t.Errorf("expected 30000, got %s", a)
	}
	b, _ := m.Allocate("sz000001", 30)
	if !b.Equal(decimal.NewFromInt(20000)) {
		t.Errorf("second allocation should be trimmed to 20000, got %s", b)
	}
	if got := m.Exposure(); got != 50 {
		t.Errorf("expected exposure 50, got %v", got)
	}
	c, _ := m.Allocate("sh601318", 10)
	if !c.IsZero() {
		t.Errorf("no room left, got %s", c)
	}
	if len(m.Symbols()) != 2 {
		t.Errorf("zero allocations must not be stored: %v", m.Symbols())
	}
}

func TestAllocate_ReplacesAndReleases(t *testing.T) {
	m, _ := newTestManager(t)
	m.Allocate("sh600519", 30)
	a, _ := m.Allocate("sh600519", 10)
	if !a.Equal(decimal.NewFromInt(10000)) {
		t.Errorf("re-allocation should replace, got %s", a)
	}
	if err := m.Release("sh600519"); err != nil {
		t.Fatal(err)
	}
	if !m.Available().Equal(decimal.NewFromInt(50000)) {
		t.Errorf("release should free capital, available %s", m.Available())
	}
}

func TestState_Persists(t *testing.T) {
	m, path := newTestManager(t)
	m.Allocate("sh600519", 12.5)

	reloaded, err := NewManager(path, 1, 10, zerolog.Nop())
	if err != nil {
		t.Fatal(err)
	}
	st := reloaded.GetState()
	if !st.TotalCapital.Equal(decimal.NewFromInt(100000)) || st.MaxExposure != 50 {
		t.Errorf("persisted settings should win over config seed: %+v", st)
	}
	if a := st.Allocations["sh600519"]; !a.Amount.Equal(decimal.NewFromInt(12500)) || a.Pct != 12.5 {
		t.Errorf("unexpected allocation %+v", a)
	}
}

func TestApplyAdvice(t *testing.T) {
	m, _ := newTestManager(t)
	advice := model.PositionAdvice{Position: 60, Suggested: 30}
	if err := m.ApplyAdvice("sh600519", &advice); err != nil {
		t.Fatal(err)
	}
	if advice.Amount != 30000 {
		t.Errorf("expected 30000, got %v", advice.Amount)
	}
}
