// Package fund converts suggested position percentages into currency amounts
// against a persisted capital budget.
package fund

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"TrendSentinel/internal/model"
)

var hundred = decimal.NewFromInt(100)

// Manager tracks per-symbol allocations with concurrency safety.
type Manager struct {
	mu       sync.Mutex
	state    *model.CapitalState
	filePath string
	logger   zerolog.Logger
}

// NewManager creates a Manager, loading or initializing state from disk.
// Configured capital and exposure only seed a fresh state.
func NewManager(filePath string, totalCapital, maxExposurePct float64, logger zerolog.Logger) (*Manager, error) {
	state, err := LoadState(filePath)
	if err != nil {
		return nil, err
	}
	if state.TotalCapital.IsZero() {
		state.TotalCapital = decimal.NewFromFloat(totalCapital).Round(2)
	}
	if state.MaxExposure <= 0 {
		state.MaxExposure = maxExposurePct
	}
	if state.MaxExposure <= 0 || state.MaxExposure > 100 {
		state.MaxExposure = 80
	}

	m := &Manager{state: state, filePath: filePath, logger: logger}
	if err := m.save(); err != nil {
		return nil, err
	}
	return m, nil
}

// GetState returns a copy of the current capital state.
func (m *Manager) GetState() model.CapitalState {
	m.mu.Lock()
	defer m.mu.Unlock()
	c := *m.state
	c.Allocations = make(map[string]model.Allocation, len(m.state.Allocations))
	for k, v := range m.state.Allocations {
		c.Allocations[k] = v
	}
	return c
}

// Allocate reserves pct percent of total capital for symbol, replacing any
// earlier allocation of that symbol. The amount is trimmed so the sum of all
// allocations never exceeds the exposure cap. pct <= 0 releases the symbol.
func (m *Manager) Allocate(symbol string, pct float64) (decimal.Decimal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.state.Allocations, symbol)
	if pct <= 0 {
		return decimal.Zero, m.save()
	}

	want := m.state.TotalCapital.Mul(decimal.NewFromFloat(pct)).Div(hundred).Round(2)
	room := m.capLocked().Sub(m.allocatedLocked())
	amount := decimal.Min(want, room)
	if amount.IsNegative() {
		amount = decimal.Zero
	}
	if amount.LessThan(want) {
		m.logger.Info().Str("symbol", symbol).
			Str("wanted", want.StringFixed(2)).
			Str("granted", amount.StringFixed(2)).
			Msg("allocation trimmed by exposure cap")
	}
	if amount.IsPositive() {
		m.state.Allocations[symbol] = model.Allocation{
			Symbol:    symbol,
			Amount:    amount,
			Pct:       amount.Div(m.state.TotalCapital).Mul(hundred).InexactFloat64(),
			UpdatedAt: time.Now(),
		}
	}
	if err := m.save(); err != nil {
		return amount, fmt.Errorf("save capital state: %w", err)
	}
	return amount, nil
}

// Release frees the allocation of symbol.
func (m *Manager) Release(symbol string) error {
	_, err := m.Allocate(symbol, 0)
	return err
}

// Available returns the capital still allocatable under the exposure cap.
func (m *Manager) Available() decimal.Decimal {
	m.mu.Lock()
	defer m.mu.Unlock()
	return decimal.Max(decimal.Zero, m.capLocked().Sub(m.allocatedLocked()))
}

// Exposure returns allocated capital as a percentage of total.
func (m *Manager) Exposure() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.state.TotalCapital.IsPositive() {
		return 0
	}
	return m.allocatedLocked().Div(m.state.TotalCapital).Mul(hundred).InexactFloat64()
}

// Symbols lists allocated symbols in order.
func (m *Manager) Symbols() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, 0, len(m.state.Allocations))
	for s := range m.state.Allocations {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}

// ApplyAdvice fills advice.Amount from the suggested percentage.
func (m *Manager) ApplyAdvice(symbol string, advice *model.PositionAdvice) error {
	amount, err := m.Allocate(symbol, advice.Suggested)
	advice.Amount = amount.InexactFloat64()
	return err
}

func (m *Manager) capLocked() decimal.Decimal {
	return m.state.TotalCapital.Mul(decimal.NewFromFloat(m.state.MaxExposure)).Div(hundred)
}

func (m *Manager) allocatedLocked() decimal.Decimal {
	sum := decimal.Zero
	for _, a := range m.state.Allocations {
		sum = sum.Add(a.Amount)
	}
	return sum
}

func (m *Manager) save() error {
	return SaveState(m.filePath, m.state)
}
