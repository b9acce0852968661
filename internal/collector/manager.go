package collector

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/sony/gobreaker/v2"

	apperrors "TrendSentinel/internal/errors"
	"TrendSentinel/internal/metrics"
	"TrendSentinel/internal/model"
)

// BreakerSettings configures the per-provider circuit breakers.
type BreakerSettings struct {
	MaxRequests  uint32        // requests allowed while half-open
	Interval     time.Duration // cyclic period of the closed state to clear counts
	OpenTimeout  time.Duration // period of the open state before half-open
	MinRequests  uint32
	FailureRatio float64
}

// DefaultBreakerSettings trips a provider after 5 calls with at least 60% failures.
var DefaultBreakerSettings = BreakerSettings{
	MaxRequests:  1,
	Interval:     10 * time.Minute,
	OpenTimeout:  5 * time.Minute,
	MinRequests:  5,
	FailureRatio: 0.6,
}

// ProviderStatus describes one chain entry and its breaker.
type ProviderStatus struct {
	Name     string
	Priority int
	State    string
	Requests uint32
	Failures uint32
}

// Manager walks a static priority chain of providers and returns the first
// valid answer. Failed providers are not retried within the same call and
// bars are never merged across providers.
type Manager struct {
	providers []Provider
	breakers  map[string]*gobreaker.CircuitBreaker[any]
	timeout   time.Duration
	settings  BreakerSettings
	logger    zerolog.Logger
	metrics   *metrics.Metrics
}

// ManagerOption customises a Manager.
type ManagerOption func(*Manager)

// WithTimeout bounds every provider call.
func WithTimeout(d time.Duration) ManagerOption {
	return func(m *Manager) { m.timeout = d }
}

// WithLogger sets the logger used for fallback events.
func WithLogger(l zerolog.Logger) ManagerOption {
	return func(m *Manager) { m.logger = l }
}

// WithMetrics records provider calls and breaker transitions.
func WithMetrics(mt *metrics.Metrics) ManagerOption {
	return func(m *Manager) { m.metrics = mt }
}

// WithBreakerSettings overrides DefaultBreakerSettings.
func WithBreakerSettings(s BreakerSettings) ManagerOption {
	return func(m *Manager) { m.settings = s }
}

// NewManager creates a manager over providers in priority order.
func NewManager(providers []Provider, opts ...ManagerOption) *Manager {
	m := &Manager{
		providers: providers,
		breakers:  make(map[string]*gobreaker.CircuitBreaker[any], len(providers)),
		timeout:   15 * time.Second,
		settings:  DefaultBreakerSettings,
		logger:    zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(m)
	}
	for _, p := range providers {
		m.breakers[p.Name()] = m.newBreaker(p.Name())
	}
	return m
}

func (m *Manager) newBreaker(name string) *gobreaker.CircuitBreaker[any] {
	s := m.settings
	return gobreaker.NewCircuitBreaker[any](gobreaker.Settings{
		Name:        name,
		MaxRequests: s.MaxRequests,
		Interval:    s.Interval,
		Timeout:     s.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < s.MinRequests {
				return false
			}
			return float64(counts.TotalFailures)/float64(counts.Requests) >= s.FailureRatio
		},
		// Unsupported operations and caller cancellation say nothing about provider health.
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, apperrors.ErrNotSupported) || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			m.logger.Warn().
				Str("provider", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("circuit breaker state change")
			m.metrics.SetBreakerState(name, stateToInt(to))
		},
	})
}

// Providers returns the chain in priority order.
func (m *Manager) Providers() []Provider {
	return m.providers
}

// Status reports every provider with its breaker state.
func (m *Manager) Status() []ProviderStatus {
	out := make([]ProviderStatus, 0, len(m.providers))
	for i, p := range m.providers {
		cb := m.breakers[p.Name()]
		counts := cb.Counts()
		out = append(out, ProviderStatus{
			Name:     p.Name(),
			Priority: i + 1,
			State:    cb.State().String(),
			Requests: counts.Requests,
			Failures: counts.TotalFailures,
		})
	}
	return out
}

type callResult[T any] struct {
	v   T
	err error
}

// attempt runs fn against one provider under its breaker and the per-call timeout.
// fn runs in its own goroutine so a provider that ignores ctx cannot stall the chain.
func attempt[T any](ctx context.Context, m *Manager, p Provider, op string, fn func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	cb := m.breakers[p.Name()]
	start := time.Now()

	res, err := cb.Execute(func() (any, error) {
		callCtx, cancel := context.WithTimeout(ctx, m.timeout)
		defer cancel()

		ch := make(chan callResult[T], 1)
		go func() {
			v, err := fn(callCtx)
			ch <- callResult[T]{v, err}
		}()
		select {
		case r := <-ch:
			return r.v, r.err
		case <-callCtx.Done():
			return zero, fmt.Errorf("%s timed out after %s: %w", op, m.timeout, callCtx.Err())
		}
	})

	outcome := "ok"
	switch {
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		outcome = "breaker_open"
		err = fmt.Errorf("%w: %v", apperrors.ErrBreakerOpen, err)
	case errors.Is(err, context.DeadlineExceeded):
		outcome = "timeout"
	case err != nil:
		outcome = "error"
	}
	m.metrics.ObserveProviderCall(p.Name(), op, outcome, time.Since(start))
	if err != nil {
		return zero, err
	}
	return res.(T), nil
}

// GetHistory returns the first valid history in priority order.
func (m *Manager) GetHistory(ctx context.Context, symbol string, start, end time.Time) (*model.SymbolSeries, error) {
	const op = "history"
	failed := &apperrors.DataUnavailable{Symbol: symbol, Op: op}

	for _, p := range m.providers {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		bars, err := attempt(ctx, m, p, op, func(ctx context.Context) ([]model.DailyBar, error) {
			return p.FetchHistory(ctx, symbol, start, end)
		})
		if err == nil {
			bars, err = normalizeBars(bars)
		}
		if err != nil {
			m.logFailure(p.Name(), op, symbol, err)
			failed.Attempts = append(failed.Attempts, apperrors.NewProviderFailure(p.Name(), op, err))
			continue
		}

		m.logger.Debug().Str("provider", p.Name()).Str("symbol", symbol).Int("bars", len(bars)).Msg("history fetched")
		return &model.SymbolSeries{
			Symbol:    symbol,
			Market:    ParseSymbol(symbol).Market,
			Source:    p.Name(),
			Bars:      bars,
			FetchedAt: time.Now(),
		}, nil
	}

	m.metrics.IncDataUnavailable(op)
	return nil, failed
}

// GetQuote returns the first valid real-time quote in priority order.
// A *DataUnavailable error means no quote; callers splice nothing.
func (m *Manager) GetQuote(ctx context.Context, symbol string) (*model.Quote, error) {
	const op = "quote"
	failed := &apperrors.DataUnavailable{Symbol: symbol, Op: op}

	for _, p := range m.providers {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		q, err := attempt(ctx, m, p, op, func(ctx context.Context) (*model.Quote, error) {
			return p.FetchQuote(ctx, symbol)
		})
		if err == nil {
			err = validateQuote(q)
		}
		if err != nil {
			m.logFailure(p.Name(), op, symbol, err)
			failed.Attempts = append(failed.Attempts, apperrors.NewProviderFailure(p.Name(), op, err))
			continue
		}
		if q.Source == "" {
			q.Source = p.Name()
		}
		return q, nil
	}

	m.metrics.IncDataUnavailable(op)
	return nil, failed
}

// GetValuation asks the providers that expose valuation multiples, in priority order.
func (m *Manager) GetValuation(ctx context.Context, symbol string) (*model.Valuation, error) {
	const op = "valuation"
	failed := &apperrors.DataUnavailable{Symbol: symbol, Op: op}
	for _, p := range m.providers {
		vp, ok := p.(ValuationProvider)
		if !ok {
			continue
		}
		v, err := attempt(ctx, m, p, op, func(ctx context.Context) (*model.Valuation, error) {
			return vp.FetchValuation(ctx, symbol)
		})
		if err == nil && v == nil {
			err = apperrors.ErrInvalidData
		}
		if err != nil {
			m.logFailure(p.Name(), op, symbol, err)
			failed.Attempts = append(failed.Attempts, apperrors.NewProviderFailure(p.Name(), op, err))
			continue
		}
		return v, nil
	}
	if len(failed.Attempts) == 0 {
		return nil, fmt.Errorf("valuation for %s: %w", symbol, apperrors.ErrNotSupported)
	}
	return nil, failed
}

// GetFundFlow asks the providers that expose capital flows, in priority order.
func (m *Manager) GetFundFlow(ctx context.Context, symbol string) (*model.FundFlow, error) {
	const op = "fund_flow"
	failed := &apperrors.DataUnavailable{Symbol: symbol, Op: op}
	for _, p := range m.providers {
		fp, ok := p.(FundFlowProvider)
		if !ok {
			continue
		}
		f, err := attempt(ctx, m, p, op, func(ctx context.Context) (*model.FundFlow, error) {
			return fp.FetchFundFlow(ctx, symbol)
		})
		if err == nil && f == nil {
			err = apperrors.ErrInvalidData
		}
		if err != nil {
			m.logFailure(p.Name(), op, symbol, err)
			failed.Attempts = append(failed.Attempts, apperrors.NewProviderFailure(p.Name(), op, err))
			continue
		}
		return f, nil
	}
	if len(failed.Attempts) == 0 {
		return nil, fmt.Errorf("fund flow for %s: %w", symbol, apperrors.ErrNotSupported)
	}
	return nil, failed
}

func (m *Manager) logFailure(provider, op, symbol string, err error) {
	ev := m.logger.Warn()
	if errors.Is(err, apperrors.ErrNotSupported) {
		ev = m.logger.Debug()
	}
	ev.Err(err).
		Str("provider", provider).
		Str("operation", op).
		Str("symbol", symbol).
		Msg("provider failed, falling back")
}

// stateToInt converts a breaker state for the gauge: 0=closed, 1=half-open, 2=open.
func stateToInt(state gobreaker.State) int {
	switch state {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return -1
	}
}
