// Package errors provides the error kinds shared by the data and analysis layers.
package errors

import (
	"errors"
	"fmt"
	"strings"
)

// Standard sentinel errors
var (
	ErrInsufficientHistory = errors.New("insufficient history")
	ErrQuoteUnavailable    = errors.New("quote unavailable")
	ErrNotSupported        = errors.New("operation not supported by provider")
	ErrInvalidData         = errors.New("invalid data")
	ErrBreakerOpen         = errors.New("circuit breaker open")
	ErrAdvisoryTimeout     = errors.New("advisory timed out")
	ErrConfigInvalid       = errors.New("invalid configuration")
)

// ProviderFailure is one adapter's failure inside a fallback chain.
type ProviderFailure struct {
	Provider string
	Op       string
	Err      error
}

func (e *ProviderFailure) Error() string {
	return fmt.Sprintf("provider %s %s: %v", e.Provider, e.Op, e.Err)
}

func (e *ProviderFailure) Unwrap() error {
	return e.Err
}

// NewProviderFailure creates a new ProviderFailure.
func NewProviderFailure(provider, op string, err error) *ProviderFailure {
	return &ProviderFailure{Provider: provider, Op: op, Err: err}
}

// DataUnavailable is returned when every provider in the chain failed.
type DataUnavailable struct {
	Symbol   string
	Op       string
	Attempts []*ProviderFailure
}

func (e *DataUnavailable) Error() string {
	parts := make([]string, 0, len(e.Attempts))
	for _, a := range e.Attempts {
		parts = append(parts, fmt.Sprintf("%s: %v", a.Provider, a.Err))
	}
	return fmt.Sprintf("data unavailable for %s %s after %d providers [%s]",
		e.Symbol, e.Op, len(e.Attempts), strings.Join(parts, "; "))
}

// Providers returns the attempted provider names in order.
func (e *DataUnavailable) Providers() []string {
	names := make([]string, len(e.Attempts))
	for i, a := range e.Attempts {
		names[i] = a.Provider
	}
	return names
}

// Unwrap exposes every attempt so errors.Is matches any provider cause.
func (e *DataUnavailable) Unwrap() []error {
	errs := make([]error, len(e.Attempts))
	for i, a := range e.Attempts {
		errs[i] = a
	}
	return errs
}

// InsufficientHistory reports an indicator that lacks bars.
type InsufficientHistory struct {
	Indicator string
	Need      int
	Have      int
}

func (e *InsufficientHistory) Error() string {
	return fmt.Sprintf("%s: need %d bars, have %d", e.Indicator, e.Need, e.Have)
}

func (e *InsufficientHistory) Unwrap() error {
	return ErrInsufficientHistory
}

// NewInsufficientHistory creates a new InsufficientHistory.
func NewInsufficientHistory(indicator string, need, have int) *InsufficientHistory {
	return &InsufficientHistory{Indicator: indicator, Need: need, Have: have}
}

// AdvisoryError represents a failed or timed-out advisory call.
type AdvisoryError struct {
	Advisor string
	Err     error
}

func (e *AdvisoryError) Error() string {
	return fmt.Sprintf("advisory [%s]: %v", e.Advisor, e.Err)
}

func (e *AdvisoryError) Unwrap() error {
	return e.Err
}

// Timeout reports whether the advisory failed by exceeding its budget.
func (e *AdvisoryError) Timeout() bool {
	return errors.Is(e.Err, ErrAdvisoryTimeout)
}

// NewAdvisoryError creates a new AdvisoryError.
func NewAdvisoryError(advisor string, err error) *AdvisoryError {
	return &AdvisoryError{Advisor: advisor, Err: err}
}

// Wrap wraps an error with additional context.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// Wrapf wraps an error with formatted context.
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)
}

// Is reports whether any error in err's chain matches target.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target.
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}
