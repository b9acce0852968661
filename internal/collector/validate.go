package collector

import (
	"fmt"
	"sort"

	apperrors "TrendSentinel/internal/errors"
	"TrendSentinel/internal/model"
)

// normalizeBars checks the minimal shape of a provider's history and returns
// a copy sorted ascending with one bar per date (the later row wins).
func normalizeBars(bars []model.DailyBar) ([]model.DailyBar, error) {
	if len(bars) == 0 {
		return nil, fmt.Errorf("empty history: %w", apperrors.ErrInvalidData)
	}
	out := make([]model.DailyBar, len(bars))
	copy(out, bars)
	for i, b := range out {
		if b.Date.IsZero() {
			return nil, fmt.Errorf("row %d: missing date: %w", i, apperrors.ErrInvalidData)
		}
		if b.Close <= 0 || b.High <= 0 || b.Low <= 0 || b.Open <= 0 {
			return nil, fmt.Errorf("row %d (%s): non-positive price: %w", i, b.Date.Format("2006-01-02"), apperrors.ErrInvalidData)
		}
		if b.High < b.Low {
			return nil, fmt.Errorf("row %d (%s): high below low: %w", i, b.Date.Format("2006-01-02"), apperrors.ErrInvalidData)
		}
		if b.Volume < 0 {
			return nil, fmt.Errorf("row %d (%s): negative volume: %w", i, b.Date.Format("2006-01-02"), apperrors.ErrInvalidData)
		}
		out[i].Provisional = false
		out[i].SessionProgress = 0
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })

	dedup := out[:0]
	for _, b := range out {
		if n := len(dedup); n > 0 && dedup[n-1].Date.Equal(b.Date) {
			dedup[n-1] = b
			continue
		}
		dedup = append(dedup, b)
	}
	return dedup, nil
}

func validateQuote(q *model.Quote) error {
	if q == nil {
		return fmt.Errorf("nil quote: %w", apperrors.ErrQuoteUnavailable)
	}
	if q.Price <= 0 {
		return fmt.Errorf("non-positive price %v: %w", q.Price, apperrors.ErrInvalidData)
	}
	if q.Time.IsZero() {
		return fmt.Errorf("missing quote time: %w", apperrors.ErrInvalidData)
	}
	return nil
}
