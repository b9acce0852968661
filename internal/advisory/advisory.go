// Package advisory attaches narrative commentary to a finished analysis.
// Advisors receive a copy of the result and only ever return text: they
// cannot change the score, recommendation or any risk level.
package advisory

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/rs/zerolog"

	apperrors "TrendSentinel/internal/errors"
	"TrendSentinel/internal/model"
)

// Advisor produces commentary for a finalized result.
type Advisor interface {
	Name() string
	Advise(ctx context.Context, result model.TrendAnalysisResult) (string, error)
}

// Outcome labels recorded by the runner.
const (
	OutcomeOK       = "ok"
	OutcomeTimeout  = "timeout"
	OutcomeError    = "error"
	OutcomeDisabled = "disabled"
)

// Runner bounds advisory calls by a timeout. A failed or slow advisor never
// blocks or alters the analysis; it just yields empty text.
type Runner struct {
	advisor Advisor
	timeout time.Duration
	logger  zerolog.Logger
}

// NewRunner creates a Runner. A nil advisor disables advisory.
func NewRunner(a Advisor, timeout time.Duration, logger zerolog.Logger) *Runner {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Runner{advisor: a, timeout: timeout, logger: logger}
}

type adviceResult struct {
	text string
	err  error
}

// Run asks the advisor about result and returns the text with its outcome.
// On failure the text is empty and err is an *errors.AdvisoryError.
func (r *Runner) Run(ctx context.Context, result *model.TrendAnalysisResult) (string, string, error) {
	if r == nil || r.advisor == nil || result == nil {
		return "", OutcomeDisabled, nil
	}
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	snapshot := cloneResult(result)
	done := make(chan adviceResult, 1)
	go func() {
		text, err := r.advisor.Advise(ctx, snapshot)
		done <- adviceResult{text: text, err: err}
	}()

	var res adviceResult
	select {
	case res = <-done:
	case <-ctx.Done():
		res.err = ctx.Err()
	}

	name := r.advisor.Name()
	if res.err != nil {
		outcome := OutcomeError
		err := res.err
		if errors.Is(err, context.DeadlineExceeded) {
			outcome = OutcomeTimeout
			err = apperrors.ErrAdvisoryTimeout
		}
		r.logger.Warn().Err(res.err).Str("advisor", name).Str("symbol", result.Symbol).Msg("advisory skipped")
		return "", outcome, apperrors.NewAdvisoryError(name, err)
	}
	return strings.TrimSpace(res.text), OutcomeOK, nil
}

// cloneResult deep-copies the slices and maps an advisor could otherwise mutate.
func cloneResult(r *model.TrendAnalysisResult) model.TrendAnalysisResult {
	c := *r
	c.Dimensions = append([]model.DimensionScore(nil), r.Dimensions...)
	c.Adjustments = append([]model.Adjustment(nil), r.Adjustments...)
	c.HaltReasons = append([]string(nil), r.HaltReasons...)
	c.Position.Multipliers = append([]float64(nil), r.Position.Multipliers...)
	if r.Missing != nil {
		c.Missing = make(map[string]string, len(r.Missing))
		for k, v := range r.Missing {
			c.Missing[k] = v
		}
	}
	return c
}
