package strategy

import (
	"strings"

	"TrendSentinel/internal/model"
)

// limitPct returns the daily price limit of an A-share in percent. ChiNext
// and STAR boards move 20%, Beijing 30%, ST names 5% and the main boards 10%.
func limitPct(symbol, name string) float64 {
	code := strings.ToLower(strings.TrimSpace(symbol))
	for _, p := range []string{"sh", "sz", "bj"} {
		code = strings.TrimPrefix(code, p)
	}
	if i := strings.IndexByte(code, '.'); i >= 0 {
		code = code[:i]
	}
	switch {
	case strings.HasPrefix(code, "300"), strings.HasPrefix(code, "301"), strings.HasPrefix(code, "688"):
		return 20
	case strings.HasPrefix(code, "8"), strings.HasPrefix(code, "4"), strings.HasPrefix(code, "92"):
		return 30
	case strings.Contains(strings.ToUpper(name), "ST"):
		return 5
	default:
		return 10
	}
}

// atLimit reports whether a close-to-close move reached the limit. A 2%
// relative tolerance absorbs tick rounding, so a 10% board counts at 9.8%.
func atLimit(prev, curr, pct float64, up bool) bool {
	if prev <= 0 {
		return false
	}
	chg := (curr - prev) / prev * 100
	edge := pct * 0.98
	if up {
		return chg >= edge
	}
	return chg <= -edge
}

// ApplyLimitMove detects A-share limit-up and limit-down closes. A first
// board earns 3 points, two or three in a row earn 2, four or more cost 3 as
// chasing risk and a limit-down costs 5.
func ApplyLimitMove(c *Context) {
	s := c.Input.Series
	if s == nil || s.Market != model.MarketCN || len(s.Bars) < 2 {
		return
	}
	bars := s.Bars
	pct := limitPct(s.Symbol, s.Name)
	n := len(bars) - 1
	up := atLimit(bars[n-1].Close, bars[n].Close, pct, true)
	down := atLimit(bars[n-1].Close, bars[n].Close, pct, false)
	c.Result.Limit = model.LimitMove{Up: up, Down: down, LimitPct: pct}
	if !up && !down {
		return
	}
	count := 0
	for i := n; i > 0 && atLimit(bars[i-1].Close, bars[i].Close, pct, up); i-- {
		count++
	}
	c.Result.Limit.Consecutive = count

	switch {
	case down:
		c.addAdjustment("limit_move", -5, "跌停板，风险极高")
	case count >= 4:
		c.addAdjustment("limit_move", -3, "连续%d板涨停，追高风险极大", count)
	case count >= 2:
		c.addAdjustment("limit_move", 2, "连续%d板涨停，短期强势", count)
	default:
		c.addAdjustment("limit_move", 3, "涨停封板，多头强势")
	}
}
