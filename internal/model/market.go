package model

import "time"

// Market identifies the exchange group a symbol trades on.
type Market string

const (
	MarketCN Market = "CN" // Shanghai / Shenzhen / Beijing A-shares and ETFs
	MarketHK Market = "HK"
	MarketUS Market = "US"
)

// DailyBar represents a single daily candlestick.
// A provisional bar is synthesized from a live quote before the session closes.
type DailyBar struct {
	Date        time.Time
	Open        float64
	High        float64
	Low         float64
	Close       float64
	Volume      float64
	Amount      float64
	Provisional bool
	// SessionProgress is the elapsed fraction of the trading session (0, 1] for provisional bars.
	SessionProgress float64
}

// SymbolSeries holds the reconciled daily bars of one symbol, ascending by date.
type SymbolSeries struct {
	Symbol    string
	Name      string
	Market    Market
	Source    string // provider that supplied the history
	Bars      []DailyBar
	FetchedAt time.Time
}

// Last returns the most recent bar, or false when the series is empty.
func (s *SymbolSeries) Last() (DailyBar, bool) {
	if s == nil || len(s.Bars) == 0 {
		return DailyBar{}, false
	}
	return s.Bars[len(s.Bars)-1], true
}

// HasProvisional reports whether the trailing bar was spliced from a quote.
func (s *SymbolSeries) HasProvisional() bool {
	last, ok := s.Last()
	return ok && last.Provisional
}

// Quote is a real-time snapshot from a provider.
type Quote struct {
	Symbol    string
	Name      string
	Price     float64
	Open      float64
	High      float64
	Low       float64
	PrevClose float64
	Volume    float64
	Amount    float64
	Time      time.Time
	Source    string
}

// ChangePct returns the percentage change against the previous close.
func (q *Quote) ChangePct() float64 {
	if q == nil || q.PrevClose <= 0 {
		return 0
	}
	return (q.Price - q.PrevClose) / q.PrevClose * 100
}

// SameDay reports whether two instants fall on the same calendar date in loc.
func SameDay(a, b time.Time, loc *time.Location) bool {
	ay, am, ad := a.In(loc).Date()
	by, bm, bd := b.In(loc).Date()
	return ay == by && am == bm && ad == bd
}

// DateOf truncates t to midnight in loc.
func DateOf(t time.Time, loc *time.Location) time.Time {
	y, m, d := t.In(loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, loc)
}
