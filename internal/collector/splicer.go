package collector

import (
	"time"

	"github.com/rs/zerolog"

	"TrendSentinel/internal/model"
)

// sessionSegment is one continuous trading window in minutes since midnight.
type sessionSegment struct {
	open, close int
}

var sessions = map[model.Market][]sessionSegment{
	model.MarketCN: {{9*60 + 30, 11*60 + 30}, {13 * 60, 15 * 60}},
	model.MarketHK: {{9*60 + 30, 12 * 60}, {13 * 60, 16 * 60}},
	model.MarketUS: {{9*60 + 30, 16 * 60}},
}

// TradingCalendar knows which dates trade. Weekends are closed everywhere;
// the configured holidays apply to the CN market only. Dates are judged in
// the zone of the market asked about.
type TradingCalendar struct {
	Location *time.Location
	Zones    MarketZones
	holidays map[string]bool
}

// NewTradingCalendar creates a calendar with loc as the CN zone and the
// given closed dates.
func NewTradingCalendar(loc *time.Location, holidays []time.Time) *TradingCalendar {
	c := &TradingCalendar{Location: loc, Zones: NewMarketZones(loc), holidays: make(map[string]bool, len(holidays))}
	for _, h := range holidays {
		c.holidays[h.Format("2006-01-02")] = true
	}
	return c
}

// Zone returns the zone market trades in.
func (c *TradingCalendar) Zone(market model.Market) *time.Location {
	if c.Zones == nil {
		return c.Location
	}
	return c.Zones.For(market)
}

// IsTradingDay reports whether date is a session day for market.
func (c *TradingCalendar) IsTradingDay(date time.Time, market model.Market) bool {
	d := date.In(c.Zone(market))
	if wd := d.Weekday(); wd == time.Saturday || wd == time.Sunday {
		return false
	}
	if market == model.MarketCN && c.holidays[d.Format("2006-01-02")] {
		return false
	}
	return true
}

// NextTradingDay returns the first trading date strictly after date.
func (c *TradingCalendar) NextTradingDay(date time.Time, market model.Market) time.Time {
	d := model.DateOf(date, c.Zone(market))
	for i := 0; i < 30; i++ {
		d = d.AddDate(0, 0, 1)
		if c.IsTradingDay(d, market) {
			return d
		}
	}
	return d
}

// SessionProgress returns the elapsed fraction of the trading session at t,
// clamped to (0, 1]. Lunch breaks do not count.
func SessionProgress(t time.Time, market model.Market) float64 {
	segs, ok := sessions[market]
	if !ok {
		segs = sessions[model.MarketCN]
	}
	minute := t.Hour()*60 + t.Minute()
	total, elapsed := 0, 0
	for _, s := range segs {
		total += s.close - s.open
		switch {
		case minute >= s.close:
			elapsed += s.close - s.open
		case minute > s.open:
			elapsed += minute - s.open
		}
	}
	if elapsed <= 0 {
		return 1 / float64(total)
	}
	return float64(elapsed) / float64(total)
}

// Splicer appends a provisional bar built from a live quote to a finalized series.
type Splicer struct {
	Calendar *TradingCalendar
	// OpenHour and OpenMinute mark the first time of day a CN quote is
	// trusted as today's. HK and US quotes use their regular session open.
	OpenHour   int
	OpenMinute int
	logger     zerolog.Logger
}

// NewSplicer creates a splicer. Quotes earlier than openHour:openMinute are ignored.
func NewSplicer(cal *TradingCalendar, openHour, openMinute int, logger zerolog.Logger) *Splicer {
	return &Splicer{
		Calendar:   cal,
		OpenHour:   openHour,
		OpenMinute: openMinute,
		logger:     logger,
	}
}

// sessionStart is the first minute of the day a quote for market counts.
func (s *Splicer) sessionStart(market model.Market) int {
	if segs, ok := sessions[market]; ok && market != model.MarketCN {
		return segs[0].open
	}
	return s.OpenHour*60 + s.OpenMinute
}

// Splice merges quote into the tail of series. The input is never mutated.
// It returns series itself when no bar should be added: no quote, a quote
// dated on the last bar's day (the finalized bar stays authoritative), a stale
// or pre-open quote, or a quote that does not fall on the next trading day.
// Any provisional tail already present is replaced.
func (s *Splicer) Splice(series *model.SymbolSeries, quote *model.Quote) *model.SymbolSeries {
	if series == nil || quote == nil || len(series.Bars) == 0 || quote.Price <= 0 {
		return series
	}
	base := series.Bars
	if base[len(base)-1].Provisional {
		base = base[:len(base)-1]
		if len(base) == 0 {
			return series
		}
	}
	last := base[len(base)-1]
	loc := s.Calendar.Zone(series.Market)
	qt := quote.Time.In(loc)
	qd := model.DateOf(qt, loc)
	lastDate := model.DateOf(last.Date, loc)

	log := s.logger.With().Str("symbol", series.Symbol).Str("quote_date", qd.Format("2006-01-02")).Logger()
	switch {
	case !qd.After(lastDate):
		log.Debug().Msg("quote not newer than last bar, keeping history")
		return series
	case qt.Hour()*60+qt.Minute() < s.sessionStart(series.Market):
		log.Debug().Msg("quote precedes session open, ignoring")
		return series
	case !qd.Equal(s.Calendar.NextTradingDay(lastDate, series.Market)):
		log.Warn().Str("last_bar", lastDate.Format("2006-01-02")).Msg("quote is not on the next trading day, not splicing")
		return series
	}

	open := quote.Open
	if open <= 0 {
		open = quote.Price
	}
	high := max(quote.High, quote.Price, open)
	low := quote.Low
	if low <= 0 {
		low = quote.Price
	}
	low = min(low, quote.Price, open)

	bar := model.DailyBar{
		Date:            qd,
		Open:            open,
		High:            high,
		Low:             low,
		Close:           quote.Price,
		Volume:          quote.Volume,
		Amount:          quote.Amount,
		Provisional:     true,
		SessionProgress: SessionProgress(qt, series.Market),
	}

	out := *series
	out.Bars = make([]model.DailyBar, len(base), len(base)+1)
	copy(out.Bars, base)
	out.Bars = append(out.Bars, bar)
	if out.Name == "" {
		out.Name = quote.Name
	}
	log.Debug().Float64("price", quote.Price).Float64("progress", bar.SessionProgress).Msg("provisional bar spliced")
	return &out
}
