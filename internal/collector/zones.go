package collector

import (
	"time"
	_ "time/tzdata" // exchange zones must resolve on hosts without a zoneinfo database

	"TrendSentinel/internal/model"
)

// MarketZones maps a market to the zone its sessions, bars and quotes are
// stamped in.
type MarketZones map[model.Market]*time.Location

var exchangeZones = map[model.Market]string{
	model.MarketHK: "Asia/Hong_Kong",
	model.MarketUS: "America/New_York",
}

// NewMarketZones uses cn for A-shares and the exchange zones for HK and US.
func NewMarketZones(cn *time.Location) MarketZones {
	z := MarketZones{model.MarketCN: cn}
	for m, name := range exchangeZones {
		if loc, err := time.LoadLocation(name); err == nil {
			z[m] = loc
		}
	}
	return z
}

// For returns the zone of market, falling back to the CN zone and then UTC.
func (z MarketZones) For(m model.Market) *time.Location {
	if loc := z[m]; loc != nil {
		return loc
	}
	if loc := z[model.MarketCN]; loc != nil {
		return loc
	}
	return time.UTC
}

// ForSymbol returns the zone of the market symbol trades on.
func (z MarketZones) ForSymbol(symbol string) *time.Location {
	return z.For(ParseSymbol(symbol).Market)
}
