package collector

import (
	"regexp"
	"strings"

	"TrendSentinel/internal/model"
)

// SymbolInfo is a parsed symbol with its exchange.
type SymbolInfo struct {
	Code     string // digits for CN/HK, ticker for US
	Market   model.Market
	Exchange string // sh, sz, bj, hk, us
	Index    bool
}

var (
	cnCode     = regexp.MustCompile(`^\d{6}$`)
	hkCode     = regexp.MustCompile(`^\d{5}$`)
	usTicker   = regexp.MustCompile(`^[A-Z]{1,5}(\.[A-Z])?$`)
	prefixedCN = regexp.MustCompile(`^(sh|sz|bj)(\d{6})$`)
)

// ParseSymbol normalises a user-supplied symbol.
// Prefixed codes (sh000001) are taken literally; bare 6-digit codes are routed
// by their leading digits.
func ParseSymbol(raw string) SymbolInfo {
	s := strings.TrimSpace(raw)
	lower := strings.ToLower(s)

	if m := prefixedCN.FindStringSubmatch(lower); m != nil {
		return SymbolInfo{Code: m[2], Market: model.MarketCN, Exchange: m[1], Index: isIndexCode(m[1], m[2])}
	}
	if strings.HasPrefix(lower, "hk") && hkCode.MatchString(lower[2:]) {
		return SymbolInfo{Code: lower[2:], Market: model.MarketHK, Exchange: "hk"}
	}
	if hkCode.MatchString(s) {
		return SymbolInfo{Code: s, Market: model.MarketHK, Exchange: "hk"}
	}
	if cnCode.MatchString(s) {
		return SymbolInfo{Code: s, Market: model.MarketCN, Exchange: cnExchange(s)}
	}
	upper := strings.ToUpper(s)
	if usTicker.MatchString(upper) {
		return SymbolInfo{Code: upper, Market: model.MarketUS, Exchange: "us"}
	}
	return SymbolInfo{Code: s, Market: model.MarketCN, Exchange: ""}
}

func cnExchange(code string) string {
	switch {
	case strings.HasPrefix(code, "6"), strings.HasPrefix(code, "5"), strings.HasPrefix(code, "9"):
		return "sh"
	case strings.HasPrefix(code, "4"), strings.HasPrefix(code, "8"):
		return "bj"
	default:
		return "sz"
	}
}

func isIndexCode(exchange, code string) bool {
	return (exchange == "sh" && strings.HasPrefix(code, "000")) ||
		(exchange == "sz" && strings.HasPrefix(code, "399"))
}

// Prefixed returns the exchange-prefixed form (sh600519, hk00700, usAAPL).
func (s SymbolInfo) Prefixed() string {
	return s.Exchange + s.Code
}
