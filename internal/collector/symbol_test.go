package collector

import (
	"testing"

	"TrendSentinel/internal/model"
)

func TestParseSymbol(t *testing.T) {
	tests := []struct {
		raw      string
		code     string
		market   model.Market
		exchange string
		index    bool
	}{
		{"600519", "600519", model.MarketCN, "sh", false},
		{"000001", "000001", model.MarketCN, "sz", false},
		{"300750", "300750", model.MarketCN, "sz", false},
		{"510300", "510300", model.MarketCN, "sh", false},
		{"830799", "830799", model.MarketCN, "bj", false},
		{"sh000001", "000001", model.MarketCN, "sh", true},
		{"SZ399001", "399001", model.MarketCN, "sz", true},
		{"00700", "00700", model.MarketHK, "hk", false},
		{"hk09988", "09988", model.MarketHK, "hk", false},
		{"aapl", "AAPL", model.MarketUS, "us", false},
		{" BRK.B ", "BRK.B", model.MarketUS, "us", false},
	}
	for _, tt := range tests {
		got := ParseSymbol(tt.raw)
		if got.Code != tt.code || got.Market != tt.market || got.Exchange != tt.exchange || got.Index != tt.index {
			t.Errorf("ParseSymbol(%q) = %+v", tt.raw, got)
		}
	}
}
