package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Valuation carries the multiples used by the valuation stage. Zero means unknown.
type Valuation struct {
	PE  float64
	PB  float64
	PEG float64
	// NetProfitGrowth is the latest reported year-on-year growth in percent.
	NetProfitGrowth  float64
	Industry         string
	IndustryPEMedian float64
}

// FundFlow carries net capital flows for one trading day.
type FundFlow struct {
	IndexNetInflow float64 // northbound / index-level, 100M CNY
	MainNetInflow  float64 // stock main-force, 10K CNY
	AvgDailyAmount float64 // stock average daily turnover, 10K CNY
	HasIndexInflow bool
	HasMainInflow  bool
}

// Fundamentals bundles optional non-price inputs of one run.
type Fundamentals struct {
	Valuation *Valuation
	FundFlow  *FundFlow
}

// Allocation is the capital reserved for one symbol.
type Allocation struct {
	Symbol    string          `json:"symbol"`
	Amount    decimal.Decimal `json:"amount"`
	Pct       float64         `json:"pct"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// CapitalState tracks the capital available for position suggestions.
type CapitalState struct {
	TotalCapital decimal.Decimal       `json:"total_capital"`
	MaxExposure  float64               `json:"max_exposure_pct"`
	Allocations  map[string]Allocation `json:"allocations"`
	UpdatedAt    time.Time             `json:"updated_at"`
}
