package model

import "time"

// TrendStatus classifies moving-average alignment.
type TrendStatus string

const (
	TrendUnknown    TrendStatus = "UNKNOWN"
	TrendStrongUp   TrendStatus = "STRONG_UP"
	TrendUp         TrendStatus = "UP"
	TrendWeakUp     TrendStatus = "WEAK_UP"
	TrendFlat       TrendStatus = "FLAT"
	TrendWeakDown   TrendStatus = "WEAK_DOWN"
	TrendDown       TrendStatus = "DOWN"
	TrendStrongDown TrendStatus = "STRONG_DOWN"
)

// VolumeStatus combines the volume ratio with the day's price direction.
type VolumeStatus string

const (
	VolumeUnknown    VolumeStatus = "UNKNOWN"
	VolumeHeavyUp    VolumeStatus = "HEAVY_UP"
	VolumeHeavyDown  VolumeStatus = "HEAVY_DOWN"
	VolumeShrinkUp   VolumeStatus = "SHRINK_UP"
	VolumeShrinkDown VolumeStatus = "SHRINK_DOWN"
	VolumeNormal     VolumeStatus = "NORMAL"
)

// MACDStatus classifies DIF/DEA position and crosses.
type MACDStatus string

const (
	MACDUnknown              MACDStatus = "UNKNOWN"
	MACDGoldenCrossAboveZero MACDStatus = "GOLDEN_CROSS_ABOVE_ZERO"
	MACDGoldenCross          MACDStatus = "GOLDEN_CROSS"
	MACDCrossingUp           MACDStatus = "CROSSING_UP"
	MACDBullish              MACDStatus = "BULLISH"
	MACDNeutral              MACDStatus = "NEUTRAL"
	MACDBearish              MACDStatus = "BEARISH"
	MACDCrossingDown         MACDStatus = "CROSSING_DOWN"
	MACDDeathCross           MACDStatus = "DEATH_CROSS"
)

// RSIStatus classifies RSI level and RSI6/RSI12 crosses.
type RSIStatus string

const (
	RSIUnknown             RSIStatus = "UNKNOWN"
	RSIGoldenCrossOversold RSIStatus = "GOLDEN_CROSS_OVERSOLD"
	RSIOversold            RSIStatus = "OVERSOLD"
	RSIGoldenCross         RSIStatus = "GOLDEN_CROSS"
	RSIStrong              RSIStatus = "STRONG"
	RSINeutral             RSIStatus = "NEUTRAL"
	RSIWeak                RSIStatus = "WEAK"
	RSIDeathCross          RSIStatus = "DEATH_CROSS"
	RSIOverbought          RSIStatus = "OVERBOUGHT"
)

// KDJStatus classifies K/D position, crosses and J extremes.
type KDJStatus string

const (
	KDJUnknown             KDJStatus = "UNKNOWN"
	KDJGoldenCrossOversold KDJStatus = "GOLDEN_CROSS_OVERSOLD"
	KDJOversold            KDJStatus = "OVERSOLD"
	KDJGoldenCross         KDJStatus = "GOLDEN_CROSS"
	KDJBullish             KDJStatus = "BULLISH"
	KDJNeutral             KDJStatus = "NEUTRAL"
	KDJBearish             KDJStatus = "BEARISH"
	KDJDeathCross          KDJStatus = "DEATH_CROSS"
	KDJOverbought          KDJStatus = "OVERBOUGHT"
)

// Recommendation is the discrete verdict derived from the composite score.
type Recommendation string

const (
	RecStrongBuy  Recommendation = "STRONG_BUY"
	RecBuy        Recommendation = "BUY"
	RecHold       Recommendation = "HOLD"
	RecSell       Recommendation = "SELL"
	RecStrongSell Recommendation = "STRONG_SELL"
)

// Signals groups the per-family statuses of one run.
type Signals struct {
	Trend         TrendStatus
	TrendStrength float64 // 0..100
	Volume        VolumeStatus
	MACD          MACDStatus
	RSI           RSIStatus
	KDJ           KDJStatus
	BiasMA5       float64 // percent
}

// DimensionScore is one weighted dimension contribution.
type DimensionScore struct {
	Dimension  Dimension
	Raw        float64 // 0..1
	Weight     float64
	Weighted   float64
	Commentary string
}

// Adjustment is a signed score correction applied after the weighted base.
type Adjustment struct {
	Name   string
	Points float64
	Reason string
}

// LimitMove records an A-share daily price-limit hit on the last bar.
type LimitMove struct {
	Up          bool
	Down        bool
	LimitPct    float64
	Consecutive int // bars in a row closing at the same limit
}

// StopLossLadder holds the three stop tiers and the binding stop for the horizon.
type StopLossLadder struct {
	Intraday float64
	Short    float64
	Medium   float64
	Binding  float64
	Horizon  Horizon
}

// Tranche is one third of the take-profit plan.
type Tranche struct {
	Label    string
	Price    float64
	Fraction float64
	Trailing bool
}

// TakeProfitPlan splits the exit into three equal tranches.
type TakeProfitPlan struct {
	Tranches [3]Tranche
}

// PositionAdvice is the sizing recommendation in percent of capital.
type PositionAdvice struct {
	Base        float64
	Multipliers []float64
	Position    float64 // 0..80
	Suggested   float64 // 0..30
	Amount      float64 // currency, filled by the capital manager
}

// TrendAnalysisResult is the finalized output of one analysis run.
type TrendAnalysisResult struct {
	Symbol         string
	Name           string
	AsOf           time.Time
	Provisional    bool
	Price          float64
	ChangePct      float64
	Regime         MarketRegime
	Horizon        Horizon
	Signals        Signals
	Dimensions     []DimensionScore
	BaseScore      float64
	Adjustments    []Adjustment
	Score          float64 // 0..100
	Recommendation Recommendation
	Valuation      string
	Limit          LimitMove
	Resonance      []string // statuses agreeing on one direction
	Warnings       []string
	Halted         bool
	HaltReasons    []string
	StopLoss       StopLossLadder
	TakeProfit     TakeProfitPlan
	Position       PositionAdvice
	RiskReward     float64
	RiskVerdict    string
	Missing        map[string]string
	Summary        string
	Advisory       string
	RunID          string
}

// AdjustmentTotal returns the summed points of all adjustments.
func (r *TrendAnalysisResult) AdjustmentTotal() float64 {
	var t float64
	for _, a := range r.Adjustments {
		t += a.Points
	}
	return t
}
