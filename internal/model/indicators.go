package model

// Indicator names used as keys of IndicatorSnapshot.Missing.
const (
	IndMA        = "ma"
	IndRSI       = "rsi"
	IndMACD      = "macd"
	IndKDJ       = "kdj"
	IndATR       = "atr"
	IndVolume    = "volume_ratio"
	IndBollinger = "bollinger"
	IndVolatile  = "volatility"
	IndDrawdown  = "drawdown"
	IndLevels    = "levels"
	IndRange52w  = "range_52w"
)

// MACDValue holds the tail MACD values and the previous bar's values for cross detection.
type MACDValue struct {
	DIF, DEA, Bar    float64
	PrevDIF, PrevDEA float64
}

// KDJValue holds the tail stochastic values and the previous bar's K/D.
type KDJValue struct {
	K, D, J      float64
	PrevK, PrevD float64
}

// RSIValue holds Wilder RSI over the short, mid and long periods.
type RSIValue struct {
	RSI6, RSI12, RSI24  float64
	PrevRSI6, PrevRSI12 float64
}

// BollingerValue holds the 20/2 bands as of the tail.
type BollingerValue struct {
	Upper, Middle, Lower float64
	Width                float64 // (upper-lower)/middle
	PercentB             float64
}

// IndicatorSnapshot holds every indicator computed as of the series' last bar.
// An indicator that could not be computed keeps its zero value and is listed
// in Missing with the reason.
type IndicatorSnapshot struct {
	Price          float64
	ChangePct      float64
	MA             map[int]float64
	PrevMA         map[int]float64 // one bar earlier
	RSI            RSIValue
	MACD           MACDValue
	KDJ            KDJValue
	ATR            float64
	ATRPercentile  float64 // 0..1 within the lookback
	VolumeRatio    float64
	Bollinger      BollingerValue
	Volatility20d  float64 // annualised, percent
	MaxDrawdown60d float64 // percent, <= 0
	High20d        float64
	High52w        float64
	Low52w         float64
	Supports       []float64 // descending, below price
	Resistances    []float64 // ascending, above price
	Missing        map[string]string
}

// Has reports whether the named indicator was computed.
func (s *IndicatorSnapshot) Has(name string) bool {
	if s == nil {
		return false
	}
	_, missing := s.Missing[name]
	return !missing
}

// MAValue returns the moving average for window, if computed.
func (s *IndicatorSnapshot) MAValue(window int) (float64, bool) {
	if s == nil {
		return 0, false
	}
	v, ok := s.MA[window]
	return v, ok
}
