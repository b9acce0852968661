package model

// MarketRegime is the classified market environment.
type MarketRegime string

const (
	RegimeBull  MarketRegime = "BULL"
	RegimeBear  MarketRegime = "BEAR"
	RegimeRange MarketRegime = "RANGE"
)

// Dimension is one technical scoring dimension.
type Dimension string

const (
	DimTrend   Dimension = "trend"
	DimBias    Dimension = "bias"
	DimVolume  Dimension = "volume"
	DimSupport Dimension = "support"
	DimMACD    Dimension = "macd"
	DimRSI     Dimension = "rsi"
	DimKDJ     Dimension = "kdj"
)

// Dimensions lists every scoring dimension in display order.
var Dimensions = []Dimension{DimTrend, DimBias, DimVolume, DimSupport, DimMACD, DimRSI, DimKDJ}

// WeightProfileTotal is the sum every WeightProfile must reach.
const WeightProfileTotal = 100

// WeightProfile maps each dimension to its maximum contribution.
type WeightProfile map[Dimension]float64

// Total sums all weights of the profile.
func (p WeightProfile) Total() float64 {
	var t float64
	for _, w := range p {
		t += w
	}
	return t
}

// Horizon is the declared holding period of a recommendation.
type Horizon string

const (
	HorizonIntraday Horizon = "intraday"
	HorizonShort    Horizon = "short"
	HorizonMedium   Horizon = "medium"
)
