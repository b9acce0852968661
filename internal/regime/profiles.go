package regime

import "TrendSentinel/internal/model"

// Trend-weighted in BULL, defence-weighted in BEAR, balanced in RANGE.
var profiles = map[model.MarketRegime]model.WeightProfile{
	model.RegimeBull: {
		model.DimTrend: 30, model.DimBias: 12, model.DimVolume: 12, model.DimSupport: 5,
		model.DimMACD: 18, model.DimRSI: 10, model.DimKDJ: 13,
	},
	model.RegimeRange: {
		model.DimTrend: 18, model.DimBias: 20, model.DimVolume: 12, model.DimSupport: 12,
		model.DimMACD: 13, model.DimRSI: 10, model.DimKDJ: 15,
	},
	model.RegimeBear: {
		model.DimTrend: 13, model.DimBias: 17, model.DimVolume: 17, model.DimSupport: 13,
		model.DimMACD: 12, model.DimRSI: 13, model.DimKDJ: 15,
	},
}

// Short holding periods lean on oscillators and volume regardless of regime.
var horizonProfiles = map[model.Horizon]model.WeightProfile{
	model.HorizonIntraday: {
		model.DimTrend: 10, model.DimBias: 15, model.DimVolume: 18, model.DimSupport: 8,
		model.DimMACD: 12, model.DimRSI: 17, model.DimKDJ: 20,
	},
	model.HorizonShort: {
		model.DimTrend: 15, model.DimBias: 15, model.DimVolume: 15, model.DimSupport: 8,
		model.DimMACD: 15, model.DimRSI: 14, model.DimKDJ: 18,
	},
}

// Profile returns a copy of the weight profile for r. Unknown regimes get RANGE.
func Profile(r model.MarketRegime) model.WeightProfile {
	p, ok := profiles[r]
	if !ok {
		p = profiles[model.RegimeRange]
	}
	return clone(p)
}

// ProfileFor returns the weights for a horizon: intraday and short use their
// own profiles, medium uses the regime's.
func ProfileFor(h model.Horizon, r model.MarketRegime) model.WeightProfile {
	if p, ok := horizonProfiles[h]; ok {
		return clone(p)
	}
	return Profile(r)
}

func clone(p model.WeightProfile) model.WeightProfile {
	out := make(model.WeightProfile, len(p))
	for k, v := range p {
		out[k] = v
	}
	return out
}
