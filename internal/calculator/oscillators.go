package calculator

import (
	apperrors "TrendSentinel/internal/errors"
	"TrendSentinel/internal/model"
)

// MACD periods.
const (
	MACDFast   = 12
	MACDSlow   = 26
	MACDSignal = 9
)

// MACD computes DIF = EMA12 - EMA26, DEA = EMA9(DIF) and BAR = 2*(DIF-DEA)
// as of the tail, with the previous bar's DIF/DEA for cross detection.
func MACD(closes []float64) (model.MACDValue, error) {
	need := MACDSlow + MACDSignal - 1
	if len(closes) < need {
		return model.MACDValue{}, apperrors.NewInsufficientHistory(model.IndMACD, need, len(closes))
	}
	fast := EMASeries(closes, MACDFast)
	slow := EMASeries(closes, MACDSlow)
	dif := make([]float64, len(closes))
	for i := range closes {
		dif[i] = fast[i] - slow[i]
	}
	dea := EMASeries(dif, MACDSignal)

	n := len(closes) - 1
	return model.MACDValue{
		DIF:     dif[n],
		DEA:     dea[n],
		Bar:     2 * (dif[n] - dea[n]),
		PrevDIF: dif[n-1],
		PrevDEA: dea[n-1],
	}, nil
}

// KDJPeriod is the RSV lookback.
const KDJPeriod = 9

// KDJ computes the 9-period stochastic with K and D smoothed by 1/3 and seeded at 50.
// J = 3K - 2D.
func KDJ(bars []model.DailyBar) (model.KDJValue, error) {
	need := KDJPeriod + 1
	if len(bars) < need {
		return model.KDJValue{}, apperrors.NewInsufficientHistory(model.IndKDJ, need, len(bars))
	}
	k, d := 50.0, 50.0
	prevK, prevD := k, d
	for i := KDJPeriod - 1; i < len(bars); i++ {
		hi, lo := bars[i].High, bars[i].Low
		for _, b := range bars[i-KDJPeriod+1 : i+1] {
			hi = max(hi, b.High)
			lo = min(lo, b.Low)
		}
		rsv := 50.0
		if hi > lo {
			rsv = (bars[i].Close - lo) / (hi - lo) * 100
		}
		prevK, prevD = k, d
		k = 2.0/3.0*k + 1.0/3.0*rsv
		d = 2.0/3.0*d + 1.0/3.0*k
	}
	return model.KDJValue{K: k, D: d, J: 3*k - 2*d, PrevK: prevK, PrevD: prevD}, nil
}

// RSI periods.
const (
	RSIShort = 6
	RSIMid   = 12
	RSILong  = 24
)

// RSISet computes RSI 6/12/24 with the previous bar's 6 and 12 for cross detection.
// The long period is optional; it stays zero when history is too short for it.
func RSISet(closes []float64) (model.RSIValue, error) {
	if len(closes) < RSIMid+2 {
		return model.RSIValue{}, apperrors.NewInsufficientHistory(model.IndRSI, RSIMid+2, len(closes))
	}
	short, err := RSISeries(closes, RSIShort)
	if err != nil {
		return model.RSIValue{}, err
	}
	mid, err := RSISeries(closes, RSIMid)
	if err != nil {
		return model.RSIValue{}, err
	}
	v := model.RSIValue{
		RSI6:      short[len(short)-1],
		RSI12:     mid[len(mid)-1],
		PrevRSI6:  short[len(short)-2],
		PrevRSI12: mid[len(mid)-2],
	}
	if long, err := RSI(closes, RSILong); err == nil {
		v.RSI24 = long
	}
	return v, nil
}
