package kernel

import "groww-scanner/internal/model"

// BenchmarkRegime derives the aggregate regime descriptors for a benchmark
// series: trend = L-bar close move, volExpansion = L-bar move of RMA(TR,L),
// participation = L-bar volume move, all taken at the last bar. Values that
// are not computable yet (short series) report 0.
//
// Regime is BULLISH when trend and volExpansion are both positive, BEARISH
// when the trend is negative with expanding volatility, NEUTRAL otherwise.
func BenchmarkRegime(s model.Series, length int) (trend, volExpansion, participation float64, regime model.Regime) {
	if length <= 0 {
		length = DefaultParams().Length
	}
	if s.Len() == 0 {
		return 0, 0, 0, model.RegimeNoData
	}

	trend = lastOrZero(RollingMove(s.Close, length))
	atr := WildersRMA(TrueRange(s.High, s.Low, s.Close), length)
	volExpansion = lastOrZero(RollingMove(atr, length))
	participation = lastOrZero(RollingMove(s.Volume, length))

	switch {
	case trend > 0 && volExpansion > 0:
		regime = model.RegimeBullish
	case trend < 0 && volExpansion > 0:
		regime = model.RegimeBearish
	default:
		regime = model.RegimeNeutral
	}
	return trend, volExpansion, participation, regime
}

func lastOrZero(x []float64) float64 {
	if len(x) == 0 {
		return 0
	}
	v := x[len(x)-1]
	if !isFinite(v) {
		return 0
	}
	return v
}
