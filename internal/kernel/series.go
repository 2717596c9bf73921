package kernel

import "math"

// WildersRMA computes Wilder's smoothing (ta.rma):
// y[0] = x[0]; y[i] = y[i-1] + (x[i] - y[i-1]) / length.
// Constant input is a fixed point: x ≡ c yields y ≡ c.
func WildersRMA(x []float64, length int) []float64 {
	out := make([]float64, len(x))
	if len(x) == 0 {
		return out
	}
	alpha := 1.0 / float64(length)
	out[0] = x[0]
	for i := 1; i < len(x); i++ {
		out[i] = out[i-1] + alpha*(x[i]-out[i-1])
	}
	return out
}

// TrueRange computes TR[i] = max(H-L, |H-Cprev|, |L-Cprev|) with the
// previous close seeded as close[0], so TR[0] = H[0]-L[0].
func TrueRange(high, low, close []float64) []float64 {
	out := make([]float64, len(high))
	for i := range high {
		prevClose := close[0]
		if i > 0 {
			prevClose = close[i-1]
		}
		out[i] = math.Max(high[i]-low[i],
			math.Max(math.Abs(high[i]-prevClose), math.Abs(low[i]-prevClose)))
	}
	return out
}

// RollingMove returns x[i] - x[i-length]; the first length entries are NaN.
func RollingMove(x []float64, length int) []float64 {
	out := make([]float64, len(x))
	for i := range x {
		if i < length {
			out[i] = math.NaN()
		} else {
			out[i] = x[i] - x[i-length]
		}
	}
	return out
}

// RollingLogReturn returns log(x[i] / x[i-length]); the first length
// entries are NaN. Non-positive ratios come out NaN/-Inf per math.Log.
func RollingLogReturn(x []float64, length int) []float64 {
	out := make([]float64, len(x))
	for i := range x {
		if i < length {
			out[i] = math.NaN()
		} else {
			out[i] = math.Log(x[i] / x[i-length])
		}
	}
	return out
}

// VarianceProxy estimates local variability from first differences
// (d[0] = 0), optionally winsorized. VarAbs smooths |d|; VarRMS smooths
// d^2 and takes the square root.
func VarianceProxy(series []float64, length int, mode VarMode, winsorize bool, qLow, qHigh float64) []float64 {
	if len(series) == 0 {
		return nil
	}
	diff := make([]float64, len(series))
	diff[0] = 0
	for i := 1; i < len(series); i++ {
		diff[i] = series[i] - series[i-1]
	}
	if winsorize {
		diff = WinsorizeDiff(diff, qLow, qHigh)
	}
	if mode == VarAbs {
		absD := make([]float64, len(diff))
		for i, d := range diff {
			absD[i] = math.Abs(d)
		}
		return WildersRMA(absD, length)
	}
	sq := make([]float64, len(diff))
	for i, d := range diff {
		sq[i] = d * d
	}
	out := WildersRMA(sq, length)
	for i, v := range out {
		out[i] = math.Sqrt(v)
	}
	return out
}
