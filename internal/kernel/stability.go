package kernel

import "math"

// SafeDiv divides num by max(den, floor) element-wise. Entries where
// either side is non-finite come out NaN instead of ±Inf. floor must have
// the same length as den; a NaN floor entry propagates NaN.
func SafeDiv(num, den, floor []float64) []float64 {
	out := make([]float64, len(num))
	for i := range num {
		if i >= len(den) || i >= len(floor) {
			out[i] = math.NaN()
			continue
		}
		denSafe := math.Max(den[i], floor[i])
		if isFinite(num[i]) && isFinite(denSafe) {
			out[i] = num[i] / denSafe
		} else {
			out[i] = math.NaN()
		}
	}
	return out
}

// RollingFloor computes a per-index lower bound for a denominator series:
// the rolling q-quantile of |series| over the given window, padded at the
// head with the first full-window value. Series shorter than the window
// fall back to a single scalar, median(|series|)*frac, with 1e-6 as the
// last resort when the series is degenerate.
func RollingFloor(series []float64, window int, q, frac float64) []float64 {
	n := len(series)
	if n == 0 {
		return nil
	}

	absS := make([]float64, n)
	for i, v := range series {
		absS[i] = math.Abs(v)
	}

	if n < window {
		base := nanMedian(absS)
		if !isFinite(base) || base == 0 {
			base = nanMean(absS)
		}
		if !isFinite(base) || base == 0 {
			base = 1e-6
		}
		out := make([]float64, n)
		floorVal := base * frac
		for i := range out {
			out[i] = floorVal
		}
		return out
	}

	out := make([]float64, n)
	for i := window - 1; i < n; i++ {
		out[i] = nanQuantile(absS[i-window+1:i+1], q)
	}
	for i := 0; i < window-1; i++ {
		out[i] = out[window-1]
	}
	return out
}

// ClipPower clamps the benchmark power term to [-pmax, pmax]. NaN passes
// through unchanged.
func ClipPower(power []float64, pmax float64) []float64 {
	out := make([]float64, len(power))
	for i, v := range power {
		switch {
		case v < -pmax:
			out[i] = -pmax
		case v > pmax:
			out[i] = pmax
		default:
			out[i] = v
		}
	}
	return out
}

// WinsorizeDiff clamps diff entries to the (qLow, qHigh) quantiles of its
// finite values. A series with no finite entries is returned as a copy.
func WinsorizeDiff(diff []float64, qLow, qHigh float64) []float64 {
	finite := make([]float64, 0, len(diff))
	for _, v := range diff {
		if isFinite(v) {
			finite = append(finite, v)
		}
	}
	out := make([]float64, len(diff))
	if len(finite) == 0 {
		copy(out, diff)
		return out
	}
	low := quantile(finite, qLow)
	high := quantile(finite, qHigh)
	for i, v := range diff {
		switch {
		case v < low:
			out[i] = low
		case v > high:
			out[i] = high
		default:
			out[i] = v
		}
	}
	return out
}
