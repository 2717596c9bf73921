// Package kernel implements the RRS/RRV/RVE relative-strength indicators
// with their numerical-stability utilities: denominator floors, power
// clipping, RMS variance proxies and diff winsorization.
//
// All functions are pure and operate on finite slices. Entries that cannot
// be computed yet (warm-up, missing history) are NaN; callers treat NaN as
// unknown. Output slices always have the same length as the (aligned)
// inputs.
package kernel

import (
	"math"
	"sort"
)

// VarMode selects the variance proxy used by RRV and RVE.
type VarMode string

const (
	VarAbs VarMode = "abs" // RMA of |diff|
	VarRMS VarMode = "rms" // sqrt of RMA(diff^2)
)

// Params holds all tunables for the indicator kernel.
type Params struct {
	Length    int  // indicator length L (moves, scales)
	ATRPeriod int  // RMA period for the RVE ATR input
	Smooth    int  // SMA window applied to volume before RRV
	SmoothATR int  // SMA window applied to ATR before RVE (1 = off)
	UseLog    bool // log-compress volume after smoothing
	UsePctATR bool // percent-ATR mode: log returns + ATR/close scales

	VarMode    VarMode
	Winsorize  bool
	WinsorLow  float64
	WinsorHigh float64

	PMax        float64 // benchmark power clip
	FloorWindow int     // rolling-floor window
	FloorQ      float64 // rolling-floor quantile
	FloorFrac   float64 // short-series floor fraction

	MinBars int // minimum aligned bars required by callers
}

// DefaultParams returns the production defaults.
func DefaultParams() Params {
	return Params{
		Length:      12,
		ATRPeriod:   14,
		Smooth:      3,
		SmoothATR:   1,
		UseLog:      true,
		VarMode:     VarRMS,
		Winsorize:   true,
		WinsorLow:   0.01,
		WinsorHigh:  0.99,
		PMax:        10.0,
		FloorWindow: 252,
		FloorQ:      0.05,
		FloorFrac:   0.05,
		MinBars:     30,
	}
}

// sanitized fills zero-valued fields with defaults so a partially
// constructed Params never divides by zero or smooths with window 0.
func (p Params) sanitized() Params {
	d := DefaultParams()
	if p.Length <= 0 {
		p.Length = d.Length
	}
	if p.ATRPeriod <= 0 {
		p.ATRPeriod = d.ATRPeriod
	}
	if p.Smooth <= 0 {
		p.Smooth = d.Smooth
	}
	if p.SmoothATR <= 0 {
		p.SmoothATR = d.SmoothATR
	}
	if p.VarMode != VarAbs {
		p.VarMode = VarRMS
	}
	if p.WinsorHigh <= 0 {
		p.WinsorLow, p.WinsorHigh = d.WinsorLow, d.WinsorHigh
	}
	if p.PMax <= 0 {
		p.PMax = d.PMax
	}
	if p.FloorWindow <= 0 {
		p.FloorWindow = d.FloorWindow
	}
	if p.FloorQ <= 0 {
		p.FloorQ = d.FloorQ
	}
	if p.FloorFrac <= 0 {
		p.FloorFrac = d.FloorFrac
	}
	if p.MinBars <= 0 {
		p.MinBars = d.MinBars
	}
	return p
}

func isFinite(x float64) bool {
	return !math.IsNaN(x) && !math.IsInf(x, 0)
}

// quantile returns the q-quantile of vals with linear interpolation
// between order statistics. vals must be non-empty and finite.
func quantile(vals []float64, q float64) float64 {
	sorted := make([]float64, len(vals))
	copy(sorted, vals)
	sort.Float64s(sorted)

	if q <= 0 {
		return sorted[0]
	}
	if q >= 1 {
		return sorted[len(sorted)-1]
	}
	h := q * float64(len(sorted)-1)
	lo := int(math.Floor(h))
	if lo+1 >= len(sorted) {
		return sorted[len(sorted)-1]
	}
	return sorted[lo] + (h-float64(lo))*(sorted[lo+1]-sorted[lo])
}

// nanQuantile is quantile over the finite entries only; NaN when none exist.
func nanQuantile(vals []float64, q float64) float64 {
	finite := make([]float64, 0, len(vals))
	for _, v := range vals {
		if isFinite(v) {
			finite = append(finite, v)
		}
	}
	if len(finite) == 0 {
		return math.NaN()
	}
	return quantile(finite, q)
}

func nanMedian(vals []float64) float64 {
	return nanQuantile(vals, 0.5)
}

func nanMean(vals []float64) float64 {
	sum, n := 0.0, 0
	for _, v := range vals {
		if isFinite(v) {
			sum += v
			n++
		}
	}
	if n == 0 {
		return math.NaN()
	}
	return sum / float64(n)
}

// sma is a trailing simple moving average. The first n-1 entries average
// whatever history exists so the output stays causal and unbiased at the
// head. n <= 1 returns a copy.
func sma(x []float64, n int) []float64 {
	out := make([]float64, len(x))
	if n <= 1 {
		copy(out, x)
		return out
	}
	sum := 0.0
	for i, v := range x {
		sum += v
		if i >= n {
			sum -= x[i-n]
		}
		w := i + 1
		if w > n {
			w = n
		}
		out[i] = sum / float64(w)
	}
	return out
}
