package kernel

import (
	"math"

	"groww-scanner/internal/model"
)

// relate is the shared tail of all three indicators: floor the scales,
// clip the benchmark's normalized move (power), subtract the expected
// symbol move and renormalize by the symbol scale.
func relate(symMove, benMove, symScale, benScale []float64, p Params) []float64 {
	benFloor := RollingFloor(benScale, p.FloorWindow, p.FloorQ, p.FloorFrac)
	symFloor := RollingFloor(symScale, p.FloorWindow, p.FloorQ, p.FloorFrac)

	power := ClipPower(SafeDiv(benMove, benScale, benFloor), p.PMax)

	diff := make([]float64, len(symMove))
	for i := range diff {
		if i < len(power) && i < len(symScale) {
			diff[i] = symMove[i] - power[i]*symScale[i]
		} else {
			diff[i] = math.NaN()
		}
	}
	return SafeDiv(diff, symScale, symFloor)
}

// truncate returns both series cut to their common length. Inputs aligned
// by Align already have equal lengths; this only guards mismatched calls.
func truncate(a, b []float64) ([]float64, []float64) {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	return a[:n], b[:n]
}

// RRS is the relative-return strength of a symbol against its benchmark:
// the symbol's L-bar move minus the move the benchmark's (clipped,
// ATR-normalized) push would predict, in units of the symbol's ATR.
// The first Length entries are NaN.
func RRS(sym, ben model.Series, p Params) []float64 {
	p = p.sanitized()

	symClose, benClose := truncate(sym.Close, ben.Close)
	n := len(symClose)

	var symMove, benMove []float64
	if p.UsePctATR {
		symMove = RollingLogReturn(symClose, p.Length)
		benMove = RollingLogReturn(benClose, p.Length)
	} else {
		symMove = RollingMove(symClose, p.Length)
		benMove = RollingMove(benClose, p.Length)
	}

	symATR := WildersRMA(TrueRange(sym.High[:n], sym.Low[:n], symClose), p.Length)
	benATR := WildersRMA(TrueRange(ben.High[:n], ben.Low[:n], benClose), p.Length)

	if p.UsePctATR {
		symATR = SafeDiv(symATR, symClose, RollingFloor(symClose, p.FloorWindow, p.FloorQ, p.FloorFrac))
		benATR = SafeDiv(benATR, benClose, RollingFloor(benClose, p.FloorWindow, p.FloorQ, p.FloorFrac))
	}

	return relate(symMove, benMove, symATR, benATR, p)
}

// RRV is the relative-volume strength: volume is SMA-smoothed, optionally
// log-compressed (log of max(v,1)), then the symbol's L-bar volume move is
// measured against the benchmark's, each scaled by a variance proxy of the
// compressed series.
func RRV(symVol, benVol []float64, p Params) []float64 {
	p = p.sanitized()

	vSym := sma(symVol, p.Smooth)
	vBen := sma(benVol, p.Smooth)

	if p.UseLog {
		for i, v := range vSym {
			vSym[i] = math.Log(math.Max(v, 1.0))
		}
		for i, v := range vBen {
			vBen[i] = math.Log(math.Max(v, 1.0))
		}
	}

	vSym, vBen = truncate(vSym, vBen)

	symMove := RollingMove(vSym, p.Length)
	benMove := RollingMove(vBen, p.Length)

	symVar := VarianceProxy(vSym, p.Length, p.VarMode, p.Winsorize, p.WinsorLow, p.WinsorHigh)
	benVar := VarianceProxy(vBen, p.Length, p.VarMode, p.Winsorize, p.WinsorLow, p.WinsorHigh)

	return relate(symMove, benMove, symVar, benVar, p)
}

// RVE is the relative volatility-expansion: the same relative-move
// construction applied to the ATR series itself (RMA of TR over
// ATRPeriod), scaled by a variance proxy of the ATR.
func RVE(sym, ben model.Series, p Params) []float64 {
	p = p.sanitized()

	symClose, benClose := truncate(sym.Close, ben.Close)
	n := len(symClose)

	symATR := WildersRMA(TrueRange(sym.High[:n], sym.Low[:n], symClose), p.ATRPeriod)
	benATR := WildersRMA(TrueRange(ben.High[:n], ben.Low[:n], benClose), p.ATRPeriod)

	if p.SmoothATR > 1 {
		symATR = sma(symATR, p.SmoothATR)
		benATR = sma(benATR, p.SmoothATR)
	}

	if p.UsePctATR {
		symATR = SafeDiv(symATR, symClose, RollingFloor(symClose, p.FloorWindow, p.FloorQ, p.FloorFrac))
		benATR = SafeDiv(benATR, benClose, RollingFloor(benClose, p.FloorWindow, p.FloorQ, p.FloorFrac))
	}

	symMove := RollingMove(symATR, p.Length)
	benMove := RollingMove(benATR, p.Length)

	symVar := VarianceProxy(symATR, p.Length, p.VarMode, p.Winsorize, p.WinsorLow, p.WinsorHigh)
	benVar := VarianceProxy(benATR, p.Length, p.VarMode, p.Winsorize, p.WinsorLow, p.WinsorHigh)

	return relate(symMove, benMove, symVar, benVar, p)
}
