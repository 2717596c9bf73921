package kernel

import "groww-scanner/internal/model"

// Align intersects two series on their timestamps and returns both
// gather-indexed to the common keys, plus the common key sequence itself.
// Inputs sorted ascending come out sorted ascending. The common set is
// always a subset of both key sets and never longer than the shorter one.
func Align(sym, ben model.Series) (model.Series, model.Series, []int64) {
	benIdx := make(map[int64]int, len(ben.TS))
	for i, ts := range ben.TS {
		benIdx[ts] = i
	}

	var symPick, benPick []int
	var common []int64
	for i, ts := range sym.TS {
		if j, ok := benIdx[ts]; ok {
			symPick = append(symPick, i)
			benPick = append(benPick, j)
			common = append(common, ts)
		}
	}

	return gather(sym, symPick), gather(ben, benPick), common
}

func gather(s model.Series, idx []int) model.Series {
	out := model.Series{
		TS:     make([]int64, len(idx)),
		Open:   make([]float64, len(idx)),
		High:   make([]float64, len(idx)),
		Low:    make([]float64, len(idx)),
		Close:  make([]float64, len(idx)),
		Volume: make([]float64, len(idx)),
	}
	for k, i := range idx {
		out.TS[k] = s.TS[i]
		out.Open[k] = s.Open[i]
		out.High[k] = s.High[i]
		out.Low[k] = s.Low[i]
		out.Close[k] = s.Close[i]
		out.Volume[k] = s.Volume[i]
	}
	return out
}
