package kernel

import "groww-scanner/internal/model"

// CrossesUp reports a strict upward transition over level between the last
// two samples: x[-2] <= level < x[-1]. False for series shorter than 2 or
// when either sample is NaN.
func CrossesUp(x []float64, level float64) bool {
	n := len(x)
	return n > 1 && x[n-2] <= level && x[n-1] > level
}

// CrossesDown reports a strict downward transition over level between the
// last two samples: x[-2] >= level > x[-1].
func CrossesDown(x []float64, level float64) bool {
	n := len(x)
	return n > 1 && x[n-2] >= level && x[n-1] < level
}

// Classify maps the latest indicator values onto a discrete signal.
// Rules are evaluated in order; the first match wins:
//
//  1. rrs crosses up through 0 with volume and volatility confirming → TRIGGER_LONG
//  2. rrs crosses down through 0 with both confirming the short side → TRIGGER_SHORT
//  3. volume and volatility positive while rrs is negative but rising → WATCH
//  4. rrs crossed down, or either confirmation negative → EXIT/AVOID
//  5. otherwise → NEUTRAL
func Classify(rrsVal, rrvVal, rveVal float64, rrsSeries []float64) model.Signal {
	if CrossesUp(rrsSeries, 0) && rrvVal > 0 && rveVal > 0 {
		return model.SignalTriggerLong
	}
	if CrossesDown(rrsSeries, 0) && rrvVal < 0 && rveVal < 0 {
		return model.SignalTriggerShort
	}
	if rveVal > 0 && rrvVal > 0 && rrsVal < 0 && rising(rrsSeries) {
		return model.SignalWatch
	}
	if CrossesDown(rrsSeries, 0) || rveVal < 0 || rrvVal < 0 {
		return model.SignalExitAvoid
	}
	return model.SignalNeutral
}

func rising(x []float64) bool {
	n := len(x)
	return n > 1 && x[n-1] > x[n-2]
}
