package model

// Signal is the discrete state a symbol is classified into after a scan.
type Signal string

const (
	SignalTriggerLong  Signal = "TRIGGER_LONG"
	SignalTriggerShort Signal = "TRIGGER_SHORT"
	SignalWatch        Signal = "WATCH"
	SignalNeutral      Signal = "NEUTRAL"
	SignalExitAvoid    Signal = "EXIT/AVOID"
	SignalNoData       Signal = "NO_DATA"
)

// signalRank is the total order used for snapshot ranking. Lower sorts first.
var signalRank = map[Signal]int{
	SignalTriggerLong:  0,
	SignalTriggerShort: 1,
	SignalWatch:        2,
	SignalNeutral:      3,
	SignalExitAvoid:    4,
	SignalNoData:       5,
}

// Rank returns the sort position of the signal. Unknown signals sort last.
func (s Signal) Rank() int {
	if r, ok := signalRank[s]; ok {
		return r
	}
	return len(signalRank)
}

func (s Signal) String() string { return string(s) }

// Regime describes the aggregate state of a benchmark index.
type Regime string

const (
	RegimeBullish Regime = "BULLISH"
	RegimeBearish Regime = "BEARISH"
	RegimeNeutral Regime = "NEUTRAL"
	RegimeNoData  Regime = "NO_DATA"
)

func (r Regime) String() string { return string(r) }
