package provider

import "groww-scanner/internal/model"

// Interval describes one provider candle tier: the upstream interval
// name, its bar width in minutes, and the widest request span the API
// accepts for it.
type Interval struct {
	Name    string
	Minutes int
	MaxDays int
}

var timeframeIntervals = map[model.Timeframe]Interval{
	model.TF5m:  {Name: "CANDLE_INTERVAL_MIN_5", Minutes: 5, MaxDays: 30},
	model.TF15m: {Name: "CANDLE_INTERVAL_MIN_15", Minutes: 15, MaxDays: 90},
	model.TF1h:  {Name: "CANDLE_INTERVAL_HOUR_1", Minutes: 60, MaxDays: 180},
	model.TF1d:  {Name: "CANDLE_INTERVAL_DAY_1", Minutes: 1440, MaxDays: 180},
}

// IntervalFor maps a timeframe to its provider tier.
func IntervalFor(tf model.Timeframe) (Interval, bool) {
	iv, ok := timeframeIntervals[tf]
	return iv, ok
}
