package provider

import (
	"strconv"
	"time"

	"groww-scanner/internal/model"
)

// normalizeCandles converts raw provider rows
// [epoch_sec, open, high, low, close, volume, ...] into candles. Rows
// that are short, lack a timestamp, or miss any OHLC field are dropped;
// a missing volume defaults to zero.
func normalizeCandles(symbol string, tf model.Timeframe, rows [][]interface{}) []model.Candle {
	out := make([]model.Candle, 0, len(rows))
	for _, row := range rows {
		if len(row) < 6 {
			continue
		}
		ts, ok := toEpoch(row[0])
		if !ok {
			continue
		}
		open, ok := toFloat(row[1])
		if !ok {
			continue
		}
		high, ok := toFloat(row[2])
		if !ok {
			continue
		}
		low, ok := toFloat(row[3])
		if !ok {
			continue
		}
		closeV, ok := toFloat(row[4])
		if !ok {
			continue
		}
		volume, ok := toFloat(row[5])
		if !ok {
			volume = 0
		}

		out = append(out, model.Candle{
			Symbol:    symbol,
			Timeframe: tf,
			TS:        time.Unix(ts, 0).UTC(),
			Open:      open,
			High:      high,
			Low:       low,
			Close:     closeV,
			Volume:    volume,
			Source:    "groww",
		})
	}
	return out
}

func toEpoch(v interface{}) (int64, bool) {
	switch t := v.(type) {
	case float64:
		return int64(t), true
	case string:
		n, err := strconv.ParseInt(t, 10, 64)
		if err != nil {
			return 0, false
		}
		return n, true
	default:
		return 0, false
	}
}

func toFloat(v interface{}) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case string:
		f, err := strconv.ParseFloat(t, 64)
		if err != nil {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}
