package model

import (
	"encoding/json"
	"time"
)

// Candle represents one OHLCV bar for a symbol at a given timeframe.
// TS is the bar open time in UTC. Prices are float64 because the upstream
// provider reports decimal rupees, not paise.
type Candle struct {
	Symbol    string    `json:"symbol" db:"symbol"`
	Timeframe Timeframe `json:"timeframe" db:"timeframe"`
	TS        time.Time `json:"ts" db:"-"`
	Open      float64   `json:"open" db:"open"`
	High      float64   `json:"high" db:"high"`
	Low       float64   `json:"low" db:"low"`
	Close     float64   `json:"close" db:"close"`
	Volume    float64   `json:"volume" db:"volume"`
	Source    string    `json:"source" db:"source"`
}

// Key returns a unique key for this candle's series: "symbol:timeframe".
func (c *Candle) Key() string {
	return c.Symbol + ":" + string(c.Timeframe)
}

// JSON returns the JSON-encoded candle (ignoring errors for hot-path usage).
func (c *Candle) JSON() []byte {
	b, _ := json.Marshal(c)
	return b
}

// Series is a column-oriented view of a candle slice, the input shape
// for the indicator kernel and the cached candle-window payload. TS
// carries unix seconds.
type Series struct {
	TS     []int64   `json:"ts"`
	Open   []float64 `json:"open"`
	High   []float64 `json:"high"`
	Low    []float64 `json:"low"`
	Close  []float64 `json:"close"`
	Volume []float64 `json:"volume"`
}

// NewSeries converts row-oriented candles into a column-oriented Series.
func NewSeries(candles []Candle) Series {
	s := Series{
		TS:     make([]int64, len(candles)),
		Open:   make([]float64, len(candles)),
		High:   make([]float64, len(candles)),
		Low:    make([]float64, len(candles)),
		Close:  make([]float64, len(candles)),
		Volume: make([]float64, len(candles)),
	}
	for i, c := range candles {
		s.TS[i] = c.TS.Unix()
		s.Open[i] = c.Open
		s.High[i] = c.High
		s.Low[i] = c.Low
		s.Close[i] = c.Close
		s.Volume[i] = c.Volume
	}
	return s
}

// Len returns the number of bars in the series.
func (s Series) Len() int { return len(s.TS) }
