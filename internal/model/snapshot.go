package model

import (
	"encoding/json"
	"math"
	"sort"
	"time"
)

// SnapshotRow is one symbol's indicator state at a scan instant.
// Rows sharing (timeframe, ts) form one snapshot.
type SnapshotRow struct {
	Symbol          string    `json:"symbol" db:"symbol"`
	Timeframe       Timeframe `json:"timeframe" db:"timeframe"`
	BenchmarkSymbol string    `json:"benchmark_symbol" db:"benchmark_symbol"`
	RRS             float64   `json:"rrs" db:"rrs"`
	RRV             float64   `json:"rrv" db:"rrv"`
	RVE             float64   `json:"rve" db:"rve"`
	Signal          Signal    `json:"signal" db:"signal"`
}

// BenchmarkState holds the aggregate regime descriptors for one benchmark.
type BenchmarkState struct {
	Benchmark     string    `json:"benchmark" db:"benchmark"`
	Timeframe     Timeframe `json:"timeframe" db:"timeframe"`
	TS            time.Time `json:"ts" db:"-"`
	Regime        Regime    `json:"regime" db:"regime"`
	Trend         float64   `json:"trend" db:"trend"`
	VolExpansion  float64   `json:"vol_expansion" db:"vol_expansion"`
	Participation float64   `json:"participation" db:"participation"`
}

// SortSnapshotRows orders rows for presentation: actionable signals
// first, then by indicator magnitude, with the symbol as a stable
// tie-break.
func SortSnapshotRows(rows []SnapshotRow) {
	sort.Slice(rows, func(i, j int) bool {
		a, b := rows[i], rows[j]
		if ra, rb := a.Signal.Rank(), b.Signal.Rank(); ra != rb {
			return ra < rb
		}
		if aa, ab := math.Abs(a.RRS), math.Abs(b.RRS); aa != ab {
			return aa > ab
		}
		if aa, ab := math.Abs(a.RVE), math.Abs(b.RVE); aa != ab {
			return aa > ab
		}
		return a.Symbol < b.Symbol
	})
}

// ScannerPayload is the snapshot shape served by the read path and pushed
// over WebSocket: all rows of the latest scan for one timeframe.
type ScannerPayload struct {
	Timeframe Timeframe     `json:"timeframe"`
	TS        string        `json:"ts"` // ISO-8601 UTC
	Rows      []SnapshotRow `json:"rows"`
}

// JSON returns the JSON-encoded payload (ignoring errors for hot-path usage).
func (p *ScannerPayload) JSON() []byte {
	b, _ := json.Marshal(p)
	return b
}

// BenchmarksPayload carries the latest benchmark states for one timeframe.
type BenchmarksPayload struct {
	Timeframe Timeframe        `json:"timeframe"`
	TS        string           `json:"ts"`
	States    []BenchmarkState `json:"states"`
}

// JSON returns the JSON-encoded payload.
func (p *BenchmarksPayload) JSON() []byte {
	b, _ := json.Marshal(p)
	return b
}

// RelativeRow scores one symbol against a single benchmark index.
// Metric fields are pointers so a NO_DATA row carries nulls plus the
// reason instead of misleading zeros.
type RelativeRow struct {
	Index     string    `json:"index"`
	Timeframe Timeframe `json:"timeframe"`
	RRS       *float64  `json:"rrs"`
	RRV       *float64  `json:"rrv"`
	RVE       *float64  `json:"rve"`
	Signal    Signal    `json:"signal"`
	UpdatedAt string    `json:"updated_at,omitempty"`
	Error     string    `json:"error,omitempty"`
}

// RelativePayload answers an on-demand relative-strength query: one
// symbol's indicator state against every benchmark it maps to.
type RelativePayload struct {
	Symbol    string        `json:"symbol"`
	Timeframe Timeframe     `json:"timeframe"`
	Rows      []RelativeRow `json:"rows"`
}

// JSON returns the JSON-encoded payload.
func (p *RelativePayload) JSON() []byte {
	b, _ := json.Marshal(p)
	return b
}
