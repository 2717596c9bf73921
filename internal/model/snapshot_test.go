package model

import (
	"testing"
	"time"
)

func row(symbol string, sig Signal, rrs, rve float64) SnapshotRow {
	return SnapshotRow{Symbol: symbol, Timeframe: TF5m, BenchmarkSymbol: "NIFTY", RRS: rrs, RVE: rve, Signal: sig}
}

func assertOrder(t *testing.T, rows []SnapshotRow, want []string) {
	t.Helper()
	if len(rows) != len(want) {
		t.Fatalf("len = %d, want %d", len(rows), len(want))
	}
	for i, sym := range want {
		if rows[i].Symbol != sym {
			t.Errorf("rows[%d] = %s, want %s", i, rows[i].Symbol, sym)
		}
	}
}

func TestSortSnapshotRowsBySignalRank(t *testing.T) {
	rows := []SnapshotRow{
		row("NNN", SignalNoData, 9, 9),
		row("EEE", SignalExitAvoid, 9, 9),
		row("WWW", SignalWatch, 9, 9),
		row("SSS", SignalTriggerShort, 9, 9),
		row("LLL", SignalTriggerLong, 0.1, 0.1),
	}
	SortSnapshotRows(rows)
	assertOrder(t, rows, []string{"LLL", "SSS", "WWW", "EEE", "NNN"})
}

func TestSortSnapshotRowsByMagnitudeWithinSignal(t *testing.T) {
	rows := []SnapshotRow{
		row("AAA", SignalWatch, 0.5, 0),
		row("BBB", SignalWatch, -2.0, 0), // |rrs| decides, sign does not
		row("CCC", SignalWatch, 1.0, 0),
	}
	SortSnapshotRows(rows)
	assertOrder(t, rows, []string{"BBB", "CCC", "AAA"})
}

func TestSortSnapshotRowsRVEThenSymbolTieBreak(t *testing.T) {
	rows := []SnapshotRow{
		row("ZZZ", SignalNeutral, 1.0, 0.2),
		row("MMM", SignalNeutral, 1.0, 0.7),
		// full tie: same signal, |rrs|, |rve|; symbol decides
		row("BBB", SignalNeutral, 1.0, 0.2),
		row("AAA", SignalNeutral, 1.0, 0.2),
	}
	SortSnapshotRows(rows)
	assertOrder(t, rows, []string{"MMM", "AAA", "BBB", "ZZZ"})
}

func TestSignalRankUnknownSortsLast(t *testing.T) {
	if SignalTriggerLong.Rank() >= SignalNoData.Rank() {
		t.Errorf("trigger must rank before no-data")
	}
	if got := Signal("SOMETHING_NEW").Rank(); got <= SignalNoData.Rank() {
		t.Errorf("unknown signal rank = %d, want after all known signals", got)
	}
}

func TestNewSeriesColumns(t *testing.T) {
	at := time.Unix(600, 0).UTC()
	candles := []Candle{
		{Symbol: "TCS", Timeframe: TF5m, TS: at, Open: 1, High: 2, Low: 0.5, Close: 1.5, Volume: 100},
		{Symbol: "TCS", Timeframe: TF5m, TS: at.Add(5 * time.Minute), Open: 1.5, High: 3, Low: 1, Close: 2.5, Volume: 200},
	}
	s := NewSeries(candles)
	if s.Len() != 2 {
		t.Fatalf("Len = %d, want 2", s.Len())
	}
	if s.TS[0] != 600 || s.TS[1] != 900 {
		t.Errorf("TS = %v, want [600 900]", s.TS)
	}
	if s.Close[1] != 2.5 || s.Volume[0] != 100 {
		t.Errorf("columns not gathered from candles: close=%v volume=%v", s.Close, s.Volume)
	}
}

func TestParseTimeframes(t *testing.T) {
	got := ParseTimeframes(" 5m, 2h ,1d,")
	want := []Timeframe{TF5m, TF1d}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("got[%d] = %s, want %s", i, got[i], want[i])
		}
	}

	if out := ParseTimeframes("2m,3m"); out != nil {
		t.Errorf("all-invalid list = %v, want nil", out)
	}
}

func TestTimeframeDuration(t *testing.T) {
	if TF15m.Duration() != 15*time.Minute {
		t.Errorf("15m duration = %s", TF15m.Duration())
	}
	if TF1d.Minutes() != 1440 {
		t.Errorf("1d minutes = %d", TF1d.Minutes())
	}
	if Timeframe("2m").Valid() {
		t.Errorf("2m must not validate")
	}
}
