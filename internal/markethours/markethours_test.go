package markethours

import (
	"testing"
	"time"
)

func newUTCMarket(t *testing.T, afterHours bool) *Market {
	t.Helper()
	m, err := New("UTC", "09:15", "15:30", []string{"MON", "TUE", "WED", "THU", "FRI"}, afterHours)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return m
}

func TestIsOpenWindow(t *testing.T) {
	m := newUTCMarket(t, false)

	// 2026-08-24 is a Monday.
	cases := []struct {
		name string
		at   time.Time
		want bool
	}{
		{"mid-session", time.Date(2026, 8, 24, 11, 0, 0, 0, time.UTC), true},
		{"open minute", time.Date(2026, 8, 24, 9, 15, 0, 0, time.UTC), true},
		{"close minute inclusive", time.Date(2026, 8, 24, 15, 30, 0, 0, time.UTC), true},
		{"before open", time.Date(2026, 8, 24, 9, 14, 0, 0, time.UTC), false},
		{"after close", time.Date(2026, 8, 24, 15, 31, 0, 0, time.UTC), false},
		{"sunday", time.Date(2026, 8, 23, 11, 0, 0, 0, time.UTC), false},
		{"saturday", time.Date(2026, 8, 22, 11, 0, 0, 0, time.UTC), false},
	}
	for _, tc := range cases {
		if got := m.IsOpen(tc.at); got != tc.want {
			t.Errorf("%s: IsOpen = %v, want %v", tc.name, got, tc.want)
		}
	}
}

func TestIsOpenHoliday(t *testing.T) {
	m := newUTCMarket(t, false)
	// Republic Day 2026 falls on a Monday.
	at := time.Date(2026, 1, 26, 11, 0, 0, 0, time.UTC)
	if m.IsOpen(at) {
		t.Errorf("IsOpen = true on an exchange holiday")
	}
}

func TestAllowAfterHoursBypassesGate(t *testing.T) {
	m := newUTCMarket(t, true)
	at := time.Date(2026, 8, 23, 2, 0, 0, 0, time.UTC) // Sunday, pre-dawn
	if !m.IsOpen(at) {
		t.Errorf("IsOpen = false with after-hours bypass enabled")
	}
}

func TestNextOpenSkipsWeekend(t *testing.T) {
	m := newUTCMarket(t, false)
	// Friday after close → Monday 09:15.
	at := time.Date(2026, 8, 21, 16, 0, 0, 0, time.UTC)
	next := m.NextOpen(at)
	want := time.Date(2026, 8, 24, 9, 15, 0, 0, time.UTC)
	if !next.Equal(want) {
		t.Errorf("NextOpen = %v, want %v", next, want)
	}
}

func TestNextOpenSameDayBeforeOpen(t *testing.T) {
	m := newUTCMarket(t, false)
	at := time.Date(2026, 8, 24, 7, 0, 0, 0, time.UTC)
	next := m.NextOpen(at)
	want := time.Date(2026, 8, 24, 9, 15, 0, 0, time.UTC)
	if !next.Equal(want) {
		t.Errorf("NextOpen = %v, want %v", next, want)
	}
}

func TestNewRejectsBadConfig(t *testing.T) {
	if _, err := New("UTC", "15:30", "09:15", []string{"MON"}, false); err == nil {
		t.Errorf("want error when close precedes open")
	}
	if _, err := New("UTC", "09:15", "15:30", []string{"FUNDAY"}, false); err == nil {
		t.Errorf("want error for unknown day code")
	}
	if _, err := New("UTC", "9h15", "15:30", []string{"MON"}, false); err == nil {
		t.Errorf("want error for malformed open time")
	}
}
