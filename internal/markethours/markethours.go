package markethours

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// IST is the Indian Standard Time location (UTC+5:30), the fallback when
// the configured zone cannot be loaded.
var IST = time.FixedZone("IST", 5*3600+30*60)

// dayMap translates the 3-letter day codes used in configuration.
var dayMap = map[string]time.Weekday{
	"MON": time.Monday,
	"TUE": time.Tuesday,
	"WED": time.Wednesday,
	"THU": time.Thursday,
	"FRI": time.Friday,
	"SAT": time.Saturday,
	"SUN": time.Sunday,
}

// Market is the trading-hours gate: a local-time window on a configured
// set of weekdays, minus exchange holidays. AllowAfterHours bypasses the
// whole gate (used for paper runs and backfills outside the session).
type Market struct {
	loc             *time.Location
	openHM          int // minutes since midnight
	closeHM         int
	days            map[time.Weekday]bool
	holidays        map[string]bool // "2006-01-02" in loc
	allowAfterHours bool
}

// New builds a Market gate. tz is an IANA zone name, open/close are
// "HH:MM" local times, days are 3-letter codes (MON..SUN).
func New(tz, open, close string, days []string, allowAfterHours bool) (*Market, error) {
	loc, err := time.LoadLocation(tz)
	if err != nil {
		loc = IST
	}

	openHM, err := parseHM(open)
	if err != nil {
		return nil, fmt.Errorf("market open time: %w", err)
	}
	closeHM, err := parseHM(close)
	if err != nil {
		return nil, fmt.Errorf("market close time: %w", err)
	}
	if closeHM <= openHM {
		return nil, fmt.Errorf("market close %s not after open %s", close, open)
	}

	daySet := make(map[time.Weekday]bool, len(days))
	for _, d := range days {
		wd, ok := dayMap[strings.ToUpper(strings.TrimSpace(d))]
		if !ok {
			return nil, fmt.Errorf("unknown market day %q", d)
		}
		daySet[wd] = true
	}
	if len(daySet) == 0 {
		return nil, fmt.Errorf("no market days configured")
	}

	m := &Market{
		loc:             loc,
		openHM:          openHM,
		closeHM:         closeHM,
		days:            daySet,
		allowAfterHours: allowAfterHours,
	}
	m.holidays = buildHolidaySet(loc)
	return m, nil
}

func parseHM(s string) (int, error) {
	parts := strings.SplitN(strings.TrimSpace(s), ":", 2)
	if len(parts) != 2 {
		return 0, fmt.Errorf("want HH:MM, got %q", s)
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil || h < 0 || h > 23 {
		return 0, fmt.Errorf("bad hour in %q", s)
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil || m < 0 || m > 59 {
		return 0, fmt.Errorf("bad minute in %q", s)
	}
	return h*60 + m, nil
}

// IsOpen reports whether t falls inside the trading session. The close
// minute is inclusive. AllowAfterHours makes the market always open.
func (m *Market) IsOpen(t time.Time) bool {
	if m.allowAfterHours {
		return true
	}
	local := t.In(m.loc)
	if !m.days[local.Weekday()] {
		return false
	}
	if m.holidays[local.Format("2006-01-02")] {
		return false
	}
	hm := local.Hour()*60 + local.Minute()
	return hm >= m.openHM && hm <= m.closeHM
}

// Location returns the market's local time zone.
func (m *Market) Location() *time.Location {
	return m.loc
}

// NextOpen returns the next session open at or after t, scanning at most
// ten days ahead (enough to clear any weekend-plus-holiday run).
func (m *Market) NextOpen(t time.Time) time.Time {
	local := t.In(m.loc)

	todayOpen := time.Date(local.Year(), local.Month(), local.Day(),
		m.openHM/60, m.openHM%60, 0, 0, m.loc)
	if local.Before(todayOpen) && m.isTradingDay(local) {
		return todayOpen
	}

	d := local.AddDate(0, 0, 1)
	for i := 0; i < 10; i++ {
		if m.isTradingDay(d) {
			return time.Date(d.Year(), d.Month(), d.Day(),
				m.openHM/60, m.openHM%60, 0, 0, m.loc)
		}
		d = d.AddDate(0, 0, 1)
	}
	return todayOpen.AddDate(0, 0, 1)
}

func (m *Market) isTradingDay(t time.Time) bool {
	local := t.In(m.loc)
	return m.days[local.Weekday()] && !m.holidays[local.Format("2006-01-02")]
}

// StatusString returns a human-readable session status for startup logs.
func (m *Market) StatusString(t time.Time) string {
	if m.IsOpen(t) {
		return "market open"
	}
	next := m.NextOpen(t)
	local := next.In(m.loc)
	return fmt.Sprintf("market closed, next open %s %s",
		local.Weekday().String()[:3], local.Format("15:04"))
}
