// Package calendar implements the Time/Calendar component: enumerating
// trading sessions, mapping a session to its open/close instants, and
// classifying a timestamp as in-session.
package calendar

import (
	"time"

	"quantrail/errs"
)

// Calendar is value-immutable and thread-shareable.
type Calendar interface {
	IsSession(date time.Time) bool
	NextSession(date time.Time) time.Time
	PreviousSession(date time.Time) time.Time
	SessionWindow(date time.Time) (open, close time.Time)
	SessionsInRange(start, end time.Time) []time.Time
}

// NYSE is the canonical calendar: weekend exclusion plus fixed and
// shifting (observed-weekday) US holidays, open 14:30 UTC / close 21:00 UTC.
type NYSE struct {
	Open  time.Duration
	Close time.Duration
}

// NewNYSE returns the default NYSE calendar (14:30–21:00 UTC).
func NewNYSE() NYSE {
	return NYSE{Open: 14*time.Hour + 30*time.Minute, Close: 21 * time.Hour}
}

func dateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// observedHoliday shifts a fixed-date holiday landing on a weekend to the
// nearest weekday: Saturday observed the preceding Friday, Sunday the
// following Monday.
func observedHoliday(year int, month time.Month, day int) time.Time {
	d := time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
	switch d.Weekday() {
	case time.Saturday:
		return d.AddDate(0, 0, -1)
	case time.Sunday:
		return d.AddDate(0, 0, 1)
	default:
		return d
	}
}

func nthWeekday(year int, month time.Month, weekday time.Weekday, n int) time.Time {
	d := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	count := 0
	for {
		if d.Weekday() == weekday {
			count++
			if count == n {
				return d
			}
		}
		d = d.AddDate(0, 0, 1)
	}
}

func lastWeekday(year int, month time.Month, weekday time.Weekday) time.Time {
	d := time.Date(year, month+1, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, -1)
	for d.Weekday() != weekday {
		d = d.AddDate(0, 0, -1)
	}
	return d
}

func easterSunday(year int) time.Time {
	// Anonymous Gregorian algorithm.
	a := year % 19
	b := year / 100
	c := year % 100
	d := b / 4
	e := b % 4
	f := (b + 8) / 25
	g := (b - f + 1) / 3
	h := (19*a + b - d - g + 15) % 30
	i := c / 4
	k := c % 4
	l := (32 + 2*e + 2*i - h - k) % 7
	m := (a + 11*h + 22*l) / 451
	month := (h + l - 7*m + 114) / 31
	day := (h+l-7*m+114)%31 + 1
	return time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
}

// holidays returns the set of NYSE holidays observed in a given year.
func holidays(year int) map[time.Time]bool {
	h := map[time.Time]bool{
		observedHoliday(year, time.January, 1):   true,
		nthWeekday(year, time.January, time.Monday, 3):  true, // MLK Day
		nthWeekday(year, time.February, time.Monday, 3): true, // Presidents Day
		easterSunday(year).AddDate(0, 0, -2):             true, // Good Friday
		lastWeekday(year, time.May, time.Monday):         true, // Memorial Day
		observedHoliday(year, time.June, 19):             true, // Juneteenth
		observedHoliday(year, time.July, 4):              true,
		nthWeekday(year, time.September, time.Monday, 1): true, // Labor Day
		nthWeekday(year, time.November, time.Thursday, 4): true, // Thanksgiving
		observedHoliday(year, time.December, 25):         true,
	}
	return h
}

func isHoliday(d time.Time) bool {
	return holidays(d.Year())[dateOnly(d)]
}

// IsSession reports whether date is a trading session (not a weekend or
// holiday).
func (c NYSE) IsSession(date time.Time) bool {
	d := dateOnly(date)
	if d.Weekday() == time.Saturday || d.Weekday() == time.Sunday {
		return false
	}
	return !isHoliday(d)
}

// NextSession returns the first session strictly after date.
func (c NYSE) NextSession(date time.Time) time.Time {
	d := dateOnly(date).AddDate(0, 0, 1)
	for !c.IsSession(d) {
		d = d.AddDate(0, 0, 1)
	}
	return d
}

// PreviousSession returns the last session strictly before date.
func (c NYSE) PreviousSession(date time.Time) time.Time {
	d := dateOnly(date).AddDate(0, 0, -1)
	for !c.IsSession(d) {
		d = d.AddDate(0, 0, -1)
	}
	return d
}

// SessionWindow returns the open/close instants of the session containing
// date. date is expected to already be a session date.
func (c NYSE) SessionWindow(date time.Time) (time.Time, time.Time) {
	d := dateOnly(date)
	return d.Add(c.Open), d.Add(c.Close)
}

// SessionsInRange enumerates every session date in [start, end], inclusive.
func (c NYSE) SessionsInRange(start, end time.Time) []time.Time {
	var out []time.Time
	d := dateOnly(start)
	last := dateOnly(end)
	for !d.After(last) {
		if c.IsSession(d) {
			out = append(out, d)
		}
		d = d.AddDate(0, 0, 1)
	}
	return out
}

// ByName resolves a calendar by name; unrecognized names are a
// Configuration error, fatal at construction.
func ByName(name string) (Calendar, error) {
	switch name {
	case "", "NYSE", "nyse":
		return NewNYSE(), nil
	default:
		return nil, errs.New(errs.InvalidCalendarName, "unknown calendar", "name", name)
	}
}
