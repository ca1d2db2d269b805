// Package calendar implements Monday-aligned week arithmetic used to address the
// weekly slot grid.
//
// Week 1 of a year is the week that starts on the year's first Monday. Days of January
// that fall before that Monday are clamped into week 1, so every date of a year has a
// week number in [1, LastWeek(year)].
package calendar

import "time"

const daysPerWeek = 7

// Week identifies a week of a year.
type Week struct {
	Number int `json:"week"`
	Year   int `json:"year"`
}

// StartOfDay truncates t to midnight in its own location.
func StartOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// DateIn keeps the calendar date of t, read in t's own location, and places it at midnight
// in loc. Unlike t.In(loc) the day never moves, so a DATE column decoded at UTC midnight
// stays on its day in a zone west of UTC.
func DateIn(t time.Time, loc *time.Location) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
}

// WeekStart returns midnight of the Monday beginning the week that contains t.
func WeekStart(t time.Time) time.Time {
	offset := (int(t.Weekday()) + 6) % daysPerWeek
	return StartOfDay(t).AddDate(0, 0, -offset)
}

// FirstMonday returns the first Monday of year in loc.
func FirstMonday(year int, loc *time.Location) time.Time {
	jan1 := time.Date(year, time.January, 1, 0, 0, 0, 0, loc)
	offset := (int(time.Monday) - int(jan1.Weekday()) + daysPerWeek) % daysPerWeek
	return jan1.AddDate(0, 0, offset)
}

// WeekNumber returns the 1-based week number of t within t's year.
func WeekNumber(t time.Time) int {
	days := daysBetween(FirstMonday(t.Year(), t.Location()), t)
	if days < 0 {
		return 1
	}
	return days/daysPerWeek + 1
}

// LastWeek returns the highest week number of year.
func LastWeek(year int) int {
	return WeekNumber(time.Date(year, time.December, 31, 0, 0, 0, 0, time.UTC))
}

// DateOfWeek returns the Monday that starts week number of year. Week numbers outside
// [1, LastWeek(year)] are clamped into that range.
func DateOfWeek(week, year int, loc *time.Location) time.Time {
	week = clampWeek(week, year)
	return FirstMonday(year, loc).AddDate(0, 0, (week-1)*daysPerWeek)
}

// WeekOf returns the week that contains t.
func WeekOf(t time.Time) Week {
	return Week{Number: WeekNumber(t), Year: t.Year()}
}

// Start returns the Monday of w in loc.
func (w Week) Start(loc *time.Location) time.Time {
	return DateOfWeek(w.Number, w.Year, loc)
}

// Days returns the seven dates of w, Monday first.
func (w Week) Days(loc *time.Location) []time.Time {
	start := w.Start(loc)
	days := make([]time.Time, daysPerWeek)
	for i := range days {
		days[i] = start.AddDate(0, 0, i)
	}
	return days
}

// Next returns the following week, rolling over into week 1 of the next year.
func (w Week) Next() Week {
	w = w.normalize()
	if w.Number >= LastWeek(w.Year) {
		return Week{Number: 1, Year: w.Year + 1}
	}
	return Week{Number: w.Number + 1, Year: w.Year}
}

// Prev returns the preceding week, rolling back into the last week of the previous year.
func (w Week) Prev() Week {
	w = w.normalize()
	if w.Number <= 1 {
		return Week{Number: LastWeek(w.Year - 1), Year: w.Year - 1}
	}
	return Week{Number: w.Number - 1, Year: w.Year}
}

// ShiftYear moves w by delta years keeping the week number, clamped to the target
// year's last week.
func (w Week) ShiftYear(delta int) Week {
	year := w.Year + delta
	return Week{Number: clampWeek(w.Number, year), Year: year}
}

func (w Week) normalize() Week {
	return Week{Number: clampWeek(w.Number, w.Year), Year: w.Year}
}

func clampWeek(week, year int) int {
	if week < 1 {
		return 1
	}
	if last := LastWeek(year); week > last {
		return last
	}
	return week
}

// daysBetween counts calendar days from a to b, ignoring wall-clock time and DST.
func daysBetween(a, b time.Time) int {
	ca := time.Date(a.Year(), a.Month(), a.Day(), 0, 0, 0, 0, time.UTC)
	cb := time.Date(b.Year(), b.Month(), b.Day(), 0, 0, 0, 0, time.UTC)
	return int(cb.Sub(ca).Hours() / 24)
}
