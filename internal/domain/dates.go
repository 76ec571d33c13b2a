package domain

import "time"

const dateLayout = "2006-01-02"

// DateOf truncates t to its calendar date in t's location, returned as UTC midnight.
func DateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Today is the current calendar date in loc.
func Today(now time.Time, loc *time.Location) time.Time {
	return DateOf(now.In(loc))
}

func AddDays(date time.Time, n int) time.Time {
	return date.AddDate(0, 0, n)
}

func DateKey(date time.Time) string {
	return date.Format(dateLayout)
}

func ParseDateKey(s string) (time.Time, error) {
	return time.Parse(dateLayout, s)
}

// WeekStart returns the Monday of date's week.
func WeekStart(date time.Time) time.Time {
	offset := (int(date.Weekday()) + 6) % 7
	return AddDays(DateOf(date), -offset)
}

func IsWeekStart(date time.Time) bool {
	return date.Weekday() == time.Monday
}

// FormatDay renders a date as ДД.ММ.
func FormatDay(date time.Time) string {
	return date.Format("02.01")
}
