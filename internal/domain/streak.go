package domain

import "time"

// HabitStreak counts consecutive completed days ending today. If today has
// no answer yet the count starts from yesterday.
func HabitStreak(history map[string]bool, today time.Time) int {
	day := DateOf(today)
	if _, answered := history[DateKey(day)]; !answered {
		day = AddDays(day, -1)
	}

	streak := 0
	for history[DateKey(day)] {
		streak++
		day = AddDays(day, -1)
	}
	return streak
}

// NextDailyStreak is the goal streak after a completed day.
func NextDailyStreak(current int, yesterdayCompleted bool) int {
	if yesterdayCompleted {
		return current + 1
	}
	return 1
}

// NextWeeklyStreak advances a weekly goal streak at the moment the week's
// completed-day count reaches target. Any other count leaves it unchanged.
func NextWeeklyStreak(current, thisWeek, prevWeek, target int) (int, bool) {
	if thisWeek != target {
		return current, false
	}
	if prevWeek >= target {
		return current + 1, true
	}
	return 1, true
}

// CountCompleted counts completed days in [from, to].
func CountCompleted(history map[string]bool, from, to time.Time) int {
	n := 0
	for day := DateOf(from); !day.After(to); day = AddDays(day, 1) {
		if history[DateKey(day)] {
			n++
		}
	}
	return n
}
