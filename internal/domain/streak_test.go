package domain

import (
	"testing"
	"time"
)

var today = time.Date(2025, 3, 12, 0, 0, 0, 0, time.UTC) // Wednesday

func history(days map[int]bool) map[string]bool {
	out := make(map[string]bool, len(days))
	for offset, done := range days {
		out[DateKey(AddDays(today, offset))] = done
	}
	return out
}

func TestHabitStreak(t *testing.T) {
	tests := []struct {
		name string
		days map[int]bool
		want int
	}{
		{"three days then gap", map[int]bool{0: true, -1: true, -2: true, -3: false}, 3},
		{"today unanswered counts from yesterday", map[int]bool{-1: true, -2: true}, 2},
		{"today answered no", map[int]bool{0: false, -1: true}, 0},
		{"missing row breaks streak", map[int]bool{0: true, -2: true}, 1},
		{"empty history", map[int]bool{}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := HabitStreak(history(tt.days), today); got != tt.want {
				t.Errorf("HabitStreak = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestNextDailyStreak(t *testing.T) {
	if got := NextDailyStreak(4, true); got != 5 {
		t.Errorf("NextDailyStreak(4, true) = %d, want 5", got)
	}
	if got := NextDailyStreak(4, false); got != 1 {
		t.Errorf("NextDailyStreak(4, false) = %d, want 1", got)
	}
}

func TestNextWeeklyStreak(t *testing.T) {
	tests := []struct {
		current, thisWeek, prevWeek, target int
		want                                int
		changed                             bool
	}{
		{current: 2, thisWeek: 3, prevWeek: 3, target: 3, want: 3, changed: true},
		{current: 2, thisWeek: 3, prevWeek: 1, target: 3, want: 1, changed: true},
		{current: 2, thisWeek: 2, prevWeek: 3, target: 3, want: 2, changed: false},
		{current: 2, thisWeek: 4, prevWeek: 3, target: 3, want: 2, changed: false},
	}

	for _, tt := range tests {
		got, changed := NextWeeklyStreak(tt.current, tt.thisWeek, tt.prevWeek, tt.target)
		if got != tt.want || changed != tt.changed {
			t.Errorf("NextWeeklyStreak(%d,%d,%d,%d) = %d,%v want %d,%v",
				tt.current, tt.thisWeek, tt.prevWeek, tt.target, got, changed, tt.want, tt.changed)
		}
	}
}

func TestWeekStart(t *testing.T) {
	monday := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 7; i++ {
		if got := WeekStart(AddDays(monday, i)); !got.Equal(monday) {
			t.Errorf("WeekStart(+%d) = %s, want %s", i, got, monday)
		}
	}
	if !IsWeekStart(monday) || IsWeekStart(today) {
		t.Error("IsWeekStart mismatch")
	}
}

func TestCountCompleted(t *testing.T) {
	h := history(map[int]bool{0: true, -1: false, -2: true, -9: true})
	if got := CountCompleted(h, AddDays(today, -6), today); got != 2 {
		t.Errorf("CountCompleted = %d, want 2", got)
	}
}

func TestToday(t *testing.T) {
	almaty := time.FixedZone("UTC+5", 5*3600)
	now := time.Date(2025, 3, 12, 21, 30, 0, 0, time.UTC)
	if got := Today(now, almaty); DateKey(got) != "2025-03-13" {
		t.Errorf("Today = %s, want 2025-03-13", DateKey(got))
	}
}
