package telegram

import (
	"errors"
	"testing"

	"regime-guard-bot/internal/domain"
)

func TestActionRoundTrip(t *testing.T) {
	actions := []Action{
		{Kind: ActDayRest},
		{Kind: ActDayWork},
		{Kind: ActPlanToggle, Activity: domain.ActivityStretching},
		{Kind: ActPlanHours, Hours: 4},
		{Kind: ActPlanSave},
		{Kind: ActDone, Activity: domain.ActivityWalk},
		{Kind: ActLogScreen},
		{Kind: ActHabitDelete, ID: 17},
		{Kind: ActHabitAnswer, ID: 3, Yes: true},
		{Kind: ActGoalAnswer, ID: 9},
		{Kind: ActGoalType, GoalType: domain.GoalWeekly},
		{Kind: ActGoalSpan, Span: "year"},
		{Kind: ActTipsCategory, Index: 2},
		{Kind: ActTimezone, Index: 6},
		{Kind: ActClearYes},
		{Kind: ActCancel},
	}
	for _, want := range actions {
		data := want.Data()
		if len(data) > 64 {
			t.Errorf("%q exceeds callback data limit", data)
		}
		got, err := ParseAction(data)
		if err != nil {
			t.Errorf("ParseAction(%q): %v", data, err)
			continue
		}
		if got != want {
			t.Errorf("ParseAction(%q) = %+v, want %+v", data, got, want)
		}
	}
}

func TestParseActionRejects(t *testing.T) {
	for _, data := range []string{
		"", "menu:extra", "plan:toggle:juggling", "plan:toggle", "done:", "habit:ans:3:maybe",
		"habit:del:-1", "habit:del:abc", "goal:type:monthly", "goal:span:decade", "tz:x",
		"complete_5", "tips:cat:", "day:holiday",
	} {
		if _, err := ParseAction(data); !errors.Is(err, ErrUnknownAction) {
			t.Errorf("ParseAction(%q) err = %v, want ErrUnknownAction", data, err)
		}
	}
}
