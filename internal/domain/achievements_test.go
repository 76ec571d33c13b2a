package domain

import "testing"

func compliantScreenDays(n int) map[string]DayRecord {
	goal := 240
	out := make(map[string]DayRecord)
	for i := 0; i < n; i++ {
		out[DateKey(AddDays(today, -i))] = DayRecord{
			Stat:          &DailyStat{ScreenTimeGoal: &goal, Planned: ActivitySet{}, Done: ActivitySet{}},
			ScreenMinutes: 200,
		}
	}
	return out
}

func codes(rules []AchievementRule) map[string]bool {
	out := make(map[string]bool)
	for _, r := range rules {
		out[r.Code()] = true
	}
	return out
}

func TestEvaluateAchievementsBoundary(t *testing.T) {
	hist := compliantScreenDays(3)
	// fourth day back exceeds the goal
	goal := 240
	hist[DateKey(AddDays(today, -3))] = DayRecord{
		Stat:          &DailyStat{ScreenTimeGoal: &goal},
		ScreenMinutes: 300,
	}

	got := codes(EvaluateAchievements(hist, today))
	if !got["screen_3"] {
		t.Error("expected screen_3")
	}
	if got["screen_7"] {
		t.Error("did not expect screen_7")
	}
	if got["productive_3"] || got["plan_3"] {
		t.Errorf("unexpected grants: %v", got)
	}
}

func TestEvaluateAchievementsSevenDays(t *testing.T) {
	got := codes(EvaluateAchievements(compliantScreenDays(7), today))
	if !got["screen_3"] || !got["screen_7"] || got["screen_14"] {
		t.Errorf("grants = %v", got)
	}
}

func TestRestDayNeverComplies(t *testing.T) {
	r := DayRecord{Stat: &DailyStat{IsRestDay: true}, ProductiveMinutes: 120}
	if ConditionProductive.Complies(r) {
		t.Error("rest day must not comply")
	}
	if ConditionProductive.Complies(DayRecord{ProductiveMinutes: 120}) {
		t.Error("day without a plan must not comply")
	}
}

func TestPlanCondition(t *testing.T) {
	done := DayRecord{Stat: &DailyStat{
		Planned: ActivitySet{ActivityCoding: true},
		Done:    ActivitySet{ActivityCoding: true},
	}}
	if !ConditionPlan.Complies(done) {
		t.Error("fully done plan should comply")
	}
	empty := DayRecord{Stat: &DailyStat{Planned: ActivitySet{}, Done: ActivitySet{}}}
	if ConditionPlan.Complies(empty) {
		t.Error("empty plan should not comply")
	}
}
