package service

import (
	"errors"
	"testing"

	"regime-guard-bot/internal/domain"
	"regime-guard-bot/internal/state"
)

func TestGoalSetupWeekly(t *testing.T) {
	f := newFixture(t)
	goals := f.svc.Goals

	if err := goals.StartSetup(f.ctx, f.key); err != nil {
		t.Fatal(err)
	}
	if err := goals.ChooseType(f.ctx, f.key, domain.GoalWeekly); err != nil {
		t.Fatal(err)
	}
	next, err := goals.EnterName(f.ctx, f.key, "Бег")
	if err != nil || next != state.StepGoalEnteringDays {
		t.Fatalf("EnterName = %q, %v", next, err)
	}
	for _, bad := range []string{"0", "9", "три"} {
		if err := goals.EnterDaysPerWeek(f.ctx, f.key, bad); !errors.Is(err, ErrInvalidDays) {
			t.Errorf("EnterDaysPerWeek(%q) = %v, want ErrInvalidDays", bad, err)
		}
	}
	if s := f.step(t); s != state.StepGoalEnteringDays {
		t.Fatalf("bad input moved state to %q", s)
	}
	if err := goals.EnterDaysPerWeek(f.ctx, f.key, "3"); err != nil {
		t.Fatal(err)
	}
	if err := goals.EnterTarget(f.ctx, f.key, "x"); !errors.Is(err, ErrInvalidNumber) {
		t.Errorf("EnterTarget(x) = %v", err)
	}
	if err := goals.EnterTarget(f.ctx, f.key, "12"); err != nil {
		t.Fatal(err)
	}
	goal, err := goals.ChooseSpan(f.ctx, f.key, f.user, "month")
	if err != nil {
		t.Fatalf("ChooseSpan: %v", err)
	}

	if goal.Type != domain.GoalWeekly || goal.TargetValue != 12 || goal.DaysPerWeek == nil || *goal.DaysPerWeek != 3 {
		t.Errorf("goal = %+v", goal)
	}
	if !goal.StartDate.Equal(f.today) || !goal.EndDate.Equal(domain.AddDays(f.today, 30)) {
		t.Errorf("goal dates = %s..%s", domain.DateKey(goal.StartDate), domain.DateKey(goal.EndDate))
	}
	if s := f.step(t); s != state.StepIdle {
		t.Errorf("step after setup = %q", s)
	}

	active, _ := goals.ListActive(f.ctx, f.user)
	if len(active) != 1 {
		t.Errorf("active goals = %d", len(active))
	}
}

func TestGoalSetupDailySkipsDays(t *testing.T) {
	f := newFixture(t)
	goals := f.svc.Goals
	_ = goals.StartSetup(f.ctx, f.key)
	_ = goals.ChooseType(f.ctx, f.key, domain.GoalDaily)
	next, err := goals.EnterName(f.ctx, f.key, "Вода")
	if err != nil || next != state.StepGoalEnteringTarget {
		t.Fatalf("EnterName = %q, %v", next, err)
	}
}

func TestGoalProgressClamped(t *testing.T) {
	f := newFixture(t)
	goal := &domain.Goal{
		UserID: f.user.ID, Name: "Прогулки", Type: domain.GoalWeekly,
		TargetValue: 3, StartDate: f.today, EndDate: domain.AddDays(f.today, 30),
	}
	if err := f.repo.CreateGoal(f.ctx, goal); err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 10; i++ {
		if _, err := f.svc.Goals.AddActivityProgress(f.ctx, f.user, domain.ActivityWalk, 2); err != nil {
			t.Fatal(err)
		}
	}
	got, _ := f.repo.GetGoal(f.ctx, goal.ID)
	if got.CurrentValue != 3 {
		t.Errorf("current = %d, want clamped 3", got.CurrentValue)
	}
	if got.IsCompleted {
		t.Error("weekly goal completed outside the reset job")
	}
}

func TestRecordCompletionDailyStreak(t *testing.T) {
	f := newFixture(t)
	goal := &domain.Goal{
		UserID: f.user.ID, Name: "Зарядка", Type: domain.GoalDaily,
		TargetValue: 1, StartDate: f.today, EndDate: domain.AddDays(f.today, 30),
	}
	if err := f.repo.CreateGoal(f.ctx, goal); err != nil {
		t.Fatal(err)
	}
	yesterday := domain.AddDays(f.today, -1)
	if err := f.svc.Goals.RecordCompletion(f.ctx, f.user.ID, goal, yesterday, true); err != nil {
		t.Fatal(err)
	}
	if err := f.svc.Goals.RecordCompletion(f.ctx, f.user.ID, goal, f.today, true); err != nil {
		t.Fatal(err)
	}
	got, _ := f.repo.GetGoal(f.ctx, goal.ID)
	if got.Streak != 2 {
		t.Errorf("streak = %d, want 2", got.Streak)
	}

	if err := f.svc.Goals.RecordCompletion(f.ctx, f.user.ID, got, domain.AddDays(f.today, 1), false); err != nil {
		t.Fatal(err)
	}
	got, _ = f.repo.GetGoal(f.ctx, goal.ID)
	if got.Streak != 2 {
		t.Errorf("a missed answer changed the streak to %d", got.Streak)
	}
}

func TestRecordCompletionRepeatedAnswer(t *testing.T) {
	f := newFixture(t)
	goal := &domain.Goal{
		UserID: f.user.ID, Name: "Зарядка", Type: domain.GoalDaily, TargetValue: 1,
		StartDate: domain.AddDays(f.today, -10), EndDate: domain.AddDays(f.today, 30),
	}
	if err := f.repo.CreateGoal(f.ctx, goal); err != nil {
		t.Fatal(err)
	}
	if err := f.repo.UpdateGoalStreak(f.ctx, goal.ID, 3); err != nil {
		t.Fatal(err)
	}
	yesterday := domain.AddDays(f.today, -1)
	if err := f.repo.SaveGoalCompletion(f.ctx, f.user.ID, goal.ID, yesterday, true); err != nil {
		t.Fatal(err)
	}

	// A retried answer saves the same completion twice.
	for i := 0; i < 2; i++ {
		got, _ := f.repo.GetGoal(f.ctx, goal.ID)
		if err := f.svc.Goals.RecordCompletion(f.ctx, f.user.ID, got, f.today, true); err != nil {
			t.Fatalf("attempt %d: %v", i, err)
		}
	}
	got, _ := f.repo.GetGoal(f.ctx, goal.ID)
	if got.Streak != 4 {
		t.Errorf("streak = %d, want 4", got.Streak)
	}
}

func TestRecordCompletionWeeklyStreak(t *testing.T) {
	f := newFixture(t)
	days := 2
	goal := &domain.Goal{
		UserID: f.user.ID, Name: "Бассейн", Type: domain.GoalWeekly, TargetValue: 10,
		DaysPerWeek: &days, StartDate: f.today, EndDate: domain.AddDays(f.today, 30),
	}
	if err := f.repo.CreateGoal(f.ctx, goal); err != nil {
		t.Fatal(err)
	}
	monday := domain.WeekStart(f.today)
	if err := f.svc.Goals.RecordCompletion(f.ctx, f.user.ID, goal, monday, true); err != nil {
		t.Fatal(err)
	}
	if goal.Streak != 0 {
		t.Fatalf("streak after 1 of 2 days = %d", goal.Streak)
	}
	if err := f.svc.Goals.RecordCompletion(f.ctx, f.user.ID, goal, f.today, true); err != nil {
		t.Fatal(err)
	}
	got, _ := f.repo.GetGoal(f.ctx, goal.ID)
	if got.Streak != 1 {
		t.Errorf("streak after reaching target = %d, want 1", got.Streak)
	}
}

func TestResetProgress(t *testing.T) {
	f := newFixture(t)
	daily := &domain.Goal{UserID: f.user.ID, Name: "a", Type: domain.GoalDaily, TargetValue: 1,
		StartDate: f.today, EndDate: domain.AddDays(f.today, 7)}
	weekly := &domain.Goal{UserID: f.user.ID, Name: "b", Type: domain.GoalWeekly, TargetValue: 5,
		StartDate: f.today, EndDate: domain.AddDays(f.today, 7)}
	for _, g := range []*domain.Goal{daily, weekly} {
		if err := f.repo.CreateGoal(f.ctx, g); err != nil {
			t.Fatal(err)
		}
		g.AddProgress(1)
		if err := f.repo.UpdateGoalProgress(f.ctx, g); err != nil {
			t.Fatal(err)
		}
	}

	// Wednesday: weekly goals keep their progress
	report, err := f.svc.Goals.ResetProgress(f.ctx, f.user, f.today)
	if err != nil {
		t.Fatal(err)
	}
	if report.DailyReset != 1 || report.WeeklyReset != 0 {
		t.Errorf("midweek report = %+v", report)
	}
	got, _ := f.repo.GetGoal(f.ctx, daily.ID)
	if got.CurrentValue != 0 || got.IsCompleted {
		t.Errorf("daily goal after reset = %+v", got)
	}

	report, err = f.svc.Goals.ResetProgress(f.ctx, f.user, domain.WeekStart(domain.AddDays(f.today, 7)))
	if err != nil {
		t.Fatal(err)
	}
	if report.WeeklyReset != 1 {
		t.Errorf("monday report = %+v", report)
	}
}

func TestResetMissedStreaks(t *testing.T) {
	f := newFixture(t)
	kept := &domain.Goal{UserID: f.user.ID, Name: "kept", Type: domain.GoalDaily, TargetValue: 1,
		StartDate: f.today, EndDate: domain.AddDays(f.today, 7)}
	lost := &domain.Goal{UserID: f.user.ID, Name: "lost", Type: domain.GoalDaily, TargetValue: 1,
		StartDate: f.today, EndDate: domain.AddDays(f.today, 7)}
	for _, g := range []*domain.Goal{kept, lost} {
		if err := f.repo.CreateGoal(f.ctx, g); err != nil {
			t.Fatal(err)
		}
		if err := f.repo.UpdateGoalStreak(f.ctx, g.ID, 4); err != nil {
			t.Fatal(err)
		}
	}
	yesterday := domain.AddDays(f.today, -1)
	if err := f.repo.SaveGoalCompletion(f.ctx, f.user.ID, kept.ID, yesterday, true); err != nil {
		t.Fatal(err)
	}
	if err := f.repo.SaveGoalCompletion(f.ctx, f.user.ID, lost.ID, yesterday, false); err != nil {
		t.Fatal(err)
	}

	report, err := f.svc.Goals.ResetMissedStreaks(f.ctx, f.user, f.today)
	if err != nil {
		t.Fatal(err)
	}
	if report.StreaksZeroed != 1 {
		t.Errorf("zeroed = %d, want 1", report.StreaksZeroed)
	}
	if g, _ := f.repo.GetGoal(f.ctx, kept.ID); g.Streak != 4 {
		t.Errorf("kept streak = %d", g.Streak)
	}
	if g, _ := f.repo.GetGoal(f.ctx, lost.ID); g.Streak != 0 {
		t.Errorf("lost streak = %d", g.Streak)
	}
}

func TestDeleteUnknownGoal(t *testing.T) {
	f := newFixture(t)
	if err := f.svc.Goals.Delete(f.ctx, f.user, 999); !errors.Is(err, ErrGoalNotFound) {
		t.Errorf("Delete = %v, want ErrGoalNotFound", err)
	}
}
