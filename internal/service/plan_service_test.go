package service

import (
	"errors"
	"testing"

	"regime-guard-bot/internal/domain"
	"regime-guard-bot/internal/state"
)

func TestCommitPlanRequiresTimeLimit(t *testing.T) {
	f := newFixture(t)
	plans := f.svc.Plans

	if err := plans.StartMorningPoll(f.ctx, f.key, f.user); err != nil {
		t.Fatal(err)
	}
	if s := f.step(t); s != state.StepChoosingDayType {
		t.Fatalf("step = %q, want choosing_day_type", s)
	}
	if _, err := plans.ChooseDayType(f.ctx, f.key, f.user, false); err != nil {
		t.Fatal(err)
	}
	if _, err := plans.TogglePlanField(f.ctx, f.key, domain.ActivityWorkout); err != nil {
		t.Fatal(err)
	}
	if _, err := plans.CommitPlan(f.ctx, f.key, f.user); !errors.Is(err, ErrTimeLimitRequired) {
		t.Fatalf("CommitPlan without limit = %v, want ErrTimeLimitRequired", err)
	}
	if s := f.step(t); s != state.StepComposingPlan {
		t.Fatalf("failed commit moved state to %q", s)
	}

	plan, err := plans.SetPlanTimeLimit(f.ctx, f.key, 4)
	if err != nil {
		t.Fatal(err)
	}
	if plan.ScreenTimeGoal == nil || *plan.ScreenTimeGoal != 240 {
		t.Fatalf("staged goal = %v, want 240", plan.ScreenTimeGoal)
	}
	stat, err := plans.CommitPlan(f.ctx, f.key, f.user)
	if err != nil {
		t.Fatalf("CommitPlan: %v", err)
	}
	if !stat.MorningPollCompleted || !stat.Planned.Has(domain.ActivityWorkout) || stat.Done.Count() != 0 {
		t.Errorf("committed stat = %+v", stat)
	}
	if s := f.step(t); s != state.StepIdle {
		t.Errorf("step after commit = %q", s)
	}
	if err := plans.StartMorningPoll(f.ctx, f.key, f.user); !errors.Is(err, ErrMorningPollDone) {
		t.Errorf("second morning poll = %v, want ErrMorningPollDone", err)
	}
}

func TestTogglePlanFieldFlips(t *testing.T) {
	f := newFixture(t)
	plans := f.svc.Plans
	if err := plans.StartMorningPoll(f.ctx, f.key, f.user); err != nil {
		t.Fatal(err)
	}
	if _, err := plans.ChooseDayType(f.ctx, f.key, f.user, false); err != nil {
		t.Fatal(err)
	}

	plan, _ := plans.TogglePlanField(f.ctx, f.key, domain.ActivityCoding)
	if !plan.Planned.Has(domain.ActivityCoding) {
		t.Fatal("first toggle should plan coding")
	}
	plan, _ = plans.TogglePlanField(f.ctx, f.key, domain.ActivityCoding)
	if plan.Planned.Has(domain.ActivityCoding) {
		t.Fatal("second toggle should unplan coding")
	}
	if _, err := plans.TogglePlanField(f.ctx, f.key, domain.Activity("juggling")); err == nil {
		t.Error("unknown activity accepted")
	}
	if _, err := plans.SetPlanTimeLimit(f.ctx, f.key, 9); err == nil {
		t.Error("unsupported time limit accepted")
	}
}

func TestToggleWithoutDialogue(t *testing.T) {
	f := newFixture(t)
	if _, err := f.svc.Plans.TogglePlanField(f.ctx, f.key, domain.ActivityWalk); !errors.Is(err, ErrNothingPending) {
		t.Errorf("toggle while idle = %v, want ErrNothingPending", err)
	}
}

func TestRestDayShortCircuit(t *testing.T) {
	f := newFixture(t)
	plans := f.svc.Plans

	if err := plans.StartMorningPoll(f.ctx, f.key, f.user); err != nil {
		t.Fatal(err)
	}
	staged, err := plans.ChooseDayType(f.ctx, f.key, f.user, true)
	if err != nil || staged != nil {
		t.Fatalf("ChooseDayType(rest) = %v, %v", staged, err)
	}
	if s := f.step(t); s != state.StepIdle {
		t.Errorf("step after rest = %q", s)
	}

	stat, err := f.repo.GetDailyStat(f.ctx, f.user.ID, f.today)
	if err != nil {
		t.Fatal(err)
	}
	if !stat.IsRestDay || !stat.MorningPollCompleted || stat.Planned.Count() != 0 {
		t.Errorf("rest day row = %+v", stat)
	}

	if _, err := plans.MarkActivityDone(f.ctx, f.user, domain.ActivityWorkout); !errors.Is(err, ErrRestDay) {
		t.Errorf("MarkActivityDone on rest day = %v, want ErrRestDay", err)
	}
	if err := plans.StartMorningPoll(f.ctx, f.key, f.user); !errors.Is(err, ErrRestDay) {
		t.Errorf("StartMorningPoll on rest day = %v, want ErrRestDay", err)
	}
	stat, _ = f.repo.GetDailyStat(f.ctx, f.user.ID, f.today)
	if stat.Done.Count() != 0 {
		t.Error("rest day row changed")
	}
}

func TestMarkActivityDone(t *testing.T) {
	f := newFixture(t)
	plans := f.svc.Plans

	if _, err := plans.MarkActivityDone(f.ctx, f.user, domain.ActivityWorkout); !errors.Is(err, ErrNoPlanToday) {
		t.Fatalf("without plan = %v, want ErrNoPlanToday", err)
	}

	f.commitPlan(t, 3, domain.ActivityWorkout)

	if _, err := plans.MarkActivityDone(f.ctx, f.user, domain.ActivityEnglish); !errors.Is(err, ErrNotPlanned) {
		t.Errorf("unplanned = %v, want ErrNotPlanned", err)
	}
	stat, err := plans.MarkActivityDone(f.ctx, f.user, domain.ActivityWorkout)
	if err != nil {
		t.Fatalf("MarkActivityDone: %v", err)
	}
	if stat.Status(domain.ActivityWorkout) != domain.StatusDone {
		t.Error("workout not done")
	}
	if _, err := plans.MarkActivityDone(f.ctx, f.user, domain.ActivityWorkout); !errors.Is(err, ErrAlreadyDone) {
		t.Errorf("second mark = %v, want ErrAlreadyDone", err)
	}
}

func TestMarkActivityDoneBumpsMatchingGoal(t *testing.T) {
	f := newFixture(t)
	goal := &domain.Goal{
		UserID: f.user.ID, Name: "Тренировки каждый день", Type: domain.GoalDaily,
		TargetValue: 1, StartDate: f.today, EndDate: domain.AddDays(f.today, 30),
	}
	other := &domain.Goal{
		UserID: f.user.ID, Name: "Читать", Type: domain.GoalDaily,
		TargetValue: 1, StartDate: f.today, EndDate: domain.AddDays(f.today, 30),
	}
	for _, g := range []*domain.Goal{goal, other} {
		if err := f.repo.CreateGoal(f.ctx, g); err != nil {
			t.Fatal(err)
		}
	}

	f.commitPlan(t, 2, domain.ActivityWorkout)
	if _, err := f.svc.Plans.MarkActivityDone(f.ctx, f.user, domain.ActivityWorkout); err != nil {
		t.Fatal(err)
	}

	got, _ := f.repo.GetGoal(f.ctx, goal.ID)
	if got.CurrentValue != 1 || !got.IsCompleted {
		t.Errorf("matching goal = %d/%d completed=%v", got.CurrentValue, got.TargetValue, got.IsCompleted)
	}
	got, _ = f.repo.GetGoal(f.ctx, other.ID)
	if got.CurrentValue != 0 {
		t.Errorf("unrelated goal progressed to %d", got.CurrentValue)
	}
}

func TestFullDayCycle(t *testing.T) {
	f := newFixture(t)

	f.commitPlan(t, 4, domain.ActivityWorkout, domain.ActivityCoding)
	if _, err := f.svc.Plans.MarkActivityDone(f.ctx, f.user, domain.ActivityWorkout); err != nil {
		t.Fatal(err)
	}
	f.logActivity(t, domain.LogProductive, "Reading", "30")
	f.logActivity(t, domain.LogScreen, "YouTube", "50")
	f.logActivity(t, domain.LogScreen, "YouTube", "20")

	sum, err := f.svc.Summaries.Build(f.ctx, f.user.ID, f.today)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if *sum.Stat.ScreenTimeGoal != 240 {
		t.Errorf("screen goal = %d", *sum.Stat.ScreenTimeGoal)
	}
	if sum.Stat.Status(domain.ActivityWorkout) != domain.StatusDone {
		t.Error("workout should be done")
	}
	if sum.Stat.Status(domain.ActivityCoding) != domain.StatusMissed {
		t.Error("coding should be missed")
	}
	if sum.Stat.Status(domain.ActivityWalk) != domain.StatusNotPlanned {
		t.Error("walk should be not planned")
	}
	if sum.ProductiveMinutes < 30 {
		t.Errorf("productive = %d, want >= 30", sum.ProductiveMinutes)
	}
	if sum.ScreenMinutes != 70 || len(sum.Screen) != 1 || sum.Screen[0].Minutes != 70 {
		t.Errorf("screen = %d %+v", sum.ScreenMinutes, sum.Screen)
	}
	if sum.OverLimit() {
		t.Error("70 of 240 minutes reported over limit")
	}
}
