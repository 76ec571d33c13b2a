package service

import (
	"context"
	"errors"
	"testing"
	"time"
	_ "time/tzdata"

	"go.uber.org/zap"

	"regime-guard-bot/internal/domain"
	"regime-guard-bot/internal/repository"
	"regime-guard-bot/internal/state"
)

// Wednesday afternoon.
var testNow = time.Date(2025, 3, 12, 15, 0, 0, 0, time.UTC)

type fixture struct {
	ctx    context.Context
	repo   *repository.MemoryRepository
	states *state.MemoryStore
	svc    *Services
	user   *domain.User
	key    state.Key
	today  time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	repo := repository.NewMemoryRepository()
	states := state.NewMemoryStore()
	cal := Calendar{Now: func() time.Time { return testNow }, Location: time.UTC}
	f := &fixture{
		ctx:    context.Background(),
		repo:   repo,
		states: states,
		svc:    New(repo, states, cal, zap.NewNop()),
	}
	user, err := f.svc.Users.Register(f.ctx, 42, "guard", "Анна")
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	f.user = user
	f.key = state.UserKey(user.ID)
	f.today = cal.Today(user)
	return f
}

func (f *fixture) step(t *testing.T) state.Step {
	t.Helper()
	c, err := f.states.Get(f.ctx, f.key)
	if err != nil {
		t.Fatalf("state Get: %v", err)
	}
	return c.Step
}

// commitPlan runs the morning dialogue through to a saved workday plan.
func (f *fixture) commitPlan(t *testing.T, hours int, activities ...domain.Activity) *domain.DailyStat {
	t.Helper()
	plans := f.svc.Plans
	if err := plans.StartMorningPoll(f.ctx, f.key, f.user); err != nil {
		t.Fatalf("StartMorningPoll: %v", err)
	}
	if _, err := plans.ChooseDayType(f.ctx, f.key, f.user, false); err != nil {
		t.Fatalf("ChooseDayType: %v", err)
	}
	for _, a := range activities {
		if _, err := plans.TogglePlanField(f.ctx, f.key, a); err != nil {
			t.Fatalf("TogglePlanField(%s): %v", a, err)
		}
	}
	if _, err := plans.SetPlanTimeLimit(f.ctx, f.key, hours); err != nil {
		t.Fatalf("SetPlanTimeLimit: %v", err)
	}
	stat, err := plans.CommitPlan(f.ctx, f.key, f.user)
	if err != nil {
		t.Fatalf("CommitPlan: %v", err)
	}
	return stat
}

func (f *fixture) logActivity(t *testing.T, kind domain.LogKind, name, minutes string) {
	t.Helper()
	acts := f.svc.Activities
	if err := acts.StartLog(f.ctx, f.key); err != nil {
		t.Fatalf("StartLog: %v", err)
	}
	if err := acts.ChooseType(f.ctx, f.key, kind); err != nil {
		t.Fatalf("ChooseType: %v", err)
	}
	if err := acts.EnterName(f.ctx, f.key, name); err != nil {
		t.Fatalf("EnterName: %v", err)
	}
	if _, err := acts.EnterDuration(f.ctx, f.key, f.user, minutes); err != nil {
		t.Fatalf("EnterDuration: %v", err)
	}
}

func TestCleanText(t *testing.T) {
	tests := []struct {
		in   string
		max  int
		want string
	}{
		{"  Чтение   книги ", 0, "Чтение книги"},
		{"<b>Спорт</b> <script>alert(1)</script>зал", 0, "Спорт зал"},
		{"Tom & Jerry", 0, "Tom & Jerry"},
		{"абвгдеёжз", 3, "абв"},
		{"   ", 10, ""},
	}
	for _, tt := range tests {
		if got := CleanText(tt.in, tt.max); got != tt.want {
			t.Errorf("CleanText(%q, %d) = %q, want %q", tt.in, tt.max, got, tt.want)
		}
	}
}

func TestParseCount(t *testing.T) {
	tests := []struct {
		in   string
		want int
		ok   bool
	}{
		{"30", 30, true},
		{" 0 ", 0, true},
		{"-5", 0, false},
		{"3.5", 0, false},
		{"тридцать", 0, false},
		{"", 0, false},
	}
	for _, tt := range tests {
		got, ok := parseCount(tt.in)
		if got != tt.want || ok != tt.ok {
			t.Errorf("parseCount(%q) = %d, %v, want %d, %v", tt.in, got, ok, tt.want, tt.ok)
		}
	}
}

func TestCalendarUsesUserTimezone(t *testing.T) {
	now := time.Date(2025, 3, 12, 22, 30, 0, 0, time.UTC)
	cal := Calendar{Now: func() time.Time { return now }, Location: time.UTC}

	east := &domain.User{Timezone: "Asia/Vladivostok"}
	if got := domain.DateKey(cal.Today(east)); got != "2025-03-13" {
		t.Errorf("Today(Vladivostok) = %s, want 2025-03-13", got)
	}
	if got := domain.DateKey(cal.Today(&domain.User{})); got != "2025-03-12" {
		t.Errorf("Today(default) = %s, want 2025-03-12", got)
	}
}

func TestCancel(t *testing.T) {
	f := newFixture(t)
	if err := f.svc.Users.Cancel(f.ctx, f.key); !errors.Is(err, ErrNothingToCancel) {
		t.Fatalf("Cancel on idle = %v, want ErrNothingToCancel", err)
	}
	if err := f.svc.Activities.StartLog(f.ctx, f.key); err != nil {
		t.Fatal(err)
	}
	if err := f.svc.Users.Cancel(f.ctx, f.key); err != nil {
		t.Fatalf("Cancel: %v", err)
	}
	if s := f.step(t); s != state.StepIdle {
		t.Errorf("step after cancel = %q", s)
	}
}
