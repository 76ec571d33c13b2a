package service

import (
	"errors"
	"testing"

	"regime-guard-bot/internal/domain"
	"regime-guard-bot/internal/state"
)

func TestPollChaining(t *testing.T) {
	f := newFixture(t)
	polls := f.svc.Polls

	var habits []*domain.Habit
	for _, name := range []string{"Вода", "Чтение"} {
		h := &domain.Habit{UserID: f.user.ID, Name: name}
		if _, err := f.repo.CreateHabit(f.ctx, h); err != nil {
			t.Fatal(err)
		}
		habits = append(habits, h)
	}
	goal := &domain.Goal{
		UserID: f.user.ID, Name: "Спать до 23", Type: domain.GoalDaily,
		TargetValue: 5, StartDate: f.today, EndDate: domain.AddDays(f.today, 30),
	}
	if err := f.repo.CreateGoal(f.ctx, goal); err != nil {
		t.Fatal(err)
	}

	p, err := polls.Begin(f.ctx, f.key, f.user, f.today)
	if err != nil {
		t.Fatal(err)
	}
	if p.Kind != PromptHabit || p.Habit.ID != habits[0].ID {
		t.Fatalf("first prompt = %+v", p)
	}

	p, err = polls.AnswerHabit(f.ctx, f.key, f.user, habits[0].ID, true)
	if err != nil || p.Kind != PromptHabit || p.Habit.ID != habits[1].ID {
		t.Fatalf("after habit 1 = %+v, %v", p, err)
	}

	// a stale button for the first habit
	if _, err := polls.AnswerHabit(f.ctx, f.key, f.user, habits[0].ID, false); !errors.Is(err, ErrNothingPending) {
		t.Fatalf("stale answer = %v, want ErrNothingPending", err)
	}

	p, err = polls.AnswerHabit(f.ctx, f.key, f.user, habits[1].ID, false)
	if err != nil || p.Kind != PromptGoal || p.Goal.ID != goal.ID {
		t.Fatalf("after habit 2 = %+v, %v", p, err)
	}
	done, _ := f.repo.GetHabitCompletions(f.ctx, f.user.ID, f.today)
	if len(done) != 2 || !done[habits[0].ID] || done[habits[1].ID] {
		t.Fatalf("habit completions = %v", done)
	}

	p, err = polls.AnswerGoal(f.ctx, f.key, f.user, goal.ID, true)
	if err != nil || p.Kind != PromptQuestion || p.QuestionIndex != 0 {
		t.Fatalf("after goal = %+v, %v", p, err)
	}
	g, _ := f.repo.GetGoal(f.ctx, goal.ID)
	if g.Streak != 1 {
		t.Errorf("goal streak = %d, want 1", g.Streak)
	}

	if _, err := polls.AnswerQuestion(f.ctx, f.key, f.user, "   "); !errors.Is(err, ErrEmptyText) {
		t.Fatalf("empty answer = %v, want ErrEmptyText", err)
	}
	answers := []string{"Соцсети", "Утренняя пробежка", "Лягу раньше"}
	for i, a := range answers {
		p, err = polls.AnswerQuestion(f.ctx, f.key, f.user, a)
		if err != nil {
			t.Fatalf("answer %d: %v", i, err)
		}
		if i < len(answers)-1 && (p.Kind != PromptQuestion || p.QuestionIndex != i+1) {
			t.Fatalf("after answer %d = %+v", i, p)
		}
	}
	if p.Kind != PromptDone {
		t.Fatalf("final prompt = %+v", p)
	}

	saved, _ := f.repo.GetProductivityAnswers(f.ctx, f.user.ID, f.today)
	if len(saved) != 3 {
		t.Fatalf("saved %d answers, want 3", len(saved))
	}
	for i, a := range saved {
		if a.Question != domain.ProductivityQuestions[i] || a.Answer != answers[i] {
			t.Errorf("answer %d = %+v", i, a)
		}
	}
	if s := f.step(t); s != state.StepIdle {
		t.Errorf("step after poll = %q", s)
	}
	g, _ = f.repo.GetGoal(f.ctx, goal.ID)
	if g.Streak != 1 {
		t.Errorf("goal streak after poll = %d, want 1", g.Streak)
	}
}

func TestPollWithoutHabitsOrGoals(t *testing.T) {
	f := newFixture(t)
	p, err := f.svc.Polls.Begin(f.ctx, f.key, f.user, f.today)
	if err != nil {
		t.Fatal(err)
	}
	if p.Kind != PromptQuestion || p.Question != domain.ProductivityQuestions[0] {
		t.Errorf("prompt = %+v, want first question", p)
	}
	if s := f.step(t); s != state.StepPollQuestion {
		t.Errorf("step = %q", s)
	}
}

func TestPollAnswerWhileIdle(t *testing.T) {
	f := newFixture(t)
	if _, err := f.svc.Polls.AnswerQuestion(f.ctx, f.key, f.user, "что-то"); !errors.Is(err, ErrNothingPending) {
		t.Errorf("AnswerQuestion while idle = %v", err)
	}
	if _, err := f.svc.Polls.AnswerGoal(f.ctx, f.key, f.user, 1, true); !errors.Is(err, ErrNothingPending) {
		t.Errorf("AnswerGoal while idle = %v", err)
	}
}

func TestPollSkipsGoalDeletedMidPoll(t *testing.T) {
	f := newFixture(t)
	goal := &domain.Goal{
		UserID: f.user.ID, Name: "Медитация", Type: domain.GoalDaily,
		TargetValue: 1, StartDate: f.today, EndDate: domain.AddDays(f.today, 7),
	}
	if err := f.repo.CreateGoal(f.ctx, goal); err != nil {
		t.Fatal(err)
	}
	if p, err := f.svc.Polls.Begin(f.ctx, f.key, f.user, f.today); err != nil || p.Kind != PromptGoal {
		t.Fatalf("Begin = %+v, %v", p, err)
	}
	if err := f.svc.Goals.Delete(f.ctx, f.user, goal.ID); err != nil {
		t.Fatal(err)
	}
	p, err := f.svc.Polls.AnswerGoal(f.ctx, f.key, f.user, goal.ID, true)
	if err != nil || p.Kind != PromptQuestion {
		t.Errorf("AnswerGoal on deleted goal = %+v, %v", p, err)
	}
}
