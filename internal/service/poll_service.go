package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"regime-guard-bot/internal/domain"
	"regime-guard-bot/internal/repository"
	"regime-guard-bot/internal/state"
)

type PromptKind int

const (
	PromptDone PromptKind = iota
	PromptHabit
	PromptGoal
	PromptQuestion
)

// Prompt is the next thing the evening poll asks.
type Prompt struct {
	Kind          PromptKind
	Habit         *domain.Habit
	Goal          *domain.Goal
	QuestionIndex int
	Question      string
}

// PollService chains the evening poll one entity at a time:
// habits (by id) -> open goals (by id) -> productivity questions -> idle.
type PollService struct {
	repo   repository.Repository
	states state.Store
	goals  *GoalService
}

func NewPollService(repo repository.Repository, states state.Store, goals *GoalService) *PollService {
	return &PollService{repo: repo, states: states, goals: goals}
}

// Begin replaces any active dialogue with the first poll question for date.
func (s *PollService) Begin(ctx context.Context, key state.Key, user *domain.User, date time.Time) (Prompt, error) {
	progress := state.PollProgress{Date: domain.DateKey(date), HabitAnswers: map[int64]bool{}}
	return s.habitPhase(ctx, key, user, progress, 0)
}

func (s *PollService) progress(ctx context.Context, key state.Key, step state.Step) (*state.PollProgress, time.Time, error) {
	c, err := s.states.Get(ctx, key)
	if err != nil {
		return nil, time.Time{}, err
	}
	if c.Step != step {
		return nil, time.Time{}, ErrNothingPending
	}
	date, err := domain.ParseDateKey(c.Poll.Date)
	if err != nil {
		_ = s.states.Clear(ctx, key)
		return nil, time.Time{}, ErrNothingPending
	}
	return c.Poll, date, nil
}

// AnswerHabit records the answer in the accumulator. Habit answers are
// written together once the last habit is answered.
func (s *PollService) AnswerHabit(ctx context.Context, key state.Key, user *domain.User, habitID int64, done bool) (Prompt, error) {
	p, date, err := s.progress(ctx, key, state.StepPollHabit)
	if err != nil {
		return Prompt{}, err
	}
	if p.CurrentID != habitID {
		return Prompt{}, ErrNothingPending
	}
	if p.HabitAnswers == nil {
		p.HabitAnswers = map[int64]bool{}
	}
	p.HabitAnswers[habitID] = done

	next, err := s.repo.NextHabit(ctx, user.ID, habitID)
	switch {
	case err == nil:
		p.CurrentID = next.ID
		if err := s.states.Set(ctx, key, state.Polling(state.StepPollHabit, *p)); err != nil {
			return Prompt{}, err
		}
		return Prompt{Kind: PromptHabit, Habit: next}, nil
	case !errors.Is(err, repository.ErrNotFound):
		return Prompt{}, fmt.Errorf("next habit: %w", err)
	}

	if err := s.repo.SaveHabitCompletions(ctx, user.ID, date, p.HabitAnswers); err != nil {
		return Prompt{}, fmt.Errorf("save habit answers: %w", err)
	}
	p.HabitAnswers = nil
	return s.goalPhase(ctx, key, user, *p, date, 0)
}

// AnswerGoal stores the completion right away and advances the streak once.
func (s *PollService) AnswerGoal(ctx context.Context, key state.Key, user *domain.User, goalID int64, done bool) (Prompt, error) {
	p, date, err := s.progress(ctx, key, state.StepPollGoal)
	if err != nil {
		return Prompt{}, err
	}
	if p.CurrentID != goalID {
		return Prompt{}, ErrNothingPending
	}

	goal, err := s.repo.GetGoal(ctx, goalID)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		// deleted mid-poll; move on
	case err != nil:
		return Prompt{}, fmt.Errorf("get goal: %w", err)
	default:
		if err := s.goals.RecordCompletion(ctx, user.ID, goal, date, done); err != nil {
			return Prompt{}, err
		}
	}
	return s.goalPhase(ctx, key, user, *p, date, goalID)
}

// AnswerQuestion collects free-text answers and saves them all after the last one.
func (s *PollService) AnswerQuestion(ctx context.Context, key state.Key, user *domain.User, text string) (Prompt, error) {
	p, date, err := s.progress(ctx, key, state.StepPollQuestion)
	if err != nil {
		return Prompt{}, err
	}
	answer := CleanText(text, domain.MaxAnswerLength)
	if answer == "" {
		return Prompt{}, ErrEmptyText
	}

	p.Answers = append(p.Answers, answer)
	p.QuestionIndex++
	if p.QuestionIndex < len(domain.ProductivityQuestions) {
		if err := s.states.Set(ctx, key, state.Polling(state.StepPollQuestion, *p)); err != nil {
			return Prompt{}, err
		}
		return questionPrompt(p.QuestionIndex), nil
	}

	answers := make([]domain.ProductivityAnswer, 0, len(p.Answers))
	for i, a := range p.Answers {
		if i >= len(domain.ProductivityQuestions) {
			break
		}
		answers = append(answers, domain.ProductivityAnswer{
			Date:     date,
			Question: domain.ProductivityQuestions[i],
			Answer:   a,
		})
	}
	if err := s.repo.SaveProductivityAnswers(ctx, user.ID, answers); err != nil {
		return Prompt{}, fmt.Errorf("save productivity answers: %w", err)
	}
	if err := s.states.Clear(ctx, key); err != nil {
		return Prompt{}, err
	}
	return Prompt{Kind: PromptDone}, nil
}

func (s *PollService) habitPhase(ctx context.Context, key state.Key, user *domain.User, p state.PollProgress, afterID int64) (Prompt, error) {
	habit, err := s.repo.NextHabit(ctx, user.ID, afterID)
	if err == nil {
		p.CurrentID = habit.ID
		if err := s.states.Set(ctx, key, state.Polling(state.StepPollHabit, p)); err != nil {
			return Prompt{}, err
		}
		return Prompt{Kind: PromptHabit, Habit: habit}, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return Prompt{}, fmt.Errorf("next habit: %w", err)
	}
	date, err := domain.ParseDateKey(p.Date)
	if err != nil {
		return Prompt{}, err
	}
	p.HabitAnswers = nil
	return s.goalPhase(ctx, key, user, p, date, 0)
}

func (s *PollService) goalPhase(ctx context.Context, key state.Key, user *domain.User, p state.PollProgress, date time.Time, afterID int64) (Prompt, error) {
	goal, err := s.repo.NextActiveGoal(ctx, user.ID, afterID, date)
	if err == nil {
		p.CurrentID = goal.ID
		if err := s.states.Set(ctx, key, state.Polling(state.StepPollGoal, p)); err != nil {
			return Prompt{}, err
		}
		return Prompt{Kind: PromptGoal, Goal: goal}, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return Prompt{}, fmt.Errorf("next goal: %w", err)
	}

	p.CurrentID = 0
	p.QuestionIndex = 0
	p.Answers = nil
	if err := s.states.Set(ctx, key, state.Polling(state.StepPollQuestion, p)); err != nil {
		return Prompt{}, err
	}
	return questionPrompt(0), nil
}

func questionPrompt(i int) Prompt {
	return Prompt{Kind: PromptQuestion, QuestionIndex: i, Question: domain.ProductivityQuestions[i]}
}
