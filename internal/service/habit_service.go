package service

import (
	"context"
	"errors"
	"fmt"

	"regime-guard-bot/internal/domain"
	"regime-guard-bot/internal/repository"
	"regime-guard-bot/internal/state"
)

// habitHistoryDays bounds how far back a streak is looked up.
const habitHistoryDays = 365

type HabitService struct {
	repo   repository.Repository
	states state.Store
	cal    Calendar
}

func NewHabitService(repo repository.Repository, states state.Store, cal Calendar) *HabitService {
	return &HabitService{repo: repo, states: states, cal: cal}
}

func (s *HabitService) StartAdd(ctx context.Context, key state.Key) error {
	return s.states.Set(ctx, key, state.At(state.StepHabitEnteringName))
}

// Add creates the habit named by the user. A duplicate name is a no-op
// reported as ErrHabitExists; either way the dialogue ends.
func (s *HabitService) Add(ctx context.Context, key state.Key, user *domain.User, text string) (*domain.Habit, error) {
	c, err := s.states.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	if c.Step != state.StepHabitEnteringName {
		return nil, ErrNothingPending
	}
	name := CleanText(text, domain.MaxNameLength)
	if name == "" {
		return nil, ErrEmptyText
	}

	habit := &domain.Habit{UserID: user.ID, Name: name}
	created, err := s.repo.CreateHabit(ctx, habit)
	if err != nil {
		return nil, fmt.Errorf("create habit: %w", err)
	}
	if err := s.states.Clear(ctx, key); err != nil {
		return nil, err
	}
	if !created {
		return nil, ErrHabitExists
	}
	return habit, nil
}

// List returns the user's habits with streaks computed from history.
func (s *HabitService) List(ctx context.Context, user *domain.User) ([]domain.HabitWithStreak, error) {
	habits, err := s.repo.GetHabits(ctx, user.ID)
	if err != nil {
		return nil, fmt.Errorf("get habits: %w", err)
	}

	today := s.cal.Today(user)
	from := domain.AddDays(today, -habitHistoryDays)
	out := make([]domain.HabitWithStreak, 0, len(habits))
	for _, h := range habits {
		history, err := s.repo.GetHabitHistory(ctx, h.ID, from, today)
		if err != nil {
			return nil, fmt.Errorf("habit %d history: %w", h.ID, err)
		}
		out = append(out, domain.HabitWithStreak{Habit: *h, Streak: domain.HabitStreak(history, today)})
	}
	return out, nil
}

// Delete removes one of the user's habits and returns it for the reply.
func (s *HabitService) Delete(ctx context.Context, user *domain.User, habitID int64) (*domain.Habit, error) {
	habit, err := s.repo.GetHabit(ctx, habitID)
	if errors.Is(err, repository.ErrNotFound) || (err == nil && habit.UserID != user.ID) {
		return nil, ErrHabitNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get habit: %w", err)
	}

	err = s.repo.DeleteHabit(ctx, user.ID, habitID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrHabitNotFound
	}
	if err != nil {
		return nil, err
	}
	return habit, nil
}
