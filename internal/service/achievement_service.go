package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"regime-guard-bot/internal/domain"
	"regime-guard-bot/internal/repository"
	"regime-guard-bot/internal/state"
)

type AchievementService struct {
	repo   repository.Repository
	states state.Store
	cal    Calendar
	log    *zap.Logger
}

func NewAchievementService(repo repository.Repository, states state.Store, cal Calendar, log *zap.Logger) *AchievementService {
	return &AchievementService{repo: repo, states: states, cal: cal, log: log.Named("achievements")}
}

// ==================== MANUAL ====================

func (s *AchievementService) StartManual(ctx context.Context, key state.Key) error {
	return s.states.Set(ctx, key, state.AddingAchievement(state.StepAchievementEnteringDate, state.AchievementDraft{}))
}

// EnterDate accepts ДД.ММ in the current year of the user's timezone.
func (s *AchievementService) EnterDate(ctx context.Context, key state.Key, user *domain.User, text string) (time.Time, error) {
	c, err := s.states.Get(ctx, key)
	if err != nil {
		return time.Time{}, err
	}
	if c.Step != state.StepAchievementEnteringDate {
		return time.Time{}, ErrNothingPending
	}
	date, err := parseDayMonth(text, s.cal.Today(user).Year())
	if err != nil {
		return time.Time{}, err
	}
	draft := state.AchievementDraft{Date: domain.DateKey(date)}
	if err := s.states.Set(ctx, key, state.AddingAchievement(state.StepAchievementEnteringDescription, draft)); err != nil {
		return time.Time{}, err
	}
	return date, nil
}

func (s *AchievementService) EnterDescription(ctx context.Context, key state.Key, user *domain.User, text string) (*domain.Achievement, error) {
	c, err := s.states.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	if c.Step != state.StepAchievementEnteringDescription {
		return nil, ErrNothingPending
	}
	name := CleanText(text, domain.MaxNameLength)
	if name == "" {
		return nil, ErrEmptyText
	}
	date, err := domain.ParseDateKey(c.Achievement.Date)
	if err != nil {
		_ = s.states.Clear(ctx, key)
		return nil, ErrInvalidDate
	}

	a := &domain.Achievement{UserID: user.ID, Name: name, DateEarned: date}
	if _, err := s.repo.GrantAchievement(ctx, a); err != nil {
		return nil, fmt.Errorf("add achievement: %w", err)
	}
	if err := s.states.Clear(ctx, key); err != nil {
		return nil, err
	}
	return a, nil
}

func (s *AchievementService) List(ctx context.Context, user *domain.User) ([]*domain.Achievement, error) {
	return s.repo.GetAchievements(ctx, user.ID)
}

func parseDayMonth(text string, year int) (time.Time, error) {
	t, err := time.Parse("02.01", CleanText(text, 10))
	if err != nil {
		return time.Time{}, ErrInvalidDate
	}
	date := time.Date(year, t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	// 29.02 in a non-leap year rolls over to March
	if date.Month() != t.Month() {
		return time.Time{}, ErrInvalidDate
	}
	return date, nil
}

// ==================== AUTOMATIC ====================

// EvaluateAndGrant checks every trailing-window rule against the user's
// history ending today and grants the ones not earned before.
func (s *AchievementService) EvaluateAndGrant(ctx context.Context, user *domain.User, today time.Time) ([]*domain.Achievement, error) {
	from := domain.AddDays(today, -(domain.MaxAchievementWindow - 1))

	stats, err := s.repo.GetDailyStats(ctx, user.ID, from, today)
	if err != nil {
		return nil, fmt.Errorf("get daily stats: %w", err)
	}
	totals, err := s.repo.GetDayTotals(ctx, user.ID, from, today)
	if err != nil {
		return nil, fmt.Errorf("get day totals: %w", err)
	}

	history := make(map[string]domain.DayRecord, len(stats))
	for _, st := range stats {
		history[domain.DateKey(st.Date)] = domain.DayRecord{Stat: st}
	}
	for _, t := range totals {
		key := domain.DateKey(t.Date)
		rec := history[key]
		rec.ScreenMinutes = t.ScreenMinutes
		rec.ProductiveMinutes = t.ProductiveMinutes
		history[key] = rec
	}

	var granted []*domain.Achievement
	for _, rule := range domain.EvaluateAchievements(history, today) {
		a := &domain.Achievement{
			UserID:     user.ID,
			Name:       rule.Name(),
			Code:       rule.Code(),
			DateEarned: today,
		}
		ok, err := s.repo.GrantAchievement(ctx, a)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return granted, err
			}
			s.log.Error("grant achievement", zap.Int64("user_id", user.ID), zap.String("code", a.Code), zap.Error(err))
			continue
		}
		if ok {
			granted = append(granted, a)
		}
	}
	return granted, nil
}
