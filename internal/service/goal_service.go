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

type GoalService struct {
	repo   repository.Repository
	states state.Store
	cal    Calendar
	log    *zap.Logger
}

func NewGoalService(repo repository.Repository, states state.Store, cal Calendar, log *zap.Logger) *GoalService {
	return &GoalService{repo: repo, states: states, cal: cal, log: log.Named("goals")}
}

// ==================== SETUP DIALOGUE ====================

func (s *GoalService) StartSetup(ctx context.Context, key state.Key) error {
	return s.states.Set(ctx, key, state.SettingGoal(state.StepGoalChoosingType, state.GoalDraft{}))
}

func (s *GoalService) draft(ctx context.Context, key state.Key, step state.Step) (*state.GoalDraft, error) {
	c, err := s.states.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	if c.Step != step {
		return nil, ErrNothingPending
	}
	return c.Goal, nil
}

func (s *GoalService) ChooseType(ctx context.Context, key state.Key, goalType domain.GoalType) error {
	if !goalType.Valid() {
		return fmt.Errorf("invalid goal type %q", goalType)
	}
	d, err := s.draft(ctx, key, state.StepGoalChoosingType)
	if err != nil {
		return err
	}
	d.Type = goalType
	return s.states.Set(ctx, key, state.SettingGoal(state.StepGoalEnteringName, *d))
}

// EnterName stores the name and returns the next step: days per week for
// weekly goals, the target otherwise.
func (s *GoalService) EnterName(ctx context.Context, key state.Key, text string) (state.Step, error) {
	d, err := s.draft(ctx, key, state.StepGoalEnteringName)
	if err != nil {
		return "", err
	}
	name := CleanText(text, domain.MaxNameLength)
	if name == "" {
		return "", ErrEmptyText
	}
	d.Name = name

	next := state.StepGoalEnteringTarget
	if d.Type == domain.GoalWeekly {
		next = state.StepGoalEnteringDays
	}
	return next, s.states.Set(ctx, key, state.SettingGoal(next, *d))
}

func (s *GoalService) EnterDaysPerWeek(ctx context.Context, key state.Key, text string) error {
	d, err := s.draft(ctx, key, state.StepGoalEnteringDays)
	if err != nil {
		return err
	}
	days, ok := parseCount(text)
	if !ok || days < 1 || days > 7 {
		return ErrInvalidDays
	}
	d.DaysPerWeek = &days
	return s.states.Set(ctx, key, state.SettingGoal(state.StepGoalEnteringTarget, *d))
}

func (s *GoalService) EnterTarget(ctx context.Context, key state.Key, text string) error {
	d, err := s.draft(ctx, key, state.StepGoalEnteringTarget)
	if err != nil {
		return err
	}
	target, ok := parseCount(text)
	if !ok || target < 1 {
		return ErrInvalidNumber
	}
	d.Target = target
	return s.states.Set(ctx, key, state.SettingGoal(state.StepGoalChoosingDuration, *d))
}

// ChooseSpan finishes the dialogue and creates the goal.
func (s *GoalService) ChooseSpan(ctx context.Context, key state.Key, user *domain.User, spanKey string) (*domain.Goal, error) {
	span, ok := domain.FindGoalSpan(spanKey)
	if !ok {
		return nil, fmt.Errorf("unknown goal span %q", spanKey)
	}
	d, err := s.draft(ctx, key, state.StepGoalChoosingDuration)
	if err != nil {
		return nil, err
	}

	today := s.cal.Today(user)
	goal := &domain.Goal{
		UserID:      user.ID,
		Name:        d.Name,
		Type:        d.Type,
		TargetValue: d.Target,
		DaysPerWeek: d.DaysPerWeek,
		StartDate:   today,
		EndDate:     domain.AddDays(today, span.Days),
	}
	if err := s.repo.CreateGoal(ctx, goal); err != nil {
		return nil, fmt.Errorf("create goal: %w", err)
	}
	if err := s.states.Clear(ctx, key); err != nil {
		return nil, err
	}
	return goal, nil
}

// ==================== CRUD ====================

func (s *GoalService) ListActive(ctx context.Context, user *domain.User) ([]*domain.Goal, error) {
	return s.repo.GetActiveGoals(ctx, user.ID, s.cal.Today(user))
}

func (s *GoalService) Delete(ctx context.Context, user *domain.User, goalID int64) error {
	err := s.repo.DeleteGoal(ctx, user.ID, goalID)
	if errors.Is(err, repository.ErrNotFound) {
		return ErrGoalNotFound
	}
	return err
}

// ==================== PROGRESS & STREAKS ====================

// AddActivityProgress bumps every open goal whose name matches the activity.
// The match is a keyword heuristic. Returns the number of goals changed.
func (s *GoalService) AddActivityProgress(ctx context.Context, user *domain.User, activity domain.Activity, amount int) (int, error) {
	goals, err := s.repo.GetActiveGoals(ctx, user.ID, s.cal.Today(user))
	if err != nil {
		return 0, fmt.Errorf("get goals: %w", err)
	}

	changed := 0
	for _, g := range goals {
		if !activity.MatchesGoal(g.Name) || !g.AddProgress(amount) {
			continue
		}
		if err := s.repo.UpdateGoalProgress(ctx, g); err != nil {
			return changed, fmt.Errorf("update goal %d: %w", g.ID, err)
		}
		changed++
	}
	return changed, nil
}

// RecordCompletion stores the day's answer for a goal and, when completed,
// advances the streak. Repeating a completed answer for the same date leaves
// the streak as is.
func (s *GoalService) RecordCompletion(ctx context.Context, userID int64, goal *domain.Goal, date time.Time, completed bool) error {
	prev, err := s.repo.GetGoalHistory(ctx, goal.ID, date, date)
	if err != nil {
		return fmt.Errorf("goal history: %w", err)
	}
	if err := s.repo.SaveGoalCompletion(ctx, userID, goal.ID, date, completed); err != nil {
		return fmt.Errorf("save goal completion: %w", err)
	}
	if !completed || prev[domain.DateKey(date)] {
		return nil
	}

	streak, changed, err := s.nextStreak(ctx, goal, date)
	if err != nil {
		return err
	}
	if !changed {
		return nil
	}
	if err := s.repo.UpdateGoalStreak(ctx, goal.ID, streak); err != nil {
		return fmt.Errorf("update goal streak: %w", err)
	}
	goal.Streak = streak
	return nil
}

func (s *GoalService) nextStreak(ctx context.Context, goal *domain.Goal, date time.Time) (int, bool, error) {
	switch goal.Type {
	case domain.GoalWeekly:
		weekStart := domain.WeekStart(date)
		history, err := s.repo.GetGoalHistory(ctx, goal.ID, domain.AddDays(weekStart, -7), date)
		if err != nil {
			return 0, false, fmt.Errorf("goal history: %w", err)
		}
		thisWeek := domain.CountCompleted(history, weekStart, date)
		prevWeek := domain.CountCompleted(history, domain.AddDays(weekStart, -7), domain.AddDays(weekStart, -1))
		streak, changed := domain.NextWeeklyStreak(goal.Streak, thisWeek, prevWeek, goal.WeeklyTarget())
		return streak, changed, nil
	default:
		yesterday := domain.AddDays(date, -1)
		history, err := s.repo.GetGoalHistory(ctx, goal.ID, yesterday, yesterday)
		if err != nil {
			return 0, false, fmt.Errorf("goal history: %w", err)
		}
		return domain.NextDailyStreak(goal.Streak, history[domain.DateKey(yesterday)]), true, nil
	}
}

type ResetReport struct {
	DailyReset    int64 `json:"daily_reset"`
	WeeklyReset   int64 `json:"weekly_reset"`
	StreaksZeroed int   `json:"streaks_zeroed"`
}

// ResetProgress clears the user's daily goal progress, and weekly progress
// on Mondays. date is the user's local date.
func (s *GoalService) ResetProgress(ctx context.Context, user *domain.User, date time.Time) (ResetReport, error) {
	var report ResetReport
	n, err := s.repo.ResetGoals(ctx, user.ID, domain.GoalDaily)
	if err != nil {
		return report, fmt.Errorf("reset daily goals: %w", err)
	}
	report.DailyReset = n

	if domain.IsWeekStart(date) {
		n, err := s.repo.ResetGoals(ctx, user.ID, domain.GoalWeekly)
		if err != nil {
			return report, fmt.Errorf("reset weekly goals: %w", err)
		}
		report.WeeklyReset = n
	}
	return report, nil
}

// ResetMissedStreaks zeroes the user's daily streaks without a completed
// yesterday and, on Mondays, weekly streaks whose previous week fell short.
// date is the user's local date.
func (s *GoalService) ResetMissedStreaks(ctx context.Context, user *domain.User, date time.Time) (ResetReport, error) {
	var report ResetReport
	yesterday := domain.AddDays(date, -1)

	daily, err := s.repo.ListGoalsByType(ctx, user.ID, domain.GoalDaily)
	if err != nil {
		return report, fmt.Errorf("list daily goals: %w", err)
	}
	for _, g := range daily {
		if g.Streak == 0 {
			continue
		}
		history, err := s.repo.GetGoalHistory(ctx, g.ID, yesterday, yesterday)
		if err != nil {
			s.log.Error("goal history", zap.Int64("user_id", user.ID), zap.Int64("goal_id", g.ID), zap.Error(err))
			continue
		}
		if history[domain.DateKey(yesterday)] {
			continue
		}
		if err := s.repo.UpdateGoalStreak(ctx, g.ID, 0); err != nil {
			s.log.Error("zero streak", zap.Int64("user_id", user.ID), zap.Int64("goal_id", g.ID), zap.Error(err))
			continue
		}
		report.StreaksZeroed++
	}

	if !domain.IsWeekStart(date) {
		return report, nil
	}

	weekly, err := s.repo.ListGoalsByType(ctx, user.ID, domain.GoalWeekly)
	if err != nil {
		return report, fmt.Errorf("list weekly goals: %w", err)
	}
	prevStart := domain.AddDays(date, -7)
	for _, g := range weekly {
		if g.Streak == 0 {
			continue
		}
		history, err := s.repo.GetGoalHistory(ctx, g.ID, prevStart, yesterday)
		if err != nil {
			s.log.Error("goal history", zap.Int64("user_id", user.ID), zap.Int64("goal_id", g.ID), zap.Error(err))
			continue
		}
		if domain.CountCompleted(history, prevStart, yesterday) >= g.WeeklyTarget() {
			continue
		}
		if err := s.repo.UpdateGoalStreak(ctx, g.ID, 0); err != nil {
			s.log.Error("zero streak", zap.Int64("user_id", user.ID), zap.Int64("goal_id", g.ID), zap.Error(err))
			continue
		}
		report.StreaksZeroed++
	}
	return report, nil
}
