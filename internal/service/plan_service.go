package service

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"go.uber.org/zap"

	"regime-guard-bot/internal/domain"
	"regime-guard-bot/internal/repository"
	"regime-guard-bot/internal/state"
)

// PlanService is the morning plan flow:
// idle -> choosing_day_type -> (rest: idle | work: composing_plan) -> idle.
type PlanService struct {
	repo   repository.Repository
	states state.Store
	goals  *GoalService
	cal    Calendar
	log    *zap.Logger
}

func NewPlanService(repo repository.Repository, states state.Store, goals *GoalService, cal Calendar, log *zap.Logger) *PlanService {
	return &PlanService{repo: repo, states: states, goals: goals, cal: cal, log: log.Named("plan")}
}

// todayStat returns today's row or nil when there is none.
func (s *PlanService) todayStat(ctx context.Context, user *domain.User) (*domain.DailyStat, error) {
	stat, err := s.repo.GetDailyStat(ctx, user.ID, s.cal.Today(user))
	if errors.Is(err, repository.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get daily stat: %w", err)
	}
	return stat, nil
}

// CanStartMorningPoll reports ErrRestDay or ErrMorningPollDone when today is already settled.
func (s *PlanService) CanStartMorningPoll(ctx context.Context, user *domain.User) error {
	stat, err := s.todayStat(ctx, user)
	if err != nil {
		return err
	}
	if stat == nil {
		return nil
	}
	if stat.IsRestDay {
		return ErrRestDay
	}
	if stat.MorningPollCompleted {
		return ErrMorningPollDone
	}
	return nil
}

func (s *PlanService) StartMorningPoll(ctx context.Context, key state.Key, user *domain.User) error {
	if err := s.CanStartMorningPoll(ctx, user); err != nil {
		return err
	}
	return s.states.Set(ctx, key, state.At(state.StepChoosingDayType))
}

// ChooseDayType settles a rest day immediately, or stages an empty plan for a workday.
func (s *PlanService) ChooseDayType(ctx context.Context, key state.Key, user *domain.User, rest bool) (*state.StagedPlan, error) {
	c, err := s.states.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	if c.Step != state.StepChoosingDayType {
		return nil, ErrNothingPending
	}
	if err := s.CanStartMorningPoll(ctx, user); err != nil {
		_ = s.states.Clear(ctx, key)
		return nil, err
	}

	if rest {
		stat := &domain.DailyStat{
			UserID:               user.ID,
			Date:                 s.cal.Today(user),
			Planned:              domain.ActivitySet{},
			Done:                 domain.ActivitySet{},
			MorningPollCompleted: true,
			IsRestDay:            true,
		}
		if err := s.repo.UpsertDailyStat(ctx, stat); err != nil {
			return nil, fmt.Errorf("save rest day: %w", err)
		}
		return nil, s.states.Clear(ctx, key)
	}

	plan := state.StagedPlan{Planned: domain.ActivitySet{}}
	if err := s.states.Set(ctx, key, state.ComposingPlan(plan)); err != nil {
		return nil, err
	}
	return &plan, nil
}

func (s *PlanService) stagedPlan(ctx context.Context, key state.Key) (*state.StagedPlan, error) {
	c, err := s.states.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	if c.Step != state.StepComposingPlan {
		return nil, ErrNothingPending
	}
	if c.Plan.Planned == nil {
		c.Plan.Planned = domain.ActivitySet{}
	}
	return c.Plan, nil
}

func (s *PlanService) TogglePlanField(ctx context.Context, key state.Key, activity domain.Activity) (*state.StagedPlan, error) {
	if _, ok := domain.ParseActivity(string(activity)); !ok {
		return nil, fmt.Errorf("unknown activity %q", activity)
	}
	plan, err := s.stagedPlan(ctx, key)
	if err != nil {
		return nil, err
	}
	if plan.Planned[activity] {
		delete(plan.Planned, activity)
	} else {
		plan.Planned[activity] = true
	}
	if err := s.states.Set(ctx, key, state.ComposingPlan(*plan)); err != nil {
		return nil, err
	}
	return plan, nil
}

func (s *PlanService) SetPlanTimeLimit(ctx context.Context, key state.Key, hours int) (*state.StagedPlan, error) {
	if !slices.Contains(domain.PlanHourOptions, hours) {
		return nil, fmt.Errorf("unsupported time limit %dh", hours)
	}
	plan, err := s.stagedPlan(ctx, key)
	if err != nil {
		return nil, err
	}
	minutes := hours * 60
	plan.ScreenTimeGoal = &minutes
	if err := s.states.Set(ctx, key, state.ComposingPlan(*plan)); err != nil {
		return nil, err
	}
	return plan, nil
}

// CommitPlan writes the staged plan as today's row. The staged plan survives
// a failure so the user can press save again.
func (s *PlanService) CommitPlan(ctx context.Context, key state.Key, user *domain.User) (*domain.DailyStat, error) {
	plan, err := s.stagedPlan(ctx, key)
	if err != nil {
		return nil, err
	}
	if plan.ScreenTimeGoal == nil {
		return nil, ErrTimeLimitRequired
	}

	stat := &domain.DailyStat{
		UserID:               user.ID,
		Date:                 s.cal.Today(user),
		ScreenTimeGoal:       plan.ScreenTimeGoal,
		Planned:              plan.Planned.Clone(),
		Done:                 domain.ActivitySet{},
		MorningPollCompleted: true,
	}
	if err := s.repo.UpsertDailyStat(ctx, stat); err != nil {
		return nil, fmt.Errorf("save plan: %w", err)
	}
	if err := s.states.Clear(ctx, key); err != nil {
		return nil, err
	}
	return stat, nil
}

// TodayPlan returns today's committed plan.
func (s *PlanService) TodayPlan(ctx context.Context, user *domain.User) (*domain.DailyStat, error) {
	stat, err := s.todayStat(ctx, user)
	if err != nil {
		return nil, err
	}
	if stat == nil || !stat.MorningPollCompleted {
		return nil, ErrNoPlanToday
	}
	if stat.IsRestDay {
		return nil, ErrRestDay
	}
	return stat, nil
}

// MarkActivityDone requires a committed workday plan listing the activity.
// Matching goals get one unit of progress.
func (s *PlanService) MarkActivityDone(ctx context.Context, user *domain.User, activity domain.Activity) (*domain.DailyStat, error) {
	stat, err := s.TodayPlan(ctx, user)
	if err != nil {
		return nil, err
	}
	if !stat.Planned.Has(activity) {
		return nil, ErrNotPlanned
	}
	if stat.Done.Has(activity) {
		return nil, ErrAlreadyDone
	}

	if err := s.repo.MarkActivityDone(ctx, user.ID, stat.Date, activity); err != nil {
		return nil, fmt.Errorf("mark %s done: %w", activity, err)
	}
	stat.Done[activity] = true

	if _, err := s.goals.AddActivityProgress(ctx, user, activity, 1); err != nil {
		s.log.Warn("goal progress", zap.Int64("user_id", user.ID), zap.String("activity", string(activity)), zap.Error(err))
	}
	return stat, nil
}
