package service

import (
	"context"
	"fmt"

	"regime-guard-bot/internal/domain"
	"regime-guard-bot/internal/repository"
	"regime-guard-bot/internal/state"
)

// ActivityService runs the free-form log dialogue: type -> name -> duration.
type ActivityService struct {
	repo   repository.Repository
	states state.Store
	cal    Calendar
}

func NewActivityService(repo repository.Repository, states state.Store, cal Calendar) *ActivityService {
	return &ActivityService{repo: repo, states: states, cal: cal}
}

func (s *ActivityService) StartLog(ctx context.Context, key state.Key) error {
	return s.states.Set(ctx, key, state.Logging(state.StepLogChoosingType, state.ActivityDraft{}))
}

func (s *ActivityService) draft(ctx context.Context, key state.Key, step state.Step) (*state.ActivityDraft, error) {
	c, err := s.states.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	if c.Step != step {
		return nil, ErrNothingPending
	}
	return c.Log, nil
}

func (s *ActivityService) ChooseType(ctx context.Context, key state.Key, kind domain.LogKind) error {
	if kind != domain.LogScreen && kind != domain.LogProductive {
		return fmt.Errorf("unknown activity kind %q", kind)
	}
	d, err := s.draft(ctx, key, state.StepLogChoosingType)
	if err != nil {
		return err
	}
	d.Kind = kind
	return s.states.Set(ctx, key, state.Logging(state.StepLogChoosingName, *d))
}

func (s *ActivityService) EnterName(ctx context.Context, key state.Key, text string) error {
	d, err := s.draft(ctx, key, state.StepLogChoosingName)
	if err != nil {
		return err
	}
	name := CleanText(text, domain.MaxNameLength)
	if name == "" {
		return ErrEmptyText
	}
	d.Name = name
	return s.states.Set(ctx, key, state.Logging(state.StepLogChoosingDuration, *d))
}

// EnterDuration appends the log row. Bad input leaves the dialogue on the same step.
func (s *ActivityService) EnterDuration(ctx context.Context, key state.Key, user *domain.User, text string) (*domain.LoggedActivity, error) {
	d, err := s.draft(ctx, key, state.StepLogChoosingDuration)
	if err != nil {
		return nil, err
	}
	minutes, ok := parseCount(text)
	if !ok || minutes > domain.MaxDurationMinutes {
		return nil, ErrInvalidDuration
	}

	activity := &domain.LoggedActivity{
		UserID:          user.ID,
		Kind:            d.Kind,
		Date:            s.cal.Today(user),
		Name:            d.Name,
		DurationMinutes: minutes,
	}
	if err := s.repo.AddLoggedActivity(ctx, activity); err != nil {
		return nil, fmt.Errorf("add logged activity: %w", err)
	}
	if err := s.states.Clear(ctx, key); err != nil {
		return nil, err
	}
	return activity, nil
}
