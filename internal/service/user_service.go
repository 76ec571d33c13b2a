package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"regime-guard-bot/internal/domain"
	"regime-guard-bot/internal/repository"
	"regime-guard-bot/internal/state"
)

type UserService struct {
	repo   repository.Repository
	states state.Store
	cal    Calendar
	log    *zap.Logger
}

func NewUserService(repo repository.Repository, states state.Store, cal Calendar, log *zap.Logger) *UserService {
	return &UserService{repo: repo, states: states, cal: cal, log: log.Named("users")}
}

// Register creates the user on first contact and refreshes the name after.
// New users get the default timezone; an existing one is kept.
func (s *UserService) Register(ctx context.Context, id int64, username, firstName string) (*domain.User, error) {
	user := &domain.User{
		ID:        id,
		Username:  username,
		FirstName: CleanText(firstName, domain.MaxNameLength),
		Timezone:  s.cal.Location.String(),
	}
	if err := s.repo.UpsertUser(ctx, user); err != nil {
		return nil, fmt.Errorf("upsert user: %w", err)
	}
	return user, nil
}

func (s *UserService) Get(ctx context.Context, id int64) (*domain.User, error) {
	return s.repo.GetUser(ctx, id)
}

func (s *UserService) List(ctx context.Context) ([]*domain.User, error) {
	return s.repo.ListUsers(ctx)
}

// ==================== SETTINGS ====================

func (s *UserService) StartTimezone(ctx context.Context, key state.Key) error {
	return s.states.Set(ctx, key, state.At(state.StepTimezoneChoosing))
}

// SetTimezone applies an entry of domain.Timezones.
func (s *UserService) SetTimezone(ctx context.Context, key state.Key, user *domain.User, index int) (string, error) {
	if index < 0 || index >= len(domain.Timezones) {
		return "", ErrInvalidTimezone
	}
	name := domain.Timezones[index]
	if _, err := time.LoadLocation(name); err != nil {
		return "", ErrInvalidTimezone
	}
	if err := s.repo.UpdateUserTimezone(ctx, user.ID, name); err != nil {
		return "", fmt.Errorf("update timezone: %w", err)
	}
	user.Timezone = name
	if err := s.states.Clear(ctx, key); err != nil {
		return "", err
	}
	return name, nil
}

// ==================== CLEAR ====================

func (s *UserService) StartClear(ctx context.Context, key state.Key) error {
	return s.states.Set(ctx, key, state.At(state.StepClearConfirmation))
}

// ConfirmClear wipes every row of the user when confirmed. It reports
// whether anything was deleted.
func (s *UserService) ConfirmClear(ctx context.Context, key state.Key, user *domain.User, confirmed bool) (bool, error) {
	c, err := s.states.Get(ctx, key)
	if err != nil {
		return false, err
	}
	if c.Step != state.StepClearConfirmation {
		return false, ErrNothingPending
	}
	if !confirmed {
		return false, s.states.Clear(ctx, key)
	}

	if err := s.repo.DeleteUserData(ctx, user.ID); err != nil {
		return false, fmt.Errorf("delete user data: %w", err)
	}
	if err := s.states.Clear(ctx, key); err != nil {
		return false, err
	}
	s.log.Info("user data cleared", zap.Int64("user_id", user.ID))
	return true, nil
}

// Cancel drops whatever dialogue is active.
func (s *UserService) Cancel(ctx context.Context, key state.Key) error {
	c, err := s.states.Get(ctx, key)
	if err != nil {
		return err
	}
	if c.IsIdle() {
		return ErrNothingToCancel
	}
	return s.states.Clear(ctx, key)
}
