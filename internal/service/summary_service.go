package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"regime-guard-bot/internal/domain"
	"regime-guard-bot/internal/repository"
)

// DaySummary is the evening report of one day.
type DaySummary struct {
	Date              time.Time
	Stat              *domain.DailyStat
	ScreenMinutes     int
	Screen            []domain.ActivityTotal
	ProductiveMinutes int
	Productive        []domain.ActivityTotal
}

// OverLimit reports whether logged screen time exceeds the day's goal.
func (d *DaySummary) OverLimit() bool {
	return d.Stat.ScreenTimeGoal != nil && d.ScreenMinutes > *d.Stat.ScreenTimeGoal
}

type SummaryService struct {
	repo repository.Repository
}

func NewSummaryService(repo repository.Repository) *SummaryService {
	return &SummaryService{repo: repo}
}

// Build fails with ErrNoPlanToday when the day has no row and ErrRestDay on a rest day.
func (s *SummaryService) Build(ctx context.Context, userID int64, date time.Time) (*DaySummary, error) {
	stat, err := s.repo.GetDailyStat(ctx, userID, date)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrNoPlanToday
	}
	if err != nil {
		return nil, fmt.Errorf("get daily stat: %w", err)
	}
	if stat.IsRestDay {
		return nil, ErrRestDay
	}

	screen, err := s.repo.GetActivityTotals(ctx, userID, domain.LogScreen, date)
	if err != nil {
		return nil, fmt.Errorf("screen totals: %w", err)
	}
	productive, err := s.repo.GetActivityTotals(ctx, userID, domain.LogProductive, date)
	if err != nil {
		return nil, fmt.Errorf("productive totals: %w", err)
	}

	sum := &DaySummary{Date: date, Stat: stat, Screen: screen, Productive: productive}
	for _, a := range screen {
		sum.ScreenMinutes += a.Minutes
	}
	for _, a := range productive {
		sum.ProductiveMinutes += a.Minutes
	}
	return sum, nil
}
