package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"regime-guard-bot/internal/domain"
	"regime-guard-bot/internal/repository"
)

// ==================== DTO ====================

type UserStats struct {
	UserID  int64        `json:"user_id"`
	Today   TodayStats   `json:"today"`
	History []DayHistory `json:"history"`
	Goals   []GoalStats  `json:"goals"`
	Habits  []HabitStats `json:"habits"`
}

type TodayStats struct {
	Date                  string            `json:"date"`
	IsRestDay             bool              `json:"is_rest_day"`
	ScreenTimeGoal        *int              `json:"screen_time_goal"`
	ScreenTimeActual      int               `json:"screen_time_actual"`
	ScreenTimeBreakdown   map[string]int    `json:"screen_time_breakdown"`
	ProductiveTime        int               `json:"productive_time"`
	ProductiveBreakdown   map[string]int    `json:"productive_breakdown"`
	Planned               map[string]bool   `json:"planned"`
	Done                  map[string]bool   `json:"done"`
	HabitCompletions      map[string]bool   `json:"habit_completions"`
	GoalCompletions       map[string]bool   `json:"goal_completions"`
	ProductivityQuestions map[string]string `json:"productivity_questions"`
}

type DayHistory struct {
	Date             string          `json:"date"`
	IsRestDay        bool            `json:"is_rest_day"`
	ScreenTimeGoal   *int            `json:"screen_time_goal"`
	ScreenTimeActual int             `json:"screen_time_actual"`
	ProductiveTime   int             `json:"productive_time"`
	Planned          map[string]bool `json:"planned"`
	Done             map[string]bool `json:"done"`
}

type GoalStats struct {
	ID           int64  `json:"id"`
	Name         string `json:"name"`
	Type         string `json:"type"`
	TargetValue  int    `json:"target_value"`
	CurrentValue int    `json:"current_value"`
	DaysPerWeek  *int   `json:"days_per_week,omitempty"`
	Streak       int    `json:"streak"`
	StartDate    string `json:"start_date"`
	EndDate      string `json:"end_date"`
}

type HabitStats struct {
	ID     int64  `json:"id"`
	Name   string `json:"name"`
	Streak int    `json:"streak"`
}

// ==================== SERVICE ====================

type StatsService struct {
	repo   repository.Repository
	habits *HabitService
	cal    Calendar
}

func NewStatsService(repo repository.Repository, habits *HabitService, cal Calendar) *StatsService {
	return &StatsService{repo: repo, habits: habits, cal: cal}
}

// GetUserStats assembles the dashboard payload. It returns ErrPlanNotFound
// until today's plan row exists. Queries are not run in one snapshot.
func (s *StatsService) GetUserStats(ctx context.Context, userID int64) (*UserStats, error) {
	user, err := s.repo.GetUser(ctx, userID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrPlanNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}

	today := s.cal.Today(user)
	stat, err := s.repo.GetDailyStat(ctx, userID, today)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrPlanNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get today stat: %w", err)
	}

	todayStats, err := s.today(ctx, user, stat)
	if err != nil {
		return nil, err
	}
	history, err := s.history(ctx, userID, today)
	if err != nil {
		return nil, err
	}

	goals, err := s.repo.GetActiveGoals(ctx, userID, today)
	if err != nil {
		return nil, fmt.Errorf("get goals: %w", err)
	}
	habits, err := s.habits.List(ctx, user)
	if err != nil {
		return nil, err
	}

	out := &UserStats{
		UserID:  userID,
		Today:   *todayStats,
		History: history,
		Goals:   make([]GoalStats, 0, len(goals)),
		Habits:  make([]HabitStats, 0, len(habits)),
	}
	for _, g := range goals {
		out.Goals = append(out.Goals, GoalStats{
			ID:           g.ID,
			Name:         g.Name,
			Type:         string(g.Type),
			TargetValue:  g.TargetValue,
			CurrentValue: g.CurrentValue,
			DaysPerWeek:  g.DaysPerWeek,
			Streak:       g.Streak,
			StartDate:    domain.DateKey(g.StartDate),
			EndDate:      domain.DateKey(g.EndDate),
		})
	}
	for _, h := range habits {
		out.Habits = append(out.Habits, HabitStats{ID: h.ID, Name: h.Name, Streak: h.Streak})
	}
	return out, nil
}

func (s *StatsService) today(ctx context.Context, user *domain.User, stat *domain.DailyStat) (*TodayStats, error) {
	screen, err := s.repo.GetActivityTotals(ctx, user.ID, domain.LogScreen, stat.Date)
	if err != nil {
		return nil, fmt.Errorf("screen totals: %w", err)
	}
	productive, err := s.repo.GetActivityTotals(ctx, user.ID, domain.LogProductive, stat.Date)
	if err != nil {
		return nil, fmt.Errorf("productive totals: %w", err)
	}
	habitDone, err := s.repo.GetHabitCompletions(ctx, user.ID, stat.Date)
	if err != nil {
		return nil, fmt.Errorf("habit completions: %w", err)
	}
	goalDone, err := s.repo.GetGoalCompletions(ctx, user.ID, stat.Date)
	if err != nil {
		return nil, fmt.Errorf("goal completions: %w", err)
	}
	answers, err := s.repo.GetProductivityAnswers(ctx, user.ID, stat.Date)
	if err != nil {
		return nil, fmt.Errorf("productivity answers: %w", err)
	}

	t := &TodayStats{
		Date:                  domain.DateKey(stat.Date),
		IsRestDay:             stat.IsRestDay,
		ScreenTimeGoal:        stat.ScreenTimeGoal,
		ScreenTimeBreakdown:   map[string]int{},
		ProductiveBreakdown:   map[string]int{},
		Planned:               flags(stat.Planned),
		Done:                  flags(stat.Done),
		HabitCompletions:      idFlags(habitDone),
		GoalCompletions:       idFlags(goalDone),
		ProductivityQuestions: map[string]string{},
	}
	for _, a := range screen {
		t.ScreenTimeBreakdown[a.Name] = a.Minutes
		t.ScreenTimeActual += a.Minutes
	}
	for _, a := range productive {
		t.ProductiveBreakdown[a.Name] = a.Minutes
		t.ProductiveTime += a.Minutes
	}
	for _, a := range answers {
		t.ProductivityQuestions[a.Question] = a.Answer
	}
	return t, nil
}

// history covers the HistoryDays days before today, rows only, newest first.
func (s *StatsService) history(ctx context.Context, userID int64, today time.Time) ([]DayHistory, error) {
	from := domain.AddDays(today, -domain.HistoryDays)
	to := domain.AddDays(today, -1)

	stats, err := s.repo.GetDailyStats(ctx, userID, from, to)
	if err != nil {
		return nil, fmt.Errorf("history stats: %w", err)
	}
	totals, err := s.repo.GetDayTotals(ctx, userID, from, to)
	if err != nil {
		return nil, fmt.Errorf("history totals: %w", err)
	}
	byDay := make(map[string]domain.DayTotals, len(totals))
	for _, t := range totals {
		byDay[domain.DateKey(t.Date)] = t
	}

	out := make([]DayHistory, 0, len(stats))
	for _, st := range stats {
		key := domain.DateKey(st.Date)
		out = append(out, DayHistory{
			Date:             key,
			IsRestDay:        st.IsRestDay,
			ScreenTimeGoal:   st.ScreenTimeGoal,
			ScreenTimeActual: byDay[key].ScreenMinutes,
			ProductiveTime:   byDay[key].ProductiveMinutes,
			Planned:          flags(st.Planned),
			Done:             flags(st.Done),
		})
	}
	return out, nil
}

// flags lists every activity so the dashboard sees stable keys.
func flags(set domain.ActivitySet) map[string]bool {
	out := make(map[string]bool, len(domain.Activities))
	for _, a := range domain.Activities {
		out[string(a.Key)] = set.Has(a.Key)
	}
	return out
}

func idFlags(m map[int64]bool) map[string]bool {
	out := make(map[string]bool, len(m))
	for id, v := range m {
		out[fmt.Sprint(id)] = v
	}
	return out
}
