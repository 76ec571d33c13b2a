package repository

import (
	"context"
	"errors"
	"time"

	"regime-guard-bot/internal/domain"
)

var ErrNotFound = errors.New("not found")

// Repository is the persistence layer. It holds no business rules: callers
// decide what to write, the repository only knows how.
type Repository interface {
	// Users
	UpsertUser(ctx context.Context, user *domain.User) error
	GetUser(ctx context.Context, id int64) (*domain.User, error)
	UpdateUserTimezone(ctx context.Context, id int64, timezone string) error
	ListUsers(ctx context.Context) ([]*domain.User, error)
	DeleteUserData(ctx context.Context, userID int64) error

	// Daily stats
	GetDailyStat(ctx context.Context, userID int64, date time.Time) (*domain.DailyStat, error)
	GetDailyStats(ctx context.Context, userID int64, from, to time.Time) ([]*domain.DailyStat, error)
	UpsertDailyStat(ctx context.Context, stat *domain.DailyStat) error
	MarkActivityDone(ctx context.Context, userID int64, date time.Time, activity domain.Activity) error

	// Logged activities
	AddLoggedActivity(ctx context.Context, activity *domain.LoggedActivity) error
	GetActivityTotals(ctx context.Context, userID int64, kind domain.LogKind, date time.Time) ([]domain.ActivityTotal, error)
	GetDayTotals(ctx context.Context, userID int64, from, to time.Time) ([]domain.DayTotals, error)

	// Habits
	CreateHabit(ctx context.Context, habit *domain.Habit) (bool, error)
	GetHabit(ctx context.Context, id int64) (*domain.Habit, error)
	GetHabits(ctx context.Context, userID int64) ([]*domain.Habit, error)
	NextHabit(ctx context.Context, userID, afterID int64) (*domain.Habit, error)
	DeleteHabit(ctx context.Context, userID, habitID int64) error
	SaveHabitCompletions(ctx context.Context, userID int64, date time.Time, answers map[int64]bool) error
	GetHabitHistory(ctx context.Context, habitID int64, from, to time.Time) (map[string]bool, error)
	GetHabitCompletions(ctx context.Context, userID int64, date time.Time) (map[int64]bool, error)

	// Goals
	CreateGoal(ctx context.Context, goal *domain.Goal) error
	GetGoal(ctx context.Context, id int64) (*domain.Goal, error)
	GetActiveGoals(ctx context.Context, userID int64, today time.Time) ([]*domain.Goal, error)
	NextActiveGoal(ctx context.Context, userID, afterID int64, today time.Time) (*domain.Goal, error)
	ListGoalsByType(ctx context.Context, userID int64, goalType domain.GoalType) ([]*domain.Goal, error)
	UpdateGoalProgress(ctx context.Context, goal *domain.Goal) error
	UpdateGoalStreak(ctx context.Context, goalID int64, streak int) error
	DeleteGoal(ctx context.Context, userID, goalID int64) error
	SaveGoalCompletion(ctx context.Context, userID, goalID int64, date time.Time, completed bool) error
	GetGoalHistory(ctx context.Context, goalID int64, from, to time.Time) (map[string]bool, error)
	GetGoalCompletions(ctx context.Context, userID int64, date time.Time) (map[int64]bool, error)
	ResetGoals(ctx context.Context, userID int64, goalType domain.GoalType) (int64, error)

	// Productivity questions
	SaveProductivityAnswers(ctx context.Context, userID int64, answers []domain.ProductivityAnswer) error
	GetProductivityAnswers(ctx context.Context, userID int64, date time.Time) ([]domain.ProductivityAnswer, error)

	// Achievements
	GrantAchievement(ctx context.Context, achievement *domain.Achievement) (bool, error)
	GetAchievements(ctx context.Context, userID int64) ([]*domain.Achievement, error)

	// Tips
	SeedTips(ctx context.Context, tips []domain.Tip) error
	GetTipCategories(ctx context.Context) ([]string, error)
	GetTips(ctx context.Context, category string) ([]*domain.Tip, error)

	// Jobs
	ClaimJobRun(ctx context.Context, job string, userID int64, date time.Time) (bool, error)

	Migrate(ctx context.Context) error
	Close()
}
