package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"regime-guard-bot/internal/domain"
)

type PostgresRepository struct {
	db *pgxpool.Pool
}

func NewPostgresRepository(ctx context.Context, databaseURL string) (*PostgresRepository, error) {
	config, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	config.MaxConns = 10
	config.MinConns = 2

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return &PostgresRepository{db: pool}, nil
}

// Pool exposes the connection pool to stores sharing the database.
func (r *PostgresRepository) Pool() *pgxpool.Pool {
	return r.db
}

func (r *PostgresRepository) Close() {
	r.db.Close()
}

func notFound(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	return err
}

// ==================== USERS ====================

func (r *PostgresRepository) UpsertUser(ctx context.Context, user *domain.User) error {
	query := `
    INSERT INTO users (id, username, first_name, timezone, created_at, updated_at)
    VALUES ($1, $2, $3, $4, $5, $5)
    ON CONFLICT (id) DO UPDATE SET
      username = EXCLUDED.username,
      first_name = EXCLUDED.first_name,
      updated_at = EXCLUDED.updated_at
    RETURNING timezone, created_at, updated_at`

	return r.db.QueryRow(ctx, query,
		user.ID, user.Username, user.FirstName, user.Timezone, time.Now(),
	).Scan(&user.Timezone, &user.CreatedAt, &user.UpdatedAt)
}

func (r *PostgresRepository) GetUser(ctx context.Context, id int64) (*domain.User, error) {
	query := `
    SELECT id, username, first_name, timezone, created_at, updated_at
    FROM users WHERE id = $1`

	user := &domain.User{}
	err := r.db.QueryRow(ctx, query, id).Scan(
		&user.ID, &user.Username, &user.FirstName, &user.Timezone, &user.CreatedAt, &user.UpdatedAt,
	)
	if err != nil {
		return nil, notFound(err)
	}
	return user, nil
}

func (r *PostgresRepository) UpdateUserTimezone(ctx context.Context, id int64, timezone string) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE users SET timezone = $2, updated_at = NOW() WHERE id = $1`, id, timezone)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PostgresRepository) ListUsers(ctx context.Context) ([]*domain.User, error) {
	rows, err := r.db.Query(ctx, `
    SELECT id, username, first_name, timezone, created_at, updated_at
    FROM users ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []*domain.User
	for rows.Next() {
		u := &domain.User{}
		if err := rows.Scan(&u.ID, &u.Username, &u.FirstName, &u.Timezone, &u.CreatedAt, &u.UpdatedAt); err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

// DeleteUserData wipes every row owned by the user, the user included.
func (r *PostgresRepository) DeleteUserData(ctx context.Context, userID int64) error {
	tables := []string{
		"habit_completions", "goal_completions", "productivity_questions",
		"screen_activities", "productive_activities", "daily_stats",
		"habits", "goals", "achievements", "job_runs",
	}
	return pgx.BeginFunc(ctx, r.db, func(tx pgx.Tx) error {
		for _, table := range tables {
			if _, err := tx.Exec(ctx, "DELETE FROM "+table+" WHERE user_id = $1", userID); err != nil {
				return fmt.Errorf("delete %s: %w", table, err)
			}
		}
		if _, err := tx.Exec(ctx, `DELETE FROM conversation_states WHERE user_id = $1`, userID); err != nil {
			return fmt.Errorf("delete conversation_states: %w", err)
		}
		_, err := tx.Exec(ctx, `DELETE FROM users WHERE id = $1`, userID)
		return err
	})
}

// ==================== DAILY STATS ====================

// activityColumns lists "<activity>_<suffix>" for the fixed activity set.
func activityColumns(suffix string) []string {
	cols := make([]string, 0, len(domain.Activities))
	for _, a := range domain.Activities {
		cols = append(cols, string(a.Key)+"_"+suffix)
	}
	return cols
}

var (
	plannedColumns = activityColumns("planned")
	doneColumns    = activityColumns("done")

	dailyStatColumns = "id, user_id, stat_date, screen_time_goal, " +
		strings.Join(plannedColumns, ", ") + ", " +
		strings.Join(doneColumns, ", ") + ", morning_poll_completed, is_rest_day"
)

func scanDailyStat(row pgx.Row) (*domain.DailyStat, error) {
	n := len(domain.Activities)
	planned := make([]bool, n)
	done := make([]bool, n)

	stat := &domain.DailyStat{}
	dest := []any{&stat.ID, &stat.UserID, &stat.Date, &stat.ScreenTimeGoal}
	for i := range planned {
		dest = append(dest, &planned[i])
	}
	for i := range done {
		dest = append(dest, &done[i])
	}
	dest = append(dest, &stat.MorningPollCompleted, &stat.IsRestDay)

	if err := row.Scan(dest...); err != nil {
		return nil, err
	}

	stat.Planned = make(domain.ActivitySet)
	stat.Done = make(domain.ActivitySet)
	for i, a := range domain.Activities {
		if planned[i] {
			stat.Planned[a.Key] = true
		}
		if done[i] {
			stat.Done[a.Key] = true
		}
	}
	return stat, nil
}

func (r *PostgresRepository) GetDailyStat(ctx context.Context, userID int64, date time.Time) (*domain.DailyStat, error) {
	query := `SELECT ` + dailyStatColumns + ` FROM daily_stats WHERE user_id = $1 AND stat_date = $2`

	stat, err := scanDailyStat(r.db.QueryRow(ctx, query, userID, date))
	if err != nil {
		return nil, notFound(err)
	}
	return stat, nil
}

func (r *PostgresRepository) GetDailyStats(ctx context.Context, userID int64, from, to time.Time) ([]*domain.DailyStat, error) {
	query := `SELECT ` + dailyStatColumns + ` FROM daily_stats
    WHERE user_id = $1 AND stat_date BETWEEN $2 AND $3
    ORDER BY stat_date DESC`

	rows, err := r.db.Query(ctx, query, userID, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var stats []*domain.DailyStat
	for rows.Next() {
		stat, err := scanDailyStat(rows)
		if err != nil {
			return nil, err
		}
		stats = append(stats, stat)
	}
	return stats, rows.Err()
}

// UpsertDailyStat writes the whole row for (user, date); a second call overwrites the first.
func (r *PostgresRepository) UpsertDailyStat(ctx context.Context, stat *domain.DailyStat) error {
	cols := append([]string{"user_id", "stat_date", "screen_time_goal"}, plannedColumns...)
	cols = append(cols, doneColumns...)
	cols = append(cols, "morning_poll_completed", "is_rest_day")

	args := []any{stat.UserID, stat.Date, stat.ScreenTimeGoal}
	for _, a := range domain.Activities {
		args = append(args, stat.Planned.Has(a.Key))
	}
	for _, a := range domain.Activities {
		args = append(args, stat.Done.Has(a.Key))
	}
	args = append(args, stat.MorningPollCompleted, stat.IsRestDay)

	placeholders := make([]string, len(cols))
	updates := make([]string, 0, len(cols)-2)
	for i, c := range cols {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
		if i >= 2 {
			updates = append(updates, c+" = EXCLUDED."+c)
		}
	}

	query := fmt.Sprintf(`
    INSERT INTO daily_stats (%s) VALUES (%s)
    ON CONFLICT (user_id, stat_date) DO UPDATE SET %s
    RETURNING id`,
		strings.Join(cols, ", "), strings.Join(placeholders, ", "), strings.Join(updates, ", "))

	return r.db.QueryRow(ctx, query, args...).Scan(&stat.ID)
}

func (r *PostgresRepository) MarkActivityDone(ctx context.Context, userID int64, date time.Time, activity domain.Activity) error {
	if _, ok := domain.ParseActivity(string(activity)); !ok {
		return fmt.Errorf("unknown activity %q", activity)
	}
	query := fmt.Sprintf(`UPDATE daily_stats SET %s_done = TRUE WHERE user_id = $1 AND stat_date = $2`, activity)

	tag, err := r.db.Exec(ctx, query, userID, date)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// ==================== LOGGED ACTIVITIES ====================

func activityTable(kind domain.LogKind) (string, error) {
	switch kind {
	case domain.LogScreen:
		return "screen_activities", nil
	case domain.LogProductive:
		return "productive_activities", nil
	default:
		return "", fmt.Errorf("unknown activity kind %q", kind)
	}
}

func (r *PostgresRepository) AddLoggedActivity(ctx context.Context, activity *domain.LoggedActivity) error {
	table, err := activityTable(activity.Kind)
	if err != nil {
		return err
	}
	query := `INSERT INTO ` + table + ` (user_id, activity_date, activity_name, duration_minutes)
    VALUES ($1, $2, $3, $4)
    RETURNING id, created_at`

	return r.db.QueryRow(ctx, query,
		activity.UserID, activity.Date, activity.Name, activity.DurationMinutes,
	).Scan(&activity.ID, &activity.CreatedAt)
}

func (r *PostgresRepository) GetActivityTotals(ctx context.Context, userID int64, kind domain.LogKind, date time.Time) ([]domain.ActivityTotal, error) {
	table, err := activityTable(kind)
	if err != nil {
		return nil, err
	}
	query := `SELECT activity_name, SUM(duration_minutes)::int
    FROM ` + table + `
    WHERE user_id = $1 AND activity_date = $2
    GROUP BY activity_name
    ORDER BY SUM(duration_minutes) DESC, activity_name`

	rows, err := r.db.Query(ctx, query, userID, date)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var totals []domain.ActivityTotal
	for rows.Next() {
		var t domain.ActivityTotal
		if err := rows.Scan(&t.Name, &t.Minutes); err != nil {
			return nil, err
		}
		totals = append(totals, t)
	}
	return totals, rows.Err()
}

// GetDayTotals returns one entry per day in [from, to] that has any logged time, newest first.
func (r *PostgresRepository) GetDayTotals(ctx context.Context, userID int64, from, to time.Time) ([]domain.DayTotals, error) {
	query := `
    WITH s AS (
      SELECT activity_date AS d, SUM(duration_minutes)::int AS m
      FROM screen_activities
      WHERE user_id = $1 AND activity_date BETWEEN $2 AND $3
      GROUP BY activity_date
    ), p AS (
      SELECT activity_date AS d, SUM(duration_minutes)::int AS m
      FROM productive_activities
      WHERE user_id = $1 AND activity_date BETWEEN $2 AND $3
      GROUP BY activity_date
    )
    SELECT COALESCE(s.d, p.d), COALESCE(s.m, 0), COALESCE(p.m, 0)
    FROM s FULL OUTER JOIN p ON s.d = p.d
    ORDER BY 1 DESC`

	rows, err := r.db.Query(ctx, query, userID, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var totals []domain.DayTotals
	for rows.Next() {
		var t domain.DayTotals
		if err := rows.Scan(&t.Date, &t.ScreenMinutes, &t.ProductiveMinutes); err != nil {
			return nil, err
		}
		totals = append(totals, t)
	}
	return totals, rows.Err()
}

// ==================== HABITS ====================

// CreateHabit inserts the habit. It reports false when the user already has a habit with that name.
func (r *PostgresRepository) CreateHabit(ctx context.Context, habit *domain.Habit) (bool, error) {
	query := `
    INSERT INTO habits (user_id, name)
    VALUES ($1, $2)
    ON CONFLICT (user_id, name) DO NOTHING
    RETURNING id, created_at`

	err := r.db.QueryRow(ctx, query, habit.UserID, habit.Name).Scan(&habit.ID, &habit.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (r *PostgresRepository) GetHabit(ctx context.Context, id int64) (*domain.Habit, error) {
	h := &domain.Habit{}
	err := r.db.QueryRow(ctx,
		`SELECT id, user_id, name, created_at FROM habits WHERE id = $1`, id,
	).Scan(&h.ID, &h.UserID, &h.Name, &h.CreatedAt)
	if err != nil {
		return nil, notFound(err)
	}
	return h, nil
}

func (r *PostgresRepository) GetHabits(ctx context.Context, userID int64) ([]*domain.Habit, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id, user_id, name, created_at FROM habits WHERE user_id = $1 ORDER BY id`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var habits []*domain.Habit
	for rows.Next() {
		h := &domain.Habit{}
		if err := rows.Scan(&h.ID, &h.UserID, &h.Name, &h.CreatedAt); err != nil {
			return nil, err
		}
		habits = append(habits, h)
	}
	return habits, rows.Err()
}

func (r *PostgresRepository) NextHabit(ctx context.Context, userID, afterID int64) (*domain.Habit, error) {
	h := &domain.Habit{}
	err := r.db.QueryRow(ctx, `
    SELECT id, user_id, name, created_at FROM habits
    WHERE user_id = $1 AND id > $2
    ORDER BY id LIMIT 1`, userID, afterID,
	).Scan(&h.ID, &h.UserID, &h.Name, &h.CreatedAt)
	if err != nil {
		return nil, notFound(err)
	}
	return h, nil
}

func (r *PostgresRepository) DeleteHabit(ctx context.Context, userID, habitID int64) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM habits WHERE id = $1 AND user_id = $2`, habitID, userID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PostgresRepository) SaveHabitCompletions(ctx context.Context, userID int64, date time.Time, answers map[int64]bool) error {
	if len(answers) == 0 {
		return nil
	}
	return pgx.BeginFunc(ctx, r.db, func(tx pgx.Tx) error {
		batch := &pgx.Batch{}
		for habitID, completed := range answers {
			batch.Queue(`
        INSERT INTO habit_completions (user_id, habit_id, completion_date, completed)
        SELECT $1, id, $3, $4 FROM habits WHERE id = $2 AND user_id = $1
        ON CONFLICT (habit_id, completion_date) DO UPDATE SET completed = EXCLUDED.completed`,
				userID, habitID, date, completed)
		}
		return tx.SendBatch(ctx, batch).Close()
	})
}

func (r *PostgresRepository) GetHabitHistory(ctx context.Context, habitID int64, from, to time.Time) (map[string]bool, error) {
	return r.completionHistory(ctx, `
    SELECT completion_date, completed FROM habit_completions
    WHERE habit_id = $1 AND completion_date BETWEEN $2 AND $3`, habitID, from, to)
}

func (r *PostgresRepository) GetHabitCompletions(ctx context.Context, userID int64, date time.Time) (map[int64]bool, error) {
	return r.completionsForDate(ctx, `
    SELECT habit_id, completed FROM habit_completions
    WHERE user_id = $1 AND completion_date = $2`, userID, date)
}

func (r *PostgresRepository) completionHistory(ctx context.Context, query string, id int64, from, to time.Time) (map[string]bool, error) {
	rows, err := r.db.Query(ctx, query, id, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	history := make(map[string]bool)
	for rows.Next() {
		var (
			date      time.Time
			completed bool
		)
		if err := rows.Scan(&date, &completed); err != nil {
			return nil, err
		}
		history[domain.DateKey(date)] = completed
	}
	return history, rows.Err()
}

func (r *PostgresRepository) completionsForDate(ctx context.Context, query string, userID int64, date time.Time) (map[int64]bool, error) {
	rows, err := r.db.Query(ctx, query, userID, date)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[int64]bool)
	for rows.Next() {
		var (
			id        int64
			completed bool
		)
		if err := rows.Scan(&id, &completed); err != nil {
			return nil, err
		}
		out[id] = completed
	}
	return out, rows.Err()
}

// ==================== GOALS ====================

const goalColumns = `id, user_id, goal_name, goal_type, target_value, current_value, days_per_week,
    start_date, end_date, is_completed, streak, created_at`

func scanGoal(row pgx.Row) (*domain.Goal, error) {
	g := &domain.Goal{}
	err := row.Scan(&g.ID, &g.UserID, &g.Name, &g.Type, &g.TargetValue, &g.CurrentValue, &g.DaysPerWeek,
		&g.StartDate, &g.EndDate, &g.IsCompleted, &g.Streak, &g.CreatedAt)
	if err != nil {
		return nil, err
	}
	return g, nil
}

func (r *PostgresRepository) queryGoals(ctx context.Context, query string, args ...any) ([]*domain.Goal, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var goals []*domain.Goal
	for rows.Next() {
		g, err := scanGoal(rows)
		if err != nil {
			return nil, err
		}
		goals = append(goals, g)
	}
	return goals, rows.Err()
}

func (r *PostgresRepository) CreateGoal(ctx context.Context, goal *domain.Goal) error {
	query := `
    INSERT INTO goals (user_id, goal_name, goal_type, target_value, current_value, days_per_week, start_date, end_date)
    VALUES ($1, $2, $3, $4, 0, $5, $6, $7)
    RETURNING id, created_at`

	return r.db.QueryRow(ctx, query,
		goal.UserID, goal.Name, goal.Type, goal.TargetValue, goal.DaysPerWeek, goal.StartDate, goal.EndDate,
	).Scan(&goal.ID, &goal.CreatedAt)
}

func (r *PostgresRepository) GetGoal(ctx context.Context, id int64) (*domain.Goal, error) {
	g, err := scanGoal(r.db.QueryRow(ctx, `SELECT `+goalColumns+` FROM goals WHERE id = $1`, id))
	if err != nil {
		return nil, notFound(err)
	}
	return g, nil
}

// GetActiveGoals returns uncompleted goals whose end date has not passed, ordered by id.
func (r *PostgresRepository) GetActiveGoals(ctx context.Context, userID int64, today time.Time) ([]*domain.Goal, error) {
	return r.queryGoals(ctx, `SELECT `+goalColumns+` FROM goals
    WHERE user_id = $1 AND NOT is_completed AND end_date >= $2
    ORDER BY id`, userID, today)
}

func (r *PostgresRepository) NextActiveGoal(ctx context.Context, userID, afterID int64, today time.Time) (*domain.Goal, error) {
	g, err := scanGoal(r.db.QueryRow(ctx, `SELECT `+goalColumns+` FROM goals
    WHERE user_id = $1 AND id > $2 AND NOT is_completed AND end_date >= $3
    ORDER BY id LIMIT 1`, userID, afterID, today))
	if err != nil {
		return nil, notFound(err)
	}
	return g, nil
}

func (r *PostgresRepository) ListGoalsByType(ctx context.Context, userID int64, goalType domain.GoalType) ([]*domain.Goal, error) {
	return r.queryGoals(ctx, `SELECT `+goalColumns+` FROM goals
    WHERE user_id = $1 AND goal_type = $2 ORDER BY id`, userID, goalType)
}

func (r *PostgresRepository) UpdateGoalProgress(ctx context.Context, goal *domain.Goal) error {
	tag, err := r.db.Exec(ctx, `
    UPDATE goals SET current_value = LEAST($2, target_value), is_completed = $3
    WHERE id = $1`, goal.ID, goal.CurrentValue, goal.IsCompleted)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PostgresRepository) UpdateGoalStreak(ctx context.Context, goalID int64, streak int) error {
	tag, err := r.db.Exec(ctx, `UPDATE goals SET streak = $2 WHERE id = $1`, goalID, streak)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PostgresRepository) DeleteGoal(ctx context.Context, userID, goalID int64) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM goals WHERE id = $1 AND user_id = $2`, goalID, userID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PostgresRepository) SaveGoalCompletion(ctx context.Context, userID, goalID int64, date time.Time, completed bool) error {
	_, err := r.db.Exec(ctx, `
    INSERT INTO goal_completions (user_id, goal_id, completion_date, completed)
    VALUES ($1, $2, $3, $4)
    ON CONFLICT (goal_id, completion_date) DO UPDATE SET completed = EXCLUDED.completed`,
		userID, goalID, date, completed)
	return err
}

func (r *PostgresRepository) GetGoalHistory(ctx context.Context, goalID int64, from, to time.Time) (map[string]bool, error) {
	return r.completionHistory(ctx, `
    SELECT completion_date, completed FROM goal_completions
    WHERE goal_id = $1 AND completion_date BETWEEN $2 AND $3`, goalID, from, to)
}

func (r *PostgresRepository) GetGoalCompletions(ctx context.Context, userID int64, date time.Time) (map[int64]bool, error) {
	return r.completionsForDate(ctx, `
    SELECT goal_id, completed FROM goal_completions
    WHERE user_id = $1 AND completion_date = $2`, userID, date)
}

// ResetGoals zeroes progress and completion for the user's goals of the type.
func (r *PostgresRepository) ResetGoals(ctx context.Context, userID int64, goalType domain.GoalType) (int64, error) {
	tag, err := r.db.Exec(ctx, `
    UPDATE goals SET current_value = 0, is_completed = FALSE
    WHERE user_id = $1 AND goal_type = $2 AND (current_value <> 0 OR is_completed)`, userID, goalType)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// ==================== PRODUCTIVITY QUESTIONS ====================

func (r *PostgresRepository) SaveProductivityAnswers(ctx context.Context, userID int64, answers []domain.ProductivityAnswer) error {
	if len(answers) == 0 {
		return nil
	}
	return pgx.BeginFunc(ctx, r.db, func(tx pgx.Tx) error {
		batch := &pgx.Batch{}
		for _, a := range answers {
			batch.Queue(`
        INSERT INTO productivity_questions (user_id, question_date, question, answer)
        VALUES ($1, $2, $3, $4)
        ON CONFLICT (user_id, question_date, question) DO UPDATE SET answer = EXCLUDED.answer`,
				userID, a.Date, a.Question, a.Answer)
		}
		return tx.SendBatch(ctx, batch).Close()
	})
}

func (r *PostgresRepository) GetProductivityAnswers(ctx context.Context, userID int64, date time.Time) ([]domain.ProductivityAnswer, error) {
	rows, err := r.db.Query(ctx, `
    SELECT question_date, question, answer FROM productivity_questions
    WHERE user_id = $1 AND question_date = $2
    ORDER BY id`, userID, date)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var answers []domain.ProductivityAnswer
	for rows.Next() {
		var a domain.ProductivityAnswer
		if err := rows.Scan(&a.Date, &a.Question, &a.Answer); err != nil {
			return nil, err
		}
		answers = append(answers, a)
	}
	return answers, rows.Err()
}

// ==================== ACHIEVEMENTS ====================

// GrantAchievement inserts the achievement. Coded grants are unique per user;
// it reports false when the code was already earned.
func (r *PostgresRepository) GrantAchievement(ctx context.Context, a *domain.Achievement) (bool, error) {
	var code *string
	if a.Code != "" {
		code = &a.Code
	}
	query := `
    INSERT INTO achievements (user_id, achievement_name, code, date_earned)
    VALUES ($1, $2, $3, $4)
    ON CONFLICT (user_id, code) DO NOTHING
    RETURNING id`

	err := r.db.QueryRow(ctx, query, a.UserID, a.Name, code, a.DateEarned).Scan(&a.ID)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (r *PostgresRepository) GetAchievements(ctx context.Context, userID int64) ([]*domain.Achievement, error) {
	rows, err := r.db.Query(ctx, `
    SELECT id, user_id, achievement_name, COALESCE(code, ''), date_earned
    FROM achievements WHERE user_id = $1
    ORDER BY date_earned DESC, id DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*domain.Achievement
	for rows.Next() {
		a := &domain.Achievement{}
		if err := rows.Scan(&a.ID, &a.UserID, &a.Name, &a.Code, &a.DateEarned); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// ==================== TIPS ====================

func (r *PostgresRepository) SeedTips(ctx context.Context, tips []domain.Tip) error {
	batch := &pgx.Batch{}
	for _, t := range tips {
		batch.Queue(`INSERT INTO tips (category, tip) VALUES ($1, $2) ON CONFLICT (category, tip) DO NOTHING`,
			t.Category, t.Text)
	}
	return r.db.SendBatch(ctx, batch).Close()
}

func (r *PostgresRepository) GetTipCategories(ctx context.Context) ([]string, error) {
	rows, err := r.db.Query(ctx, `SELECT category FROM tips GROUP BY category ORDER BY MIN(id)`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var categories []string
	for rows.Next() {
		var c string
		if err := rows.Scan(&c); err != nil {
			return nil, err
		}
		categories = append(categories, c)
	}
	return categories, rows.Err()
}

func (r *PostgresRepository) GetTips(ctx context.Context, category string) ([]*domain.Tip, error) {
	rows, err := r.db.Query(ctx, `SELECT id, category, tip FROM tips WHERE category = $1 ORDER BY id`, category)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tips []*domain.Tip
	for rows.Next() {
		t := &domain.Tip{}
		if err := rows.Scan(&t.ID, &t.Category, &t.Text); err != nil {
			return nil, err
		}
		tips = append(tips, t)
	}
	return tips, rows.Err()
}

// ==================== JOB RUNS ====================

// ClaimJobRun records that job ran for (user, date). It reports false if it already had.
func (r *PostgresRepository) ClaimJobRun(ctx context.Context, job string, userID int64, date time.Time) (bool, error) {
	tag, err := r.db.Exec(ctx, `
    INSERT INTO job_runs (job, user_id, run_date) VALUES ($1, $2, $3)
    ON CONFLICT DO NOTHING`, job, userID, date)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}
