package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
)

type migration struct {
	version int
	name    string
	sql     string
}

// ==================== 001: CORE ====================

const migration001 = `
CREATE TABLE IF NOT EXISTS users (
    id          BIGINT PRIMARY KEY,
    username    TEXT NOT NULL DEFAULT '',
    first_name  TEXT NOT NULL DEFAULT '',
    timezone    TEXT NOT NULL DEFAULT '',
    created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS daily_stats (
    id                      BIGSERIAL PRIMARY KEY,
    user_id                 BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
    stat_date               DATE NOT NULL,
    screen_time_goal        INTEGER,
    workout_planned         BOOLEAN NOT NULL DEFAULT FALSE,
    workout_done            BOOLEAN NOT NULL DEFAULT FALSE,
    english_planned         BOOLEAN NOT NULL DEFAULT FALSE,
    english_done            BOOLEAN NOT NULL DEFAULT FALSE,
    coding_planned          BOOLEAN NOT NULL DEFAULT FALSE,
    coding_done             BOOLEAN NOT NULL DEFAULT FALSE,
    planning_planned        BOOLEAN NOT NULL DEFAULT FALSE,
    planning_done           BOOLEAN NOT NULL DEFAULT FALSE,
    stretching_planned      BOOLEAN NOT NULL DEFAULT FALSE,
    stretching_done         BOOLEAN NOT NULL DEFAULT FALSE,
    reflection_planned      BOOLEAN NOT NULL DEFAULT FALSE,
    reflection_done         BOOLEAN NOT NULL DEFAULT FALSE,
    walk_planned            BOOLEAN NOT NULL DEFAULT FALSE,
    walk_done               BOOLEAN NOT NULL DEFAULT FALSE,
    morning_poll_completed  BOOLEAN NOT NULL DEFAULT FALSE,
    is_rest_day             BOOLEAN NOT NULL DEFAULT FALSE,
    UNIQUE (user_id, stat_date)
);

CREATE TABLE IF NOT EXISTS screen_activities (
    id                BIGSERIAL PRIMARY KEY,
    user_id           BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
    activity_date     DATE NOT NULL,
    activity_name     TEXT NOT NULL,
    duration_minutes  INTEGER NOT NULL CHECK (duration_minutes >= 0),
    created_at        TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_screen_activities_user_date ON screen_activities(user_id, activity_date);

CREATE TABLE IF NOT EXISTS productive_activities (
    id                BIGSERIAL PRIMARY KEY,
    user_id           BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
    activity_date     DATE NOT NULL,
    activity_name     TEXT NOT NULL,
    duration_minutes  INTEGER NOT NULL CHECK (duration_minutes >= 0),
    created_at        TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_productive_activities_user_date ON productive_activities(user_id, activity_date);
`

// ==================== 002: HABITS & GOALS ====================

const migration002 = `
CREATE TABLE IF NOT EXISTS habits (
    id          BIGSERIAL PRIMARY KEY,
    user_id     BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
    name        TEXT NOT NULL,
    created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    UNIQUE (user_id, name)
);

CREATE TABLE IF NOT EXISTS habit_completions (
    id               BIGSERIAL PRIMARY KEY,
    user_id          BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
    habit_id         BIGINT NOT NULL REFERENCES habits(id) ON DELETE CASCADE,
    completion_date  DATE NOT NULL,
    completed        BOOLEAN NOT NULL,
    UNIQUE (habit_id, completion_date)
);

CREATE TABLE IF NOT EXISTS goals (
    id             BIGSERIAL PRIMARY KEY,
    user_id        BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
    goal_name      TEXT NOT NULL,
    goal_type      TEXT NOT NULL CHECK (goal_type IN ('daily', 'weekly')),
    target_value   INTEGER NOT NULL CHECK (target_value > 0),
    current_value  INTEGER NOT NULL DEFAULT 0,
    days_per_week  INTEGER CHECK (days_per_week BETWEEN 1 AND 7),
    start_date     DATE NOT NULL,
    end_date       DATE NOT NULL,
    is_completed   BOOLEAN NOT NULL DEFAULT FALSE,
    streak         INTEGER NOT NULL DEFAULT 0,
    created_at     TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    CONSTRAINT goal_progress_clamped CHECK (current_value <= target_value)
);
CREATE INDEX IF NOT EXISTS idx_goals_user_open ON goals(user_id) WHERE NOT is_completed;

CREATE TABLE IF NOT EXISTS goal_completions (
    id               BIGSERIAL PRIMARY KEY,
    user_id          BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
    goal_id          BIGINT NOT NULL REFERENCES goals(id) ON DELETE CASCADE,
    completion_date  DATE NOT NULL,
    completed        BOOLEAN NOT NULL,
    UNIQUE (goal_id, completion_date)
);

CREATE TABLE IF NOT EXISTS productivity_questions (
    id             BIGSERIAL PRIMARY KEY,
    user_id        BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
    question_date  DATE NOT NULL,
    question       TEXT NOT NULL,
    answer         TEXT NOT NULL,
    UNIQUE (user_id, question_date, question)
);

CREATE TABLE IF NOT EXISTS achievements (
    id                BIGSERIAL PRIMARY KEY,
    user_id           BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
    achievement_name  TEXT NOT NULL,
    code              TEXT,
    date_earned       DATE NOT NULL,
    UNIQUE (user_id, code)
);

CREATE TABLE IF NOT EXISTS tips (
    id        BIGSERIAL PRIMARY KEY,
    category  TEXT NOT NULL,
    tip       TEXT NOT NULL,
    UNIQUE (category, tip)
);
`

// ==================== 003: BOT RUNTIME ====================

const migration003 = `
CREATE TABLE IF NOT EXISTS conversation_states (
    chat_id     BIGINT NOT NULL,
    user_id     BIGINT NOT NULL,
    state       TEXT NOT NULL,
    data        JSONB NOT NULL DEFAULT '{}'::jsonb,
    updated_at  TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    PRIMARY KEY (chat_id, user_id)
);

CREATE TABLE IF NOT EXISTS job_runs (
    job         TEXT NOT NULL,
    user_id     BIGINT NOT NULL,
    run_date    DATE NOT NULL,
    created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    PRIMARY KEY (job, user_id, run_date)
);
`

var migrations = []migration{
	{1, "core", migration001},
	{2, "habits_goals", migration002},
	{3, "bot_runtime", migration003},
}

// Migrate applies pending migrations, each in its own transaction.
func (r *PostgresRepository) Migrate(ctx context.Context) error {
	_, err := r.db.Exec(ctx, `
    CREATE TABLE IF NOT EXISTS schema_migrations (
        version     INTEGER PRIMARY KEY,
        name        TEXT NOT NULL,
        applied_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
    )`)
	if err != nil {
		return fmt.Errorf("create schema_migrations: %w", err)
	}

	for _, m := range migrations {
		var applied bool
		err := r.db.QueryRow(ctx,
			`SELECT EXISTS (SELECT 1 FROM schema_migrations WHERE version = $1)`, m.version,
		).Scan(&applied)
		if err != nil {
			return fmt.Errorf("check migration %d: %w", m.version, err)
		}
		if applied {
			continue
		}

		err = pgx.BeginFunc(ctx, r.db, func(tx pgx.Tx) error {
			if _, err := tx.Exec(ctx, m.sql); err != nil {
				return err
			}
			_, err := tx.Exec(ctx,
				`INSERT INTO schema_migrations (version, name) VALUES ($1, $2)`, m.version, m.name)
			return err
		})
		if err != nil {
			return fmt.Errorf("apply migration %03d_%s: %w", m.version, m.name, err)
		}
	}
	return nil
}
