package state

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore keeps conversations in the conversation_states table.
type PostgresStore struct {
	db *pgxpool.Pool
}

func NewPostgresStore(db *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Get(ctx context.Context, key Key) (Conversation, error) {
	var data []byte
	err := s.db.QueryRow(ctx, `
    SELECT data FROM conversation_states WHERE chat_id = $1 AND user_id = $2`,
		key.ChatID, key.UserID,
	).Scan(&data)
	if errors.Is(err, pgx.ErrNoRows) {
		return Idle(), nil
	}
	if err != nil {
		return Idle(), fmt.Errorf("get conversation %s: %w", key, err)
	}
	return decode(data), nil
}

func (s *PostgresStore) Set(ctx context.Context, key Key, c Conversation) error {
	if c.IsIdle() {
		return s.Clear(ctx, key)
	}
	data, err := encode(c)
	if err != nil {
		return err
	}

	_, err = s.db.Exec(ctx, `
    INSERT INTO conversation_states (chat_id, user_id, state, data, updated_at)
    VALUES ($1, $2, $3, $4, NOW())
    ON CONFLICT (chat_id, user_id) DO UPDATE SET
      state = EXCLUDED.state,
      data = EXCLUDED.data,
      updated_at = EXCLUDED.updated_at`,
		key.ChatID, key.UserID, string(c.Step), string(data))
	if err != nil {
		return fmt.Errorf("set conversation %s: %w", key, err)
	}
	return nil
}

func (s *PostgresStore) Clear(ctx context.Context, key Key) error {
	_, err := s.db.Exec(ctx, `DELETE FROM conversation_states WHERE chat_id = $1 AND user_id = $2`,
		key.ChatID, key.UserID)
	if err != nil {
		return fmt.Errorf("clear conversation %s: %w", key, err)
	}
	return nil
}
