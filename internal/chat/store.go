package chat

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/jackc/pgx/v5"
	"github.com/twingenie/twingenie/internal/llm"
	"github.com/twingenie/twingenie/internal/platform/database"
)

// Store keeps chat turns in Postgres. Every query runs on a connection
// scoped to the calling user.
type Store struct {
	pool *database.Pool
}

func NewStore(pool *database.Pool) *Store {
	return &Store{pool: pool}
}

func (s *Store) Persona(ctx context.Context, userID string) (string, error) {
	var persona string
	err := database.WithUserConnection(ctx, s.pool, userID, func(ctx context.Context, q database.Querier) error {
		return q.QueryRow(ctx, `SELECT persona FROM profiles WHERE user_id = $1`, userID).Scan(&persona)
	})
	if errors.Is(err, pgx.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("loading persona: %w", err)
	}
	return persona, nil
}

// Recent returns the last n turns, oldest first, ready to send to the model.
func (s *Store) Recent(ctx context.Context, userID string, n int) ([]llm.Message, error) {
	var out []llm.Message
	err := database.WithUserConnection(ctx, s.pool, userID, func(ctx context.Context, q database.Querier) error {
		rows, err := q.Query(ctx,
			`SELECT role, content FROM chat_messages
			WHERE user_id = $1
			ORDER BY created_at DESC
			LIMIT $2`, userID, n)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			var m llm.Message
			if err := rows.Scan(&m.Role, &m.Content); err != nil {
				return err
			}
			out = append(out, m)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, fmt.Errorf("loading recent messages: %w", err)
	}
	slices.Reverse(out)
	return out, nil
}

func (s *Store) Append(ctx context.Context, userID string, mode llm.Mode, turns ...llm.Message) error {
	if len(turns) == 0 {
		return nil
	}
	err := database.WithUserConnection(ctx, s.pool, userID, func(ctx context.Context, q database.Querier) error {
		for _, t := range turns {
			if _, err := q.Exec(ctx,
				`INSERT INTO chat_messages (user_id, role, content, mode) VALUES ($1, $2, $3, $4)`,
				userID, t.Role, t.Content, string(mode)); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("appending chat messages: %w", err)
	}
	return nil
}

func (s *Store) History(ctx context.Context, userID string, limit, offset int) ([]StoredMessage, error) {
	out := []StoredMessage{}
	err := database.WithUserConnection(ctx, s.pool, userID, func(ctx context.Context, q database.Querier) error {
		rows, err := q.Query(ctx,
			`SELECT id::text, role, content, mode, created_at FROM chat_messages
			WHERE user_id = $1
			ORDER BY created_at DESC
			LIMIT $2 OFFSET $3`, userID, limit, offset)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			var m StoredMessage
			if err := rows.Scan(&m.ID, &m.Role, &m.Content, &m.Mode, &m.CreatedAt); err != nil {
				return err
			}
			out = append(out, m)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, fmt.Errorf("listing chat history: %w", err)
	}
	return out, nil
}
