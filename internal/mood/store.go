package mood

import (
	"context"
	"fmt"

	"github.com/twingenie/twingenie/internal/platform/database"
)

// Store keeps mood entries in Postgres.
type Store struct {
	pool *database.Pool
}

func NewStore(pool *database.Pool) *Store {
	return &Store{pool: pool}
}

func (s *Store) Insert(ctx context.Context, userID string, e Entry) (Entry, error) {
	err := database.WithUserConnection(ctx, s.pool, userID, func(ctx context.Context, q database.Querier) error {
		return q.QueryRow(ctx,
			`INSERT INTO mood_entries (user_id, mood, note, custom)
			VALUES ($1, $2, $3, $4)
			RETURNING id::text, created_at`,
			userID, e.Mood, e.Note, e.Custom,
		).Scan(&e.ID, &e.CreatedAt)
	})
	if err != nil {
		return Entry{}, fmt.Errorf("inserting mood: %w", err)
	}
	return e, nil
}

func (s *Store) List(ctx context.Context, userID string, limit, offset int) ([]Entry, error) {
	entries := []Entry{}
	err := database.WithUserConnection(ctx, s.pool, userID, func(ctx context.Context, q database.Querier) error {
		rows, err := q.Query(ctx,
			`SELECT id::text, mood, note, custom, created_at FROM mood_entries
			WHERE user_id = $1
			ORDER BY created_at DESC
			LIMIT $2 OFFSET $3`, userID, limit, offset)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			var e Entry
			if err := rows.Scan(&e.ID, &e.Mood, &e.Note, &e.Custom, &e.CreatedAt); err != nil {
				return err
			}
			entries = append(entries, e)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, fmt.Errorf("listing moods: %w", err)
	}
	return entries, nil
}
