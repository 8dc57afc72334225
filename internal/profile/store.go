package profile

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/twingenie/twingenie/internal/platform/database"
)

// Store keeps profiles in Postgres, one row per user.
type Store struct {
	pool *database.Pool
}

func NewStore(pool *database.Pool) *Store {
	return &Store{pool: pool}
}

func (s *Store) SaveAnswers(ctx context.Context, userID string, answers []Answer, persona string) error {
	raw, err := json.Marshal(answers)
	if err != nil {
		return fmt.Errorf("encoding answers: %w", err)
	}
	err = database.WithUserConnection(ctx, s.pool, userID, func(ctx context.Context, q database.Querier) error {
		_, err := q.Exec(ctx,
			`INSERT INTO profiles (user_id, answers, persona) VALUES ($1, $2, $3)
			ON CONFLICT (user_id) DO UPDATE
			SET answers = EXCLUDED.answers, persona = EXCLUDED.persona, updated_at = now()`,
			userID, raw, persona)
		return err
	})
	if err != nil {
		return fmt.Errorf("saving answers: %w", err)
	}
	return nil
}

func (s *Store) SetPlan(ctx context.Context, userID, plan string) error {
	err := database.WithUserConnection(ctx, s.pool, userID, func(ctx context.Context, q database.Querier) error {
		_, err := q.Exec(ctx,
			`INSERT INTO profiles (user_id, plan) VALUES ($1, $2)
			ON CONFLICT (user_id) DO UPDATE SET plan = EXCLUDED.plan, updated_at = now()`,
			userID, plan)
		return err
	})
	if err != nil {
		return fmt.Errorf("setting plan: %w", err)
	}
	return nil
}

func (s *Store) Get(ctx context.Context, userID string) (Profile, error) {
	var p Profile
	err := database.WithUserConnection(ctx, s.pool, userID, func(ctx context.Context, q database.Querier) error {
		return q.QueryRow(ctx,
			`SELECT plan, persona, jsonb_array_length(answers), updated_at FROM profiles WHERE user_id = $1`,
			userID,
		).Scan(&p.Plan, &p.Persona, &p.AnswerCount, &p.UpdatedAt)
	})
	if errors.Is(err, pgx.ErrNoRows) {
		return Profile{}, ErrNotFound
	}
	if err != nil {
		return Profile{}, fmt.Errorf("loading profile: %w", err)
	}
	return p, nil
}
