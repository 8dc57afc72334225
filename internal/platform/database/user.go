package database

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Querier abstracts pgx query methods so callers can work with both
// pool connections and transactions.
type Querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// WithUserConnection acquires a dedicated connection, publishes the caller
// as request.jwt.claims (the setting Supabase RLS policies read), then calls
// fn. The claims are cleared before the connection goes back to the pool.
func WithUserConnection(ctx context.Context, pool *pgxpool.Pool, userID string, fn func(ctx context.Context, q Querier) error) error {
	claims, err := json.Marshal(map[string]string{"sub": userID, "role": "authenticated"})
	if err != nil {
		return fmt.Errorf("encoding claims: %w", err)
	}

	conn, err := pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquiring connection: %w", err)
	}
	defer func() {
		// Request context may already be canceled here.
		_, _ = conn.Exec(context.Background(), "SELECT set_config('request.jwt.claims', '', false)")
		conn.Release()
	}()

	if _, err := conn.Exec(ctx, "SELECT set_config('request.jwt.claims', $1, false)", string(claims)); err != nil {
		return fmt.Errorf("setting request claims: %w", err)
	}

	return fn(ctx, conn)
}
