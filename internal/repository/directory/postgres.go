package directory

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type postgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgres returns a Store backed by Postgres.
func NewPostgres(pool *pgxpool.Pool) Store {
	return &postgresStore{pool: pool}
}

func (s *postgresStore) Lookup(ctx context.Context, number string) (State, error) {
	const q = `SELECT registered FROM directory_entries WHERE number = $1`

	var registered bool
	err := s.pool.QueryRow(ctx, q, number).Scan(&registered)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return StateUnknown, nil
		}
		return StateUnknown, err
	}
	if registered {
		return StateRegistered, nil
	}
	return StateNotRegistered, nil
}

func (s *postgresStore) Mark(ctx context.Context, number string, registered bool) error {
	const q = `
INSERT INTO directory_entries (number, registered, checked_at)
VALUES ($1, $2, now())
ON CONFLICT (number) DO UPDATE SET registered = EXCLUDED.registered, checked_at = now()
`
	_, err := s.pool.Exec(ctx, q, number, registered)
	return err
}
