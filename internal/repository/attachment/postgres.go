package attachment

import (
	"bytes"
	"context"
	"errors"
	"io"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"contactshare/internal/domain"
)

type postgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgres returns a Store keeping attachment bytes in Postgres.
func NewPostgres(pool *pgxpool.Pool) Store {
	return &postgresStore{pool: pool}
}

func (s *postgresStore) Persist(ctx context.Context, r io.Reader, contentType string) (string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	if contentType == "" {
		contentType = ImageJPEG
	}

	id := uuid.NewString()
	const q = `INSERT INTO attachments (id, content_type, data) VALUES ($1, $2, $3)`
	if _, err := s.pool.Exec(ctx, q, id, contentType, data); err != nil {
		return "", err
	}
	return id, nil
}

func (s *postgresStore) Open(ctx context.Context, id string) (io.ReadCloser, Meta, error) {
	const q = `SELECT content_type, data FROM attachments WHERE id = $1`

	var (
		contentType string
		data        []byte
	)
	err := s.pool.QueryRow(ctx, q, id).Scan(&contentType, &data)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, Meta{}, domain.ErrNotFound
		}
		return nil, Meta{}, err
	}

	meta := Meta{ContentType: contentType, Size: int64(len(data))}
	return io.NopCloser(bytes.NewReader(data)), meta, nil
}
