package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/auirah-api/internal/domain"
)

// TokenRepo persists access tokens in Postgres.
type TokenRepo struct {
	pool *pgxpool.Pool
}

func NewTokenRepo(pool *pgxpool.Pool) *TokenRepo {
	return &TokenRepo{pool: pool}
}

func (r *TokenRepo) Put(ctx context.Context, t *domain.AccessToken) error {
	const query = `
		INSERT INTO access_tokens (id, user_id, name, abilities, token_hash, expires_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`
	_, err := r.pool.Exec(ctx, query, t.TokenID, t.UserID, t.Name, t.Abilities, t.TokenHash, t.ExpiresAt, t.CreatedAt)
	return err
}

func (r *TokenRepo) Get(ctx context.Context, tokenID string) (*domain.AccessToken, error) {
	const query = `
		SELECT id, user_id, name, abilities, token_hash, expires_at, created_at
		FROM access_tokens WHERE id = $1`
	var t domain.AccessToken
	err := r.pool.QueryRow(ctx, query, tokenID).Scan(
		&t.TokenID, &t.UserID, &t.Name, &t.Abilities, &t.TokenHash, &t.ExpiresAt, &t.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("token not found: %w", domain.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (r *TokenRepo) Delete(ctx context.Context, tokenID string) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM access_tokens WHERE id = $1`, tokenID)
	return err
}

func (r *TokenRepo) DeleteByUser(ctx context.Context, userID string) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM access_tokens WHERE user_id = $1`, userID)
	return err
}
