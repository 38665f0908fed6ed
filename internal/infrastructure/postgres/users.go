package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/auirah-api/internal/domain"
)

const userColumns = `id, name, email, phone_number, role, password_hash, email_verified_at,
	otp_secret, otp_expires_at, otp_verified_at, otp_attempts, version, created_at, updated_at`

// UserRepo persists users in Postgres.
type UserRepo struct {
	pool *pgxpool.Pool
}

func NewUserRepo(pool *pgxpool.Pool) *UserRepo {
	return &UserRepo{pool: pool}
}

func (r *UserRepo) Create(ctx context.Context, u *domain.User) error {
	const query = `
		INSERT INTO users (` + userColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`
	_, err := r.pool.Exec(ctx, query,
		u.UserID, u.Name, u.Email, u.Phone, u.Role, u.PasswordHash, u.EmailVerifiedAt,
		u.OTPSecret, u.OTPExpiresAt, u.OTPVerifiedAt, u.OTPAttempts, u.Version, u.CreatedAt, u.UpdatedAt,
	)
	return uniqueErr(err)
}

func (r *UserRepo) Get(ctx context.Context, userID string) (*domain.User, error) {
	return r.one(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, userID)
}

func (r *UserRepo) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	return r.one(ctx, `SELECT `+userColumns+` FROM users WHERE lower(email) = $1`, domain.NormalizeEmail(email))
}

func (r *UserRepo) List(ctx context.Context, q domain.UserQuery) ([]domain.User, int, error) {
	where := ""
	args := []any{}
	if q.Search != "" {
		args = append(args, "%"+escapeLike(q.Search)+"%")
		where = ` WHERE name ILIKE $1 OR email ILIKE $1`
	}

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT count(*) FROM users`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `SELECT ` + userColumns + ` FROM users` + where + ` ORDER BY name, email`
	if q.Limit > 0 {
		args = append(args, q.Limit, q.Offset)
		query += fmt.Sprintf(` LIMIT $%d OFFSET $%d`, len(args)-1, len(args))
	}
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	users := []domain.User{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, 0, err
		}
		users = append(users, *u)
	}
	return users, total, rows.Err()
}

// Update applies the profile changes. OTP columns are never part of this statement.
func (r *UserRepo) Update(ctx context.Context, userID string, c domain.UserChanges) (*domain.User, error) {
	if c.Empty() {
		return r.Get(ctx, userID)
	}
	sets := []string{}
	args := []any{}
	add := func(col string, v any) {
		args = append(args, v)
		sets = append(sets, fmt.Sprintf("%s = $%d", col, len(args)))
	}
	if c.Name != nil {
		add("name", *c.Name)
	}
	if c.Email != nil {
		add("email", domain.NormalizeEmail(*c.Email))
	}
	if c.Phone != nil {
		add("phone_number", *c.Phone)
	}
	if c.Role != nil {
		add("role", *c.Role)
	}
	if c.PasswordHash != nil {
		add("password_hash", *c.PasswordHash)
	}
	add("updated_at", time.Now().UTC())
	args = append(args, userID)

	query := fmt.Sprintf(`UPDATE users SET %s WHERE id = $%d RETURNING %s`,
		strings.Join(sets, ", "), len(args), userColumns)
	u, err := scanUser(r.pool.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("user not found: %w", domain.ErrNotFound)
		}
		return nil, uniqueErr(err)
	}
	return u, nil
}

// SaveOTPState writes the four OTP columns together, guarded by the row version.
func (r *UserRepo) SaveOTPState(ctx context.Context, userID string, expectedVersion int64, st domain.OTPState) error {
	const query = `
		UPDATE users
		SET otp_secret = $3, otp_expires_at = $4, otp_verified_at = $5, otp_attempts = $6,
		    version = version + 1, updated_at = now()
		WHERE id = $1 AND version = $2`
	tag, err := r.pool.Exec(ctx, query, userID, expectedVersion, st.Secret, st.ExpiresAt, st.VerifiedAt, st.Attempts)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("otp state changed concurrently: %w", domain.ErrConflict)
	}
	return nil
}

// Delete removes the user. Owned tasks and tokens cascade in the schema.
func (r *UserRepo) Delete(ctx context.Context, userID string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM users WHERE id = $1`, userID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("user not found: %w", domain.ErrNotFound)
	}
	return nil
}

func (r *UserRepo) one(ctx context.Context, query string, args ...any) (*domain.User, error) {
	u, err := scanUser(r.pool.QueryRow(ctx, query, args...))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("user not found: %w", domain.ErrNotFound)
	}
	return u, err
}

func scanUser(row pgx.Row) (*domain.User, error) {
	var u domain.User
	err := row.Scan(
		&u.UserID, &u.Name, &u.Email, &u.Phone, &u.Role, &u.PasswordHash, &u.EmailVerifiedAt,
		&u.OTPSecret, &u.OTPExpiresAt, &u.OTPVerifiedAt, &u.OTPAttempts, &u.Version, &u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
