// Package memory holds process-local stores used in development and tests.
package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/auirah-api/internal/domain"
)

// UserRepo is a mutex-guarded user store. Records are copied in and out.
type UserRepo struct {
	mu    sync.Mutex
	users map[string]domain.User
}

func NewUserRepo() *UserRepo {
	return &UserRepo{users: make(map[string]domain.User)}
}

func (r *UserRepo) Create(_ context.Context, u *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.users[u.UserID]; ok {
		return fmt.Errorf("user id taken: %w", domain.ErrConflict)
	}
	if err := r.ensureUniqueLocked(u.UserID, u.Email, u.Phone); err != nil {
		return err
	}
	r.users[u.UserID] = *u
	return nil
}

func (r *UserRepo) Get(_ context.Context, userID string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[userID]
	if !ok {
		return nil, fmt.Errorf("user not found: %w", domain.ErrNotFound)
	}
	return &u, nil
}

func (r *UserRepo) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	needle := domain.NormalizeEmail(email)
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if domain.NormalizeEmail(u.Email) == needle {
			return &u, nil
		}
	}
	return nil, fmt.Errorf("user not found: %w", domain.ErrNotFound)
}

func (r *UserRepo) List(_ context.Context, q domain.UserQuery) ([]domain.User, int, error) {
	r.mu.Lock()
	all := make([]domain.User, 0, len(r.users))
	for _, u := range r.users {
		if q.Matches(&u) {
			all = append(all, u)
		}
	}
	r.mu.Unlock()
	domain.SortUsers(all)
	return domain.Page(all, q.Offset, q.Limit), len(all), nil
}

func (r *UserRepo) Update(_ context.Context, userID string, c domain.UserChanges) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[userID]
	if !ok {
		return nil, fmt.Errorf("user not found: %w", domain.ErrNotFound)
	}
	if c.Empty() {
		return &u, nil
	}
	if c.Email != nil {
		email := domain.NormalizeEmail(*c.Email)
		c.Email = &email
	}
	email := ""
	if c.Email != nil {
		email = *c.Email
	}
	if err := r.ensureUniqueLocked(userID, email, c.Phone); err != nil {
		return nil, err
	}
	c.Apply(&u)
	u.UpdatedAt = time.Now().UTC()
	r.users[userID] = u
	return &u, nil
}

// SaveOTPState replaces the OTP fields when the stored version equals expectedVersion.
func (r *UserRepo) SaveOTPState(_ context.Context, userID string, expectedVersion int64, st domain.OTPState) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[userID]
	if !ok {
		return fmt.Errorf("user not found: %w", domain.ErrNotFound)
	}
	if u.Version != expectedVersion {
		return fmt.Errorf("otp state changed concurrently: %w", domain.ErrConflict)
	}
	u.ApplyOTP(st)
	u.UpdatedAt = time.Now().UTC()
	r.users[userID] = u
	return nil
}

func (r *UserRepo) Delete(_ context.Context, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.users[userID]; !ok {
		return fmt.Errorf("user not found: %w", domain.ErrNotFound)
	}
	delete(r.users, userID)
	return nil
}

func (r *UserRepo) ensureUniqueLocked(userID, email string, phone *string) error {
	for id, other := range r.users {
		if id == userID {
			continue
		}
		if email != "" && domain.NormalizeEmail(other.Email) == domain.NormalizeEmail(email) {
			return domain.Errorf(domain.ErrConflict, "The email has already been taken.")
		}
		if phone != nil && *phone != "" && other.Phone != nil && *other.Phone == *phone {
			return domain.Errorf(domain.ErrConflict, "The phone number has already been taken.")
		}
	}
	return nil
}
