package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/auirah-api/internal/domain"
)

// TokenRepo is a mutex-guarded access token store.
type TokenRepo struct {
	mu     sync.Mutex
	tokens map[string]domain.AccessToken
}

func NewTokenRepo() *TokenRepo {
	return &TokenRepo{tokens: make(map[string]domain.AccessToken)}
}

func (r *TokenRepo) Put(_ context.Context, t *domain.AccessToken) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *t
	cp.Abilities = append([]string(nil), t.Abilities...)
	r.tokens[t.TokenID] = cp
	return nil
}

func (r *TokenRepo) Get(_ context.Context, tokenID string) (*domain.AccessToken, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tokens[tokenID]
	if !ok {
		return nil, fmt.Errorf("token not found: %w", domain.ErrNotFound)
	}
	return &t, nil
}

func (r *TokenRepo) Delete(_ context.Context, tokenID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.tokens, tokenID)
	return nil
}

func (r *TokenRepo) DeleteByUser(_ context.Context, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, t := range r.tokens {
		if t.UserID == userID {
			delete(r.tokens, id)
		}
	}
	return nil
}

// Count returns how many tokens are stored.
func (r *TokenRepo) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.tokens)
}
