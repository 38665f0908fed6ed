package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/auirah-api/internal/domain"
	jwtinfra "github.com/auirah-api/internal/infrastructure/jwt"
	"github.com/auirah-api/internal/pkg/id"
	pkgtoken "github.com/auirah-api/internal/pkg/token"
)

const DefaultDeviceName = "auirah-admin"

// Issued is a freshly minted credential. Bearer is only ever returned here.
type Issued struct {
	Bearer string
	Token  *domain.AccessToken
}

type Service interface {
	Issue(ctx context.Context, u *domain.User, deviceName string) (*Issued, error)
	Authenticate(ctx context.Context, bearer string) (*domain.Principal, error)
	Logout(ctx context.Context, tokenID string) error
	RevokeAll(ctx context.Context, userID string) error
}

type tokenStore interface {
	Put(ctx context.Context, t *domain.AccessToken) error
	Get(ctx context.Context, tokenID string) (*domain.AccessToken, error)
	Delete(ctx context.Context, tokenID string) error
	DeleteByUser(ctx context.Context, userID string) error
}

type userGetter interface {
	Get(ctx context.Context, userID string) (*domain.User, error)
}

type signer interface {
	Sign(userID, tokenID string, issuedAt time.Time, expiresAt *time.Time) (string, error)
	Verify(tokenStr string) (*jwtinfra.Claims, error)
}

type service struct {
	tokens        tokenStore
	users         userGetter
	signer        signer
	ttl           time.Duration
	defaultDevice string
	now           func() time.Time
}

type ServiceDeps struct {
	TokenRepo   tokenStore
	UserRepo    userGetter
	JWTProvider signer
	// TTL of zero mints tokens without expiry.
	TTL           time.Duration
	DefaultDevice string
	Now           func() time.Time
}

func NewService(deps ServiceDeps) Service {
	s := &service{
		tokens:        deps.TokenRepo,
		users:         deps.UserRepo,
		signer:        deps.JWTProvider,
		ttl:           deps.TTL,
		defaultDevice: deps.DefaultDevice,
		now:           deps.Now,
	}
	if s.defaultDevice == "" {
		s.defaultDevice = DefaultDeviceName
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

// Issue mints a token for u scoped by the abilities of its current role.
func (s *service) Issue(ctx context.Context, u *domain.User, deviceName string) (*Issued, error) {
	name := strings.TrimSpace(deviceName)
	if name == "" {
		name = s.defaultDevice
	}
	now := s.now().UTC()
	tok := &domain.AccessToken{
		TokenID:   id.New(),
		UserID:    u.UserID,
		Name:      name,
		Abilities: domain.AbilitiesFor(u.Role),
		CreatedAt: now,
	}
	if s.ttl > 0 {
		exp := now.Add(s.ttl)
		tok.ExpiresAt = &exp
	}
	bearer, err := s.signer.Sign(u.UserID, tok.TokenID, now, tok.ExpiresAt)
	if err != nil {
		return nil, fmt.Errorf("sign token: %w", err)
	}
	tok.TokenHash = pkgtoken.Hash(bearer)
	if err := s.tokens.Put(ctx, tok); err != nil {
		return nil, fmt.Errorf("store token: %w", err)
	}
	return &Issued{Bearer: bearer, Token: tok}, nil
}

// Authenticate resolves a bearer to its stored token and user. Every failure
// is reported as domain.ErrUnauthorized.
func (s *service) Authenticate(ctx context.Context, bearer string) (*domain.Principal, error) {
	claims, err := s.signer.Verify(bearer)
	if err != nil {
		return nil, unauthenticated()
	}
	tok, err := s.tokens.Get(ctx, claims.ID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, unauthenticated()
		}
		return nil, err
	}
	if !pkgtoken.Equal(bearer, tok.TokenHash) {
		return nil, unauthenticated()
	}
	if tok.ExpiresAt != nil && s.now().After(*tok.ExpiresAt) {
		return nil, unauthenticated()
	}
	u, err := s.users.Get(ctx, tok.UserID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, unauthenticated()
		}
		return nil, err
	}
	return &domain.Principal{User: u, Token: tok}, nil
}

// Logout deletes only the given token.
func (s *service) Logout(ctx context.Context, tokenID string) error {
	return s.tokens.Delete(ctx, tokenID)
}

// RevokeAll deletes every token minted for userID.
func (s *service) RevokeAll(ctx context.Context, userID string) error {
	return s.tokens.DeleteByUser(ctx, userID)
}

func unauthenticated() error {
	return domain.Errorf(domain.ErrUnauthorized, "Unauthenticated.")
}
