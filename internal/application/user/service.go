package user

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/auirah-api/internal/domain"
	"github.com/auirah-api/internal/pkg/id"
	pkgtoken "github.com/auirah-api/internal/pkg/token"
)

// generatedPasswordLen is the length of the placeholder password given to
// accounts created without one. Sign-in never uses it.
const generatedPasswordLen = 16

type Service interface {
	List(ctx context.Context, actor *domain.User, q domain.UserQuery) ([]domain.User, int, error)
	Create(ctx context.Context, actor *domain.User, req domain.CreateUserRequest) (*domain.User, error)
	Get(ctx context.Context, actor *domain.User, userID string) (*domain.User, error)
	Update(ctx context.Context, actor *domain.User, userID string, req domain.UpdateUserRequest) (*domain.User, error)
	Delete(ctx context.Context, actor *domain.User, userID string) error
	// Provision creates or updates an account by email without an acting user.
	Provision(ctx context.Context, req domain.CreateUserRequest) (*domain.User, bool, error)
}

type userStore interface {
	Create(ctx context.Context, u *domain.User) error
	Get(ctx context.Context, userID string) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	List(ctx context.Context, q domain.UserQuery) ([]domain.User, int, error)
	Update(ctx context.Context, userID string, c domain.UserChanges) (*domain.User, error)
	Delete(ctx context.Context, userID string) error
}

type taskCleaner interface {
	DeleteByOwner(ctx context.Context, userID string) error
	ClearAssignee(ctx context.Context, userID string) error
}

type tokenRevoker interface {
	RevokeAll(ctx context.Context, userID string) error
}

type service struct {
	repo     userStore
	tasks    taskCleaner
	sessions tokenRevoker
	hashCost int
	now      func() time.Time
}

type ServiceDeps struct {
	UserRepo userStore
	TaskRepo taskCleaner
	Sessions tokenRevoker
	HashCost int
	Now      func() time.Time
}

func NewService(deps ServiceDeps) Service {
	s := &service{
		repo:     deps.UserRepo,
		tasks:    deps.TaskRepo,
		sessions: deps.Sessions,
		hashCost: deps.HashCost,
		now:      deps.Now,
	}
	if s.hashCost == 0 {
		s.hashCost = bcrypt.DefaultCost
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

func (s *service) List(ctx context.Context, actor *domain.User, q domain.UserQuery) ([]domain.User, int, error) {
	if !domain.IsManager(actor) {
		return nil, 0, domain.Errorf(domain.ErrForbidden, "Only owners and admins can view users.")
	}
	q.Search = strings.TrimSpace(q.Search)
	return s.repo.List(ctx, q)
}

func (s *service) Create(ctx context.Context, actor *domain.User, req domain.CreateUserRequest) (*domain.User, error) {
	if !domain.IsManager(actor) {
		return nil, domain.Errorf(domain.ErrForbidden, "Only owners and admins can create users.")
	}
	return s.create(ctx, req, nil)
}

func (s *service) create(ctx context.Context, req domain.CreateUserRequest, verifiedAt *time.Time) (*domain.User, error) {
	hash, err := s.hashPassword(req.Password)
	if err != nil {
		return nil, err
	}
	now := s.now().UTC()
	u := &domain.User{
		UserID:          id.New(),
		Name:            strings.TrimSpace(req.Name),
		Email:           domain.NormalizeEmail(req.Email),
		Phone:           blankToNil(req.Phone),
		Role:            req.Role,
		PasswordHash:    hash,
		EmailVerifiedAt: verifiedAt,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := s.repo.Create(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

func (s *service) Get(ctx context.Context, actor *domain.User, userID string) (*domain.User, error) {
	u, err := s.find(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !canAccess(actor, u.UserID) {
		return nil, domain.Errorf(domain.ErrForbidden, "You are not allowed to view this user.")
	}
	return u, nil
}

// Update applies the provided fields only. Members may edit their own profile
// but role changes are reserved for managers.
func (s *service) Update(ctx context.Context, actor *domain.User, userID string, req domain.UpdateUserRequest) (*domain.User, error) {
	u, err := s.find(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !canAccess(actor, u.UserID) {
		return nil, domain.Errorf(domain.ErrForbidden, "You are not allowed to update this user.")
	}
	if req.Role != nil && *req.Role != u.Role && !domain.IsManager(actor) {
		return nil, domain.Errorf(domain.ErrForbidden, "Only owners and admins can change roles.")
	}

	c := domain.UserChanges{Role: req.Role}
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		c.Name = &name
	}
	if req.Email != nil {
		email := domain.NormalizeEmail(*req.Email)
		c.Email = &email
	}
	if req.Phone != nil && strings.TrimSpace(*req.Phone) != "" {
		c.Phone = blankToNil(req.Phone)
	}
	if req.Password != nil {
		hash, err := s.hashPassword(req.Password)
		if err != nil {
			return nil, err
		}
		c.PasswordHash = &hash
	}
	if c.Empty() {
		return u, nil
	}
	return s.repo.Update(ctx, u.UserID, c)
}

// Delete removes an account after revoking its tokens, clearing its task
// assignments and deleting the tasks it owns.
func (s *service) Delete(ctx context.Context, actor *domain.User, userID string) error {
	if !domain.IsManager(actor) {
		return domain.Errorf(domain.ErrForbidden, "Only owners and admins can remove users.")
	}
	u, err := s.find(ctx, userID)
	if err != nil {
		return err
	}
	if actor.UserID == u.UserID {
		return domain.Errorf(domain.ErrBadRequest, "You cannot remove your own account.")
	}
	if err := s.sessions.RevokeAll(ctx, u.UserID); err != nil {
		return fmt.Errorf("revoke tokens: %w", err)
	}
	if err := s.tasks.ClearAssignee(ctx, u.UserID); err != nil {
		return fmt.Errorf("clear assignments: %w", err)
	}
	if err := s.tasks.DeleteByOwner(ctx, u.UserID); err != nil {
		return fmt.Errorf("delete owned tasks: %w", err)
	}
	return s.repo.Delete(ctx, u.UserID)
}

// Provision upserts by email. New accounts are marked verified since they are
// created by an operator. The boolean reports whether an account was created.
func (s *service) Provision(ctx context.Context, req domain.CreateUserRequest) (*domain.User, bool, error) {
	existing, err := s.repo.GetByEmail(ctx, domain.NormalizeEmail(req.Email))
	switch {
	case errors.Is(err, domain.ErrNotFound):
		now := s.now().UTC()
		u, err := s.create(ctx, req, &now)
		return u, err == nil, err
	case err != nil:
		return nil, false, err
	}

	name := strings.TrimSpace(req.Name)
	c := domain.UserChanges{Name: &name, Role: &req.Role, Phone: blankToNil(req.Phone)}
	if req.Password != nil {
		hash, err := s.hashPassword(req.Password)
		if err != nil {
			return nil, false, err
		}
		c.PasswordHash = &hash
	}
	u, err := s.repo.Update(ctx, existing.UserID, c)
	return u, false, err
}

func (s *service) find(ctx context.Context, userID string) (*domain.User, error) {
	u, err := s.repo.Get(ctx, userID)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, domain.Errorf(domain.ErrNotFound, "User not found.")
	}
	return u, err
}

func (s *service) hashPassword(password *string) (string, error) {
	plain := ""
	if password != nil {
		plain = *password
	}
	if plain == "" {
		generated, err := pkgtoken.RandomString(generatedPasswordLen)
		if err != nil {
			return "", err
		}
		plain = generated
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(plain), s.hashCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}

func canAccess(actor *domain.User, userID string) bool {
	return domain.IsManager(actor) || (actor != nil && actor.UserID == userID)
}

func blankToNil(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}
