package user

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/auirah-api/internal/domain"
)

// --- mocks ---

type mockUserStore struct{ mock.Mock }

func (m *mockUserStore) Create(ctx context.Context, u *domain.User) error {
	return m.Called(ctx, u).Error(0)
}
func (m *mockUserStore) Get(ctx context.Context, userID string) (*domain.User, error) {
	args := m.Called(ctx, userID)
	if u, _ := args.Get(0).(*domain.User); u != nil {
		return u, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *mockUserStore) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	args := m.Called(ctx, email)
	if u, _ := args.Get(0).(*domain.User); u != nil {
		return u, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *mockUserStore) List(ctx context.Context, q domain.UserQuery) ([]domain.User, int, error) {
	args := m.Called(ctx, q)
	return args.Get(0).([]domain.User), args.Int(1), args.Error(2)
}
func (m *mockUserStore) Update(ctx context.Context, userID string, c domain.UserChanges) (*domain.User, error) {
	args := m.Called(ctx, userID, c)
	if u, _ := args.Get(0).(*domain.User); u != nil {
		return u, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *mockUserStore) Delete(ctx context.Context, userID string) error {
	return m.Called(ctx, userID).Error(0)
}

type mockTaskCleaner struct{ mock.Mock }

func (m *mockTaskCleaner) DeleteByOwner(ctx context.Context, userID string) error {
	return m.Called(ctx, userID).Error(0)
}
func (m *mockTaskCleaner) ClearAssignee(ctx context.Context, userID string) error {
	return m.Called(ctx, userID).Error(0)
}

type mockRevoker struct{ mock.Mock }

func (m *mockRevoker) RevokeAll(ctx context.Context, userID string) error {
	return m.Called(ctx, userID).Error(0)
}

// --- helpers ---

var fixedNow = time.Date(2030, 1, 2, 3, 4, 5, 0, time.UTC)

func newService(repo *mockUserStore, tasks *mockTaskCleaner, rev *mockRevoker) Service {
	return NewService(ServiceDeps{
		UserRepo: repo,
		TaskRepo: tasks,
		Sessions: rev,
		HashCost: bcrypt.MinCost,
		Now:      func() time.Time { return fixedNow },
	})
}

func member(id, role string) *domain.User {
	return &domain.User{UserID: id, Name: id, Email: id + "@example.com", Role: role}
}

func strPtr(s string) *string { return &s }

// --- List ---

func TestList_RequiresManager(t *testing.T) {
	repo := &mockUserStore{}
	_, _, err := newService(repo, nil, nil).List(context.Background(), member("f", domain.RoleFamily), domain.UserQuery{})
	assert.ErrorIs(t, err, domain.ErrForbidden)
	repo.AssertNotCalled(t, "List", mock.Anything, mock.Anything)
}

func TestList_TrimsSearch(t *testing.T) {
	repo := &mockUserStore{}
	repo.On("List", mock.Anything, domain.UserQuery{Search: "ada", Limit: 15}).Return([]domain.User{*member("a", domain.RoleAdmin)}, 1, nil)

	users, total, err := newService(repo, nil, nil).List(context.Background(), member("o", domain.RoleOwner), domain.UserQuery{Search: "  ada ", Limit: 15})
	require.NoError(t, err)
	assert.Len(t, users, 1)
	assert.Equal(t, 1, total)
}

// --- Create ---

func TestCreate_Success(t *testing.T) {
	repo := &mockUserStore{}
	var created *domain.User
	repo.On("Create", mock.Anything, mock.AnythingOfType("*domain.User")).
		Run(func(args mock.Arguments) { created = args.Get(1).(*domain.User) }).
		Return(nil)

	u, err := newService(repo, nil, nil).Create(context.Background(), member("o", domain.RoleOwner), domain.CreateUserRequest{
		Name:     " Ada ",
		Email:    "Ada@Example.COM",
		Phone:    strPtr(" "),
		Role:     domain.RoleFamily,
		Password: strPtr("hunter22"),
	})
	require.NoError(t, err)
	assert.Same(t, created, u)
	assert.NotEmpty(t, u.UserID)
	assert.Equal(t, "Ada", u.Name)
	assert.Equal(t, "ada@example.com", u.Email)
	assert.Nil(t, u.Phone)
	assert.Nil(t, u.EmailVerifiedAt)
	assert.Equal(t, fixedNow, u.CreatedAt)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte("hunter22")))
}

func TestCreate_GeneratesPasswordWhenAbsent(t *testing.T) {
	repo := &mockUserStore{}
	repo.On("Create", mock.Anything, mock.Anything).Return(nil)

	u, err := newService(repo, nil, nil).Create(context.Background(), member("a", domain.RoleAdmin), domain.CreateUserRequest{
		Name: "Kid", Email: "kid@example.com", Role: domain.RoleViewer,
	})
	require.NoError(t, err)
	assert.NotEmpty(t, u.PasswordHash)
	assert.Error(t, bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte("")))
}

func TestCreate_Forbidden(t *testing.T) {
	repo := &mockUserStore{}
	_, err := newService(repo, nil, nil).Create(context.Background(), member("f", domain.RoleFamily), domain.CreateUserRequest{})
	assert.ErrorIs(t, err, domain.ErrForbidden)
	assert.Equal(t, "Only owners and admins can create users.", err.Error())
}

func TestCreate_ConflictPropagates(t *testing.T) {
	repo := &mockUserStore{}
	repo.On("Create", mock.Anything, mock.Anything).Return(domain.Errorf(domain.ErrConflict, "The email has already been taken."))

	_, err := newService(repo, nil, nil).Create(context.Background(), member("o", domain.RoleOwner), domain.CreateUserRequest{
		Name: "Dup", Email: "dup@example.com", Role: domain.RoleFamily,
	})
	assert.ErrorIs(t, err, domain.ErrConflict)
}

// --- Get ---

func TestGet_SelfAllowed(t *testing.T) {
	repo := &mockUserStore{}
	self := member("f", domain.RoleFamily)
	repo.On("Get", mock.Anything, "f").Return(self, nil)

	u, err := newService(repo, nil, nil).Get(context.Background(), self, "f")
	require.NoError(t, err)
	assert.Equal(t, "f", u.UserID)
}

func TestGet_OtherForbiddenForMember(t *testing.T) {
	repo := &mockUserStore{}
	repo.On("Get", mock.Anything, "x").Return(member("x", domain.RoleAdmin), nil)

	_, err := newService(repo, nil, nil).Get(context.Background(), member("f", domain.RoleFamily), "x")
	assert.ErrorIs(t, err, domain.ErrForbidden)
}

func TestGet_NotFound(t *testing.T) {
	repo := &mockUserStore{}
	repo.On("Get", mock.Anything, "missing").Return(nil, domain.ErrNotFound)

	_, err := newService(repo, nil, nil).Get(context.Background(), member("o", domain.RoleOwner), "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.Equal(t, "User not found.", err.Error())
}

// --- Update ---

func TestUpdate_EmptyReturnsUnchanged(t *testing.T) {
	repo := &mockUserStore{}
	self := member("f", domain.RoleFamily)
	repo.On("Get", mock.Anything, "f").Return(self, nil)

	u, err := newService(repo, nil, nil).Update(context.Background(), self, "f", domain.UpdateUserRequest{})
	require.NoError(t, err)
	assert.Same(t, self, u)
	repo.AssertNotCalled(t, "Update", mock.Anything, mock.Anything, mock.Anything)
}

func TestUpdate_SelfCannotChangeRole(t *testing.T) {
	repo := &mockUserStore{}
	self := member("f", domain.RoleFamily)
	repo.On("Get", mock.Anything, "f").Return(self, nil)

	_, err := newService(repo, nil, nil).Update(context.Background(), self, "f", domain.UpdateUserRequest{Role: strPtr(domain.RoleOwner)})
	assert.ErrorIs(t, err, domain.ErrForbidden)
	assert.Equal(t, "Only owners and admins can change roles.", err.Error())
}

func TestUpdate_SelfMaySendCurrentRole(t *testing.T) {
	repo := &mockUserStore{}
	self := member("f", domain.RoleFamily)
	repo.On("Get", mock.Anything, "f").Return(self, nil)
	repo.On("Update", mock.Anything, "f", mock.Anything).Return(self, nil)

	_, err := newService(repo, nil, nil).Update(context.Background(), self, "f", domain.UpdateUserRequest{Role: strPtr(domain.RoleFamily), Name: strPtr("Fam")})
	assert.NoError(t, err)
}

func TestUpdate_ManagerChangesFields(t *testing.T) {
	repo := &mockUserStore{}
	target := member("f", domain.RoleFamily)
	repo.On("Get", mock.Anything, "f").Return(target, nil)
	repo.On("Update", mock.Anything, "f", mock.MatchedBy(func(c domain.UserChanges) bool {
		return *c.Email == "new@example.com" && *c.Role == domain.RoleAdmin && c.Name == nil &&
			c.PasswordHash != nil && bcrypt.CompareHashAndPassword([]byte(*c.PasswordHash), []byte("longenough")) == nil
	})).Return(target, nil)

	_, err := newService(repo, nil, nil).Update(context.Background(), member("o", domain.RoleOwner), "f", domain.UpdateUserRequest{
		Email:    strPtr(" NEW@example.com"),
		Role:     strPtr(domain.RoleAdmin),
		Password: strPtr("longenough"),
	})
	require.NoError(t, err)
	repo.AssertExpectations(t)
}

func TestUpdate_OtherForbiddenForMember(t *testing.T) {
	repo := &mockUserStore{}
	repo.On("Get", mock.Anything, "x").Return(member("x", domain.RoleViewer), nil)

	_, err := newService(repo, nil, nil).Update(context.Background(), member("f", domain.RoleFamily), "x", domain.UpdateUserRequest{Name: strPtr("n")})
	assert.ErrorIs(t, err, domain.ErrForbidden)
}

// --- Delete ---

func TestDelete_Cascades(t *testing.T) {
	repo, tasks, rev := &mockUserStore{}, &mockTaskCleaner{}, &mockRevoker{}
	repo.On("Get", mock.Anything, "f").Return(member("f", domain.RoleFamily), nil)
	rev.On("RevokeAll", mock.Anything, "f").Return(nil)
	tasks.On("ClearAssignee", mock.Anything, "f").Return(nil)
	tasks.On("DeleteByOwner", mock.Anything, "f").Return(nil)
	repo.On("Delete", mock.Anything, "f").Return(nil)

	err := newService(repo, tasks, rev).Delete(context.Background(), member("o", domain.RoleOwner), "f")
	require.NoError(t, err)
	repo.AssertExpectations(t)
	tasks.AssertExpectations(t)
	rev.AssertExpectations(t)
}

func TestDelete_Self(t *testing.T) {
	repo := &mockUserStore{}
	repo.On("Get", mock.Anything, "o").Return(member("o", domain.RoleOwner), nil)

	err := newService(repo, &mockTaskCleaner{}, &mockRevoker{}).Delete(context.Background(), member("o", domain.RoleOwner), "o")
	assert.ErrorIs(t, err, domain.ErrBadRequest)
	assert.Equal(t, "You cannot remove your own account.", err.Error())
	repo.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything)
}

func TestDelete_RequiresManager(t *testing.T) {
	err := newService(&mockUserStore{}, nil, nil).Delete(context.Background(), member("f", domain.RoleFamily), "x")
	assert.ErrorIs(t, err, domain.ErrForbidden)
}

func TestDelete_RevokeFailureStops(t *testing.T) {
	repo, rev := &mockUserStore{}, &mockRevoker{}
	repo.On("Get", mock.Anything, "f").Return(member("f", domain.RoleFamily), nil)
	rev.On("RevokeAll", mock.Anything, "f").Return(errors.New("boom"))

	err := newService(repo, &mockTaskCleaner{}, rev).Delete(context.Background(), member("o", domain.RoleOwner), "f")
	assert.Error(t, err)
	repo.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything)
}

// --- Provision ---

func TestProvision_CreatesVerifiedAccount(t *testing.T) {
	repo := &mockUserStore{}
	repo.On("GetByEmail", mock.Anything, "first@example.com").Return(nil, domain.ErrNotFound)
	repo.On("Create", mock.Anything, mock.Anything).Return(nil)

	u, created, err := newService(repo, nil, nil).Provision(context.Background(), domain.CreateUserRequest{
		Name: "First", Email: "First@example.com", Role: domain.RoleOwner,
	})
	require.NoError(t, err)
	assert.True(t, created)
	require.NotNil(t, u.EmailVerifiedAt)
	assert.Equal(t, "active", u.Status())
}

func TestProvision_UpdatesExisting(t *testing.T) {
	repo := &mockUserStore{}
	existing := member("o", domain.RoleFamily)
	repo.On("GetByEmail", mock.Anything, "o@example.com").Return(existing, nil)
	repo.On("Update", mock.Anything, "o", mock.MatchedBy(func(c domain.UserChanges) bool {
		return *c.Role == domain.RoleOwner && *c.Name == "Owner" && c.Phone == nil
	})).Return(existing, nil)

	_, created, err := newService(repo, nil, nil).Provision(context.Background(), domain.CreateUserRequest{
		Name: "Owner", Email: "o@example.com", Role: domain.RoleOwner,
	})
	require.NoError(t, err)
	assert.False(t, created)
	repo.AssertExpectations(t)
}
