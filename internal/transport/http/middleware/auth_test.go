package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/auirah-api/internal/domain"
)

type mockAuthenticator struct{ mock.Mock }

func (m *mockAuthenticator) Authenticate(ctx context.Context, bearer string) (*domain.Principal, error) {
	args := m.Called(ctx, bearer)
	p, _ := args.Get(0).(*domain.Principal)
	return p, args.Error(1)
}

func okHandler(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) }

func principal(role string) *domain.Principal {
	return &domain.Principal{
		User:  &domain.User{UserID: "u1", Role: role},
		Token: &domain.AccessToken{TokenID: "t1", UserID: "u1", Abilities: domain.AbilitiesFor(role)},
	}
}

func TestAuth_MissingHeader(t *testing.T) {
	authn := &mockAuthenticator{}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rr := httptest.NewRecorder()
	Auth(authn)(http.HandlerFunc(okHandler)).ServeHTTP(rr, req)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	assert.JSONEq(t, `{"message":"Unauthenticated."}`, rr.Body.String())
	authn.AssertNotCalled(t, "Authenticate", mock.Anything, mock.Anything)
}

func TestAuth_RejectedToken(t *testing.T) {
	authn := &mockAuthenticator{}
	authn.On("Authenticate", mock.Anything, "revoked").Return(nil, domain.Errorf(domain.ErrUnauthorized, "Unauthenticated."))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer revoked")
	rr := httptest.NewRecorder()
	Auth(authn)(http.HandlerFunc(okHandler)).ServeHTTP(rr, req)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestAuth_StoreFailureIs500(t *testing.T) {
	authn := &mockAuthenticator{}
	authn.On("Authenticate", mock.Anything, "tok").Return(nil, errors.New("dynamo timeout"))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer tok")
	rr := httptest.NewRecorder()
	Auth(authn)(http.HandlerFunc(okHandler)).ServeHTTP(rr, req)
	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.NotContains(t, rr.Body.String(), "dynamo")
}

func TestAuth_ValidToken_InjectsPrincipal(t *testing.T) {
	authn := &mockAuthenticator{}
	authn.On("Authenticate", mock.Anything, "good").Return(principal(domain.RoleAdmin), nil)

	var got *domain.Principal
	capture := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, _ = PrincipalFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer good")
	rr := httptest.NewRecorder()
	Auth(authn)(capture).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	require.NotNil(t, got)
	assert.Equal(t, "u1", got.User.UserID)
	assert.Equal(t, "t1", got.Token.TokenID)
}

func TestRequireAbility(t *testing.T) {
	cases := []struct {
		name    string
		p       *domain.Principal
		ability string
		want    int
	}{
		{"no principal", nil, domain.AbilityTasksRead, http.StatusUnauthorized},
		{"viewer reads tasks", principal(domain.RoleViewer), domain.AbilityTasksRead, http.StatusOK},
		{"viewer writes tasks", principal(domain.RoleViewer), domain.AbilityTasksWrite, http.StatusForbidden},
		{"admin manages users", principal(domain.RoleAdmin), domain.AbilityUsersWrite, http.StatusOK},
		{"owner wildcard", principal(domain.RoleOwner), domain.AbilityUsersWrite, http.StatusOK},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tc.p != nil {
				req = req.WithContext(WithPrincipal(req.Context(), tc.p))
			}
			rr := httptest.NewRecorder()
			RequireAbility(tc.ability)(http.HandlerFunc(okHandler)).ServeHTTP(rr, req)
			assert.Equal(t, tc.want, rr.Code)
		})
	}
}

type recordedRequest struct {
	method, route string
	status        int
}

type fakeRecorder struct{ got []recordedRequest }

func (f *fakeRecorder) RecordOTPRequest(string)      {}
func (f *fakeRecorder) RecordOTPVerification(string) {}
func (f *fakeRecorder) RecordHTTPRequest(method, route string, status int, _ time.Duration) {
	f.got = append(f.got, recordedRequest{method, route, status})
}

func TestMetrics_RecordsRoutePattern(t *testing.T) {
	rec := &fakeRecorder{}
	r := chi.NewRouter()
	r.Use(Metrics(rec))
	r.Get("/api/tasks/{id}", func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusTeapot) })

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/tasks/abc", nil))
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/nope", nil))

	require.Len(t, rec.got, 2)
	assert.Equal(t, recordedRequest{http.MethodGet, "/api/tasks/{id}", http.StatusTeapot}, rec.got[0])
	assert.Equal(t, http.StatusNotFound, rec.got[1].status)
}
