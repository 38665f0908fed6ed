package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/auirah-api/internal/domain"
	"github.com/auirah-api/internal/transport/http/middleware"
)

func member(id, role string) *domain.User {
	return &domain.User{UserID: id, Name: id, Email: id + "@example.com", Role: role}
}

// asPrincipal attaches an authenticated caller to r, as middleware.Auth would.
func asPrincipal(r *http.Request, u *domain.User) *http.Request {
	p := &domain.Principal{
		User:  u,
		Token: &domain.AccessToken{TokenID: "tok-" + u.UserID, UserID: u.UserID, Abilities: domain.AbilitiesFor(u.Role)},
	}
	return r.WithContext(middleware.WithPrincipal(r.Context(), p))
}

// withURLParam injects a chi URL param into the request context.
func withURLParam(r *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

func withChiID(r *http.Request, id string) *http.Request { return withURLParam(r, "id", id) }

func jsonReq(t *testing.T, method, target string, body interface{}) *http.Request {
	t.Helper()
	b, err := json.Marshal(body)
	require.NoError(t, err)
	return httptest.NewRequest(method, target, bytes.NewReader(b))
}

func decode(t *testing.T, rr *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&out))
	return out
}
