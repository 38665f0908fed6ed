package main

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/auirah-api/internal/application/user"
	"github.com/auirah-api/internal/domain"
	"github.com/auirah-api/internal/infrastructure/store"
)

func newProvisioner() (*store.Stores, user.Service) {
	st := store.Memory()
	return st, user.NewService(user.ServiceDeps{UserRepo: st.Users, TaskRepo: st.Tasks, HashCost: bcrypt.MinCost})
}

func TestRun_CreatesThenUpdates(t *testing.T) {
	st, svc := newProvisioner()
	ctx := context.Background()

	var out bytes.Buffer
	require.NoError(t, run(ctx, svc, []string{"-email", " Owner@Example.com ", "-name", "Jo Owner"}, &out))
	assert.Contains(t, out.String(), "created Jo Owner <owner@example.com> role=owner")

	u, err := st.Users.GetByEmail(ctx, "owner@example.com")
	require.NoError(t, err)
	assert.Equal(t, domain.RoleOwner, u.Role)
	assert.NotNil(t, u.EmailVerifiedAt)

	out.Reset()
	require.NoError(t, run(ctx, svc, []string{"-email", "owner@example.com", "-name", "Jo", "-role", "admin", "-phone", "+15550100"}, &out))
	assert.Contains(t, out.String(), "updated Jo <owner@example.com> role=admin")

	u, err = st.Users.GetByEmail(ctx, "owner@example.com")
	require.NoError(t, err)
	require.NotNil(t, u.Phone)
	assert.Equal(t, "+15550100", *u.Phone)
}

func TestRun_RejectsBadInput(t *testing.T) {
	_, svc := newProvisioner()
	var out bytes.Buffer

	err := run(context.Background(), svc, []string{"-name", "Nobody"}, &out)
	var ve *domain.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Contains(t, ve.Fields, "email")

	err = run(context.Background(), svc, []string{"-email", "a@example.com", "-name", "A", "-role", "emperor"}, &out)
	require.ErrorAs(t, err, &ve)
	assert.Contains(t, ve.Fields, "role")
}
