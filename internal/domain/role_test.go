package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAbilitiesFor(t *testing.T) {
	cases := []struct {
		role string
		want []string
	}{
		{RoleOwner, []string{"*"}},
		{RoleAdmin, []string{"tasks:read", "tasks:write", "users:read", "users:write"}},
		{RoleFamily, []string{"tasks:read"}},
		{RoleViewer, []string{"tasks:read"}},
		{"", []string{"tasks:read"}},
		{"superuser", []string{"tasks:read"}},
		{"OWNER", []string{"tasks:read"}},
	}
	for _, tc := range cases {
		t.Run(tc.role, func(t *testing.T) {
			assert.Equal(t, tc.want, AbilitiesFor(tc.role))
			assert.Equal(t, AbilitiesFor(tc.role), AbilitiesFor(tc.role))
		})
	}
}

func TestAbilitiesFor_ReturnsFreshSlice(t *testing.T) {
	a := AbilitiesFor(RoleAdmin)
	a[0] = "mutated"
	assert.Equal(t, AbilityTasksRead, AbilitiesFor(RoleAdmin)[0])
}

func TestTokenCan(t *testing.T) {
	assert.True(t, TokenCan([]string{AbilityAll}, AbilityUsersWrite))
	assert.True(t, TokenCan([]string{AbilityTasksRead}, AbilityTasksRead))
	assert.False(t, TokenCan([]string{AbilityTasksRead}, AbilityTasksWrite))
	assert.False(t, TokenCan(nil, AbilityTasksRead))
}

func TestIsManager(t *testing.T) {
	assert.True(t, IsManager(&User{Role: RoleOwner}))
	assert.True(t, IsManager(&User{Role: RoleAdmin}))
	assert.False(t, IsManager(&User{Role: RoleFamily}))
	assert.False(t, IsManager(&User{Role: RoleViewer}))
	assert.False(t, IsManager(&User{Role: "root"}))
	assert.False(t, IsManager(nil))
}
