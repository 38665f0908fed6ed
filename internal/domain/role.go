package domain

// Account roles. The set is closed; unknown values degrade to read-only access.
const (
	RoleOwner  = "owner"
	RoleAdmin  = "admin"
	RoleFamily = "family"
	RoleViewer = "viewer"
)

// Token abilities.
const (
	AbilityAll        = "*"
	AbilityTasksRead  = "tasks:read"
	AbilityTasksWrite = "tasks:write"
	AbilityUsersRead  = "users:read"
	AbilityUsersWrite = "users:write"
)

// Roles lists every assignable role, in privilege order.
var Roles = []string{RoleOwner, RoleAdmin, RoleFamily, RoleViewer}

// AbilitiesFor returns the ability set granted to a token minted for role.
// A fresh slice is returned on every call.
func AbilitiesFor(role string) []string {
	switch role {
	case RoleOwner:
		return []string{AbilityAll}
	case RoleAdmin:
		return []string{AbilityTasksRead, AbilityTasksWrite, AbilityUsersRead, AbilityUsersWrite}
	default:
		return []string{AbilityTasksRead}
	}
}

// TokenCan reports whether abilities grant ability.
func TokenCan(abilities []string, ability string) bool {
	for _, a := range abilities {
		if a == AbilityAll || a == ability {
			return true
		}
	}
	return false
}

// IsManager reports whether u may perform administrative mutations.
func IsManager(u *User) bool {
	if u == nil {
		return false
	}
	return u.Role == RoleOwner || u.Role == RoleAdmin
}
