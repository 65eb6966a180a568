package domain

// Scope is the role family a flow, token or reset grant is restricted to.
type Scope string

const (
	ScopeGeneral Scope = "general"
	ScopeAdmin   Scope = "admin"
)

func (s Scope) Valid() bool {
	return s == ScopeGeneral || s == ScopeAdmin
}

// ScopeForRole returns the role family an account belongs to.
func ScopeForRole(role Role) Scope {
	if role == RoleAdmin {
		return ScopeAdmin
	}
	return ScopeGeneral
}

// Admits reports whether accounts with role may authenticate in this scope.
// The general scope admits every role, the admin scope admits admins only.
func (s Scope) Admits(role Role) bool {
	if s == ScopeAdmin {
		return role == RoleAdmin
	}
	return role.Valid()
}

// Permissions derives the permission claim for an account authenticated in this scope.
func (s Scope) Permissions(role Role) []string {
	if s == ScopeAdmin {
		return []string{"read", "write", "admin", "manage_users", "manage_app"}
	}
	if role == RoleAdmin {
		return []string{"read", "write", "admin"}
	}
	return []string{"read", "write", "user"}
}
