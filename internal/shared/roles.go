package shared

import "strings"

// Role is one of the fixed marketplace roles.
type Role string

const (
	RoleAdmin  Role = "admin"
	RoleSales  Role = "sales"
	RoleBuyer  Role = "buyer"
	RoleSeller Role = "seller"
)

// ParseRole normalises a role string, reporting whether it is known.
func ParseRole(raw string) (Role, bool) {
	r := Role(strings.ToLower(strings.TrimSpace(raw)))
	switch r {
	case RoleAdmin, RoleSales, RoleBuyer, RoleSeller:
		return r, true
	}
	return "", false
}

// Roles lists every role.
func Roles() []Role {
	return []Role{RoleAdmin, RoleSales, RoleBuyer, RoleSeller}
}
