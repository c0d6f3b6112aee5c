package rbac

import "github.com/agrotrade/agrotrade/internal/shared"

// Grant describes the permissions attached to a role.
type Grant struct {
	Role        shared.Role `json:"role"`
	Permissions []string    `json:"permissions"`
}
