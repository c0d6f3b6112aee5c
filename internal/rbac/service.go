package rbac

import (
	"context"
	"strings"

	"github.com/agrotrade/agrotrade/internal/shared"
)

// Service resolves permissions for the fixed marketplace roles.
type Service struct{}

// NewService constructs a Service.
func NewService() *Service {
	return &Service{}
}

// EffectivePermissions returns the permissions granted to role.
func (s *Service) EffectivePermissions(ctx context.Context, role shared.Role) ([]string, error) {
	return shared.RolePermissions(role), nil
}

// Grants lists every role with its permissions.
func (s *Service) Grants(ctx context.Context) []Grant {
	roles := shared.Roles()
	out := make([]Grant, 0, len(roles))
	for _, role := range roles {
		out = append(out, Grant{Role: role, Permissions: shared.RolePermissions(role)})
	}
	return out
}

// Can reports whether the principal holds perm.
func (s *Service) Can(p *shared.Principal, perm string) bool {
	if p == nil {
		return false
	}
	return newPermissionSet(shared.RolePermissions(p.Role)).has(strings.ToLower(strings.TrimSpace(perm)))
}
