package rbac

import (
	"context"
	"log/slog"
	"net/http"
	"slices"
	"strings"

	"github.com/agrotrade/agrotrade/internal/platform/httpx"
	"github.com/agrotrade/agrotrade/internal/shared"
)

// PermissionSource resolves the permissions of a role.
type PermissionSource interface {
	EffectivePermissions(ctx context.Context, role shared.Role) ([]string, error)
}

// Middleware gates chi routes on the caller's role grants.
// Every guard answers 401 without a principal and 403 when the grant is missing.
type Middleware struct {
	Service PermissionSource
	Logger  *slog.Logger
}

// RequireAny passes when the caller holds at least one of perms.
func (m Middleware) RequireAny(perms ...string) func(http.Handler) http.Handler {
	required := newPermissionSet(perms)
	return m.guard(func(r *http.Request, p *shared.Principal) (bool, error) {
		granted, err := m.granted(r.Context(), p)
		return required.empty() || granted.any(required), err
	})
}

// RequireAll passes when the caller holds every one of perms.
func (m Middleware) RequireAll(perms ...string) func(http.Handler) http.Handler {
	required := newPermissionSet(perms)
	return m.guard(func(r *http.Request, p *shared.Principal) (bool, error) {
		granted, err := m.granted(r.Context(), p)
		return granted.all(required), err
	})
}

// RequireRole passes when the caller has one of roles.
func (m Middleware) RequireRole(roles ...shared.Role) func(http.Handler) http.Handler {
	return m.guard(func(_ *http.Request, p *shared.Principal) (bool, error) {
		return slices.Contains(roles, p.Role), nil
	})
}

func (m Middleware) guard(allowed func(*http.Request, *shared.Principal) (bool, error)) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p := shared.PrincipalFromContext(r.Context())
			if p == nil {
				httpx.RespondError(w, shared.ErrUnauthorized)
				return
			}
			ok, err := allowed(r, p)
			switch {
			case err != nil:
				if m.Logger != nil {
					m.Logger.Error("rbac resolve permissions", slog.String("role", string(p.Role)), slog.Any("error", err))
				}
				httpx.RespondError(w, err)
			case !ok:
				httpx.RespondError(w, shared.ErrForbidden)
			default:
				next.ServeHTTP(w, r)
			}
		})
	}
}

func (m Middleware) granted(ctx context.Context, p *shared.Principal) (permissionSet, error) {
	perms, err := m.Service.EffectivePermissions(ctx, p.Role)
	if err != nil {
		return nil, err
	}
	return newPermissionSet(perms), nil
}

// permissionSet holds lower-cased permission names.
type permissionSet map[string]struct{}

func newPermissionSet(perms []string) permissionSet {
	set := make(permissionSet, len(perms))
	for _, p := range perms {
		if p = strings.ToLower(strings.TrimSpace(p)); p != "" {
			set[p] = struct{}{}
		}
	}
	return set
}

func (s permissionSet) empty() bool { return len(s) == 0 }

func (s permissionSet) has(perm string) bool {
	_, ok := s[perm]
	return ok
}

func (s permissionSet) any(required permissionSet) bool {
	for perm := range required {
		if s.has(perm) {
			return true
		}
	}
	return false
}

func (s permissionSet) all(required permissionSet) bool {
	for perm := range required {
		if !s.has(perm) {
			return false
		}
	}
	return true
}
