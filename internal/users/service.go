package users

import (
	"context"
	"fmt"
	"strconv"

	"github.com/agrotrade/agrotrade/internal/auth"
	"github.com/agrotrade/agrotrade/internal/shared"
)

// RepositoryPort defines data access methods for users.
type RepositoryPort interface {
	List(ctx context.Context, filter ListFilter) ([]User, int, error)
	Get(ctx context.Context, id int64) (User, error)
	UpdateProfile(ctx context.Context, id int64, in ProfileInput) (User, error)
	SetActive(ctx context.Context, id int64, active bool) error
	SetRole(ctx context.Context, id int64, role shared.Role) error
	Create(ctx context.Context, in StaffInput, hash string) (User, error)
	ListEmployees(ctx context.Context, roles ...shared.Role) ([]Employee, error)
}

// SessionRevoker drops every live session of a user.
type SessionRevoker interface {
	DestroyUser(ctx context.Context, userID int64) error
}

// Service handles user business logic.
type Service struct {
	repo     RepositoryPort
	sessions SessionRevoker
	audit    shared.AuditRecorder
}

// NewService builds Service instance.
func NewService(repo RepositoryPort, sessions SessionRevoker, audit shared.AuditRecorder) *Service {
	if audit == nil {
		audit = shared.NopAudit{}
	}
	return &Service{repo: repo, sessions: sessions, audit: audit}
}

// List returns a page of users.
func (s *Service) List(ctx context.Context, filter ListFilter) ([]User, shared.Pagination, error) {
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.Limit < 1 {
		filter.Limit = 20
	}
	if filter.Dir == "" && (filter.Sort == "" || filter.Sort == "created_at") {
		filter.Dir = "desc"
	}
	if filter.Role != "" {
		if _, ok := shared.ParseRole(filter.Role); !ok {
			return nil, shared.Pagination{}, fmt.Errorf("%w: unknown role %q", shared.ErrValidation, filter.Role)
		}
	}
	rows, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, shared.Pagination{}, err
	}
	return rows, shared.NewPagination(filter.Page, filter.Limit, total), nil
}

// Get returns a user visible to the principal.
func (s *Service) Get(ctx context.Context, p *shared.Principal, id int64) (User, error) {
	if !p.IsStaff() && p.UserID != id {
		return User{}, shared.ErrForbidden
	}
	return s.repo.Get(ctx, id)
}

// UpdateProfile edits profile fields of the principal or, for admins, any user.
func (s *Service) UpdateProfile(ctx context.Context, p *shared.Principal, id int64, in ProfileInput) (User, error) {
	if !p.IsAdmin() && p.UserID != id {
		return User{}, shared.ErrForbidden
	}
	return s.repo.UpdateProfile(ctx, id, in)
}

// SetActive soft-enables or disables an account. Disabling revokes its sessions.
func (s *Service) SetActive(ctx context.Context, p *shared.Principal, id int64, active bool) error {
	if !p.IsAdmin() {
		return shared.ErrForbidden
	}
	if !active && p.UserID == id {
		return fmt.Errorf("%w: cannot deactivate your own account", shared.ErrValidation)
	}
	if err := s.repo.SetActive(ctx, id, active); err != nil {
		return err
	}
	if !active && s.sessions != nil {
		if err := s.sessions.DestroyUser(ctx, id); err != nil {
			return fmt.Errorf("revoke sessions: %w", err)
		}
	}
	return s.audit.Record(ctx, shared.AuditLog{
		ActorID:  p.UserID,
		Action:   "user.set_active",
		Entity:   "user",
		EntityID: strconv.FormatInt(id, 10),
		Meta:     map[string]any{"is_active": active},
	})
}

// ChangeRole assigns a new role. Existing tokens are revoked so the new role applies.
func (s *Service) ChangeRole(ctx context.Context, p *shared.Principal, id int64, raw string) error {
	if !p.IsAdmin() {
		return shared.ErrForbidden
	}
	role, ok := shared.ParseRole(raw)
	if !ok {
		return fmt.Errorf("%w: unknown role %q", shared.ErrValidation, raw)
	}
	if p.UserID == id && role != shared.RoleAdmin {
		return fmt.Errorf("%w: cannot demote your own account", shared.ErrValidation)
	}
	if err := s.repo.SetRole(ctx, id, role); err != nil {
		return err
	}
	if s.sessions != nil {
		if err := s.sessions.DestroyUser(ctx, id); err != nil {
			return fmt.Errorf("revoke sessions: %w", err)
		}
	}
	return s.audit.Record(ctx, shared.AuditLog{
		ActorID:  p.UserID,
		Action:   "user.change_role",
		Entity:   "user",
		EntityID: strconv.FormatInt(id, 10),
		Meta:     map[string]any{"role": string(role)},
	})
}

// CreateStaff registers an admin or sales account.
func (s *Service) CreateStaff(ctx context.Context, p *shared.Principal, in StaffInput) (User, error) {
	if !p.IsAdmin() {
		return User{}, shared.ErrForbidden
	}
	role, ok := shared.ParseRole(in.Role)
	if !ok || (role != shared.RoleAdmin && role != shared.RoleSales) {
		return User{}, fmt.Errorf("%w: staff role must be admin or sales", shared.ErrValidation)
	}
	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return User{}, err
	}
	return s.repo.Create(ctx, in, hash)
}

// ListEmployees returns active sales staff that queries can be assigned to.
func (s *Service) ListEmployees(ctx context.Context) ([]Employee, error) {
	return s.repo.ListEmployees(ctx, shared.RoleSales)
}

// Lookup returns a user without visibility checks, for internal callers.
func (s *Service) Lookup(ctx context.Context, id int64) (User, error) {
	return s.repo.Get(ctx, id)
}
