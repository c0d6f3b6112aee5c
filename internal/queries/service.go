package queries

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/agrotrade/agrotrade/internal/shared"
)

// RepositoryPort abstracts repository usage for the service.
type RepositoryPort interface {
	List(ctx context.Context, filter ListFilter) ([]Query, int, error)
	Get(ctx context.Context, id int64) (Query, error)
	Create(ctx context.Context, q Query) (Query, error)
	Assign(ctx context.Context, id, employeeID int64, from, to Status) error
	UpdateStatus(ctx context.Context, id int64, from, to Status, response string) error
	Delete(ctx context.Context, id int64) error
	ProductRef(ctx context.Context, productID int64) (ProductRef, error)
	StaffRole(ctx context.Context, userID int64) (shared.Role, bool, error)
}

// Notifier is told about assignments so the assignee can be e-mailed.
type Notifier interface {
	QueryAssigned(ctx context.Context, queryID, employeeID int64) error
}

// Invalidator drops cached aggregates after a mutation.
type Invalidator interface {
	Bump(ctx context.Context) error
}

// Service coordinates inquiry workflows.
type Service struct {
	repo     RepositoryPort
	notifier Notifier
	cache    Invalidator
	audit    shared.AuditRecorder
	logger   *slog.Logger
}

// NewService builds Service.
func NewService(repo RepositoryPort, notifier Notifier, cache Invalidator, audit shared.AuditRecorder, logger *slog.Logger) *Service {
	if audit == nil {
		audit = shared.NopAudit{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, notifier: notifier, cache: cache, audit: audit, logger: logger}
}

// Submit records a new PENDING inquiry for the principal.
func (s *Service) Submit(ctx context.Context, p *shared.Principal, in SubmitInput) (Query, error) {
	if p == nil {
		return Query{}, shared.ErrUnauthorized
	}
	typ := Type(strings.ToUpper(in.Type))
	if typ != TypeBuy && typ != TypeSell {
		return Query{}, fmt.Errorf("%w: type must be BUY or SELL", shared.ErrValidation)
	}
	in.QuantityKg = shared.RoundKg(in.QuantityKg)
	if in.QuantityKg <= 0 {
		return Query{}, fmt.Errorf("%w: quantity_kg must be at least 0.001", shared.ErrValidation)
	}
	q := Query{
		Type:        typ,
		UserID:      p.UserID,
		ProductID:   in.ProductID,
		ProductName: strings.TrimSpace(in.ProductName),
		Grade:       strings.ToUpper(strings.TrimSpace(in.Grade)),
		QuantityKg:  in.QuantityKg,
		TargetPrice: in.TargetPrice,
		Location:    strings.TrimSpace(in.Location),
		Message:     strings.TrimSpace(in.Message),
		Status:      StatusPending,
	}
	if in.ProductID != nil {
		ref, err := s.repo.ProductRef(ctx, *in.ProductID)
		if err != nil {
			if errors.Is(err, shared.ErrNotFound) {
				return Query{}, fmt.Errorf("%w: product %d does not exist", shared.ErrValidation, *in.ProductID)
			}
			return Query{}, err
		}
		if q.ProductName == "" {
			q.ProductName = ref.Name
		}
		if q.Grade == "" {
			q.Grade = ref.Grade
		}
	}
	if q.ProductName == "" {
		return Query{}, fmt.Errorf("%w: product_name is required", shared.ErrValidation)
	}
	created, err := s.repo.Create(ctx, q)
	if err != nil {
		return Query{}, err
	}
	s.invalidate(ctx)
	return created, nil
}

// List returns queries visible to the principal. Staff see all; others only their own.
func (s *Service) List(ctx context.Context, p *shared.Principal, filter ListFilter) ([]Query, shared.Pagination, error) {
	if p == nil {
		return nil, shared.Pagination{}, shared.ErrUnauthorized
	}
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.Limit < 1 {
		filter.Limit = 20
	}
	if filter.Dir == "" && (filter.Sort == "" || filter.Sort == "created_at") {
		filter.Dir = "desc"
	}
	if !p.IsStaff() {
		own := p.UserID
		filter.UserID = &own
	}
	rows, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, shared.Pagination{}, err
	}
	return rows, shared.NewPagination(filter.Page, filter.Limit, total), nil
}

// Export returns every query matching filter, unpaginated, for reports.
func (s *Service) Export(ctx context.Context, filter ListFilter) ([]Query, error) {
	filter.Page, filter.Limit = 1, 0
	rows, _, err := s.repo.List(ctx, filter)
	return rows, err
}

// Get returns a query visible to the principal.
func (s *Service) Get(ctx context.Context, p *shared.Principal, id int64) (Query, error) {
	q, err := s.repo.Get(ctx, id)
	if err != nil {
		return Query{}, err
	}
	if !canView(p, q) {
		return Query{}, shared.ErrNotFound
	}
	return q, nil
}

// Assign hands the query to an active sales or admin employee.
func (s *Service) Assign(ctx context.Context, p *shared.Principal, id, employeeID int64) (Query, error) {
	if !p.IsStaff() {
		return Query{}, shared.ErrForbidden
	}
	q, err := s.repo.Get(ctx, id)
	if err != nil {
		return Query{}, err
	}
	if q.Status != StatusPending && q.Status != StatusAssigned {
		return Query{}, fmt.Errorf("%w: cannot assign a %s query", shared.ErrInvalidStatus, q.Status)
	}
	if err := s.checkAssignee(ctx, employeeID); err != nil {
		return Query{}, err
	}
	if err := s.repo.Assign(ctx, id, employeeID, q.Status, StatusAssigned); err != nil {
		return Query{}, err
	}
	s.invalidate(ctx)
	s.record(ctx, p, "query.assign", id, map[string]any{"employee_id": employeeID})
	if s.notifier != nil {
		if err := s.notifier.QueryAssigned(ctx, id, employeeID); err != nil {
			s.logger.Warn("enqueue assignment notification", slog.Int64("query_id", id), slog.Any("error", err))
		}
	}
	return s.repo.Get(ctx, id)
}

// UpdateStatus moves the query along its lifecycle. Sales may only touch queries assigned to them.
func (s *Service) UpdateStatus(ctx context.Context, p *shared.Principal, id int64, in StatusInput) (Query, error) {
	if !p.IsStaff() {
		return Query{}, shared.ErrForbidden
	}
	q, err := s.repo.Get(ctx, id)
	if err != nil {
		return Query{}, err
	}
	next := Status(strings.ToUpper(in.Status))
	if p.Role == shared.RoleSales && q.AssignedTo != nil && *q.AssignedTo != p.UserID {
		return Query{}, shared.ErrForbidden
	}
	if p.Role == shared.RoleSales && q.AssignedTo == nil && next != StatusAssigned {
		return Query{}, shared.ErrForbidden
	}
	if !q.Status.CanTransition(next) {
		return Query{}, fmt.Errorf("%w: %s -> %s", shared.ErrInvalidStatus, q.Status, next)
	}
	if next == StatusAssigned {
		// Moving to ASSIGNED without an assignee claims the query for the caller.
		if err := s.repo.Assign(ctx, id, p.UserID, q.Status, next); err != nil {
			return Query{}, err
		}
	} else if err := s.repo.UpdateStatus(ctx, id, q.Status, next, strings.TrimSpace(in.Response)); err != nil {
		return Query{}, err
	}
	s.invalidate(ctx)
	s.record(ctx, p, "query.status", id, map[string]any{"from": string(q.Status), "to": string(next)})
	return s.repo.Get(ctx, id)
}

// Delete removes a query. Owners may delete while PENDING; admins always.
func (s *Service) Delete(ctx context.Context, p *shared.Principal, id int64) error {
	if p == nil {
		return shared.ErrUnauthorized
	}
	q, err := s.repo.Get(ctx, id)
	if err != nil {
		return err
	}
	switch {
	case p.IsAdmin():
	case p.UserID == q.UserID:
		if q.Status != StatusPending {
			return fmt.Errorf("%w: only pending queries can be withdrawn", shared.ErrInvalidStatus)
		}
	default:
		return shared.ErrForbidden
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.invalidate(ctx)
	s.record(ctx, p, "query.delete", id, nil)
	return nil
}

func (s *Service) checkAssignee(ctx context.Context, employeeID int64) error {
	role, active, err := s.repo.StaffRole(ctx, employeeID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return fmt.Errorf("%w: employee %d does not exist", shared.ErrValidation, employeeID)
		}
		return err
	}
	if !active || (role != shared.RoleSales && role != shared.RoleAdmin) {
		return fmt.Errorf("%w: employee %d cannot take queries", shared.ErrValidation, employeeID)
	}
	return nil
}

func (s *Service) invalidate(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Bump(ctx); err != nil {
		s.logger.Warn("bump dashboard cache", slog.Any("error", err))
	}
}

func (s *Service) record(ctx context.Context, p *shared.Principal, action string, id int64, meta map[string]any) {
	err := s.audit.Record(ctx, shared.AuditLog{
		ActorID:  p.UserID,
		Action:   action,
		Entity:   "query",
		EntityID: strconv.FormatInt(id, 10),
		Meta:     meta,
	})
	if err != nil {
		s.logger.Warn("audit query change", slog.String("action", action), slog.Any("error", err))
	}
}

func canView(p *shared.Principal, q Query) bool {
	if p == nil {
		return false
	}
	if p.IsStaff() || p.UserID == q.UserID {
		return true
	}
	return q.AssignedTo != nil && *q.AssignedTo == p.UserID
}
