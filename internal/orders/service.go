package orders

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/agrotrade/agrotrade/internal/shared"
)

const idempotencyScope = "orders.place"

// RepositoryPort abstracts repository usage for the service.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	List(ctx context.Context, filter ListFilter) ([]Order, int, error)
	Get(ctx context.Context, id int64) (Order, error)
	Delete(ctx context.Context, id int64) (int64, error)
	Exists(ctx context.Context, id int64) (bool, error)
}

// IdempotencyPort guards order placement against client retries.
type IdempotencyPort interface {
	Claim(ctx context.Context, scope, key string) error
	Release(ctx context.Context, scope, key string) error
}

// Invalidator drops cached aggregates after a mutation.
type Invalidator interface {
	Bump(ctx context.Context) error
}

// Service coordinates order placement and fulfilment.
type Service struct {
	repo   RepositoryPort
	idem   IdempotencyPort
	cache  Invalidator
	audit  shared.AuditRecorder
	logger *slog.Logger
	now    func() time.Time
}

// NewService builds Service.
func NewService(repo RepositoryPort, idem IdempotencyPort, cache Invalidator, audit shared.AuditRecorder, logger *slog.Logger) *Service {
	if audit == nil {
		audit = shared.NopAudit{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, idem: idem, cache: cache, audit: audit, logger: logger, now: time.Now}
}

// FormatOrderNumber renders ORD-YYYYMMDD-<seq>.
func FormatOrderNumber(day time.Time, seq int64) string {
	return fmt.Sprintf("ORD-%s-%06d", day.UTC().Format("20060102"), seq)
}

// Place creates a PENDING order and reserves stock in a single transaction.
func (s *Service) Place(ctx context.Context, p *shared.Principal, in PlaceInput, idempotencyKey string) (Order, error) {
	if p == nil {
		return Order{}, shared.ErrUnauthorized
	}
	if p.Role != shared.RoleBuyer && !p.IsAdmin() {
		return Order{}, shared.ErrForbidden
	}
	in.QuantityKg = shared.RoundKg(in.QuantityKg)
	if in.QuantityKg <= 0 {
		return Order{}, fmt.Errorf("%w: quantity_kg must be at least 0.001", shared.ErrValidation)
	}
	if strings.TrimSpace(in.ShippingAddress) == "" {
		return Order{}, fmt.Errorf("%w: shipping_address is required", shared.ErrValidation)
	}
	key := strings.TrimSpace(idempotencyKey)
	scope := idempotencyScope + ":" + strconv.FormatInt(p.UserID, 10)
	if key != "" && s.idem != nil {
		if err := s.idem.Claim(ctx, scope, key); err != nil {
			return Order{}, err
		}
	}

	var id int64
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		prod, err := tx.LockProduct(ctx, in.ProductID)
		if err != nil {
			if errors.Is(err, shared.ErrNotFound) {
				return fmt.Errorf("%w: product %d does not exist", shared.ErrValidation, in.ProductID)
			}
			return err
		}
		if !prod.IsActive {
			return fmt.Errorf("%w: product is not available", shared.ErrValidation)
		}
		if prod.SellerID == p.UserID {
			return fmt.Errorf("%w: cannot order your own product", shared.ErrValidation)
		}
		if in.QuantityKg < prod.MinOrderKg {
			return fmt.Errorf("%w: minimum order is %.2f kg", shared.ErrValidation, prod.MinOrderKg)
		}
		if in.QuantityKg > prod.StockKg {
			return fmt.Errorf("%w: only %.2f kg in stock", shared.ErrValidation, prod.StockKg)
		}
		if err := tx.AdjustStock(ctx, prod.ID, -in.QuantityKg); err != nil {
			return err
		}
		number, err := tx.NextOrderNumber(ctx, s.now())
		if err != nil {
			return err
		}
		id, err = tx.Insert(ctx, Order{
			OrderNumber:     number,
			BuyerID:         p.UserID,
			SellerID:        prod.SellerID,
			ProductID:       prod.ID,
			QuantityKg:      in.QuantityKg,
			UnitPrice:       prod.PricePerKg,
			TotalAmount:     round2(in.QuantityKg * prod.PricePerKg),
			Currency:        prod.Currency,
			Status:          StatusPending,
			ShippingAddress: strings.TrimSpace(in.ShippingAddress),
			Notes:           strings.TrimSpace(in.Notes),
		})
		return err
	})
	if err != nil {
		if key != "" && s.idem != nil {
			if derr := s.idem.Release(ctx, scope, key); derr != nil {
				s.logger.Warn("release idempotency key", slog.String("key", key), slog.Any("error", derr))
			}
		}
		return Order{}, err
	}
	s.invalidate(ctx)
	return s.repo.Get(ctx, id)
}

// List returns orders scoped to the principal: buyers see purchases, sellers see sales.
func (s *Service) List(ctx context.Context, p *shared.Principal, filter ListFilter) ([]Order, shared.Pagination, error) {
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
	if filter.Status != "" {
		filter.Status = strings.ToUpper(filter.Status)
		if !validStatus(Status(filter.Status)) {
			return nil, shared.Pagination{}, fmt.Errorf("%w: unknown status %q", shared.ErrValidation, filter.Status)
		}
	}
	scope(p, &filter)
	rows, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, shared.Pagination{}, err
	}
	return rows, shared.NewPagination(filter.Page, filter.Limit, total), nil
}

// Export returns every order matching filter, unpaginated, for reports.
func (s *Service) Export(ctx context.Context, filter ListFilter) ([]Order, error) {
	filter.Page, filter.Limit = 1, 0
	rows, _, err := s.repo.List(ctx, filter)
	return rows, err
}

// Get returns an order visible to the principal.
func (s *Service) Get(ctx context.Context, p *shared.Principal, id int64) (Order, error) {
	o, err := s.repo.Get(ctx, id)
	if err != nil {
		return Order{}, err
	}
	if !canView(p, o) {
		return Order{}, shared.ErrNotFound
	}
	return o, nil
}

// UpdateStatus moves the order along its lifecycle. Cancelling returns the quantity to stock.
func (s *Service) UpdateStatus(ctx context.Context, p *shared.Principal, id int64, raw string) (Order, error) {
	next := Status(strings.ToUpper(strings.TrimSpace(raw)))
	if !validStatus(next) {
		return Order{}, fmt.Errorf("%w: unknown status %q", shared.ErrValidation, raw)
	}
	var from Status
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		o, err := tx.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if !canView(p, o) {
			return shared.ErrNotFound
		}
		if err := canTransition(p, o, next); err != nil {
			return err
		}
		if err := tx.SetStatus(ctx, id, next); err != nil {
			return err
		}
		if next == StatusCancelled {
			if err := tx.AdjustStock(ctx, o.ProductID, o.QuantityKg); err != nil {
				return err
			}
		}
		from = o.Status
		return nil
	})
	if err != nil {
		return Order{}, err
	}
	s.invalidate(ctx)
	s.record(ctx, p, "order.status", id, map[string]any{"from": string(from), "to": string(next)})
	return s.repo.Get(ctx, id)
}

// Delete removes an order (admin only). A row still present after the delete is a conflict.
func (s *Service) Delete(ctx context.Context, p *shared.Principal, id int64) error {
	if !p.IsAdmin() {
		return shared.ErrForbidden
	}
	affected, err := s.repo.Delete(ctx, id)
	if err != nil {
		return err
	}
	if affected == 0 {
		return shared.ErrNotFound
	}
	exists, err := s.repo.Exists(ctx, id)
	if err != nil {
		return err
	}
	if exists {
		return fmt.Errorf("%w: order %d still present after delete", shared.ErrConflict, id)
	}
	s.invalidate(ctx)
	s.record(ctx, p, "order.delete", id, nil)
	return nil
}

func scope(p *shared.Principal, filter *ListFilter) {
	switch p.Role {
	case shared.RoleBuyer:
		own := p.UserID
		filter.BuyerID = &own
	case shared.RoleSeller:
		own := p.UserID
		filter.SellerID = &own
	}
}

func canView(p *shared.Principal, o Order) bool {
	if p == nil {
		return false
	}
	return p.IsStaff() || p.UserID == o.BuyerID || p.UserID == o.SellerID
}

func canTransition(p *shared.Principal, o Order, next Status) error {
	switch {
	case p.IsStaff():
	case p.Role == shared.RoleSeller && p.UserID == o.SellerID:
	case p.Role == shared.RoleBuyer && p.UserID == o.BuyerID:
		if next != StatusCancelled || o.Status != StatusPending {
			return fmt.Errorf("%w: buyers may only cancel pending orders", shared.ErrForbidden)
		}
	default:
		return shared.ErrForbidden
	}
	if !o.Status.CanTransition(next) {
		return fmt.Errorf("%w: %s -> %s", shared.ErrInvalidStatus, o.Status, next)
	}
	return nil
}

func validStatus(s Status) bool {
	for _, known := range Statuses() {
		if s == known {
			return true
		}
	}
	return false
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
		Entity:   "order",
		EntityID: strconv.FormatInt(id, 10),
		Meta:     meta,
	})
	if err != nil {
		s.logger.Warn("audit order change", slog.String("action", action), slog.Any("error", err))
	}
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
