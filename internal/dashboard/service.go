package dashboard

import (
	"context"
	"strconv"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/agrotrade/agrotrade/internal/platform/cache"
	"github.com/agrotrade/agrotrade/internal/shared"
)

const (
	recentOrdersLimit = 5
	// buildTimeout bounds a shared build, which outlives any single caller.
	buildTimeout = 15 * time.Second
)

// Service assembles role dashboards.
type Service struct {
	store    Store
	cache    *cache.Versioned
	group    singleflight.Group
	lowStock float64
	now      func() time.Time
}

// NewService builds Service. A nil cache disables caching.
func NewService(store Store, cache *cache.Versioned, lowStockKg float64) *Service {
	return &Service{store: store, cache: cache, lowStock: lowStockKg, now: time.Now}
}

// Summary returns the dashboard of the principal, served from cache when fresh.
func (s *Service) Summary(ctx context.Context, p *shared.Principal) (Summary, error) {
	if p == nil {
		return Summary{}, shared.ErrUnauthorized
	}
	key, err := s.cache.BuildKey(ctx, "summary", string(p.Role), strconv.FormatInt(p.UserID, 10))
	if err != nil {
		return Summary{}, err
	}
	ch := s.group.DoChan(key, func() (any, error) {
		buildCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), buildTimeout)
		defer cancel()
		var out Summary
		err := s.cache.FetchJSON(buildCtx, key, &out, func(ctx context.Context) (any, error) {
			return s.build(ctx, p)
		})
		return out, err
	})
	select {
	case <-ctx.Done():
		return Summary{}, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return Summary{}, res.Err
		}
		return res.Val.(Summary), nil
	}
}

// Invalidate drops every cached dashboard.
func (s *Service) Invalidate(ctx context.Context) error {
	return s.cache.Bump(ctx)
}

func (s *Service) build(ctx context.Context, p *shared.Principal) (Summary, error) {
	out := Summary{Role: p.Role, GeneratedAt: s.now().UTC()}
	g, ctx := errgroup.WithContext(ctx)
	switch p.Role {
	case shared.RoleAdmin:
		g.Go(func() (err error) {
			out.UsersByRole, err = s.store.UsersByRole(ctx)
			return err
		})
		g.Go(func() error {
			n, err := s.store.ActiveProducts(ctx, 0)
			out.ActiveProducts = &n
			return err
		})
		g.Go(func() (err error) {
			out.OrdersByStatus, err = s.store.OrdersByStatus(ctx, Scope{})
			return err
		})
		g.Go(func() (err error) {
			out.QueriesByStatus, err = s.store.QueriesByStatus(ctx, Scope{})
			return err
		})
		g.Go(func() error {
			total, err := s.store.DeliveredTotal(ctx, Scope{})
			out.Revenue = &total
			return err
		})
		g.Go(func() (err error) {
			out.RecentOrders, err = s.store.RecentOrders(ctx, recentOrdersLimit)
			return err
		})
	case shared.RoleSales:
		g.Go(func() (err error) {
			out.QueriesByStatus, err = s.store.QueriesByStatus(ctx, Scope{AssignedTo: p.UserID})
			return err
		})
		g.Go(func() error {
			n, err := s.store.UnassignedPending(ctx)
			out.UnassignedPending = &n
			return err
		})
		g.Go(func() (err error) {
			out.OrdersByStatus, err = s.store.OrdersByStatus(ctx, Scope{})
			return err
		})
	case shared.RoleBuyer:
		g.Go(func() (err error) {
			out.OrdersByStatus, err = s.store.OrdersByStatus(ctx, Scope{BuyerID: p.UserID})
			return err
		})
		g.Go(func() (err error) {
			out.QueriesByStatus, err = s.store.QueriesByStatus(ctx, Scope{UserID: p.UserID})
			return err
		})
		g.Go(func() error {
			total, err := s.store.DeliveredTotal(ctx, Scope{BuyerID: p.UserID})
			out.TotalSpend = &total
			return err
		})
	case shared.RoleSeller:
		g.Go(func() error {
			n, err := s.store.ActiveProducts(ctx, p.UserID)
			out.ActiveProducts = &n
			return err
		})
		g.Go(func() error {
			n, err := s.store.LowStockProducts(ctx, p.UserID, s.lowStock)
			out.LowStockProducts = &n
			return err
		})
		g.Go(func() (err error) {
			out.OrdersByStatus, err = s.store.OrdersByStatus(ctx, Scope{SellerID: p.UserID})
			return err
		})
		g.Go(func() error {
			total, err := s.store.DeliveredTotal(ctx, Scope{SellerID: p.UserID})
			out.Revenue = &total
			return err
		})
	default:
		return Summary{}, shared.ErrForbidden
	}
	if err := g.Wait(); err != nil {
		return Summary{}, err
	}
	return out, nil
}
