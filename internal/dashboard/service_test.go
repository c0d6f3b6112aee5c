package dashboard

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agrotrade/agrotrade/internal/platform/cache"
	"github.com/agrotrade/agrotrade/internal/shared"
)

type countingStore struct {
	calls       atomic.Int32
	mu          sync.Mutex
	orderScopes []Scope
	queryScopes []Scope
	threshold   float64
}

func (s *countingStore) UsersByRole(context.Context) (Counts, error) {
	s.calls.Add(1)
	return Counts{"admin": 1, "buyer": 4}, nil
}

func (s *countingStore) ActiveProducts(_ context.Context, sellerID int64) (int, error) {
	s.calls.Add(1)
	if sellerID > 0 {
		return 2, nil
	}
	return 9, nil
}

func (s *countingStore) LowStockProducts(_ context.Context, _ int64, threshold float64) (int, error) {
	s.calls.Add(1)
	s.threshold = threshold
	return 1, nil
}

func (s *countingStore) OrdersByStatus(_ context.Context, scope Scope) (Counts, error) {
	s.calls.Add(1)
	s.mu.Lock()
	s.orderScopes = append(s.orderScopes, scope)
	s.mu.Unlock()
	return Counts{"PENDING": 3, "DELIVERED": 2}, nil
}

func (s *countingStore) QueriesByStatus(_ context.Context, scope Scope) (Counts, error) {
	s.calls.Add(1)
	s.mu.Lock()
	s.queryScopes = append(s.queryScopes, scope)
	s.mu.Unlock()
	return Counts{"PENDING": 1}, nil
}

func (s *countingStore) UnassignedPending(context.Context) (int, error) {
	s.calls.Add(1)
	return 6, nil
}

func (s *countingStore) DeliveredTotal(context.Context, Scope) (float64, error) {
	s.calls.Add(1)
	return 1520.5, nil
}

func (s *countingStore) RecentOrders(context.Context, int) ([]RecentOrder, error) {
	s.calls.Add(1)
	return []RecentOrder{{ID: 1, OrderNumber: "ORD-20240101-000001", Status: "PENDING"}}, nil
}

func newCache(t *testing.T) *cache.Versioned {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return cache.NewVersioned(client, "dashboard", time.Minute)
}

func TestAdminSummarySections(t *testing.T) {
	store := &countingStore{}
	svc := NewService(store, nil, 50)

	out, err := svc.Summary(context.Background(), &shared.Principal{UserID: 1, Role: shared.RoleAdmin})
	require.NoError(t, err)
	assert.Equal(t, 4, out.UsersByRole["buyer"])
	require.NotNil(t, out.ActiveProducts)
	assert.Equal(t, 9, *out.ActiveProducts)
	require.NotNil(t, out.Revenue)
	assert.InDelta(t, 1520.5, *out.Revenue, 1e-9)
	assert.Len(t, out.RecentOrders, 1)
	assert.Nil(t, out.TotalSpend)
	assert.Equal(t, int32(6), store.calls.Load())
}

func TestSellerSummaryUsesThreshold(t *testing.T) {
	store := &countingStore{}
	svc := NewService(store, nil, 50)

	out, err := svc.Summary(context.Background(), &shared.Principal{UserID: 10, Role: shared.RoleSeller})
	require.NoError(t, err)
	require.NotNil(t, out.LowStockProducts)
	assert.Equal(t, 1, *out.LowStockProducts)
	assert.InDelta(t, 50.0, store.threshold, 1e-9)
	assert.Nil(t, out.UsersByRole)
}

func TestSalesSummaryScopesToAssignee(t *testing.T) {
	store := &countingStore{}
	svc := NewService(store, nil, 50)

	out, err := svc.Summary(context.Background(), &shared.Principal{UserID: 2, Role: shared.RoleSales})
	require.NoError(t, err)
	assert.Equal(t, []Scope{{AssignedTo: 2}}, store.queryScopes)
	assert.Equal(t, []Scope{{}}, store.orderScopes)
	require.NotNil(t, out.UnassignedPending)
	assert.Equal(t, 6, *out.UnassignedPending)
	assert.Equal(t, 1, out.QueriesByStatus["PENDING"])
	assert.Nil(t, out.Revenue)
	assert.Nil(t, out.UsersByRole)
	assert.Equal(t, int32(3), store.calls.Load())
}

// gatedStore holds OrdersByStatus until release is closed.
type gatedStore struct {
	*countingStore
	entered chan struct{}
	once    sync.Once
	release chan struct{}
}

func (g *gatedStore) OrdersByStatus(ctx context.Context, scope Scope) (Counts, error) {
	g.once.Do(func() { close(g.entered) })
	select {
	case <-g.release:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	return g.countingStore.OrdersByStatus(ctx, scope)
}

func TestSharedBuildSurvivesFirstCallerLeaving(t *testing.T) {
	store := &gatedStore{countingStore: &countingStore{}, entered: make(chan struct{}), release: make(chan struct{})}
	svc := NewService(store, newCache(t), 50)
	buyer := &shared.Principal{UserID: 20, Role: shared.RoleBuyer}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := svc.Summary(ctx, buyer)
		done <- err
	}()
	<-store.entered
	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)

	close(store.release)
	out, err := svc.Summary(context.Background(), buyer)
	require.NoError(t, err)
	require.NotNil(t, out.TotalSpend)
	assert.Equal(t, int32(3), store.calls.Load(), "the first build completed and was reused")
}

func TestSummaryIsCachedUntilBumped(t *testing.T) {
	store := &countingStore{}
	svc := NewService(store, newCache(t), 50)
	ctx := context.Background()
	buyer := &shared.Principal{UserID: 20, Role: shared.RoleBuyer}

	first, err := svc.Summary(ctx, buyer)
	require.NoError(t, err)
	require.Equal(t, int32(3), store.calls.Load())

	second, err := svc.Summary(ctx, buyer)
	require.NoError(t, err)
	assert.Equal(t, int32(3), store.calls.Load(), "served from cache")
	require.NotNil(t, second.TotalSpend)
	assert.InDelta(t, *first.TotalSpend, *second.TotalSpend, 1e-9)

	require.NoError(t, svc.Invalidate(ctx))
	_, err = svc.Summary(ctx, buyer)
	require.NoError(t, err)
	assert.Equal(t, int32(6), store.calls.Load())
}

func TestSummaryRequiresPrincipal(t *testing.T) {
	svc := NewService(&countingStore{}, nil, 50)
	_, err := svc.Summary(context.Background(), nil)
	assert.ErrorIs(t, err, shared.ErrUnauthorized)
}
