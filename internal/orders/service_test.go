package orders

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/agrotrade/agrotrade/internal/shared"
)

type memoryRepo struct {
	products  map[int64]ProductSnapshot
	orders    map[int64]Order
	nextID    int64
	seq       int64
	sticky    bool
	lastScope ListFilter
}

type memoryTx struct {
	repo *memoryRepo
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{
		products: map[int64]ProductSnapshot{
			1: {ID: 1, SellerID: 10, PricePerKg: 7.25, Currency: "USD", StockKg: 100, MinOrderKg: 10, IsActive: true},
			2: {ID: 2, SellerID: 10, PricePerKg: 3, Currency: "USD", StockKg: 100, MinOrderKg: 1, IsActive: false},
		},
		orders: make(map[int64]Order),
	}
}

func (r *memoryRepo) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	products := make(map[int64]ProductSnapshot, len(r.products))
	for k, v := range r.products {
		products[k] = v
	}
	orders := make(map[int64]Order, len(r.orders))
	for k, v := range r.orders {
		orders[k] = v
	}
	if err := fn(ctx, &memoryTx{repo: r}); err != nil {
		r.products, r.orders = products, orders
		return err
	}
	return nil
}

func (r *memoryRepo) List(_ context.Context, filter ListFilter) ([]Order, int, error) {
	r.lastScope = filter
	var out []Order
	for _, o := range r.orders {
		if filter.BuyerID != nil && o.BuyerID != *filter.BuyerID {
			continue
		}
		if filter.SellerID != nil && o.SellerID != *filter.SellerID {
			continue
		}
		out = append(out, o)
	}
	return out, len(out), nil
}

func (r *memoryRepo) Get(_ context.Context, id int64) (Order, error) {
	o, ok := r.orders[id]
	if !ok {
		return Order{}, shared.ErrNotFound
	}
	return o, nil
}

func (r *memoryRepo) Delete(_ context.Context, id int64) (int64, error) {
	if _, ok := r.orders[id]; !ok {
		return 0, nil
	}
	if !r.sticky {
		delete(r.orders, id)
	}
	return 1, nil
}

func (r *memoryRepo) Exists(_ context.Context, id int64) (bool, error) {
	_, ok := r.orders[id]
	return ok, nil
}

func (tx *memoryTx) LockProduct(_ context.Context, id int64) (ProductSnapshot, error) {
	p, ok := tx.repo.products[id]
	if !ok {
		return ProductSnapshot{}, shared.ErrNotFound
	}
	return p, nil
}

func (tx *memoryTx) AdjustStock(_ context.Context, id int64, delta float64) error {
	p := tx.repo.products[id]
	if p.StockKg+delta < 0 {
		return shared.ErrValidation
	}
	p.StockKg += delta
	tx.repo.products[id] = p
	return nil
}

func (tx *memoryTx) NextOrderNumber(_ context.Context, day time.Time) (string, error) {
	tx.repo.seq++
	return FormatOrderNumber(day, tx.repo.seq), nil
}

func (tx *memoryTx) Insert(_ context.Context, o Order) (int64, error) {
	tx.repo.nextID++
	o.ID = tx.repo.nextID
	tx.repo.orders[o.ID] = o
	return o.ID, nil
}

func (tx *memoryTx) GetForUpdate(_ context.Context, id int64) (Order, error) {
	o, ok := tx.repo.orders[id]
	if !ok {
		return Order{}, shared.ErrNotFound
	}
	return o, nil
}

func (tx *memoryTx) SetStatus(_ context.Context, id int64, status Status) error {
	o := tx.repo.orders[id]
	o.Status = status
	tx.repo.orders[id] = o
	return nil
}

type memoryIdem struct {
	keys map[string]bool
}

func (m *memoryIdem) Claim(_ context.Context, scope, key string) error {
	if m.keys[scope+"/"+key] {
		return shared.ErrIdempotencyConflict
	}
	m.keys[scope+"/"+key] = true
	return nil
}

func (m *memoryIdem) Release(_ context.Context, scope, key string) error {
	delete(m.keys, scope+"/"+key)
	return nil
}

var (
	admin  = &shared.Principal{UserID: 1, Role: shared.RoleAdmin}
	sales  = &shared.Principal{UserID: 2, Role: shared.RoleSales}
	seller = &shared.Principal{UserID: 10, Role: shared.RoleSeller}
	buyer  = &shared.Principal{UserID: 20, Role: shared.RoleBuyer}
	other  = &shared.Principal{UserID: 21, Role: shared.RoleBuyer}
)

type OrderServiceSuite struct {
	suite.Suite
	repo *memoryRepo
	idem *memoryIdem
	svc  *Service
	ctx  context.Context
}

func (s *OrderServiceSuite) SetupTest() {
	s.repo = newMemoryRepo()
	s.idem = &memoryIdem{keys: map[string]bool{}}
	s.svc = NewService(s.repo, s.idem, nil, nil, nil)
	s.svc.now = func() time.Time { return time.Date(2024, 3, 9, 12, 0, 0, 0, time.UTC) }
	s.ctx = context.Background()
}

func (s *OrderServiceSuite) place(qty float64) Order {
	o, err := s.svc.Place(s.ctx, buyer, PlaceInput{ProductID: 1, QuantityKg: qty, ShippingAddress: "Dock 4, Kochi"}, "")
	s.Require().NoError(err)
	return o
}

func (s *OrderServiceSuite) TestPlaceReservesStockAndPrices() {
	o := s.place(12.5)
	s.Equal(StatusPending, o.Status)
	s.Equal("ORD-20240309-000001", o.OrderNumber)
	s.Equal(int64(10), o.SellerID)
	s.InDelta(90.63, o.TotalAmount, 1e-9)
	s.InDelta(87.5, s.repo.products[1].StockKg, 1e-9)
}

func (s *OrderServiceSuite) TestPlaceRoundsQuantityToTheGram() {
	o := s.place(10.0006)
	s.InDelta(10.001, o.QuantityKg, 1e-9)
	s.InDelta(72.51, o.TotalAmount, 1e-9)
	s.InDelta(10.001, s.repo.orders[o.ID].QuantityKg, 1e-9)
	s.InDelta(89.999, s.repo.products[1].StockKg, 1e-9)
}

func (s *OrderServiceSuite) TestPlaceRejectsSubGramQuantity() {
	p := s.repo.products[1]
	p.MinOrderKg = 0
	s.repo.products[1] = p

	_, err := s.svc.Place(s.ctx, buyer, PlaceInput{ProductID: 1, QuantityKg: 0.0004, ShippingAddress: "x"}, "")
	s.ErrorIs(err, shared.ErrValidation)
	s.Empty(s.repo.orders)
	s.InDelta(100.0, s.repo.products[1].StockKg, 1e-9)
}

func (s *OrderServiceSuite) TestPlaceValidation() {
	cases := map[string]PlaceInput{
		"below minimum": {ProductID: 1, QuantityKg: 5, ShippingAddress: "x"},
		"above stock":   {ProductID: 1, QuantityKg: 500, ShippingAddress: "x"},
		"inactive":      {ProductID: 2, QuantityKg: 5, ShippingAddress: "x"},
		"missing":       {ProductID: 99, QuantityKg: 5, ShippingAddress: "x"},
		"no address":    {ProductID: 1, QuantityKg: 20, ShippingAddress: " "},
		"zero quantity": {ProductID: 1, QuantityKg: 0, ShippingAddress: "x"},
	}
	for name, in := range cases {
		_, err := s.svc.Place(s.ctx, buyer, in, "")
		s.ErrorIs(err, shared.ErrValidation, name)
	}
	s.InDelta(100.0, s.repo.products[1].StockKg, 1e-9)
	s.Empty(s.repo.orders)

	_, err := s.svc.Place(s.ctx, seller, PlaceInput{ProductID: 1, QuantityKg: 20, ShippingAddress: "x"}, "")
	s.ErrorIs(err, shared.ErrForbidden)
}

func (s *OrderServiceSuite) TestPlaceIdempotencyKey() {
	in := PlaceInput{ProductID: 1, QuantityKg: 10, ShippingAddress: "x"}
	_, err := s.svc.Place(s.ctx, buyer, in, "req-1")
	s.Require().NoError(err)
	_, err = s.svc.Place(s.ctx, buyer, in, "req-1")
	s.ErrorIs(err, shared.ErrIdempotencyConflict)
	s.Len(s.repo.orders, 1)

	_, err = s.svc.Place(s.ctx, buyer, PlaceInput{ProductID: 1, QuantityKg: 1, ShippingAddress: "x"}, "req-2")
	s.ErrorIs(err, shared.ErrValidation)
	s.False(s.idem.keys["orders.place:20/req-2"], "failed placement releases its key")

	_, err = s.svc.Place(s.ctx, other, in, "req-1")
	s.NoError(err, "keys are scoped per buyer")
}

func (s *OrderServiceSuite) TestStatusLifecycle() {
	o := s.place(20)
	_, err := s.svc.UpdateStatus(s.ctx, seller, o.ID, "SHIPPED")
	s.ErrorIs(err, shared.ErrInvalidStatus)

	for _, next := range []string{"processing", "SHIPPED", "DELIVERED"} {
		o, err = s.svc.UpdateStatus(s.ctx, seller, o.ID, next)
		s.Require().NoError(err)
	}
	s.Equal(StatusDelivered, o.Status)

	_, err = s.svc.UpdateStatus(s.ctx, admin, o.ID, "CANCELLED")
	s.ErrorIs(err, shared.ErrInvalidStatus)
}

func (s *OrderServiceSuite) TestBuyerCancelRestoresStock() {
	o := s.place(30)
	s.InDelta(70.0, s.repo.products[1].StockKg, 1e-9)

	_, err := s.svc.UpdateStatus(s.ctx, buyer, o.ID, "PROCESSING")
	s.ErrorIs(err, shared.ErrForbidden)
	_, err = s.svc.UpdateStatus(s.ctx, other, o.ID, "CANCELLED")
	s.ErrorIs(err, shared.ErrNotFound)

	o, err = s.svc.UpdateStatus(s.ctx, buyer, o.ID, "CANCELLED")
	s.Require().NoError(err)
	s.Equal(StatusCancelled, o.Status)
	s.InDelta(100.0, s.repo.products[1].StockKg, 1e-9)
}

func (s *OrderServiceSuite) TestBuyerCannotCancelProcessing() {
	o := s.place(30)
	_, err := s.svc.UpdateStatus(s.ctx, sales, o.ID, "PROCESSING")
	s.Require().NoError(err)
	_, err = s.svc.UpdateStatus(s.ctx, buyer, o.ID, "CANCELLED")
	s.ErrorIs(err, shared.ErrForbidden)
}

func (s *OrderServiceSuite) TestListScoping() {
	s.place(10)
	_, _, err := s.svc.List(s.ctx, buyer, ListFilter{})
	s.Require().NoError(err)
	s.Require().NotNil(s.repo.lastScope.BuyerID)
	s.Equal(buyer.UserID, *s.repo.lastScope.BuyerID)

	_, _, err = s.svc.List(s.ctx, seller, ListFilter{})
	s.Require().NoError(err)
	s.Require().NotNil(s.repo.lastScope.SellerID)

	rows, _, err := s.svc.List(s.ctx, sales, ListFilter{})
	s.Require().NoError(err)
	s.Nil(s.repo.lastScope.BuyerID)
	s.Len(rows, 1)

	_, _, err = s.svc.List(s.ctx, admin, ListFilter{Status: "LOST"})
	s.ErrorIs(err, shared.ErrValidation)
}

func (s *OrderServiceSuite) TestDelete() {
	o := s.place(10)
	s.ErrorIs(s.svc.Delete(s.ctx, sales, o.ID), shared.ErrForbidden)
	s.Require().NoError(s.svc.Delete(s.ctx, admin, o.ID))
	s.ErrorIs(s.svc.Delete(s.ctx, admin, o.ID), shared.ErrNotFound)
}

func (s *OrderServiceSuite) TestDeleteReportsRowStillPresent() {
	o := s.place(10)
	s.repo.sticky = true
	err := s.svc.Delete(s.ctx, admin, o.ID)
	s.True(errors.Is(err, shared.ErrConflict))
}

func TestOrderServiceSuite(t *testing.T) {
	suite.Run(t, new(OrderServiceSuite))
}
