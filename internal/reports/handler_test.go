package reports

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agrotrade/agrotrade/internal/orders"
	"github.com/agrotrade/agrotrade/internal/products"
	"github.com/agrotrade/agrotrade/internal/queries"
	"github.com/agrotrade/agrotrade/internal/rbac"
	"github.com/agrotrade/agrotrade/internal/shared"
)

type stubOrders struct {
	lastFilter orders.ListFilter
}

func (s *stubOrders) Export(_ context.Context, f orders.ListFilter) ([]orders.Order, error) {
	s.lastFilter = f
	return sampleOrders(), nil
}

func (s *stubOrders) Get(_ context.Context, p *shared.Principal, id int64) (orders.Order, error) {
	if id != 1 {
		return orders.Order{}, shared.ErrNotFound
	}
	return sampleOrders()[0], nil
}

type stubProducts struct{}

func (stubProducts) Export(context.Context, products.ListFilter) ([]products.Product, error) {
	return []products.Product{{SKU: "SPICE-PEPPER-1", Name: "Black Pepper", Category: products.CategorySpice, IsActive: true}}, nil
}

type stubQueries struct{}

func (stubQueries) Export(context.Context, queries.ListFilter) ([]queries.Query, error) {
	return nil, nil
}

type stubPDF struct {
	html string
	err  error
}

func (s *stubPDF) RenderHTML(_ context.Context, html string) ([]byte, error) {
	s.html = html
	if s.err != nil {
		return nil, s.err
	}
	return []byte("%PDF-1.7"), nil
}

func newRouter(o *stubOrders, pdf *stubPDF) http.Handler {
	h := NewHandler(slog.New(slog.NewTextHandler(io.Discard, nil)), o, stubProducts{}, stubQueries{}, pdf, rbac.Middleware{Service: rbac.NewService()})
	r := chi.NewRouter()
	r.Route("/reports", h.MountRoutes)
	r.Route("/orders", h.MountOrderRoutes)
	return r
}

func do(h http.Handler, p *shared.Principal, path string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	req = req.WithContext(shared.ContextWithPrincipal(req.Context(), p))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

var (
	admin = &shared.Principal{UserID: 1, Role: shared.RoleAdmin}
	buyer = &shared.Principal{UserID: 9, Role: shared.RoleBuyer}
)

func TestExportOrdersCSVPassesFilters(t *testing.T) {
	o := &stubOrders{}
	rec := do(newRouter(o, &stubPDF{}), admin, "/reports/orders.csv?status=pending&seller_id=4")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, contentTypeCSV, rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "orders-")
	assert.Contains(t, rec.Body.String(), "ORD-20240309-000001")
	assert.Equal(t, "PENDING", o.lastFilter.Status)
	require.NotNil(t, o.lastFilter.SellerID)
	assert.Equal(t, int64(4), *o.lastFilter.SellerID)
}

func TestExportRejectsMalformedFilters(t *testing.T) {
	o := &stubOrders{}
	h := newRouter(o, &stubPDF{})

	rec := do(h, admin, "/reports/orders.csv?date_from=2026-13-01")
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), `"date_from":"date"`)
	assert.Equal(t, orders.ListFilter{}, o.lastFilter, "export must not run")

	rec = do(h, admin, "/reports/products.csv?min_price=cheap")
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), `"min_price":"number"`)
}

func TestExportProductsXLSX(t *testing.T) {
	rec := do(newRouter(&stubOrders{}, &stubPDF{}), admin, "/reports/products.xlsx")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, contentTypeXLSX, rec.Header().Get("Content-Type"))
	assert.NotZero(t, rec.Body.Len())
}

func TestExportUnknownDataset(t *testing.T) {
	h := newRouter(&stubOrders{}, &stubPDF{})
	assert.Equal(t, http.StatusNotFound, do(h, admin, "/reports/payments.csv").Code)
	assert.Equal(t, http.StatusNotFound, do(h, admin, "/reports/orders.pdf").Code)
}

func TestExportRequiresPermission(t *testing.T) {
	rec := do(newRouter(&stubOrders{}, &stubPDF{}), buyer, "/reports/orders.csv")
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestOrderPDF(t *testing.T) {
	pdf := &stubPDF{}
	rec := do(newRouter(&stubOrders{}, pdf), buyer, "/orders/1/pdf")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/pdf", rec.Header().Get("Content-Type"))
	assert.Equal(t, "%PDF-1.7", rec.Body.String())
	assert.Contains(t, pdf.html, "Order Confirmation")
}

func TestOrderPDFRendererDown(t *testing.T) {
	rec := do(newRouter(&stubOrders{}, &stubPDF{err: errors.New("connection refused")}), buyer, "/orders/1/pdf")
	assert.Equal(t, http.StatusBadGateway, rec.Code)
}

func TestOrderPDFMissingOrder(t *testing.T) {
	rec := do(newRouter(&stubOrders{}, &stubPDF{}), buyer, "/orders/2/pdf")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
