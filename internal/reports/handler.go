package reports

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/agrotrade/agrotrade/internal/orders"
	"github.com/agrotrade/agrotrade/internal/platform/httpx"
	"github.com/agrotrade/agrotrade/internal/products"
	"github.com/agrotrade/agrotrade/internal/queries"
	"github.com/agrotrade/agrotrade/internal/rbac"
	"github.com/agrotrade/agrotrade/internal/shared"
)

const (
	contentTypeCSV  = "text/csv; charset=utf-8"
	contentTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

// OrderSource provides orders for export and PDF rendering.
type OrderSource interface {
	Export(ctx context.Context, filter orders.ListFilter) ([]orders.Order, error)
	Get(ctx context.Context, p *shared.Principal, id int64) (orders.Order, error)
}

// ProductSource provides products for export.
type ProductSource interface {
	Export(ctx context.Context, filter products.ListFilter) ([]products.Product, error)
}

// QuerySource provides queries for export.
type QuerySource interface {
	Export(ctx context.Context, filter queries.ListFilter) ([]queries.Query, error)
}

// Handler serves spreadsheet exports and order PDFs.
type Handler struct {
	logger   *slog.Logger
	orders   OrderSource
	products ProductSource
	queries  QuerySource
	pdf      PDFRenderer
	rbac     rbac.Middleware
	now      func() time.Time
}

// NewHandler constructs the reports handler.
func NewHandler(logger *slog.Logger, o OrderSource, p ProductSource, q QuerySource, pdf PDFRenderer, rbac rbac.Middleware) *Handler {
	return &Handler{logger: logger, orders: o, products: p, queries: q, pdf: pdf, rbac: rbac, now: time.Now}
}

// MountRoutes registers export routes under /reports.
func (h *Handler) MountRoutes(r chi.Router) {
	r.With(h.rbac.RequireAny(shared.PermReportsExport)).Get("/{file}", h.export)
}

// MountOrderRoutes registers the PDF confirmation under /orders.
func (h *Handler) MountOrderRoutes(r chi.Router) {
	r.With(h.rbac.RequireAny(shared.PermOrdersViewOwn, shared.PermOrdersViewAll)).Get("/{id}/pdf", h.orderPDF)
}

func (h *Handler) export(w http.ResponseWriter, r *http.Request) {
	file := chi.URLParam(r, "file")
	ext := path.Ext(file)
	dataset := strings.TrimSuffix(file, ext)
	format := strings.TrimPrefix(ext, ".")
	if format != "csv" && format != "xlsx" {
		httpx.RespondError(w, shared.ErrNotFound)
		return
	}

	var buf bytes.Buffer
	var err error
	switch dataset {
	case "orders":
		var rows []orders.Order
		var filter orders.ListFilter
		if filter, err = orders.FilterFromRequest(r); err != nil {
			break
		}
		if rows, err = h.orders.Export(r.Context(), filter); err == nil {
			err = encode(&buf, format, dataset, orderRows(rows))
		}
	case "products":
		var rows []products.Product
		var filter products.ListFilter
		if filter, err = products.FilterFromRequest(r); err != nil {
			break
		}
		if rows, err = h.products.Export(r.Context(), filter); err == nil {
			err = encode(&buf, format, dataset, productRows(rows))
		}
	case "queries":
		var rows []queries.Query
		var filter queries.ListFilter
		if filter, err = queries.FilterFromRequest(r); err != nil {
			break
		}
		if rows, err = h.queries.Export(r.Context(), filter); err == nil {
			err = encode(&buf, format, dataset, queryRows(rows))
		}
	default:
		httpx.RespondError(w, shared.ErrNotFound)
		return
	}
	if err != nil {
		h.fail(w, "export failed", err, slog.String("dataset", dataset))
		return
	}

	contentType := contentTypeCSV
	if format == "xlsx" {
		contentType = contentTypeXLSX
	}
	name := fmt.Sprintf("%s-%s.%s", dataset, h.now().UTC().Format("20060102"), format)
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

func encode[T any](buf *bytes.Buffer, format, sheet string, rows []T) error {
	if format == "xlsx" {
		return WriteXLSX(buf, sheet, rows)
	}
	return WriteCSV(buf, rows)
}

func (h *Handler) orderPDF(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.PathID(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	o, err := h.orders.Get(r.Context(), shared.PrincipalFromContext(r.Context()), id)
	if err != nil {
		h.fail(w, "load order for pdf failed", err)
		return
	}
	doc, err := RenderOrderHTML(o, h.now())
	if err != nil {
		h.fail(w, "render order html failed", err)
		return
	}
	pdf, err := h.pdf.RenderHTML(r.Context(), doc)
	if err != nil {
		h.logger.Error("render order pdf failed", slog.Int64("order_id", id), slog.Any("error", err))
		httpx.Problem(w, http.StatusBadGateway, "Bad Gateway", "pdf renderer unavailable")
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("inline; filename=%q", o.OrderNumber+".pdf"))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(pdf)
}

func (h *Handler) fail(w http.ResponseWriter, msg string, err error, attrs ...any) {
	level := slog.LevelError
	if errors.Is(err, shared.ErrValidation) || errors.Is(err, shared.ErrNotFound) {
		level = slog.LevelWarn
	}
	h.logger.Log(context.Background(), level, msg, append(attrs, slog.Any("error", err))...)
	httpx.RespondError(w, err)
}
