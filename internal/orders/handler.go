package orders

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/agrotrade/agrotrade/internal/platform/httpx"
	"github.com/agrotrade/agrotrade/internal/rbac"
	"github.com/agrotrade/agrotrade/internal/shared"
)

// Handler exposes order endpoints.
type Handler struct {
	logger  *slog.Logger
	service *Service
	rbac    rbac.Middleware
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service, rbac rbac.Middleware) *Handler {
	return &Handler{logger: logger, service: service, rbac: rbac}
}

// MountRoutes registers order routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny(shared.PermOrdersViewOwn, shared.PermOrdersViewAll))
		r.Get("/", h.list)
		r.Get("/{id}", h.get)
	})
	r.With(h.rbac.RequireAny(shared.PermOrdersCreate)).Post("/", h.place)
	r.With(h.rbac.RequireAny(shared.PermOrdersUpdate)).Put("/{id}/status", h.updateStatus)
	r.With(h.rbac.RequireAny(shared.PermOrdersDelete)).Delete("/{id}", h.delete)
}

// FilterFromRequest reads order filters from query parameters.
func FilterFromRequest(r *http.Request) (ListFilter, error) {
	q := httpx.NewQueryReader(r)
	page, limit := q.Page()
	filter := ListFilter{
		Status:    strings.ToUpper(q.String("status")),
		BuyerID:   q.Int64("buyer_id"),
		SellerID:  q.Int64("seller_id"),
		ProductID: q.Int64("product_id"),
		DateFrom:  q.Date("date_from"),
		DateTo:    q.Date("date_to"),
		Sort:      q.String("sort"),
		Dir:       q.String("dir"),
		Page:      page,
		Limit:     limit,
	}
	return filter, q.Err()
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	filter, err := FilterFromRequest(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	rows, pagination, err := h.service.List(r.Context(), shared.PrincipalFromContext(r.Context()), filter)
	if err != nil {
		h.fail(w, "list orders failed", err)
		return
	}
	httpx.List(w, rows, pagination)
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.PathID(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	o, err := h.service.Get(r.Context(), shared.PrincipalFromContext(r.Context()), id)
	if err != nil {
		h.fail(w, "get order failed", err)
		return
	}
	httpx.JSON(w, http.StatusOK, o)
}

func (h *Handler) place(w http.ResponseWriter, r *http.Request) {
	var in PlaceInput
	if err := httpx.Bind(r, &in); err != nil {
		httpx.RespondError(w, err)
		return
	}
	o, err := h.service.Place(r.Context(), shared.PrincipalFromContext(r.Context()), in, r.Header.Get("Idempotency-Key"))
	if err != nil {
		h.fail(w, "place order failed", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, o)
}

func (h *Handler) updateStatus(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.PathID(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	var in StatusInput
	if err := httpx.Bind(r, &in); err != nil {
		httpx.RespondError(w, err)
		return
	}
	o, err := h.service.UpdateStatus(r.Context(), shared.PrincipalFromContext(r.Context()), id, in.Status)
	if err != nil {
		h.fail(w, "update order status failed", err)
		return
	}
	httpx.JSON(w, http.StatusOK, o)
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.PathID(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	if err := h.service.Delete(r.Context(), shared.PrincipalFromContext(r.Context()), id); err != nil {
		h.fail(w, "delete order failed", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) fail(w http.ResponseWriter, msg string, err error) {
	h.logger.Error(msg, slog.Any("error", err))
	httpx.RespondError(w, err)
}
