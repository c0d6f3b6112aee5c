package queries

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/agrotrade/agrotrade/internal/platform/httpx"
	"github.com/agrotrade/agrotrade/internal/rbac"
	"github.com/agrotrade/agrotrade/internal/shared"
)

// Handler exposes inquiry endpoints.
type Handler struct {
	logger  *slog.Logger
	service *Service
	rbac    rbac.Middleware
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service, rbac rbac.Middleware) *Handler {
	return &Handler{logger: logger, service: service, rbac: rbac}
}

// MountRoutes registers query routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny(shared.PermQueriesCreate, shared.PermQueriesViewAll))
		r.Get("/", h.list)
		r.Get("/{id}", h.get)
		r.Delete("/{id}", h.delete)
	})
	r.With(h.rbac.RequireAny(shared.PermQueriesCreate)).Post("/", h.submit)
	r.With(h.rbac.RequireAny(shared.PermQueriesAssign)).Post("/{id}/assign", h.assign)
	r.With(h.rbac.RequireAny(shared.PermQueriesUpdate)).Put("/{id}/status", h.updateStatus)
}

// FilterFromRequest reads query filters from query parameters.
func FilterFromRequest(r *http.Request) (ListFilter, error) {
	q := httpx.NewQueryReader(r)
	page, limit := q.Page()
	unassigned := q.Bool("unassigned")
	filter := ListFilter{
		Type:       strings.ToUpper(q.String("type")),
		Status:     strings.ToUpper(q.String("status")),
		UserID:     q.Int64("user_id"),
		AssignedTo: q.Int64("assigned_to"),
		Unassigned: unassigned != nil && *unassigned,
		Search:     q.String("search"),
		Sort:       q.String("sort"),
		Dir:        q.String("dir"),
		Page:       page,
		Limit:      limit,
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
		h.fail(w, "list queries failed", err)
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
	q, err := h.service.Get(r.Context(), shared.PrincipalFromContext(r.Context()), id)
	if err != nil {
		h.fail(w, "get query failed", err)
		return
	}
	httpx.JSON(w, http.StatusOK, q)
}

func (h *Handler) submit(w http.ResponseWriter, r *http.Request) {
	var in SubmitInput
	if err := httpx.Bind(r, &in); err != nil {
		httpx.RespondError(w, err)
		return
	}
	q, err := h.service.Submit(r.Context(), shared.PrincipalFromContext(r.Context()), in)
	if err != nil {
		h.fail(w, "submit query failed", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, q)
}

func (h *Handler) assign(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.PathID(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	var in AssignInput
	if err := httpx.Bind(r, &in); err != nil {
		httpx.RespondError(w, err)
		return
	}
	q, err := h.service.Assign(r.Context(), shared.PrincipalFromContext(r.Context()), id, in.EmployeeID)
	if err != nil {
		h.fail(w, "assign query failed", err)
		return
	}
	httpx.JSON(w, http.StatusOK, q)
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
	q, err := h.service.UpdateStatus(r.Context(), shared.PrincipalFromContext(r.Context()), id, in)
	if err != nil {
		h.fail(w, "update query status failed", err)
		return
	}
	httpx.JSON(w, http.StatusOK, q)
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.PathID(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	if err := h.service.Delete(r.Context(), shared.PrincipalFromContext(r.Context()), id); err != nil {
		h.fail(w, "delete query failed", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) fail(w http.ResponseWriter, msg string, err error) {
	h.logger.Error(msg, slog.Any("error", err))
	httpx.RespondError(w, err)
}
