package users

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/agrotrade/agrotrade/internal/platform/httpx"
	"github.com/agrotrade/agrotrade/internal/rbac"
	"github.com/agrotrade/agrotrade/internal/shared"
)

// Handler manages user management endpoints.
type Handler struct {
	logger  *slog.Logger
	service *Service
	rbac    rbac.Middleware
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service, rbac rbac.Middleware) *Handler {
	return &Handler{logger: logger, service: service, rbac: rbac}
}

// MountRoutes registers user routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/{id}", h.get)
	r.Patch("/{id}", h.updateProfile)
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny(shared.PermUsersView))
		r.Get("/", h.list)
		r.Get("/employees", h.employees)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny(shared.PermUsersManage))
		r.Post("/", h.createStaff)
		r.Put("/{id}/active", h.setActive)
		r.Put("/{id}/role", h.changeRole)
	})
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	q := httpx.NewQueryReader(r)
	page, limit := q.Page()
	filter := ListFilter{
		Role:     strings.ToLower(q.String("role")),
		IsActive: q.Bool("is_active"),
		Search:   q.String("search"),
		Sort:     q.String("sort"),
		Dir:      q.String("dir"),
		Page:     page,
		Limit:    limit,
	}
	if err := q.Err(); err != nil {
		httpx.RespondError(w, err)
		return
	}
	rows, pagination, err := h.service.List(r.Context(), filter)
	if err != nil {
		h.fail(w, "list users failed", err)
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
	user, err := h.service.Get(r.Context(), shared.PrincipalFromContext(r.Context()), id)
	if err != nil {
		h.fail(w, "get user failed", err)
		return
	}
	httpx.JSON(w, http.StatusOK, user)
}

func (h *Handler) updateProfile(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.PathID(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	var in ProfileInput
	if err := httpx.Bind(r, &in); err != nil {
		httpx.RespondError(w, err)
		return
	}
	user, err := h.service.UpdateProfile(r.Context(), shared.PrincipalFromContext(r.Context()), id, in)
	if err != nil {
		h.fail(w, "update profile failed", err)
		return
	}
	httpx.JSON(w, http.StatusOK, user)
}

func (h *Handler) createStaff(w http.ResponseWriter, r *http.Request) {
	var in StaffInput
	if err := httpx.Bind(r, &in); err != nil {
		httpx.RespondError(w, err)
		return
	}
	user, err := h.service.CreateStaff(r.Context(), shared.PrincipalFromContext(r.Context()), in)
	if err != nil {
		h.fail(w, "create staff failed", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, user)
}

func (h *Handler) setActive(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.PathID(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	var in ActiveInput
	if err := httpx.Bind(r, &in); err != nil {
		httpx.RespondError(w, err)
		return
	}
	if err := h.service.SetActive(r.Context(), shared.PrincipalFromContext(r.Context()), id, *in.IsActive); err != nil {
		h.fail(w, "set active failed", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) changeRole(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.PathID(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	var in RoleInput
	if err := httpx.Bind(r, &in); err != nil {
		httpx.RespondError(w, err)
		return
	}
	if err := h.service.ChangeRole(r.Context(), shared.PrincipalFromContext(r.Context()), id, in.Role); err != nil {
		h.fail(w, "change role failed", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) employees(w http.ResponseWriter, r *http.Request) {
	rows, err := h.service.ListEmployees(r.Context())
	if err != nil {
		h.fail(w, "list employees failed", err)
		return
	}
	if rows == nil {
		rows = []Employee{}
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"data": rows})
}

func (h *Handler) fail(w http.ResponseWriter, msg string, err error) {
	h.logger.Error(msg, slog.Any("error", err))
	httpx.RespondError(w, err)
}
