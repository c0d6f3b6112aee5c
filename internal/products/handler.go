package products

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/agrotrade/agrotrade/internal/platform/httpx"
	"github.com/agrotrade/agrotrade/internal/rbac"
	"github.com/agrotrade/agrotrade/internal/shared"
)

const multipartOverhead = 1 << 20

// Handler exposes catalogue endpoints.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	rbac      rbac.Middleware
	maxUpload int64
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service, rbac rbac.Middleware, maxUpload int64) *Handler {
	return &Handler{logger: logger, service: service, rbac: rbac, maxUpload: maxUpload}
}

// MountRoutes registers product routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny(shared.PermProductsView))
		r.Get("/", h.list)
		r.Get("/grades", h.grades)
		r.Get("/{id}", h.get)
		r.Get("/{id}/price-history", h.priceHistory)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny(shared.PermProductsManageOwn, shared.PermProductsManageAll))
		r.Post("/", h.create)
		r.Patch("/{id}", h.update)
		r.Delete("/{id}", h.delete)
		r.Post("/{id}/images", h.addImage)
		r.Delete("/{id}/images", h.removeImage)
	})
}

// FilterFromRequest reads catalogue filters from query parameters.
func FilterFromRequest(r *http.Request) (ListFilter, error) {
	q := httpx.NewQueryReader(r)
	page, limit := q.Page()
	filter := ListFilter{
		Category: strings.ToUpper(q.String("category")),
		Grade:    strings.ToUpper(q.String("grade")),
		SellerID: q.Int64("seller_id"),
		Location: q.String("location"),
		Search:   q.String("search"),
		MinPrice: q.Float("min_price"),
		MaxPrice: q.Float("max_price"),
		InStock:  q.Bool("in_stock"),
		IsActive: q.Bool("is_active"),
		Sort:     q.String("sort"),
		Dir:      q.String("dir"),
		Page:     page,
		Limit:    limit,
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
		h.fail(w, "list products failed", err)
		return
	}
	httpx.List(w, rows, pagination)
}

func (h *Handler) grades(w http.ResponseWriter, r *http.Request) {
	grades, err := h.service.Grades(r.Context(), r.URL.Query().Get("category"))
	if err != nil {
		h.fail(w, "list grades failed", err)
		return
	}
	if grades == nil {
		grades = []string{}
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"data": grades})
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.PathID(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	prod, err := h.service.Get(r.Context(), shared.PrincipalFromContext(r.Context()), id)
	if err != nil {
		h.fail(w, "get product failed", err)
		return
	}
	httpx.JSON(w, http.StatusOK, prod)
}

func (h *Handler) priceHistory(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.PathID(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	points, err := h.service.PriceHistory(r.Context(), shared.PrincipalFromContext(r.Context()), id)
	if err != nil {
		h.fail(w, "price history failed", err)
		return
	}
	if points == nil {
		points = []PricePoint{}
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"data": points})
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var in CreateInput
	if err := httpx.Bind(r, &in); err != nil {
		httpx.RespondError(w, err)
		return
	}
	prod, err := h.service.Create(r.Context(), shared.PrincipalFromContext(r.Context()), in)
	if err != nil {
		h.fail(w, "create product failed", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, prod)
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.PathID(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	var in UpdateInput
	if err := httpx.Bind(r, &in); err != nil {
		httpx.RespondError(w, err)
		return
	}
	prod, err := h.service.Update(r.Context(), shared.PrincipalFromContext(r.Context()), id, in)
	if err != nil {
		h.fail(w, "update product failed", err)
		return
	}
	httpx.JSON(w, http.StatusOK, prod)
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.PathID(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	if err := h.service.Delete(r.Context(), shared.PrincipalFromContext(r.Context()), id); err != nil {
		h.fail(w, "delete product failed", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) addImage(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.PathID(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUpload+multipartOverhead)
	file, _, err := r.FormFile("file")
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "multipart field \"file\" is required")
		return
	}
	defer func() {
		_ = file.Close()
	}()
	img, err := h.service.AddImage(r.Context(), shared.PrincipalFromContext(r.Context()), id, file)
	if err != nil {
		h.fail(w, "upload product image failed", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, img)
}

func (h *Handler) removeImage(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.PathID(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	key := r.URL.Query().Get("key")
	if key == "" {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "query parameter key is required")
		return
	}
	if err := h.service.RemoveImage(r.Context(), shared.PrincipalFromContext(r.Context()), id, key); err != nil {
		h.fail(w, "remove product image failed", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) fail(w http.ResponseWriter, msg string, err error) {
	h.logger.Error(msg, slog.Any("error", err))
	httpx.RespondError(w, err)
}
