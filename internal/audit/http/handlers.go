// Package audithttp serves the audit trail over HTTP.
package audithttp

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gocarina/gocsv"
	"github.com/spf13/cast"

	"github.com/agrotrade/agrotrade/internal/audit"
	"github.com/agrotrade/agrotrade/internal/platform/httpx"
	"github.com/agrotrade/agrotrade/internal/rbac"
)

const (
	defaultDateRange = 7 * 24 * time.Hour
	maxDateRange     = 90 * 24 * time.Hour
	dateLayout       = "2006-01-02"
)

// TimelineService is the business contract for timeline data.
type TimelineService interface {
	Timeline(ctx context.Context, filters audit.TimelineFilters) (audit.Result, error)
	Export(ctx context.Context, filters audit.TimelineFilters) ([]audit.CSVRow, error)
}

// Handler serves the audit trail.
type Handler struct {
	logger  *slog.Logger
	service TimelineService
	rbac    rbac.Middleware
	now     func() time.Time
}

// NewHandler builds the audit handler.
func NewHandler(logger *slog.Logger, service TimelineService, rbac rbac.Middleware) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, service: service, rbac: rbac, now: time.Now}
}

func (h *Handler) handleTimeline(w http.ResponseWriter, r *http.Request) {
	filters, field := h.parseFilters(r)
	if field != "" {
		httpx.ValidationProblem(w, map[string]string{field: "invalid"})
		return
	}
	result, err := h.service.Timeline(r.Context(), filters)
	if err != nil {
		h.fail(w, "load audit timeline", err)
		return
	}
	httpx.JSON(w, http.StatusOK, result)
}

func (h *Handler) handleExport(w http.ResponseWriter, r *http.Request) {
	filters, field := h.parseFilters(r)
	if field != "" {
		httpx.ValidationProblem(w, map[string]string{field: "invalid"})
		return
	}
	rows, err := h.service.Export(r.Context(), filters)
	if err != nil {
		h.fail(w, "export audit timeline", err)
		return
	}
	if rows == nil {
		rows = []audit.CSVRow{}
	}
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="audit-trail-`+h.now().UTC().Format("20060102")+`.csv"`)
	if err := gocsv.Marshal(rows, w); err != nil {
		h.logger.Warn("write audit csv", slog.Any("error", err))
	}
}

// parseFilters returns the name of the first invalid parameter, if any.
func (h *Handler) parseFilters(r *http.Request) (audit.TimelineFilters, string) {
	q := r.URL.Query()
	to := h.now().UTC().Truncate(24 * time.Hour)
	if raw := strings.TrimSpace(q.Get("to")); raw != "" {
		parsed, err := time.Parse(dateLayout, raw)
		if err != nil {
			return audit.TimelineFilters{}, "to"
		}
		to = parsed
	}
	from := to.Add(-defaultDateRange)
	if raw := strings.TrimSpace(q.Get("from")); raw != "" {
		parsed, err := time.Parse(dateLayout, raw)
		if err != nil {
			return audit.TimelineFilters{}, "from"
		}
		from = parsed
	}
	if from.After(to) || to.Sub(from) > maxDateRange {
		return audit.TimelineFilters{}, "range"
	}

	filters := audit.TimelineFilters{
		From:     from,
		To:       to,
		Entity:   q.Get("entity"),
		EntityID: q.Get("entity_id"),
		Action:   q.Get("action"),
		Page:     1,
	}
	if raw := strings.TrimSpace(q.Get("actor_id")); raw != "" {
		id, err := cast.ToInt64E(raw)
		if err != nil || id <= 0 {
			return audit.TimelineFilters{}, "actor_id"
		}
		filters.ActorID = &id
	}
	if raw := strings.TrimSpace(q.Get("page")); raw != "" {
		page, err := cast.ToIntE(raw)
		if err != nil || page <= 0 {
			return audit.TimelineFilters{}, "page"
		}
		filters.Page = page
	}
	if raw := strings.TrimSpace(q.Get("page_size")); raw != "" {
		size, err := cast.ToIntE(raw)
		if err != nil || size <= 0 {
			return audit.TimelineFilters{}, "page_size"
		}
		filters.PageSize = size
	}
	return filters, ""
}

func (h *Handler) fail(w http.ResponseWriter, msg string, err error) {
	if !errors.Is(err, context.Canceled) {
		h.logger.Error(msg, slog.Any("error", err))
	}
	httpx.RespondError(w, err)
}
