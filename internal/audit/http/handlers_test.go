package audithttp

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agrotrade/agrotrade/internal/audit"
	"github.com/agrotrade/agrotrade/internal/rbac"
	"github.com/agrotrade/agrotrade/internal/shared"
)

type stubService struct {
	last audit.TimelineFilters
	err  error
}

func (s *stubService) Timeline(_ context.Context, f audit.TimelineFilters) (audit.Result, error) {
	s.last = f
	if s.err != nil {
		return audit.Result{}, s.err
	}
	return audit.Result{Rows: []audit.Entry{{ID: 1, Action: "delete", Entity: "products", EntityID: "9"}}, Paging: audit.PagingInfo{Page: f.Page}}, nil
}

func (s *stubService) Export(_ context.Context, f audit.TimelineFilters) ([]audit.CSVRow, error) {
	s.last = f
	return []audit.CSVRow{{At: "2026-03-10T10:00:00Z", ActorEmail: "admin@agrotrade.test", Action: "delete", Entity: "products", EntityID: "9"}}, s.err
}

func newRouter(svc *stubService) http.Handler {
	h := NewHandler(slog.New(slog.NewTextHandler(io.Discard, nil)), svc, rbac.Middleware{Service: rbac.NewService()})
	h.now = func() time.Time { return time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC) }
	r := chi.NewRouter()
	r.Route("/audit", h.MountRoutes)
	return r
}

func get(h http.Handler, role shared.Role, path string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	req = req.WithContext(shared.ContextWithPrincipal(req.Context(), &shared.Principal{UserID: 1, Role: role}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestTimelineDefaultsToLastWeek(t *testing.T) {
	svc := &stubService{}
	rec := get(newRouter(svc), shared.RoleAdmin, "/audit/?entity=products&actor_id=3")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC), svc.last.To)
	assert.Equal(t, time.Date(2026, 3, 8, 0, 0, 0, 0, time.UTC), svc.last.From)
	assert.Equal(t, "products", svc.last.Entity)
	require.NotNil(t, svc.last.ActorID)
	assert.Equal(t, int64(3), *svc.last.ActorID)
	assert.Equal(t, 1, svc.last.Page)
	assert.Contains(t, rec.Body.String(), `"action":"delete"`)
}

func TestTimelineRejectsBadFilters(t *testing.T) {
	router := newRouter(&stubService{})
	for _, path := range []string{
		"/audit/?from=yesterday",
		"/audit/?from=2026-03-10&to=2026-03-01",
		"/audit/?from=2025-01-01&to=2026-03-01",
		"/audit/?page=0",
		"/audit/?actor_id=abc",
	} {
		rec := get(router, shared.RoleAdmin, path)
		assert.Equal(t, http.StatusBadRequest, rec.Code, path)
	}
}

func TestTimelineIsAdminOnly(t *testing.T) {
	router := newRouter(&stubService{})
	assert.Equal(t, http.StatusForbidden, get(router, shared.RoleSales, "/audit/").Code)
	assert.Equal(t, http.StatusForbidden, get(router, shared.RoleBuyer, "/audit/export.csv").Code)
}

func TestExportWritesCSV(t *testing.T) {
	rec := get(newRouter(&stubService{}), shared.RoleAdmin, "/audit/export.csv?from=2026-03-01&to=2026-03-15")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/csv; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "audit-trail-20260315.csv")
	lines := strings.Split(strings.TrimSpace(rec.Body.String()), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "at,actor,action,entity,entity_id,meta", lines[0])
}

func TestTimelineServiceError(t *testing.T) {
	rec := get(newRouter(&stubService{err: errors.New("db down")}), shared.RoleAdmin, "/audit/")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}
