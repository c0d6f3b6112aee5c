package audithttp

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httprate"

	"github.com/agrotrade/agrotrade/internal/platform/httpx"
	"github.com/agrotrade/agrotrade/internal/shared"
)

// CSV exports scan up to maxDateRange of rows, so each caller is held to
// a handful per minute.
const exportsPerMinute = 10

// MountRoutes registers the audit timeline and its CSV export.
func (h *Handler) MountRoutes(r chi.Router) {
	if h == nil {
		return
	}
	guarded := r.With(h.rbac.RequireAny(shared.PermAuditView))
	guarded.Get("/", h.handleTimeline)
	guarded.With(exportThrottle()).Get("/export.csv", h.handleExport)
}

func exportThrottle() func(http.Handler) http.Handler {
	return httprate.Limit(exportsPerMinute, time.Minute,
		httprate.WithKeyFuncs(callerKey),
		httprate.WithLimitHandler(func(w http.ResponseWriter, _ *http.Request) {
			httpx.Problem(w, http.StatusTooManyRequests, "Too Many Requests", "export rate limit exceeded")
		}),
	)
}

// callerKey buckets signed-in callers by user id and anonymous ones by IP.
func callerKey(r *http.Request) (string, error) {
	if p := shared.PrincipalFromContext(r.Context()); p != nil {
		return "user:" + strconv.FormatInt(p.UserID, 10), nil
	}
	ip, err := httprate.KeyByIP(r)
	if err != nil {
		return "", err
	}
	return "ip:" + ip, nil
}
