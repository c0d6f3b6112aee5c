package report

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/agrotrade/agrotrade/internal/platform/httpx"
)

// Pinger is satisfied by Client.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Handler exposes the renderer health check to operators.
type Handler struct {
	renderer Pinger
	logger   *slog.Logger
}

// NewHandler creates a report handler.
func NewHandler(renderer Pinger, logger *slog.Logger) *Handler {
	return &Handler{renderer: renderer, logger: logger}
}

// MountRoutes registers GET /pdf/health.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/pdf/health", h.health)
}

func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	started := time.Now()
	if err := h.renderer.Ping(r.Context()); err != nil {
		h.logger.Warn("pdf renderer unreachable", slog.Any("error", err))
		httpx.Problem(w, http.StatusServiceUnavailable, "Service Unavailable", "pdf renderer unreachable")
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"status":     "ok",
		"latency_ms": time.Since(started).Milliseconds(),
	})
}
