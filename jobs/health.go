package jobs

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/hibiken/asynq"

	"github.com/agrotrade/agrotrade/internal/platform/httpx"
	"github.com/agrotrade/agrotrade/internal/shared"
)

// Triggerer enqueues maintenance tasks by name; *Client satisfies it.
type Triggerer interface {
	Trigger(ctx context.Context, name string) (*asynq.TaskInfo, error)
}

// Handler exposes queue health and manual triggers to operators.
type Handler struct {
	inspector QueueInspector
	trigger   Triggerer
	logger    *slog.Logger
}

// NewHandler constructs the jobs HTTP handler. trigger may be nil.
func NewHandler(inspector QueueInspector, trigger Triggerer, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{inspector: inspector, trigger: trigger, logger: logger}
}

// MountRoutes attaches GET /health and POST /{name}/trigger.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/health", h.health)
	r.Get("/tasks", h.tasks)
	if h.trigger != nil {
		r.Post("/{name}/trigger", h.triggerTask)
	}
}

func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	if h.inspector == nil {
		httpx.JSON(w, http.StatusOK, map[string]any{"queues": []QueueStats{}})
		return
	}
	stats, err := Snapshot(h.inspector)
	if err != nil {
		h.logger.Warn("jobs health", slog.Any("error", err))
		httpx.Problem(w, http.StatusServiceUnavailable, "Service Unavailable", "queue unreachable")
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"queues": stats})
}

func (h *Handler) tasks(w http.ResponseWriter, _ *http.Request) {
	httpx.JSON(w, http.StatusOK, map[string]any{"tasks": ManualTaskNames()})
}

func (h *Handler) triggerTask(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	info, err := h.trigger.Trigger(r.Context(), name)
	if err != nil {
		switch {
		case errors.Is(err, ErrUnknownTask):
			httpx.RespondError(w, shared.ErrNotFound)
			return
		case errors.Is(err, asynq.ErrDuplicateTask):
			httpx.Problem(w, http.StatusConflict, "Conflict", "task already queued")
			return
		}
		h.logger.Error("trigger task", slog.String("task", name), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	h.logger.Info("task triggered", slog.String("task", info.Type), slog.String("id", info.ID))
	httpx.JSON(w, http.StatusAccepted, map[string]string{"id": info.ID, "type": info.Type, "queue": info.Queue})
}
