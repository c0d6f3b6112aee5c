package auth

import (
	"log/slog"
	"net"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/agrotrade/agrotrade/internal/platform/httpx"
	"github.com/agrotrade/agrotrade/internal/shared"
)

// Handler wires auth endpoints.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler creates a new auth handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers auth routes under /auth.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/signup", h.signUp)
	r.Post("/signin", h.signIn)
	r.Post("/password/forgot", h.forgotPassword)
	r.Post("/password/reset", h.resetPassword)
	r.Get("/oauth/{provider}", h.oauthStart)
	r.Get("/oauth/{provider}/callback", h.oauthCallback)
	r.Group(func(r chi.Router) {
		r.Use(RequireAuth)
		r.Post("/signout", h.signOut)
		r.Get("/me", h.me)
	})
}

func (h *Handler) signUp(w http.ResponseWriter, r *http.Request) {
	var in SignUpInput
	if err := httpx.Bind(r, &in); err != nil {
		httpx.RespondError(w, err)
		return
	}
	token, err := h.service.SignUp(r.Context(), in, clientIP(r), r.UserAgent())
	if err != nil {
		h.fail(w, "sign up failed", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, token)
}

func (h *Handler) signIn(w http.ResponseWriter, r *http.Request) {
	var in SignInInput
	if err := httpx.Bind(r, &in); err != nil {
		httpx.RespondError(w, err)
		return
	}
	token, err := h.service.SignIn(r.Context(), in, clientIP(r), r.UserAgent())
	if err != nil {
		h.fail(w, "sign in failed", err)
		return
	}
	httpx.JSON(w, http.StatusOK, token)
}

func (h *Handler) signOut(w http.ResponseWriter, r *http.Request) {
	if err := h.service.SignOut(r.Context(), shared.PrincipalFromContext(r.Context())); err != nil {
		h.fail(w, "sign out failed", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) me(w http.ResponseWriter, r *http.Request) {
	user, err := h.service.Me(r.Context(), shared.PrincipalFromContext(r.Context()))
	if err != nil {
		h.fail(w, "load current user failed", err)
		return
	}
	httpx.JSON(w, http.StatusOK, user)
}

func (h *Handler) forgotPassword(w http.ResponseWriter, r *http.Request) {
	var in ResetRequestInput
	if err := httpx.Bind(r, &in); err != nil {
		httpx.RespondError(w, err)
		return
	}
	if err := h.service.RequestPasswordReset(r.Context(), in.Email); err != nil {
		h.logger.Error("password reset request failed", slog.Any("error", err))
	}
	w.WriteHeader(http.StatusAccepted)
}

func (h *Handler) resetPassword(w http.ResponseWriter, r *http.Request) {
	var in ResetPasswordInput
	if err := httpx.Bind(r, &in); err != nil {
		httpx.RespondError(w, err)
		return
	}
	if err := h.service.ResetPassword(r.Context(), in); err != nil {
		h.fail(w, "password reset failed", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) oauthStart(w http.ResponseWriter, r *http.Request) {
	target, err := h.service.OAuthStart(r.Context(), chi.URLParam(r, "provider"))
	if err != nil {
		h.fail(w, "oauth start failed", err)
		return
	}
	http.Redirect(w, r, target, http.StatusFound)
}

func (h *Handler) oauthCallback(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	token, err := h.service.OAuthCallback(r.Context(), chi.URLParam(r, "provider"), q.Get("state"), q.Get("code"), clientIP(r), r.UserAgent())
	if err != nil {
		h.fail(w, "oauth callback failed", err)
		return
	}
	httpx.JSON(w, http.StatusOK, token)
}

func (h *Handler) fail(w http.ResponseWriter, msg string, err error) {
	h.logger.Warn(msg, slog.Any("error", err))
	httpx.RespondError(w, err)
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
