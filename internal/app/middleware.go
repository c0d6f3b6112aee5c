package app

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"
	"github.com/unrolled/secure"

	"github.com/agrotrade/agrotrade/internal/auth"
	"github.com/agrotrade/agrotrade/internal/observability"
	"github.com/agrotrade/agrotrade/internal/platform/httpx"
)

const (
	defaultRequestTimeout = 30 * time.Second
	defaultRatePerMinute  = 120
)

// MiddlewareConfig aggregates dependencies shared by the middleware stack.
type MiddlewareConfig struct {
	Logger   *slog.Logger
	Config   *Config
	Verifier auth.Verifier
	Metrics  *observability.Metrics
}

func (c MiddlewareConfig) production() bool {
	return c.Config != nil && c.Config.IsProduction()
}

func (c MiddlewareConfig) timeout() time.Duration {
	if c.Config != nil && c.Config.AppRequestTimeout > 0 {
		return c.Config.AppRequestTimeout
	}
	return defaultRequestTimeout
}

func (c MiddlewareConfig) ratePerMinute() int {
	if c.Config != nil && c.Config.RateLimitPerMin > 0 {
		return c.Config.RateLimitPerMin
	}
	return defaultRatePerMinute
}

// MiddlewareStack returns the API chain in the order it must be installed:
// request identity and logging first, authentication last.
func MiddlewareStack(cfg MiddlewareConfig) []func(http.Handler) http.Handler {
	chain := []func(http.Handler) http.Handler{
		middleware.RealIP,
		middleware.RequestID,
		requestLogger(cfg.Logger),
		middleware.Recoverer,
		middleware.Timeout(cfg.timeout()),
		secureHeaders(cfg),
		middleware.Compress(5, "application/json", "text/csv"),
		rateLimit(cfg.ratePerMinute()),
	}
	if cfg.Metrics != nil {
		chain = append(chain, cfg.Metrics.Middleware)
	}
	if cfg.Verifier != nil {
		chain = append(chain, auth.Authenticate(cfg.Verifier, cfg.Logger))
	}
	return chain
}

// secureHeaders sets the JSON API header policy. Media is the only
// same-origin content the API serves.
func secureHeaders(cfg MiddlewareConfig) func(http.Handler) http.Handler {
	sec := secure.New(secure.Options{
		FrameDeny:             true,
		ContentTypeNosniff:    true,
		ReferrerPolicy:        "no-referrer",
		ContentSecurityPolicy: "default-src 'none'; img-src 'self'; frame-ancestors 'none'",
		SSLRedirect:           cfg.production(),
		SSLProxyHeaders:       map[string]string{"X-Forwarded-Proto": "https"},
		STSSeconds:            stsSeconds(cfg.production()),
		IsDevelopment:         !cfg.production(),
	})
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if err := sec.Process(w, r); err != nil {
				cfg.Logger.Warn("request rejected by header policy",
					slog.String("host", r.Host), slog.Any("error", err))
				httpx.Problem(w, http.StatusBadRequest, "Bad Request", "request rejected")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func stsSeconds(production bool) int64 {
	if production {
		return int64((180 * 24 * time.Hour).Seconds())
	}
	return 0
}

func rateLimit(perMinute int) func(http.Handler) http.Handler {
	return httprate.Limit(perMinute, time.Minute,
		httprate.WithKeyFuncs(httprate.KeyByIP),
		httprate.WithLimitHandler(func(w http.ResponseWriter, _ *http.Request) {
			httpx.Problem(w, http.StatusTooManyRequests, "Too Many Requests", "rate limit exceeded")
		}),
	)
}

// requestLogger emits one access line per request; 5xx responses log at
// error level.
func requestLogger(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			began := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			defer func() {
				code := ww.Status()
				if code == 0 {
					code = http.StatusOK
				}
				level := slog.LevelInfo
				if code >= http.StatusInternalServerError {
					level = slog.LevelError
				}
				logger.LogAttrs(r.Context(), level, "request served",
					slog.String("request_id", middleware.GetReqID(r.Context())),
					slog.String("method", r.Method),
					slog.String("path", r.URL.Path),
					slog.Int("status", code),
					slog.Int("bytes", ww.BytesWritten()),
					slog.Duration("elapsed", time.Since(began)),
				)
			}()
			next.ServeHTTP(ww, r)
		})
	}
}
