package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/hibiken/asynq"

	"github.com/agrotrade/agrotrade/cmd/agrotrade/cli"
	"github.com/agrotrade/agrotrade/internal/app"
	"github.com/agrotrade/agrotrade/internal/audit"
	audithttp "github.com/agrotrade/agrotrade/internal/audit/http"
	"github.com/agrotrade/agrotrade/internal/auth"
	"github.com/agrotrade/agrotrade/internal/companies"
	"github.com/agrotrade/agrotrade/internal/dashboard"
	"github.com/agrotrade/agrotrade/internal/observability"
	"github.com/agrotrade/agrotrade/internal/orders"
	"github.com/agrotrade/agrotrade/internal/platform/cache"
	"github.com/agrotrade/agrotrade/internal/platform/db"
	"github.com/agrotrade/agrotrade/internal/platform/storage"
	"github.com/agrotrade/agrotrade/internal/products"
	"github.com/agrotrade/agrotrade/internal/queries"
	"github.com/agrotrade/agrotrade/internal/rbac"
	"github.com/agrotrade/agrotrade/internal/reports"
	"github.com/agrotrade/agrotrade/internal/shared"
	"github.com/agrotrade/agrotrade/internal/users"
	"github.com/agrotrade/agrotrade/jobs"
	"github.com/agrotrade/agrotrade/report"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}
	logger := app.NewLogger(cfg)

	if len(os.Args) > 1 && os.Args[1] == "jobs" {
		os.Exit(runJobs(ctx, cfg, os.Args[2:]))
	}

	if err := serve(ctx, stop, cfg, logger); err != nil {
		logger.Error("server stopped", slog.Any("error", err))
		os.Exit(1)
	}
}

func runJobs(ctx context.Context, cfg *app.Config, args []string) int {
	fs := flag.NewFlagSet("jobs", flag.ContinueOnError)
	jsonOut := fs.Bool("json", false, "print machine readable output")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	rest := fs.Args()
	if len(rest) == 0 {
		_, _ = fmt.Fprintln(os.Stderr, "usage: agrotrade jobs [--json] trigger <name> | stats | list")
		return 2
	}
	redisOpts := redisClientOpt(cfg)
	client := jobs.NewClient(redisOpts)
	defer func() { _ = client.Close() }()
	inspector := asynq.NewInspector(redisOpts)
	defer func() { _ = inspector.Close() }()

	opts := cli.JobsOptions{Action: rest[0], JSONOutput: *jsonOut}
	if len(rest) > 1 {
		opts.Name = rest[1]
	}
	return cli.NewJobsCLI(client, inspector).Run(ctx, opts)
}

func redisClientOpt(cfg *app.Config) asynq.RedisClientOpt {
	return asynq.RedisClientOpt{Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: cfg.RedisDB}
}

func serve(ctx context.Context, stop context.CancelFunc, cfg *app.Config, logger *slog.Logger) error {
	pool, err := db.New(ctx, cfg.PGDSN, cfg.PoolOptions())
	if err != nil {
		return fmt.Errorf("connect postgres: %w", err)
	}
	defer pool.Close()

	redisClient, err := cache.New(ctx, cache.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: cfg.RedisDB})
	if err != nil {
		return err
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	objects, err := storage.NewLocalStore(cfg.StorageDir, cfg.StoragePublicURL)
	if err != nil {
		return fmt.Errorf("init storage: %w", err)
	}
	uploader := storage.NewImageUploader(objects, cfg.UploadMaxBytes)

	node, err := snowflake.NewNode(cfg.SKUNode)
	if err != nil {
		return fmt.Errorf("init sku generator: %w", err)
	}

	jobClient := jobs.NewClient(redisClientOpt(cfg))
	defer func() {
		if err := jobClient.Close(); err != nil {
			logger.Warn("job client close", slog.Any("error", err))
		}
	}()
	inspector := asynq.NewInspector(redisClientOpt(cfg))
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()

	sessions := shared.NewSessionStore(redisClient, "agrotrade:session", cfg.JWTTTL)
	metrics := observability.NewMetrics()
	auditLogger := metrics.CountAudit(shared.NewAuditLogger(pool))
	idempotencyStore := shared.NewIdempotencyStore(pool)
	dashboardCache := cache.NewVersioned(redisClient, "agrotrade:dashboard", cfg.DashboardCacheTTL)

	rbacService := rbac.NewService()
	rbacMiddleware := rbac.Middleware{Service: rbacService, Logger: logger}

	authService := auth.NewService(
		auth.NewRepository(pool),
		sessions,
		auth.NewTokenIssuer(cfg.JWTSecret, cfg.JWTTTL),
		redisClient,
		jobClient,
		auth.ServiceConfig{ResetTTL: cfg.PasswordResetTTL, ResetURL: cfg.PasswordResetURL},
	)
	if google := auth.NewGoogleProvider(cfg.GoogleClientID, cfg.GoogleClientSecret, cfg.GoogleRedirectURL); google != nil {
		authService.RegisterProvider("google", google)
	}

	usersService := users.NewService(users.NewRepository(pool), sessions, auditLogger)
	companiesService := companies.NewService(companies.NewRepository(pool))
	productsService := products.NewService(products.NewRepository(pool), uploader, node, dashboardCache, auditLogger, logger)
	queriesService := queries.NewService(queries.NewRepository(pool), jobClient, dashboardCache, auditLogger, logger)
	ordersService := orders.NewService(orders.NewRepository(pool), idempotencyStore, dashboardCache, auditLogger, logger)
	dashboardService := dashboard.NewService(dashboard.NewRepository(pool), dashboardCache, cfg.LowStockThreshold)

	pdfClient := report.NewClient(cfg.GotenbergURL, cfg.GotenbergTimeout)

	router := app.NewRouter(app.RouterParams{
		Logger:             logger,
		Config:             cfg,
		Verifier:           authService,
		RBACMiddleware:     rbacMiddleware,
		Metrics:            metrics,
		AuthHandler:        auth.NewHandler(logger, authService),
		UsersHandler:       users.NewHandler(logger, usersService, rbacMiddleware),
		CompaniesHandler:   companies.NewHandler(logger, companiesService),
		ProductsHandler:    products.NewHandler(logger, productsService, rbacMiddleware, cfg.UploadMaxBytes),
		QueriesHandler:     queries.NewHandler(logger, queriesService, rbacMiddleware),
		OrdersHandler:      orders.NewHandler(logger, ordersService, rbacMiddleware),
		DashboardHandler:   dashboard.NewHandler(logger, dashboardService, rbacMiddleware),
		ReportsHandler:     reports.NewHandler(logger, ordersService, productsService, queriesService, pdfClient, rbacMiddleware),
		ReportHandler:      report.NewHandler(pdfClient, logger),
		JobHandler:         jobs.NewHandler(inspector, jobClient, logger),
		PermissionsHandler: rbac.NewPermissionsHandler(rbacService, rbacMiddleware),
		AuditHandler:       audithttp.NewHandler(logger, audit.NewService(audit.NewRepository(pool)), rbacMiddleware),
	})

	server := &http.Server{
		Addr:              cfg.AppAddr,
		Handler:           router,
		ReadTimeout:       cfg.AppReadTimeout,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr), slog.String("env", cfg.AppEnv))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
