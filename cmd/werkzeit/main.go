package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"

	"github.com/werkzeit/werkzeit/internal/app"
	"github.com/werkzeit/werkzeit/internal/auth"
	"github.com/werkzeit/werkzeit/internal/closing"
	"github.com/werkzeit/werkzeit/internal/export"
	"github.com/werkzeit/werkzeit/internal/invoices"
	"github.com/werkzeit/werkzeit/internal/masterdata"
	"github.com/werkzeit/werkzeit/internal/observability"
	"github.com/werkzeit/werkzeit/internal/platform/cache"
	"github.com/werkzeit/werkzeit/internal/platform/db"
	"github.com/werkzeit/werkzeit/internal/profiles"
	"github.com/werkzeit/werkzeit/internal/rbac"
	"github.com/werkzeit/werkzeit/internal/shared"
	"github.com/werkzeit/werkzeit/internal/timesheet"
	"github.com/werkzeit/werkzeit/jobs"
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

	dbpool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer dbpool.Close()

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Error("connect redis", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	sessionManager := shared.NewSessionManager(redisClient, "werkzeit_session", cfg.SessionSecret, cfg.SessionTTL, cfg.IsProduction())
	csrfManager := shared.NewCSRFManager(cfg.CSRFSecret)

	auditLogger := shared.NewAuditLogger(dbpool)
	approvalRecorder := shared.NewApprovalRecorder(dbpool, logger)

	profilesRepo := profiles.NewRepository(dbpool)
	profilesService := profiles.NewService(profilesRepo)

	sessionStore := auth.NewSessionStore(dbpool)
	authService := auth.NewService(profilesRepo, sessionStore)
	authHandler := auth.NewHandler(logger, authService, sessionManager, csrfManager)

	rbacMiddleware := rbac.Middleware{Resolver: profilesService, Logger: logger}

	closingRepo := closing.NewRepository(dbpool)
	closingService := closing.NewService(closingRepo, approvalRecorder, logger, cfg.ApprovalUndoWindow)

	timesheetRepo := timesheet.NewRepository(dbpool)
	timesheetService := timesheet.NewService(timesheetRepo, closingRepo, auditLogger, logger)

	invoicesRepo := invoices.NewRepository(dbpool)
	invoicesService := invoices.NewService(invoicesRepo, invoices.Config{
		TaxRate:   cfg.InvoiceTaxRate,
		DueIn:     cfg.InvoiceDueIn,
		DueSoonIn: cfg.InvoiceDueSoonIn,
	})

	masterdataRepo := masterdata.NewRepository(dbpool)
	masterdataService := masterdata.NewService(masterdataRepo, auditLogger, logger)

	exportRepo := export.NewRepository(dbpool)
	gotenberg := export.NewGotenberg(cfg.GotenbergURL)
	exportService := export.NewService(exportRepo, gotenberg, invoicesService, export.Config{
		CompanyIBAN:   cfg.CompanyIBAN,
		Signature:     cfg.CompanySignature,
		BackupVersion: cfg.BackupVersion,
	})

	jobsClient := jobs.NewClient(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := jobsClient.Close(); err != nil {
			logger.Warn("jobs client close", slog.Any("error", err))
		}
	}()
	closingService.WithNotifier(func(ctx context.Context, c closing.Closing) {
		profile, err := profilesService.Get(ctx, c.UserID)
		workerName := ""
		if err == nil {
			workerName = profile.Name
		}
		payload := jobs.WeekSubmittedPayload{
			ClosingID:  c.ID.String(),
			WorkerName: workerName,
			Week:       c.Week().String(),
		}
		if _, err := jobsClient.EnqueueWeekSubmitted(ctx, payload); err != nil {
			logger.Warn("enqueue week submitted", slog.Any("error", err))
		}
	})

	inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()
	jobsHandler := jobs.NewHandler(inspector, logger)

	metrics := observability.NewMetrics()

	router := app.NewRouter(app.RouterParams{
		Logger:            logger,
		Config:            cfg,
		SessionManager:    sessionManager,
		CSRFManager:       csrfManager,
		RBACMiddleware:    rbacMiddleware,
		AuthHandler:       authHandler,
		ProfilesHandler:   profiles.NewHandler(logger, profilesService, rbacMiddleware),
		TimesheetHandler:  timesheet.NewHandler(logger, timesheetService, rbacMiddleware),
		ClosingHandler:    closing.NewHandler(logger, closingService, rbacMiddleware),
		InvoicesHandler:   invoices.NewHandler(logger, invoicesService, rbacMiddleware),
		ExportHandler:     export.NewHandler(logger, exportService, rbacMiddleware),
		MasterdataHandler: masterdata.NewHandler(logger, masterdataService, rbacMiddleware),
		JobsHandler:       jobsHandler,
		Metrics:           metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
}
