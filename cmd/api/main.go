package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/cityreport/incident-service/internal/api/http"
	"github.com/cityreport/incident-service/internal/api/http/handlers"
	"github.com/cityreport/incident-service/internal/auth"
	"github.com/cityreport/incident-service/internal/config"
	"github.com/cityreport/incident-service/internal/domain"
	"github.com/cityreport/incident-service/internal/events"
	"github.com/cityreport/incident-service/internal/observability"
	"github.com/cityreport/incident-service/internal/persistence"
	"github.com/cityreport/incident-service/internal/repository"
	"github.com/cityreport/incident-service/internal/service"
	"github.com/cityreport/incident-service/internal/storage"
	"github.com/cityreport/incident-service/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.App, cfg.Logger)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	lifecycle, err := domain.NewLifecycle(cfg.Lifecycle.Statuses, cfg.Lifecycle.Terminal, cfg.Lifecycle.Aliases)
	if err != nil {
		logger.Fatal("invalid incident lifecycle", zap.Error(err))
	}
	policy, err := auth.NewPolicy()
	if err != nil {
		logger.Fatal("failed to build authorization policy", zap.Error(err))
	}

	healthDeps := map[string]handlers.Pinger{}
	incidentRepo, closeStore := openIncidentStore(ctx, cfg.Database, logger, healthDeps)
	defer closeStore()

	redis := persistence.NewRedis(ctx, cfg.Redis, logger)
	defer redis.Close()
	if redis != nil {
		healthDeps["redis"] = redis
	}

	var webhook service.WebhookNotifier
	if cfg.Notification.WebhookURL != "" {
		webhook = service.NewWebhookSender(cfg.Notification.WebhookURL, cfg.Notification.WebhookSecret, cfg.Notification.WebhookTimeout)
	}
	notifications := service.NewNotificationService(service.NewLogMailer(logger), webhook, lifecycle, logger, cfg.Notification)

	var publisher events.Publisher
	var notificationWorker *worker.NotificationWorker
	if redis != nil {
		publisher = events.NewRedisPublisher(redis.Client, cfg.Notification.QueueKey, cfg.Notification.Channel)
		queue := worker.NewRedisQueue(redis.Client, cfg.Notification.QueueKey)
		notificationWorker = worker.NewNotificationWorker(queue, notifications.Handle, logger, cfg.App.DependencyTimeout)
		notificationWorker.Start(ctx)
	} else {
		dispatcher := events.NewInMemoryDispatcher()
		notifications.RegisterHandlers(dispatcher)
		publisher = dispatcher
	}

	var issuer storage.URLIssuer
	if cfg.Storage.AttachmentBucket != "" {
		s3Attachments, err := storage.NewS3Storage(ctx, cfg.Storage, cfg.Storage.AttachmentBucket)
		if err != nil {
			logger.Fatal("failed to init attachment storage", zap.Error(err))
		}
		issuer = s3Attachments
	} else {
		logger.Warn("ATTACHMENT_BUCKET not set; upload URLs are unavailable")
	}

	incidentService := service.NewIncidentService(service.IncidentDependencies{
		IncidentRepo: incidentRepo,
		Publisher:    publisher,
		URLIssuer:    issuer,
		Authorizer:   policy,
		Lifecycle:    lifecycle,
		Logger:       logger,
		Timeout:      cfg.App.DependencyTimeout,
		DownloadTTL:  cfg.Storage.DownloadURLTTL,
	})
	attachmentService := service.NewAttachmentService(service.AttachmentDependencies{
		URLIssuer:     issuer,
		Authorizer:    policy,
		PublicBaseURL: cfg.Storage.AttachmentBaseURL(),
		UploadTTL:     cfg.Storage.UploadURLTTL,
		Timeout:       cfg.App.DependencyTimeout,
		Logger:        logger,
	})

	var exporter *worker.DashboardExporter
	if cfg.Dashboard.ExportEnabled {
		exporter = startDashboardExporter(ctx, cfg, incidentService, logger)
	}

	metrics := observability.NewMetrics()
	app := fiber.New(fiber.Config{
		AppName:               cfg.App.Name,
		DisableStartupMessage: true,
		ReadTimeout:           cfg.App.RequestTimeout,
		WriteTimeout:          cfg.App.RequestTimeout,
	})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout)

	tokens := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, healthDeps, metrics),
		Incidents:      handlers.NewIncidentsHandler(incidentService),
		Attachments:    handlers.NewAttachmentsHandler(attachmentService),
		Dashboard:      handlers.NewDashboardHandler(incidentService),
		AuthMiddleware: auth.NewAuthMiddleware(tokens, cfg.Auth.ClaimsHeader),
		Policy:         policy,
	})

	go func() {
		logger.Info("http server listening", zap.String("addr", cfg.App.Addr()))
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		logger.Warn("http shutdown", zap.Error(err))
	}
	cancel()
	if exporter != nil {
		exporter.Stop()
	}
	if notificationWorker != nil {
		notificationWorker.Wait()
	}
}

// openIncidentStore connects the configured backend and registers it for
// readiness checks. The returned func releases it.
func openIncidentStore(ctx context.Context, cfg config.DatabaseConfig, logger *zap.Logger, healthDeps map[string]handlers.Pinger) (repository.IncidentRepository, func()) {
	switch cfg.Driver {
	case config.DriverPostgres:
		if cfg.RunMigrations {
			if err := persistence.RunMigrations(cfg, logger); err != nil {
				logger.Fatal("failed to run migrations", zap.Error(err))
			}
		}
		pg, err := persistence.NewPostgres(ctx, cfg, logger)
		if err != nil {
			logger.Fatal("failed to connect postgres", zap.Error(err))
		}
		healthDeps["postgres"] = pg
		return repository.NewIncidentRepository(pg.PoolHandle()), pg.Close
	case config.DriverSQLite:
		if cfg.RunMigrations {
			if err := persistence.RunMigrations(cfg, logger); err != nil {
				logger.Fatal("failed to run migrations", zap.Error(err))
			}
		}
		db, err := persistence.NewSQLite(ctx, cfg, logger)
		if err != nil {
			logger.Fatal("failed to open sqlite", zap.Error(err))
		}
		healthDeps["sqlite"] = db
		return repository.NewSQLiteIncidentRepository(db.DB), db.Close
	default:
		logger.Warn("using in-memory incident store; data is lost on restart")
		return repository.NewMemoryIncidentRepository(), func() {}
	}
}

func startDashboardExporter(ctx context.Context, cfg *config.Config, incidents *service.IncidentService, logger *zap.Logger) *worker.DashboardExporter {
	if cfg.Storage.DashboardBucket == "" {
		logger.Warn("DASHBOARD_EXPORT_ENABLED without DASHBOARD_BUCKET; export disabled")
		return nil
	}
	bucket, err := storage.NewS3Storage(ctx, cfg.Storage, cfg.Storage.DashboardBucket)
	if err != nil {
		logger.Fatal("failed to init dashboard storage", zap.Error(err))
	}
	exporter, err := worker.NewDashboardExporter(incidents, bucket, logger, cfg.Dashboard.ExportSchedule, time.Minute)
	if err != nil {
		logger.Fatal("failed to configure dashboard export", zap.Error(err))
	}
	if err := exporter.Start(ctx); err != nil {
		logger.Fatal("failed to start dashboard export", zap.Error(err))
	}
	return exporter
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
