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

	"github.com/procurekit/procurement-service/internal/accounting"
	httptransport "github.com/procurekit/procurement-service/internal/api/http"
	"github.com/procurekit/procurement-service/internal/api/http/handlers"
	"github.com/procurekit/procurement-service/internal/auth"
	"github.com/procurekit/procurement-service/internal/config"
	"github.com/procurekit/procurement-service/internal/domain"
	"github.com/procurekit/procurement-service/internal/events"
	"github.com/procurekit/procurement-service/internal/mailer"
	"github.com/procurekit/procurement-service/internal/observability"
	"github.com/procurekit/procurement-service/internal/persistence"
	"github.com/procurekit/procurement-service/internal/repository"
	"github.com/procurekit/procurement-service/internal/repository/memstore"
	"github.com/procurekit/procurement-service/internal/requestid"
	"github.com/procurekit/procurement-service/internal/service"
	"github.com/procurekit/procurement-service/internal/worker"
)

const migrationsDir = "migrations"

type repositories struct {
	tickets       repository.TicketRepository
	approvals     repository.ApprovalLogRepository
	users         repository.UserRepository
	notifications repository.NotificationRepository
	templates     repository.EmailTemplateRepository
	comments      repository.CommentRepository
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	metrics := observability.NewMetrics()

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer pg.Close()

	if pg.Enabled() && cfg.Postgres.RunMigrations {
		if err := persistence.RunMigrations(ctx, pg.Pool, migrationsDir, logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	redis := persistence.NewRedis(ctx, cfg.Redis, logger)
	defer redis.Close()
	redisUp := redis.Enabled() && redis.Ping(ctx) == nil

	repos := buildRepositories(pg, cfg, logger)

	var queue mailer.Queue
	if redisUp {
		queue = mailer.NewRedisQueue(redis.Client, cfg.Notification.QueueKey, 5*time.Second)
	} else {
		queue = mailer.NewChannelQueue(1024)
	}

	var transport mailer.Transport
	if addr := cfg.Notification.SMTPAddr(); addr != "" {
		transport = mailer.NewSMTPTransport(addr, cfg.Notification.SMTPUsername, cfg.Notification.SMTPPassword)
	} else {
		logger.Warn("SMTP_HOST not provided; emails are logged only")
		transport = mailer.NewLogTransport(logger)
	}

	dispatcher := events.NewInMemoryDispatcher(logger)

	notificationService := service.NewNotificationService(service.NotificationDependencies{
		NotificationRepo:  repos.notifications,
		EmailTemplateRepo: repos.templates,
		UserRepo:          repos.users,
		Queue:             queue,
		Dispatcher:        dispatcher,
		Metrics:           metrics,
		Logger:            logger,
		Config:            cfg.Notification,
	})
	worker.StartNotificationWorker(notificationService)

	ticketService := service.NewTicketService(service.TicketDependencies{
		TicketRepo:      repos.tickets,
		ApprovalLogRepo: repos.approvals,
		IDGenerator:     requestid.NewGenerator(repos.tickets, requestid.WithMaxAttempts(cfg.Workflow.RequestIDMaxAttempts)),
		Dispatcher:      dispatcher,
		Metrics:         metrics,
		Logger:          logger,
		AutoCloseAfter:  cfg.Workflow.AutoCloseAfter(),
		ReaperBatchSize: cfg.Workflow.ReaperBatchSize,
	})
	commentService := service.NewCommentService(service.CommentDependencies{
		TicketRepo:  repos.tickets,
		CommentRepo: repos.comments,
		UserRepo:    repos.users,
		Dispatcher:  dispatcher,
		Logger:      logger,
	})
	authService := service.NewAuthService(*cfg, service.AuthDependencies{UserRepo: repos.users})
	assignmentService := service.NewAssignmentService(service.AssignmentDependencies{UserRepo: repos.users})
	authMiddleware := auth.NewAuthMiddleware(authService.TokenManager(), repos.users)

	var lock worker.Locker
	if redisUp {
		lock = persistence.NewRedisLock(redis.Client, cfg.Workflow.ReaperLockKey, cfg.Workflow.ReaperInterval())
	} else {
		lock = persistence.NewLocalLock()
	}
	scheduler := worker.NewAutoCloseScheduler(ticketService, lock, cfg.Workflow.ReaperInterval(), logger)
	scheduler.Start(ctx)

	emailWorker := worker.NewEmailWorker(queue, transport, logger, metrics, worker.EmailWorkerConfig{
		Concurrency: cfg.Notification.Workers,
	})
	workerCtx, stopWorkers := context.WithCancel(ctx)
	workersDone := make(chan struct{})
	go func() {
		defer close(workersDone)
		emailWorker.Run(workerCtx)
	}()

	app := fiber.New(fiber.Config{
		AppName:               cfg.App.Name,
		DisableStartupMessage: true,
		ReadTimeout:           cfg.App.RequestTimeout(),
		WriteTimeout:          cfg.App.RequestTimeout(),
	})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	if cfg.Auth.CronSecret == "" {
		logger.Warn("CRON_SECRET not provided; /cron/auto-close is closed")
	}
	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, pg, redis),
		Tickets:        handlers.NewTicketsHandler(ticketService),
		Comments:       handlers.NewCommentsHandler(commentService),
		Notifications:  handlers.NewNotificationsHandler(notificationService),
		Profiles:       handlers.NewProfilesHandler(authService, assignmentService),
		Operations:     handlers.NewOperationsHandler(scheduler, accounting.NewClient(cfg.Accounting)),
		AuthMiddleware: authMiddleware,
		Metrics:        metrics,
		CronSecret:     cfg.Auth.CronSecret,
	})

	go func() {
		logger.Info("http server listening", zap.String("addr", cfg.App.Addr()), zap.String("env", cfg.App.Env))
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		logger.Warn("http shutdown", zap.Error(err))
	}
	scheduler.Stop()
	stopWorkers()
	<-workersDone
}

func buildRepositories(pg *persistence.Postgres, cfg *config.Config, logger *zap.Logger) repositories {
	if pg.Enabled() {
		return repositories{
			tickets:       repository.NewTicketRepository(pg.Pool),
			approvals:     repository.NewApprovalLogRepository(pg.Pool),
			users:         repository.NewUserRepository(pg.Pool),
			notifications: repository.NewNotificationRepository(pg.Pool),
			templates:     repository.NewEmailTemplateRepository(pg.Pool),
			comments:      repository.NewCommentRepository(pg.Pool),
		}
	}

	store := memstore.New()
	if cfg.App.Env == "development" {
		seedDevelopment(store)
		logger.Info("seeded in-memory store with demo profiles; use POST /auth/dev-login")
	}
	return repositories{
		tickets:       store.Tickets(),
		approvals:     store.ApprovalLogsRepo(),
		users:         store.Users(),
		notifications: store.NotificationsRepo(),
		templates:     store.Templates(),
		comments:      store.Comments(),
	}
}

// seedDevelopment loads demo profiles and one plain template per email trigger.
func seedDevelopment(store *memstore.Store) {
	team := func(t domain.TeamName) *domain.TeamName { return &t }
	for _, u := range []domain.User{
		{Email: "admin@example.com", Roles: domain.RoleSet{domain.RoleSuperAdmin}},
		{Email: "requester@example.com", Roles: domain.RoleSet{domain.RoleRequester}, Team: team(domain.TeamEngineering)},
		{Email: "fh.engineering@example.com", Roles: domain.RoleSet{domain.RoleFunctionalHead}, Team: team(domain.TeamEngineering)},
		{Email: "fh.innovation@example.com", Roles: domain.RoleSet{domain.RoleFunctionalHead}, Team: team(domain.TeamInnovation)},
		{Email: "l1.engineering@example.com", Roles: domain.RoleSet{domain.RoleL1Approver}, Team: team(domain.TeamEngineering)},
		{Email: "l1.innovation@example.com", Roles: domain.RoleSet{domain.RoleL1Approver}, Team: team(domain.TeamInnovation)},
		{Email: "l1.sales@example.com", Roles: domain.RoleSet{domain.RoleL1Approver}, Team: team(domain.TeamSales)},
		{Email: "cfo@example.com", Roles: domain.RoleSet{domain.RoleCFO}},
		{Email: "cdo@example.com", Roles: domain.RoleSet{domain.RoleCDO}},
		{Email: "production@example.com", Roles: domain.RoleSet{domain.RoleProduction}},
	} {
		u.Active = true
		store.PutUser(u)
	}
	for _, trigger := range []string{
		"request_created", "approval_pending", "assigned_to_production",
		"delivered_to_requester", "request_closed", "request_rejected", "comment_mention",
	} {
		store.PutTemplate(domain.EmailTemplate{
			Name:            trigger,
			Trigger:         trigger,
			Timeline:        domain.TimelineImmediate,
			SubjectTemplate: "[{{requestId}}] " + trigger,
			BodyTemplate:    "{{ticketTitle}} is now {{status}}. {{rejectionRemarks}}",
			Enabled:         true,
		})
	}
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
