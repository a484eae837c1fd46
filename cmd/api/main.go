package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/triagehq/triage-service/internal/ai"
	httptransport "github.com/triagehq/triage-service/internal/api/http"
	"github.com/triagehq/triage-service/internal/api/http/handlers"
	"github.com/triagehq/triage-service/internal/auth"
	"github.com/triagehq/triage-service/internal/config"
	"github.com/triagehq/triage-service/internal/events"
	"github.com/triagehq/triage-service/internal/observability"
	"github.com/triagehq/triage-service/internal/persistence"
	"github.com/triagehq/triage-service/internal/repository"
	"github.com/triagehq/triage-service/internal/service"
	"github.com/triagehq/triage-service/internal/worker"
)

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

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer pg.Close()

	if cfg.Postgres.RunMigrations {
		if err := persistence.RunMigrations(ctx, pg.PoolHandle(), logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	redis := persistence.NewRedis(cfg.Redis, logger)
	defer redis.Close()

	pool := pg.PoolHandle()
	orgRepo := repository.NewOrganizationRepository(pool)
	agentRepo := repository.NewAgentRepository(pool)
	customerRepo := repository.NewCustomerRepository(pool)
	invitationRepo := repository.NewInvitationRepository(pool)
	ticketRepo := repository.NewTicketRepository(pool)
	messageRepo := repository.NewTicketMessageRepository(pool)
	slaRuleRepo := repository.NewSlaRuleRepository(pool)
	enrichmentRepo := repository.NewEnrichmentRepository(pool)
	articleRepo := repository.NewArticleRepository(pool)

	metrics := observability.NewMetrics()
	dispatcher := events.NewFeedDispatcher(events.NewInMemoryDispatcher(), redis, logger)

	tokenManager := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTLMinutes)
	authMiddleware := auth.NewAuthMiddleware(tokenManager, agentRepo, customerRepo)

	aiClient := ai.NewClient(cfg.AI, logger)
	analyzer := ai.NewAnalyzer(aiClient)
	suggester := ai.NewSuggester(aiClient)

	authService := service.NewAuthService(agentRepo, customerRepo, orgRepo, tokenManager, cfg.Auth, logger)
	ticketService := service.NewTicketService(ticketRepo, messageRepo, agentRepo, dispatcher, logger)
	slaService := service.NewSlaService(slaRuleRepo, ticketRepo, redis, logger)
	invitationService := service.NewInvitationService(invitationRepo, agentRepo, dispatcher, cfg.Auth, logger)
	articleService := service.NewArticleService(articleRepo, dispatcher, logger)
	enrichmentService := service.NewEnrichmentService(service.EnrichmentDependencies{
		TicketRepo:     ticketRepo,
		MessageRepo:    messageRepo,
		EnrichmentRepo: enrichmentRepo,
		Classifier:     analyzer,
		Suggester:      suggester,
		Dispatcher:     dispatcher,
		Metrics:        metrics,
		Logger:         logger,
	})
	service.NewNotificationService(dispatcher, logger)

	app := fiber.New(fiber.Config{
		AppName:               cfg.App.Name,
		DisableStartupMessage: cfg.App.Env == "production",
	})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, pg, redis),
		Auth:           handlers.NewAuthHandler(authService),
		Portal:         handlers.NewPortalTicketsHandler(ticketService),
		Inbox:          handlers.NewInboxTicketsHandler(ticketService, slaService),
		Enrichment:     handlers.NewEnrichmentHandler(enrichmentService),
		Sla:            handlers.NewSlaHandler(slaService),
		Staff:          handlers.NewStaffHandler(invitationService),
		Articles:       handlers.NewArticlesHandler(articleService),
		AuthMiddleware: authMiddleware,
	})

	if cfg.Monitor.Enabled {
		monitor := worker.NewSlaMonitor(orgRepo, slaService, dispatcher, cfg.Monitor.Interval(), logger)
		go monitor.Run(ctx)
	}

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)
	cancel()

	_ = app.Shutdown()
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
