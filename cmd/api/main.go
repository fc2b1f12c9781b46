package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	_ "time/tzdata"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/opportunity-service/internal/api/http"
	"github.com/spec-kit/opportunity-service/internal/api/http/handlers"
	"github.com/spec-kit/opportunity-service/internal/auth"
	"github.com/spec-kit/opportunity-service/internal/config"
	"github.com/spec-kit/opportunity-service/internal/events"
	"github.com/spec-kit/opportunity-service/internal/observability"
	"github.com/spec-kit/opportunity-service/internal/persistence"
	"github.com/spec-kit/opportunity-service/internal/repository"
	"github.com/spec-kit/opportunity-service/internal/repository/memstore"
	"github.com/spec-kit/opportunity-service/internal/service"
	"github.com/spec-kit/opportunity-service/internal/worker"
)

type repositories struct {
	staff         repository.StaffRepository
	dealerships   repository.DealershipRepository
	opportunities repository.OpportunityRepository
	roleTokens    repository.RoleTokenRepository
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger, cfg.App)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	loc, err := cfg.App.Location()
	if err != nil {
		logger.Fatal("invalid time zone", zap.Error(err))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	dependencies := map[string]handlers.Pinger{}
	var repos repositories
	if cfg.Postgres.DSN == "" {
		logger.Warn("POSTGRES_DSN empty, using in-memory store")
		store := memstore.New()
		repos = repositories{
			staff:         store.Staff(),
			dealerships:   store.Dealerships(),
			opportunities: store.Opportunities(),
			roleTokens:    store.RoleTokens(),
		}
	} else {
		pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
		if err != nil {
			logger.Fatal("failed to connect postgres", zap.Error(err))
		}
		defer pg.Close()

		if cfg.Postgres.RunMigrations {
			if err := persistence.RunMigrations(ctx, pg.PoolHandle(), cfg.Postgres.MigrationsDir, logger); err != nil {
				logger.Fatal("failed to run migrations", zap.Error(err))
			}
		}
		dependencies["postgres"] = pg

		pool := pg.PoolHandle()
		repos = repositories{
			staff:         repository.NewStaffRepository(pool),
			dealerships:   repository.NewDealershipRepository(pool),
			opportunities: repository.NewOpportunityRepository(pool),
			roleTokens:    repository.NewRoleTokenRepository(pool),
		}
	}

	locker := service.NewLocalLocker()
	if cfg.Redis.Enabled {
		redis := persistence.NewRedis(cfg.Redis, logger)
		defer redis.Close()
		dependencies["redis"] = redis
		locker = redis.AssignmentLocker(cfg.Assignment, logger)
	}

	credentials := auth.NewBcryptCredentials(cfg.Auth.BcryptCost)

	report, err := service.NewBootstrapService(repos.roleTokens, repos.staff, credentials, cfg.Bootstrap, logger).Run(ctx)
	if err != nil {
		logger.Fatal("bootstrap failed", zap.Error(err))
	}
	logger.Info("bootstrap complete",
		zap.Int("tokens_created", report.TokensCreated),
		zap.Bool("admin_created", report.AdminCreated),
		zap.String("admin_id", report.AdminID),
	)

	dispatcher := events.NewInMemoryDispatcher()
	worker.StartNotificationWorker(dispatcher, cfg.Notification, logger)

	authService := service.NewAuthService(cfg.Auth, repos.staff, credentials)
	engine := service.NewAssignmentEngine(repos.staff, locker, cfg.Assignment, logger)
	opportunityService := service.NewOpportunityService(service.OpportunityDependencies{
		OpportunityRepo: repos.opportunities,
		DealershipRepo:  repos.dealerships,
		StaffRepo:       repos.staff,
		Engine:          engine,
		Dispatcher:      dispatcher,
		Location:        loc,
		Logger:          logger,
	})
	staffService := service.NewStaffService(service.StaffDependencies{
		StaffRepo:      repos.staff,
		DealershipRepo: repos.dealerships,
		Credentials:    credentials,
		Logger:         logger,
	})
	dealershipService := service.NewDealershipService(repos.dealerships)

	// The default registry also carries the assignment and authorization counters.
	metrics := observability.NewMetrics(prometheus.DefaultRegisterer)

	app := fiber.New()
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())
	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, dependencies),
		Auth:           handlers.NewAuthHandler(authService),
		Dealerships:    handlers.NewDealershipHandler(dealershipService),
		Staff:          handlers.NewStaffHandler(staffService),
		Opportunities:  handlers.NewOpportunityHandler(opportunityService, loc),
		AuthMiddleware: auth.NewAuthMiddleware(authService.TokenManager(), repos.staff),
		Gatherer:       prometheus.DefaultGatherer,
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	_ = app.Shutdown()
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
