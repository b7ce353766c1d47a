package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/matter-service/internal/api/http"
	"github.com/spec-kit/matter-service/internal/api/http/handlers"
	"github.com/spec-kit/matter-service/internal/cache"
	"github.com/spec-kit/matter-service/internal/config"
	"github.com/spec-kit/matter-service/internal/events"
	"github.com/spec-kit/matter-service/internal/observability"
	"github.com/spec-kit/matter-service/internal/persistence"
	"github.com/spec-kit/matter-service/internal/registry"
	"github.com/spec-kit/matter-service/internal/repository"
	"github.com/spec-kit/matter-service/internal/service"
	"github.com/spec-kit/matter-service/internal/worker"
)

func newServeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server",
		RunE:  runServe,
	}
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logger, err := observability.NewLogger(cfg.Logger)
	if err != nil {
		return fmt.Errorf("failed to init logger: %w", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		return fmt.Errorf("failed to connect postgres: %w", err)
	}
	defer pg.Close()

	pool := pg.PoolHandle()
	if pool == nil {
		return errors.New("POSTGRES_DSN is required to serve matters")
	}

	if cfg.Postgres.RunMigrations {
		if err := persistence.RunMigrations(ctx, pool, logger); err != nil {
			return fmt.Errorf("failed to run migrations: %w", err)
		}
	}

	redis := persistence.NewRedis(cfg.Redis, logger)
	defer redis.Close()

	queryOpts := repository.QueryOptions{
		SLAThreshold:        cfg.SLA.Threshold(),
		TerminalSequence:    cfg.SLA.TerminalSequence,
		SimilarityThreshold: cfg.Search.SimilarityThreshold,
	}
	matterRepo := repository.NewMatterRepository(pool, queryOpts, logger)
	fieldRepo := repository.NewFieldRepository(pool)
	transitionRepo := repository.NewTransitionRepository(pool, cfg.SLA.TerminalSequence)

	fieldRegistry := registry.New(fieldRepo, cache.NewFieldCache(redis.Client, cfg.Redis.FieldCacheTTL()), logger)

	dispatcher := events.NewInMemoryDispatcher()
	notificationService := service.NewNotificationService(dispatcher, logger, cfg.Notification)
	worker.StartNotificationWorker(notificationService, logger)

	cycleTimeService := service.NewCycleTimeService(service.CycleTimeDependencies{
		TransitionRepo: transitionRepo,
		Threshold:      cfg.SLA.Threshold(),
	})
	matterService := service.NewMatterService(service.MatterDependencies{
		MatterRepo: matterRepo,
		Fields:     fieldRegistry,
		CycleTime:  cycleTimeService,
		Dispatcher: dispatcher,
		Logger:     logger,
	})

	metrics := observability.NewMetrics()
	app := fiber.New(fiber.Config{
		AppName:               cfg.App.Name,
		DisableStartupMessage: true,
	})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health: handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, map[string]handlers.Pinger{
			"postgres": pg,
			"redis":    redis,
		}, metrics),
		Matters: handlers.NewMattersHandler(matterService),
	})

	listenErr := make(chan error, 1)
	go func() {
		logger.Info("listening", zap.String("addr", cfg.App.Addr()))
		listenErr <- app.Listen(cfg.App.Addr())
	}()

	select {
	case err := <-listenErr:
		return fmt.Errorf("fiber listen: %w", err)
	case <-waitForShutdown(logger):
	}

	return app.Shutdown()
}

func waitForShutdown(logger *zap.Logger) <-chan struct{} {
	done := make(chan struct{})
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		logger.Info("shutting down", zap.String("signal", sig.String()))
		close(done)
	}()
	return done
}
