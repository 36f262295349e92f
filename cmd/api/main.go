package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/housebook/housebook-backend/api"
	"github.com/housebook/housebook-backend/api/routes"
	"github.com/housebook/housebook-backend/internal/auth"
	"github.com/housebook/housebook-backend/internal/changelog"
	"github.com/housebook/housebook-backend/internal/identity"
	"github.com/housebook/housebook-backend/internal/jobs"
	"github.com/housebook/housebook-backend/internal/projection"
	"github.com/housebook/housebook-backend/internal/properties"
	"github.com/housebook/housebook-backend/internal/realtime"
	"github.com/housebook/housebook-backend/internal/scope"
	"github.com/housebook/housebook-backend/internal/users"
	"github.com/housebook/housebook-backend/pkg/auth/session"
	"github.com/housebook/housebook-backend/pkg/config"
	"github.com/housebook/housebook-backend/pkg/db"
	"github.com/housebook/housebook-backend/pkg/logger"
	"github.com/housebook/housebook-backend/pkg/metrics"
	"github.com/housebook/housebook-backend/pkg/migrate"
	"github.com/housebook/housebook-backend/pkg/outbox"
	"github.com/housebook/housebook-backend/pkg/redis"
	"github.com/housebook/housebook-backend/pkg/storage"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       cfg.App.LogLevel,
		WarnStack:   cfg.App.LogWarnStack,
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logg); err != nil {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, logg *logger.Logger) error {
	useSQLite := cfg.FeatureFlags.UseSQLite
	dbClient, err := db.New(ctx, cfg.DB, useSQLite, logg)
	if err != nil {
		return err
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(ctx, cfg, logg, dbClient); err != nil {
		return err
	}

	redisClient, err := redis.New(ctx, cfg.Redis, logg)
	if err != nil {
		return err
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	sessionManager, err := session.NewManager(redisClient, cfg.JWT)
	if err != nil {
		return err
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	workflow := metrics.NewWorkflowMetrics(reg)

	conn := dbClient.DB()
	usersRepo := users.NewRepository(conn)
	identityRepo := identity.NewRepository(conn)
	resolver, err := identity.NewService(usersRepo, identityRepo)
	if err != nil {
		return err
	}

	var signer storage.URLSigner
	if cfg.Storage.Enabled() {
		storageClient, err := storage.NewClient(cfg.Storage, logg)
		if err != nil {
			return err
		}
		signer = storageClient
	}

	propertyRepo := properties.NewRepository(conn)
	propertyService, err := properties.NewService(propertyRepo, resolver, signer, logg)
	if err != nil {
		return err
	}

	jobRepo := jobs.NewRepository(conn)
	scopes, err := scope.NewService(jobRepo, propertyRepo, resolver)
	if err != nil {
		return err
	}

	emitter := outbox.NewService(outbox.NewRepository(conn), logg)
	jobService, err := jobs.NewService(jobs.ServiceParams{
		Repo:     jobRepo,
		DB:       dbClient,
		Identity: resolver,
		Outbox:   emitter,
		Metrics:  workflow,
		Config:   cfg.Jobs,
		Logger:   logg,
	})
	if err != nil {
		return err
	}

	projectionRepo := projection.NewRepository(conn)
	projectionService, err := projection.NewService(projection.ServiceParams{
		ChangeLogs: projectionRepo,
		Assets:     identityRepo,
		Trees:      propertyRepo,
		Identity:   resolver,
		Access:     scopes,
	})
	if err != nil {
		return err
	}

	changeLogService, err := changelog.NewService(changelog.ServiceParams{
		Repo:     changelog.NewRepository(conn),
		DB:       dbClient,
		Identity: resolver,
		Scope:    scopes,
		Accepted: projectionRepo,
		Assets:   identityRepo,
		Outbox:   emitter,
		Metrics:  workflow,
		Logger:   logg,
	})
	if err != nil {
		return err
	}

	authService, err := auth.NewService(auth.ServiceParams{
		UserRepo:       usersRepo,
		Identity:       resolver,
		SessionManager: sessionManager,
		JWTConfig:      cfg.JWT,
	})
	if err != nil {
		return err
	}
	registerService, err := auth.NewRegisterService(auth.RegisterServiceParams{
		DB:             dbClient,
		PasswordConfig: cfg.Password,
	})
	if err != nil {
		return err
	}

	params := routes.Params{
		Config:      cfg,
		Logger:      logg,
		DB:          dbClient,
		Redis:       redisClient,
		Sessions:    sessionManager,
		Auth:        authService,
		Register:    registerService,
		Identity:    resolver,
		Properties:  propertyService,
		Jobs:        jobService,
		Scope:       scopes,
		Projection:  projectionService,
		ChangeLogs:  changeLogService,
		HTTPMetrics: metrics.NewHTTPMetrics(reg),
		Gatherer:    reg,
	}

	if cfg.Realtime.Enabled {
		hub := realtime.NewHub(cfg.Realtime.MaxClients, logg)
		go hub.Run(ctx)
		params.Feed = hub

		// sqlite has no LISTEN/NOTIFY; clients still connect but never see a refresh
		if !useSQLite {
			pool, err := pgxpool.New(ctx, cfg.DB.DSN)
			if err != nil {
				return err
			}
			defer pool.Close()
			bridge, err := realtime.NewNotifyBridge(pool, cfg.Realtime.Channel, hub, logg)
			if err != nil {
				return err
			}
			if err := bridge.Start(ctx); err != nil {
				return err
			}
		}
	}

	addr := ":" + cfg.App.Port
	if port := os.Getenv("PORT"); port != "" {
		addr = ":" + port
	}
	logg.Info(logg.WithFields(ctx, map[string]any{"env": cfg.App.Env, "addr": addr}), "starting api server")

	return api.Run(ctx, api.NewServer(addr, routes.NewRouter(params)), logg)
}
