package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.uber.org/multierr"

	"github.com/housebook/housebook-backend/internal/cron"
	"github.com/housebook/housebook-backend/internal/identity"
	"github.com/housebook/housebook-backend/internal/jobs"
	"github.com/housebook/housebook-backend/internal/users"
	"github.com/housebook/housebook-backend/pkg/config"
	"github.com/housebook/housebook-backend/pkg/db"
	"github.com/housebook/housebook-backend/pkg/instance"
	"github.com/housebook/housebook-backend/pkg/logger"
	"github.com/housebook/housebook-backend/pkg/metrics"
	"github.com/housebook/housebook-backend/pkg/migrate"
	"github.com/housebook/housebook-backend/pkg/outbox"
	"github.com/housebook/housebook-backend/pkg/redis"
)

const serviceKind = "cron-worker"

func main() {
	logg := logger.New(logger.Options{ServiceName: serviceKind})
	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	var once bool
	cmd := &cobra.Command{
		Use:          serviceKind,
		Short:        "Expire unclaimed jobs and prune the published outbox",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			cfg.Service.Kind = serviceKind
			logg = logger.New(logger.Options{
				ServiceName: serviceKind,
				Level:       cfg.App.LogLevel,
				WarnStack:   cfg.App.LogWarnStack,
			})
			return run(cmd.Context(), cfg, logg, once)
		},
	}
	cmd.Flags().BoolVar(&once, "once", false, "run a single cycle and exit")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := cmd.ExecuteContext(ctx); err != nil {
		logg.Error(ctx, "cron worker stopped unexpectedly", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, logg *logger.Logger, once bool) (err error) {
	dbClient, err := db.New(ctx, cfg.DB, cfg.FeatureFlags.UseSQLite, logg)
	if err != nil {
		return fmt.Errorf("bootstrap database: %w", err)
	}
	defer func() { err = multierr.Append(err, dbClient.Close()) }()

	if err := migrate.MaybeRunDev(ctx, cfg, logg, dbClient); err != nil {
		return fmt.Errorf("dev migrations: %w", err)
	}

	redisClient, err := redis.New(ctx, cfg.Redis, logg)
	if err != nil {
		return fmt.Errorf("bootstrap redis: %w", err)
	}
	defer func() { err = multierr.Append(err, redisClient.Close()) }()

	service, err := buildService(cfg, logg, dbClient, redisClient)
	if err != nil {
		return err
	}

	ctx = logg.WithFields(ctx, map[string]any{
		"env":         cfg.App.Env,
		"serviceKind": cfg.Service.Kind,
		"instance":    instance.ID(cfg.Service.Kind),
	})
	if once {
		logg.Info(ctx, "running a single cron cycle")
		return service.RunOnce(ctx)
	}

	logg.Info(ctx, "starting cron worker")
	if err := service.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	logg.Info(ctx, "cron worker shutting down gracefully")
	return nil
}

func buildService(cfg *config.Config, logg *logger.Logger, dbClient *db.Client, redisClient *redis.Client) (*cron.Service, error) {
	conn := dbClient.DB()
	resolver, err := identity.NewService(users.NewRepository(conn), identity.NewRepository(conn))
	if err != nil {
		return nil, fmt.Errorf("identity resolver: %w", err)
	}
	outboxRepo := outbox.NewRepository(conn)
	jobService, err := jobs.NewService(jobs.ServiceParams{
		Repo:     jobs.NewRepository(conn),
		DB:       dbClient,
		Identity: resolver,
		Outbox:   outbox.NewService(outboxRepo, logg),
		Metrics:  metrics.NewWorkflowMetrics(prometheus.DefaultRegisterer),
		Config:   cfg.Jobs,
		Logger:   logg,
	})
	if err != nil {
		return nil, fmt.Errorf("job service: %w", err)
	}

	expiry, err := cron.NewJobExpiryJob(cron.JobExpiryJobParams{Logger: logg, Jobs: jobService})
	if err != nil {
		return nil, err
	}
	retention, err := cron.NewOutboxRetentionJob(cron.OutboxRetentionJobParams{
		Logger:     logg,
		Repository: outboxRepo,
		Retention:  cfg.Outbox.Retention,
	})
	if err != nil {
		return nil, err
	}
	lock, err := cron.NewRedisLock(redisClient, redisClient.LockKey(cron.LockName), cron.CycleLockTTL(cfg.Cron.Interval))
	if err != nil {
		return nil, fmt.Errorf("cron lock: %w", err)
	}

	return cron.NewService(cron.ServiceParams{
		Logger:   logg,
		Jobs:     []cron.Job{expiry, retention},
		Lock:     lock,
		Metrics:  metrics.NewCronMetrics(prometheus.DefaultRegisterer),
		Interval: cfg.Cron.Interval,
	})
}
