package migrate

import (
	"context"
	"fmt"

	"github.com/housebook/housebook-backend/pkg/config"
	"github.com/housebook/housebook-backend/pkg/db"
	"github.com/housebook/housebook-backend/pkg/logger"
)

// MaybeRunDev brings the schema up to date on start when the dev
// auto-migrate flag is on. Everywhere else migrations run through
// cmd/migrate.
func MaybeRunDev(ctx context.Context, cfg *config.Config, logg *logger.Logger, client *db.Client) error {
	if !cfg.App.IsDev() || !cfg.FeatureFlags.AutoMigrate {
		return nil
	}
	sqlite := client.IsSQLite()
	ctx = logg.WithFields(ctx, map[string]any{"env": cfg.App.Env, "sqlite": sqlite})
	logg.Info(ctx, "migrate.autorun.start")

	if sqlite {
		return ApplySQLiteSchema(ctx, client.DB())
	}
	conn, err := client.DB().DB()
	if err != nil {
		return fmt.Errorf("extracting sql.DB: %w", err)
	}
	if err := Run(ctx, conn, "up"); err != nil {
		return err
	}
	logg.Info(ctx, "migrate.autorun.done")
	return nil
}
