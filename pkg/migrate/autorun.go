package migrate

import (
	"context"
	"fmt"

	"github.com/propertyloyalty/points-backend/pkg/config"
	"github.com/propertyloyalty/points-backend/pkg/db"
	"github.com/propertyloyalty/points-backend/pkg/logger"
)

// MaybeRunDev applies the embedded migrations at boot when the dev auto-migrate
// flag is set. sqlite databases are left alone; tests build their schema via dbtest.
func MaybeRunDev(ctx context.Context, cfg *config.Config, logg *logger.Logger, client *db.Client) error {
	if cfg == nil || !cfg.App.IsDev() || !cfg.FeatureFlags.AutoMigrate {
		return nil
	}
	ctx = logg.WithFields(ctx, map[string]any{"db_driver": cfg.DB.Driver, "env": cfg.App.Env})
	if cfg.DB.IsSQLite() {
		logg.Warn(ctx, "auto-migrate skipped for sqlite")
		return nil
	}

	sqlDB, err := client.DB().DB()
	if err != nil {
		return fmt.Errorf("auto-migrate: sql handle: %w", err)
	}
	source, err := Source("")
	if err != nil {
		return fmt.Errorf("auto-migrate: %w", err)
	}
	migrator, err := NewMigrator(sqlDB, Dialect(cfg.DB), source)
	if err != nil {
		return fmt.Errorf("auto-migrate: %w", err)
	}

	applied, err := migrator.Up(ctx)
	if err != nil {
		return fmt.Errorf("auto-migrate: %w", err)
	}
	logg.Info(logg.WithField(ctx, "applied", len(applied)), "auto-migrate finished")
	return nil
}
