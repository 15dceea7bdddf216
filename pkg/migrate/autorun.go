package migrate

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/lamnguyen/vestika-backend/pkg/config"
	"github.com/lamnguyen/vestika-backend/pkg/db/models"
	"github.com/lamnguyen/vestika-backend/pkg/logger"
)

// AllModels lists every table in dependency order for AutoMigrate.
func AllModels() []any {
	return []any{
		&models.User{},
		&models.Category{},
		&models.Product{},
		&models.ProductVariant{},
		&models.CartItem{},
		&models.Order{},
		&models.OrderItem{},
		&models.Review{},
		&models.Notification{},
	}
}

// Run applies the schema to the provided database.
func Run(ctx context.Context, gdb *gorm.DB) error {
	if err := gdb.WithContext(ctx).AutoMigrate(AllModels()...); err != nil {
		return fmt.Errorf("running automigrate: %w", err)
	}
	return nil
}

// MaybeRunDev migrates automatically when the app runs in dev mode and the
// feature flag is enabled.
func MaybeRunDev(ctx context.Context, cfg *config.Config, logg *logger.Logger, gdb *gorm.DB) error {
	if !cfg.App.IsDev() || !cfg.FeatureFlags.AutoMigrate {
		return nil
	}

	ctx = logg.WithField(ctx, "env", cfg.App.Env)
	logg.Info(ctx, "running schema migrations (dev auto-run)")

	if err := Run(ctx, gdb); err != nil {
		return err
	}

	logg.Info(ctx, "schema migrations completed")
	return nil
}
