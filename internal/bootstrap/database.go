package bootstrap

import (
	"fmt"
	"log/slog"

	"gorm.io/gorm"

	"github.com/mo-amir99/course-enrollment-server/internal/features/certificate"
	"github.com/mo-amir99/course-enrollment-server/internal/features/course"
	"github.com/mo-amir99/course-enrollment-server/internal/features/purchase"
	"github.com/mo-amir99/course-enrollment-server/internal/features/user"
	"github.com/mo-amir99/course-enrollment-server/pkg/config"
)

// Models lists every persisted model in dependency order.
func Models() []interface{} {
	return []interface{}{
		&user.User{},
		&course.Course{},
		&course.Lesson{},
		&course.Enrollment{},
		&purchase.Purchase{},
		&certificate.Certificate{},
	}
}

// Migrate creates or updates the schema for every model.
func Migrate(db *gorm.DB) error {
	for _, model := range Models() {
		if err := db.AutoMigrate(model); err != nil {
			return fmt.Errorf("migrate %T: %w", model, err)
		}
	}
	return nil
}

// ApplyDatabaseMigrations runs migrations when enabled via configuration.
func ApplyDatabaseMigrations(db *gorm.DB, cfg *config.Config, logger *slog.Logger) error {
	if !cfg.Database.RunMigrations {
		logger.Info("database migrations skipped", slog.String("env_var", "DB_RUN_MIGRATIONS=false"))
		return nil
	}

	if err := Migrate(db); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}

	logger.Info("database migrations applied successfully")
	return nil
}
