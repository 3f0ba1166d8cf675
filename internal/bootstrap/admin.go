package bootstrap

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"gorm.io/gorm"

	"github.com/mo-amir99/course-enrollment-server/internal/features/user"
	"github.com/mo-amir99/course-enrollment-server/pkg/config"
	"github.com/mo-amir99/course-enrollment-server/pkg/types"
)

// EnsureDefaultAdmin creates the configured administrator, or promotes an
// existing account with that email to admin.
func EnsureDefaultAdmin(db *gorm.DB, cfg config.AdminConfig, logger *slog.Logger) error {
	if cfg.Email == "" || cfg.Password == "" {
		logger.Debug("default admin skipped - ADMIN_EMAIL or ADMIN_PASSWORD not set")
		return nil
	}

	var existing user.User
	err := db.Where("email = ?", strings.ToLower(cfg.Email)).First(&existing).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		_, createErr := user.Create(db, user.CreateInput{
			Name:     "Admin",
			Lastname: "",
			Username: cfg.Username,
			Email:    cfg.Email,
			Password: cfg.Password,
			Role:     types.RoleAdmin,
		})
		if createErr != nil {
			if isUndefinedTableError(createErr) {
				logger.Warn("default admin skipped - users table missing", slog.String("email", cfg.Email))
				return nil
			}
			return fmt.Errorf("create admin: %w", createErr)
		}

		logger.Info("default admin created", slog.String("email", cfg.Email))
		return nil

	case err != nil:
		if isUndefinedTableError(err) {
			logger.Warn("default admin skipped - users table missing", slog.String("email", cfg.Email))
			return nil
		}
		return fmt.Errorf("get admin: %w", err)
	}

	if existing.Role == types.RoleAdmin {
		logger.Info("default admin already present", slog.String("email", cfg.Email))
		return nil
	}

	if err := db.Model(&existing).Update("role", types.RoleAdmin).Error; err != nil {
		return fmt.Errorf("promote admin: %w", err)
	}

	logger.Info("default admin promoted", slog.String("email", cfg.Email))
	return nil
}

func isUndefinedTableError(err error) bool {
	if err == nil {
		return false
	}

	message := err.Error()
	return strings.Contains(message, "relation \"users\" does not exist") ||
		strings.Contains(message, "no such table: users")
}
