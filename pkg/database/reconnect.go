package database

import (
	"database/sql"
	"errors"
	"log/slog"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/mo-amir99/course-enrollment-server/pkg/metrics"
)

// ReconnectPlugin watches statement errors and, when one looks like a dropped
// connection, pings the pool until it recovers so the next request succeeds.
type ReconnectPlugin struct {
	logger     *slog.Logger
	maxRetries int
	retryDelay time.Duration
}

// NewReconnectPlugin creates a new reconnect plugin.
func NewReconnectPlugin(logger *slog.Logger) *ReconnectPlugin {
	return &ReconnectPlugin{
		logger:     logger,
		maxRetries: 3,
		retryDelay: 500 * time.Millisecond,
	}
}

// Name returns the plugin name.
func (p *ReconnectPlugin) Name() string {
	return "reconnect_plugin"
}

// Initialize registers an after-hook on every statement kind.
func (p *ReconnectPlugin) Initialize(db *gorm.DB) error {
	cb := db.Callback()
	hooks := []struct {
		name     string
		register func(string, func(*gorm.DB)) error
	}{
		{"reconnect:after_query", cb.Query().After("gorm:query").Register},
		{"reconnect:after_create", cb.Create().After("gorm:create").Register},
		{"reconnect:after_update", cb.Update().After("gorm:update").Register},
		{"reconnect:after_delete", cb.Delete().After("gorm:delete").Register},
		{"reconnect:after_row", cb.Row().After("gorm:row").Register},
		{"reconnect:after_raw", cb.Raw().After("gorm:raw").Register},
	}
	for _, h := range hooks {
		if err := h.register(h.name, p.afterStatement); err != nil {
			return err
		}
	}
	return nil
}

func (p *ReconnectPlugin) afterStatement(db *gorm.DB) {
	if !isConnectionError(db.Error) {
		return
	}

	sqlDB, err := db.DB()
	if err != nil {
		return
	}

	p.logger.Warn("database connection lost, attempting to reconnect", slog.String("error", db.Error.Error()))

	for attempt := 1; attempt <= p.maxRetries; attempt++ {
		time.Sleep(p.retryDelay * time.Duration(attempt))
		if err := sqlDB.Ping(); err == nil {
			metrics.RecordDBReconnect()
			p.logger.Info("database reconnection successful", slog.Int("attempt", attempt))
			return
		}
	}

	p.logger.Error("database reconnection failed after retries", slog.Int("max_retries", p.maxRetries))
}

var connectionErrorPatterns = []string{
	"connection refused",
	"connection reset",
	"broken pipe",
	"no such host",
	"network is unreachable",
	"connection timed out",
	"bad connection",
	"closed network connection",
	"server closed",
}

func isConnectionError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, sql.ErrConnDone) {
		return true
	}

	msg := strings.ToLower(err.Error())
	for _, pattern := range connectionErrorPatterns {
		if strings.Contains(msg, pattern) {
			return true
		}
	}
	return false
}
