package routes

import (
	"log/slog"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/gorm"

	"github.com/mo-amir99/course-enrollment-server/internal/features/admin"
	"github.com/mo-amir99/course-enrollment-server/internal/features/auth"
	"github.com/mo-amir99/course-enrollment-server/internal/features/course"
	"github.com/mo-amir99/course-enrollment-server/internal/features/upload"
	"github.com/mo-amir99/course-enrollment-server/internal/features/user"
	"github.com/mo-amir99/course-enrollment-server/internal/middleware"
	"github.com/mo-amir99/course-enrollment-server/pkg/config"
	"github.com/mo-amir99/course-enrollment-server/pkg/health"
)

// Services holds the external collaborators shared by feature handlers.
// Nil Events drops domain events and nil Checks adds no readiness probes.
type Services struct {
	Images course.ImageStore
	Mailer auth.Mailer
	Events course.Publisher
	Checks map[string]health.Check
}

// Register wires all feature routes onto the engine.
func Register(engine *gin.Engine, cfg *config.Config, db *gorm.DB, logger *slog.Logger, svc Services) {
	// Health check endpoints for orchestrator probes
	healthHandler := health.NewHandler(db, logger)
	for name, check := range svc.Checks {
		healthHandler.WithCheck(name, check)
	}
	engine.GET("/health", healthHandler.Health)
	engine.GET("/ready", healthHandler.Ready)
	engine.GET("/version", healthHandler.Version)

	// Metrics endpoint for Prometheus
	engine.GET("/metrics", gin.WrapH(promhttp.Handler()))

	if !cfg.IsProduction() {
		engine.GET("/debug/db-stats", healthHandler.DBStats)
	}

	authMiddleware := middleware.NewAuthMiddleware(db, cfg.JWTSecret, logger)

	userGroup := engine.Group("/user")
	auth.RegisterRoutes(userGroup, auth.NewHandler(db, logger, cfg, svc.Mailer))
	user.RegisterRoutes(userGroup, user.NewHandler(db, logger), authMiddleware)

	courseHandler := course.NewHandler(db, logger, svc.Images, svc.Events)
	course.RegisterRoutes(engine.Group("/course"), courseHandler, authMiddleware)

	adminHandler := admin.NewHandler(db, logger, cfg.LogDir)
	admin.RegisterRoutes(engine.Group("/admin"), adminHandler, authMiddleware)

	uploadHandler := upload.NewHandler(svc.Images, logger)
	upload.RegisterRoutes(engine.Group("/upload"), uploadHandler, authMiddleware)
}
