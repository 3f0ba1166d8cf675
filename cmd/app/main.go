package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/mo-amir99/course-enrollment-server/internal/bootstrap"
	"github.com/mo-amir99/course-enrollment-server/internal/features/course"
	"github.com/mo-amir99/course-enrollment-server/internal/http/routes"
	"github.com/mo-amir99/course-enrollment-server/internal/realtime"
	"github.com/mo-amir99/course-enrollment-server/pkg/cache"
	"github.com/mo-amir99/course-enrollment-server/pkg/config"
	"github.com/mo-amir99/course-enrollment-server/pkg/database"
	"github.com/mo-amir99/course-enrollment-server/pkg/email"
	"github.com/mo-amir99/course-enrollment-server/pkg/health"
	"github.com/mo-amir99/course-enrollment-server/pkg/imagehost"
	"github.com/mo-amir99/course-enrollment-server/pkg/jobs"
	"github.com/mo-amir99/course-enrollment-server/pkg/logger"
	"github.com/mo-amir99/course-enrollment-server/pkg/metrics"
	"github.com/mo-amir99/course-enrollment-server/pkg/middleware"
	"github.com/mo-amir99/course-enrollment-server/pkg/request"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	appLogger, err := logger.New(cfg.LogLevel, cfg.LogDir)
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := database.Connect(ctx, cfg.Database, appLogger)
	if err != nil {
		appLogger.Error("database connection failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	defer func() {
		if err := database.Close(db, appLogger); err != nil {
			appLogger.Error("database close failed", slog.String("error", err.Error()))
		}
	}()

	if err := bootstrap.ApplyDatabaseMigrations(db, cfg, appLogger); err != nil {
		appLogger.Error("migrations failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	if err := bootstrap.EnsureDefaultAdmin(db, cfg.Admin, appLogger); err != nil {
		appLogger.Error("ensure default admin failed", slog.String("error", err.Error()))
	}

	services := routes.Services{
		Images: imagehost.New(cfg.ImageHost),
		Mailer: email.NewClient(cfg.Email),
		Events: course.NopPublisher{},
		Checks: map[string]health.Check{},
	}

	// Rate limit counters live in Redis when configured, otherwise in memory.
	var counter cache.Counter
	if cfg.Redis.Addr != "" {
		redisCounter, err := cache.NewRedisCounter(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, "course-enrollment")
		if err != nil {
			appLogger.Warn("redis unavailable, falling back to in-memory rate limiting", slog.String("error", err.Error()))
		} else {
			counter = redisCounter
			services.Checks["redis"] = redisCounter.Ping
		}
	}
	if counter == nil {
		counter = cache.NewMemoryCounter()
	}
	defer counter.Close()
	go middleware.SweepEvery(ctx, counter, time.Minute)

	var realtimeServer *realtime.Server
	if cfg.RealtimeEnabled {
		realtimeServer = realtime.NewServer(db, appLogger, cfg.JWTSecret)
		defer realtimeServer.Close()
		services.Events = realtimeServer
		appLogger.Info("socket.io server initialized")
	}

	scheduler := jobs.NewScheduler(appLogger)
	if spec := cfg.Jobs.OrphanAuditSchedule; spec != "" {
		if err := scheduler.AddJob(spec, course.NewOrphanAuditJob(db, appLogger)); err != nil {
			appLogger.Error("schedule orphan audit failed", slog.String("error", err.Error()))
			os.Exit(1)
		}
	}
	scheduler.Start()

	router := gin.New()

	// Socket.IO gets only recovery and CORS.
	router.Use(middleware.Recovery(appLogger))
	router.Use(middleware.CORS(cfg.AllowedOrigins))

	if realtimeServer != nil {
		router.GET("/socket.io/*any", gin.WrapH(realtimeServer.GetHandler()))
		router.POST("/socket.io/*any", gin.WrapH(realtimeServer.GetHandler()))
	}

	router.Use(middleware.RequestID())
	router.Use(middleware.RequestLogger(appLogger))
	router.Use(middleware.SecurityHeaders())
	router.Use(middleware.RequestSizeLimit(10 * 1024 * 1024)) // 10MB, above the 5MB image cap
	router.Use(metrics.Middleware())
	router.Use(request.Handler(appLogger))

	rateLimiter := middleware.NewRateLimiter(counter, cfg.RateLimit.Requests, cfg.RateLimit.Window, appLogger)
	router.Use(rateLimiter.Middleware())

	routes.Register(router, cfg, db, appLogger, services)

	srv := &http.Server{
		Addr:              cfg.ServerAddress(),
		Handler:           router,
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
		MaxHeaderBytes:    1 << 20, // 1MB
	}

	go func() {
		appLogger.Info("server starting",
			slog.String("addr", cfg.ServerAddress()),
			slog.String("env", cfg.Env),
			slog.String("log_level", cfg.LogLevel),
			slog.String("db_driver", cfg.Database.Driver),
		)

		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			appLogger.Error("server listen failed", slog.String("error", err.Error()))
			os.Exit(1)
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		appLogger.Error("server shutdown failed", slog.String("error", err.Error()))
	} else {
		appLogger.Info("server stopped gracefully")
	}

	if err := scheduler.Stop(shutdownCtx); err != nil {
		appLogger.Warn("scheduler stop timed out", slog.String("error", err.Error()))
	}
}
