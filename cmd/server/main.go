package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/uptrace/opentelemetry-go-extra/otelgorm"
	"go.uber.org/zap"

	importapp "github.com/logistics/backend/internal/application/import"
	"github.com/logistics/backend/internal/application/progress"
	"github.com/logistics/backend/internal/domain/order"
	"github.com/logistics/backend/internal/infrastructure/config"
	"github.com/logistics/backend/internal/infrastructure/fileimport"
	"github.com/logistics/backend/internal/infrastructure/logger"
	"github.com/logistics/backend/internal/infrastructure/persistence"
	"github.com/logistics/backend/internal/infrastructure/runlock"
	"github.com/logistics/backend/internal/infrastructure/storage"
	"github.com/logistics/backend/internal/infrastructure/telemetry"
	"github.com/logistics/backend/internal/infrastructure/tracking"
	"github.com/logistics/backend/internal/interfaces/http/handler"
	"github.com/logistics/backend/internal/interfaces/http/middleware"
	"github.com/logistics/backend/internal/interfaces/http/router"
)

//	@title			Logistics Backend API
//	@version		1.0
//	@description	物流订单后台 API - 批量导入与异步物流单号对账系统

//	@contact.name	API Support
//	@contact.url	https://github.com/logistics/backend

//	@license.name	Apache 2.0
//	@license.url	http://www.apache.org/licenses/LICENSE-2.0.html

//	@host		localhost:8080
//	@BasePath	/api/v1

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	// Initialize logger
	log, err := logger.New(cfg.Log)
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() {
		_ = log.Sync()
	}()

	log.Info("Starting Logistics Backend",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
	)

	// Create GORM logger backed by zap
	gormLog := logger.NewGormLogger(log, logger.MapGormLogLevel(cfg.Log.Level))

	// Initialize database connection with custom logger
	db, err := persistence.NewDatabaseWithLogger(&cfg.Database, gormLog)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()
	log.Info("Database connected successfully")

	// Initialize repositories
	orderRepo := persistence.NewGormOrderRepository(db.DB)
	logRepo := persistence.NewGormOperationLogRepository(db.DB)

	// The import run lock lives in Redis so that only one run is active across
	// all instances. When Redis is unreachable at startup we fall back to an
	// in-process lock, which is only safe for single-instance deployments.
	var runLock importapp.RunLock
	redisLock, err := runlock.NewRedisRunLock(cfg.Redis, cfg.Sync.RunLockTTL)
	if err != nil {
		log.Warn("Redis unavailable, falling back to in-process run lock", zap.Error(err))
		runLock = runlock.NewMemoryRunLock(cfg.Sync.RunLockTTL)
	} else {
		runLock = redisLock
		defer func() {
			if err := redisLock.Close(); err != nil {
				log.Error("Error closing Redis run lock", zap.Error(err))
			}
		}()
		log.Info("Redis run lock connected", zap.String("addr", cfg.Redis.Addr()))
	}

	// Initialize telemetry
	ctx := context.Background()

	tracerProvider, err := telemetry.NewTracerProvider(ctx, telemetry.Config{
		Enabled:           cfg.Telemetry.Enabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		SamplingRatio:     cfg.Telemetry.SamplingRatio,
		ServiceName:       cfg.Telemetry.ServiceName,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize tracer provider", zap.Error(err))
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := tracerProvider.Shutdown(shutdownCtx); err != nil {
			log.Error("Error shutting down tracer provider", zap.Error(err))
		}
	}()

	if cfg.Telemetry.Enabled {
		if err := db.DB.Use(otelgorm.NewPlugin(otelgorm.WithDBName(cfg.Database.DBName))); err != nil {
			log.Warn("Failed to enable database tracing", zap.Error(err))
		}
	}

	meterProvider, err := telemetry.NewMeterProvider(ctx, telemetry.MetricsConfig{
		Enabled:           cfg.Telemetry.Enabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		ServiceName:       cfg.Telemetry.ServiceName,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize meter provider", zap.Error(err))
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := meterProvider.Shutdown(shutdownCtx); err != nil {
			log.Error("Error shutting down meter provider", zap.Error(err))
		}
	}()

	profiler, err := telemetry.NewProfiler(telemetry.ProfilerConfig{
		Enabled:         cfg.Telemetry.ProfilingEnabled,
		ServerAddress:   cfg.Telemetry.PyroscopeAddress,
		ApplicationName: cfg.Telemetry.ServiceName,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize profiler", zap.Error(err))
	}
	defer func() {
		if err := profiler.Stop(); err != nil {
			log.Error("Error stopping profiler", zap.Error(err))
		}
	}()

	// Span profiles connect traces to flame graphs; they need both the tracer
	// and the profiler running.
	if tracerProvider.IsEnabled() && profiler.IsEnabled() {
		if err := tracerProvider.EnableSpanProfiles(); err != nil {
			log.Warn("Failed to enable span profiles", zap.Error(err))
		}
	}

	importMetrics, err := telemetry.NewImportMetrics(meterProvider.Meter("logistics-backend"), log)
	if err != nil {
		log.Fatal("Failed to initialize import metrics", zap.Error(err))
	}

	// Initialize application services
	trackingClient := tracking.NewClient(cfg.Tracking, log)
	tracker := progress.NewTracker()
	reconciler := importapp.NewReconciler(trackingClient, orderRepo, tracker, log, importapp.ReconcilerConfig{
		Workers:      cfg.Sync.Workers,
		CallTimeout:  cfg.Sync.CallTimeout,
		Retries:      cfg.Sync.Retries,
		RetryBackoff: cfg.Sync.RetryBackoff,
	})
	validator := importapp.NewRowValidator(order.NewDepartmentSet(cfg.Import.Departments))
	coordinator := importapp.NewCoordinator(validator, orderRepo, logRepo, tracker, reconciler, runLock, log)

	// Uploaded import files are archived to object storage when configured
	var archiver storage.Archiver = storage.NoopArchiver{}
	if cfg.Storage.Enabled {
		s3Archiver, err := storage.NewS3Archiver(&cfg.Storage, log)
		if err != nil {
			log.Fatal("Failed to initialize S3 archiver", zap.Error(err))
		}
		if err := s3Archiver.EnsureBucket(ctx); err != nil {
			log.Fatal("Failed to prepare archive bucket", zap.Error(err))
		}
		archiver = s3Archiver
		log.Info("Import file archiving enabled", zap.String("bucket", cfg.Storage.Bucket))
	}

	// Initialize HTTP handlers
	importHandler := handler.NewImportHandler(
		coordinator,
		fileimport.NewCSVReader(cfg.Import.MaxRows),
		tracker,
		archiver,
		importMetrics,
		log,
		cfg.Import.MaxFileSize,
	)
	orderHandler := handler.NewOrderHandler(orderRepo, logRepo, log)
	operationLogHandler := handler.NewOperationLogHandler(logRepo)
	systemHandler := handler.NewSystemHandler(db)

	// Set Gin mode based on environment
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()

	if len(cfg.HTTP.TrustedProxies) > 0 {
		if err := engine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
			log.Fatal("Failed to set trusted proxies", zap.Error(err))
		}
	} else {
		if err := engine.SetTrustedProxies(nil); err != nil {
			log.Fatal("Failed to clear trusted proxies", zap.Error(err))
		}
	}

	// Middleware chain
	engine.Use(middleware.RequestID())
	engine.Use(logger.Recovery(log))
	engine.Use(logger.GinMiddleware(log))
	engine.Use(middleware.Secure())

	corsConfig := middleware.DefaultCORSConfig()
	corsConfig.AllowOrigins = cfg.HTTP.CORSAllowOrigins
	corsConfig.AllowMethods = cfg.HTTP.CORSAllowMethods
	corsConfig.AllowHeaders = cfg.HTTP.CORSAllowHeaders
	engine.Use(middleware.CORSWithConfig(corsConfig))

	engine.Use(middleware.BodyLimit(cfg.HTTP.MaxBodySize))

	if cfg.HTTP.RateLimitEnabled {
		rateLimiter := middleware.NewRateLimiter(cfg.HTTP.RateLimitRequests, cfg.HTTP.RateLimitWindow)
		engine.Use(middleware.RateLimit(rateLimiter))
		log.Info("Rate limiting enabled",
			zap.Int("requests", cfg.HTTP.RateLimitRequests),
			zap.Duration("window", cfg.HTTP.RateLimitWindow),
		)
	}

	if cfg.Telemetry.Enabled {
		engine.Use(middleware.Tracing(middleware.TracingConfig{
			ServiceName: cfg.Telemetry.ServiceName,
			Enabled:     true,
		}))
		engine.Use(middleware.SpanErrorMarker())
	}

	metricsMiddleware, err := middleware.HTTPMetrics(middleware.HTTPMetricsConfig{
		MeterProvider: meterProvider,
		ServiceName:   cfg.Telemetry.ServiceName,
		Enabled:       cfg.Telemetry.Enabled,
	})
	if err != nil {
		log.Fatal("Failed to initialize HTTP metrics middleware", zap.Error(err))
	}
	engine.Use(metricsMiddleware)

	// Root-level health endpoint for load balancers; the versioned
	// /system/health endpoint carries the same check.
	engine.GET("/health", healthHandler(db))

	router.NewRouter(engine,
		router.WithAPIVersion("v1"),
		router.WithSwagger(cfg.Swagger.Enabled),
	).
		Register(importHandler).
		Register(orderHandler).
		Register(operationLogHandler).
		Register(systemHandler).
		Setup()

	// Create HTTP server with config
	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	// Start server in goroutine
	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}

	// Stop the active reconciliation run so imported orders are left in a
	// consistent sync state rather than mid-flight.
	if coordinator.CancelActiveRun() {
		log.Info("Cancelled active reconciliation run")
	}

	log.Info("Server exited gracefully")
}

// healthHandler returns a handler for the root health check endpoint
func healthHandler(db *persistence.Database) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := db.Ping(); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":   "unhealthy",
				"time":     time.Now().Format(time.RFC3339),
				"database": "error",
			})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"status":   "healthy",
			"time":     time.Now().Format(time.RFC3339),
			"database": "ok",
		})
	}
}
