package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	syncapp "github.com/shopino/backend/internal/application/sync"
	mahakdomain "github.com/shopino/backend/internal/domain/mahak"
	"github.com/shopino/backend/internal/infrastructure/cache"
	"github.com/shopino/backend/internal/infrastructure/config"
	"github.com/shopino/backend/internal/infrastructure/logger"
	"github.com/shopino/backend/internal/infrastructure/mahak"
	"github.com/shopino/backend/internal/infrastructure/persistence"
	"github.com/shopino/backend/internal/infrastructure/scheduler"
	"github.com/shopino/backend/internal/interfaces/http/handler"
	"github.com/shopino/backend/internal/interfaces/http/middleware"
	"github.com/shopino/backend/internal/interfaces/http/router"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	// Initialize logger
	log, err := logger.New(&logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		TimeFormat: "2006-01-02T15:04:05.000Z07:00",
	})
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() {
		_ = logger.Sync(log)
	}()

	log.Info("Starting Shopino Sync Backend",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
	)

	// Create GORM logger backed by zap
	gormLogLevel := logger.MapGormLogLevel(cfg.Log.Level)
	gormLog := logger.NewGormLogger(log, gormLogLevel)

	// Initialize database connection with custom logger
	db, err := persistence.NewDatabaseWithCustomLogger(&cfg.Database, gormLog)
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
	queueRepo := persistence.NewGormQueueRepository(db.DB)
	runRepo := persistence.NewGormSyncRunRepository(db.DB)
	errorRepo := persistence.NewGormErrorLogRepository(db.DB)
	baseMappingRepo := persistence.NewGormIdentityMappingRepository(db.DB)

	// Identity lookups sit on the hot path of every push, so they go through
	// a read-through cache. Redis when configured, in-process otherwise.
	var mappingStore cache.MappingStore
	if cfg.Redis.Host != "" {
		redisStore, err := cache.NewRedisMappingStore(cache.RedisOptions{
			Addr:     cfg.Redis.Addr(),
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err != nil {
			log.Fatal("Failed to connect to Redis", zap.Error(err))
		}
		defer func() {
			if err := redisStore.Close(); err != nil {
				log.Error("Error closing Redis connection", zap.Error(err))
			}
		}()
		mappingStore = redisStore
		log.Info("Redis mapping cache enabled", zap.String("addr", cfg.Redis.Addr()))
	} else {
		memStore := cache.NewInMemoryMappingStore()
		defer memStore.Close()
		mappingStore = memStore
		log.Info("In-memory mapping cache enabled")
	}
	mappingRepo := cache.NewCachedMappingRepository(baseMappingRepo, mappingStore, cfg.Sync.MappingCacheTTL, log)

	// Initialize the Mahak client
	var mahakClient mahakdomain.Client
	if cfg.Mahak.BaseURL != "" {
		client, err := mahak.NewHTTPClient(&mahak.Config{
			BaseURL:        cfg.Mahak.BaseURL,
			APIKey:         cfg.Mahak.APIKey,
			Username:       cfg.Mahak.Username,
			Password:       cfg.Mahak.Password,
			TimeoutSeconds: cfg.Mahak.TimeoutSeconds,
		})
		if err != nil {
			log.Fatal("Failed to initialize Mahak client", zap.Error(err))
		}
		mahakClient = client
		log.Info("Mahak client initialized", zap.String("base_url", cfg.Mahak.BaseURL))
	} else {
		mahakClient = mahak.NewDisabledClient()
		log.Warn("Mahak endpoint not configured; queued items will stay pending")
	}

	// Initialize the sync application service
	syncService := syncapp.NewService(queueRepo, mappingRepo, runRepo, errorRepo, mahakClient, log, cfg.Sync.RetryInterval)

	// Start the background drivers
	if cfg.Sync.Enabled {
		outgoingDriver, err := scheduler.NewOutgoingDriver(queueRepo, syncService, scheduler.OutgoingDriverConfig{
			BatchSize:    cfg.Sync.BatchSize,
			Interval:     cfg.Sync.OutgoingInterval,
			StartupDelay: cfg.Sync.StartupDelay,
		}, log)
		if err != nil {
			log.Fatal("Failed to create outgoing driver", zap.Error(err))
		}
		if err := outgoingDriver.Start(context.Background()); err != nil {
			log.Fatal("Failed to start outgoing driver", zap.Error(err))
		}
		defer func() {
			stopCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			if err := outgoingDriver.Stop(stopCtx); err != nil {
				log.Error("Error stopping outgoing driver", zap.Error(err))
			}
		}()

		reconciliationDriver, err := scheduler.NewReconciliationDriver(
			queueRepo, mappingRepo, runRepo, errorRepo, mahakClient, syncService,
			scheduler.ReconciliationDriverConfig{
				Schedule:          cfg.Sync.ReconciliationSchedule,
				BatchSize:         cfg.Sync.ReconciliationBatchSize,
				StaleClaimTimeout: cfg.Sync.StaleClaimTimeout,
				CleanupRetention:  cfg.Sync.CleanupRetention,
			}, log)
		if err != nil {
			log.Fatal("Failed to create reconciliation driver", zap.Error(err))
		}
		if err := reconciliationDriver.Start(context.Background()); err != nil {
			log.Fatal("Failed to start reconciliation driver", zap.Error(err))
		}
		defer func() {
			stopCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			if err := reconciliationDriver.Stop(stopCtx); err != nil {
				log.Error("Error stopping reconciliation driver", zap.Error(err))
			}
		}()

		log.Info("Sync drivers started",
			zap.Duration("outgoing_interval", cfg.Sync.OutgoingInterval),
			zap.String("reconciliation_schedule", cfg.Sync.ReconciliationSchedule),
		)
	} else {
		log.Info("Sync drivers disabled by configuration")
	}

	// Set Gin mode based on environment
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()

	// Configure trusted proxies
	if len(cfg.HTTP.TrustedProxies) > 0 {
		if err := engine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
			log.Warn("Failed to set trusted proxies", zap.Error(err))
		}
	}

	middleware.SetupValidator()

	// Middleware stack: request id, panic recovery, request logging,
	// security headers, CORS, body size and rate limits
	engine.Use(middleware.RequestID())
	engine.Use(logger.Recovery(log))
	engine.Use(logger.GinMiddleware(log))
	engine.Use(middleware.Secure())
	engine.Use(middleware.CORS())
	engine.Use(middleware.BodyLimit(cfg.HTTP.MaxBodyBytes))
	engine.Use(middleware.RateLimit(middleware.NewRateLimiter(cfg.HTTP.RateLimitRequests, cfg.HTTP.RateLimitWindow)))

	// Health check endpoint (outside API versioning)
	engine.GET("/health", healthHandler(db, log))

	// Register API routes
	r := router.NewRouter(engine, router.WithAPIVersion("v1"))
	r.Register(handler.NewSyncHandler(syncService))
	r.Register(handler.NewSystemHandler())
	r.Setup()

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

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown", zap.Error(err))
	}

	log.Info("Server exited gracefully")
}

// healthHandler returns a handler for health check endpoints
func healthHandler(db *persistence.Database, _ *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		reqLog := logger.GetGinLogger(c)
		if err := db.Ping(); err != nil {
			reqLog.Warn("Health check failed", zap.Error(err))
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
