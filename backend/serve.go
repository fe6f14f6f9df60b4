package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"golang.org/x/time/rate"
	"gorm.io/gorm/logger"

	"hrmspro/backend/internal/cache"
	"hrmspro/backend/internal/clock"
	"hrmspro/backend/internal/config"
	"hrmspro/backend/internal/database"
	"hrmspro/backend/internal/handlers"
	"hrmspro/backend/internal/lock"
	"hrmspro/backend/internal/middleware"
	"hrmspro/backend/internal/monitoring"
	"hrmspro/backend/internal/repositories"
	"hrmspro/backend/internal/repositories/memstore"
	"hrmspro/backend/internal/services"
	"hrmspro/backend/internal/storage"
	"hrmspro/backend/internal/utils"
)

// Application holds all application dependencies and state
type Application struct {
	Config *config.Config
	DB     *database.DatabasePool
	Store  repositories.Store
	Cache  cache.Cache
	Redis  *redis.Client
	Files  storage.FileStore
	Router *gin.Engine
	Server *http.Server

	// Services
	TaskService      services.TaskService
	CommentService   services.CommentService
	ReminderService  services.ReminderService
	EmployeeService  services.EmployeeService
	DashboardService services.DashboardService
	AuthService      *services.AuthServiceImpl
}

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadConfig()
			if err != nil {
				return fmt.Errorf("failed to load configuration: %w", err)
			}

			if cfg.IsProduction() {
				gin.SetMode(gin.ReleaseMode)
			}

			app, err := initializeApplication(cfg)
			if err != nil {
				return fmt.Errorf("failed to initialize application: %w", err)
			}

			app.setupRoutes()
			return app.startServer()
		},
	}
}

// openStore connects the configured backend. The returned pool is nil for
// the memory driver.
func openStore(cfg *config.Config, migrate bool) (repositories.Store, *database.DatabasePool, error) {
	if cfg.Database.Driver == "memory" {
		log.Println("⚠️  Using in-memory store, data is lost on restart")
		return memstore.New(), nil, nil
	}

	poolCfg := database.DefaultPoolConfig()
	poolCfg.Driver = cfg.Database.Driver
	poolCfg.DSN = cfg.GetDSN()
	poolCfg.MaxOpenConns = cfg.Database.MaxOpenConns
	poolCfg.MaxIdleConns = cfg.Database.MaxIdleConns
	poolCfg.ConnMaxLifetime = cfg.Database.ConnMaxLifetime
	poolCfg.ConnMaxIdleTime = cfg.Database.ConnMaxIdleTime
	if !cfg.IsProduction() {
		poolCfg.LogLevel = logger.Info
	}

	pool, err := database.NewDatabasePool(poolCfg)
	if err != nil {
		return nil, nil, fmt.Errorf("database connection failed: %w", err)
	}
	log.Println("✅ Database connected and configured")

	if migrate {
		if cfg.Database.Driver == database.DriverSQLite {
			if err := pool.AutoMigrate(); err != nil {
				pool.Close()
				return nil, nil, fmt.Errorf("schema auto-migration failed: %w", err)
			}
		} else if err := repositories.RunMigrations(pool.DB, migrationConfig(cfg)); err != nil {
			pool.Close()
			return nil, nil, fmt.Errorf("database migration failed: %w", err)
		}
	}

	return repositories.NewGormStore(pool.DB), pool, nil
}

func migrationConfig(cfg *config.Config) *repositories.MigrationConfig {
	mc := repositories.DefaultMigrationConfig()
	mc.MigrationsPath = cfg.Database.MigrationsPath
	mc.DBName = cfg.Database.Name
	return mc
}

// connectRedis returns nil when redis is disabled or unreachable.
func connectRedis(cfg *config.Config) *redis.Client {
	if !cfg.Redis.Enabled {
		return nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:         cfg.GetRedisAddr(),
		Password:     cfg.Redis.Password,
		DB:           cfg.Redis.DB,
		PoolSize:     cfg.Redis.PoolSize,
		MinIdleConns: cfg.Redis.MinIdleConns,
		MaxRetries:   cfg.Redis.MaxRetries,
		DialTimeout:  cfg.Redis.DialTimeout,
		ReadTimeout:  cfg.Redis.ReadTimeout,
		WriteTimeout: cfg.Redis.WriteTimeout,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		log.Printf("⚠️  Redis unavailable: %v (continuing with local cache and locks)", err)
		client.Close()
		return nil
	}
	log.Println("✅ Redis connected")
	return client
}

func initializeApplication(cfg *config.Config) (*Application, error) {
	app := &Application{
		Config: cfg,
	}

	log.Println("🚀 Initializing HRMS Pro Backend...")
	log.Printf("📋 Environment: %s", cfg.Server.Environment)

	store, pool, err := openStore(cfg, true)
	if err != nil {
		return nil, err
	}
	app.Store = store
	app.DB = pool

	app.Redis = connectRedis(cfg)

	var locker lock.Locker
	var redisCache *cache.RedisCache
	if app.Redis != nil {
		locker = lock.NewRedisLocker(app.Redis, cfg.Redis.LockTTL)
		redisCache = cache.NewRedisCache(app.Redis, "hrmspro:")
		log.Println("✅ Multi-level cache initialized (Memory L1 + Redis L2)")
	} else {
		locker = lock.NewKeyedMutex()
		log.Println("✅ Memory cache initialized")
	}
	app.Cache = cache.NewMultiLevelCache(redisCache)

	files, err := newFileStore(cfg)
	if err != nil {
		return nil, err
	}
	app.Files = files
	buckets := storage.Buckets{Manager: cfg.Storage.ManagerBucket, Operator: cfg.Storage.OperatorBucket}

	app.AuthService, err = services.NewAuthService(store, app.Cache, services.AuthConfig{
		Secret:       cfg.Auth.Secret,
		PublicKeyPEM: cfg.Auth.PublicKeyPEM,
		Issuer:       cfg.Auth.Issuer,
		Audience:     cfg.Auth.Audience,
		TokenTTL:     cfg.Auth.TokenTTL,
		CacheTTL:     cfg.Auth.UserCacheTTL,
	})
	if err != nil {
		return nil, fmt.Errorf("auth setup failed: %w", err)
	}

	clk := clock.Real()
	app.TaskService = services.NewTaskService(store, locker, files, buckets, clk)
	app.CommentService = services.NewCommentService(store, clk)
	app.ReminderService = services.NewReminderService(store, clk, services.ReminderConfig{
		WindowDays:   cfg.Reminders.WindowDays,
		DefaultHours: cfg.Reminders.DefaultHours,
	})
	app.EmployeeService = services.NewEmployeeService(store)
	app.DashboardService = services.NewDashboardService(store, clk)

	app.registerHealthChecks()

	log.Println("✅ All services initialized")

	return app, nil
}

func newFileStore(cfg *config.Config) (storage.FileStore, error) {
	if cfg.Storage.Driver == "supabase" {
		log.Printf("✅ Supabase storage at %s", cfg.Storage.SupabaseURL)
		return storage.NewSupabaseStore(cfg.Storage.SupabaseURL, cfg.Storage.SupabaseKey, cfg.Storage.Timeout), nil
	}
	files, err := storage.NewLocalStore(cfg.Storage.LocalDir, cfg.Storage.LocalBaseURL)
	if err != nil {
		return nil, fmt.Errorf("local storage setup failed: %w", err)
	}
	log.Printf("✅ Local file storage in %s", cfg.Storage.LocalDir)
	return files, nil
}

func (app *Application) registerHealthChecks() {
	if app.DB != nil {
		monitoring.RegisterHealthCheck("database", app.DB.Health)
	}
	if app.Redis != nil {
		monitoring.RegisterHealthCheck("redis", func(ctx context.Context) error {
			return app.Redis.Ping(ctx).Err()
		})
	}
}

func (app *Application) setupRoutes() {
	r := gin.New()

	// Global middleware stack (order matters!)
	r.Use(gin.Logger())
	r.Use(monitoring.MetricsMiddleware())
	r.Use(middleware.RecoveryWithLog())
	r.Use(middleware.SecureHeader())

	// Rate limiting
	rateLimit := rate.Limit(float64(app.Config.RateLimit.RequestsPerMin) / 60.0)
	r.Use(middleware.RateLimiter(rateLimit, app.Config.RateLimit.BurstSize))

	r.Use(cors.New(cors.Config{
		AllowOrigins:     app.Config.Server.AllowOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders:    []string{"Content-Length", "Retry-After"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	// Health and monitoring endpoints (no auth required)
	r.GET("/health", monitoring.HealthHandler())
	r.GET("/ready", monitoring.ReadinessHandler())
	r.GET("/live", monitoring.LivenessHandler())
	r.GET("/metrics", monitoring.MetricsHandler())
	r.GET("/metrics/cache", app.cacheStatsHandler())
	if app.DB != nil {
		r.GET("/metrics/database", func(c *gin.Context) {
			c.JSON(http.StatusOK, app.DB.Stats())
		})
	}

	if local, ok := app.Files.(*storage.LocalStore); ok {
		r.Static("/uploads", local.Dir())
	}

	v1 := r.Group("/api/v1")
	v1.Use(middleware.Authenticate(app.AuthService))
	if app.Redis != nil {
		limiter := middleware.NewDistributedRateLimiter(app.Redis)
		v1.Use(limiter.CreateMiddleware("user", &middleware.RateLimit{
			Rate:    app.Config.RateLimit.RequestsPerMin,
			Window:  time.Minute,
			KeyFunc: middleware.UserKeyFunc,
		}))
	}

	handlers.NewTaskHandler(app.TaskService).RegisterRoutes(v1)
	handlers.NewCommentHandler(app.CommentService).RegisterRoutes(v1)
	handlers.NewReminderHandler(app.ReminderService).RegisterRoutes(v1)
	handlers.NewEmployeeHandler(app.EmployeeService).RegisterRoutes(v1)
	handlers.NewDashboardHandler(app.DashboardService).RegisterRoutes(v1)

	app.Router = r
}

func (app *Application) startServer() error {
	addr := app.Config.GetServerAddr()

	app.Server = &http.Server{
		Addr:         addr,
		Handler:      app.Router,
		ReadTimeout:  app.Config.Server.ReadTimeout,
		WriteTimeout: app.Config.Server.WriteTimeout,
		IdleTimeout:  app.Config.Server.IdleTimeout,
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		<-quit

		log.Println("🛑 Shutting down server...")

		ctx, cancel := context.WithTimeout(context.Background(), utils.GetEnvAsDuration("SHUTDOWN_TIMEOUT", 30*time.Second))
		defer cancel()

		if err := app.Server.Shutdown(ctx); err != nil {
			log.Printf("❌ Server forced to shutdown: %v", err)
		}

		app.cleanup()
		log.Println("✅ Server stopped gracefully")
	}()

	log.Printf("🚀 Server starting on %s", addr)
	log.Printf("📊 Metrics available at http://%s/metrics", addr)
	log.Printf("💚 Health check at http://%s/health", addr)

	if err := app.Server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		app.cleanup()
		return fmt.Errorf("server failed to start: %w", err)
	}
	<-done
	return nil
}

func (app *Application) cleanup() {
	log.Println("🧹 Cleaning up resources...")

	// closing the cache also closes the shared redis client
	if app.Cache != nil {
		if err := app.Cache.Close(); err != nil {
			log.Printf("⚠️  Error closing cache: %v", err)
		}
	}

	if app.DB != nil {
		if err := app.DB.Close(); err != nil {
			log.Printf("⚠️  Error closing database: %v", err)
		}
	}

	log.Println("✅ Cleanup complete")
}

func (app *Application) cacheStatsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, app.Cache.Stats())
	}
}
