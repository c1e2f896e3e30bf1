package app

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"academy-backend/internal/authorization"
	"academy-backend/internal/background"
	"academy-backend/internal/config"
	"academy-backend/internal/handlers"
	"academy-backend/internal/middleware"
	"academy-backend/internal/models"
	"academy-backend/internal/repository"
	"academy-backend/internal/seed"
	"academy-backend/internal/service"
	"academy-backend/pkg/cache"
	"academy-backend/pkg/logger"
)

type Application struct {
	cfg *config.Config

	db    *gorm.DB
	cache *cache.Cache

	repositories repositoryContainer
	services     serviceContainer
	handlers     handlerContainer

	tasks       *background.Runner
	rateLimits  *middleware.RateLimitManager
	cancelState context.CancelFunc

	router *gin.Engine
	server *http.Server
}

type repositoryContainer struct {
	Catalog  repository.CatalogRepository
	Access   repository.AccessRepository
	Progress repository.ProgressRepository
}

type serviceContainer struct {
	Catalog  *service.CatalogService
	Access   *service.AccessService
	Progress *service.ProgressService
}

type handlerContainer struct {
	Course   *handlers.CourseHandler
	Progress *handlers.ProgressHandler
	Catalog  *handlers.CatalogHandler
	Access   *handlers.AccessHandler
}

func New(cfg *config.Config) (*Application, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}

	app := &Application{cfg: cfg}

	if err := app.initDatabase(); err != nil {
		return nil, err
	}

	if err := app.runMigrations(); err != nil {
		return nil, err
	}

	app.initCache()
	app.initRepositories()
	app.initServices()

	if err := seed.ImportCatalog(context.Background(), app.services.Catalog, cfg.CatalogSeedFile); err != nil {
		return nil, fmt.Errorf("failed to import catalog seed: %w", err)
	}

	app.initHandlers()

	stateCtx, cancel := context.WithCancel(context.Background())
	app.cancelState = cancel
	app.rateLimits = middleware.NewRateLimitManager(stateCtx)

	if err := app.initScheduler(stateCtx); err != nil {
		cancel()
		return nil, err
	}

	app.initRouter()

	app.server = &http.Server{
		Addr:           ":" + cfg.Port,
		Handler:        app.router,
		ReadTimeout:    10 * time.Second,
		WriteTimeout:   10 * time.Second,
		MaxHeaderBytes: 1 << 20,
	}

	return app, nil
}

func (a *Application) Run() error {
	logger.Info("Server starting", map[string]interface{}{
		"port":        a.cfg.Port,
		"environment": a.cfg.Environment,
	})

	return a.server.ListenAndServe()
}

func (a *Application) Shutdown(ctx context.Context) error {
	if a.server != nil {
		if err := a.server.Shutdown(ctx); err != nil {
			return err
		}
	}

	if a.tasks != nil {
		if err := a.tasks.Shutdown(ctx); err != nil {
			logger.Error(err, "Background jobs did not stop in time", nil)
		}
	}

	if a.rateLimits != nil {
		_ = a.rateLimits.Shutdown()
	}

	if a.cancelState != nil {
		a.cancelState()
	}

	if a.cache != nil {
		if err := a.cache.Close(); err != nil {
			logger.Error(err, "Failed to close cache connection", nil)
		}
	}

	if a.db != nil {
		if sqlDB, err := a.db.DB(); err == nil {
			sqlDB.Close()
		}
	}

	return nil
}

func (a *Application) Router() *gin.Engine {
	return a.router
}

func (a *Application) initDatabase() error {
	logger.Info("Connecting to database", map[string]interface{}{"host": a.cfg.DBHost, "database": a.cfg.DBName})

	db, err := gorm.Open(postgres.Open(a.cfg.DatabaseURL), &gorm.Config{
		Logger: logger.NewGormLogger(),
	})
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to get database instance: %w", err)
	}

	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(100)
	sqlDB.SetConnMaxLifetime(time.Hour)

	a.db = db
	return nil
}

func (a *Application) runMigrations() error {
	if a.db == nil {
		return fmt.Errorf("database connection is not initialized")
	}

	logger.Info("Running database migrations", nil)

	if err := a.db.AutoMigrate(
		&models.Course{},
		&models.Chapter{},
		&models.Lesson{},
		&models.CourseAccess{},
		&models.CourseProgress{},
		&models.LessonProgress{},
	); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}

	logger.Info("Database migration completed", nil)
	return nil
}

// initCache degrades to an uncached catalog when redis is unreachable.
func (a *Application) initCache() {
	cacheService, err := cache.NewCache(a.cfg.RedisURL, a.cfg.EnableCache)
	if err != nil {
		logger.Error(err, "Redis unavailable, catalog cache disabled", nil)
		cacheService, _ = cache.NewCache("", false)
	}
	a.cache = cacheService
}

func (a *Application) initRepositories() {
	a.repositories = repositoryContainer{
		Catalog:  repository.NewCatalogRepository(a.db),
		Access:   repository.NewAccessRepository(a.db),
		Progress: repository.NewProgressRepository(a.db),
	}
}

func (a *Application) initServices() {
	catalog := service.NewCatalogService(a.repositories.Catalog, a.cache, a.cfg.CatalogCacheTTL)
	access := service.NewAccessService(a.repositories.Access, a.repositories.Catalog)

	a.services = serviceContainer{
		Catalog:  catalog,
		Access:   access,
		Progress: service.NewProgressService(catalog, access, a.repositories.Progress, a.cfg.CompletionThreshold),
	}
}

func (a *Application) initHandlers() {
	a.handlers = handlerContainer{
		Course:   handlers.NewCourseHandler(a.services.Catalog, a.services.Progress),
		Progress: handlers.NewProgressHandler(a.services.Progress),
		Catalog:  handlers.NewCatalogHandler(a.services.Catalog),
		Access:   handlers.NewAccessHandler(a.services.Access),
	}
}

func (a *Application) initScheduler(ctx context.Context) error {
	a.tasks = background.NewRunner()
	a.tasks.Start(ctx)

	if a.cfg.ReconcileInterval <= 0 {
		logger.Info("Progress reconciliation disabled", nil)
		return nil
	}

	if err := a.tasks.Every(background.NewReconcileTask(a.services.Progress, a.cfg.ReconcileInterval)); err != nil {
		return fmt.Errorf("failed to schedule progress reconciliation: %w", err)
	}

	logger.Info("Progress reconciliation scheduled", map[string]interface{}{"interval": a.cfg.ReconcileInterval.String()})
	return nil
}

func (a *Application) initRouter() {
	if a.cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestIDMiddleware())
	router.Use(logger.GinLogger())
	if a.cfg.EnableMetrics {
		router.Use(middleware.MetricsMiddleware())
	}
	router.Use(middleware.SecurityHeadersMiddleware())
	router.Use(middleware.WithRateLimitManager(a.rateLimits))
	router.Use(middleware.RateLimitMiddleware(a.cfg))

	router.Use(cors.New(cors.Config{
		AllowOrigins:     a.cfg.CORSOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", "X-Request-ID"},
		ExposeHeaders:    []string{"Content-Length", "X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	router.GET("/health", func(c *gin.Context) {
		status := http.StatusOK
		body := gin.H{
			"status": "healthy",
			"time":   time.Now().Format(time.RFC3339),
			"cache":  a.cache.Enabled(),
		}
		if sqlDB, err := a.db.DB(); err != nil || sqlDB.PingContext(c.Request.Context()) != nil {
			status = http.StatusServiceUnavailable
			body["status"] = "degraded"
		}
		c.JSON(status, body)
	})

	if a.cfg.EnableMetrics {
		router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	}

	v1 := router.Group("/api/v1")
	{
		learner := v1.Group("/courses")
		learner.Use(middleware.LearnerMiddleware(a.cfg))
		{
			learner.GET("", a.handlers.Course.List)
			learner.GET("/:courseId", a.handlers.Course.Get)
			learner.GET("/:courseId/next", a.handlers.Course.Next)
			learner.GET("/:courseId/previous", a.handlers.Course.Previous)

			learner.GET("/:courseId/progress", a.handlers.Progress.Get)
			learner.POST("/:courseId/select", a.handlers.Progress.Select)
			learner.POST("/:courseId/progress", middleware.ProgressRateLimitMiddleware(a.cfg), a.handlers.Progress.Record)
			learner.POST("/:courseId/lessons/:lessonId/complete", middleware.ProgressRateLimitMiddleware(a.cfg), a.handlers.Progress.Complete)
		}

		admin := v1.Group("/admin")
		admin.Use(middleware.AuthMiddleware(a.cfg.JWTSecret))
		{
			catalog := admin.Group("/courses")
			catalog.Use(middleware.RequirePermission(authorization.PermissionManageCatalog))
			{
				catalog.POST("", a.handlers.Catalog.CreateCourse)
				catalog.PUT("/:courseId", a.handlers.Catalog.UpdateCourse)
				catalog.DELETE("/:courseId", a.handlers.Catalog.DeleteCourse)

				catalog.POST("/:courseId/chapters", a.handlers.Catalog.CreateChapter)
				catalog.PUT("/:courseId/chapters/order", a.handlers.Catalog.ReorderChapters)
				catalog.PUT("/:courseId/chapters/:chapterId", a.handlers.Catalog.UpdateChapter)
				catalog.DELETE("/:courseId/chapters/:chapterId", a.handlers.Catalog.DeleteChapter)

				catalog.POST("/:courseId/chapters/:chapterId/lessons", a.handlers.Catalog.CreateLesson)
				catalog.PUT("/:courseId/chapters/:chapterId/lessons/order", a.handlers.Catalog.ReorderLessons)
				catalog.PUT("/:courseId/lessons/:lessonId", a.handlers.Catalog.UpdateLesson)
				catalog.DELETE("/:courseId/lessons/:lessonId", a.handlers.Catalog.DeleteLesson)
			}

			access := admin.Group("/courses/:courseId/access")
			access.Use(middleware.RequirePermission(authorization.PermissionGrantAccess))
			{
				access.POST("", a.handlers.Access.Grant)
				access.DELETE("", a.handlers.Access.Revoke)
			}

			admin.DELETE("/cache", middleware.RequirePermission(authorization.PermissionManageCache), a.handlers.Catalog.FlushCache)
		}
	}

	router.NoRoute(func(c *gin.Context) {
		if strings.HasPrefix(c.Request.URL.Path, "/api") {
			c.JSON(http.StatusNotFound, gin.H{
				"error": "Route not found",
				"path":  c.Request.URL.Path,
			})
			return
		}
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	})

	a.router = router
}
