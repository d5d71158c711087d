package app

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/courseforge/backend/internal/config"
	"github.com/courseforge/backend/internal/controller"
	"github.com/courseforge/backend/internal/repository"
	"github.com/courseforge/backend/internal/service"
	"github.com/courseforge/backend/pkg/database"
	"github.com/courseforge/backend/pkg/logger"
	"github.com/courseforge/backend/pkg/monitoring"
	"github.com/courseforge/backend/pkg/security"
	"github.com/courseforge/backend/pkg/tracing"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type App struct {
	Config   *config.Config
	Router   *gin.Engine
	DB       *gorm.DB
	Redis    *redis.Client
	repos    *repositories
	services *services

	sweeperStop chan struct{}
	closers     []func()
}

type repositories struct {
	user       *repository.UserRepository
	generation *repository.GenerationRepository
	course     *repository.CourseRepository
	progress   *repository.ProgressRepository
}

type services struct {
	auth       *service.AuthService
	storage    *service.StorageService
	extraction *service.ExtractionService
	synthesis  *service.SynthesisService
	generation *service.GenerationService
	course     *service.CourseService
	tutor      *service.TutorService
	progress   *service.ProgressService
}

type controllers struct {
	auth       *controller.AuthController
	upload     *controller.UploadController
	generation *controller.GenerationController
	course     *controller.CourseController
	tutor      *controller.TutorController
	progress   *controller.ProgressController
	health     *controller.HealthController
}

func (a *App) initRepositories(db *gorm.DB) *repositories {
	return &repositories{
		user:       repository.NewUserRepository(db),
		generation: repository.NewGenerationRepository(db),
		course:     repository.NewCourseRepository(db),
		progress:   repository.NewProgressRepository(db),
	}
}

func (a *App) initServices(repos *repositories, cfg *config.Config, rdb *redis.Client) *services {
	s := &services{}

	s.storage = service.NewStorageService(cfg)
	s.auth = service.NewAuthService(repos.user, cfg)
	s.extraction = service.NewExtractionService(cfg.Extraction)
	s.synthesis = service.NewSynthesisService(cfg.AI)
	s.generation = service.NewGenerationService(repos.generation, repos.course, s.extraction, s.synthesis, s.storage)
	s.course = service.NewCourseService(repos.course, rdb)
	s.tutor = service.NewTutorService(cfg.AI)
	s.progress = service.NewProgressService(repos.progress, s.course)

	return s
}

func (a *App) initControllers(s *services, db *gorm.DB) *controllers {
	return &controllers{
		auth:       controller.NewAuthController(s.auth),
		upload:     controller.NewUploadController(s.generation),
		generation: controller.NewGenerationController(a.repos.generation),
		course:     controller.NewCourseController(s.course),
		tutor:      controller.NewTutorController(s.tutor, s.course),
		progress:   controller.NewProgressController(s.progress),
		health:     controller.NewHealthController(db),
	}
}

func (a *App) setupMiddlewares(router *gin.Engine, cfg *config.Config, rdb *redis.Client) {
	router.Use(security.CORS(cfg.CORS.AllowedOrigins))
	router.Use(security.Secure())

	window := time.Duration(cfg.RateLimit.WindowMinutes) * time.Minute
	var store security.VisitorStore
	if rdb != nil {
		store = security.NewRedisVisitorStore(rdb, "ratelimit", cfg.RateLimit.MaxRequests, window)
	} else {
		memStore := security.NewMemoryVisitorStore(cfg.RateLimit.MaxRequests, window)
		a.closers = append(a.closers, memStore.Close)
		store = memStore
	}
	router.Use(security.RateLimiter(store))

	if cfg.Tracing.Enabled {
		router.Use(tracing.GinMiddleware())
	}

	router.Use(monitoring.MetricsMiddleware())
}

// startSweeper deletes generation job records past their TTL. Expiry bounds
// storage from abandoned jobs; a record removed mid-poll shows up to the
// client as 404, which it treats the same as a failed job.
func (a *App) startSweeper(repos *repositories, ttl time.Duration) {
	a.sweeperStop = make(chan struct{})
	go func() {
		ticker := time.NewTicker(time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				removed, err := repos.generation.DeleteExpired(ttl)
				if err != nil {
					logger.Log.Error("generation sweep failed", zap.Error(err))
					continue
				}
				if removed > 0 {
					logger.Log.Info("expired generation jobs removed", zap.Int64("count", removed))
				}
			case <-a.sweeperStop:
				return
			}
		}
	}()
}

// ReloadAIConfig swaps the synthesis and tutor backends, invoked by the
// config watcher on file change.
func (a *App) ReloadAIConfig(cfg *config.Config) {
	a.services.synthesis.UpdateConfig(cfg.AI)
	a.services.tutor.UpdateConfig(cfg.AI)
	logger.Log.Info("AI backend configuration reloaded")
}

func NewApp(cfg *config.Config) *App {
	logger.InitLogger(cfg.Server.Mode)

	logger.Log.Info("Logger initialized successfully")

	db, err := database.InitDB(&cfg.Database)
	if err != nil {
		logger.Log.Fatal("Failed to initialize database", zap.Error(err))
	}

	rdb, err := database.InitRedis(&cfg.Redis)
	if err != nil {
		logger.Log.Warn("Redis unavailable, caching and distributed rate limiting disabled", zap.Error(err))
		rdb = nil
	}

	app := &App{
		Config: cfg,
		DB:     db,
		Redis:  rdb,
	}

	repos := app.initRepositories(db)
	app.repos = repos
	services := app.initServices(repos, cfg, rdb)
	app.services = services
	controllers := app.initControllers(services, db)

	monitoring.Init()

	if cfg.Server.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.Default()
	app.Router = router

	app.setupMiddlewares(router, cfg, rdb)

	if cfg.Tracing.Enabled {
		if _, err := tracing.InitTracer("courseforge", cfg.Tracing.CollectorEndpoint); err != nil {
			logger.Log.Fatal("Failed to initialize tracing", zap.Error(err))
		}
	}

	app.registerRoutes(router, controllers, cfg, rdb)

	if cfg.Storage.Type == "local" {
		router.Static("/uploads", cfg.Storage.LocalPath)
	}

	app.startSweeper(repos, cfg.Generation.JobTTL)

	return app
}

func (a *App) Run() {
	srv := &http.Server{
		Addr:    ":" + a.Config.Server.Port,
		Handler: a.Router,
	}

	go func() {
		logger.Log.Info("Server running", zap.String("port", a.Config.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %s\n", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Log.Info("Shutting down server")

	if a.sweeperStop != nil {
		close(a.sweeperStop)
	}
	for _, closeFn := range a.closers {
		closeFn()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown:", err)
	}

	logger.Log.Info("Server exiting")
	logger.Log.Sync()
}
