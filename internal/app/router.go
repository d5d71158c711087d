package app

import (
	"time"

	"github.com/courseforge/backend/docs"
	"github.com/courseforge/backend/internal/config"
	"github.com/courseforge/backend/internal/middleware"
	"github.com/courseforge/backend/pkg/monitoring"
	"github.com/courseforge/backend/pkg/security"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

func (a *App) registerRoutes(router *gin.Engine, c *controllers, cfg *config.Config, rdb *redis.Client) {
	docs.SwaggerInfo.BasePath = "/"
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler, ginSwagger.URL("/swagger/doc.json")))

	router.GET("/metrics", monitoring.PrometheusHandler())
	router.GET("/health", c.health.HealthCheck)

	api := router.Group("/api")
	{
		auth := api.Group("/auth")
		{
			auth.POST("/register", c.auth.Register)
			auth.POST("/login", c.auth.Login)
			auth.GET("/me", middleware.AuthMiddleware(cfg), c.auth.Me)
		}

		// Generation is expensive upstream, so it gets its own tighter limit
		// on top of the global one.
		strictWindow := time.Duration(cfg.RateLimit.StrictWindowMinutes) * time.Minute
		var strictStore security.VisitorStore
		if rdb != nil {
			strictStore = security.NewRedisVisitorStore(rdb, "ratelimit:upload", cfg.RateLimit.StrictMaxRequests, strictWindow)
		} else {
			memStore := security.NewMemoryVisitorStore(cfg.RateLimit.StrictMaxRequests, strictWindow)
			a.closers = append(a.closers, memStore.Close)
			strictStore = memStore
		}
		api.POST("/upload",
			middleware.TryAuthMiddleware(cfg),
			security.RateLimiter(strictStore),
			c.upload.Upload)

		generation := api.Group("/generation", middleware.TryAuthMiddleware(cfg))
		{
			generation.GET("/:id", c.generation.Get)
			generation.GET("/course/:courseId", c.generation.GetByCourse)
		}

		course := api.Group("/course", middleware.TryAuthMiddleware(cfg))
		{
			course.GET("", c.course.List)
			course.GET("/:id", c.course.Get)
			course.DELETE("/:id", c.course.Delete)
			course.GET("/:id/export/summary", c.course.ExportSummary)
			course.GET("/:id/export/quiz", c.course.ExportQuiz)
		}

		api.POST("/tutor/chat", middleware.TryAuthMiddleware(cfg), c.tutor.Chat)

		progress := api.Group("/progress", middleware.AuthMiddleware(cfg))
		{
			progress.GET("/:courseId", c.progress.Get)
			progress.POST("/:courseId/topic", c.progress.CompleteTopic)
			progress.POST("/:courseId/quiz", c.progress.RecordQuizScore)
		}
	}
}
