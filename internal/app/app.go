// Package app assembles services, handlers and routes into a gin engine.
// The server binary and the end-to-end tests share it.
package app

import (
	"log"
	"net/http"
	"os"
	"time"

	"github.com/finscale/finscale-api/internal/config"
	"github.com/finscale/finscale-api/internal/handler"
	"github.com/finscale/finscale-api/internal/middleware"
	"github.com/finscale/finscale-api/internal/model"
	"github.com/finscale/finscale-api/internal/repository"
	"github.com/finscale/finscale-api/internal/service"
	"github.com/finscale/finscale-api/internal/ws"
	"github.com/finscale/finscale-api/pkg/auth"
	"github.com/finscale/finscale-api/pkg/notification"
	"github.com/finscale/finscale-api/pkg/ratelimit"
	"github.com/finscale/finscale-api/pkg/storage"
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// Deps are the infrastructure pieces the API runs on. Optional ones may be nil:
// Sender falls back to logging, Verifier and Storage answer 503.
type Deps struct {
	Config      *config.Config
	Repos       repository.Repositories
	JWT         *auth.JWTManager
	Blacklist   auth.Blacklist
	APILimiter  ratelimit.Limiter
	AuthLimiter ratelimit.Limiter
	Hub         *ws.Hub
	Sender      notification.Sender
	Mailer      service.Mailer
	Verifier    service.IdentityVerifier
	Storage     storage.Storage
}

// App exposes the router plus the services background jobs need
type App struct {
	Router        *gin.Engine
	Shifts        *service.ShiftService
	Notifications *service.NotificationService
}

func New(d Deps) *App {
	cfg := d.Config
	loc := cfg.App.Location()

	handler.RegisterValidation()

	// Services
	var events service.EventPublisher
	if d.Hub != nil {
		events = d.Hub
	}
	notificationService := service.NewNotificationService(d.Repos, d.Sender)
	authService := service.NewAuthService(d.Repos, d.JWT, d.Blacklist, d.Mailer, d.Verifier)
	userService := service.NewUserService(d.Repos, d.Storage)
	shiftService := service.NewShiftService(d.Repos.Shifts, notificationService, events, loc)
	statsService := service.NewStatisticsService(d.Repos.Shifts, loc)

	// Handlers
	authHandler := handler.NewAuthHandler(authService)
	userHandler := handler.NewUserHandler(userService)
	shiftHandler := handler.NewShiftHandler(shiftService, loc)
	statsHandler := handler.NewStatisticsHandler(statsService, loc)
	notificationHandler := handler.NewNotificationHandler(notificationService)

	router := gin.Default()
	router.Use(middleware.CORSMiddleware(cfg.CORS.Origins))
	router.Use(middleware.SecurityHeaders())

	serveDocs(router, cfg.App.DocsPath)

	// Health check
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":      "ok",
			"service":     "finscale-api",
			"data_source": cfg.App.DataSource,
			"time":        time.Now().Format(time.RFC3339),
		})
	})

	requireAuth := middleware.AuthMiddleware(d.JWT, d.Blacklist)
	managers := middleware.RequireRole(model.RoleManager, model.RoleAdmin)

	// ==================== API Routes ====================
	api := router.Group("/api/v1")
	api.Use(middleware.RateLimit(d.APILimiter, "api"))
	{
		// Auth routes (public)
		authGroup := api.Group("/auth")
		authGroup.Use(middleware.RateLimit(d.AuthLimiter, "auth"))
		{
			authGroup.POST("/register", authHandler.Register)
			authGroup.POST("/login", authHandler.Login)
			authGroup.POST("/firebase", authHandler.FirebaseLogin)
			authGroup.POST("/forgot-password", authHandler.ForgotPassword)
			authGroup.POST("/reset-password", authHandler.ResetPassword)
		}

		// Protected routes
		protected := api.Group("")
		protected.Use(requireAuth)
		{
			// Auth
			protected.POST("/auth/logout", authHandler.Logout)
			protected.GET("/auth/me", authHandler.Me)
			protected.PUT("/auth/password", authHandler.ChangePassword)

			// Users
			protected.GET("/users", userHandler.List)
			protected.GET("/users/:id", userHandler.Get)
			protected.PUT("/users/me", userHandler.UpdateMe)
			protected.PUT("/users/me/notifications", userHandler.UpdateNotificationSettings)
			protected.POST("/users/me/avatar", userHandler.UploadAvatar)
			protected.DELETE("/users/me", userHandler.DeleteMe)

			// Shifts
			protected.GET("/shifts", shiftHandler.List)
			protected.GET("/shifts/mine", shiftHandler.Mine)
			protected.GET("/shifts/:id", shiftHandler.Get)
			protected.POST("/shifts", managers, shiftHandler.Create)
			protected.PUT("/shifts/:id", managers, shiftHandler.Update)
			protected.DELETE("/shifts/:id", managers, shiftHandler.Delete)
			protected.POST("/shifts/:id/book", shiftHandler.Book)
			protected.POST("/shifts/:id/release", shiftHandler.Release)
			protected.POST("/shifts/:id/complete", shiftHandler.Complete)
			protected.POST("/shifts/:id/cancel", managers, shiftHandler.Cancel)

			// Statistics
			protected.GET("/statistics", statsHandler.Mine)
			protected.GET("/statistics/overview", managers, statsHandler.Overview)
			protected.GET("/statistics/export", statsHandler.Export)
		}
	}

	// Notifications keep their unversioned prefix
	notifications := router.Group("/api/notifications")
	notifications.Use(middleware.RateLimit(d.APILimiter, "api"), requireAuth)
	{
		notifications.GET("", notificationHandler.List)
		notifications.POST("/token", notificationHandler.RegisterToken)
		notifications.DELETE("/token", notificationHandler.UnregisterToken)
		notifications.POST("/send", managers, notificationHandler.Send)
		notifications.PUT("/:id/read", notificationHandler.MarkRead)
	}

	// WebSocket endpoint (auth via query parameter)
	if d.Hub != nil {
		wsHandler := handler.NewWSHandler(d.Hub, d.JWT, d.Blacklist)
		router.GET("/ws", wsHandler.HandleWebSocket)
	}

	return &App{
		Router:        router,
		Shifts:        shiftService,
		Notifications: notificationService,
	}
}

// serveDocs exposes a pre-built swagger.json and the Swagger UI when the file exists
func serveDocs(router *gin.Engine, path string) {
	if path == "" {
		return
	}
	if _, err := os.Stat(path); err != nil {
		log.Printf("📄 No swagger file at %s, API docs disabled", path)
		return
	}

	// Serve swagger.json at /docs/swagger.json to avoid conflict with /swagger/* wildcard
	router.StaticFile("/docs/swagger.json", path)
	url := ginSwagger.URL("/docs/swagger.json")
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler, url))
}
