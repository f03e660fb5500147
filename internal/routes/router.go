// Package routes wires the REST API.
package routes

import (
	"net/http"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"tg-task-tracker/internal/config"
	"tg-task-tracker/internal/handlers"
	"tg-task-tracker/internal/services"
)

const apiVersion = "1.0.0"

// SetupRouter builds the gin engine and registers every endpoint. updates is
// optional; when set, POST /webhook forwards Telegram updates to it.
func SetupRouter(db *gorm.DB, cfg *config.Config, svc *services.Services, log zerolog.Logger, updates handlers.UpdateHandler) *gin.Engine {
	r := gin.New()
	r.Use(RequestID(), RequestLogger(log), Recovery(log))

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = allowedOrigins(cfg)
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Accept", "Authorization", requestIDHeader}
	corsConfig.AllowCredentials = true
	r.Use(cors.New(corsConfig))

	taskHandler := handlers.NewTaskHandler(svc.Tasks, svc.Users, log)
	authHandler := handlers.NewAuthHandler(svc.Users, svc.JWT, log)

	r.GET("/", RootHandler)
	r.GET("/health", HealthHandler)
	r.GET("/health/db", func(c *gin.Context) {
		sqlDB, err := db.DB()
		if err == nil {
			err = sqlDB.PingContext(c.Request.Context())
		}
		if err != nil {
			log.Error().Err(err).Msg("database health check failed")
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unhealthy", "database": "unreachable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "healthy", "database": "reachable"})
	})

	if updates != nil {
		r.POST("/webhook", handlers.NewWebhookHandler(updates, cfg.Bot.WebhookSecret, log).ReceiveHandler)
	}

	api := r.Group("/api")
	api.Use(AuthMiddleware(svc.InitData, svc.JWT, log))
	{
		api.GET("/tasks", taskHandler.ListTasksHandler)
		api.POST("/tasks", taskHandler.CreateTaskHandler)
		api.GET("/tasks/stats", taskHandler.StatsHandler)
		api.GET("/tasks/:id", taskHandler.GetTaskHandler)
		api.PUT("/tasks/:id", taskHandler.UpdateTaskHandler)
		api.DELETE("/tasks/:id", taskHandler.DeleteTaskHandler)

		api.POST("/auth/token", authHandler.TokenHandler)
		api.GET("/me", authHandler.MeHandler)
	}

	return r
}

func allowedOrigins(cfg *config.Config) []string {
	origins := []string{}
	seen := map[string]bool{}
	for _, o := range []string{cfg.HTTP.FrontendURL, cfg.Bot.WebAppURL} {
		if o == "" || seen[o] {
			continue
		}
		seen[o] = true
		origins = append(origins, o)
	}
	if len(origins) == 0 {
		origins = append(origins, "http://localhost:3000")
	}
	return origins
}

// RootHandler describes the service.
func RootHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"message": "Task Tracker API", "version": apiVersion, "status": "running"})
}

// HealthHandler is the liveness probe.
func HealthHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "healthy"})
}
