// internal/api/routes/routes.go
package routes

import (
	"net/http"
	"time"

	"part-request-portal-api-server/config"
	"part-request-portal-api-server/internal/api/handlers"
	"part-request-portal-api-server/internal/api/middleware"
	"part-request-portal-api-server/internal/auth"
	"part-request-portal-api-server/internal/export"
	"part-request-portal-api-server/internal/logger"
	"part-request-portal-api-server/internal/models"
	"part-request-portal-api-server/internal/requests"
	"part-request-portal-api-server/internal/session"
	"part-request-portal-api-server/internal/socket"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Dependencies are the components the router wires into handlers.
type Dependencies struct {
	Config     config.Config
	Controller *requests.Controller
	Sessions   session.Store
	Tokens     *auth.Tokens
	Hub        *socket.Hub
	Exporter   *export.Exporter // nil disables exports
	Gatherer   prometheus.Gatherer
	Logger     *zap.Logger
}

// SetupRouter builds the gin engine with every API route.
func SetupRouter(deps Dependencies) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestID())
	router.Use(logger.GinMiddleware(deps.Logger))
	router.Use(cors.New(corsConfig(deps.Config.Server.AllowedOrigins)))

	requestHandler := &handlers.RequestHandler{Controller: deps.Controller, Sessions: deps.Sessions, Hub: deps.Hub, Logger: deps.Logger}
	authHandler := &handlers.AuthHandler{Sessions: deps.Sessions, Tokens: deps.Tokens, Admin: deps.Config.Admin, Hub: deps.Hub, Logger: deps.Logger}
	exportHandler := &handlers.ExportHandler{Controller: deps.Controller, Exporter: deps.Exporter, Logger: deps.Logger}
	webSocketHandler := &handlers.WebSocketHandler{Hub: deps.Hub, AllowedOrigins: deps.Config.Server.AllowedOrigins, Logger: deps.Logger}

	router.GET("/healthz", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })
	if deps.Gatherer != nil {
		router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{})))
	}

	authenticate := middleware.Authenticate(deps.Tokens, deps.Sessions, deps.Logger)

	apiV1 := router.Group("/api/v1")
	{
		// Public
		authRoutes := apiV1.Group("/auth")
		{
			authRoutes.POST("/login", authHandler.Login)
			authRoutes.POST("/session", authHandler.StartSession)
		}

		// Authenticated, either role
		protected := apiV1.Group("/")
		protected.Use(authenticate)
		{
			protected.GET("/ws", webSocketHandler.ServeWs)
			protected.GET("/auth/me", authHandler.Me)
			protected.POST("/auth/logout", authHandler.Logout)

			protected.GET("/requests", requestHandler.ListRequests)
			protected.POST("/requests", requestHandler.CreateRequest)
			protected.GET("/requests/:id", requestHandler.GetRequest)
			protected.POST("/requests/:id/finalize", requestHandler.FinalizeRequest)
		}

		// Administrator only
		admin := apiV1.Group("/requests")
		admin.Use(authenticate)
		admin.Use(middleware.Authorize(models.RoleAdmin))
		{
			admin.GET("/search", requestHandler.SearchRequests)
			admin.POST("/export", exportHandler.ExportRequests)
			admin.PUT("/:id", requestHandler.UpdateRequest)
			admin.DELETE("/:id", requestHandler.DeleteRequest)
			admin.PUT("/:id/status", requestHandler.SetStatus)
		}
	}

	return router
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", middleware.RequestIDHeader},
		ExposeHeaders:    []string{middleware.RequestIDHeader},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	for _, o := range origins {
		if o == "*" {
			cfg.AllowAllOrigins = true
			cfg.AllowCredentials = false
			return cfg
		}
	}
	cfg.AllowOrigins = origins
	if len(origins) == 0 {
		cfg.AllowAllOrigins = true
		cfg.AllowCredentials = false
	}
	return cfg
}
