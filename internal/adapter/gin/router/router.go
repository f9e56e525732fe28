package router

import (
	"net/http"

	"github.com/gin-gonic/gin"
	httpSwagger "github.com/swaggo/http-swagger/v2"
	"go.uber.org/zap"

	"user-crud-service/api/openapi"
	"user-crud-service/internal/adapter/gin/handler"
	"user-crud-service/internal/adapter/gin/middleware"
	"user-crud-service/pkg/logger"
)

// Options toggles the optional parts of the router.
type Options struct {
	RateLimiter    *middleware.RateLimiter
	SwaggerEnabled bool
}

// SetupRouter configures and returns a Gin router with all routes and middleware
func SetupRouter(
	userHandler *handler.UserHandler,
	healthHandler *handler.HealthHandler,
	opts Options,
	log *zap.Logger,
) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()
	router.HandleMethodNotAllowed = true

	// Request id must run first so every later log line carries it.
	// Recovery sits inside Logger so recovered panics still get an access log line.
	router.Use(logger.RequestID())
	router.Use(middleware.Logger(log))
	router.Use(middleware.Recovery(log))

	router.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, handler.ErrorResponse{Error: handler.CodeNotFound, Message: "Not Found"})
	})
	router.NoMethod(func(c *gin.Context) {
		c.JSON(http.StatusMethodNotAllowed, handler.ErrorResponse{Error: "method_not_allowed", Message: "Method Not Allowed"})
	})

	router.GET("/health", healthHandler.Health)
	router.GET("/ready", healthHandler.Ready)

	users := router.Group("/users")
	if opts.RateLimiter != nil {
		users.Use(opts.RateLimiter.Middleware())
	}
	{
		users.GET("", userHandler.ListUsers)
		users.POST("", userHandler.CreateUser)
		users.GET("/:id", userHandler.GetUser)
		users.PUT("/:id", userHandler.UpdateUser)
		users.DELETE("/:id", userHandler.DeleteUser)
	}

	if opts.SwaggerEnabled {
		router.GET("/openapi.json", func(c *gin.Context) {
			c.Data(http.StatusOK, "application/json", openapi.Document)
		})
		router.GET("/swagger/*any", gin.WrapH(httpSwagger.Handler(httpSwagger.URL("/openapi.json"))))
	}

	return router
}
