package app

import (
	"github.com/gin-gonic/gin"
	"github.com/newrelic/go-agent/v3/integrations/nrgin"
	"github.com/newrelic/go-agent/v3/newrelic"
	"github.com/redis/go-redis/v9"

	"rideshare/internal/handler"
	"rideshare/internal/middleware"
)

// RouterDeps contains all dependencies needed for the router.
type RouterDeps struct {
	AuthHandler   *handler.AuthHandler
	UserHandler   *handler.UserHandler
	RideHandler   *handler.RideHandler
	HealthHandler *handler.HealthHandler
	Authenticator middleware.Authenticator
	CookieName    string
	RateLimiter   *middleware.IPRateLimiter
	CORSOrigins   []string
	RedisClient   *redis.Client
	NewRelicApp   *newrelic.Application
}

// NewRouter creates a new Gin router with all routes registered.
func NewRouter(deps RouterDeps) *gin.Engine {
	router := gin.New()

	// Global middleware.
	router.Use(gin.Recovery())
	router.Use(gin.Logger())
	router.Use(middleware.CORSMiddleware(deps.CORSOrigins))

	if deps.NewRelicApp != nil {
		router.Use(nrgin.Middleware(deps.NewRelicApp))
	}

	router.GET("/health", deps.HealthHandler.Check)

	authenticated := []gin.HandlerFunc{
		middleware.Auth(deps.Authenticator, deps.CookieName),
		middleware.NewRelicUser(),
		middleware.IdempotencyMiddleware(deps.RedisClient),
	}

	api := router.Group("/api")
	{
		authRoutes := api.Group("/auth")
		if deps.RateLimiter != nil {
			authRoutes.Use(middleware.RateLimit(deps.RateLimiter))
		}
		{
			authRoutes.POST("/register", deps.AuthHandler.Register)
			authRoutes.POST("/login", deps.AuthHandler.Login)
			authRoutes.GET("/logout", append(authenticated, deps.AuthHandler.Logout)...)
		}

		users := api.Group("/users", authenticated...)
		{
			users.GET("/admin/all", middleware.RequireAdmin(), deps.UserHandler.GetAll)

			self := users.Group("/:id", middleware.RequireSelfOrAdmin("id"))
			self.GET("", deps.UserHandler.GetUser)
			self.PATCH("", deps.UserHandler.UpdateUser)
			self.DELETE("", deps.UserHandler.DeleteUser)
		}

		rides := api.Group("/rides")
		{
			rides.GET("", deps.RideHandler.GetAll)
			rides.GET("/find", deps.RideHandler.FindRides)
			rides.GET("/:id", deps.RideHandler.GetRide)

			owned := rides.Group("", authenticated...)
			owned.POST("", deps.RideHandler.CreateRide)
			owned.PUT("/:id", deps.RideHandler.UpdateRide)
			owned.DELETE("/:id", deps.RideHandler.DeleteRide)
			owned.POST("/:id/join", deps.RideHandler.JoinRide)
		}
	}

	return router
}
