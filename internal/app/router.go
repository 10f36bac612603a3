package app

import (
	"github.com/gin-gonic/gin"
	"github.com/newrelic/go-agent/v3/integrations/nrgin"
	"github.com/newrelic/go-agent/v3/newrelic"
	"github.com/redis/go-redis/v9"

	"scrap/internal/domain"
	"scrap/internal/handler"
	"scrap/internal/middleware"
)

// RouterDeps contains all dependencies needed for the router.
type RouterDeps struct {
	PickupHandler    *handler.PickupHandler
	CollectorHandler *handler.CollectorHandler
	WalletHandler    *handler.WalletHandler
	AdminHandler     *handler.AdminHandler
	PricingHandler   *handler.PricingHandler
	Auth             *middleware.AuthMiddleware
	RedisClient      redis.Cmdable
	NewRelicApp      *newrelic.Application
}

// NewRouter creates a new Gin router with all routes registered.
func NewRouter(deps RouterDeps) *gin.Engine {
	router := gin.New()

	// Global middleware.
	router.Use(gin.Recovery())
	router.Use(gin.Logger())
	router.Use(middleware.CORSMiddleware())

	if deps.NewRelicApp != nil {
		router.Use(nrgin.Middleware(deps.NewRelicApp))
	}

	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	v1 := router.Group("/v1")

	// The price list is public.
	v1.GET("/pricing", deps.PricingHandler.List)

	api := v1.Group("", deps.Auth.Handler())
	if deps.RedisClient != nil {
		api.Use(middleware.IdempotencyMiddleware(deps.RedisClient))
	}
	{
		pickups := api.Group("/pickups")
		{
			pickups.POST("", middleware.RequireRole(domain.RoleCustomer), deps.PickupHandler.CreatePickup)
			pickups.GET("", deps.PickupHandler.ListPickups)
			pickups.GET("/:id", deps.PickupHandler.GetPickup)
			pickups.POST("/:id/cancel", deps.PickupHandler.CancelPickup)
		}

		collector := api.Group("/collector", middleware.RequireRole(domain.RoleCollector))
		{
			collector.GET("/me", deps.CollectorHandler.Profile)
			collector.GET("/me/earnings", deps.CollectorHandler.Earnings)
			collector.GET("/pickups/available", deps.CollectorHandler.AvailablePickups)
			collector.POST("/pickups/:id/accept", deps.CollectorHandler.AcceptPickup)
			collector.POST("/pickups/:id/start", deps.CollectorHandler.StartPickup)
			collector.POST("/pickups/:id/weigh", deps.CollectorHandler.SubmitWeights)
			collector.POST("/pickups/:id/complete", deps.CollectorHandler.CompletePickup)
		}

		wallet := api.Group("/wallet")
		{
			wallet.GET("/balance", deps.WalletHandler.Balance)
			wallet.GET("/transactions", deps.WalletHandler.Transactions)
			wallet.POST("/payouts", deps.WalletHandler.RequestPayout)
		}

		admin := api.Group("/admin", middleware.RequireRole(domain.RoleAdmin))
		{
			admin.POST("/pickups/:id/settle", deps.AdminHandler.Settle)
			admin.POST("/pricing/invalidate", deps.AdminHandler.InvalidatePricing)
		}
	}

	return router
}
