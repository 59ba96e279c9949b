package rest

import (
	"github.com/gin-gonic/gin"

	"github.com/trenches/ip-venue/internal/api/middleware"
)

// SetupRoutes configures all REST API routes
func SetupRoutes(router *gin.Engine, handler Handler, authCfg middleware.AuthConfig) {
	// Health check endpoint (no auth, no version prefix)
	router.GET("/health", handler.HealthCheck)

	// API v1 routes
	v1 := router.Group("/api/v1")
	{
		// Asset endpoints (public read access)
		v1.GET("/assets", handler.ListAssets)
		v1.GET("/assets/:id/price", handler.GetPrice)
		v1.GET("/assets/:id/trades", handler.GetTrades)
		v1.GET("/assets/:id/candles", handler.GetCandles)

		// Trade entry (requires authentication)
		v1.POST("/assets/:id/buy", middleware.Auth(authCfg), handler.BuyAsset)
		v1.POST("/assets/:id/sell", middleware.Auth(authCfg), handler.SellAsset)

		// Price migration (requires authentication)
		v1.POST("/assets/migrate-prices", middleware.Auth(authCfg), handler.MigratePrices)
	}
}
