package api

import (
	"github.com/gin-gonic/gin"
)

func SetupRoutes(router *gin.Engine, handler *Handler) {
	api := router.Group("/api")
	{
		api.GET("/meta", handler.GetMeta)
		api.GET("/towns", handler.ListTowns)
		api.GET("/health", handler.Health)

		api.POST("/search/trends", handler.SearchTrends)
		api.POST("/search/transactions", handler.SearchTransactions)
		api.POST("/compare/towns", handler.CompareTowns)
		api.POST("/affordability", handler.SolveAffordability)

		api.POST("/amenities/upload", handler.IngestAmenities)
		api.GET("/amenities/nearby", handler.NearbyAmenities)
		api.GET("/amenities/stats", handler.AmenityStats)
		api.GET("/amenities/boundary", handler.AmenityBoundary)

		api.GET("/market/stats", handler.MarketStats)
	}
}
