package api

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

func SetupRoutes(router *gin.Engine, handler *Handler) {
	router.Use(cors.Default())

	api := router.Group("/api")
	{
		api.GET("/stats", handler.GetComplexStats)
		api.GET("/trends", handler.GetMarketTrends)
		api.GET("/recent-trades", handler.GetRecentTrades)
		api.GET("/summary", handler.GetRunSummary)
		api.POST("/ingest", handler.TriggerIngest)
	}
}
