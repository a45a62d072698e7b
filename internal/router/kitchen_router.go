package router

import (
	"github.com/campusbites/orderline/internal/handler"
	"github.com/campusbites/orderline/internal/middleware"
	"github.com/campusbites/orderline/pkg/token"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// NewKitchenRouter builds the kitchen service's gin engine. The Worker
// Pool's task consumption (spec.md §4.H) runs on its own goroutine outside
// this engine; the engine only exposes health/metrics and the manual
// override surface over the order state machine (spec.md §4.G).
func NewKitchenRouter(override *handler.OverrideHandler, tokenMaker token.Maker) *gin.Engine {
	engine := gin.New()
	engine.Use(gin.Recovery(), gin.Logger())

	engine.GET("/health", func(c *gin.Context) { c.JSON(200, gin.H{"status": "ok"}) })
	engine.GET("/metrics", gin.WrapH(promhttp.Handler()))

	engine.Use(middleware.AuthMiddleware(tokenMaker))

	orders := engine.Group("/orders/:order_id")
	{
		orders.POST("/advance", override.Advance)
		orders.POST("/revert", override.Revert)
	}

	return engine
}
