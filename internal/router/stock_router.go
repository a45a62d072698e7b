package router

import (
	"github.com/campusbites/orderline/internal/handler"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// NewStockRouter builds the Stock service's gin engine (spec.md §4.A, §4.B).
// It is called only by sibling services over the internal network, so it
// carries no end-user auth middleware of its own.
func NewStockRouter(stock *handler.StockHandler) *gin.Engine {
	engine := gin.New()
	engine.Use(gin.Recovery(), gin.Logger())

	engine.GET("/health", func(c *gin.Context) { c.JSON(200, gin.H{"status": "ok"}) })
	engine.GET("/metrics", gin.WrapH(promhttp.Handler()))

	stockRoutes := engine.Group("/stock")
	{
		stockRoutes.POST("/deduct", stock.Deduct)
		stockRoutes.GET("", stock.ListStock)
		stockRoutes.GET("/:menu_item_id", stock.GetStock)
	}

	return engine
}
