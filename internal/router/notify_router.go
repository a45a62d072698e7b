package router

import (
	"github.com/campusbites/orderline/internal/handler"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// NewNotifyRouter builds the Notification Fan-out service's gin engine
// (spec.md §4.I). The stream and publish endpoints carry no auth of their
// own: the stream's channel name is an unguessable order_id, and publish is
// an internal surface (the order state machine itself publishes straight to
// the cache channel rather than through this endpoint).
func NewNotifyRouter(notify *handler.NotifyHandler) *gin.Engine {
	engine := gin.New()
	engine.Use(gin.Recovery(), gin.Logger())

	engine.GET("/health", func(c *gin.Context) { c.JSON(200, gin.H{"status": "ok"}) })
	engine.GET("/metrics", gin.WrapH(promhttp.Handler()))

	engine.POST("/notify", notify.Publish)
	engine.GET("/stream/:order_id", notify.Stream)
	engine.POST("/chaos", notify.SetChaos)

	return engine
}
