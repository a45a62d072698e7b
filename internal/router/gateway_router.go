package router

import (
	"time"

	"github.com/campusbites/orderline/internal/handler"
	"github.com/campusbites/orderline/internal/idempotency"
	"github.com/campusbites/orderline/internal/middleware"
	"github.com/campusbites/orderline/pkg/cache"
	"github.com/campusbites/orderline/pkg/token"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// NewGatewayRouter builds the Ingress Gateway's gin engine (spec.md §4.F):
// per-request pipeline idempotency -> token auth -> handler.
func NewGatewayRouter(orders *handler.OrderHandler, tokenMaker token.Maker, c cache.Cache, idempotencyTTL time.Duration) *gin.Engine {
	engine := gin.New()
	engine.Use(gin.Recovery(), gin.Logger())

	engine.GET("/health", func(ctx *gin.Context) { ctx.JSON(200, gin.H{"status": "ok"}) })
	engine.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Pipeline order per spec.md §4.F: idempotency runs before auth, since
	// a cache hit replays the captured response without ever touching the
	// handler or needing a valid token.
	engine.Use(idempotency.Middleware(c, idempotencyTTL))
	engine.Use(middleware.AuthMiddleware(tokenMaker))

	orderRoutes := engine.Group("/orders")
	{
		orderRoutes.POST("", orders.CreateOrder)
		orderRoutes.GET("/:order_id", orders.GetOrder)
	}

	return engine
}
