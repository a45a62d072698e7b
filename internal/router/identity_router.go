package router

import (
	"github.com/campusbites/orderline/internal/handler"
	"github.com/campusbites/orderline/internal/middleware"
	"github.com/campusbites/orderline/internal/ratelimit"
	"github.com/campusbites/orderline/pkg/token"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// NewIdentityRouter builds the Identity Provider's gin engine (spec.md §4.J):
// login is rate-limited (§4.D), refresh/register/change-password are not.
func NewIdentityRouter(identity *handler.IdentityHandler, tokenMaker token.Maker, limiter *ratelimit.Limiter) *gin.Engine {
	engine := gin.New()
	engine.Use(gin.Recovery(), gin.Logger())

	engine.GET("/health", func(c *gin.Context) { c.JSON(200, gin.H{"status": "ok"}) })
	engine.GET("/metrics", gin.WrapH(promhttp.Handler()))

	auth := engine.Group("/auth")
	{
		auth.POST("/login", ratelimit.Middleware(limiter), identity.Login)
		auth.POST("/refresh", identity.Refresh)
		auth.POST("/register", identity.Register)
		auth.POST("/change-password", middleware.AuthMiddleware(tokenMaker), identity.ChangePassword)
	}

	return engine
}
