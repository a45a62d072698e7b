package main

import (
	"fmt"
	"log"

	"github.com/campusbites/orderline/internal/handler"
	"github.com/campusbites/orderline/internal/ratelimit"
	"github.com/campusbites/orderline/internal/router"
	"github.com/campusbites/orderline/internal/service"
	"github.com/campusbites/orderline/internal/store"
	"github.com/campusbites/orderline/pkg/cache"
	"github.com/campusbites/orderline/pkg/config"
	"github.com/campusbites/orderline/pkg/database"
	"github.com/campusbites/orderline/pkg/hasher"
	"github.com/campusbites/orderline/pkg/idgen"
	"github.com/campusbites/orderline/pkg/token"
	"github.com/gin-gonic/gin"
)

func main() {
	cfg, err := config.Load("./configs")
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	if err := idgen.Init(1); err != nil {
		log.Fatalf("failed to initialize id generator: %v", err)
	}

	gin.SetMode(cfg.Server.Mode)

	db, err := database.NewPostgresDB(&cfg.Database)
	if err != nil {
		log.Fatalf("failed to initialize database: %v", err)
	}

	redisClient, err := cache.NewRedisClient(&cfg.Redis)
	if err != nil {
		log.Fatalf("failed to initialize redis client: %v", err)
	}
	appCache := cache.NewResilientCache(cache.NewInstrumentedCache(cache.NewRedisCache(redisClient, "orderline")))

	tokenMaker, err := token.NewJWTMaker(cfg.JWT.Secret)
	if err != nil {
		log.Fatalf("failed to create token maker: %v", err)
	}

	users := store.NewUserRepository(db)
	passwordHasher := hasher.NewBcryptHasher(0)
	identityService := service.NewIdentityService(users, passwordHasher, tokenMaker, cfg.JWT.AccessTTL, cfg.JWT.RefreshTTL)
	identityHandler := handler.NewIdentityHandler(identityService)

	limiter := ratelimit.NewLimiter(appCache, cfg.RateLimit.Window, cfg.RateLimit.MaxAttempts)

	engine := router.NewIdentityRouter(identityHandler, tokenMaker, limiter)

	addr := fmt.Sprintf(":%s", cfg.Server.Port)
	log.Printf("identity service listening on %s\n", addr)
	if err := engine.Run(addr); err != nil {
		log.Fatalf("identity service failed: %v", err)
	}
}
