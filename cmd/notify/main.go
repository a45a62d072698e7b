package main

import (
	"fmt"
	"log"

	"github.com/campusbites/orderline/internal/handler"
	"github.com/campusbites/orderline/internal/notify"
	"github.com/campusbites/orderline/internal/router"
	"github.com/campusbites/orderline/pkg/cache"
	"github.com/campusbites/orderline/pkg/config"
	"github.com/gin-gonic/gin"
)

func main() {
	cfg, err := config.Load("./configs")
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	gin.SetMode(cfg.Server.Mode)

	redisClient, err := cache.NewRedisClient(&cfg.Redis)
	if err != nil {
		log.Fatalf("failed to initialize redis client: %v", err)
	}
	appCache := cache.NewResilientCache(cache.NewInstrumentedCache(cache.NewRedisCache(redisClient, "orderline")))

	publisher := notify.NewPublisher(appCache)
	chaos := notify.NewChaosGate(appCache, cfg.Chaos.FlagKey)
	streamCfg := notify.StreamConfig{KeepAlive: cfg.Stream.KeepAlive, RetryMS: cfg.Stream.RetryMS, PollWindow: cfg.Stream.PollWindow}

	notifyHandler := handler.NewNotifyHandler(publisher, chaos, appCache, streamCfg)

	engine := router.NewNotifyRouter(notifyHandler)

	addr := fmt.Sprintf(":%s", cfg.Server.Port)
	log.Printf("notification hub listening on %s\n", addr)
	if err := engine.Run(addr); err != nil {
		log.Fatalf("notification hub failed: %v", err)
	}
}
