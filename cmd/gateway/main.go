package main

import (
	"fmt"
	"log"
	"log/slog"

	"github.com/campusbites/orderline/internal/gatewayclient"
	"github.com/campusbites/orderline/internal/handler"
	"github.com/campusbites/orderline/internal/queue"
	"github.com/campusbites/orderline/internal/router"
	"github.com/campusbites/orderline/internal/service"
	"github.com/campusbites/orderline/internal/store"
	"github.com/campusbites/orderline/pkg/cache"
	"github.com/campusbites/orderline/pkg/config"
	"github.com/campusbites/orderline/pkg/database"
	"github.com/campusbites/orderline/pkg/idgen"
	"github.com/campusbites/orderline/pkg/mq"
	"github.com/campusbites/orderline/pkg/token"
	"github.com/gin-gonic/gin"
)

func main() {
	cfg, err := config.Load("./configs")
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	if err := idgen.Init(2); err != nil {
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

	broker, err := mq.NewRabbitMQ(cfg.RabbitMQ.URL, slog.Default())
	if err != nil {
		log.Fatalf("failed to connect to rabbitmq: %v", err)
	}

	orders := store.NewOrderRepository(db)
	stockClient := gatewayclient.NewStockClient(cfg.Upstream.StockURL, cfg.Upstream.Timeout)
	dispatcher := queue.NewDispatcher(broker, nil, cfg.RabbitMQ.QueueName, cfg.Kitchen.TaskMaxRetry, cfg.Kitchen.TaskRetryWait, cfg.Kitchen.Prefetch)

	orderService := service.NewOrderService(orders, stockClient, dispatcher, appCache, cfg.StockCache.TTL, int64(cfg.Kitchen.PrepMax.Seconds()))
	orderHandler := handler.NewOrderHandler(orderService)

	engine := router.NewGatewayRouter(orderHandler, tokenMaker, appCache, cfg.Idempotency.TTL)

	addr := fmt.Sprintf(":%s", cfg.Server.Port)
	log.Printf("gateway service listening on %s\n", addr)
	if err := engine.Run(addr); err != nil {
		log.Fatalf("gateway service failed: %v", err)
	}
}
