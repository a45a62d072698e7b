package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"

	"github.com/campusbites/orderline/internal/handler"
	"github.com/campusbites/orderline/internal/orderflow"
	"github.com/campusbites/orderline/internal/queue"
	"github.com/campusbites/orderline/internal/reconcile"
	"github.com/campusbites/orderline/internal/router"
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

	if err := idgen.Init(4); err != nil {
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
	machine := orderflow.NewMachine(orders, appCache, cfg.Kitchen.PrepMin, cfg.Kitchen.PrepMax)
	dispatcher := queue.NewDispatcher(broker, machine, cfg.RabbitMQ.QueueName, cfg.Kitchen.TaskMaxRetry, cfg.Kitchen.TaskRetryWait, cfg.Kitchen.Prefetch)

	overrideHandler := handler.NewOverrideHandler(machine)
	engine := router.NewKitchenRouter(overrideHandler, tokenMaker)

	sweeper := reconcile.NewSweeper(orders, dispatcher, redisClient, cfg.Kitchen.TaskRetryWait*6, cfg.Kitchen.TaskRetryWait*6)
	sweepCtx, cancelSweep := context.WithCancel(context.Background())
	defer cancelSweep()
	go sweeper.Run(sweepCtx)

	go func() {
		if err := dispatcher.Run(); err != nil {
			log.Fatalf("kitchen worker pool failed: %v", err)
		}
	}()

	addr := fmt.Sprintf(":%s", cfg.Server.Port)
	log.Printf("kitchen service listening on %s\n", addr)
	if err := engine.Run(addr); err != nil {
		log.Fatalf("kitchen service failed: %v", err)
	}
}
