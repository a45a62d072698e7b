package main

import (
	"fmt"
	"log"

	"github.com/campusbites/orderline/internal/deduction"
	"github.com/campusbites/orderline/internal/handler"
	"github.com/campusbites/orderline/internal/router"
	"github.com/campusbites/orderline/internal/service"
	"github.com/campusbites/orderline/internal/store"
	"github.com/campusbites/orderline/pkg/cache"
	"github.com/campusbites/orderline/pkg/config"
	"github.com/campusbites/orderline/pkg/database"
	"github.com/campusbites/orderline/pkg/idgen"
	"github.com/gin-gonic/gin"
)

func main() {
	cfg, err := config.Load("./configs")
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	if err := idgen.Init(3); err != nil {
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

	txManager := database.NewTransactionManager(db)
	inventory := store.NewInventoryRepository(db)
	engine := deduction.NewEngine(inventory, txManager, appCache, cfg.StockCache.TTL, cfg.OptimisticLk)

	stockService := service.NewStockService(engine, inventory, appCache, cfg.StockCache.TTL)
	stockHandler := handler.NewStockHandler(stockService)

	engineGin := router.NewStockRouter(stockHandler)

	addr := fmt.Sprintf(":%s", cfg.Server.Port)
	log.Printf("stock service listening on %s\n", addr)
	if err := engineGin.Run(addr); err != nil {
		log.Fatalf("stock service failed: %v", err)
	}
}
