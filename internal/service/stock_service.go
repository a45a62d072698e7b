package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/campusbites/orderline/internal/deduction"
	"github.com/campusbites/orderline/internal/store"
	"github.com/campusbites/orderline/pkg/cache"
)

// ErrOutOfStock is the service-layer view of InsufficientStock, an
// exhausted-retries Conflict and an unknown menu item (spec.md §4.F:
// "409 -> OutOfStock(409)" does not distinguish them at the Stock
// service's own boundary either).
var ErrOutOfStock = errors.New("out of stock")

type DeductItemReq struct {
	MenuItemID string
	Quantity   int64
}

type DeductedItem struct {
	MenuItemID     string
	RemainingStock int64
}

type StockView struct {
	MenuItemID   string
	CurrentStock int64
	Version      int64
}

//go:generate mockgen -source=$GOFILE -destination=../mocks/stock_service_mock.go -package=mocks

// StockService exposes the Inventory Store (§4.A) and Deduction Engine
// (§4.B) as the operations the Stock service's HTTP surface calls.
type StockService interface {
	Deduct(ctx context.Context, orderID string, principalID uint64, items []DeductItemReq) ([]DeductedItem, error)
	GetStock(ctx context.Context, menuItemID string) (*StockView, error)
	ListStock(ctx context.Context) ([]StockView, error)
}

type stockService struct {
	engine    *deduction.Engine
	inventory store.InventoryRepository
	cache     cache.Cache
	cacheTTL  time.Duration
}

// NewStockService creates a new StockService.
func NewStockService(engine *deduction.Engine, inventory store.InventoryRepository, c cache.Cache, cacheTTL time.Duration) StockService {
	return &stockService{engine: engine, inventory: inventory, cache: c, cacheTTL: cacheTTL}
}

// Deduct runs the deduction engine for every requested item in turn,
// mirroring the stock-service's own per-item loop (spec.md §4.B is
// per-menu-item; a multi-item order performs one CAS per line).
func (s *stockService) Deduct(ctx context.Context, orderID string, principalID uint64, items []DeductItemReq) ([]DeductedItem, error) {
	results := make([]DeductedItem, 0, len(items))
	for _, item := range items {
		newStock, err := s.engine.Deduct(ctx, orderID, principalID, item.MenuItemID, item.Quantity)
		if err != nil {
			if errors.Is(err, deduction.ErrInsufficientStock) || errors.Is(err, deduction.ErrConflict) {
				return nil, ErrOutOfStock
			}
			if errors.Is(err, store.ErrInventoryNotFound) {
				return nil, ErrOutOfStock
			}
			return nil, fmt.Errorf("failed to deduct '%s': %w", item.MenuItemID, err)
		}
		results = append(results, DeductedItem{MenuItemID: item.MenuItemID, RemainingStock: newStock})
	}
	return results, nil
}

// GetStock reads the authoritative row and warms the stock cache, mirroring
// the stock-service's read-and-warm endpoint.
func (s *stockService) GetStock(ctx context.Context, menuItemID string) (*StockView, error) {
	row, err := s.inventory.GetByMenuItemID(ctx, menuItemID)
	if err != nil {
		return nil, err
	}

	if err := s.cache.Set(ctx, stockCacheKey(menuItemID), fmt.Sprintf("%d", row.CurrentStock), s.cacheTTL); err != nil {
		return nil, fmt.Errorf("failed to warm stock cache for '%s': %w", menuItemID, err)
	}

	return &StockView{MenuItemID: row.MenuItemID, CurrentStock: row.CurrentStock, Version: row.Version}, nil
}

// ListStock returns every inventory row without warming the cache (bulk
// reads are not admission-critical the way a single lookup is).
func (s *stockService) ListStock(ctx context.Context) ([]StockView, error) {
	rows, err := s.inventory.List(ctx)
	if err != nil {
		return nil, err
	}
	views := make([]StockView, len(rows))
	for i, row := range rows {
		views[i] = StockView{MenuItemID: row.MenuItemID, CurrentStock: row.CurrentStock, Version: row.Version}
	}
	return views, nil
}

func stockCacheKey(menuItemID string) string {
	return fmt.Sprintf("stock:%s", menuItemID)
}
