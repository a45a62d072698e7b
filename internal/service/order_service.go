package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/campusbites/orderline/internal/gatewayclient"
	"github.com/campusbites/orderline/internal/queue"
	"github.com/campusbites/orderline/internal/store"
	"github.com/campusbites/orderline/pkg/cache"
	"github.com/google/uuid"
)

var (
	// ErrOutOfStockCache is the fast admission-check rejection (spec.md
	// §4.F step 1), surfaced as 400 without ever touching the Deduction Engine.
	ErrOutOfStockCache = errors.New("out of stock (cached)")
	// ErrOutOfStockDB is the Deduction Engine's own rejection, forwarded
	// from the Stock service (409).
	ErrOutOfStockDB = errors.New("out of stock")
	// ErrUpstreamTimeout and ErrUpstreamUnavailable mirror the stock
	// client's own sentinels at the gateway boundary.
	ErrUpstreamTimeout     = gatewayclient.ErrUpstreamTimeout
	ErrUpstreamUnavailable = gatewayclient.ErrUpstreamUnavailable
)

type OrderItemReq struct {
	MenuItemID string `json:"menu_item_id" binding:"required"`
	Quantity   int64  `json:"quantity" binding:"required,min=1"`
}

type CreateOrderReq struct {
	OrderID      string         `json:"order_id"`
	SpecialNotes *string        `json:"special_notes"`
	Items        []OrderItemReq `json:"items" binding:"required,min=1,dive"`
}

type CreateOrderResp struct {
	OrderID             string `json:"order_id"`
	Status              string `json:"status"`
	EstimatedWaitSeconds int64  `json:"estimated_wait_seconds"`
}

type OrderStatusResp struct {
	OrderID     string `json:"order_id"`
	Status      string `json:"status"`
	PrincipalID uint64 `json:"principal_id"`
}

//go:generate mockgen -source=$GOFILE -destination=../mocks/order_service_mock.go -package=mocks

// OrderService is the Ingress Gateway's handler logic (spec.md §4.F).
type OrderService interface {
	CreateOrder(ctx context.Context, principalID uint64, fingerprint string, req *CreateOrderReq) (*CreateOrderResp, error)
	GetOrder(ctx context.Context, orderID string) (*OrderStatusResp, error)
}

type orderService struct {
	orders               store.OrderRepository
	stock                *gatewayclient.StockClient
	dispatcher           *queue.Dispatcher
	cache                cache.Cache
	stockCacheTTL        time.Duration
	estimatedWaitSeconds int64
}

// NewOrderService creates a new OrderService.
func NewOrderService(orders store.OrderRepository, stock *gatewayclient.StockClient, dispatcher *queue.Dispatcher, c cache.Cache, stockCacheTTL time.Duration, estimatedWaitSeconds int64) OrderService {
	return &orderService{
		orders:               orders,
		stock:                stock,
		dispatcher:           dispatcher,
		cache:                c,
		stockCacheTTL:        stockCacheTTL,
		estimatedWaitSeconds: estimatedWaitSeconds,
	}
}

// CreateOrder runs the full pipeline from spec.md §4.F: admission check via
// the Stock Cache, deduct call to the Stock service, best-effort dispatch
// to the Worker Pool, best-effort cache refresh, then 202.
func (s *orderService) CreateOrder(ctx context.Context, principalID uint64, fingerprint string, req *CreateOrderReq) (*CreateOrderResp, error) {
	for _, item := range req.Items {
		cached, err := s.cache.Get(ctx, stockCacheKey(item.MenuItemID))
		if err == nil && cached != "" {
			if stock, convErr := strconv.ParseInt(cached, 10, 64); convErr == nil && stock <= 0 {
				return nil, ErrOutOfStockCache
			}
		}
	}

	orderID := req.OrderID
	if orderID == "" {
		orderID = uuid.NewString()
	}
	if fingerprint == "" {
		fingerprint = orderID
	}

	deductItems := make([]gatewayclient.DeductItem, len(req.Items))
	for i, item := range req.Items {
		deductItems[i] = gatewayclient.DeductItem{MenuItemID: item.MenuItemID, Quantity: item.Quantity}
	}

	deducted, err := s.stock.Deduct(ctx, orderID, principalID, deductItems)
	if err != nil {
		switch {
		case errors.Is(err, gatewayclient.ErrOutOfStock):
			return nil, ErrOutOfStockDB
		case errors.Is(err, gatewayclient.ErrUpstreamTimeout):
			return nil, ErrUpstreamTimeout
		case errors.Is(err, gatewayclient.ErrUpstreamUnavailable):
			return nil, ErrUpstreamUnavailable
		default:
			return nil, fmt.Errorf("deduction call failed: %w", err)
		}
	}

	order := &store.Order{OrderID: orderID, PrincipalID: principalID, Status: store.StatusPending, SpecialNotes: req.SpecialNotes}
	items := make([]store.OrderItem, len(req.Items))
	for i, item := range req.Items {
		items[i] = store.OrderItem{MenuItemID: item.MenuItemID, Quantity: item.Quantity}
	}
	if err := s.orders.CreateOrder(ctx, order, items); err != nil {
		return nil, fmt.Errorf("failed to persist order: %w", err)
	}

	// Dispatch failure is non-fatal: the order is still acknowledged
	// (spec.md §4.F step 4, §9 open question on the reconcile gap).
	if err := s.dispatcher.Enqueue(ctx, queue.Task{OrderID: orderID, PrincipalID: principalID}); err != nil {
		slog.Warn("order enqueue failed, will require reconciliation", "order_id", orderID, "error", err)
	}

	for _, item := range deducted {
		floored := item.RemainingStock
		if floored < 0 {
			floored = 0
		}
		_ = s.cache.Set(ctx, stockCacheKey(item.MenuItemID), strconv.FormatInt(floored, 10), s.stockCacheTTL)
	}

	return &CreateOrderResp{OrderID: orderID, Status: "queued", EstimatedWaitSeconds: s.estimatedWaitSeconds}, nil
}

func (s *orderService) GetOrder(ctx context.Context, orderID string) (*OrderStatusResp, error) {
	order, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	return &OrderStatusResp{OrderID: order.OrderID, Status: order.Status, PrincipalID: order.PrincipalID}, nil
}
