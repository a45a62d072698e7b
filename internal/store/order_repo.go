package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/campusbites/orderline/pkg/database"
	"gorm.io/gorm"
)

// ErrOrderNotFound is returned when an order record is not found.
var ErrOrderNotFound = errors.New("order not found")

// ErrInvalidTransition is returned when a status update would move an
// order somewhere the state machine does not allow (spec.md §4.G).
var ErrInvalidTransition = errors.New("invalid order status transition")

// OrderRepository defines the interface for order data operations. G is
// the only caller of UpdateStatus; F only calls CreateOrder.
type OrderRepository interface {
	CreateOrder(ctx context.Context, order *Order, items []OrderItem) error
	GetByID(ctx context.Context, orderID string) (*Order, error)

	// UpdateStatus persists the new status only if the row's current
	// status still equals expectedCurrent, linearizing transitions for a
	// single order (spec.md §5).
	UpdateStatus(ctx context.Context, orderID, expectedCurrent, newStatus string) error

	// ListNonTerminal returns orders not yet in a terminal state, for the
	// kitchen's reconcile sweep.
	ListNonTerminal(ctx context.Context, olderThan time.Duration) ([]Order, error)
}

type orderRepository struct {
	db *gorm.DB
}

// NewOrderRepository creates a new OrderRepository instance.
func NewOrderRepository(db *gorm.DB) OrderRepository {
	return &orderRepository{db: db}
}

// CreateOrder saves a new Order and its associated OrderItems in a single
// transaction (spec.md §4.F step 2: orders are created in PENDING).
func (r *orderRepository) CreateOrder(ctx context.Context, order *Order, items []OrderItem) error {
	db := database.GetDBFromContext(ctx, r.db)

	return db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(order).Error; err != nil {
			return fmt.Errorf("failed to create order: %w", err)
		}

		for i := range items {
			items[i].OrderID = order.OrderID
			if err := tx.Create(&items[i]).Error; err != nil {
				return fmt.Errorf("failed to create order item: %w", err)
			}
		}
		return nil
	})
}

func (r *orderRepository) GetByID(ctx context.Context, orderID string) (*Order, error) {
	var order Order
	db := database.GetDBFromContext(ctx, r.db)
	if err := db.Preload("Items").Where("order_id = ?", orderID).First(&order).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("failed to get order '%s': %w", orderID, err)
	}
	return &order, nil
}

// UpdateStatus is the single statement through which every status
// transition happens, guarded by the row's current status so a delayed
// duplicate task execution cannot regress a later transition.
func (r *orderRepository) UpdateStatus(ctx context.Context, orderID, expectedCurrent, newStatus string) error {
	db := database.GetDBFromContext(ctx, r.db)

	result := db.Model(&Order{}).
		Where("order_id = ? AND status = ?", orderID, expectedCurrent).
		Updates(map[string]interface{}{
			"status":     newStatus,
			"updated_at": time.Now(),
		})
	if result.Error != nil {
		return fmt.Errorf("failed to update order '%s' status: %w", orderID, result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrInvalidTransition
	}
	return nil
}

func (r *orderRepository) ListNonTerminal(ctx context.Context, olderThan time.Duration) ([]Order, error) {
	var orders []Order
	db := database.GetDBFromContext(ctx, r.db)
	cutoff := time.Now().Add(-olderThan)
	err := db.Where("status NOT IN ? AND created_at < ?", []string{StatusReady, StatusFailed}, cutoff).
		Order("created_at ASC").
		Find(&orders).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list non-terminal orders: %w", err)
	}
	return orders, nil
}
