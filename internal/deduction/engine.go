// Package deduction implements the Deduction Engine (spec.md §4.B): the
// compare-and-swap stock update with bounded exponential-backoff retry
// that is the anti-overselling core of the whole system.
package deduction

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/campusbites/orderline/internal/store"
	"github.com/campusbites/orderline/pkg/cache"
	"github.com/campusbites/orderline/pkg/config"
	"github.com/campusbites/orderline/pkg/database"
	"github.com/campusbites/orderline/pkg/utils"
)

// ErrInsufficientStock is returned when the requested quantity exceeds
// current_stock. It is never retried (spec.md §4.B).
var ErrInsufficientStock = errors.New("insufficient stock")

// ErrConflict is surfaced after the retry budget is exhausted on
// repeated stale-version collisions (spec.md §4.B, §7).
var ErrConflict = errors.New("conflict: optimistic lock retries exhausted")

// Engine runs the CAS retry loop against the Inventory Store and refreshes
// the Stock Cache on success (spec.md §4.C).
type Engine struct {
	inventory store.InventoryRepository
	txManager database.TransactionManager
	cache     cache.Cache
	cacheTTL  time.Duration
	cfg       config.OptimisticLockConfig
}

// NewEngine creates a new deduction Engine.
func NewEngine(inventory store.InventoryRepository, txManager database.TransactionManager, c cache.Cache, cacheTTL time.Duration, cfg config.OptimisticLockConfig) *Engine {
	return &Engine{inventory: inventory, txManager: txManager, cache: c, cacheTTL: cacheTTL, cfg: cfg}
}

// Deduct runs the full algorithm from spec.md §4.B: read snapshot, check
// sufficiency, conditional update, retry on stale version with backoff,
// append an audit entry in the same transaction as the update, then
// refresh the stock cache.
func (e *Engine) Deduct(ctx context.Context, orderID string, principalID uint64, menuItemID string, quantity int64) (int64, error) {
	var newStock int64

	for attempt := 1; attempt <= e.cfg.MaxRetries; attempt++ {
		if attempt > 1 {
			delay := backoffDelay(attempt, e.cfg.BaseDelay, e.cfg.CapDelay, e.cfg.Jitter)
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return 0, ctx.Err()
			}
		}

		stock, err := e.attempt(ctx, orderID, principalID, menuItemID, quantity)
		if err == nil {
			newStock = stock
			break
		}
		if errors.Is(err, ErrInsufficientStock) || errors.Is(err, store.ErrInventoryNotFound) {
			return 0, err
		}
		if errors.Is(err, store.ErrStaleVersion) {
			slog.Debug("stale inventory version, retrying", "menu_item_id", menuItemID, "attempt", attempt)
			if attempt == e.cfg.MaxRetries {
				return 0, ErrConflict
			}
			continue
		}
		return 0, err
	}

	// Best-effort cache refresh; a failure here must not fail the
	// deduction that has already committed (spec.md §4.C).
	if err := e.cache.Set(ctx, stockCacheKey(menuItemID), fmt.Sprintf("%d", newStock), e.cacheTTL); err != nil {
		slog.Warn("failed to refresh stock cache after deduction", "menu_item_id", menuItemID, "error", err)
	}

	return newStock, nil
}

// attempt performs one read-check-conditional_update-audit cycle inside a
// single transaction (spec.md §4.B steps 1-4).
func (e *Engine) attempt(ctx context.Context, orderID string, principalID uint64, menuItemID string, quantity int64) (int64, error) {
	var newStock int64

	err := e.txManager.WithTransaction(ctx, func(ctx context.Context) error {
		row, err := e.inventory.GetByMenuItemID(ctx, menuItemID)
		if err != nil {
			return err
		}
		if row.CurrentStock < quantity {
			return ErrInsufficientStock
		}

		if err := e.inventory.CompareAndDeduct(ctx, menuItemID, row.CurrentStock, row.Version, quantity); err != nil {
			return err
		}

		newStock = row.CurrentStock - quantity
		return e.inventory.AppendAudit(ctx, &store.DeductionAudit{
			OrderID:     orderID,
			MenuItemID:  menuItemID,
			Quantity:    quantity,
			PrincipalID: principalID,
		})
	})
	if err != nil {
		return 0, err
	}
	return newStock, nil
}

// backoffDelay computes min(base*2^attempt, cap) + U(0, jitter), the delay
// before attempt k in {2..N} (spec.md §4.B retry policy).
func backoffDelay(attempt int, base, capDelay, jitter time.Duration) time.Duration {
	exp := base * time.Duration(1<<uint(attempt))
	if exp > capDelay || exp <= 0 {
		exp = capDelay
	}
	if jitter <= 0 {
		return exp
	}
	return exp + utils.RandomDuration(0, jitter)
}

func stockCacheKey(menuItemID string) string {
	return fmt.Sprintf("stock:%s", menuItemID)
}
