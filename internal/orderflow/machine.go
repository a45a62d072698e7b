// Package orderflow implements the Order State Machine (spec.md §4.G):
// the only component permitted to mutate order status, driving each
// forward transition and publishing it, plus a manual-override interface.
package orderflow

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/campusbites/orderline/internal/store"
	"github.com/campusbites/orderline/pkg/cache"
	"github.com/campusbites/orderline/pkg/utils"
)

// forwardChain is the linear happy-path sequence; FAILED is reachable
// from any non-terminal state but is not part of this chain.
var forwardChain = []string{store.StatusPending, store.StatusStockVerified, store.StatusInKitchen, store.StatusReady}

// statusUpdate is the pub/sub payload published on every forward
// transition (spec.md §3, §4.G).
type statusUpdate struct {
	OrderID     string `json:"order_id"`
	Status      string `json:"status"`
	PrincipalID uint64 `json:"principal_id"`
}

// Machine drives an order through its lifecycle and publishes each
// transition to its notification channel.
type Machine struct {
	orders  store.OrderRepository
	cache   cache.Cache
	prepMin time.Duration
	prepMax time.Duration
}

// NewMachine creates a new order state Machine.
func NewMachine(orders store.OrderRepository, c cache.Cache, prepMin, prepMax time.Duration) *Machine {
	return &Machine{orders: orders, cache: c, prepMin: prepMin, prepMax: prepMax}
}

// Run executes the full happy-path pipeline synchronously: PENDING →
// STOCK_VERIFIED → IN_KITCHEN → (simulated prep) → READY, publishing each
// transition. This is the task body a Worker Pool task executes
// end-to-end (spec.md §4.H). On any error it transitions to FAILED before
// returning, satisfying "on final failure the state machine must have
// transitioned the order to FAILED before the exception propagates".
func (m *Machine) Run(ctx context.Context, orderID string, principalID uint64) error {
	if err := m.transition(ctx, orderID, principalID, store.StatusPending, store.StatusStockVerified); err != nil {
		return m.fail(ctx, orderID, principalID, err)
	}
	if err := m.transition(ctx, orderID, principalID, store.StatusStockVerified, store.StatusInKitchen); err != nil {
		return m.fail(ctx, orderID, principalID, err)
	}

	prepTime := utils.RandomDuration(m.prepMin, m.prepMax)
	select {
	case <-time.After(prepTime):
	case <-ctx.Done():
		return m.fail(ctx, orderID, principalID, ctx.Err())
	}

	if err := m.transition(ctx, orderID, principalID, store.StatusInKitchen, store.StatusReady); err != nil {
		return m.fail(ctx, orderID, principalID, err)
	}
	return nil
}

func (m *Machine) fail(ctx context.Context, orderID string, principalID uint64, cause error) error {
	// FAILED is reachable from any non-terminal state; try every
	// predecessor since we don't reliably know which one the order is
	// still sitting in after a mid-pipeline error.
	for _, from := range forwardChain[:len(forwardChain)-1] {
		if err := m.orders.UpdateStatus(ctx, orderID, from, store.StatusFailed); err == nil {
			m.publish(ctx, orderID, principalID, store.StatusFailed)
			break
		}
	}
	return fmt.Errorf("order %s failed: %w", orderID, cause)
}

func (m *Machine) transition(ctx context.Context, orderID string, principalID uint64, from, to string) error {
	if err := m.orders.UpdateStatus(ctx, orderID, from, to); err != nil {
		return err
	}
	m.publish(ctx, orderID, principalID, to)
	return nil
}

// publish failures are logged and swallowed: they must not affect order
// processing (spec.md §7 propagation policy).
func (m *Machine) publish(ctx context.Context, orderID string, principalID uint64, status string) {
	payload, err := json.Marshal(statusUpdate{OrderID: orderID, Status: status, PrincipalID: principalID})
	if err != nil {
		slog.Warn("failed to marshal status update", "order_id", orderID, "error", err)
		return
	}
	if err := m.cache.Publish(ctx, channelName(orderID), payload); err != nil {
		slog.Warn("failed to publish status update", "order_id", orderID, "error", err)
	}
}

func channelName(orderID string) string {
	return fmt.Sprintf("order:%s", orderID)
}

// --- manual override ---

var chainIndex = func() map[string]int {
	idx := make(map[string]int, len(forwardChain))
	for i, s := range forwardChain {
		idx[s] = i
	}
	return idx
}()

// ErrInvalidTransition is returned when an override would move an order
// past READY, before PENDING, or into/out of FAILED (spec.md §4.G).
var ErrInvalidTransition = store.ErrInvalidTransition

// Advance moves the order one step forward along the linear chain
// without publishing (spec.md §4.G: "manual transitions do not publish").
func (m *Machine) Advance(ctx context.Context, orderID string) error {
	order, err := m.orders.GetByID(ctx, orderID)
	if err != nil {
		return err
	}
	return m.override(ctx, order, +1)
}

// Revert moves the order one step backward along the linear chain.
func (m *Machine) Revert(ctx context.Context, orderID string) error {
	order, err := m.orders.GetByID(ctx, orderID)
	if err != nil {
		return err
	}
	return m.override(ctx, order, -1)
}

func (m *Machine) override(ctx context.Context, order *store.Order, delta int) error {
	pos, ok := chainIndex[order.Status]
	if !ok {
		// FAILED, or anything outside the linear chain, cannot be
		// entered or left via override.
		return ErrInvalidTransition
	}
	newPos := pos + delta
	if newPos < 0 || newPos >= len(forwardChain) {
		return ErrInvalidTransition
	}
	return m.orders.UpdateStatus(ctx, order.OrderID, order.Status, forwardChain[newPos])
}
