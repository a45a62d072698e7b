// Package reconcile addresses the gateway's best-effort dispatch gap
// (spec.md §9: "the gateway swallows kitchen-dispatch failures... leaving
// the order absent from the kitchen store"). A single kitchen process
// holds a distributed lock and periodically re-enqueues orders that have
// sat in a non-terminal state too long, on the assumption that an order
// still PENDING well past the time a dispatch would have completed never
// made it onto the queue.
package reconcile

import (
	"context"
	"log/slog"
	"time"

	"github.com/campusbites/orderline/internal/queue"
	"github.com/campusbites/orderline/internal/store"
	"github.com/campusbites/orderline/pkg/cache"
	"github.com/redis/go-redis/v9"
)

const lockKey = "lock:reconcile-sweep"

// Sweeper periodically scans for stuck orders and re-enqueues them, with
// only the lock holder among however many kitchen replicas are running
// performing the scan (spec.md §9's horizontal-coordination non-goal still
// allows a single elected sweeper; it does not allow N redundant ones).
type Sweeper struct {
	orders     store.OrderRepository
	dispatcher *queue.Dispatcher
	redis      *redis.Client
	interval   time.Duration
	stuckAfter time.Duration
}

// NewSweeper creates a Sweeper.
func NewSweeper(orders store.OrderRepository, dispatcher *queue.Dispatcher, redisClient *redis.Client, interval, stuckAfter time.Duration) *Sweeper {
	return &Sweeper{orders: orders, dispatcher: dispatcher, redis: redisClient, interval: interval, stuckAfter: stuckAfter}
}

// Run blocks, sweeping once per interval until ctx is cancelled.
func (s *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.sweepOnce(ctx)
		}
	}
}

func (s *Sweeper) sweepOnce(ctx context.Context) {
	lock := cache.NewRedisLock(s.redis, lockKey)
	lockCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	acquired, err := lock.Lock(lockCtx, s.interval)
	cancel()
	if err != nil || !acquired {
		return
	}
	defer lock.Unlock(ctx)

	stuck, err := s.orders.ListNonTerminal(ctx, s.stuckAfter)
	if err != nil {
		slog.Warn("reconcile sweep failed to list non-terminal orders", "error", err)
		return
	}

	for _, order := range stuck {
		if err := s.dispatcher.Enqueue(ctx, queue.Task{OrderID: order.OrderID, PrincipalID: order.PrincipalID}); err != nil {
			slog.Warn("reconcile sweep failed to re-enqueue order", "order_id", order.OrderID, "error", err)
			continue
		}
		slog.Info("reconcile sweep re-enqueued stuck order", "order_id", order.OrderID, "status", order.Status)
	}
}
