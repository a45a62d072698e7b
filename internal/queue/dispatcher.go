// Package queue wires the RabbitMQ transport (pkg/mq) to the order state
// machine, implementing the Worker Pool's retry semantics (spec.md §4.H).
package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/campusbites/orderline/internal/orderflow"
	"github.com/campusbites/orderline/pkg/mq"
	amqp "github.com/rabbitmq/amqp091-go"
)

const retryCountHeader = "x-orderline-retry-count"

// Task is the payload enqueued when an order is admitted (spec.md §4.F
// step 4: "enqueue a task for G").
type Task struct {
	OrderID     string `json:"order_id"`
	PrincipalID uint64 `json:"principal_id"`
}

// Dispatcher consumes order tasks and drives each one through the full
// state machine pipeline synchronously, retrying on failure up to
// maxRetry times with a fixed delay before giving up (spec.md §4.H:
// "retry up to 3 times with 5 s fixed delay after any uncaught failure").
// Classic RabbitMQ queues have no native delayed redelivery, so a retry is
// implemented by sleeping the worker goroutine (safe under prefetch=1,
// since no other delivery is outstanding) and then republishing the task
// with an incremented retry-count header.
type Dispatcher struct {
	broker    mq.RabbitMQ
	machine   *orderflow.Machine
	queueName string
	maxRetry  int
	retryWait time.Duration
	prefetch  int
}

// NewDispatcher creates a Dispatcher bound to the given queue.
func NewDispatcher(broker mq.RabbitMQ, machine *orderflow.Machine, queueName string, maxRetry int, retryWait time.Duration, prefetch int) *Dispatcher {
	return &Dispatcher{
		broker:    broker,
		machine:   machine,
		queueName: queueName,
		maxRetry:  maxRetry,
		retryWait: retryWait,
		prefetch:  prefetch,
	}
}

// Enqueue publishes a new task at retry count zero.
func (d *Dispatcher) Enqueue(ctx context.Context, task Task) error {
	body, err := json.Marshal(task)
	if err != nil {
		return fmt.Errorf("failed to marshal order task: %w", err)
	}
	return d.broker.Publish(ctx, "", d.queueName, amqp.Table{retryCountHeader: int32(0)}, body)
}

// Run starts consuming tasks until the broker connection is closed.
func (d *Dispatcher) Run() error {
	return d.broker.Consume(d.queueName, d.prefetch, d.handle)
}

func (d *Dispatcher) handle(ctx context.Context, delivery amqp.Delivery) error {
	var task Task
	if err := json.Unmarshal(delivery.Body, &task); err != nil {
		slog.Error("failed to decode order task, dropping", "error", err)
		return nil // ack: a malformed task can never succeed, retrying is pointless
	}

	retryCount := headerRetryCount(delivery.Headers)

	err := d.machine.Run(ctx, task.OrderID, task.PrincipalID)
	if err == nil {
		return nil
	}

	if retryCount >= d.maxRetry {
		slog.Error("order task failed permanently after max retries", "order_id", task.OrderID, "retries", retryCount, "error", err)
		return nil
	}

	slog.Warn("order task failed, scheduling retry", "order_id", task.OrderID, "retry", retryCount+1, "error", err)
	time.Sleep(d.retryWait)

	if err := d.broker.Publish(ctx, "", d.queueName, amqp.Table{retryCountHeader: int32(retryCount + 1)}, delivery.Body); err != nil {
		slog.Error("failed to republish order task for retry", "order_id", task.OrderID, "error", err)
	}
	return nil
}

func headerRetryCount(headers amqp.Table) int {
	if headers == nil {
		return 0
	}
	switch v := headers[retryCountHeader].(type) {
	case int32:
		return int(v)
	case int64:
		return int(v)
	case int:
		return v
	default:
		return 0
	}
}
