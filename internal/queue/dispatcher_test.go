package queue

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/campusbites/orderline/internal/orderflow"
	"github.com/campusbites/orderline/internal/store"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeBroker struct {
	published []amqp.Table
}

func (b *fakeBroker) Publish(ctx context.Context, exchange, routingKey string, headers amqp.Table, body []byte) error {
	b.published = append(b.published, headers)
	return nil
}
func (b *fakeBroker) Consume(queue string, prefetch int, handler func(ctx context.Context, d amqp.Delivery) error) error {
	return nil
}
func (b *fakeBroker) Close() error { return nil }

type fakeOrderRepo struct {
	status    string
	failCount int
}

func (f *fakeOrderRepo) CreateOrder(ctx context.Context, order *store.Order, items []store.OrderItem) error {
	return nil
}
func (f *fakeOrderRepo) GetByID(ctx context.Context, orderID string) (*store.Order, error) {
	return &store.Order{OrderID: orderID, Status: f.status}, nil
}
func (f *fakeOrderRepo) UpdateStatus(ctx context.Context, orderID, expectedCurrent, newStatus string) error {
	if f.failCount > 0 {
		f.failCount--
		return store.ErrInvalidTransition
	}
	if f.status != expectedCurrent {
		return store.ErrInvalidTransition
	}
	f.status = newStatus
	return nil
}
func (f *fakeOrderRepo) ListNonTerminal(ctx context.Context, olderThan time.Duration) ([]store.Order, error) {
	return nil, nil
}

type fakeCache struct{}

func (f *fakeCache) Get(ctx context.Context, key string) (string, error) { return "", nil }
func (f *fakeCache) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	return nil
}
func (f *fakeCache) SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) (bool, error) {
	return true, nil
}
func (f *fakeCache) Del(ctx context.Context, keys ...string) error { return nil }
func (f *fakeCache) MGet(ctx context.Context, keys ...string) ([]interface{}, error) {
	return nil, nil
}
func (f *fakeCache) Incr(ctx context.Context, key string, delta int64) (int64, error) {
	return delta, nil
}
func (f *fakeCache) Publish(ctx context.Context, channel string, message interface{}) error {
	return nil
}
func (f *fakeCache) Subscribe(ctx context.Context, channel string) *redis.PubSub { return nil }
func (f *fakeCache) RecordSlidingWindowHit(ctx context.Context, key string, now, windowStart time.Time, window time.Duration) (int64, error) {
	return 0, nil
}
func (f *fakeCache) Close() error { return nil }

func TestDispatcher_Handle_AcksOnSuccess(t *testing.T) {
	repo := &fakeOrderRepo{status: store.StatusPending}
	machine := orderflow.NewMachine(repo, &fakeCache{}, time.Millisecond, time.Millisecond)
	broker := &fakeBroker{}
	d := NewDispatcher(broker, machine, "orders.created", 3, time.Millisecond, 1)

	body, _ := json.Marshal(Task{OrderID: "order-1", PrincipalID: 7})
	err := d.handle(context.Background(), amqp.Delivery{Body: body, Headers: amqp.Table{retryCountHeader: int32(0)}})

	require.NoError(t, err)
	assert.Equal(t, store.StatusReady, repo.status)
	assert.Empty(t, broker.published)
}

func TestDispatcher_Handle_RepublishesWithIncrementedRetryOnFailure(t *testing.T) {
	repo := &fakeOrderRepo{status: store.StatusPending, failCount: 10}
	machine := orderflow.NewMachine(repo, &fakeCache{}, time.Millisecond, time.Millisecond)
	broker := &fakeBroker{}
	d := NewDispatcher(broker, machine, "orders.created", 3, time.Millisecond, 1)

	body, _ := json.Marshal(Task{OrderID: "order-1", PrincipalID: 7})
	err := d.handle(context.Background(), amqp.Delivery{Body: body, Headers: amqp.Table{retryCountHeader: int32(1)}})

	require.NoError(t, err) // the original delivery is still acked; retry is a fresh publish
	require.Len(t, broker.published, 1)
	assert.Equal(t, int32(2), broker.published[0][retryCountHeader])
}

func TestDispatcher_Handle_GivesUpAfterMaxRetries(t *testing.T) {
	repo := &fakeOrderRepo{status: store.StatusPending, failCount: 10}
	machine := orderflow.NewMachine(repo, &fakeCache{}, time.Millisecond, time.Millisecond)
	broker := &fakeBroker{}
	d := NewDispatcher(broker, machine, "orders.created", 3, time.Millisecond, 1)

	body, _ := json.Marshal(Task{OrderID: "order-1", PrincipalID: 7})
	err := d.handle(context.Background(), amqp.Delivery{Body: body, Headers: amqp.Table{retryCountHeader: int32(3)}})

	require.NoError(t, err)
	assert.Empty(t, broker.published)
}

func TestDispatcher_Handle_DropsMalformedTask(t *testing.T) {
	machine := orderflow.NewMachine(&fakeOrderRepo{}, &fakeCache{}, time.Millisecond, time.Millisecond)
	broker := &fakeBroker{}
	d := NewDispatcher(broker, machine, "orders.created", 3, time.Millisecond, 1)

	err := d.handle(context.Background(), amqp.Delivery{Body: []byte("not json")})

	require.NoError(t, err)
	assert.Empty(t, broker.published)
}
