package orderflow

import (
	"context"
	"testing"
	"time"

	"github.com/campusbites/orderline/internal/store"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeOrderRepo struct {
	orders map[string]*store.Order
}

func newFakeOrderRepo(status string) *fakeOrderRepo {
	return &fakeOrderRepo{orders: map[string]*store.Order{
		"order-1": {OrderID: "order-1", PrincipalID: 7, Status: status},
	}}
}

func (f *fakeOrderRepo) CreateOrder(ctx context.Context, order *store.Order, items []store.OrderItem) error {
	return nil
}

func (f *fakeOrderRepo) GetByID(ctx context.Context, orderID string) (*store.Order, error) {
	order, ok := f.orders[orderID]
	if !ok {
		return nil, store.ErrOrderNotFound
	}
	return order, nil
}

func (f *fakeOrderRepo) UpdateStatus(ctx context.Context, orderID, expectedCurrent, newStatus string) error {
	order, ok := f.orders[orderID]
	if !ok || order.Status != expectedCurrent {
		return store.ErrInvalidTransition
	}
	order.Status = newStatus
	return nil
}

func (f *fakeOrderRepo) ListNonTerminal(ctx context.Context, olderThan time.Duration) ([]store.Order, error) {
	return nil, nil
}

type fakeCache struct {
	published []string
}

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
	f.published = append(f.published, channel)
	return nil
}
func (f *fakeCache) Subscribe(ctx context.Context, channel string) *redis.PubSub { return nil }
func (f *fakeCache) RecordSlidingWindowHit(ctx context.Context, key string, now, windowStart time.Time, window time.Duration) (int64, error) {
	return 0, nil
}
func (f *fakeCache) Close() error { return nil }

func TestMachine_Run_HappyPathPublishesEachTransition(t *testing.T) {
	repo := newFakeOrderRepo(store.StatusPending)
	c := &fakeCache{}
	m := NewMachine(repo, c, time.Millisecond, 2*time.Millisecond)

	err := m.Run(context.Background(), "order-1", 7)

	require.NoError(t, err)
	assert.Equal(t, store.StatusReady, repo.orders["order-1"].Status)
	assert.Equal(t, []string{"order:order-1", "order:order-1", "order:order-1"}, c.published)
}

func TestMachine_Run_FailsOrderOnTransitionError(t *testing.T) {
	repo := newFakeOrderRepo(store.StatusInKitchen) // not PENDING, so the first transition can't apply
	c := &fakeCache{}
	m := NewMachine(repo, c, time.Millisecond, 2*time.Millisecond)

	err := m.Run(context.Background(), "order-1", 7)

	require.Error(t, err)
	assert.Equal(t, store.StatusFailed, repo.orders["order-1"].Status)
}

func TestMachine_Advance_MovesOneStepForward(t *testing.T) {
	repo := newFakeOrderRepo(store.StatusPending)
	m := NewMachine(repo, &fakeCache{}, time.Millisecond, time.Millisecond)

	err := m.Advance(context.Background(), "order-1")

	require.NoError(t, err)
	assert.Equal(t, store.StatusStockVerified, repo.orders["order-1"].Status)
}

func TestMachine_Advance_DoesNotPublish(t *testing.T) {
	repo := newFakeOrderRepo(store.StatusPending)
	c := &fakeCache{}
	m := NewMachine(repo, c, time.Millisecond, time.Millisecond)

	require.NoError(t, m.Advance(context.Background(), "order-1"))
	assert.Empty(t, c.published)
}

func TestMachine_Advance_RejectsPastReady(t *testing.T) {
	repo := newFakeOrderRepo(store.StatusReady)
	m := NewMachine(repo, &fakeCache{}, time.Millisecond, time.Millisecond)

	err := m.Advance(context.Background(), "order-1")

	require.ErrorIs(t, err, ErrInvalidTransition)
}

func TestMachine_Revert_MovesOneStepBackward(t *testing.T) {
	repo := newFakeOrderRepo(store.StatusInKitchen)
	m := NewMachine(repo, &fakeCache{}, time.Millisecond, time.Millisecond)

	err := m.Revert(context.Background(), "order-1")

	require.NoError(t, err)
	assert.Equal(t, store.StatusStockVerified, repo.orders["order-1"].Status)
}

func TestMachine_Revert_RejectsBeforePending(t *testing.T) {
	repo := newFakeOrderRepo(store.StatusPending)
	m := NewMachine(repo, &fakeCache{}, time.Millisecond, time.Millisecond)

	err := m.Revert(context.Background(), "order-1")

	require.ErrorIs(t, err, ErrInvalidTransition)
}

func TestMachine_Override_RejectsFailedOrders(t *testing.T) {
	repo := newFakeOrderRepo(store.StatusFailed)
	m := NewMachine(repo, &fakeCache{}, time.Millisecond, time.Millisecond)

	require.ErrorIs(t, m.Advance(context.Background(), "order-1"), ErrInvalidTransition)
	require.ErrorIs(t, m.Revert(context.Background(), "order-1"), ErrInvalidTransition)
}
