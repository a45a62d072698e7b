package service

import (
	"context"
	"testing"
	"time"

	"github.com/campusbites/orderline/internal/deduction"
	"github.com/campusbites/orderline/internal/store"
	"github.com/campusbites/orderline/pkg/config"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type passthroughTxManager struct{}

func (passthroughTxManager) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

type fakeInventoryRepo struct {
	rows map[string]*store.Inventory
}

func (f *fakeInventoryRepo) GetByMenuItemID(ctx context.Context, menuItemID string) (*store.Inventory, error) {
	row, ok := f.rows[menuItemID]
	if !ok {
		return nil, store.ErrInventoryNotFound
	}
	cp := *row
	return &cp, nil
}

func (f *fakeInventoryRepo) CompareAndDeduct(ctx context.Context, menuItemID string, expectedStock, expectedVersion, quantity int64) error {
	row := f.rows[menuItemID]
	if row.Version != expectedVersion {
		return store.ErrStaleVersion
	}
	row.CurrentStock = expectedStock - quantity
	row.Version = expectedVersion + 1
	return nil
}

func (f *fakeInventoryRepo) AppendAudit(ctx context.Context, entry *store.DeductionAudit) error {
	return nil
}

func (f *fakeInventoryRepo) SetStock(ctx context.Context, menuItemID string, initialStock int64) error {
	f.rows[menuItemID] = &store.Inventory{MenuItemID: menuItemID, CurrentStock: initialStock, InitialStock: initialStock, Version: 1}
	return nil
}

func (f *fakeInventoryRepo) List(ctx context.Context) ([]store.Inventory, error) {
	rows := make([]store.Inventory, 0, len(f.rows))
	for _, row := range f.rows {
		rows = append(rows, *row)
	}
	return rows, nil
}

type fakeCache struct{ sets map[string]string }

func (f *fakeCache) Get(ctx context.Context, key string) (string, error) { return f.sets[key], nil }
func (f *fakeCache) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	if f.sets == nil {
		f.sets = map[string]string{}
	}
	f.sets[key] = value.(string)
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

func testOptLockConfig() config.OptimisticLockConfig {
	return config.OptimisticLockConfig{MaxRetries: 5, BaseDelay: time.Millisecond, CapDelay: 5 * time.Millisecond, Jitter: time.Millisecond}
}

func newTestStockService() (StockService, *fakeInventoryRepo, *fakeCache) {
	repo := &fakeInventoryRepo{rows: map[string]*store.Inventory{
		"BURGER": {MenuItemID: "BURGER", CurrentStock: 3, InitialStock: 10, Version: 1},
	}}
	c := &fakeCache{}
	engine := deduction.NewEngine(repo, passthroughTxManager{}, c, 10*time.Second, testOptLockConfig())
	return NewStockService(engine, repo, c, 10*time.Second), repo, c
}

func TestStockService_Deduct_Success(t *testing.T) {
	svc, _, cache := newTestStockService()

	results, err := svc.Deduct(context.Background(), "order-1", 7, []DeductItemReq{{MenuItemID: "BURGER", Quantity: 2}})

	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, int64(1), results[0].RemainingStock)
	assert.Equal(t, "1", cache.sets["stock:BURGER"])
}

func TestStockService_Deduct_OutOfStock(t *testing.T) {
	svc, _, _ := newTestStockService()

	_, err := svc.Deduct(context.Background(), "order-1", 7, []DeductItemReq{{MenuItemID: "BURGER", Quantity: 99}})

	require.ErrorIs(t, err, ErrOutOfStock)
}

func TestStockService_Deduct_UnknownItem(t *testing.T) {
	svc, _, _ := newTestStockService()

	_, err := svc.Deduct(context.Background(), "order-1", 7, []DeductItemReq{{MenuItemID: "GHOST", Quantity: 1}})

	require.ErrorIs(t, err, ErrOutOfStock)
}

func TestStockService_GetStock_WarmsCache(t *testing.T) {
	svc, _, cache := newTestStockService()

	view, err := svc.GetStock(context.Background(), "BURGER")

	require.NoError(t, err)
	assert.Equal(t, int64(3), view.CurrentStock)
	assert.Equal(t, "3", cache.sets["stock:BURGER"])
}

func TestStockService_ListStock(t *testing.T) {
	svc, _, _ := newTestStockService()

	views, err := svc.ListStock(context.Background())

	require.NoError(t, err)
	require.Len(t, views, 1)
	assert.Equal(t, "BURGER", views[0].MenuItemID)
}
