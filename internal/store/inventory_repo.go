package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/campusbites/orderline/pkg/database"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ErrInventoryNotFound is returned when a menu item has no inventory row.
var ErrInventoryNotFound = errors.New("inventory row not found")

// ErrStaleVersion is the internal signal raised when a conditional update
// affects zero rows because another writer incremented the version first
// (spec.md §4.B step 3). It must never be surfaced past the deduction
// engine, and is never reused for any other condition.
var ErrStaleVersion = errors.New("stale inventory version")

// InventoryRepository exposes row reads and the single-statement
// conditional update that is the Inventory Store's entire write surface
// (spec.md §4.A): only the Deduction Engine is permitted to call
// CompareAndDeduct.
type InventoryRepository interface {
	GetByMenuItemID(ctx context.Context, menuItemID string) (*Inventory, error)

	// CompareAndDeduct sets current_stock = expectedStock - quantity and
	// version = expectedVersion + 1, but only where version still equals
	// expectedVersion. It returns ErrStaleVersion if no row matched.
	CompareAndDeduct(ctx context.Context, menuItemID string, expectedStock, expectedVersion, quantity int64) error

	// AppendAudit writes one append-only deduction audit entry.
	AppendAudit(ctx context.Context, entry *DeductionAudit) error

	// SetStock overwrites current_stock and initial_stock directly; used
	// only to seed inventory, never by the deduction path.
	SetStock(ctx context.Context, menuItemID string, initialStock int64) error

	// List returns every inventory row, for the supplemented bulk stock
	// read endpoint.
	List(ctx context.Context) ([]Inventory, error)
}

type inventoryRepository struct {
	db *gorm.DB
}

// NewInventoryRepository creates a new InventoryRepository instance.
func NewInventoryRepository(db *gorm.DB) InventoryRepository {
	return &inventoryRepository{db: db}
}

func (r *inventoryRepository) GetByMenuItemID(ctx context.Context, menuItemID string) (*Inventory, error) {
	var inv Inventory
	db := database.GetDBFromContext(ctx, r.db)
	if err := db.Where("menu_item_id = ?", menuItemID).First(&inv).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInventoryNotFound
		}
		return nil, fmt.Errorf("failed to get inventory for '%s': %w", menuItemID, err)
	}
	return &inv, nil
}

// CompareAndDeduct is the single conditional UPDATE that is the CAS
// predicate for the whole engine (spec.md §4.A, §4.B step 2). It must be
// exactly one statement so the database, not application code, decides
// atomically whether the predicate still holds.
func (r *inventoryRepository) CompareAndDeduct(ctx context.Context, menuItemID string, expectedStock, expectedVersion, quantity int64) error {
	db := database.GetDBFromContext(ctx, r.db)

	result := db.Model(&Inventory{}).
		Where("menu_item_id = ? AND version = ?", menuItemID, expectedVersion).
		Updates(map[string]interface{}{
			"current_stock": expectedStock - quantity,
			"version":       expectedVersion + 1,
			"updated_at":    time.Now(),
		})
	if result.Error != nil {
		return fmt.Errorf("failed to deduct stock for '%s': %w", menuItemID, result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrStaleVersion
	}
	return nil
}

func (r *inventoryRepository) AppendAudit(ctx context.Context, entry *DeductionAudit) error {
	db := database.GetDBFromContext(ctx, r.db)
	if err := db.Create(entry).Error; err != nil {
		return fmt.Errorf("failed to append deduction audit: %w", err)
	}
	return nil
}

func (r *inventoryRepository) SetStock(ctx context.Context, menuItemID string, initialStock int64) error {
	db := database.GetDBFromContext(ctx, r.db)
	inv := Inventory{
		MenuItemID:   menuItemID,
		CurrentStock: initialStock,
		InitialStock: initialStock,
		Version:      1,
		UpdatedAt:    time.Now(),
	}
	onConflict := clause.OnConflict{
		Columns:   []clause.Column{{Name: "menu_item_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"current_stock", "initial_stock", "updated_at"}),
	}
	if err := db.Clauses(onConflict).Create(&inv).Error; err != nil {
		return fmt.Errorf("failed to seed inventory for '%s': %w", menuItemID, err)
	}
	return nil
}

func (r *inventoryRepository) List(ctx context.Context) ([]Inventory, error) {
	var rows []Inventory
	db := database.GetDBFromContext(ctx, r.db)
	if err := db.Order("menu_item_id ASC").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to list inventory: %w", err)
	}
	return rows, nil
}
