package store

import "time"

// Order status values (spec.md §4.G). G is the sole mutator; F may only
// create a row in StatusPending.
const (
	StatusPending       = "PENDING"
	StatusStockVerified = "STOCK_VERIFIED"
	StatusInKitchen     = "IN_KITCHEN"
	StatusReady         = "READY"
	StatusFailed        = "FAILED"
)

// IsTerminal reports whether status is one from which no further
// automatic transitions occur.
func IsTerminal(status string) bool {
	return status == StatusReady || status == StatusFailed
}

// Order is the per-order row in the order store (spec.md §3). OrderID is
// client- or server-generated, so it is not a snowflake ID and does not
// embed Base.
type Order struct {
	OrderID       string `gorm:"primaryKey"`
	PrincipalID   uint64 `gorm:"index;not null"`
	Status        string `gorm:"index;not null"`
	SpecialNotes  *string
	CreatedAt     time.Time
	UpdatedAt     time.Time
	Items         []OrderItem `gorm:"foreignKey:OrderID;references:OrderID"`
}

func (Order) TableName() string { return "orders" }

// OrderItem is one requested menu item within an order (spec.md §3).
type OrderItem struct {
	Base
	OrderID    string `gorm:"index;not null"`
	MenuItemID string `gorm:"not null"`
	Quantity   int64  `gorm:"not null"`
}

func (OrderItem) TableName() string { return "order_items" }
