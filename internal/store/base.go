// Package store holds the gorm models and repositories for the inventory,
// audit log, and order system of record (spec.md §3).
package store

import (
	"time"

	"gorm.io/gorm"
)

// Base is embedded by every model that needs a snowflake-assigned ID and
// standard timestamps.
type Base struct {
	ID        uint64         `gorm:"primaryKey;autoIncrement:false"`
	CreatedAt time.Time
	UpdatedAt time.Time
	DeletedAt gorm.DeletedAt `gorm:"index"`
}
