package store

import "time"

// Inventory is the system-of-record row for one menu item's stock
// (spec.md §3). version is the CAS predicate the Deduction Engine writes
// through; nothing else in this repo is permitted to touch it.
type Inventory struct {
	MenuItemID   string `gorm:"primaryKey"`
	CurrentStock int64  `gorm:"not null"`
	InitialStock int64  `gorm:"not null"`
	Version      int64  `gorm:"not null;default:1"`
	UpdatedAt    time.Time
}

func (Inventory) TableName() string { return "inventory" }

// DeductionAudit is an append-only log entry written in the same
// transaction as a successful deduction (spec.md §3).
type DeductionAudit struct {
	Base
	OrderID     string `gorm:"index;not null"`
	MenuItemID  string `gorm:"index;not null"`
	Quantity    int64  `gorm:"not null"`
	PrincipalID uint64 `gorm:"index;not null"`
}

func (DeductionAudit) TableName() string { return "deduction_audits" }
