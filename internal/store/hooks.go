package store

import (
	"github.com/campusbites/orderline/pkg/idgen"
	"gorm.io/gorm"
)

// BeforeCreate assigns a snowflake ID when the caller has not already set
// one. Types that embed Base pick this up via method promotion, so gorm's
// hook scan finds it without any per-type boilerplate.
func (b *Base) BeforeCreate(tx *gorm.DB) error {
	if b.ID == 0 {
		b.ID = idgen.GenID()
	}
	return nil
}
