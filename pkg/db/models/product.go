package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/rigforge/rigforge-backend/pkg/enums"
)

// Product is a pre-built configuration sold as a unit: a price, an optional
// line discount, and one component reference per build slot.
type Product struct {
	ID              uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	Name            string    `gorm:"column:name;not null"`
	Description     string    `gorm:"column:description"`
	PriceCents      int       `gorm:"column:price_cents;not null"`
	DiscountPercent int       `gorm:"column:discount_percent;not null;default:0"`
	Image           string    `gorm:"column:image"`
	Active          bool      `gorm:"column:active;not null"`

	CPUID         uuid.UUID `gorm:"column:cpu_id;type:uuid;not null"`
	GPUID         uuid.UUID `gorm:"column:gpu_id;type:uuid;not null"`
	MotherboardID uuid.UUID `gorm:"column:motherboard_id;type:uuid;not null"`
	RAMID         uuid.UUID `gorm:"column:ram_id;type:uuid;not null"`
	StorageID     uuid.UUID `gorm:"column:storage_id;type:uuid;not null"`
	CaseID        uuid.UUID `gorm:"column:case_id;type:uuid;not null"`
	PSUID         uuid.UUID `gorm:"column:psu_id;type:uuid;not null"`
	CoolerID      uuid.UUID `gorm:"column:cooler_id;type:uuid;not null"`

	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

// Configuration returns the default 8-slot configuration keyed by category.
func (p Product) Configuration() map[enums.ComponentCategory]uuid.UUID {
	return map[enums.ComponentCategory]uuid.UUID{
		enums.ComponentCategoryCPU:         p.CPUID,
		enums.ComponentCategoryGPU:         p.GPUID,
		enums.ComponentCategoryMotherboard: p.MotherboardID,
		enums.ComponentCategoryRAM:         p.RAMID,
		enums.ComponentCategoryStorage:     p.StorageID,
		enums.ComponentCategoryCase:        p.CaseID,
		enums.ComponentCategoryPSU:         p.PSUID,
		enums.ComponentCategoryCooler:      p.CoolerID,
	}
}
