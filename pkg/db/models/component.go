package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/rigforge/rigforge-backend/pkg/enums"
)

// Component is a single purchasable hardware part with its own stock count.
// Stock is mutated only through the inventory ledger's conditional updates.
type Component struct {
	ID         uuid.UUID               `gorm:"column:id;type:uuid;primaryKey"`
	Name       string                  `gorm:"column:name;not null"`
	Category   enums.ComponentCategory `gorm:"column:category;not null"`
	PriceCents int                     `gorm:"column:price_cents;not null"`
	Stock      int                     `gorm:"column:stock;not null;default:0"`
	Image      string                  `gorm:"column:image"`
	Specs      json.RawMessage         `gorm:"column:specs;type:jsonb"`
	Tags       pq.StringArray          `gorm:"column:tags;type:text[]"`
	Active     bool                    `gorm:"column:active;not null"`
	CreatedAt  time.Time               `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt  time.Time               `gorm:"column:updated_at;autoUpdateTime"`
}
