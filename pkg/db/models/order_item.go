package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/rigforge/rigforge-backend/pkg/enums"
	"github.com/rigforge/rigforge-backend/pkg/types"
)

// OrderItem is one line of an order: the price and discount captured at order
// time plus the frozen 8-slot component snapshot backing the build.
type OrderItem struct {
	ID              uuid.UUID                `gorm:"column:id;type:uuid;primaryKey"`
	OrderID         uuid.UUID                `gorm:"column:order_id;type:uuid;not null;index"`
	Name            string                   `gorm:"column:name;not null"`
	Qty             int                      `gorm:"column:qty;not null"`
	UnitPriceCents  int                      `gorm:"column:unit_price_cents;not null"`
	DiscountPercent int                      `gorm:"column:discount_percent;not null;default:0"`
	Components      types.ComponentSnapshots `gorm:"column:components;type:jsonb;serializer:json"`
	Status          enums.OrderItemStatus    `gorm:"column:status;not null;default:'active'"`
	Reason          *string                  `gorm:"column:reason"`
	CreatedAt       time.Time                `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time                `gorm:"column:updated_at;autoUpdateTime"`
}
