package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/rigforge/rigforge-backend/pkg/types"
)

// BlacklistEntry records components permanently withdrawn from sale after a
// damaged return. Blacklisted stock is never released back to the inventory
// ledger.
type BlacklistEntry struct {
	ID          uuid.UUID                   `gorm:"column:id;type:uuid;primaryKey"`
	OrderID     uuid.UUID                   `gorm:"column:order_id;type:uuid;not null;index"`
	OrderItemID uuid.UUID                   `gorm:"column:order_item_id;type:uuid;not null"`
	Reason      string                      `gorm:"column:reason;not null"`
	Components  types.BlacklistedComponents `gorm:"column:components;type:jsonb;serializer:json"`
	CreatedAt   time.Time                   `gorm:"column:created_at;autoCreateTime"`
}
