package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/rigforge/rigforge-backend/pkg/enums"
	"github.com/rigforge/rigforge-backend/pkg/types"
)

// CartItem is one line in a cart: either a catalog product reference or an
// embedded custom build, with a quantity.
type CartItem struct {
	ID          uuid.UUID          `gorm:"column:id;type:uuid;primaryKey"`
	CartID      uuid.UUID          `gorm:"column:cart_id;type:uuid;not null;index"`
	Kind        enums.CartItemKind `gorm:"column:kind;not null"`
	ProductID   *uuid.UUID         `gorm:"column:product_id;type:uuid"`
	CustomBuild *types.CustomBuild `gorm:"column:custom_build;type:jsonb;serializer:json"`
	Qty         int                `gorm:"column:qty;not null"`
	CreatedAt   time.Time          `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time          `gorm:"column:updated_at;autoUpdateTime"`
}
