package models

import (
	"time"

	"github.com/google/uuid"

	dbtypes "github.com/rigforge/rigforge-backend/pkg/db/types"
	"github.com/rigforge/rigforge-backend/pkg/enums"
)

// Coupon is a discount code. Usage bookkeeping (UsageCount, UsedBy) mutates
// only inside the order transaction that consumes the coupon.
type Coupon struct {
	ID               uuid.UUID         `gorm:"column:id;type:uuid;primaryKey"`
	Code             string            `gorm:"column:code;not null;uniqueIndex"`
	Type             enums.CouponType  `gorm:"column:type;not null"`
	Value            int               `gorm:"column:value;not null"`
	MinOrderCents    int               `gorm:"column:min_order_cents;not null;default:0"`
	MaxDiscountCents *int              `gorm:"column:max_discount_cents"`
	ExpiresAt        time.Time         `gorm:"column:expires_at;not null"`
	UsageLimit       int               `gorm:"column:usage_limit;not null"`
	UsageCount       int               `gorm:"column:usage_count;not null;default:0"`
	AllowedUsers     dbtypes.UUIDArray `gorm:"column:allowed_users;type:uuid[]"`
	UsedBy           dbtypes.UUIDArray `gorm:"column:used_by;type:uuid[]"`
	Active           bool              `gorm:"column:active;not null"`
	CreatedAt        time.Time         `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt        time.Time         `gorm:"column:updated_at;autoUpdateTime"`
}
