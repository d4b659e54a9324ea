package models

import (
	"time"

	"github.com/google/uuid"
)

// CartRecord is the per-user mutable cart. It is created lazily, lives until
// checkout converts it, and is then emptied (items cleared, coupon detached).
type CartRecord struct {
	ID            uuid.UUID  `gorm:"column:id;type:uuid;primaryKey"`
	UserID        uuid.UUID  `gorm:"column:user_id;type:uuid;not null;uniqueIndex"`
	CouponID      *uuid.UUID `gorm:"column:coupon_id;type:uuid"`
	DiscountCents int        `gorm:"column:discount_cents;not null;default:0"`
	Items         []CartItem `gorm:"foreignKey:CartID;constraint:OnDelete:CASCADE"`
	CreatedAt     time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}
