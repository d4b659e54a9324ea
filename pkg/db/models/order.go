package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/rigforge/rigforge-backend/pkg/enums"
	"github.com/rigforge/rigforge-backend/pkg/types"
)

// Order is the immutable snapshot produced from a cart at checkout. Prices
// are frozen at creation; refunds are tracked through the wallet ledger and
// never rewrite TotalPriceCents.
type Order struct {
	ID          uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	OrderNumber int64     `gorm:"column:order_number;not null;uniqueIndex"`

	UserID    uuid.UUID `gorm:"column:user_id;type:uuid;not null;index"`
	UserName  string    `gorm:"column:user_name;not null"`
	UserEmail string    `gorm:"column:user_email;not null"`

	Items           []OrderItem    `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	ShippingAddress *types.Address `gorm:"column:shipping_address;type:jsonb;serializer:json"`

	PaymentMethod      enums.PaymentMethod  `gorm:"column:payment_method;not null"`
	ItemsPriceCents    int                  `gorm:"column:items_price_cents;not null"`
	TaxPriceCents      int                  `gorm:"column:tax_price_cents;not null;default:0"`
	ShippingPriceCents int                  `gorm:"column:shipping_price_cents;not null;default:0"`
	TotalPriceCents    int                  `gorm:"column:total_price_cents;not null"`
	CouponID           *uuid.UUID           `gorm:"column:coupon_id;type:uuid"`
	CouponCode         *string              `gorm:"column:coupon_code"`
	CouponDiscount     int                  `gorm:"column:coupon_discount_cents;not null;default:0"`
	PaymentResult      *types.PaymentResult `gorm:"column:payment_result;type:jsonb;serializer:json"`

	IsPaid      bool       `gorm:"column:is_paid;not null;default:false"`
	PaidAt      *time.Time `gorm:"column:paid_at"`
	IsDelivered bool       `gorm:"column:is_delivered;not null;default:false"`
	DeliveredAt *time.Time `gorm:"column:delivered_at"`
	IsReturned  bool       `gorm:"column:is_returned;not null;default:false"`

	Status enums.OrderStatus `gorm:"column:status;not null;default:'pending'"`
	Reason *string           `gorm:"column:reason"`

	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

// ActiveItems returns the items still in the active state.
func (o Order) ActiveItems() []OrderItem {
	active := make([]OrderItem, 0, len(o.Items))
	for _, item := range o.Items {
		if item.Status == enums.OrderItemStatusActive {
			active = append(active, item)
		}
	}
	return active
}
