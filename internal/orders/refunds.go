package orders

import (
	"github.com/shopspring/decimal"

	"github.com/rigforge/rigforge-backend/internal/pricing"
	"github.com/rigforge/rigforge-backend/pkg/db/models"
)

// Refund arithmetic. All amounts are integer cents; decimal is used only at
// the single rounding point of the proration.
//
// A whole-order refund returns exactly what was charged. A single-item refund
// returns the item's effective line total minus its pro-rated share of the
// order's coupon discount:
//
//	refund = round(itemEffective − couponDiscount × itemEffective / itemsPrice)
//
// Summing per-item refunds therefore reconstructs itemsPrice − couponDiscount
// up to one cent of rounding error per item.

// EffectiveItemCents is the line total captured for the item at order time.
func EffectiveItemCents(item models.OrderItem) int {
	return pricing.LineTotalCents(item.UnitPriceCents, item.DiscountPercent, item.Qty)
}

// WholeOrderRefundCents refunds the full charged amount, shipping and tax
// included.
func WholeOrderRefundCents(order *models.Order) int {
	return order.TotalPriceCents
}

// ItemRefundCents computes the pro-rated refund for a single item.
func ItemRefundCents(order *models.Order, item models.OrderItem) int {
	itemEffective := EffectiveItemCents(item)
	if itemEffective <= 0 {
		return 0
	}
	if order.CouponDiscount <= 0 || order.ItemsPriceCents <= 0 {
		return itemEffective
	}

	effective := decimal.NewFromInt(int64(itemEffective))
	clawback := decimal.NewFromInt(int64(order.CouponDiscount)).
		Mul(effective).
		Div(decimal.NewFromInt(int64(order.ItemsPriceCents)))
	refund := int(effective.Sub(clawback).Round(0).IntPart())
	if refund < 0 {
		return 0
	}
	return refund
}
