package orders

import (
	"testing"

	"github.com/google/uuid"

	"github.com/rigforge/rigforge-backend/pkg/db/models"
)

func TestItemRefundProratesCouponClawback(t *testing.T) {
	t.Parallel()

	// Two lines totalling 23333 with a 2500 coupon. The 10000 line carries
	// 2500 * 10000/23333 = 1071 of the discount, so its refund is 8929.
	order := &models.Order{
		ItemsPriceCents: 23333,
		CouponDiscount:  2500,
	}
	item := models.OrderItem{Qty: 1, UnitPriceCents: 10000}

	if got := ItemRefundCents(order, item); got != 8929 {
		t.Errorf("refund = %d, want 8929", got)
	}
}

func TestItemRefundWithoutCoupon(t *testing.T) {
	t.Parallel()

	order := &models.Order{ItemsPriceCents: 20000}
	item := models.OrderItem{Qty: 2, UnitPriceCents: 5000}

	if got := ItemRefundCents(order, item); got != 10000 {
		t.Errorf("refund = %d, want full line total 10000", got)
	}
}

func TestItemRefundAppliesLineDiscount(t *testing.T) {
	t.Parallel()

	// 15% line discount: effective = 2 * 9999 * 0.85 = 16998 (rounded per line).
	order := &models.Order{ItemsPriceCents: 16998}
	item := models.OrderItem{Qty: 2, UnitPriceCents: 9999, DiscountPercent: 15}

	if got := ItemRefundCents(order, item); got != 16998 {
		t.Errorf("refund = %d, want 16998", got)
	}
}

func TestWholeOrderRefundIsChargedTotal(t *testing.T) {
	t.Parallel()

	order := &models.Order{
		ItemsPriceCents:    10000,
		ShippingPriceCents: 500,
		TaxPriceCents:      1800,
		CouponDiscount:     1000,
		TotalPriceCents:    11300,
	}
	if got := WholeOrderRefundCents(order); got != 11300 {
		t.Errorf("refund = %d, want 11300", got)
	}
}

func TestRefundConservation(t *testing.T) {
	t.Parallel()

	// Refunding every item one by one must reconstruct itemsPrice minus the
	// coupon discount, up to one cent of rounding per item.
	items := []models.OrderItem{
		{ID: uuid.New(), Qty: 1, UnitPriceCents: 33333},
		{ID: uuid.New(), Qty: 3, UnitPriceCents: 7777, DiscountPercent: 10},
		{ID: uuid.New(), Qty: 2, UnitPriceCents: 12501, DiscountPercent: 7},
		{ID: uuid.New(), Qty: 1, UnitPriceCents: 999},
	}
	itemsPrice := 0
	for _, item := range items {
		itemsPrice += EffectiveItemCents(item)
	}
	order := &models.Order{ItemsPriceCents: itemsPrice, CouponDiscount: 4999}

	refunded := 0
	for _, item := range items {
		refunded += ItemRefundCents(order, item)
	}

	want := itemsPrice - order.CouponDiscount
	residual := refunded - want
	if residual < 0 {
		residual = -residual
	}
	if residual > len(items) {
		t.Errorf("residual %d cents exceeds tolerance of %d", residual, len(items))
	}
}
