package pricing

import (
	"github.com/shopspring/decimal"

	"github.com/rigforge/rigforge-backend/pkg/config"
)

// LineTotalCents prices one line: unitPrice discounted by discountPercent,
// multiplied by qty, rounded once per line. Cart summaries, checkout totals
// and refund proration all go through this function so they cannot drift.
func LineTotalCents(unitPriceCents, discountPercent, qty int) int {
	if qty <= 0 || unitPriceCents <= 0 {
		return 0
	}
	if discountPercent <= 0 {
		return unitPriceCents * qty
	}
	if discountPercent > 100 {
		discountPercent = 100
	}

	unit := decimal.NewFromInt(int64(unitPriceCents))
	factor := decimal.NewFromInt(int64(100 - discountPercent)).
		Div(decimal.NewFromInt(100))
	return int(unit.Mul(factor).
		Mul(decimal.NewFromInt(int64(qty))).
		Round(0).IntPart())
}

// TaxCents applies the configured basis-point rate to the items total.
func TaxCents(itemsCents, rateBPS int) int {
	if itemsCents <= 0 || rateBPS <= 0 {
		return 0
	}
	return int(decimal.NewFromInt(int64(itemsCents)).
		Mul(decimal.NewFromInt(int64(rateBPS))).
		Div(decimal.NewFromInt(10000)).
		Round(0).IntPart())
}

// ShippingCents returns the flat fee, waived above the free-shipping threshold.
func ShippingCents(itemsCents int, cfg config.PricingConfig) int {
	if itemsCents >= cfg.FreeShippingOverCents {
		return 0
	}
	return cfg.ShippingFeeCents
}
