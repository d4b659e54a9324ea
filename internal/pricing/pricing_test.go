package pricing

import (
	"testing"

	"github.com/rigforge/rigforge-backend/pkg/config"
)

func TestLineTotalCents(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name     string
		unit     int
		discount int
		qty      int
		want     int
	}{
		{"no discount", 100000, 0, 2, 200000},
		{"ten percent", 150000, 10, 2, 270000},
		{"rounds per line", 999, 15, 1, 849}, // 999 * 0.85 = 849.15
		{"discount over 100 clamps", 5000, 150, 1, 0},
		{"zero qty", 5000, 10, 0, 0},
	}
	for _, tc := range cases {
		got := LineTotalCents(tc.unit, tc.discount, tc.qty)
		if got != tc.want {
			t.Errorf("%s: got %d, want %d", tc.name, got, tc.want)
		}
	}
}

func TestTaxCents(t *testing.T) {
	t.Parallel()

	// 18% of 10000
	if got := TaxCents(10000, 1800); got != 1800 {
		t.Errorf("tax = %d, want 1800", got)
	}
	// rounds half up: 18% of 99 = 17.82
	if got := TaxCents(99, 1800); got != 18 {
		t.Errorf("tax = %d, want 18", got)
	}
	if got := TaxCents(0, 1800); got != 0 {
		t.Errorf("tax on zero = %d, want 0", got)
	}
}

func TestShippingCents(t *testing.T) {
	t.Parallel()

	cfg := config.PricingConfig{ShippingFeeCents: 9900, FreeShippingOverCents: 10000000}
	if got := ShippingCents(500000, cfg); got != 9900 {
		t.Errorf("shipping = %d, want 9900", got)
	}
	if got := ShippingCents(10000000, cfg); got != 0 {
		t.Errorf("shipping above threshold = %d, want 0", got)
	}
}
