package enums

import "fmt"

// CartItemKind distinguishes catalog products from embedded custom builds.
type CartItemKind string

const (
	CartItemKindProduct     CartItemKind = "product"
	CartItemKindCustomBuild CartItemKind = "custom_build"
)

var validCartItemKinds = []CartItemKind{
	CartItemKindProduct,
	CartItemKindCustomBuild,
}

// String implements fmt.Stringer.
func (k CartItemKind) String() string {
	return string(k)
}

// IsValid reports whether the value is a known CartItemKind.
func (k CartItemKind) IsValid() bool {
	for _, candidate := range validCartItemKinds {
		if candidate == k {
			return true
		}
	}
	return false
}

// ParseCartItemKind converts raw input into a CartItemKind.
func ParseCartItemKind(value string) (CartItemKind, error) {
	for _, candidate := range validCartItemKinds {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid cart item kind %q", value)
}
