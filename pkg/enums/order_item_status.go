package enums

import "fmt"

// OrderItemStatus tracks the per-line state within an order.
type OrderItemStatus string

const (
	OrderItemStatusActive         OrderItemStatus = "active"
	OrderItemStatusCancelled      OrderItemStatus = "cancelled"
	OrderItemStatusReturnRequest  OrderItemStatus = "return_requested"
	OrderItemStatusReturnApproved OrderItemStatus = "return_approved"
	OrderItemStatusReturnRejected OrderItemStatus = "return_rejected"
)

var validOrderItemStatuses = []OrderItemStatus{
	OrderItemStatusActive,
	OrderItemStatusCancelled,
	OrderItemStatusReturnRequest,
	OrderItemStatusReturnApproved,
	OrderItemStatusReturnRejected,
}

// String implements fmt.Stringer.
func (s OrderItemStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is a known OrderItemStatus.
func (s OrderItemStatus) IsValid() bool {
	for _, candidate := range validOrderItemStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseOrderItemStatus converts raw input into an OrderItemStatus.
func ParseOrderItemStatus(value string) (OrderItemStatus, error) {
	for _, candidate := range validOrderItemStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid order item status %q", value)
}

// Terminal reports whether the item can take no further transition.
// Return-rejected items stay owned by the customer but are done moving.
func (s OrderItemStatus) Terminal() bool {
	switch s {
	case OrderItemStatusCancelled, OrderItemStatusReturnApproved, OrderItemStatusReturnRejected:
		return true
	default:
		return false
	}
}
