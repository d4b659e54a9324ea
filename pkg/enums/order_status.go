package enums

import "fmt"

// OrderStatus tracks the lifecycle of an order.
type OrderStatus string

const (
	OrderStatusPending        OrderStatus = "pending"
	OrderStatusProcessing     OrderStatus = "processing"
	OrderStatusShipped        OrderStatus = "shipped"
	OrderStatusOutForDelivery OrderStatus = "out_for_delivery"
	OrderStatusDelivered      OrderStatus = "delivered"
	OrderStatusCancelled      OrderStatus = "cancelled"
	OrderStatusReturnRequest  OrderStatus = "return_requested"
	OrderStatusReturnApproved OrderStatus = "return_approved"
	OrderStatusReturnRejected OrderStatus = "return_rejected"
)

var validOrderStatuses = []OrderStatus{
	OrderStatusPending,
	OrderStatusProcessing,
	OrderStatusShipped,
	OrderStatusOutForDelivery,
	OrderStatusDelivered,
	OrderStatusCancelled,
	OrderStatusReturnRequest,
	OrderStatusReturnApproved,
	OrderStatusReturnRejected,
}

// forwardOrderStatuses is the delivery progression driven by Advance.
var forwardOrderStatuses = []OrderStatus{
	OrderStatusPending,
	OrderStatusProcessing,
	OrderStatusShipped,
	OrderStatusOutForDelivery,
	OrderStatusDelivered,
}

// String implements fmt.Stringer.
func (o OrderStatus) String() string {
	return string(o)
}

// IsValid reports whether the value is a known OrderStatus.
func (o OrderStatus) IsValid() bool {
	for _, candidate := range validOrderStatuses {
		if candidate == o {
			return true
		}
	}
	return false
}

// Next returns the forward-progress successor, or false when the status is not
// part of the forward flow or is already terminal for it.
func (o OrderStatus) Next() (OrderStatus, bool) {
	for i, candidate := range forwardOrderStatuses {
		if candidate == o && i+1 < len(forwardOrderStatuses) {
			return forwardOrderStatuses[i+1], true
		}
	}
	return "", false
}

// Cancellable reports whether a whole order in this status may still be
// cancelled. Anything at or past shipment is locked in.
func (o OrderStatus) Cancellable() bool {
	return o == OrderStatusPending || o == OrderStatusProcessing
}

// ParseOrderStatus converts raw input into an OrderStatus.
func ParseOrderStatus(value string) (OrderStatus, error) {
	for _, candidate := range validOrderStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid order status %q", value)
}
