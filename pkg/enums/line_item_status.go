package enums

import "fmt"

// LineItemStatus tracks the fulfillment lifecycle of an order line item.
type LineItemStatus string

const (
	LineItemStatusPlaced    LineItemStatus = "placed"
	LineItemStatusConfirmed LineItemStatus = "confirmed"
	LineItemStatusShipped   LineItemStatus = "shipped"
	LineItemStatusDelivered LineItemStatus = "delivered"
	LineItemStatusCancelled LineItemStatus = "cancelled"
)

var validLineItemStatuses = []LineItemStatus{
	LineItemStatusPlaced,
	LineItemStatusConfirmed,
	LineItemStatusShipped,
	LineItemStatusDelivered,
	LineItemStatusCancelled,
}

// String implements fmt.Stringer.
func (s LineItemStatus) String() string {
	return string(s)
}

// IsTerminal reports whether the status ends the line item lifecycle.
func (s LineItemStatus) IsTerminal() bool {
	return s == LineItemStatusDelivered || s == LineItemStatusCancelled
}

// IsValid reports whether the value is a known LineItemStatus.
func (s LineItemStatus) IsValid() bool {
	for _, candidate := range validLineItemStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseLineItemStatus converts raw input into a LineItemStatus.
func ParseLineItemStatus(value string) (LineItemStatus, error) {
	for _, candidate := range validLineItemStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid line item status %q", value)
}
