package enums

import (
	"fmt"
	"strings"
)

// OrderStatus is the unified review-workflow state machine. Two historical
// intake paths used divergent vocabularies for the same four states; both
// are accepted by ParseOrderStatus and normalized onto these values.
type OrderStatus string

const (
	OrderStatusPendingReview        OrderStatus = "pending_review"
	OrderStatusAwaitingConfirmation OrderStatus = "awaiting_confirmation"
	OrderStatusConfirmed            OrderStatus = "confirmed"
	OrderStatusCancelled            OrderStatus = "cancelled"
)

var validOrderStatuses = []OrderStatus{
	OrderStatusPendingReview,
	OrderStatusAwaitingConfirmation,
	OrderStatusConfirmed,
	OrderStatusCancelled,
}

// legacyOrderStatusAliases maps both historical intake vocabularies onto the
// canonical states.
var legacyOrderStatusAliases = map[string]OrderStatus{
	"pending review":       OrderStatusPendingReview,
	"pending_admin_review": OrderStatusPendingReview,
	"awaiting confirmation": OrderStatusAwaitingConfirmation,
	"waiting_confirmation":  OrderStatusAwaitingConfirmation,
	"canceled":              OrderStatusCancelled,
}

// String implements fmt.Stringer.
func (s OrderStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is a known OrderStatus.
func (s OrderStatus) IsValid() bool {
	for _, candidate := range validOrderStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no further workflow transition is permitted.
func (s OrderStatus) IsTerminal() bool {
	return s == OrderStatusConfirmed || s == OrderStatusCancelled
}

// ParseOrderStatus converts raw input, including legacy spellings from both
// historical intake paths, into an OrderStatus.
func ParseOrderStatus(value string) (OrderStatus, error) {
	normalized := strings.ToLower(strings.TrimSpace(value))
	for _, candidate := range validOrderStatuses {
		if string(candidate) == normalized {
			return candidate, nil
		}
	}
	if alias, ok := legacyOrderStatusAliases[normalized]; ok {
		return alias, nil
	}
	return "", fmt.Errorf("invalid order status %q", value)
}
