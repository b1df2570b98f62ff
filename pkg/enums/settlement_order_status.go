package enums

import "fmt"

// SettlementOrderStatus tracks the review lifecycle of a settlement order.
type SettlementOrderStatus string

const (
	SettlementOrderStatusPendingReview SettlementOrderStatus = "PENDING_REVIEW"
	SettlementOrderStatusReviewed      SettlementOrderStatus = "REVIEWED"
)

var validSettlementOrderStatuses = []SettlementOrderStatus{
	SettlementOrderStatusPendingReview,
	SettlementOrderStatusReviewed,
}

// String implements fmt.Stringer.
func (v SettlementOrderStatus) String() string {
	return string(v)
}

// IsValid reports whether the value is a known SettlementOrderStatus.
func (v SettlementOrderStatus) IsValid() bool {
	for _, candidate := range validSettlementOrderStatuses {
		if candidate == v {
			return true
		}
	}
	return false
}

// ParseSettlementOrderStatus converts raw input into a SettlementOrderStatus.
func ParseSettlementOrderStatus(value string) (SettlementOrderStatus, error) {
	for _, candidate := range validSettlementOrderStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid settlement order status %q", value)
}
