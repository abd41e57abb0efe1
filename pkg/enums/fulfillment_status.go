package enums

import "fmt"

// FulfillmentStatus tracks the delivery lifecycle of a single order item.
type FulfillmentStatus string

const (
	FulfillmentStatusPending    FulfillmentStatus = "pending"
	FulfillmentStatusDispatched FulfillmentStatus = "dispatched"
	FulfillmentStatusConfirmed  FulfillmentStatus = "confirmed"
)

var validFulfillmentStatuses = []FulfillmentStatus{
	FulfillmentStatusPending,
	FulfillmentStatusDispatched,
	FulfillmentStatusConfirmed,
}

// String implements fmt.Stringer.
func (f FulfillmentStatus) String() string {
	return string(f)
}

// IsValid reports whether the value is a known FulfillmentStatus.
func (f FulfillmentStatus) IsValid() bool {
	for _, candidate := range validFulfillmentStatuses {
		if candidate == f {
			return true
		}
	}
	return false
}

// CanTransitionTo reports whether the transition from f to next is allowed.
// The lifecycle is strictly pending -> dispatched -> confirmed; no skips,
// no reversals.
func (f FulfillmentStatus) CanTransitionTo(next FulfillmentStatus) bool {
	switch f {
	case FulfillmentStatusPending:
		return next == FulfillmentStatusDispatched
	case FulfillmentStatusDispatched:
		return next == FulfillmentStatusConfirmed
	default:
		return false
	}
}

// ParseFulfillmentStatus converts raw input into a FulfillmentStatus.
func ParseFulfillmentStatus(value string) (FulfillmentStatus, error) {
	for _, candidate := range validFulfillmentStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid fulfillment status %q", value)
}
