package enums

import "fmt"

// OutboxAggregateType maps to the aggregate_type enum in Postgres.
type OutboxAggregateType string

const (
	AggregateOrderItem  OutboxAggregateType = "order_item"
	AggregateWallet     OutboxAggregateType = "wallet"
	AggregatePayment    OutboxAggregateType = "payment"
	AggregateWithdrawal OutboxAggregateType = "withdrawal"
)

var validAggregateTypes = []OutboxAggregateType{
	AggregateOrderItem,
	AggregateWallet,
	AggregatePayment,
	AggregateWithdrawal,
}

// IsValid reports whether the value matches the canonical aggregate_type enum.
func (a OutboxAggregateType) IsValid() bool {
	for _, candidate := range validAggregateTypes {
		if candidate == a {
			return true
		}
	}
	return false
}

// ParseOutboxAggregateType converts raw input into OutboxAggregateType.
func ParseOutboxAggregateType(value string) (OutboxAggregateType, error) {
	for _, candidate := range validAggregateTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid aggregate type %q", value)
}

// OutboxEventType maps to the event_type enum in Postgres.
type OutboxEventType string

const (
	EventOrderItemDispatched OutboxEventType = "order_item_dispatched"
	EventOrderItemSettled    OutboxEventType = "order_item_settled"
	EventPaymentVerified     OutboxEventType = "payment_verified"
	EventPaymentFailed       OutboxEventType = "payment_failed"
	EventWithdrawalRequested OutboxEventType = "withdrawal_requested"
	EventWithdrawalCompleted OutboxEventType = "withdrawal_completed"
	EventWithdrawalReversed  OutboxEventType = "withdrawal_reversed"
)

var validOutboxEventTypes = []OutboxEventType{
	EventOrderItemDispatched,
	EventOrderItemSettled,
	EventPaymentVerified,
	EventPaymentFailed,
	EventWithdrawalRequested,
	EventWithdrawalCompleted,
	EventWithdrawalReversed,
}

// IsValid reports whether the value matches the canonical event_type enum.
func (e OutboxEventType) IsValid() bool {
	for _, candidate := range validOutboxEventTypes {
		if candidate == e {
			return true
		}
	}
	return false
}

// ParseOutboxEventType converts raw input into OutboxEventType.
func ParseOutboxEventType(value string) (OutboxEventType, error) {
	for _, candidate := range validOutboxEventTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid event type %q", value)
}

// OutboxDLQErrorReason classifies why an outbox event landed in the DLQ.
type OutboxDLQErrorReason string

const (
	OutboxDLQReasonMaxAttempts  OutboxDLQErrorReason = "max_attempts"
	OutboxDLQReasonNonRetryable OutboxDLQErrorReason = "non_retryable"
)

var validOutboxDLQErrorReasons = []OutboxDLQErrorReason{
	OutboxDLQReasonMaxAttempts,
	OutboxDLQReasonNonRetryable,
}

func (r OutboxDLQErrorReason) IsValid() bool {
	for _, candidate := range validOutboxDLQErrorReasons {
		if candidate == r {
			return true
		}
	}
	return false
}
