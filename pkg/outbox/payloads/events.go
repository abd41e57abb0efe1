package payloads

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// OrderItemDispatchedEvent is emitted when a vendor hands an item to logistics.
type OrderItemDispatchedEvent struct {
	OrderItemID        uuid.UUID       `json:"order_item_id"`
	OrderID            uuid.UUID       `json:"order_id"`
	VendorID           uuid.UUID       `json:"vendor_id"`
	LogisticsCompanyID uuid.UUID       `json:"logistics_company_id"`
	PendingAmount      decimal.Decimal `json:"pending_amount"`
	DispatchedAt       time.Time       `json:"dispatched_at"`
}

// OrderItemSettledEvent carries the split applied at delivery confirmation.
type OrderItemSettledEvent struct {
	OrderItemID   uuid.UUID       `json:"order_item_id"`
	OrderID       uuid.UUID       `json:"order_id"`
	VendorID      uuid.UUID       `json:"vendor_id"`
	VendorNet     decimal.Decimal `json:"vendor_net"`
	PlatformShare decimal.Decimal `json:"platform_share"`
	PartnerShare  decimal.Decimal `json:"partner_share"`
	LogisticsFee  decimal.Decimal `json:"logistics_fee"`
	ConfirmedAt   time.Time       `json:"confirmed_at"`
}

// PaymentVerifiedEvent is emitted when a gateway charge is confirmed successful.
type PaymentVerifiedEvent struct {
	PaymentID            uuid.UUID       `json:"payment_id"`
	OrderID              uuid.UUID       `json:"order_id"`
	Amount               decimal.Decimal `json:"amount"`
	TransactionReference string          `json:"transaction_reference"`
	ProcessedAt          time.Time       `json:"processed_at"`
}

// PaymentFailedEvent is emitted when a gateway charge is confirmed failed.
type PaymentFailedEvent struct {
	PaymentID            uuid.UUID `json:"payment_id"`
	OrderID              uuid.UUID `json:"order_id"`
	TransactionReference string    `json:"transaction_reference"`
	Reason               string    `json:"reason,omitempty"`
}

// WithdrawalRequestedEvent records a vendor payout request leaving the wallet.
type WithdrawalRequestedEvent struct {
	WithdrawalID uuid.UUID       `json:"withdrawal_id"`
	WalletID     uuid.UUID       `json:"wallet_id"`
	Amount       decimal.Decimal `json:"amount"`
	Reference    string          `json:"reference"`
}

// WithdrawalCompletedEvent records a successful bank transfer.
type WithdrawalCompletedEvent struct {
	WithdrawalID uuid.UUID `json:"withdrawal_id"`
	WalletID     uuid.UUID `json:"wallet_id"`
	Reference    string    `json:"reference"`
	CompletedAt  time.Time `json:"completed_at"`
}

// WithdrawalReversedEvent records a failed transfer whose funds were refunded.
type WithdrawalReversedEvent struct {
	WithdrawalID uuid.UUID       `json:"withdrawal_id"`
	WalletID     uuid.UUID       `json:"wallet_id"`
	Amount       decimal.Decimal `json:"amount"`
	Reference    string          `json:"reference"`
	Reason       string          `json:"reason,omitempty"`
	RefundedAt   time.Time       `json:"refunded_at"`
}
