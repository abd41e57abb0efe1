package paystack

import (
	"encoding/json"

	"github.com/shopspring/decimal"
)

// Transaction statuses reported by the gateway.
const (
	TransactionSuccess   = "success"
	TransactionFailed    = "failed"
	TransactionAbandoned = "abandoned"
	TransactionPending   = "pending"
)

// Transfer statuses reported by the gateway.
const (
	TransferPending  = "pending"
	TransferSuccess  = "success"
	TransferFailed   = "failed"
	TransferReversed = "reversed"
)

// apiResponse is the uniform envelope every gateway endpoint returns.
type apiResponse struct {
	Status  bool            `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

// InitializeTransactionParams starts a hosted checkout for a charge.
type InitializeTransactionParams struct {
	Email       string          `json:"email"`
	Amount      decimal.Decimal `json:"-"`
	Reference   string          `json:"reference"`
	CallbackURL string          `json:"callback_url,omitempty"`

	// AmountMinor is the amount in the currency's minor unit, derived
	// from Amount before the request is sent.
	AmountMinor int64 `json:"amount"`
}

// InitializedTransaction is the hosted checkout handle.
type InitializedTransaction struct {
	AuthorizationURL string `json:"authorization_url"`
	AccessCode       string `json:"access_code"`
	Reference        string `json:"reference"`
}

// TransactionData is the verification result for a charge reference.
type TransactionData struct {
	ID          int64           `json:"id"`
	Status      string          `json:"status"`
	Reference   string          `json:"reference"`
	AmountMinor int64           `json:"amount"`
	GatewayResp string          `json:"gateway_response"`
	PaidAt      string          `json:"paid_at"`
	Currency    string          `json:"currency"`
	Raw         json.RawMessage `json:"-"`
}

// Amount converts the minor-unit figure back to a major-unit decimal.
func (t TransactionData) Amount() decimal.Decimal {
	return decimal.NewFromInt(t.AmountMinor).Div(decimal.NewFromInt(100))
}

// CreateTransferRecipientParams registers a bank account for payouts.
type CreateTransferRecipientParams struct {
	Type          string `json:"type"`
	Name          string `json:"name"`
	AccountNumber string `json:"account_number"`
	BankCode      string `json:"bank_code"`
	Currency      string `json:"currency,omitempty"`
}

// TransferRecipient is the registered payout destination.
type TransferRecipient struct {
	RecipientCode string `json:"recipient_code"`
	Active        bool   `json:"active"`
}

type transferRecipientData struct {
	RecipientCode string `json:"recipient_code"`
	Active        bool   `json:"active"`
}

// InitiateTransferParams moves money to a registered recipient.
type InitiateTransferParams struct {
	Amount    decimal.Decimal `json:"-"`
	Recipient string          `json:"recipient"`
	Reference string          `json:"reference"`
	Reason    string          `json:"reason,omitempty"`

	Source      string `json:"source"`
	AmountMinor int64  `json:"amount"`
}

// TransferData describes an outbound transfer.
type TransferData struct {
	ID           int64  `json:"id"`
	Status       string `json:"status"`
	Reference    string `json:"reference"`
	TransferCode string `json:"transfer_code"`
	AmountMinor  int64  `json:"amount"`
	Reason       string `json:"reason"`
}

// Amount converts the minor-unit figure back to a major-unit decimal.
func (t TransferData) Amount() decimal.Decimal {
	return decimal.NewFromInt(t.AmountMinor).Div(decimal.NewFromInt(100))
}

// WebhookEvent is the envelope delivered to the webhook endpoint.
type WebhookEvent struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// ChargeEventData is the payload of charge.* webhook events.
type ChargeEventData struct {
	Reference   string `json:"reference"`
	Status      string `json:"status"`
	AmountMinor int64  `json:"amount"`
}

// TransferEventData is the payload of transfer.* webhook events.
type TransferEventData struct {
	Reference    string `json:"reference"`
	TransferCode string `json:"transfer_code"`
	Status       string `json:"status"`
	AmountMinor  int64  `json:"amount"`
	Reason       string `json:"reason"`
}

// MinorUnits converts a major-unit decimal amount to the gateway's integer
// minor units. Amounts carry at most two decimal places.
func MinorUnits(amount decimal.Decimal) int64 {
	return amount.Mul(decimal.NewFromInt(100)).IntPart()
}
