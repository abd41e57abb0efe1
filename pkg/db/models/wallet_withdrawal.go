package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/vendora-labs/vendora-backend/pkg/enums"
)

// WalletWithdrawal is a payout request from a wallet's available balance to
// an external bank recipient. The amount is debited before the transfer is
// requested; a failed or reversed transfer credits it back exactly once.
type WalletWithdrawal struct {
	ID            uuid.UUID              `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	WalletID      uuid.UUID              `gorm:"column:wallet_id;type:uuid;not null;index"`
	Amount        decimal.Decimal        `gorm:"column:amount;type:numeric(14,2);not null"`
	RecipientName string                 `gorm:"column:recipient_name;not null"`
	BankCode      string                 `gorm:"column:bank_code;not null"`
	AccountNumber string                 `gorm:"column:account_number;not null"`
	RecipientCode *string                `gorm:"column:recipient_code"`
	TransferCode  *string                `gorm:"column:transfer_code"`
	Reference     string                 `gorm:"column:reference;not null;unique"`
	Status        enums.WithdrawalStatus `gorm:"column:status;type:withdrawal_status;not null;default:'pending'"`
	FailureReason *string                `gorm:"column:failure_reason"`
	RefundedAt    *time.Time             `gorm:"column:refunded_at"`
	CompletedAt   *time.Time             `gorm:"column:completed_at"`
	CreatedAt     time.Time              `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time              `gorm:"column:updated_at;autoUpdateTime"`
}
