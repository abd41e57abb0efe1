package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/vendora-labs/vendora-backend/pkg/enums"
)

// WalletTransaction is an append-only record of a single balance mutation.
// BalanceBefore and BalanceAfter snapshot the balance field the entry
// affected: the available balance for credit, debit and pending_confirmed,
// the pending balance for pending_credit. A pending_confirmed row also means
// the same amount left the pending balance. Audit rows never move balances
// and are skipped on replay. Replaying the ordered log from zero reproduces
// the wallet's current balance and pending_balance.
type WalletTransaction struct {
	ID            uuid.UUID                   `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	WalletID      uuid.UUID                   `gorm:"column:wallet_id;type:uuid;not null;index"`
	Type          enums.WalletTransactionType `gorm:"column:type;type:wallet_transaction_type;not null"`
	Amount        decimal.Decimal             `gorm:"column:amount;type:numeric(14,2);not null"`
	BalanceBefore decimal.Decimal             `gorm:"column:balance_before;type:numeric(14,2);not null"`
	BalanceAfter  decimal.Decimal             `gorm:"column:balance_after;type:numeric(14,2);not null"`
	Reference     string                      `gorm:"column:reference;not null;index"`
	Description   string                      `gorm:"column:description;not null"`
	Metadata      json.RawMessage             `gorm:"column:metadata;type:jsonb"`
	CreatedAt     time.Time                   `gorm:"column:created_at;autoCreateTime"`
}
