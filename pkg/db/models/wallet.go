package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/vendora-labs/vendora-backend/pkg/enums"
)

// Wallet holds the available and pending balances for one owner. Exactly one
// wallet exists per (owner_type, owner_id) pair; singleton owners (platform,
// revenue partner) use the zero UUID as owner id. Wallets are created lazily
// and never deleted.
type Wallet struct {
	ID             uuid.UUID             `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OwnerType      enums.WalletOwnerType `gorm:"column:owner_type;type:wallet_owner_type;not null;uniqueIndex:ux_wallets_owner"`
	OwnerID        uuid.UUID             `gorm:"column:owner_id;type:uuid;not null;uniqueIndex:ux_wallets_owner"`
	Balance        decimal.Decimal       `gorm:"column:balance;type:numeric(14,2);not null"`
	PendingBalance decimal.Decimal       `gorm:"column:pending_balance;type:numeric(14,2);not null"`
	CreatedAt      time.Time             `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time             `gorm:"column:updated_at;autoUpdateTime"`
}
