package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/vendora-labs/vendora-backend/pkg/enums"
)

// Payment tracks a gateway charge for one order. ProcessedAt is null until
// the gateway returns a definitive outcome; once set, Status is terminal and
// never changes again.
type Payment struct {
	ID                   uuid.UUID           `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID              uuid.UUID           `gorm:"column:order_id;type:uuid;not null;index"`
	Amount               decimal.Decimal     `gorm:"column:amount;type:numeric(14,2);not null"`
	Status               enums.PaymentStatus `gorm:"column:status;type:payment_status;not null;default:'pending'"`
	TransactionReference string              `gorm:"column:transaction_reference;not null;unique"`
	IdempotencyKey       string              `gorm:"column:idempotency_key;not null;unique"`
	GatewayResponse      json.RawMessage     `gorm:"column:gateway_response;type:jsonb"`
	ProcessedAt          *time.Time          `gorm:"column:processed_at"`
	CreatedAt            time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt            time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}
