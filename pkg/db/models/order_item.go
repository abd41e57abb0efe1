package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/vendora-labs/vendora-backend/pkg/enums"
)

// OrderItem is a single vendor line on an order. Each item owns its own
// fulfillment state machine and settlement figures. PendingAmount is the
// vendor net recorded at dispatch time; delivery confirmation converts
// exactly that figure, so a commission change between dispatch and
// confirmation cannot alter what the vendor receives.
type OrderItem struct {
	ID              uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID         uuid.UUID       `gorm:"column:order_id;type:uuid;not null;index"`
	VendorID        uuid.UUID       `gorm:"column:vendor_id;type:uuid;not null;index"`
	ProductID       uuid.UUID       `gorm:"column:product_id;type:uuid;not null"`
	ProductName     string          `gorm:"column:product_name;type:varchar(255);not null"`
	Quantity        int             `gorm:"column:quantity;not null"`
	PriceAtPurchase decimal.Decimal `gorm:"column:price_at_purchase;type:numeric(14,2);not null"`
	Subtotal        decimal.Decimal `gorm:"column:subtotal;type:numeric(14,2);not null"`

	FulfillmentStatus  enums.FulfillmentStatus `gorm:"column:fulfillment_status;type:fulfillment_status;not null;default:'pending'"`
	LogisticsCompanyID *uuid.UUID              `gorm:"column:logistics_company_id;type:uuid"`
	LogisticsFee       decimal.Decimal         `gorm:"column:logistics_fee;type:numeric(14,2);not null;default:0"`
	CommissionPercent  decimal.Decimal         `gorm:"column:commission_percent;type:numeric(5,2);not null;default:0"`
	PendingAmount      decimal.Decimal         `gorm:"column:pending_amount;type:numeric(14,2);not null;default:0"`
	DispatchNotes      string                  `gorm:"column:dispatch_notes;not null;default:''"`
	DispatchedAt       *time.Time              `gorm:"column:dispatched_at"`
	ConfirmedAt        *time.Time              `gorm:"column:confirmed_at"`

	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
