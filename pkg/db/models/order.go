package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/vendora-labs/vendora-backend/pkg/enums"
)

// Order is the customer-level order that groups per-vendor items. Its status
// is driven by payment verification, not by fulfillment; individual items
// carry their own fulfillment lifecycle.
type Order struct {
	ID         uuid.UUID         `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	CustomerID uuid.UUID         `gorm:"column:customer_id;type:uuid;not null;index"`
	CartID     *uuid.UUID        `gorm:"column:cart_id;type:uuid"`
	Status     enums.OrderStatus `gorm:"column:status;type:order_status;not null;default:'pending_payment'"`
	Total      decimal.Decimal   `gorm:"column:total;type:numeric(14,2);not null"`
	Items      []OrderItem       `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	CreatedAt  time.Time         `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt  time.Time         `gorm:"column:updated_at;autoUpdateTime"`
}
