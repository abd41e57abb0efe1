package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
)

// LogisticsCompany is a delivery partner. Its flat fee is charged on top of
// the vendor subtotal at dispatch and credited to the company's wallet when
// the item settles.
type LogisticsCompany struct {
	ID                uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Name              string          `gorm:"column:name;type:varchar(255);not null"`
	FlatFee           decimal.Decimal `gorm:"column:flat_fee;type:numeric(14,2);not null;default:0"`
	CommissionPercent decimal.Decimal `gorm:"column:commission_percent;type:numeric(5,2);not null;default:0"`
	CoverageAreas     pq.StringArray  `gorm:"column:coverage_areas;type:text[]"`
	Active            bool            `gorm:"column:active;not null;default:true"`
	CreatedAt         time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt         time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}
