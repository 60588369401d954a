package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Product represents a steel product in the catalog. Picking a product on
// the invoice form prefills the line item's description, unit rate and
// supply type.
type Product struct {
	ID         uuid.UUID       `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	SKU        string          `gorm:"type:varchar(100);uniqueIndex;not null" json:"sku"`
	Name       string          `gorm:"type:varchar(255);not null" json:"name"` // e.g. "Rebar 12mm Grade 60"
	Category   string          `gorm:"type:varchar(100);index" json:"category"`
	Unit       string          `gorm:"type:varchar(20);not null;default:'ton'" json:"unit"`
	UnitPrice  decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0" json:"unit_price"`
	SupplyType string          `gorm:"type:varchar(20);not null;default:'standard'" json:"supply_type"`
	IsActive   bool            `gorm:"default:true" json:"is_active"`
	CreatedAt  time.Time       `json:"created_at"`
	UpdatedAt  time.Time       `json:"updated_at"`
	DeletedAt  gorm.DeletedAt  `gorm:"index" json:"-"`
}
