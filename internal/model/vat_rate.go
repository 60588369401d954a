package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// VATRate stores configured VAT percentages per supply type with temporal
// validity. The engine falls back to the statutory defaults (5/0/0) when no
// configured rate covers the supply date.
type VATRate struct {
	ID            uuid.UUID       `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	SupplyType    string          `gorm:"type:varchar(20);not null;index" json:"supply_type"` // standard, zero_rated, exempt
	Rate          decimal.Decimal `gorm:"type:decimal(10,4);not null" json:"rate"`            // percentage, e.g. 5 = 5%
	EffectiveFrom time.Time       `gorm:"type:date;not null;index" json:"effective_from"`
	EffectiveTo   *time.Time      `gorm:"type:date;index" json:"effective_to"` // nullable = currently active
	Description   string          `gorm:"type:text" json:"description"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}
