package model

import (
	"time"

	"github.com/google/uuid"
)

// TemplateSettings is the explicit, typed print-layout configuration for a
// company's invoice documents. It replaces ad-hoc per-browser preferences:
// the PDF renderer and the pagination planner both read from this record.
type TemplateSettings struct {
	ID   uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Name string    `gorm:"type:varchar(100);uniqueIndex;not null" json:"name"`

	// Layout, millimetres. Zero means "use the default A4 policy".
	MarginTop    float64 `gorm:"type:decimal(6,2);default:0" json:"margin_top"`
	MarginBottom float64 `gorm:"type:decimal(6,2);default:0" json:"margin_bottom"`
	FontSizePt   float64 `gorm:"type:decimal(6,2);default:0" json:"font_size_pt"`

	// Direct capacity overrides. When set (> 0) they win over the
	// layout-derived capacities.
	ItemsPerFirstPage      int `gorm:"type:int;default:0" json:"items_per_first_page"`
	ItemsPerSubsequentPage int `gorm:"type:int;default:0" json:"items_per_subsequent_page"`

	ShowSignature bool   `gorm:"default:true" json:"show_signature"`
	FooterText    string `gorm:"type:text" json:"footer_text"`
	TermsText     string `gorm:"type:text" json:"terms_text"`

	IsDefault bool      `gorm:"default:false" json:"is_default"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
