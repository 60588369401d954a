package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// AddressType enum constants
const (
	AddressTypeBilling  = "BILLING"
	AddressTypeDelivery = "DELIVERY"
)

// Customer represents a buyer of steel products. The TRN is the UAE VAT
// registration number; it is required before a reverse-charge invoice can be
// raised against the customer.
type Customer struct {
	ID            uuid.UUID         `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Name          string            `gorm:"type:varchar(255);not null" json:"name"`
	CompanyName   string            `gorm:"type:varchar(255)" json:"company_name"`
	TRN           string            `gorm:"column:trn;type:varchar(50)" json:"trn"`
	ContactPerson string            `gorm:"type:varchar(255)" json:"contact_person"`
	Phone         string            `gorm:"type:varchar(50)" json:"phone"`
	Email         string            `gorm:"type:varchar(255)" json:"email"`
	CreditLimit   float64           `gorm:"type:decimal(18,2);default:0" json:"credit_limit"`
	IsActive      bool              `gorm:"default:true" json:"is_active"`
	Addresses     []CustomerAddress `gorm:"foreignKey:CustomerID;constraint:OnDelete:CASCADE" json:"addresses"`
	CreatedAt     time.Time         `json:"created_at"`
	UpdatedAt     time.Time         `json:"updated_at"`
	DeletedAt     gorm.DeletedAt    `gorm:"index" json:"-"`
}

// CustomerAddress represents a customer's address (Billing, Delivery)
type CustomerAddress struct {
	ID          uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	CustomerID  uuid.UUID `gorm:"type:uuid;not null;index" json:"customer_id"`
	AddressType string    `gorm:"type:varchar(20);not null" json:"address_type"` // BILLING, DELIVERY
	FullAddress string    `gorm:"type:text;not null" json:"full_address"`
	IsDefault   bool      `gorm:"default:false" json:"is_default"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// BillingAddress returns the first billing address, or empty when none.
func (c *Customer) BillingAddress() string {
	for _, addr := range c.Addresses {
		if addr.AddressType == AddressTypeBilling {
			return addr.FullAddress
		}
	}
	return ""
}
