package model

import (
	"time"

	"billing/internal/billing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// PaymentStatus enum constants
const (
	PaymentUnpaid        = "unpaid"
	PaymentPartiallyPaid = "partially_paid"
	PaymentPaid          = "paid"
)

// Invoice is the central document. Status governs mutability: once issued
// and past the revision window the record is legally immutable and
// corrections go through the external credit-note process.
type Invoice struct {
	ID            uuid.UUID      `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	InvoiceNumber string         `gorm:"type:varchar(30);uniqueIndex;not null" json:"invoice_number"` // PREFIX-YYYYMM-NNNN
	Status        billing.Status `gorm:"type:varchar(20);not null;default:'draft';index" json:"status"`
	Date          *time.Time     `gorm:"type:date" json:"date"` // supply/issue date
	DueDate       *time.Time     `gorm:"type:date" json:"due_date"`
	IssuedAt      *time.Time     `json:"issued_at"` // set exactly once, when status first becomes issued

	// Customer hard-copy fields, frozen onto the document at save time so a
	// later customer edit cannot rewrite an issued invoice.
	CustomerID      *uuid.UUID `gorm:"type:uuid;index" json:"customer_id"`
	Customer        *Customer  `gorm:"foreignKey:CustomerID" json:"customer,omitempty"`
	CustomerName    string     `gorm:"type:varchar(255)" json:"customer_name"`
	CustomerContact string     `gorm:"type:varchar(255)" json:"customer_contact"`
	CustomerTRN     string     `gorm:"type:varchar(50)" json:"customer_trn"`
	CustomerAddress string     `gorm:"type:text" json:"customer_address"`

	Items []LineItem `gorm:"foreignKey:InvoiceID;constraint:OnDelete:CASCADE" json:"items"`

	DiscountType       string          `gorm:"type:varchar(20);not null;default:'amount'" json:"discount_type"` // amount, percentage
	DiscountPercentage decimal.Decimal `gorm:"type:decimal(10,4);not null;default:0" json:"discount_percentage"`
	DiscountAmount     decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0" json:"discount_amount"`

	IsReverseCharge     bool            `gorm:"default:false" json:"is_reverse_charge"`
	IsExport            bool            `gorm:"default:false" json:"is_export"`
	ReverseChargeAmount decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0" json:"reverse_charge_amount"`

	// Auxiliary charges, each with its own VAT sub-amount. One export flag
	// governs all five charge VATs together.
	PackingCharges      decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0" json:"packing_charges"`
	PackingChargesVAT   decimal.Decimal `gorm:"column:packing_charges_vat;type:decimal(18,4);not null;default:0" json:"packing_charges_vat"`
	FreightCharges      decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0" json:"freight_charges"`
	FreightChargesVAT   decimal.Decimal `gorm:"column:freight_charges_vat;type:decimal(18,4);not null;default:0" json:"freight_charges_vat"`
	InsuranceCharges    decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0" json:"insurance_charges"`
	InsuranceChargesVAT decimal.Decimal `gorm:"column:insurance_charges_vat;type:decimal(18,4);not null;default:0" json:"insurance_charges_vat"`
	LoadingCharges      decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0" json:"loading_charges"`
	LoadingChargesVAT   decimal.Decimal `gorm:"column:loading_charges_vat;type:decimal(18,4);not null;default:0" json:"loading_charges_vat"`
	OtherCharges        decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0" json:"other_charges"`
	OtherChargesVAT     decimal.Decimal `gorm:"column:other_charges_vat;type:decimal(18,4);not null;default:0" json:"other_charges_vat"`

	Currency     string          `gorm:"type:varchar(10);not null;default:'AED'" json:"currency"`
	ExchangeRate decimal.Decimal `gorm:"type:decimal(18,6);not null;default:1" json:"exchange_rate"` // 1 for AED

	// Derived totals, recomputed on every save; stored for listing/reporting.
	Subtotal      decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0" json:"subtotal"`
	DiscountValue decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0" json:"discount_value"`
	VATAmount     decimal.Decimal `gorm:"column:vat_amount;type:decimal(18,4);not null;default:0" json:"vat_amount"`
	GrandTotal    decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0" json:"grand_total"`

	PaymentStatus string          `gorm:"type:varchar(20);not null;default:'unpaid';index" json:"payment_status"`
	PaidAmount    decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0" json:"paid_amount"`

	Notes     string         `gorm:"type:text" json:"notes"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// LineItem is one ordered invoice row. Position is the printed sequence and
// is user-reorderable. Amount is derived from quantity and rate; it is never
// independently authoritative.
type LineItem struct {
	ID         uuid.UUID       `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	InvoiceID  uuid.UUID       `gorm:"type:uuid;not null;index" json:"invoice_id"`
	Position   int             `gorm:"type:int;not null" json:"position"`
	Name       string          `gorm:"type:varchar(255)" json:"name"`
	Quantity   int64           `gorm:"type:bigint;not null;default:0" json:"quantity"`
	Rate       decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0" json:"rate"`
	Amount     decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0" json:"amount"` // quantity * rate
	SupplyType string          `gorm:"type:varchar(20);not null;default:'standard'" json:"supply_type"`
	VATRate    decimal.Decimal `gorm:"column:vat_rate;type:decimal(10,4);not null;default:5" json:"vat_rate"`
}

// BillingItems maps the stored rows to the computation engine's view,
// preserving print order.
func (inv *Invoice) BillingItems() []billing.LineItem {
	items := make([]billing.LineItem, 0, len(inv.Items))
	for _, row := range inv.Items {
		items = append(items, billing.LineItem{
			Name:       row.Name,
			Quantity:   row.Quantity,
			Rate:       row.Rate,
			SupplyType: row.SupplyType,
			VATRate:    row.VATRate,
		})
	}
	return items
}

// BillingDocument maps the invoice to the computation engine's document view.
func (inv *Invoice) BillingDocument() billing.Document {
	return billing.Document{
		CustomerName:       inv.CustomerName,
		Status:             inv.Status,
		Date:               inv.Date,
		DueDate:            inv.DueDate,
		Items:              inv.BillingItems(),
		DiscountType:       inv.DiscountType,
		DiscountPercentage: inv.DiscountPercentage,
		DiscountAmount:     inv.DiscountAmount,
		IsReverseCharge:    inv.IsReverseCharge,
		IsExport:           inv.IsExport,
		Charges: billing.Charges{
			Packing:   inv.PackingCharges,
			Freight:   inv.FreightCharges,
			Insurance: inv.InsuranceCharges,
			Loading:   inv.LoadingCharges,
			Other:     inv.OtherCharges,
		},
	}
}
