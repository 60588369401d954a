package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ExpenseCategory enum constants
const (
	ExpenseCategoryRent      = "RENT"
	ExpenseCategorySalaries  = "SALARIES"
	ExpenseCategoryTransport = "TRANSPORT"
	ExpenseCategoryUtilities = "UTILITIES"
	ExpenseCategoryOther     = "OTHER"
)

// ExpenseDocumentType enum constants
const (
	ExpenseDocTaxInvoice = "TAX_INVOICE"
	ExpenseDocReceipt    = "RECEIPT"
	ExpenseDocNone       = "NONE"
)

// Expense represents an operating expense entry with multi-currency support
// (base: AED). Input VAT is recoverable only when backed by a supplier tax
// invoice.
type Expense struct {
	ID       uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Category string    `gorm:"type:varchar(30);not null;index" json:"category"`

	// Currency & Exchange Rate
	Currency           string          `gorm:"type:varchar(10);not null;default:'AED'" json:"currency"`
	ExchangeRate       decimal.Decimal `gorm:"type:decimal(18,6);not null;default:1" json:"exchange_rate"` // 1 if AED
	OriginalAmount     decimal.Decimal `gorm:"type:decimal(18,4);not null" json:"original_amount"`         // Amount in original currency
	ConvertedAmountAED decimal.Decimal `gorm:"column:converted_amount_aed;type:decimal(18,4);not null" json:"converted_amount_aed"`

	// Input VAT
	VATRate   decimal.Decimal `gorm:"column:vat_rate;type:decimal(10,4);default:0" json:"vat_rate"`
	VATAmount decimal.Decimal `gorm:"column:vat_amount;type:decimal(18,4);default:0" json:"vat_amount"` // in AED

	// Document & recoverability
	DocumentType    string  `gorm:"type:varchar(30);not null;default:'NONE'" json:"document_type"` // TAX_INVOICE, RECEIPT, NONE
	SupplierName    string  `gorm:"type:varchar(255)" json:"supplier_name"`
	SupplierTRN     *string `gorm:"column:supplier_trn;type:varchar(50)" json:"supplier_trn"`
	DocumentURL     string  `gorm:"type:text" json:"document_url"`
	IsVATRecoverable bool   `gorm:"column:is_vat_recoverable;default:false" json:"is_vat_recoverable"`

	ExpenseDate time.Time `gorm:"type:date;not null;index" json:"expense_date"`
	Description string    `gorm:"type:text" json:"description"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}
