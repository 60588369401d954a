package billing

import (
	"time"

	"github.com/shopspring/decimal"
)

// SupplyType enum constants
const (
	SupplyStandard  = "standard"
	SupplyZeroRated = "zero_rated"
	SupplyExempt    = "exempt"
)

// DiscountType enum constants
const (
	DiscountAmount     = "amount"
	DiscountPercentage = "percentage"
)

var (
	standardVATRate = decimal.NewFromInt(5)
	hundred         = decimal.NewFromInt(100)
)

// LineItem is the computation view of a single invoice row. The stored VATRate
// is authoritative at computation time; SupplyType only supplies the default
// when the row is created.
type LineItem struct {
	Name       string
	Quantity   int64
	Rate       decimal.Decimal
	SupplyType string
	VATRate    decimal.Decimal
}

// Charges holds the five auxiliary charge amounts. All of them share one
// export flag: toggling export zeroes every charge VAT at once.
type Charges struct {
	Packing   decimal.Decimal
	Freight   decimal.Decimal
	Insurance decimal.Decimal
	Loading   decimal.Decimal
	Other     decimal.Decimal
}

// Total sums the five charge amounts.
func (c Charges) Total() decimal.Decimal {
	return c.Packing.Add(c.Freight).Add(c.Insurance).Add(c.Loading).Add(c.Other)
}

// Document is the raw invoice record the engine computes over. Callers own it;
// no function here retains or mutates it.
type Document struct {
	CustomerName       string
	Status             Status
	Date               *time.Time
	DueDate            *time.Time
	Items              []LineItem
	DiscountType       string
	DiscountPercentage decimal.Decimal
	DiscountAmount     decimal.Decimal
	IsReverseCharge    bool
	IsExport           bool
	Charges            Charges
}

// Totals is the full derived financial breakdown of a document.
type Totals struct {
	Subtotal            decimal.Decimal
	DiscountValue       decimal.Decimal
	DiscountRatio       decimal.Decimal
	VATAmount           decimal.Decimal
	ReverseChargeAmount decimal.Decimal
	ChargesTotal        decimal.Decimal
	ChargesVAT          decimal.Decimal
	GrandTotal          decimal.Decimal
}

// LineAmount returns quantity * rate. Negative inputs clamp to zero so a
// half-typed row never produces a negative amount mid-edit.
func LineAmount(quantity int64, rate decimal.Decimal) decimal.Decimal {
	if quantity < 0 || rate.IsNegative() {
		return decimal.Zero
	}
	return rate.Mul(decimal.NewFromInt(quantity))
}

// Subtotal sums LineAmount over all items. Empty list yields zero.
func Subtotal(items []LineItem) decimal.Decimal {
	total := decimal.Zero
	for _, item := range items {
		total = total.Add(LineAmount(item.Quantity, item.Rate))
	}
	return total
}

// ResolveDiscount determines the effective discount value. A percentage is
// clamped to [0, 100]; a flat amount is clamped to [0, subtotal] so the
// post-discount subtotal can never go negative.
func ResolveDiscount(subtotal decimal.Decimal, discountType string, percentage, flatAmount decimal.Decimal) decimal.Decimal {
	if discountType == DiscountPercentage {
		p := percentage
		if p.IsNegative() {
			p = decimal.Zero
		}
		if p.GreaterThan(hundred) {
			p = hundred
		}
		return subtotal.Mul(p).Div(hundred)
	}

	v := flatAmount
	if v.IsNegative() {
		return decimal.Zero
	}
	if v.GreaterThan(subtotal) {
		return subtotal
	}
	return v
}

// DefaultVATRate returns the default rate for a supply type: 5% standard,
// 0% for zero-rated and exempt supplies.
func DefaultVATRate(supplyType string) decimal.Decimal {
	switch supplyType {
	case SupplyZeroRated, SupplyExempt:
		return decimal.Zero
	default:
		return standardVATRate
	}
}

// VATForLine computes the VAT on a single line from its derived amount and
// its stored rate.
func VATForLine(item LineItem) decimal.Decimal {
	return LineAmount(item.Quantity, item.Rate).Mul(item.VATRate).Div(hundred)
}

// DiscountRatio returns the factor line VAT is scaled by after an
// invoice-wide discount. A zero subtotal yields 1 to avoid dividing by zero.
func DiscountRatio(subtotal, discountValue decimal.Decimal) decimal.Decimal {
	if subtotal.IsZero() {
		return decimal.NewFromInt(1)
	}
	return subtotal.Sub(discountValue).Div(subtotal)
}

// TotalVAT sums per-line VAT, scaled by the invoice-wide discount ratio so
// VAT is never charged on a discounted-away amount.
func TotalVAT(items []LineItem, discountRatio decimal.Decimal) decimal.Decimal {
	total := decimal.Zero
	for _, item := range items {
		total = total.Add(VATForLine(item))
	}
	return total.Mul(discountRatio)
}

// ChargeVAT returns the VAT on an auxiliary charge: zero for export
// invoices, otherwise the standard 5%.
func ChargeVAT(amount decimal.Decimal, isExport bool) decimal.Decimal {
	if isExport {
		return decimal.Zero
	}
	return amount.Mul(standardVATRate).Div(hundred)
}

// GrandTotal combines the post-discount subtotal with VAT and charges.
func GrandTotal(subtotal, discountValue, vatAmount, chargesTotal decimal.Decimal) decimal.Decimal {
	return subtotal.Sub(discountValue).Add(vatAmount).Add(chargesTotal)
}

// ComputeTotals derives the complete financial breakdown of a document.
// Under reverse charge the computed line VAT shifts to the customer: it is
// reported as the reverse-charge amount and excluded from the amount payable.
// Full decimal precision is kept throughout; rounding happens only at the
// presentation boundary.
func ComputeTotals(doc Document) Totals {
	subtotal := Subtotal(doc.Items)
	discountValue := ResolveDiscount(subtotal, doc.DiscountType, doc.DiscountPercentage, doc.DiscountAmount)
	ratio := DiscountRatio(subtotal, discountValue)
	lineVAT := TotalVAT(doc.Items, ratio)

	chargesTotal := doc.Charges.Total()
	chargesVAT := ChargeVAT(doc.Charges.Packing, doc.IsExport).
		Add(ChargeVAT(doc.Charges.Freight, doc.IsExport)).
		Add(ChargeVAT(doc.Charges.Insurance, doc.IsExport)).
		Add(ChargeVAT(doc.Charges.Loading, doc.IsExport)).
		Add(ChargeVAT(doc.Charges.Other, doc.IsExport))

	totals := Totals{
		Subtotal:      subtotal,
		DiscountValue: discountValue,
		DiscountRatio: ratio,
		ChargesTotal:  chargesTotal,
		ChargesVAT:    chargesVAT,
	}

	if doc.IsReverseCharge {
		totals.ReverseChargeAmount = lineVAT
		totals.VATAmount = decimal.Zero
	} else {
		totals.VATAmount = lineVAT
	}

	totals.GrandTotal = GrandTotal(subtotal, discountValue, totals.VATAmount, chargesTotal.Add(chargesVAT))
	return totals
}
