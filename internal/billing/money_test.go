package billing

import (
	"testing"

	"github.com/shopspring/decimal"
)

func d(s string) decimal.Decimal {
	v, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return v
}

func TestLineAmount(t *testing.T) {
	tests := []struct {
		name     string
		quantity int64
		rate     decimal.Decimal
		expected decimal.Decimal
	}{
		{"simple product", 10, d("850"), d("8500")},
		{"fractional rate", 3, d("12.75"), d("38.25")},
		{"zero quantity", 0, d("100"), d("0")},
		{"zero rate", 5, d("0"), d("0")},
		{"negative quantity clamps", -4, d("100"), d("0")},
		{"negative rate clamps", 4, d("-100"), d("0")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := LineAmount(tt.quantity, tt.rate); !got.Equal(tt.expected) {
				t.Errorf("LineAmount(%d, %s) = %s, want %s", tt.quantity, tt.rate, got, tt.expected)
			}
		})
	}
}

func TestLineAmount_Deterministic(t *testing.T) {
	first := LineAmount(7, d("33.33"))
	second := LineAmount(7, d("33.33"))
	if !first.Equal(second) {
		t.Errorf("LineAmount not deterministic: %s vs %s", first, second)
	}
}

func TestSubtotal(t *testing.T) {
	items := []LineItem{
		{Name: "Rebar 12mm", Quantity: 10, Rate: d("850")},
		{Name: "Steel coil", Quantity: 25, Rate: d("120")},
	}

	if got := Subtotal(items); !got.Equal(d("11500")) {
		t.Errorf("Subtotal() = %s, want 11500", got)
	}

	if got := Subtotal(nil); !got.IsZero() {
		t.Errorf("Subtotal(nil) = %s, want 0", got)
	}
}

func TestSubtotal_MatchesSumOfLineAmounts(t *testing.T) {
	items := []LineItem{
		{Quantity: 3, Rate: d("19.99")},
		{Quantity: 0, Rate: d("500")},
		{Quantity: 7, Rate: d("0.05")},
		{Quantity: -2, Rate: d("40")},
	}

	sum := decimal.Zero
	for _, item := range items {
		sum = sum.Add(LineAmount(item.Quantity, item.Rate))
	}
	if got := Subtotal(items); !got.Equal(sum) {
		t.Errorf("Subtotal() = %s, want %s", got, sum)
	}
}

func TestResolveDiscount(t *testing.T) {
	tests := []struct {
		name         string
		subtotal     decimal.Decimal
		discountType string
		percentage   decimal.Decimal
		flatAmount   decimal.Decimal
		expected     decimal.Decimal
	}{
		{"ten percent", d("11500"), DiscountPercentage, d("10"), d("0"), d("1150")},
		{"zero percent", d("11500"), DiscountPercentage, d("0"), d("0"), d("0")},
		{"percentage above 100 clamps", d("1000"), DiscountPercentage, d("150"), d("0"), d("1000")},
		{"negative percentage clamps", d("1000"), DiscountPercentage, d("-5"), d("0"), d("0")},
		{"flat amount", d("1000"), DiscountAmount, d("0"), d("250"), d("250")},
		{"flat amount above subtotal clamps", d("1000"), DiscountAmount, d("0"), d("1500"), d("1000")},
		{"negative flat amount clamps", d("1000"), DiscountAmount, d("0"), d("-50"), d("0")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ResolveDiscount(tt.subtotal, tt.discountType, tt.percentage, tt.flatAmount)
			if !got.Equal(tt.expected) {
				t.Errorf("ResolveDiscount() = %s, want %s", got, tt.expected)
			}
		})
	}
}

func TestResolveDiscount_NeverExceedsSubtotal(t *testing.T) {
	subtotal := d("437.50")
	for _, p := range []string{"-20", "0", "33.3", "100", "250"} {
		got := ResolveDiscount(subtotal, DiscountPercentage, d(p), d("0"))
		if got.IsNegative() || got.GreaterThan(subtotal) {
			t.Errorf("ResolveDiscount(%%=%s) = %s out of [0, %s]", p, got, subtotal)
		}
	}
}

func TestDefaultVATRate(t *testing.T) {
	tests := []struct {
		supplyType string
		expected   decimal.Decimal
	}{
		{SupplyStandard, d("5")},
		{SupplyZeroRated, d("0")},
		{SupplyExempt, d("0")},
		{"", d("5")},
	}

	for _, tt := range tests {
		if got := DefaultVATRate(tt.supplyType); !got.Equal(tt.expected) {
			t.Errorf("DefaultVATRate(%q) = %s, want %s", tt.supplyType, got, tt.expected)
		}
	}
}

func TestTotalVAT_ScaledByDiscountRatio(t *testing.T) {
	items := []LineItem{
		{Quantity: 10, Rate: d("850"), VATRate: d("5")},
		{Quantity: 25, Rate: d("120"), VATRate: d("5")},
	}

	// No discount: 5% of 11500
	full := TotalVAT(items, decimal.NewFromInt(1))
	if !full.Equal(d("575")) {
		t.Errorf("TotalVAT(ratio=1) = %s, want 575", full)
	}

	// 10% invoice discount scales every line's VAT by 0.9
	ratio := DiscountRatio(d("11500"), d("1150"))
	scaled := TotalVAT(items, ratio)
	if !scaled.Equal(d("517.5")) {
		t.Errorf("TotalVAT(ratio=0.9) = %s, want 517.5", scaled)
	}
}

func TestDiscountRatio_ZeroSubtotal(t *testing.T) {
	if got := DiscountRatio(d("0"), d("0")); !got.Equal(d("1")) {
		t.Errorf("DiscountRatio(0, 0) = %s, want 1", got)
	}
}

func TestChargeVAT(t *testing.T) {
	if got := ChargeVAT(d("200"), false); !got.Equal(d("10")) {
		t.Errorf("ChargeVAT(200, domestic) = %s, want 10", got)
	}
	if got := ChargeVAT(d("200"), true); !got.IsZero() {
		t.Errorf("ChargeVAT(200, export) = %s, want 0", got)
	}
}

func TestGrandTotal(t *testing.T) {
	got := GrandTotal(d("11500"), d("1150"), d("517.5"), d("0"))
	if !got.Equal(d("10867.5")) {
		t.Errorf("GrandTotal() = %s, want 10867.5", got)
	}
}

func TestComputeTotals_NoDiscount(t *testing.T) {
	doc := Document{
		Items: []LineItem{
			{Name: "Rebar 12mm", Quantity: 10, Rate: d("850"), VATRate: d("5")},
			{Name: "Steel coil", Quantity: 25, Rate: d("120"), VATRate: d("5")},
		},
	}

	totals := ComputeTotals(doc)
	if !totals.Subtotal.Equal(d("11500")) {
		t.Errorf("Subtotal = %s, want 11500", totals.Subtotal)
	}
	if !totals.VATAmount.Equal(d("575")) {
		t.Errorf("VATAmount = %s, want 575", totals.VATAmount)
	}
	if !totals.GrandTotal.Equal(d("12075")) {
		t.Errorf("GrandTotal = %s, want 12075", totals.GrandTotal)
	}
}

func TestComputeTotals_PercentageDiscount(t *testing.T) {
	doc := Document{
		Items: []LineItem{
			{Quantity: 10, Rate: d("850"), VATRate: d("5")},
			{Quantity: 25, Rate: d("120"), VATRate: d("5")},
		},
		DiscountType:       DiscountPercentage,
		DiscountPercentage: d("10"),
	}

	totals := ComputeTotals(doc)
	if !totals.DiscountValue.Equal(d("1150")) {
		t.Errorf("DiscountValue = %s, want 1150", totals.DiscountValue)
	}
	if !totals.VATAmount.Equal(d("517.5")) {
		t.Errorf("VATAmount = %s, want 517.5", totals.VATAmount)
	}
	if !totals.GrandTotal.Equal(d("10867.5")) {
		t.Errorf("GrandTotal = %s, want 10867.5", totals.GrandTotal)
	}
}

func TestComputeTotals_ChargesAndExport(t *testing.T) {
	doc := Document{
		Items: []LineItem{{Quantity: 1, Rate: d("1000"), VATRate: d("5")}},
		Charges: Charges{
			Packing: d("100"),
			Freight: d("300"),
		},
	}

	totals := ComputeTotals(doc)
	if !totals.ChargesTotal.Equal(d("400")) {
		t.Errorf("ChargesTotal = %s, want 400", totals.ChargesTotal)
	}
	if !totals.ChargesVAT.Equal(d("20")) {
		t.Errorf("ChargesVAT = %s, want 20", totals.ChargesVAT)
	}
	// 1000 + 50 line VAT + 400 charges + 20 charge VAT
	if !totals.GrandTotal.Equal(d("1470")) {
		t.Errorf("GrandTotal = %s, want 1470", totals.GrandTotal)
	}

	doc.IsExport = true
	exported := ComputeTotals(doc)
	if !exported.ChargesVAT.IsZero() {
		t.Errorf("export ChargesVAT = %s, want 0", exported.ChargesVAT)
	}
}

func TestComputeTotals_ReverseCharge(t *testing.T) {
	doc := Document{
		Items:           []LineItem{{Quantity: 2, Rate: d("500"), VATRate: d("5")}},
		IsReverseCharge: true,
	}

	totals := ComputeTotals(doc)
	if !totals.VATAmount.IsZero() {
		t.Errorf("VATAmount = %s, want 0 under reverse charge", totals.VATAmount)
	}
	if !totals.ReverseChargeAmount.Equal(d("50")) {
		t.Errorf("ReverseChargeAmount = %s, want 50", totals.ReverseChargeAmount)
	}
	if !totals.GrandTotal.Equal(d("1000")) {
		t.Errorf("GrandTotal = %s, want 1000", totals.GrandTotal)
	}
}

func TestComputeTotals_EmptyDocument(t *testing.T) {
	totals := ComputeTotals(Document{})
	if !totals.Subtotal.IsZero() || !totals.VATAmount.IsZero() || !totals.GrandTotal.IsZero() {
		t.Errorf("empty document totals not zero: %+v", totals)
	}
	if !totals.DiscountRatio.Equal(d("1")) {
		t.Errorf("empty document DiscountRatio = %s, want 1", totals.DiscountRatio)
	}
}
