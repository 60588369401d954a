package billing

import (
	"testing"
	"time"
)

func validDocument() Document {
	date := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	due := date.AddDate(0, 1, 0)
	return Document{
		CustomerName: "Gulf Steel Trading LLC",
		Status:       StatusDraft,
		Date:         &date,
		DueDate:      &due,
		Items: []LineItem{
			{Name: "Rebar 12mm", Quantity: 10, Rate: d("850"), SupplyType: SupplyStandard, VATRate: d("5")},
		},
	}
}

func TestValidateRequiredFields_Valid(t *testing.T) {
	result := ValidateRequiredFields(validDocument())
	if !result.IsValid {
		t.Fatalf("expected valid document, got errors: %v", result.Errors)
	}
	if len(result.Errors) != 0 || len(result.InvalidFields) != 0 {
		t.Errorf("valid result carries errors: %+v", result)
	}
}

func TestValidateRequiredFields_EmptyCustomerAndNoItems(t *testing.T) {
	doc := validDocument()
	doc.CustomerName = ""
	doc.Items = nil

	result := ValidateRequiredFields(doc)
	if result.IsValid {
		t.Fatal("expected invalid result")
	}
	if len(result.Errors) != 2 {
		t.Fatalf("expected exactly 2 errors, got %d: %v", len(result.Errors), result.Errors)
	}
	// The missing-items error carries no field path: there is no item index
	// to point at.
	if len(result.InvalidFields) != 1 || result.InvalidFields[0] != "customer.name" {
		t.Errorf("InvalidFields = %v, want [customer.name]", result.InvalidFields)
	}
}

func TestValidateRequiredFields_BlankRowsIgnored(t *testing.T) {
	doc := validDocument()
	doc.Items = append(doc.Items, LineItem{}, LineItem{})

	result := ValidateRequiredFields(doc)
	if !result.IsValid {
		t.Errorf("blank rows must not fail validation: %v", result.Errors)
	}
}

func TestValidateRequiredFields_AllRowsBlank(t *testing.T) {
	doc := validDocument()
	doc.Items = []LineItem{{}, {}}

	result := ValidateRequiredFields(doc)
	if result.IsValid {
		t.Fatal("expected invalid result when every row is blank")
	}
}

func TestValidateRequiredFields_IncompleteItem(t *testing.T) {
	doc := validDocument()
	doc.Items = append(doc.Items, LineItem{Name: "Steel coil", Quantity: 0, Rate: d("120")})

	result := ValidateRequiredFields(doc)
	if result.IsValid {
		t.Fatal("expected invalid result for zero-quantity item")
	}
	found := false
	for _, path := range result.InvalidFields {
		if path == "items[1].quantity" {
			found = true
		}
	}
	if !found {
		t.Errorf("expected items[1].quantity in InvalidFields, got %v", result.InvalidFields)
	}
}

func TestValidateRequiredFields_ItemPathsUseOriginalIndex(t *testing.T) {
	doc := validDocument()
	// Blank row at index 1; broken row at index 2. Paths must address the
	// original positions so the form can scroll to the right row.
	doc.Items = append(doc.Items, LineItem{}, LineItem{Name: "", Quantity: 5, Rate: d("10")})

	result := ValidateRequiredFields(doc)
	if result.IsValid {
		t.Fatal("expected invalid result")
	}
	if len(result.InvalidFields) != 1 || result.InvalidFields[0] != "items[2].name" {
		t.Errorf("InvalidFields = %v, want [items[2].name]", result.InvalidFields)
	}
}

func TestValidateRequiredFields_MissingDates(t *testing.T) {
	doc := validDocument()
	doc.Date = nil
	doc.DueDate = nil

	result := ValidateRequiredFields(doc)
	if result.IsValid {
		t.Fatal("expected invalid result")
	}
	want := map[string]bool{"date": false, "due_date": false}
	for _, path := range result.InvalidFields {
		if _, ok := want[path]; ok {
			want[path] = true
		}
	}
	for path, seen := range want {
		if !seen {
			t.Errorf("expected %s in InvalidFields, got %v", path, result.InvalidFields)
		}
	}
}

func TestValidateRequiredFields_UnknownStatus(t *testing.T) {
	doc := validDocument()
	doc.Status = Status("cancelled")

	result := ValidateRequiredFields(doc)
	if result.IsValid {
		t.Fatal("expected invalid result for unknown status")
	}
}

func TestFilterBlankItems(t *testing.T) {
	items := []LineItem{
		{Name: "Rebar", Quantity: 1, Rate: d("10")},
		{},
		{Name: "", Quantity: 0, Rate: d("0")},
		{Name: "Coil", Quantity: 2, Rate: d("20")},
		{Name: "", Quantity: 3, Rate: d("0")}, // half-typed, kept
	}

	kept := FilterBlankItems(items)
	if len(kept) != 3 {
		t.Fatalf("kept %d items, want 3", len(kept))
	}
	if kept[0].Name != "Rebar" || kept[1].Name != "Coil" || kept[2].Quantity != 3 {
		t.Errorf("filter broke ordering: %+v", kept)
	}
}
