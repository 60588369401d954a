package billing

import "fmt"

// ValidationResult carries human-readable messages plus machine-addressable
// field paths so the form layer can highlight and scroll to the offending
// input. The caller decides whether a failed result blocks a save or only
// warns.
type ValidationResult struct {
	IsValid       bool     `json:"is_valid"`
	Errors        []string `json:"errors"`
	InvalidFields []string `json:"invalid_fields"`
}

func (r *ValidationResult) add(message, fieldPath string) {
	r.IsValid = false
	r.Errors = append(r.Errors, message)
	if fieldPath != "" {
		r.InvalidFields = append(r.InvalidFields, fieldPath)
	}
}

// isBlankItem reports whether a row is fully empty: no name, zero quantity
// and zero rate. Blank rows are excluded from validation and persistence.
func isBlankItem(item LineItem) bool {
	return item.Name == "" && item.Quantity == 0 && item.Rate.IsZero()
}

// FilterBlankItems drops fully-blank rows, preserving order.
func FilterBlankItems(items []LineItem) []LineItem {
	kept := make([]LineItem, 0, len(items))
	for _, item := range items {
		if !isBlankItem(item) {
			kept = append(kept, item)
		}
	}
	return kept
}

// ValidateRequiredFields checks document completeness before a save. The
// structural minimum (customer name, at least one item, both dates) applies
// to every status including drafts; item-level completeness is waived for
// half-typed rows by the blank-row filter rather than a status branch.
func ValidateRequiredFields(doc Document) ValidationResult {
	result := ValidationResult{IsValid: true}

	if doc.CustomerName == "" {
		result.add("Customer name is required", "customer.name")
	}

	nonBlank := 0
	for i, item := range doc.Items {
		if isBlankItem(item) {
			continue
		}
		nonBlank++
		if item.Name == "" {
			result.add(fmt.Sprintf("Item %d: description is required", i+1), fmt.Sprintf("items[%d].name", i))
		}
		if item.Quantity <= 0 {
			result.add(fmt.Sprintf("Item %d: quantity must be greater than zero", i+1), fmt.Sprintf("items[%d].quantity", i))
		}
		if !item.Rate.IsPositive() {
			result.add(fmt.Sprintf("Item %d: rate must be greater than zero", i+1), fmt.Sprintf("items[%d].rate", i))
		}
	}
	if nonBlank == 0 {
		// No index exists to point at, so this one carries no field path.
		result.add("At least one line item is required", "")
	}

	if doc.Date == nil {
		result.add("Invoice date is required", "date")
	}
	if doc.DueDate == nil {
		result.add("Due date is required", "due_date")
	}

	if !doc.Status.IsValid() {
		result.add(fmt.Sprintf("Unknown invoice status %q", doc.Status), "status")
	}

	return result
}
