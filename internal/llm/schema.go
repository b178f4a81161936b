package llm

// BuildInvoiceJSONSchema returns a JSON-Schema (draft 2020-12 subset) as a
// generic map. We pass this to the model as a structured output constraint
// and also use it locally to validate what comes back.
func BuildInvoiceJSONSchema() map[string]any {
	itemProps := map[string]any{
		"description": map[string]any{"type": "string", "minLength": 1},
		"quantity":    qtyProp(),
		"unit_price":  decimalProp(),
		"discount":    decimalProp(), // optional
		"sub_total":   decimalProp(), // optional: (quantity * unit_price) - discount
		"tax_rate":    qtyProp(),
		"total_price": decimalProp(),
	}
	itemRequired := []string{"description", "quantity", "unit_price", "tax_rate", "total_price"}

	props := map[string]any{
		"vendor":         map[string]any{"type": "string", "minLength": 1},
		"vendor_address": map[string]any{"type": "string", "minLength": 1},
		"vendor_email":   map[string]any{"type": "string"},
		"vendor_phone":   map[string]any{"type": "string"},

		"invoice_number": map[string]any{"type": "string", "minLength": 1},
		"order_number":   map[string]any{"type": "string"},
		"invoice_date":   dateProp(),
		"due_date":       dateProp(),

		"total_due": decimalProp(),
		"currency":  map[string]any{"type": "string", "minLength": 3, "maxLength": 3},

		"customer":         map[string]any{"type": "string", "minLength": 1},
		"customer_address": map[string]any{"type": "string", "minLength": 1},
		"customer_email":   map[string]any{"type": "string"},
		"customer_phone":   map[string]any{"type": "string"},

		"billing_address": map[string]any{"type": "string", "minLength": 1},
		"billing_email":   map[string]any{"type": "string"},
		"billing_phone":   map[string]any{"type": "string"},

		"items": map[string]any{
			"type": "array",
			"items": map[string]any{
				"type":                 "object",
				"additionalProperties": false,
				"properties":           itemProps,
				"required":             itemRequired,
			},
		},
	}
	required := []string{
		"vendor", "vendor_address", "invoice_number", "invoice_date",
		"total_due", "currency", "customer", "customer_address",
		"billing_address", "items",
	}

	return map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"properties":           props,
		"required":             required,
	}
}

func decimalProp() map[string]any {
	return map[string]any{
		"type":    "string",
		"pattern": `^-?\d+(\.\d{1,2})?$`, // allow negatives for discounts/credit notes
	}
}

// qtyProp allows more fractional digits than money fields (hours, weights,
// tax rates like 8.875).
func qtyProp() map[string]any {
	return map[string]any{
		"type":    "string",
		"pattern": `^-?\d+(\.\d{1,4})?$`,
	}
}

func dateProp() map[string]any {
	return map[string]any{
		"type":    "string",
		"pattern": `^\d{4}-\d{2}-\d{2}$`,
	}
}
