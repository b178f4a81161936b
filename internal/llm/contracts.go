package llm

import "context"

// LineItemFields is one invoice line as the LLM reports it. Money and
// quantity values are decimal strings so nothing is lost to float rounding.
type LineItemFields struct {
	Description string `json:"description"`
	Quantity    string `json:"quantity"`
	UnitPrice   string `json:"unit_price"`
	Discount    string `json:"discount,omitempty"`
	SubTotal    string `json:"sub_total,omitempty"` // (quantity * unit_price) - discount
	TaxRate     string `json:"tax_rate"`            // percentage
	TotalPrice  string `json:"total_price"`         // sub_total plus tax
}

// InvoiceFields is the normalized shape we want from the LLM.
type InvoiceFields struct {
	Vendor        string `json:"vendor"`
	VendorAddress string `json:"vendor_address"`
	VendorEmail   string `json:"vendor_email,omitempty"`
	VendorPhone   string `json:"vendor_phone,omitempty"`

	InvoiceNumber string `json:"invoice_number"`
	OrderNumber   string `json:"order_number,omitempty"`
	InvoiceDate   string `json:"invoice_date"`       // YYYY-MM-DD
	DueDate       string `json:"due_date,omitempty"` // YYYY-MM-DD

	TotalDue string `json:"total_due"` // decimal
	Currency string `json:"currency"`  // ISO 4217

	Customer        string `json:"customer"`
	CustomerAddress string `json:"customer_address"`
	CustomerEmail   string `json:"customer_email,omitempty"`
	CustomerPhone   string `json:"customer_phone,omitempty"`

	BillingAddress string `json:"billing_address"`
	BillingEmail   string `json:"billing_email,omitempty"`
	BillingPhone   string `json:"billing_phone,omitempty"`

	Items []LineItemFields `json:"items"`
}

type ExtractRequest struct {
	Text            string
	FilenameHint    string
	DefaultCurrency string

	// ImageDataURL attaches a rendered page or photo for vision-capable
	// models. Set by the pipeline when the text layer is too thin.
	ImageDataURL string
}

// FieldExtractor is the interface the pipeline depends on.
type FieldExtractor interface {
	ExtractFields(ctx context.Context, req ExtractRequest) (InvoiceFields, []byte /*rawJSON*/, error)
}
