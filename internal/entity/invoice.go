package entity

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Invoice is the persisted structured record extracted from one document.
// Line items live in their own table; the verbatim model output is kept in
// RawJSON so the original wire form survives normalization.
type Invoice struct {
	ID            uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	Vendor        string     `gorm:"index:idx_vendor_invoice,unique" json:"vendor"`
	VendorAddress string     `json:"vendor_address"`
	VendorEmail   *string    `json:"vendor_email,omitempty"`
	VendorPhone   *string    `json:"vendor_phone,omitempty"`
	InvoiceNumber string     `gorm:"index:idx_vendor_invoice,unique" json:"invoice_number"`
	OrderNumber   *string    `json:"order_number,omitempty"`
	InvoiceDate   time.Time  `json:"invoice_date"`
	DueDate       *time.Time `json:"due_date,omitempty"`

	TotalDue     decimal.Decimal `gorm:"type:decimal(14,2)" json:"total_due"`
	CurrencyCode string          `gorm:"size:3" json:"currency_code"`

	Customer        string  `json:"customer"`
	CustomerAddress string  `json:"customer_address"`
	CustomerEmail   *string `json:"customer_email,omitempty"`
	CustomerPhone   *string `json:"customer_phone,omitempty"`
	BillingAddress  string  `json:"billing_address"`
	BillingEmail    *string `json:"billing_email,omitempty"`
	BillingPhone    *string `json:"billing_phone,omitempty"`

	Items []LineItem `gorm:"foreignKey:InvoiceID;constraint:OnDelete:CASCADE" json:"items"`

	RawJSON       json.RawMessage `gorm:"type:text" json:"-"`
	NeedsReview   bool            `json:"needs_review"`
	ReviewReasons string          `json:"review_reasons,omitempty"`

	SourcePath   string `json:"source_path,omitempty"`
	SourceSHA256 string `gorm:"size:64" json:"source_sha256,omitempty"`
	SourceBytes  int64  `json:"source_bytes,omitempty"`
	PageCount    int    `json:"page_count,omitempty"`

	ModelName string `json:"model_name,omitempty"`
	ExtractMS int64  `json:"extract_ms,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (i *Invoice) BeforeCreate(tx *gorm.DB) error {
	if i.ID == uuid.Nil {
		i.ID = uuid.New()
	}
	return nil
}

// LineItem is one row of an invoice's item table.
type LineItem struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"-"`
	InvoiceID uuid.UUID `gorm:"type:uuid;index" json:"-"`
	Position  int       `json:"position"`

	Description string           `json:"description"`
	Quantity    decimal.Decimal  `gorm:"type:decimal(14,4)" json:"quantity"`
	UnitPrice   decimal.Decimal  `gorm:"type:decimal(14,2)" json:"unit_price"`
	Discount    *decimal.Decimal `gorm:"type:decimal(14,2)" json:"discount,omitempty"`
	SubTotal    *decimal.Decimal `gorm:"type:decimal(14,2)" json:"sub_total,omitempty"`
	TaxRate     decimal.Decimal  `gorm:"type:decimal(7,4)" json:"tax_rate"`
	TotalPrice  decimal.Decimal  `gorm:"type:decimal(14,2)" json:"total_price"`
}

func (li *LineItem) BeforeCreate(tx *gorm.DB) error {
	if li.ID == uuid.Nil {
		li.ID = uuid.New()
	}
	return nil
}
