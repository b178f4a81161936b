package utils

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/dmfreitas/invoice-extractor/internal/entity"
	"github.com/dmfreitas/invoice-extractor/internal/llm"
)

// ParseYMD parses a YYYY-MM-DD string at midnight UTC to match DATE
// column semantics.
func ParseYMD(s string) (time.Time, error) {
	t, err := time.ParseInLocation("2006-01-02", s, time.UTC)
	if err != nil {
		return time.Time{}, err
	}
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), nil
}

// ToInvoice converts validated extraction output into the persistable record.
// Source and model metadata stay zero; the caller fills them in.
func ToInvoice(f llm.InvoiceFields, raw []byte) (*entity.Invoice, error) {
	invoiceDate, err := ParseYMD(f.InvoiceDate)
	if err != nil {
		return nil, fmt.Errorf("invoice_date %q: %w", f.InvoiceDate, err)
	}
	var dueDate *time.Time
	if f.DueDate != "" {
		d, err := ParseYMD(f.DueDate)
		if err != nil {
			return nil, fmt.Errorf("due_date %q: %w", f.DueDate, err)
		}
		dueDate = &d
	}
	totalDue, err := decimal.NewFromString(f.TotalDue)
	if err != nil {
		return nil, fmt.Errorf("total_due %q: %w", f.TotalDue, err)
	}

	items := make([]entity.LineItem, 0, len(f.Items))
	for i, it := range f.Items {
		item, err := toLineItem(it, i+1)
		if err != nil {
			return nil, fmt.Errorf("items[%d]: %w", i, err)
		}
		items = append(items, item)
	}

	return &entity.Invoice{
		Vendor:        f.Vendor,
		VendorAddress: f.VendorAddress,
		VendorEmail:   optStr(f.VendorEmail),
		VendorPhone:   optStr(f.VendorPhone),

		InvoiceNumber: f.InvoiceNumber,
		OrderNumber:   optStr(f.OrderNumber),
		InvoiceDate:   invoiceDate,
		DueDate:       dueDate,

		TotalDue:     totalDue,
		CurrencyCode: f.Currency,

		Customer:        f.Customer,
		CustomerAddress: f.CustomerAddress,
		CustomerEmail:   optStr(f.CustomerEmail),
		CustomerPhone:   optStr(f.CustomerPhone),
		BillingAddress:  f.BillingAddress,
		BillingEmail:    optStr(f.BillingEmail),
		BillingPhone:    optStr(f.BillingPhone),

		Items:   items,
		RawJSON: raw,
	}, nil
}

func toLineItem(it llm.LineItemFields, position int) (entity.LineItem, error) {
	qty, err := decimal.NewFromString(it.Quantity)
	if err != nil {
		return entity.LineItem{}, fmt.Errorf("quantity %q: %w", it.Quantity, err)
	}
	unitPrice, err := decimal.NewFromString(it.UnitPrice)
	if err != nil {
		return entity.LineItem{}, fmt.Errorf("unit_price %q: %w", it.UnitPrice, err)
	}
	taxRate, err := decimal.NewFromString(it.TaxRate)
	if err != nil {
		return entity.LineItem{}, fmt.Errorf("tax_rate %q: %w", it.TaxRate, err)
	}
	totalPrice, err := decimal.NewFromString(it.TotalPrice)
	if err != nil {
		return entity.LineItem{}, fmt.Errorf("total_price %q: %w", it.TotalPrice, err)
	}
	discount, err := optDec(it.Discount)
	if err != nil {
		return entity.LineItem{}, fmt.Errorf("discount %q: %w", it.Discount, err)
	}
	subTotal, err := optDec(it.SubTotal)
	if err != nil {
		return entity.LineItem{}, fmt.Errorf("sub_total %q: %w", it.SubTotal, err)
	}

	return entity.LineItem{
		Position:    position,
		Description: it.Description,
		Quantity:    qty,
		UnitPrice:   unitPrice,
		Discount:    discount,
		SubTotal:    subTotal,
		TaxRate:     taxRate,
		TotalPrice:  totalPrice,
	}, nil
}

func optStr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func optDec(s string) (*decimal.Decimal, error) {
	if s == "" {
		return nil, nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return nil, err
	}
	return &d, nil
}
