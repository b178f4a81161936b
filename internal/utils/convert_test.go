package utils

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmfreitas/invoice-extractor/internal/llm"
)

func sampleFields() llm.InvoiceFields {
	return llm.InvoiceFields{
		Vendor:          "Acme Corp",
		VendorAddress:   "1 Factory Rd",
		VendorEmail:     "billing@acme.example",
		InvoiceNumber:   "INV-1001",
		OrderNumber:     "PO-77",
		InvoiceDate:     "2024-05-06",
		DueDate:         "2024-06-05",
		TotalDue:        "108.25",
		Currency:        "USD",
		Customer:        "Jane Smith",
		CustomerAddress: "9 Elm St",
		BillingAddress:  "9 Elm St",
		Items: []llm.LineItemFields{
			{Description: "Widget", Quantity: "2", UnitPrice: "50", SubTotal: "100", TaxRate: "8.25", TotalPrice: "108.25"},
			{Description: "Bolt", Quantity: "10", UnitPrice: "0.50", Discount: "1.00", TaxRate: "0", TotalPrice: "4.00"},
		},
	}
}

func TestParseYMD(t *testing.T) {
	d, err := ParseYMD("2024-05-06")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 5, 6, 0, 0, 0, 0, time.UTC), d)
	assert.Equal(t, time.UTC, d.Location())

	_, err = ParseYMD("06/05/2024")
	require.Error(t, err)
}

func TestToInvoice(t *testing.T) {
	raw := []byte(`{"vendor":"Acme Corp"}`)

	t.Run("converts a full record", func(t *testing.T) {
		inv, err := ToInvoice(sampleFields(), raw)
		require.NoError(t, err)

		assert.Equal(t, "Acme Corp", inv.Vendor)
		assert.Equal(t, "INV-1001", inv.InvoiceNumber)
		assert.Equal(t, time.Date(2024, 5, 6, 0, 0, 0, 0, time.UTC), inv.InvoiceDate)
		require.NotNil(t, inv.DueDate)
		assert.Equal(t, time.Date(2024, 6, 5, 0, 0, 0, 0, time.UTC), *inv.DueDate)
		assert.Equal(t, "108.25", inv.TotalDue.String())
		assert.Equal(t, "USD", inv.CurrencyCode)
		assert.Equal(t, raw, []byte(inv.RawJSON))

		require.NotNil(t, inv.VendorEmail)
		assert.Equal(t, "billing@acme.example", *inv.VendorEmail)
		require.NotNil(t, inv.OrderNumber)
		assert.Equal(t, "PO-77", *inv.OrderNumber)
		assert.Nil(t, inv.VendorPhone)

		require.Len(t, inv.Items, 2)
		assert.Equal(t, 1, inv.Items[0].Position)
		assert.Equal(t, 2, inv.Items[1].Position)
		assert.Equal(t, "Widget", inv.Items[0].Description)
		assert.True(t, inv.Items[0].Quantity.Equal(decimal.RequireFromString("2")))
		assert.Nil(t, inv.Items[0].Discount)
		require.NotNil(t, inv.Items[1].Discount)
		assert.True(t, inv.Items[1].Discount.Equal(decimal.RequireFromString("1.00")))
	})

	t.Run("empty optionals stay nil", func(t *testing.T) {
		f := sampleFields()
		f.DueDate = ""
		f.VendorEmail = ""
		f.OrderNumber = ""

		inv, err := ToInvoice(f, raw)
		require.NoError(t, err)
		assert.Nil(t, inv.DueDate)
		assert.Nil(t, inv.VendorEmail)
		assert.Nil(t, inv.OrderNumber)
	})

	t.Run("no items is allowed", func(t *testing.T) {
		f := sampleFields()
		f.Items = nil

		inv, err := ToInvoice(f, raw)
		require.NoError(t, err)
		assert.Empty(t, inv.Items)
	})

	t.Run("bad invoice date", func(t *testing.T) {
		f := sampleFields()
		f.InvoiceDate = "05/06/2024"
		_, err := ToInvoice(f, raw)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invoice_date")
	})

	t.Run("bad due date", func(t *testing.T) {
		f := sampleFields()
		f.DueDate = "soon"
		_, err := ToInvoice(f, raw)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "due_date")
	})

	t.Run("bad total", func(t *testing.T) {
		f := sampleFields()
		f.TotalDue = "1,234.56"
		_, err := ToInvoice(f, raw)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "total_due")
	})

	t.Run("bad item amount names the item", func(t *testing.T) {
		f := sampleFields()
		f.Items[1].UnitPrice = "free"
		_, err := ToInvoice(f, raw)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "items[1]")
		assert.Contains(t, err.Error(), "unit_price")
	})
}
