package processor

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmfreitas/invoice-extractor/internal/entity"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func decp(s string) *decimal.Decimal {
	d := dec(s)
	return &d
}

// consistentInvoice carries arithmetic that adds up exactly:
// 2 x 50 = 100, 8.25% tax -> 108.25 total.
func consistentInvoice() *entity.Invoice {
	return &entity.Invoice{
		Vendor:        "Acme Corp",
		InvoiceNumber: "INV-1001",
		TotalDue:      dec("108.25"),
		CurrencyCode:  "USD",
		Items: []entity.LineItem{
			{
				Position:    1,
				Description: "Widget",
				Quantity:    dec("2"),
				UnitPrice:   dec("50"),
				SubTotal:    decp("100"),
				TaxRate:     dec("8.25"),
				TotalPrice:  dec("108.25"),
			},
		},
	}
}

func TestReviewInvoice(t *testing.T) {
	t.Run("consistent invoice passes", func(t *testing.T) {
		assert.Empty(t, reviewInvoice(consistentInvoice()))
	})

	t.Run("unknown currency", func(t *testing.T) {
		inv := consistentInvoice()
		inv.CurrencyCode = "ZZZ"
		reasons := reviewInvoice(inv)
		require.Len(t, reasons, 1)
		assert.Equal(t, "currency:unknown(ZZZ)", reasons[0])
	})

	t.Run("no items", func(t *testing.T) {
		inv := consistentInvoice()
		inv.Items = nil
		reasons := reviewInvoice(inv)
		require.Len(t, reasons, 1)
		assert.Equal(t, "items:empty", reasons[0])
	})

	t.Run("sub_total drift", func(t *testing.T) {
		inv := consistentInvoice()
		inv.Items[0].SubTotal = decp("90")
		reasons := reviewInvoice(inv)
		require.NotEmpty(t, reasons)
		assert.Contains(t, reasons[0], "items[0]:sub_total=90 want 100")
	})

	t.Run("discount feeds the computed sub_total", func(t *testing.T) {
		// 10 x 0.50 - 1.00 = 4.00, no tax
		inv := consistentInvoice()
		inv.TotalDue = dec("4")
		inv.Items = []entity.LineItem{
			{
				Position:    1,
				Description: "Bolt",
				Quantity:    dec("10"),
				UnitPrice:   dec("0.50"),
				Discount:    decp("1.00"),
				TaxRate:     dec("0"),
				TotalPrice:  dec("4.00"),
			},
		}
		assert.Empty(t, reviewInvoice(inv))
	})

	t.Run("total_price drift", func(t *testing.T) {
		inv := consistentInvoice()
		inv.Items[0].TotalPrice = dec("110")
		reasons := reviewInvoice(inv)
		require.NotEmpty(t, reasons)
		assert.Contains(t, reasons[0], "total_price=110 want 108.25")
	})

	t.Run("total_due mismatch", func(t *testing.T) {
		inv := consistentInvoice()
		inv.TotalDue = dec("120")
		reasons := reviewInvoice(inv)
		require.Len(t, reasons, 1)
		assert.Equal(t, "total_due=120 items sum to 108.25", reasons[0])
	})

	t.Run("one cent of rounding is tolerated", func(t *testing.T) {
		inv := consistentInvoice()
		inv.TotalDue = dec("108.26")
		assert.Empty(t, reviewInvoice(inv))

		inv.TotalDue = dec("108.27")
		assert.NotEmpty(t, reviewInvoice(inv))
	})

	t.Run("several findings stack", func(t *testing.T) {
		inv := consistentInvoice()
		inv.CurrencyCode = "???"
		inv.TotalDue = dec("1")
		reasons := reviewInvoice(inv)
		assert.Len(t, reasons, 2)
	})
}
