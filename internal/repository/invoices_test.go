package repository

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/dmfreitas/invoice-extractor/internal/common"
	"github.com/dmfreitas/invoice-extractor/internal/entity"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// openTestDB gives each test its own in-memory store. One connection only,
// so every query sees the same memory database.
func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := Open(context.Background(), Config{URL: ":memory:", MaxOpenConns: 1}, discardLogger())
	require.NoError(t, err)
	return db
}

func makeInvoice(vendor, number string, date time.Time) *entity.Invoice {
	return &entity.Invoice{
		Vendor:          vendor,
		VendorAddress:   "1 Factory Rd",
		InvoiceNumber:   number,
		InvoiceDate:     date,
		TotalDue:        decimal.RequireFromString("108.25"),
		CurrencyCode:    "USD",
		Customer:        "Jane Smith",
		CustomerAddress: "9 Elm St",
		BillingAddress:  "9 Elm St",
		RawJSON:         json.RawMessage(`{"vendor":"` + vendor + `"}`),
		Items: []entity.LineItem{
			{
				Position:    1,
				Description: "Widget",
				Quantity:    decimal.RequireFromString("2"),
				UnitPrice:   decimal.RequireFromString("50"),
				TaxRate:     decimal.RequireFromString("8.25"),
				TotalPrice:  decimal.RequireFromString("108.25"),
			},
		},
	}
}

func TestInvoiceUpsert(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	repo := NewInvoiceRepository(db, discardLogger())

	date := time.Date(2024, 5, 6, 0, 0, 0, 0, time.UTC)

	t.Run("creates a new invoice with items", func(t *testing.T) {
		inv := makeInvoice("Acme Corp", "INV-1001", date)
		saved, err := repo.Upsert(ctx, inv)
		require.NoError(t, err)
		assert.NotEqual(t, uuid.Nil, saved.ID)
		assert.False(t, saved.CreatedAt.IsZero())

		n, err := repo.Count(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(1), n)
	})

	t.Run("same vendor and number replaces in place", func(t *testing.T) {
		first, err := repo.Upsert(ctx, makeInvoice("Acme Corp", "INV-2002", date))
		require.NoError(t, err)

		update := makeInvoice("Acme Corp", "INV-2002", date)
		update.TotalDue = decimal.RequireFromString("220.00")
		update.Items = []entity.LineItem{
			{Position: 1, Description: "Widget", Quantity: decimal.RequireFromString("2"),
				UnitPrice: decimal.RequireFromString("50"), TaxRate: decimal.RequireFromString("0"),
				TotalPrice: decimal.RequireFromString("100")},
			{Position: 2, Description: "Gadget", Quantity: decimal.RequireFromString("1"),
				UnitPrice: decimal.RequireFromString("120"), TaxRate: decimal.RequireFromString("0"),
				TotalPrice: decimal.RequireFromString("120")},
		}
		second, err := repo.Upsert(ctx, update)
		require.NoError(t, err)

		assert.Equal(t, first.ID, second.ID)
		assert.Equal(t, first.CreatedAt.Unix(), second.CreatedAt.Unix())

		stored, err := repo.GetByID(ctx, first.ID)
		require.NoError(t, err)
		assert.True(t, stored.TotalDue.Equal(decimal.RequireFromString("220.00")))
		require.Len(t, stored.Items, 2)

		// the old line items are gone, not orphaned
		var itemRows int64
		require.NoError(t, db.Model(&entity.LineItem{}).
			Where("invoice_id = ?", first.ID).Count(&itemRows).Error)
		assert.Equal(t, int64(2), itemRows)
	})

	t.Run("different numbers stay separate", func(t *testing.T) {
		before, err := repo.Count(ctx)
		require.NoError(t, err)

		_, err = repo.Upsert(ctx, makeInvoice("Acme Corp", "INV-3003", date))
		require.NoError(t, err)

		after, err := repo.Count(ctx)
		require.NoError(t, err)
		assert.Equal(t, before+1, after)
	})
}

func TestInvoiceGetByID(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	repo := NewInvoiceRepository(db, discardLogger())

	t.Run("orders items by position", func(t *testing.T) {
		inv := makeInvoice("Acme Corp", "INV-1001", time.Date(2024, 5, 6, 0, 0, 0, 0, time.UTC))
		inv.Items = []entity.LineItem{
			{Position: 2, Description: "Second", Quantity: decimal.RequireFromString("1"),
				UnitPrice: decimal.RequireFromString("1"), TaxRate: decimal.RequireFromString("0"),
				TotalPrice: decimal.RequireFromString("1")},
			{Position: 1, Description: "First", Quantity: decimal.RequireFromString("1"),
				UnitPrice: decimal.RequireFromString("1"), TaxRate: decimal.RequireFromString("0"),
				TotalPrice: decimal.RequireFromString("1")},
		}
		saved, err := repo.Upsert(ctx, inv)
		require.NoError(t, err)

		stored, err := repo.GetByID(ctx, saved.ID)
		require.NoError(t, err)
		require.Len(t, stored.Items, 2)
		assert.Equal(t, "First", stored.Items[0].Description)
		assert.Equal(t, "Second", stored.Items[1].Description)
	})

	t.Run("unknown id maps to not found", func(t *testing.T) {
		_, err := repo.GetByID(ctx, uuid.New())
		assert.ErrorIs(t, err, common.ErrNotFound)
	})
}

func TestInvoiceList(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	repo := NewInvoiceRepository(db, discardLogger())

	day := func(d int) time.Time { return time.Date(2024, 5, d, 0, 0, 0, 0, time.UTC) }
	for _, tc := range []struct {
		vendor, number string
		date           time.Time
	}{
		{"Acme Corp", "INV-1", day(1)},
		{"Acme Corp", "INV-2", day(15)},
		{"Globex", "G-77", day(20)},
	} {
		_, err := repo.Upsert(ctx, makeInvoice(tc.vendor, tc.number, tc.date))
		require.NoError(t, err)
	}

	t.Run("newest first", func(t *testing.T) {
		invs, err := repo.List(ctx, ListFilter{})
		require.NoError(t, err)
		require.Len(t, invs, 3)
		assert.Equal(t, "G-77", invs[0].InvoiceNumber)
		assert.Equal(t, "INV-2", invs[1].InvoiceNumber)
		assert.Equal(t, "INV-1", invs[2].InvoiceNumber)
		assert.NotEmpty(t, invs[0].Items)
	})

	t.Run("vendor filter", func(t *testing.T) {
		invs, err := repo.List(ctx, ListFilter{Vendor: "Globex"})
		require.NoError(t, err)
		require.Len(t, invs, 1)
		assert.Equal(t, "G-77", invs[0].InvoiceNumber)
	})

	t.Run("date window", func(t *testing.T) {
		from := day(10)
		to := day(18)
		invs, err := repo.List(ctx, ListFilter{FromDate: &from, ToDate: &to})
		require.NoError(t, err)
		require.Len(t, invs, 1)
		assert.Equal(t, "INV-2", invs[0].InvoiceNumber)
	})

	t.Run("limit and offset page through", func(t *testing.T) {
		page1, err := repo.List(ctx, ListFilter{Limit: 2})
		require.NoError(t, err)
		require.Len(t, page1, 2)

		page2, err := repo.List(ctx, ListFilter{Limit: 2, Offset: 2})
		require.NoError(t, err)
		require.Len(t, page2, 1)
		assert.Equal(t, "INV-1", page2[0].InvoiceNumber)
	})
}
