package export

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/gocarina/gocsv"

	"github.com/dmfreitas/invoice-extractor/internal/entity"
	"github.com/dmfreitas/invoice-extractor/internal/render"
)

// invoiceRow is the flat CSV shape, one row per invoice.
type invoiceRow struct {
	InvoiceNumber string `csv:"invoice_number"`
	Vendor        string `csv:"vendor"`
	InvoiceDate   string `csv:"invoice_date"`
	DueDate       string `csv:"due_date"`
	Customer      string `csv:"customer"`
	Currency      string `csv:"currency"`
	TotalDue      string `csv:"total_due"`
	Items         int    `csv:"items"`
	ItemSummary   string `csv:"item_summary"`
	NeedsReview   bool   `csv:"needs_review"`
	SourcePath    string `csv:"source_path"`
}

// ExportCSV returns one CSV row per invoice for the given date window.
func (s *Service) ExportCSV(ctx context.Context, from, to *time.Time) ([]byte, error) {
	start := time.Now()

	invs, err := s.invoices.List(ctx, listFilter(from, to))
	if err != nil {
		return nil, fmt.Errorf("query invoices: %w", err)
	}

	rows := make([]*invoiceRow, 0, len(invs))
	for _, inv := range invs {
		rows = append(rows, &invoiceRow{
			InvoiceNumber: inv.InvoiceNumber,
			Vendor:        inv.Vendor,
			InvoiceDate:   inv.InvoiceDate.Format("2006-01-02"),
			DueDate:       render.FormatDate(inv.DueDate),
			Customer:      inv.Customer,
			Currency:      inv.CurrencyCode,
			TotalDue:      inv.TotalDue.StringFixed(2),
			Items:         len(inv.Items),
			ItemSummary:   itemSummary(inv.Items),
			NeedsReview:   inv.NeedsReview,
			SourcePath:    inv.SourcePath,
		})
	}

	b, err := gocsv.MarshalBytes(&rows)
	if err != nil {
		return nil, fmt.Errorf("csv write: %w", err)
	}

	s.logger.Info("export.csv.ok",
		"rows", len(rows),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return b, nil
}

func itemSummary(items []entity.LineItem) string {
	parts := make([]string, 0, len(items))
	for _, it := range items {
		parts = append(parts, fmt.Sprintf("%s x%s", it.Description, it.Quantity.String()))
	}
	return strings.Join(parts, "; ")
}
