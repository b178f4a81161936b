package export

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/dmfreitas/invoice-extractor/internal/entity"
	"github.com/dmfreitas/invoice-extractor/internal/render"
	"github.com/dmfreitas/invoice-extractor/internal/repository"
)

// Service is a tiny façade over the invoice repository that produces XLSX
// and CSV bytes for exports.
type Service struct {
	invoices repository.InvoiceRepository
	logger   *slog.Logger
}

func NewService(invoices repository.InvoiceRepository, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{invoices: invoices, logger: logger}
}

// ExportXLSX returns a workbook with one sheet of invoices and one of line
// items for the given date window.
// If only from is provided -> from..today (inclusive).
// If only to is provided   -> beginning..to (inclusive).
// If neither is provided   -> all invoices.
func (s *Service) ExportXLSX(ctx context.Context, from, to *time.Time) ([]byte, error) {
	start := time.Now()

	invs, err := s.invoices.List(ctx, listFilter(from, to))
	if err != nil {
		return nil, fmt.Errorf("query invoices: %w", err)
	}

	f := excelize.NewFile()
	if err := s.writeInvoiceSheet(f, invs); err != nil {
		return nil, err
	}
	if err := s.writeItemSheet(f, invs); err != nil {
		return nil, err
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}

	s.logger.Info("export.xlsx.ok",
		"rows", len(invs),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return buf.Bytes(), nil
}

func (s *Service) writeInvoiceSheet(f *excelize.File, invs []*entity.Invoice) error {
	const sheet = "Invoices"
	if err := ensureSheet(f, sheet); err != nil {
		return err
	}
	activeIndex, _ := f.GetSheetIndex(sheet)
	f.SetActiveSheet(activeIndex)

	headers := []string{
		"Invoice Number",
		"Vendor",
		"Invoice Date",
		"Due Date",
		"Customer",
		"Currency",
		"Total Due",
		"Items",
		"Needs Review",
		"Source Path",
	}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(sheet, cell, h)
	}

	row := 2
	for _, inv := range invs {
		write := func(col int, v any) {
			cell, _ := excelize.CoordinatesToCellName(col, row)
			_ = f.SetCellValue(sheet, cell, v)
		}
		write(1, inv.InvoiceNumber)
		write(2, inv.Vendor)
		write(3, inv.InvoiceDate.Format("2006-01-02"))
		write(4, render.FormatDate(inv.DueDate))
		write(5, inv.Customer)
		write(6, inv.CurrencyCode)
		write(7, inv.TotalDue.StringFixed(2))
		write(8, len(inv.Items))
		write(9, inv.NeedsReview)
		write(10, truncate(inv.SourcePath, 140))
		row++
	}

	_ = f.SetColWidth(sheet, "A", "A", 18) // invoice number
	_ = f.SetColWidth(sheet, "B", "B", 28) // vendor
	_ = f.SetColWidth(sheet, "C", "D", 12) // dates
	_ = f.SetColWidth(sheet, "E", "E", 28) // customer
	_ = f.SetColWidth(sheet, "G", "G", 14) // total
	_ = f.SetColWidth(sheet, "J", "J", 60) // path

	// Drop the default sheet excelize creates.
	if idx, _ := f.GetSheetIndex("Sheet1"); idx != -1 {
		_ = f.DeleteSheet("Sheet1")
	}
	return nil
}

func (s *Service) writeItemSheet(f *excelize.File, invs []*entity.Invoice) error {
	const sheet = "Line Items"
	if err := ensureSheet(f, sheet); err != nil {
		return err
	}

	headers := []string{
		"Invoice Number",
		"Vendor",
		"Position",
		"Description",
		"Quantity",
		"Unit Price",
		"Discount",
		"Sub Total",
		"Tax Rate",
		"Total Price",
	}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(sheet, cell, h)
	}

	row := 2
	for _, inv := range invs {
		for _, it := range inv.Items {
			write := func(col int, v any) {
				cell, _ := excelize.CoordinatesToCellName(col, row)
				_ = f.SetCellValue(sheet, cell, v)
			}
			write(1, inv.InvoiceNumber)
			write(2, inv.Vendor)
			write(3, it.Position)
			write(4, truncate(it.Description, 140))
			write(5, it.Quantity.String())
			write(6, it.UnitPrice.StringFixed(2))
			if it.Discount != nil {
				write(7, it.Discount.StringFixed(2))
			}
			if it.SubTotal != nil {
				write(8, it.SubTotal.StringFixed(2))
			}
			write(9, it.TaxRate.String())
			write(10, it.TotalPrice.StringFixed(2))
			row++
		}
	}

	_ = f.SetColWidth(sheet, "A", "A", 18)
	_ = f.SetColWidth(sheet, "B", "B", 28)
	_ = f.SetColWidth(sheet, "D", "D", 48)
	return nil
}

func ensureSheet(f *excelize.File, sheet string) error {
	if index, _ := f.GetSheetIndex(sheet); index == -1 {
		if _, err := f.NewSheet(sheet); err != nil {
			return err
		}
	}
	return nil
}

func listFilter(from, to *time.Time) repository.ListFilter {
	var fromDate, toDate *time.Time
	if from != nil {
		f := time.Date(from.Year(), from.Month(), from.Day(), 0, 0, 0, 0, time.UTC)
		fromDate = &f
	}
	if to != nil {
		t := time.Date(to.Year(), to.Month(), to.Day(), 0, 0, 0, 0, time.UTC)
		toDate = &t
	}
	if fromDate != nil && toDate == nil {
		today := time.Now().UTC()
		t := time.Date(today.Year(), today.Month(), today.Day(), 0, 0, 0, 0, time.UTC)
		toDate = &t
	}
	return repository.ListFilter{FromDate: fromDate, ToDate: toDate}
}

func truncate(s string, n int) string {
	if n <= 0 || len(s) <= n {
		return s
	}
	if n <= 1 {
		return s[:n]
	}
	return s[:n-1] + "…"
}
