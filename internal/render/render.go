package render

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/Rhymond/go-money"
	"github.com/charmbracelet/lipgloss"
	"github.com/shopspring/decimal"
	"golang.org/x/term"

	"github.com/dmfreitas/invoice-extractor/internal/entity"
	"github.com/dmfreitas/invoice-extractor/internal/llm"
)

// Renderer produces the two terminal representations of an extracted
// invoice: the wire-shaped JSON and a labeled object view with an item
// table. Styling is skipped when the output is not a terminal.
type Renderer struct {
	Styled bool

	labelStyle  lipgloss.Style
	headerStyle lipgloss.Style
	warnStyle   lipgloss.Style
}

func New(styled bool) *Renderer {
	return &Renderer{
		Styled:      styled,
		labelStyle:  lipgloss.NewStyle().Bold(true),
		headerStyle: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("6")),
		warnStyle:   lipgloss.NewStyle().Foreground(lipgloss.Color("3")),
	}
}

// IsTerminal reports whether f is attached to a terminal.
func IsTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}

// Header renders a "===== title =====" section separator.
func (r *Renderer) Header(title string) string {
	s := "===== " + title + " ====="
	if r.Styled {
		return r.headerStyle.Render(s)
	}
	return s
}

// InvoiceJSON pretty-prints the extracted fields in their wire shape.
func (r *Renderer) InvoiceJSON(fields llm.InvoiceFields) (string, error) {
	b, err := json.MarshalIndent(fields, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal invoice fields: %w", err)
	}
	return string(b), nil
}

// InvoiceObject renders the persisted record as labeled fields plus an item
// table.
func (r *Renderer) InvoiceObject(inv *entity.Invoice) string {
	var b strings.Builder

	r.kv(&b, "Vendor", inv.Vendor)
	r.kv(&b, "Vendor Address", inv.VendorAddress)
	r.kvOpt(&b, "Vendor Email", inv.VendorEmail)
	r.kvOpt(&b, "Vendor Phone", inv.VendorPhone)
	r.kv(&b, "Invoice Number", inv.InvoiceNumber)
	r.kvOpt(&b, "Order Number", inv.OrderNumber)
	r.kv(&b, "Invoice Date", inv.InvoiceDate.Format("2006-01-02"))
	if inv.DueDate != nil {
		r.kv(&b, "Due Date", inv.DueDate.Format("2006-01-02"))
	}
	r.kv(&b, "Customer", inv.Customer)
	r.kv(&b, "Customer Address", inv.CustomerAddress)
	r.kvOpt(&b, "Customer Email", inv.CustomerEmail)
	r.kvOpt(&b, "Customer Phone", inv.CustomerPhone)
	r.kv(&b, "Billing Address", inv.BillingAddress)
	r.kvOpt(&b, "Billing Email", inv.BillingEmail)
	r.kvOpt(&b, "Billing Phone", inv.BillingPhone)
	r.kv(&b, "Currency", inv.CurrencyCode)
	r.kv(&b, "Total Due", FormatMoney(inv.TotalDue, inv.CurrencyCode))

	b.WriteString("\n")
	b.WriteString(r.itemTable(inv))

	if inv.NeedsReview {
		note := "Needs review: " + inv.ReviewReasons
		if r.Styled {
			note = r.warnStyle.Render(note)
		}
		b.WriteString("\n" + note + "\n")
	}
	return b.String()
}

const labelWidth = 18

func (r *Renderer) kv(b *strings.Builder, label, value string) {
	l := fmt.Sprintf("%-*s", labelWidth, label+":")
	if r.Styled {
		l = r.labelStyle.Render(l)
	}
	b.WriteString(l + " " + value + "\n")
}

func (r *Renderer) kvOpt(b *strings.Builder, label string, value *string) {
	if value == nil || *value == "" {
		return
	}
	r.kv(b, label, *value)
}

func (r *Renderer) itemTable(inv *entity.Invoice) string {
	t := newTable("#", "Description", "Qty", "Unit Price", "Discount", "Sub Total", "Tax %", "Total")
	for _, it := range inv.Items {
		t.addRow(
			fmt.Sprintf("%d", it.Position),
			it.Description,
			it.Quantity.String(),
			FormatMoney(it.UnitPrice, inv.CurrencyCode),
			optMoney(it.Discount, inv.CurrencyCode),
			optMoney(it.SubTotal, inv.CurrencyCode),
			it.TaxRate.String(),
			FormatMoney(it.TotalPrice, inv.CurrencyCode),
		)
	}
	return t.render(r.Styled)
}

func optMoney(d *decimal.Decimal, code string) string {
	if d == nil {
		return "-"
	}
	return FormatMoney(*d, code)
}

// FormatMoney renders an amount with its currency's symbol and grouping.
// Unknown codes fall back to a plain fixed-point rendering.
func FormatMoney(d decimal.Decimal, code string) string {
	c := money.GetCurrency(code)
	if c == nil {
		return d.StringFixed(2) + " " + code
	}
	minor := d.Shift(int32(c.Fraction)).Round(0).IntPart()
	return money.New(minor, code).Display()
}

// FormatDate renders a DATE-semantics timestamp, empty when nil.
func FormatDate(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format("2006-01-02")
}
