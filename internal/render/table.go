package render

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// table lays out rows under fixed headers, sizing each column to its widest
// cell.
type table struct {
	headers []string
	rows    [][]string
}

func newTable(headers ...string) *table {
	return &table{headers: headers}
}

func (t *table) addRow(cells ...string) {
	t.rows = append(t.rows, cells)
}

func (t *table) render(styled bool) string {
	widths := make([]int, len(t.headers))
	for i, h := range t.headers {
		widths[i] = lipgloss.Width(h)
	}
	for _, row := range t.rows {
		for i, cell := range row {
			if i < len(widths) && lipgloss.Width(cell) > widths[i] {
				widths[i] = lipgloss.Width(cell)
			}
		}
	}

	headerStyle := lipgloss.NewStyle().Bold(true)

	var b strings.Builder
	line := t.formatRow(t.headers, widths)
	if styled {
		line = headerStyle.Render(line)
	}
	b.WriteString(line + "\n")

	total := len(widths) * 3
	for _, w := range widths {
		total += w
	}
	b.WriteString(strings.Repeat("-", total) + "\n")

	if len(t.rows) == 0 {
		b.WriteString("  (no items)\n")
		return b.String()
	}
	for _, row := range t.rows {
		b.WriteString(t.formatRow(row, widths) + "\n")
	}
	return b.String()
}

func (t *table) formatRow(cells []string, widths []int) string {
	parts := make([]string, 0, len(cells))
	for i, cell := range cells {
		w := widths[i]
		pad := w - lipgloss.Width(cell)
		if pad < 0 {
			pad = 0
		}
		if numericColumn(t.headers[i]) {
			parts = append(parts, strings.Repeat(" ", pad)+cell)
		} else {
			parts = append(parts, cell+strings.Repeat(" ", pad))
		}
	}
	return "  " + strings.Join(parts, " | ")
}

// numericColumn right-aligns amount-like columns.
func numericColumn(header string) bool {
	switch header {
	case "#", "Qty", "Unit Price", "Discount", "Sub Total", "Tax %", "Total":
		return true
	}
	return false
}
