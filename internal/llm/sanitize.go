package llm

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"maps"
	"regexp"
	"strconv"
	"strings"

	"github.com/dmfreitas/invoice-extractor/constants"
)

var (
	reDecimal   = regexp.MustCompile(`^-?\d+(\.\d{1,2})?$`)
	reLooseDate = regexp.MustCompile(`^(\d{4})[-/.](\d{1,2})[-/.](\d{1,2})$`)
)

var optionalStringKeys = []string{
	"vendor_email", "vendor_phone", "order_number", "due_date",
	"customer_email", "customer_phone", "billing_email", "billing_phone",
}

// NormalizeAndSanitizeJSON repairs the common ways a model response misses
// the schema without being wrong about the invoice:
//   - renames known synonyms (invoice_no -> invoice_number, total -> total_due)
//   - drops null/empty optionals
//   - coerces numeric -> string for money and quantity fields
//   - canonicalizes the currency and zero-pads loose dates
//   - removes unknown keys (additionalProperties=false friendliness)
//
// The same treatment applies inside every line item.
func NormalizeAndSanitizeJSON(raw []byte, logger *slog.Logger) ([]byte, []string, error) {
	if logger == nil {
		logger = slog.Default()
	}

	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, nil, fmt.Errorf("sanitize: decode: %w", err)
	}

	dropped := make([]string, 0, 8)
	renamed := func(from, to string) {
		if v, ok := m[from]; ok {
			// don't overwrite an existing value if already present
			if _, exists := m[to]; !exists {
				m[to] = v
			}
			delete(m, from)
			dropped = append(dropped, from+"->"+to)
		}
	}

	// 1) rename synonyms to our schema
	renamed("invoice_no", "invoice_number")
	renamed("invoice_num", "invoice_number")
	renamed("po_number", "order_number")
	renamed("purchase_order", "order_number")
	renamed("currency_code", "currency")
	renamed("total", "total_due")
	renamed("amount_due", "total_due")
	renamed("balance_due", "total_due")
	renamed("date", "invoice_date")
	renamed("line_items", "items")

	// 2) coerce the total; drop it when hopeless so validation reports it
	coerceMoneyKey(m, "total_due", 2, &dropped)

	// 3) canonicalize currency (symbols, synonyms, case)
	if v, ok := m["currency"].(string); ok {
		if code, _ := constants.CanonicalCurrency(v); code != "" {
			m["currency"] = code
		} else {
			delete(m, "currency")
			dropped = append(dropped, "currency(empty)")
		}
	}

	// 4) zero-pad loose dates (2024/5/6 -> 2024-05-06)
	for _, k := range []string{"invoice_date", "due_date"} {
		if v, ok := m[k].(string); ok {
			if d, ok := normalizeDate(v); ok {
				m[k] = d
			}
		}
	}

	// 5) drop null / "" optionals
	for _, k := range optionalStringKeys {
		switch v := m[k].(type) {
		case nil:
			if _, present := m[k]; present {
				delete(m, k)
				dropped = append(dropped, k+"(null)")
			}
		case string:
			if strings.TrimSpace(v) == "" {
				delete(m, k)
				dropped = append(dropped, k+"(empty)")
			} else {
				m[k] = strings.TrimSpace(v)
			}
		}
	}

	// 6) sanitize line items
	if rawItems, ok := m["items"]; ok {
		items, _ := rawItems.([]any)
		cleaned := make([]any, 0, len(items))
		for i, it := range items {
			im, ok := it.(map[string]any)
			if !ok {
				dropped = append(dropped, fmt.Sprintf("items[%d](type)", i))
				continue
			}
			sanitizeItem(im, i, &dropped)
			cleaned = append(cleaned, im)
		}
		m["items"] = cleaned
	} else {
		// schema requires the array; an invoice with no visible items is
		// recorded as empty rather than failing validation
		m["items"] = []any{}
		dropped = append(dropped, "items(missing)")
	}

	// 7) remove unknown keys
	allowed := map[string]struct{}{
		"vendor": {}, "vendor_address": {}, "vendor_email": {}, "vendor_phone": {},
		"invoice_number": {}, "order_number": {}, "invoice_date": {}, "due_date": {},
		"total_due": {}, "currency": {},
		"customer": {}, "customer_address": {}, "customer_email": {}, "customer_phone": {},
		"billing_address": {}, "billing_email": {}, "billing_phone": {},
		"items": {},
	}
	for k := range maps.Clone(m) {
		if _, ok := allowed[k]; !ok {
			delete(m, k)
			dropped = append(dropped, k+"(unknown)")
		}
	}

	// 8) trim the required strings
	trimKeys := []string{
		"vendor", "vendor_address", "invoice_number", "invoice_date",
		"customer", "customer_address", "billing_address",
	}
	for _, k := range trimKeys {
		if v, ok := m[k].(string); ok {
			s := strings.TrimSpace(v)
			if s == "" {
				delete(m, k)
				dropped = append(dropped, k+"(empty)")
			} else {
				m[k] = s
			}
		}
	}

	out, err := json.Marshal(m)
	if err != nil {
		return nil, dropped, fmt.Errorf("sanitize: encode: %w", err)
	}
	if len(dropped) > 0 {
		logger.Warn("llm.extract.normalize_sanitize", "dropped", dropped)
	}
	return out, dropped, nil
}

func sanitizeItem(im map[string]any, idx int, dropped *[]string) {
	prefix := fmt.Sprintf("items[%d].", idx)

	rename := func(from, to string) {
		if v, ok := im[from]; ok {
			if _, exists := im[to]; !exists {
				im[to] = v
			}
			delete(im, from)
			*dropped = append(*dropped, prefix+from+"->"+to)
		}
	}
	rename("qty", "quantity")
	rename("price", "unit_price")
	rename("amount", "total_price")
	rename("subtotal", "sub_total")
	rename("tax", "tax_rate")

	if v, ok := im["description"].(string); ok {
		im["description"] = strings.TrimSpace(v)
	}

	coerceMoneyKey(im, "unit_price", 2, dropped)
	coerceMoneyKey(im, "total_price", 2, dropped)
	coerceMoneyKey(im, "quantity", 4, dropped)
	coerceMoneyKey(im, "tax_rate", 4, dropped)

	// optional amounts drop entirely when unusable
	for _, k := range []string{"discount", "sub_total"} {
		if v, present := im[k]; present && v == nil {
			delete(im, k)
			*dropped = append(*dropped, prefix+k+"(null)")
			continue
		}
		coerceMoneyKey(im, k, 2, dropped)
		if v, ok := im[k].(string); ok && v == "" {
			delete(im, k)
			*dropped = append(*dropped, prefix+k+"(empty)")
		}
	}

	allowed := map[string]struct{}{
		"description": {}, "quantity": {}, "unit_price": {}, "discount": {},
		"sub_total": {}, "tax_rate": {}, "total_price": {},
	}
	for k := range maps.Clone(im) {
		if _, ok := allowed[k]; !ok {
			delete(im, k)
			*dropped = append(*dropped, prefix+k+"(unknown)")
		}
	}
}

// coerceMoneyKey turns whatever sits under k into a plain decimal string with
// at most maxFrac fractional digits, or removes it when that's impossible.
func coerceMoneyKey(m map[string]any, k string, maxFrac int, dropped *[]string) {
	v, ok := m[k]
	if !ok {
		return
	}
	switch t := v.(type) {
	case float64:
		m[k] = formatDecimal(t, maxFrac)
		*dropped = append(*dropped, k+"(number)")
	case string:
		s := strings.TrimSpace(t)
		if s == "" || strings.EqualFold(s, "null") {
			delete(m, k)
			*dropped = append(*dropped, k+"(empty)")
			return
		}
		if reDecimal.MatchString(s) && maxFrac >= 2 {
			m[k] = s
			return
		}
		// strip currency symbols and grouping, then re-parse
		cleaned := strings.Map(func(r rune) rune {
			switch {
			case r >= '0' && r <= '9', r == '.', r == '-':
				return r
			default:
				return -1
			}
		}, s)
		if f, err := strconv.ParseFloat(cleaned, 64); err == nil {
			m[k] = formatDecimal(f, maxFrac)
			if m[k] != s {
				*dropped = append(*dropped, k+"(reformat)")
			}
		} else {
			delete(m, k)
			*dropped = append(*dropped, k+"(unparsable)")
		}
	case nil:
		delete(m, k)
		*dropped = append(*dropped, k+"(null)")
	default:
		delete(m, k)
		*dropped = append(*dropped, k+"(type)")
	}
}

func formatDecimal(f float64, maxFrac int) string {
	s := strconv.FormatFloat(f, 'f', maxFrac, 64)
	if strings.Contains(s, ".") {
		s = strings.TrimRight(s, "0")
		s = strings.TrimRight(s, ".")
	}
	return s
}

func normalizeDate(s string) (string, bool) {
	m := reLooseDate.FindStringSubmatch(strings.TrimSpace(s))
	if m == nil {
		return s, false
	}
	month := m[2]
	day := m[3]
	if len(month) == 1 {
		month = "0" + month
	}
	if len(day) == 1 {
		day = "0" + day
	}
	return m[1] + "-" + month + "-" + day, true
}
