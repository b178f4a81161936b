package constants

import (
	"strings"

	"github.com/Rhymond/go-money"
)

// DefaultCurrency is assumed when a document carries an amount with no
// recognizable currency marker.
const DefaultCurrency = "USD"

// CanonicalCurrency maps what an LLM (or a document) tends to emit for a
// currency onto an ISO-4217 code. Returns the code and whether the input was
// recognized; unrecognized input returns its uppercased form so callers can
// still record what was seen.
func CanonicalCurrency(input string) (string, bool) {
	if input == "" {
		return "", false
	}

	normalized := strings.ToUpper(strings.TrimSpace(input))

	// symbol and synonym map
	synonyms := map[string]string{
		"$":            "USD",
		"US$":          "USD",
		"USD$":         "USD",
		"DOLLAR":       "USD",
		"DOLLARS":      "USD",
		"US DOLLAR":    "USD",
		"US DOLLARS":   "USD",
		"€":            "EUR",
		"EURO":         "EUR",
		"EUROS":        "EUR",
		"£":            "GBP",
		"POUND":        "GBP",
		"POUNDS":       "GBP",
		"¥":            "JPY",
		"YEN":          "JPY",
		"C$":           "CAD",
		"CA$":          "CAD",
		"A$":           "AUD",
		"AU$":          "AUD",
		"CHF.":         "CHF",
		"KR":           "SEK",
		"R$":           "BRL",
		"₹":            "INR",
		"RS":           "INR",
		"RS.":          "INR",
	}

	if code, ok := synonyms[normalized]; ok {
		return code, true
	}

	if money.GetCurrency(normalized) != nil {
		return normalized, true
	}

	return normalized, false
}

// ValidCurrency reports whether code is a known ISO-4217 code.
func ValidCurrency(code string) bool {
	return money.GetCurrency(strings.ToUpper(strings.TrimSpace(code))) != nil
}
