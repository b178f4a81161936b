package llm

import (
	"strings"
)

// DefaultMaxPromptChars caps how much document text a user prompt carries.
const DefaultMaxPromptChars = 6000

// BuildSystemPrompt composes the system message: output contract, date and
// currency rules, and line-item arithmetic the model should respect.
func BuildSystemPrompt(req ExtractRequest) string {
	defCur := strings.TrimSpace(req.DefaultCurrency)
	if defCur == "" {
		defCur = "USD"
	}

	parts := []string{
		"You are an invoice parser. Return ONLY JSON that matches the provided JSON Schema.",
		"Use ISO-8601 dates (YYYY-MM-DD).",
		"Currency must be a 3-letter ISO 4217 code; default to " + defCur + " if uncertain.",
		"All money amounts and quantities are strings containing plain decimals, never numbers with grouping or currency symbols.",

		// Line item arithmetic:
		"Extract every line item. For each item: sub_total is (quantity * unit_price) minus discount; total_price is sub_total plus tax.",
		"tax_rate is the percentage applied to the item (e.g., \"8.25\"), not an amount.",
		"total_due is the final amount payable on the invoice.",

		// Party fields:
		"vendor is the party issuing the invoice; customer is the party being billed.",
		"billing_address is where the invoice is billed to; it may differ from customer_address.",

		// Formatting hygiene:
		"Never output null. If a field is not present on the document, omit it.",
		"Never invent values; leave optional fields out rather than guessing.",
	}
	return strings.Join(parts, " ")
}

// BuildUserPrompt packages the filename hint and the document text, truncated
// at maxChars. When an image is attached the text still rides along so the
// model can cross-check whatever the text layer did capture.
func BuildUserPrompt(req ExtractRequest, imageAttached bool, maxChars int) string {
	if maxChars <= 0 {
		maxChars = DefaultMaxPromptChars
	}

	var b strings.Builder
	if filename := strings.TrimSpace(req.FilenameHint); filename != "" {
		b.WriteString("Filename: ")
		b.WriteString(filename)
		b.WriteString("\n")
	}

	text := strings.TrimSpace(req.Text)
	b.WriteString("\nDocument text:\n")
	if len(text) > maxChars {
		b.WriteString(text[:maxChars])
		b.WriteString("\n…(truncated)")
	} else {
		b.WriteString(text)
	}

	if imageAttached {
		b.WriteString("\n\nNote: An image of the invoice is attached. Prefer it over the document text wherever they disagree.")
	}

	return b.String()
}
