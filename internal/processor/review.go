package processor

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/dmfreitas/invoice-extractor/constants"
	"github.com/dmfreitas/invoice-extractor/internal/entity"
)

// reviewTolerance is the largest rounding drift accepted before a record is
// flagged for human review.
var reviewTolerance = decimal.New(1, -2) // 0.01

// reviewInvoice cross-checks the arithmetic the model reported. Findings
// never abort a run; they only flag the record.
func reviewInvoice(inv *entity.Invoice) []string {
	var reasons []string

	if !constants.ValidCurrency(inv.CurrencyCode) {
		reasons = append(reasons, fmt.Sprintf("currency:unknown(%s)", inv.CurrencyCode))
	}
	if len(inv.Items) == 0 {
		reasons = append(reasons, "items:empty")
	}

	sum := decimal.Zero
	for i := range inv.Items {
		it := &inv.Items[i]
		label := fmt.Sprintf("items[%d]", i)

		computed := it.Quantity.Mul(it.UnitPrice)
		if it.Discount != nil {
			computed = computed.Sub(*it.Discount)
		}
		subTotal := computed
		if it.SubTotal != nil {
			subTotal = *it.SubTotal
			if drift(subTotal, computed) {
				reasons = append(reasons, fmt.Sprintf("%s:sub_total=%s want %s",
					label, subTotal, computed.Round(2)))
			}
		}

		// tax_rate is a percentage
		tax := subTotal.Mul(it.TaxRate).Div(decimal.NewFromInt(100))
		wantTotal := subTotal.Add(tax)
		if drift(it.TotalPrice, wantTotal) {
			reasons = append(reasons, fmt.Sprintf("%s:total_price=%s want %s",
				label, it.TotalPrice, wantTotal.Round(2)))
		}
		sum = sum.Add(it.TotalPrice)
	}

	if len(inv.Items) > 0 && drift(inv.TotalDue, sum) {
		reasons = append(reasons, fmt.Sprintf("total_due=%s items sum to %s",
			inv.TotalDue, sum.Round(2)))
	}
	return reasons
}

func drift(got, want decimal.Decimal) bool {
	return got.Sub(want).Abs().GreaterThan(reviewTolerance)
}
