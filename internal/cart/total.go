package cart

import "github.com/shopspring/decimal"

// Total sums unit price times quantity over lines. An empty list totals zero.
// decimal arithmetic is exact, so no drift accumulates before presentation
// rounds to two places.
func Total(lines []Line) decimal.Decimal {
	sum := decimal.Zero
	for _, l := range lines {
		sum = sum.Add(l.LineTotal())
	}
	return sum
}

// FormatAmount renders an amount with two decimals, as shown to customers.
func FormatAmount(d decimal.Decimal) string {
	return d.StringFixed(2)
}
