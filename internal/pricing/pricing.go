package pricing

import (
	"github.com/shopspring/decimal"
)

// Places is the currency minor-unit precision.
const Places = 2

var hundred = decimal.NewFromInt(100)

// Line is the minimum a cart or order row needs to be priced.
type Line struct {
	UnitPrice  decimal.Decimal
	Quantity   int
	TaxPercent decimal.Decimal
}

// Totals holds the three cart figures.
type Totals struct {
	Subtotal decimal.Decimal `json:"subtotal"`
	Tax      decimal.Decimal `json:"tax"`
	Total    decimal.Decimal `json:"total"`
}

// rawLine is price * qty without rounding. Negative prices and quantities
// count as zero.
func rawLine(unitPrice decimal.Decimal, qty int) decimal.Decimal {
	if qty <= 0 || unitPrice.IsNegative() {
		return decimal.Zero
	}
	return unitPrice.Mul(decimal.NewFromInt(int64(qty)))
}

func rawTax(l Line) decimal.Decimal {
	if l.TaxPercent.IsNegative() {
		return decimal.Zero
	}
	return rawLine(l.UnitPrice, l.Quantity).Mul(l.TaxPercent).Div(hundred)
}

// Round rounds half-up to the currency precision.
func Round(d decimal.Decimal) decimal.Decimal {
	return d.Round(Places)
}

// LineTotal returns unitPrice * qty rounded to the currency precision.
func LineTotal(unitPrice decimal.Decimal, qty int) decimal.Decimal {
	return Round(rawLine(unitPrice, qty))
}

// Subtotal sums the unrounded line totals and rounds once.
func Subtotal(lines []Line) decimal.Decimal {
	sum := decimal.Zero
	for _, l := range lines {
		sum = sum.Add(rawLine(l.UnitPrice, l.Quantity))
	}
	return Round(sum)
}

// Tax sums per-line tax and rounds once.
func Tax(lines []Line) decimal.Decimal {
	sum := decimal.Zero
	for _, l := range lines {
		sum = sum.Add(rawTax(l))
	}
	return Round(sum)
}

// Total is Subtotal plus Tax.
func Total(lines []Line) decimal.Decimal {
	return Subtotal(lines).Add(Tax(lines))
}

// Compute returns subtotal, tax and total for the given lines.
func Compute(lines []Line) Totals {
	subtotal := Subtotal(lines)
	tax := Tax(lines)
	return Totals{
		Subtotal: subtotal,
		Tax:      tax,
		Total:    subtotal.Add(tax),
	}
}

// Count returns the number of units across all lines.
func Count(lines []Line) int {
	n := 0
	for _, l := range lines {
		if l.Quantity > 0 {
			n += l.Quantity
		}
	}
	return n
}

// ToMinorUnits converts an amount to the gateway's integer minor units
// (paise for INR).
func ToMinorUnits(amount decimal.Decimal) int64 {
	return amount.Mul(hundred).Round(0).IntPart()
}
