// Package pricing derives line and cart totals from line items.
//
// All amounts are integers in minor currency units. Nothing in this package
// uses floating point, so totals shown to the buyer match the totals the
// backend computes for the same lines.
package pricing

import (
	"kasa/internal/model"

	"github.com/shopspring/decimal"
)

// ReducedUnitPrice applies a reduction to a single unit price.
func ReducedUnitPrice(price, reduction int64, reductionType model.ReductionType) int64 {
	return reduce(price, 1, reduction, reductionType)
}

// LineTotal returns price × quantity with the line reduction applied.
// Amount reductions apply per unit; percentage reductions are floored to the
// minor unit. The result is never negative.
func LineTotal(item model.LineItem) int64 {
	if item.Quantity <= 0 {
		return 0
	}
	return reduce(item.Price, int64(item.Quantity), item.Reduction, item.ReductionType)
}

// CartTotal sums LineTotal over the cart. An empty cart totals to zero.
func CartTotal(cart model.Cart) int64 {
	var total int64
	for _, item := range cart {
		total += LineTotal(item)
	}
	return total
}

// HasReduction reports whether the item is sold below its list price.
func HasReduction(item model.LineItem) bool {
	return item.Reduction > 0 && item.ReductionType != model.ReductionNone
}

func reduce(price, quantity, reduction int64, reductionType model.ReductionType) int64 {
	gross := price * quantity
	if gross <= 0 || reduction <= 0 {
		return max(gross, 0)
	}

	switch reductionType {
	case model.ReductionAmount:
		gross -= reduction * quantity
	case model.ReductionPercentage:
		pct := min(reduction, 100)
		gross = gross * (100 - pct) / 100
	}

	return max(gross, 0)
}

// Format renders a minor-unit amount for display, e.g. 123450 -> "1234.50 EUR".
// Currency conversion is out of scope; currency is only a label.
func Format(amount int64, currency string) string {
	s := decimal.New(amount, -2).StringFixed(2)
	if currency == "" {
		return s
	}
	return s + " " + currency
}
