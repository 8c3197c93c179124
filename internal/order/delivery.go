package order

import "github.com/shopspring/decimal"

// FeeCalculator computes the delivery fee for an order. Orders at or above
// the free-delivery threshold pay nothing.
type FeeCalculator struct {
	baseFee   decimal.Decimal
	freeAbove decimal.Decimal
}

// NewFeeCalculator builds a calculator from configured amounts. freeAbove <= 0
// disables free delivery.
func NewFeeCalculator(baseFee, freeAbove float64) FeeCalculator {
	return FeeCalculator{
		baseFee:   decimal.NewFromFloat(baseFee),
		freeAbove: decimal.NewFromFloat(freeAbove),
	}
}

// Fee returns the delivery fee due for the given subtotal.
func (f FeeCalculator) Fee(subtotal decimal.Decimal) decimal.Decimal {
	if f.freeAbove.IsPositive() && subtotal.GreaterThanOrEqual(f.freeAbove) {
		return decimal.Zero
	}
	return f.baseFee
}
