// Package order holds the draft order model, the cart summary parser, and the
// client for the order backend.
package order

import "github.com/shopspring/decimal"

// Item is a single line item of a draft order.
type Item struct {
	Name      string          `json:"name"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
}

// Draft is the in-progress order built from a parsed cart summary. DeliveryFee
// and Total are set exactly once, when the delivery address is confirmed.
type Draft struct {
	Items       []Item          `json:"items"`
	Subtotal    decimal.Decimal `json:"subtotal"`
	DeliveryFee decimal.Decimal `json:"delivery_fee"`
	Total       decimal.Decimal `json:"total"`
	FeeApplied  bool            `json:"fee_applied"`
}

// LineTotal returns quantity times unit price for the item.
func (i Item) LineTotal() decimal.Decimal {
	return i.UnitPrice.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// ApplyDeliveryFee sets the delivery fee and adds it onto the parsed total,
// which may differ from the item sum when the summary carried an explicit
// total. It is a no-op after the first application so a re-confirmed address
// cannot mutate a priced draft.
func (d *Draft) ApplyDeliveryFee(fee decimal.Decimal) {
	if d == nil || d.FeeApplied {
		return
	}

	d.DeliveryFee = fee
	d.Total = d.Total.Add(fee)
	d.FeeApplied = true
}
