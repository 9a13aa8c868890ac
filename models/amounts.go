package models

import "github.com/shopspring/decimal"

// Amounts holds the derived money fields of an order
type Amounts struct {
	Total   decimal.Decimal
	Pending decimal.Decimal
}

// NormalizeQuantity returns quantity, or 1 when it is unset or invalid
func NormalizeQuantity(quantity int) int {
	if quantity < 1 {
		return 1
	}
	return quantity
}

// NormalizePrice returns price, or zero when it is negative
func NormalizePrice(price decimal.Decimal) decimal.Decimal {
	if price.IsNegative() {
		return decimal.Zero
	}
	return price
}

// Recompute derives total and pending amounts. Missing numbers are treated as
// zero (price, advance) or one (quantity) instead of failing. Pending may be
// negative when the advance exceeds the total.
func Recompute(price decimal.Decimal, quantity int, advance decimal.Decimal) Amounts {
	total := NormalizePrice(price).Mul(decimal.NewFromInt(int64(NormalizeQuantity(quantity))))
	return Amounts{
		Total:   total,
		Pending: total.Sub(advance),
	}
}

// ApplyAmounts normalizes price/quantity and writes total and pending onto the order
func (o *Order) ApplyAmounts() {
	o.Price = NormalizePrice(o.Price)
	o.Quantity = NormalizeQuantity(o.Quantity)
	amounts := Recompute(o.Price, o.Quantity, o.AmountAdvance)
	o.TotalAmount = amounts.Total
	o.AmountPending = amounts.Pending
}

// EffectiveTotal returns the stored total, falling back to price*quantity
// when the total was never set
func (o *Order) EffectiveTotal() decimal.Decimal {
	if !o.TotalAmount.IsZero() {
		return o.TotalAmount
	}
	return Recompute(o.Price, o.Quantity, decimal.Zero).Total
}

// RefreshPending recomputes the pending amount from the effective total and advance
func (o *Order) RefreshPending() {
	o.AmountPending = o.EffectiveTotal().Sub(o.AmountAdvance)
}
