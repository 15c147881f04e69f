// Package pricing computes tax, shipping, and order totals. All amounts are
// decimal and rounded half-up to 2 places exactly once, at computation time;
// persisted totals are never re-derived.
package pricing

import "github.com/shopspring/decimal"

type Calculator struct {
	TaxRate               decimal.Decimal
	FreeShippingThreshold decimal.Decimal
	FlatShippingRate      decimal.Decimal
}

// Default returns the standard rates: 8% tax, flat 25.00 shipping waived at
// or above 500.00.
func Default() Calculator {
	return Calculator{
		TaxRate:               decimal.NewFromFloat(0.08),
		FreeShippingThreshold: decimal.NewFromInt(500),
		FlatShippingRate:      decimal.NewFromInt(25),
	}
}

// Tax returns subtotal * rate rounded half-up to 2 decimal places.
func (c Calculator) Tax(subtotal decimal.Decimal) decimal.Decimal {
	return subtotal.Mul(c.TaxRate).Round(2)
}

// Shipping returns 0 at or above the free threshold, otherwise the flat rate.
func (c Calculator) Shipping(subtotal decimal.Decimal) decimal.Decimal {
	if subtotal.GreaterThanOrEqual(c.FreeShippingThreshold) {
		return decimal.Zero.Round(2)
	}
	return c.FlatShippingRate.Round(2)
}

// Quote holds the computed monetary fields for one order.
// Total = Subtotal + Tax + Shipping - Discount holds by construction.
type Quote struct {
	Subtotal decimal.Decimal
	Tax      decimal.Decimal
	Shipping decimal.Decimal
	Discount decimal.Decimal
	Total    decimal.Decimal
}

func (c Calculator) Quote(subtotal, discount decimal.Decimal) Quote {
	q := Quote{
		Subtotal: subtotal.Round(2),
		Tax:      c.Tax(subtotal),
		Shipping: c.Shipping(subtotal),
		Discount: discount.Round(2),
	}
	q.Total = q.Subtotal.Add(q.Tax).Add(q.Shipping).Sub(q.Discount)
	return q
}
