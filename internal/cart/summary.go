package cart

import "github.com/shopspring/decimal"

// SummaryPolicy holds the pricing rules applied on the cart page.
type SummaryPolicy struct {
	FreeShippingThreshold float64
	ShippingFee           float64
	TaxRate               float64
}

// DefaultSummaryPolicy ships free above $100, charges $10 otherwise and taxes 8%.
func DefaultSummaryPolicy() SummaryPolicy {
	return SummaryPolicy{
		FreeShippingThreshold: 100,
		ShippingFee:           10,
		TaxRate:               0.08,
	}
}

// OrderSummary is the priced breakdown of a cart, rounded to cents.
type OrderSummary struct {
	Subtotal              float64 `json:"subtotal"`
	Shipping              float64 `json:"shipping"`
	Tax                   float64 `json:"tax"`
	Total                 float64 `json:"total"`
	FreeShippingRemaining float64 `json:"freeShippingRemaining"`
}

// Summarize prices the cart. Shipping is free only when the subtotal is strictly above
// the threshold; FreeShippingRemaining is reported while the subtotal is below it.
func Summarize(state State, policy SummaryPolicy) OrderSummary {
	subtotal := decimal.NewFromFloat(state.TotalPrice)
	threshold := decimal.NewFromFloat(policy.FreeShippingThreshold)

	shipping := decimal.NewFromFloat(policy.ShippingFee)
	if subtotal.GreaterThan(threshold) {
		shipping = decimal.Zero
	}
	tax := subtotal.Mul(decimal.NewFromFloat(policy.TaxRate))
	total := subtotal.Add(shipping).Add(tax)

	remaining := decimal.Zero
	if subtotal.LessThan(threshold) {
		remaining = threshold.Sub(subtotal)
	}

	return OrderSummary{
		Subtotal:              cents(subtotal),
		Shipping:              cents(shipping),
		Tax:                   cents(tax),
		Total:                 cents(total),
		FreeShippingRemaining: cents(remaining),
	}
}

func cents(d decimal.Decimal) float64 {
	f, _ := d.Round(2).Float64()
	return f
}
