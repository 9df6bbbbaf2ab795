package domain

// Pricing is the single source of truth for money constants. The cart view
// and the checkout flow must be handed the same value so their totals can
// never disagree.
type Pricing struct {
	// TaxRateBasisPoints is the VAT rate in basis points (1900 = 19%).
	TaxRateBasisPoints int64
	// FreeShippingThreshold: shipping is free when the subtotal is
	// strictly greater than this.
	FreeShippingThreshold int64
	// FlatShippingFee is charged at or below the threshold.
	FlatShippingFee int64
	Currency        string
}

// DefaultPricing returns the production COP pricing.
func DefaultPricing() Pricing {
	return Pricing{
		TaxRateBasisPoints:    1900,
		FreeShippingThreshold: 200_000,
		FlatShippingFee:       15_000,
		Currency:              "COP",
	}
}

// OrderSummary is the derived money breakdown of a cart. Never persisted
// on its own; recomputed on every cart mutation and only frozen into an
// order at payment-intent creation.
type OrderSummary struct {
	Lines        []CartLine `json:"lines"`
	Subtotal     int64      `json:"subtotal"`
	TaxAmount    int64      `json:"tax_amount"`
	ShippingCost int64      `json:"shipping_cost"`
	Total        int64      `json:"total"`
	Currency     string     `json:"currency"`
}

// Summarize computes the money breakdown for a set of cart lines. Pure and
// deterministic: the same lines always yield the same summary. All amounts
// are whole currency units (COP has no minor unit). Negative quantities or
// prices are clamped to zero rather than rejected.
func (p Pricing) Summarize(lines []CartLine) OrderSummary {
	summary := OrderSummary{Currency: p.Currency}
	if len(lines) == 0 {
		summary.Lines = []CartLine{}
		return summary
	}

	summary.Lines = make([]CartLine, 0, len(lines))
	for _, line := range lines {
		if line.Quantity < 0 {
			line.Quantity = 0
		}
		if line.UnitPrice < 0 {
			line.UnitPrice = 0
		}
		summary.Lines = append(summary.Lines, line)
		summary.Subtotal += line.UnitPrice * int64(line.Quantity)
	}

	// Integer round-half-up of subtotal * rate. Avoids float drift so a
	// repeated summary can never lose a unit.
	summary.TaxAmount = (summary.Subtotal*p.TaxRateBasisPoints + 5_000) / 10_000

	if summary.Subtotal > p.FreeShippingThreshold {
		summary.ShippingCost = 0
	} else {
		summary.ShippingCost = p.FlatShippingFee
	}

	summary.Total = summary.Subtotal + summary.TaxAmount + summary.ShippingCost
	return summary
}
