package cart

import "github.com/shopspring/decimal"

// Totals are exact; round them only when rendering.
type Totals struct {
	Subtotal   decimal.Decimal
	Surcharge  decimal.Decimal
	GrandTotal decimal.Decimal
}

// Calculator adds a fixed surcharge, covering tax and delivery, to the cart
// subtotal.
type Calculator struct {
	Surcharge decimal.Decimal
}

func NewCalculator(surcharge string) (Calculator, error) {
	d, err := decimal.NewFromString(surcharge)
	if err != nil {
		return Calculator{}, err
	}
	return Calculator{Surcharge: d}, nil
}

// Totals charges no surcharge on an empty cart.
func (calc Calculator) Totals(c Cart) Totals {
	sub := c.Subtotal()
	if c.IsEmpty() {
		return Totals{Subtotal: sub, Surcharge: decimal.Zero, GrandTotal: sub}
	}
	return Totals{
		Subtotal:   sub,
		Surcharge:  calc.Surcharge,
		GrandTotal: sub.Add(calc.Surcharge),
	}
}

// Display rounds d half-up to two places.
func Display(d decimal.Decimal) string {
	return d.StringFixed(2)
}
