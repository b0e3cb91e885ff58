package checkout

import (
	"math"
	"strconv"

	"github.com/shopspring/decimal"
)

// finite reports whether v can be represented as a decimal.
func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// Round2 rounds v half away from zero to 2 decimal places.
// Only for presentation; never feed the result back into a calculation.
func Round2(v float64) float64 {
	if !finite(v) {
		return v
	}
	f, _ := decimal.NewFromFloat(v).Round(2).Float64()
	return f
}

// FormatAmount renders v with exactly two decimals, e.g. "112.99".
func FormatAmount(v float64) string {
	if !finite(v) {
		return strconv.FormatFloat(v, 'f', 2, 64)
	}
	return decimal.NewFromFloat(v).StringFixed(2)
}

// FormatMoney renders v as a dollar amount, e.g. "$112.99" or "-$3.50".
// Non-finite values render as "$NaN", "$+Inf" or "$-Inf".
func FormatMoney(v float64) string {
	if !finite(v) {
		return "$" + strconv.FormatFloat(v, 'f', 2, 64)
	}
	d := decimal.NewFromFloat(v).Round(2)
	if d.IsNegative() {
		return "-$" + d.Neg().StringFixed(2)
	}
	return "$" + d.StringFixed(2)
}

// Display is Totals rounded for presentation.
type Display struct {
	Subtotal     string `json:"subtotal"`
	ShippingCost string `json:"shippingCost"`
	TaxAmount    string `json:"taxAmount"`
	Total        string `json:"total"`
}

// Format renders every amount of t with FormatMoney.
func (t Totals) Format() Display {
	return Display{
		Subtotal:     FormatMoney(t.Subtotal),
		ShippingCost: FormatMoney(t.ShippingCost),
		TaxAmount:    FormatMoney(t.TaxAmount),
		Total:        FormatMoney(t.Total),
	}
}
