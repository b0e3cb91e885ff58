// Package checkout computes order totals from a cart subtotal and a shipping
// method. Everything here is pure and stateless.
package checkout

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnknownShippingMethod is returned by ParseShippingMethod for unsupported methods.
var ErrUnknownShippingMethod = errors.New("unknown shipping method")

// ShippingMethod selects a fixed shipping rate.
type ShippingMethod string

const (
	// ShippingStandard is the default, cheaper rate.
	ShippingStandard ShippingMethod = "standard"
	// ShippingExpress is the faster, more expensive rate.
	ShippingExpress ShippingMethod = "express"
)

// IsValid returns true if the method is a known shipping method.
func (m ShippingMethod) IsValid() bool {
	switch m {
	case ShippingStandard, ShippingExpress:
		return true
	default:
		return false
	}
}

// ParseShippingMethod normalizes and validates a shipping method name.
// An empty string selects ShippingStandard.
func ParseShippingMethod(s string) (ShippingMethod, error) {
	m := ShippingMethod(strings.ToLower(strings.TrimSpace(s)))
	if m == "" {
		return ShippingStandard, nil
	}
	if !m.IsValid() {
		return ShippingStandard, fmt.Errorf("%w: %q", ErrUnknownShippingMethod, s)
	}
	return m, nil
}

// Rates holds the fixed shipping costs and the flat tax rate.
type Rates struct {
	Standard float64
	Express  float64
	TaxRate  float64
}

// DefaultRates returns standard 4.99, express 14.99 and an 8% tax rate.
func DefaultRates() Rates {
	return Rates{
		Standard: 4.99,
		Express:  14.99,
		TaxRate:  0.08,
	}
}

// ShippingCost returns the cost for method. Unknown methods are charged the standard rate.
func (r Rates) ShippingCost(m ShippingMethod) float64 {
	if m == ShippingExpress {
		return r.Express
	}
	return r.Standard
}

// Totals is the ephemeral result of a checkout calculation. Values carry full
// float precision; round only when formatting for display.
type Totals struct {
	Method       ShippingMethod `json:"shippingMethod"`
	Subtotal     float64        `json:"subtotal"`
	ShippingCost float64        `json:"shippingCost"`
	TaxAmount    float64        `json:"taxAmount"`
	Total        float64        `json:"total"`
}

// Calculator computes Totals from a fixed set of rates.
type Calculator struct {
	rates Rates
}

// NewCalculator creates a Calculator using rates.
func NewCalculator(rates Rates) *Calculator {
	return &Calculator{rates: rates}
}

// Rates returns the configured rates.
func (c *Calculator) Rates() Rates {
	return c.rates
}

// Calculate returns shipping, tax and grand total for subtotal.
// Tax applies to the subtotal only, never to shipping.
func (c *Calculator) Calculate(subtotal float64, method ShippingMethod) Totals {
	if !method.IsValid() {
		method = ShippingStandard
	}
	shipping := c.rates.ShippingCost(method)
	tax := subtotal * c.rates.TaxRate
	return Totals{
		Method:       method,
		Subtotal:     subtotal,
		ShippingCost: shipping,
		TaxAmount:    tax,
		Total:        subtotal + shipping + tax,
	}
}
