package checkout

import (
	"errors"
	"math"
	"testing"
)

const tolerance = 1e-9

func approx(a, b float64) bool {
	return math.Abs(a-b) < tolerance
}

func TestCalculate(t *testing.T) {
	calc := NewCalculator(DefaultRates())

	tests := []struct {
		name         string
		subtotal     float64
		method       ShippingMethod
		wantShipping float64
		wantTax      float64
		wantTotal    float64
		wantDisplay  string
	}{
		{"standard", 100.00, ShippingStandard, 4.99, 8.00, 112.99, "$112.99"},
		{"express", 100.00, ShippingExpress, 14.99, 8.00, 122.99, "$122.99"},
		{"empty cart still pays shipping", 0, ShippingStandard, 4.99, 0, 4.99, "$4.99"},
		{"unknown method charged standard", 50, ShippingMethod("drone"), 4.99, 4.00, 58.99, "$58.99"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := calc.Calculate(tt.subtotal, tt.method)
			if !approx(got.ShippingCost, tt.wantShipping) {
				t.Errorf("ShippingCost = %v, want %v", got.ShippingCost, tt.wantShipping)
			}
			if !approx(got.TaxAmount, tt.wantTax) {
				t.Errorf("TaxAmount = %v, want %v", got.TaxAmount, tt.wantTax)
			}
			if !approx(got.Total, tt.wantTotal) {
				t.Errorf("Total = %v, want %v", got.Total, tt.wantTotal)
			}
			if d := got.Format(); d.Total != tt.wantDisplay {
				t.Errorf("Format().Total = %q, want %q", d.Total, tt.wantDisplay)
			}
		})
	}
}

func TestCalculate_NoIntermediateRounding(t *testing.T) {
	calc := NewCalculator(DefaultRates())

	// 3 × 89.99 = 269.97; tax 21.5976 must not be rounded before summing.
	subtotal := 269.97
	got := calc.Calculate(subtotal, ShippingStandard)
	want := subtotal + 4.99 + subtotal*0.08
	if got.Total != want {
		t.Errorf("Total = %v, want unrounded %v", got.Total, want)
	}
	if !approx(got.TaxAmount, 21.5976) {
		t.Errorf("TaxAmount = %v, want 21.5976", got.TaxAmount)
	}
	if d := got.Format(); d.TaxAmount != "$21.60" || d.Total != "$296.56" {
		t.Errorf("Format() = %+v", d)
	}
}

func TestCalculate_CustomRates(t *testing.T) {
	calc := NewCalculator(Rates{Standard: 0, Express: 20, TaxRate: 0.2})
	got := calc.Calculate(10, ShippingExpress)
	if !approx(got.Total, 32) {
		t.Errorf("Total = %v, want 32", got.Total)
	}
}

func TestParseShippingMethod(t *testing.T) {
	tests := []struct {
		in      string
		want    ShippingMethod
		wantErr error
	}{
		{"", ShippingStandard, nil},
		{"standard", ShippingStandard, nil},
		{" Express ", ShippingExpress, nil},
		{"overnight", ShippingStandard, ErrUnknownShippingMethod},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseShippingMethod(tt.in)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("ParseShippingMethod(%q) error = %v, want %v", tt.in, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseShippingMethod(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestFormatMoney(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{0, "$0.00"},
		{4.99, "$4.99"},
		{112.99, "$112.99"},
		{21.5976, "$21.60"},
		{0.005, "$0.01"},
		{-3.5, "-$3.50"},
		{1234.5, "$1234.50"},
		{math.NaN(), "$NaN"},
		{math.Inf(1), "$+Inf"},
	}
	for _, tt := range tests {
		if got := FormatMoney(tt.in); got != tt.want {
			t.Errorf("FormatMoney(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestFormatAmount_NonFinite(t *testing.T) {
	if got := FormatAmount(math.Inf(-1)); got != "-Inf" {
		t.Errorf("FormatAmount(-Inf) = %q, want -Inf", got)
	}
	if got := Round2(math.NaN()); !math.IsNaN(got) {
		t.Errorf("Round2(NaN) = %v, want NaN", got)
	}
}

func TestRound2(t *testing.T) {
	if got := Round2(8.0000001); got != 8 {
		t.Errorf("Round2(8.0000001) = %v, want 8", got)
	}
	if got := Round2(21.5976); got != 21.6 {
		t.Errorf("Round2(21.5976) = %v, want 21.6", got)
	}
	if got := FormatAmount(122.99); got != "122.99" {
		t.Errorf("FormatAmount(122.99) = %q", got)
	}
}
