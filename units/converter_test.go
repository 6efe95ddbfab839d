package units_test

import (
	"errors"
	"math"
	"testing"

	"github.com/mmdatafocus/bom_backend/units"
)

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) <= 1e-9*math.Max(1, math.Max(math.Abs(a), math.Abs(b)))
}

func TestConvert(t *testing.T) {
	c := units.Standard()
	cases := []struct {
		name     string
		qty      float64
		from, to string
		want     float64
	}{
		{"kg to g", 1.5, "kg", "g", 1500},
		{"alias and case", 500, "Grams", "KG", 0.5},
		{"identity unregistered", 3, "Bag", "bag", 3},
		{"l to ml", 0.25, "litre", "ml", 250},
		{"dozen to pieces", 2, "dozen", "pcs", 24},
		{"fl oz spacing", 1, "Fl  Oz", "ml", 29.5735295625},
	}
	for _, tc := range cases {
		got, err := c.Convert(tc.qty, tc.from, tc.to)
		if err != nil {
			t.Fatalf("%s: unexpected error: %v", tc.name, err)
		}
		if !almostEqual(got, tc.want) {
			t.Fatalf("%s: got %v want %v", tc.name, got, tc.want)
		}
	}
}

func TestConvertRoundTrip(t *testing.T) {
	c := units.Standard()
	pairs := [][2]string{{"g", "lb"}, {"ml", "cup"}, {"tsp", "tbsp"}, {"pc", "dozen"}, {"mg", "oz"}}
	for _, p := range pairs {
		for _, x := range []float64{0, 1, 3.75, 1234.5} {
			there, err := c.Convert(x, p[0], p[1])
			if err != nil {
				t.Fatalf("%v: %v", p, err)
			}
			back, err := c.Convert(there, p[1], p[0])
			if err != nil {
				t.Fatalf("%v: %v", p, err)
			}
			if !almostEqual(back, x) {
				t.Fatalf("%v: round trip of %v gave %v", p, x, back)
			}
		}
	}
}

func TestConvertFailures(t *testing.T) {
	c := units.Standard()
	if _, err := c.Convert(1, "ml", "g"); !errors.Is(err, units.ErrIncompatibleUnits) {
		t.Fatalf("expected ErrIncompatibleUnits, got %v", err)
	}
	if _, err := c.Convert(1, "g", "bushel"); !errors.Is(err, units.ErrUnknownUnit) {
		t.Fatalf("expected ErrUnknownUnit, got %v", err)
	}
}

func TestRegisterCustomUnits(t *testing.T) {
	c := units.Standard().Clone()
	if err := c.Register(units.Unit{Name: "sack", Family: units.Mass, FactorToBase: 25000}); err != nil {
		t.Fatal(err)
	}
	if err := c.Register(units.Unit{Name: "tray", Family: units.Custom, FactorToBase: 1}); err != nil {
		t.Fatal(err)
	}
	if err := c.Register(units.Unit{Name: "crate", Family: units.Custom, FactorToBase: 1}); err != nil {
		t.Fatal(err)
	}

	got, err := c.Convert(2, "sack", "kg")
	if err != nil || !almostEqual(got, 50) {
		t.Fatalf("sack to kg: got %v, %v", got, err)
	}
	if _, err := c.Convert(1, "tray", "crate"); !errors.Is(err, units.ErrIncompatibleUnits) {
		t.Fatalf("custom units must not convert to each other, got %v", err)
	}
	if units.Standard().Known("sack") {
		t.Fatal("clone must not leak registrations into the standard set")
	}
	if err := c.Register(units.Unit{Name: "bad", Family: units.Mass}); !errors.Is(err, units.ErrInvalidUnit) {
		t.Fatalf("expected ErrInvalidUnit for zero factor, got %v", err)
	}
}
