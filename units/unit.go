package units

import "strings"

// Family groups units that convert into each other through a shared base unit.
type Family string

const (
	Mass   Family = "mass"   // base: gram
	Volume Family = "volume" // base: millilitre
	Count  Family = "count"  // base: piece
	Custom Family = "custom"
)

// Unit is one registered unit. FactorToBase is how many base units one of it holds.
// A Custom unit converts only to itself.
type Unit struct {
	Name         string
	Family       Family
	FactorToBase float64
	Aliases      []string
}

// Normalize folds case and inner whitespace so "Fl  Oz" and "fl oz" match.
func Normalize(name string) string {
	return strings.Join(strings.Fields(strings.ToLower(name)), " ")
}

func (u Unit) familyKey() string {
	if u.Family == "" || u.Family == Custom {
		return string(Custom) + ":" + Normalize(u.Name)
	}
	return string(u.Family)
}

var builtin = []Unit{
	{Name: "mg", Family: Mass, FactorToBase: 0.001, Aliases: []string{"milligram", "milligrams"}},
	{Name: "g", Family: Mass, FactorToBase: 1, Aliases: []string{"gram", "grams", "gm", "gr"}},
	{Name: "kg", Family: Mass, FactorToBase: 1000, Aliases: []string{"kilogram", "kilograms", "kilo", "kilos"}},
	{Name: "oz", Family: Mass, FactorToBase: 28.349523125, Aliases: []string{"ounce", "ounces"}},
	{Name: "lb", Family: Mass, FactorToBase: 453.59237, Aliases: []string{"lbs", "pound", "pounds"}},

	{Name: "ml", Family: Volume, FactorToBase: 1, Aliases: []string{"millilitre", "milliliter", "millilitres", "milliliters"}},
	{Name: "cl", Family: Volume, FactorToBase: 10, Aliases: []string{"centilitre", "centiliter"}},
	{Name: "l", Family: Volume, FactorToBase: 1000, Aliases: []string{"litre", "liter", "litres", "liters", "ltr"}},
	{Name: "tsp", Family: Volume, FactorToBase: 4.92892159375, Aliases: []string{"teaspoon", "teaspoons"}},
	{Name: "tbsp", Family: Volume, FactorToBase: 14.78676478125, Aliases: []string{"tablespoon", "tablespoons"}},
	{Name: "cup", Family: Volume, FactorToBase: 236.5882365, Aliases: []string{"cups"}},
	{Name: "fl oz", Family: Volume, FactorToBase: 29.5735295625, Aliases: []string{"floz", "fluid ounce", "fluid ounces"}},

	{Name: "pc", Family: Count, FactorToBase: 1, Aliases: []string{"pcs", "piece", "pieces", "each", "ea", "unit", "units"}},
	{Name: "dozen", Family: Count, FactorToBase: 12, Aliases: []string{"dz", "doz"}},
}
