package units

import (
	"errors"
	"fmt"
	"math"
	"sync"
)

var (
	ErrIncompatibleUnits = errors.New("incompatible units")
	ErrUnknownUnit       = errors.New("unknown unit")
	ErrInvalidUnit       = errors.New("invalid unit")
)

// Converter converts quantities between registered units. Safe for concurrent use.
type Converter struct {
	mu    sync.RWMutex
	units map[string]Unit
}

func NewConverter(units ...Unit) (*Converter, error) {
	c := &Converter{units: make(map[string]Unit)}
	for _, u := range units {
		if err := c.Register(u); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// Standard returns a converter loaded with the built-in mass, volume and count units.
func Standard() *Converter {
	c, err := NewConverter(builtin...)
	if err != nil {
		panic(err)
	}
	return c
}

// Register adds u under its name and aliases. Re-registering a name replaces it.
func (c *Converter) Register(u Unit) error {
	name := Normalize(u.Name)
	if name == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidUnit)
	}
	if u.FactorToBase <= 0 || math.IsNaN(u.FactorToBase) || math.IsInf(u.FactorToBase, 0) {
		return fmt.Errorf("%w: %q factor must be positive", ErrInvalidUnit, u.Name)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.units[name] = u
	for _, alias := range u.Aliases {
		if a := Normalize(alias); a != "" {
			c.units[a] = u
		}
	}
	return nil
}

func (c *Converter) Lookup(name string) (Unit, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	u, ok := c.units[Normalize(name)]
	return u, ok
}

// Known reports whether name is registered.
func (c *Converter) Known(name string) bool {
	_, ok := c.Lookup(name)
	return ok
}

// Clone copies the registry so tenant units can be layered on top of the standard set.
func (c *Converter) Clone() *Converter {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := &Converter{units: make(map[string]Unit, len(c.units))}
	for k, v := range c.units {
		out.units[k] = v
	}
	return out
}

// Convert converts quantity from one unit to another. Equal names convert
// as identity even when unregistered; anything else must share a family.
func (c *Converter) Convert(quantity float64, from string, to string) (float64, error) {
	if Normalize(from) == Normalize(to) {
		return quantity, nil
	}
	fromUnit, ok := c.Lookup(from)
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrUnknownUnit, from)
	}
	toUnit, ok := c.Lookup(to)
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrUnknownUnit, to)
	}
	if fromUnit.familyKey() != toUnit.familyKey() {
		return 0, fmt.Errorf("%w: %q (%s) to %q (%s)", ErrIncompatibleUnits, from, fromUnit.Family, to, toUnit.Family)
	}
	return quantity * fromUnit.FactorToBase / toUnit.FactorToBase, nil
}
