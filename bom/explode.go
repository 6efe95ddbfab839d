package bom

import (
	"context"
	"fmt"
	"math"
	"strings"
)

// Explosion holds the raw quantities needed for Quantity units of SubjectId,
// keyed by raw item then by unit as written in the catalog. Units are not
// normalized; see NativeRequirements.
type Explosion struct {
	SubjectId      string                        `json:"subject_id"`
	Quantity       float64                       `json:"quantity"`
	ActiveModifier string                        `json:"active_modifier,omitempty"`
	Requirements   map[string]map[string]float64 `json:"requirements"`
	// Order lists raw item ids in first-seen, depth-first order.
	Order       []string     `json:"order"`
	Diagnostics []Diagnostic `json:"diagnostics,omitempty"`
}

func (e *Explosion) add(rawItemId string, unit string, amount float64) {
	if amount == 0 {
		return
	}
	byUnit, ok := e.Requirements[rawItemId]
	if !ok {
		byUnit = make(map[string]float64)
		e.Requirements[rawItemId] = byUnit
		e.Order = append(e.Order, rawItemId)
	}
	byUnit[unit] += amount
}

// Explode returns the raw quantities needed to produce quantity units of subjectId.
func (r *Resolver) Explode(ctx context.Context, businessId string, subjectId string, quantity float64, activeModifier string) (result *Explosion, err error) {
	ctx, span := r.startSpan(ctx, "bom.Explode", businessId, subjectId, activeModifier)
	res := r.newResolution(ctx, businessId, activeModifier)
	defer func() { endSpan(span, res.diagnostics, err) }()

	if quantity < 0 || math.IsNaN(quantity) || math.IsInf(quantity, 0) {
		return nil, fmt.Errorf("%w: %v", ErrInvalidQuantity, quantity)
	}
	mapping, err := r.entry(ctx, businessId, subjectId)
	if err != nil {
		return nil, err
	}
	result = &Explosion{
		SubjectId:      subjectId,
		Quantity:       quantity,
		ActiveModifier: activeModifier,
		Requirements:   make(map[string]map[string]float64),
	}
	if mapping != nil {
		if err := res.explodeSubject(result, subjectId, mapping, quantity); err != nil {
			return nil, err
		}
	}
	result.Diagnostics = res.diagnostics
	r.logDiagnostics("Explode", businessId, subjectId, res.diagnostics)
	return result, nil
}

func (res *resolution) explodeSubject(acc *Explosion, subjectId string, mapping *Mapping, multiplier float64) error {
	mapping, ok, err := res.enter(subjectId, mapping)
	if err != nil || !ok {
		return err
	}
	defer res.leave(subjectId)
	return res.explodeComponents(acc, mapping.Components, multiplier)
}

// explodeComponents accumulates a component list scaled by multiplier. It
// serves both mappings and override lists.
func (res *resolution) explodeComponents(acc *Explosion, components []Component, multiplier float64) error {
	for _, c := range components {
		if !res.applies(c) {
			continue
		}
		switch c := c.(type) {
		case RawComponent:
			qty, ok := res.quantity(c, c.Quantity)
			if !ok {
				continue
			}
			item, err := res.rawItem(c.RawItemId)
			if err != nil {
				return err
			}
			if item == nil {
				continue
			}
			acc.add(c.RawItemId, strings.TrimSpace(c.Unit), qty*multiplier)
		case CompositeComponent:
			qty, ok := res.quantity(c, c.Quantity)
			if !ok {
				continue
			}
			if err := res.explodeComposite(acc, c, qty*multiplier); err != nil {
				return err
			}
		default:
			return fmt.Errorf("bom: unexpected component %T", c)
		}
	}
	return nil
}

func (res *resolution) explodeComposite(acc *Explosion, c CompositeComponent, multiplier float64) error {
	if len(c.Overrides) == 0 {
		return res.explodeSubject(acc, c.NestedId, nil, multiplier)
	}
	if !res.enterOverrides(c.NestedId) {
		return nil
	}
	defer res.leaveOverrides()
	return res.explodeComponents(acc, c.Overrides, multiplier)
}
