package bom

import (
	"context"
	"fmt"
)

type CostResult struct {
	SubjectId      string       `json:"subject_id"`
	ActiveModifier string       `json:"active_modifier,omitempty"`
	UnitCost       float64      `json:"unit_cost"`
	Diagnostics    []Diagnostic `json:"diagnostics,omitempty"`
}

// ResolveCost returns the fully loaded cost of one unit of subjectId. An empty
// activeModifier means none is selected. A raw item id costs zero here; its
// cost is realized only when a mapping references it.
func (r *Resolver) ResolveCost(ctx context.Context, businessId string, subjectId string, activeModifier string) (result *CostResult, err error) {
	ctx, span := r.startSpan(ctx, "bom.ResolveCost", businessId, subjectId, activeModifier)
	res := r.newResolution(ctx, businessId, activeModifier)
	defer func() { endSpan(span, res.diagnostics, err) }()

	mapping, err := r.entry(ctx, businessId, subjectId)
	if err != nil {
		return nil, err
	}
	result = &CostResult{SubjectId: subjectId, ActiveModifier: activeModifier}
	if mapping != nil {
		result.UnitCost, err = res.subjectCost(subjectId, mapping)
		if err != nil {
			return nil, err
		}
	}
	result.Diagnostics = res.diagnostics
	r.logDiagnostics("ResolveCost", businessId, subjectId, res.diagnostics)
	return result, nil
}

func (res *resolution) subjectCost(subjectId string, mapping *Mapping) (float64, error) {
	mapping, ok, err := res.enter(subjectId, mapping)
	if err != nil || !ok {
		return 0, err
	}
	defer res.leave(subjectId)
	return res.componentsCost(mapping.Components)
}

// componentsCost sums a component list. It serves both mappings and override lists.
func (res *resolution) componentsCost(components []Component) (float64, error) {
	var total float64
	for _, c := range components {
		if !res.applies(c) {
			continue
		}
		switch c := c.(type) {
		case RawComponent:
			v, err := res.rawCost(c)
			if err != nil {
				return 0, err
			}
			total += v
		case CompositeComponent:
			qty, ok := res.quantity(c, c.Quantity)
			if !ok {
				continue
			}
			v, err := res.compositeCost(c)
			if err != nil {
				return 0, err
			}
			total += qty * v
		default:
			return 0, fmt.Errorf("bom: unexpected component %T", c)
		}
	}
	return total, nil
}

func (res *resolution) compositeCost(c CompositeComponent) (float64, error) {
	if len(c.Overrides) == 0 {
		return res.subjectCost(c.NestedId, nil)
	}
	if !res.enterOverrides(c.NestedId) {
		return 0, nil
	}
	defer res.leaveOverrides()
	return res.componentsCost(c.Overrides)
}

func (res *resolution) rawCost(c RawComponent) (float64, error) {
	qty, ok := res.quantity(c, c.Quantity)
	if !ok {
		return 0, nil
	}
	item, err := res.rawItem(c.RawItemId)
	if err != nil || item == nil {
		return 0, err
	}
	native, err := res.units.Convert(qty, c.Unit, item.NativeUnit)
	if err != nil {
		res.note(DiagnosticUnitConversion, c.RawItemId, "%v", err)
		return 0, nil
	}
	return native * item.UnitCost, nil
}
