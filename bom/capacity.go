package bom

import (
	"context"
	"math"
	"sort"
)

// snapTolerance is relative: a ratio within it of a whole number counts as that number.
const snapTolerance = 1e-9

// Requirement is one raw item's total need in its native unit. From
// NativeRequirements the total covers explosion.Quantity units of the subject;
// in a CapacityResult that quantity is 1.
type Requirement struct {
	RawItemId       string  `json:"raw_item_id"`
	NativeUnit      string  `json:"native_unit"`
	QuantityPerUnit float64 `json:"quantity_per_unit"`
	AvailableStock  float64 `json:"available_stock"`
}

type CapacityResult struct {
	SubjectId      string        `json:"subject_id"`
	ActiveModifier string        `json:"active_modifier,omitempty"`
	Capacity       float64       `json:"capacity"`
	AllHaveStock   bool          `json:"all_have_stock"`
	Requirements   []Requirement `json:"requirements"`
	Diagnostics    []Diagnostic  `json:"diagnostics,omitempty"`
}

// Capacity returns how many units of subjectId current stock can produce.
//
// A subject with no raw requirements, or whose requirements all convert to
// zero, has capacity 0. Any required item out of stock also forces 0.
func (r *Resolver) Capacity(ctx context.Context, businessId string, subjectId string, activeModifier string) (result *CapacityResult, err error) {
	ctx, span := r.startSpan(ctx, "bom.Capacity", businessId, subjectId, activeModifier)
	var diags []Diagnostic
	defer func() { endSpan(span, diags, err) }()

	explosion, err := r.Explode(ctx, businessId, subjectId, 1, activeModifier)
	if err != nil {
		return nil, err
	}
	reqs, reqDiags, err := r.NativeRequirements(ctx, businessId, explosion)
	if err != nil {
		return nil, err
	}
	diags = append(append(diags, explosion.Diagnostics...), reqDiags...)

	result = &CapacityResult{
		SubjectId:      subjectId,
		ActiveModifier: activeModifier,
		AllHaveStock:   true,
		Requirements:   reqs,
		Diagnostics:    diags,
	}
	capacity := math.Inf(1)
	for _, req := range reqs {
		if req.AvailableStock <= 0 {
			result.AllHaveStock = false
		}
		if req.QuantityPerUnit > 0 {
			capacity = math.Min(capacity, wholeUnits(req.AvailableStock/req.QuantityPerUnit))
		}
	}
	if math.IsInf(capacity, 1) || !result.AllHaveStock || capacity < 0 {
		capacity = 0
	}
	result.Capacity = capacity
	r.logDiagnostics("Capacity", businessId, subjectId, reqDiags)
	return result, nil
}

// NativeRequirements converts every unit bucket of explosion into its raw
// item's native unit and totals them, in explosion order. Buckets that fail
// to convert are dropped with a diagnostic. Stock is read live.
func (r *Resolver) NativeRequirements(ctx context.Context, businessId string, explosion *Explosion) ([]Requirement, []Diagnostic, error) {
	res := r.newResolution(ctx, businessId, explosion.ActiveModifier)
	res.path = []string{explosion.SubjectId}

	reqs := make([]Requirement, 0, len(explosion.Order))
	for _, rawItemId := range explosion.Order {
		item, err := res.rawItem(rawItemId)
		if err != nil {
			return nil, nil, err
		}
		if item == nil {
			continue
		}
		byUnit := explosion.Requirements[rawItemId]
		unitNames := make([]string, 0, len(byUnit))
		for unit := range byUnit {
			unitNames = append(unitNames, unit)
		}
		sort.Strings(unitNames)

		var total float64
		for _, unit := range unitNames {
			native, err := r.units.Convert(byUnit[unit], unit, item.NativeUnit)
			if err != nil {
				res.note(DiagnosticUnitConversion, rawItemId, "%v", err)
				continue
			}
			total += native
		}
		reqs = append(reqs, Requirement{
			RawItemId:       rawItemId,
			NativeUnit:      item.NativeUnit,
			QuantityPerUnit: total,
			AvailableStock:  item.CurrentStock,
		})
	}
	return reqs, res.diagnostics, nil
}

// wholeUnits floors x, except that float noise just below a whole number
// (0.3/0.1 = 2.9999999999999996) rounds up to it.
func wholeUnits(x float64) float64 {
	n := math.Round(x)
	if math.Abs(x-n) <= snapTolerance*math.Max(1, math.Abs(n)) {
		return n
	}
	return math.Floor(x)
}
