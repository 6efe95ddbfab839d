package bom

import (
	"context"
	"fmt"
	"math"
)

// resolution is the state of one top-level call. It is never shared between calls.
type resolution struct {
	*Resolver
	ctx            context.Context
	businessId     string
	activeModifier string

	visiting    map[string]bool
	depth       int
	path        []string
	diagnostics []Diagnostic
}

func (r *Resolver) newResolution(ctx context.Context, businessId string, activeModifier string) *resolution {
	return &resolution{
		Resolver:       r,
		ctx:            ctx,
		businessId:     businessId,
		activeModifier: activeModifier,
		visiting:       make(map[string]bool),
	}
}

func (res *resolution) note(kind DiagnosticKind, ref string, format string, args ...interface{}) {
	res.diagnostics = append(res.diagnostics, Diagnostic{
		Kind:    kind,
		Ref:     ref,
		Path:    append([]string(nil), res.path...),
		Message: fmt.Sprintf(format, args...),
	})
}

// applies filters out components scoped to a modifier other than the active one.
// With no active modifier every scoped component is excluded.
func (res *resolution) applies(c Component) bool {
	scope := componentScope(c)
	return scope == "" || scope == res.activeModifier
}

// quantity returns q, or false with a diagnostic when q cannot contribute.
func (res *resolution) quantity(c Component, q float64) (float64, bool) {
	if q > 0 && !math.IsInf(q, 1) {
		return q, true
	}
	res.note(DiagnosticInvalidQty, componentRef(c), "quantity %v treated as zero", q)
	return 0, false
}

// enter marks subjectId in progress and returns its mapping. ok is false when
// the subject contributes nothing: already in progress, past the depth bound,
// or without a mapping. A non-nil mapping skips the catalog lookup.
func (res *resolution) enter(subjectId string, mapping *Mapping) (*Mapping, bool, error) {
	if res.visiting[subjectId] {
		res.note(DiagnosticCycle, subjectId, "%q is already being resolved, back edge contributes zero", subjectId)
		return nil, false, nil
	}
	if res.depth >= res.maxDepth {
		res.note(DiagnosticDepthExceeded, subjectId, "nesting deeper than %d levels contributes zero", res.maxDepth)
		return nil, false, nil
	}
	if err := res.ctx.Err(); err != nil {
		return nil, false, err
	}
	if mapping == nil {
		m, err := res.catalog.LookupMapping(res.ctx, res.businessId, subjectId)
		if err != nil {
			return nil, false, fmt.Errorf("lookup mapping %q: %w", subjectId, err)
		}
		if m == nil {
			res.note(DiagnosticMissingMapping, subjectId, "no mapping for nested item %q", subjectId)
			return nil, false, nil
		}
		mapping = m
	}
	res.visiting[subjectId] = true
	res.push(subjectId)
	return mapping, true, nil
}

func (res *resolution) leave(subjectId string) {
	delete(res.visiting, subjectId)
	res.pop()
}

// enterOverrides steps into an override list. Overrides never touch the
// nested item's mapping, so only the depth bound applies.
func (res *resolution) enterOverrides(nestedId string) bool {
	if res.depth >= res.maxDepth {
		res.note(DiagnosticDepthExceeded, nestedId, "nesting deeper than %d levels contributes zero", res.maxDepth)
		return false
	}
	res.push(nestedId + "[overrides]")
	return true
}

func (res *resolution) leaveOverrides() {
	res.pop()
}

func (res *resolution) push(label string) {
	res.depth++
	res.path = append(res.path, label)
}

func (res *resolution) pop() {
	res.depth--
	res.path = res.path[:len(res.path)-1]
}

// rawItem looks up a raw item, noting a diagnostic when it is missing.
func (res *resolution) rawItem(rawItemId string) (*RawItem, error) {
	item, err := res.stock.LookupRawItem(res.ctx, res.businessId, rawItemId)
	if err != nil {
		return nil, fmt.Errorf("lookup raw item %q: %w", rawItemId, err)
	}
	if item == nil {
		res.note(DiagnosticMissingRawItem, rawItemId, "raw item %q not found", rawItemId)
	}
	return item, nil
}
