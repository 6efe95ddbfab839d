package bom

import "strings"

type DiagnosticKind string

const (
	DiagnosticCycle          DiagnosticKind = "cycle"
	DiagnosticUnitConversion DiagnosticKind = "unit_conversion"
	DiagnosticMissingRawItem DiagnosticKind = "missing_raw_item"
	DiagnosticMissingMapping DiagnosticKind = "missing_mapping"
	DiagnosticInvalidQty     DiagnosticKind = "invalid_quantity"
	DiagnosticDepthExceeded  DiagnosticKind = "depth_exceeded"
)

// Diagnostic is a non-fatal problem found while resolving. The part of the
// graph it describes contributed zero; the rest of the result stands.
type Diagnostic struct {
	Kind DiagnosticKind `json:"kind"`
	// Ref is the raw item or composite id the problem is about.
	Ref string `json:"ref"`
	// Path lists the composites being resolved when it happened, outermost first.
	Path    []string `json:"path"`
	Message string   `json:"message"`
}

func (d Diagnostic) String() string {
	return string(d.Kind) + " " + d.Ref + " at " + strings.Join(d.Path, " > ") + ": " + d.Message
}

// HasDiagnostic reports whether diags contains kind.
func HasDiagnostic(diags []Diagnostic, kind DiagnosticKind) bool {
	for _, d := range diags {
		if d.Kind == kind {
			return true
		}
	}
	return false
}
