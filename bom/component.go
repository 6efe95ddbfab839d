package bom

// Component is one entry of a Mapping: a RawComponent or a CompositeComponent.
// The set is closed; consumers switch over both cases.
type Component interface {
	isComponent()
}

// RawComponent consumes Quantity of a stocked raw item, measured in Unit.
type RawComponent struct {
	RawItemId     string
	Quantity      float64
	Unit          string
	ModifierScope string
}

// CompositeComponent nests Quantity units of another composite. A non-empty
// Overrides list is resolved in place of the nested item's own mapping, for
// this parent only.
type CompositeComponent struct {
	NestedId      string
	Quantity      float64
	ModifierScope string
	Overrides     []Component
}

func (RawComponent) isComponent()       {}
func (CompositeComponent) isComponent() {}

// Mapping defines a composite item by its ordered components.
type Mapping struct {
	SubjectId   string
	DisplayName string
	Components  []Component
}

// RawItem is a stocked item as seen by the stock store.
type RawItem struct {
	Id           string
	NativeUnit   string
	UnitCost     float64
	CurrentStock float64
}

func componentScope(c Component) string {
	switch c := c.(type) {
	case RawComponent:
		return c.ModifierScope
	case CompositeComponent:
		return c.ModifierScope
	}
	return ""
}

// componentRef names the item a component points at.
func componentRef(c Component) string {
	switch c := c.(type) {
	case RawComponent:
		return c.RawItemId
	case CompositeComponent:
		return c.NestedId
	}
	return ""
}
