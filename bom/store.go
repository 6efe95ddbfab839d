package bom

import "context"

// CatalogStore returns the mapping of a composite. A nil mapping with a nil
// error means the id has no mapping (it is raw or unknown).
type CatalogStore interface {
	LookupMapping(ctx context.Context, businessId string, subjectId string) (*Mapping, error)
}

// StockStore returns a raw item. A nil item with a nil error means unknown.
type StockStore interface {
	LookupRawItem(ctx context.Context, businessId string, rawItemId string) (*RawItem, error)
}

// UnitConverter converts between compatible units and fails on incompatible ones.
type UnitConverter interface {
	Convert(quantity float64, from string, to string) (float64, error)
}
