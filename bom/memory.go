package bom

import (
	"context"
	"sync"
)

// MemoryCatalog is an in-memory CatalogStore and StockStore, keyed by business.
// Lookups return copies so callers cannot mutate the stored snapshot.
type MemoryCatalog struct {
	mu       sync.RWMutex
	mappings map[string]map[string]Mapping
	rawItems map[string]map[string]RawItem
}

func NewMemoryCatalog() *MemoryCatalog {
	return &MemoryCatalog{
		mappings: make(map[string]map[string]Mapping),
		rawItems: make(map[string]map[string]RawItem),
	}
}

func (m *MemoryCatalog) PutMapping(businessId string, mapping Mapping) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.mappings[businessId] == nil {
		m.mappings[businessId] = make(map[string]Mapping)
	}
	mapping.Components = cloneComponents(mapping.Components)
	m.mappings[businessId][mapping.SubjectId] = mapping
}

func (m *MemoryCatalog) PutRawItem(businessId string, item RawItem) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.rawItems[businessId] == nil {
		m.rawItems[businessId] = make(map[string]RawItem)
	}
	m.rawItems[businessId][item.Id] = item
}

func (m *MemoryCatalog) LookupMapping(_ context.Context, businessId string, subjectId string) (*Mapping, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	mapping, ok := m.mappings[businessId][subjectId]
	if !ok {
		return nil, nil
	}
	mapping.Components = cloneComponents(mapping.Components)
	return &mapping, nil
}

func (m *MemoryCatalog) LookupRawItem(_ context.Context, businessId string, rawItemId string) (*RawItem, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	item, ok := m.rawItems[businessId][rawItemId]
	if !ok {
		return nil, nil
	}
	return &item, nil
}

func cloneComponents(components []Component) []Component {
	if components == nil {
		return nil
	}
	out := make([]Component, len(components))
	for i, c := range components {
		if cc, ok := c.(CompositeComponent); ok {
			cc.Overrides = cloneComponents(cc.Overrides)
			c = cc
		}
		out[i] = c
	}
	return out
}
