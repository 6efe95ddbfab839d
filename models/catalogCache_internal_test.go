package models

import (
	"context"
	"reflect"
	"testing"

	"github.com/mmdatafocus/bom_backend/bom"
	"github.com/mmdatafocus/bom_backend/config"
)

func TestMappingCacheEncodingKeepsOverrideTree(t *testing.T) {
	mapping := &bom.Mapping{
		SubjectId:   "party-pizza",
		DisplayName: "Party Pizza",
		Components: []bom.Component{
			bom.CompositeComponent{NestedId: "dough", Quantity: 1, Overrides: []bom.Component{}},
			bom.CompositeComponent{NestedId: "cheese-topping", Quantity: 1.5, ModifierScope: "xl", Overrides: []bom.Component{
				bom.RawComponent{RawItemId: "cheese", Quantity: 200, Unit: "g"},
				bom.CompositeComponent{NestedId: "herbs", Quantity: 0.25, Overrides: []bom.Component{}},
			}},
			bom.RawComponent{RawItemId: "oil", Quantity: 5, Unit: "ml", ModifierScope: "extra-oil"},
		},
	}
	data, err := encodeMapping(mapping)
	if err != nil {
		t.Fatalf("encodeMapping: %v", err)
	}
	got, err := decodeMapping(data, "party-pizza")
	if err != nil {
		t.Fatalf("decodeMapping: %v", err)
	}
	if !reflect.DeepEqual(got, mapping) {
		t.Fatalf("cache changed the mapping:\nexpected %+v\ngot      %+v", mapping, got)
	}

	data, err = encodeMapping(nil)
	if err != nil {
		t.Fatalf("encodeMapping(nil): %v", err)
	}
	if got, err := decodeMapping(data, "ghost"); err != nil || got != nil {
		t.Fatalf("absent mapping should decode to nil, got %v %v", got, err)
	}
}

type countingCatalog struct {
	calls int
}

func (c *countingCatalog) LookupMapping(_ context.Context, _ string, subjectId string) (*bom.Mapping, error) {
	c.calls++
	return &bom.Mapping{SubjectId: subjectId}, nil
}

func TestCachedCatalogPassesThroughWithoutRedis(t *testing.T) {
	config.SetRedisClient(nil)
	t.Setenv("BOM_MAPPING_CACHE", "true")
	next := &countingCatalog{}
	cached := NewCachedCatalog(next)
	for i := 0; i < 3; i++ {
		m, err := cached.LookupMapping(context.Background(), "biz-1", "dough")
		if err != nil || m == nil || m.SubjectId != "dough" {
			t.Fatalf("LookupMapping: %v %v", m, err)
		}
	}
	if next.calls != 3 {
		t.Fatalf("expected every lookup to reach the store, got %d calls", next.calls)
	}
}
