package models

import (
	"context"
	"time"

	"github.com/mmdatafocus/bom_backend/bom"
	"github.com/mmdatafocus/bom_backend/config"
	"github.com/mmdatafocus/bom_backend/utils"
	"github.com/vmihailenco/msgpack/v5"
)

// CachedCatalog keeps mappings in redis in front of another CatalogStore.
// It passes through when BOM_MAPPING_CACHE is off or redis is not connected.
// Absent mappings are cached too; catalog writes invalidate the key.
type CachedCatalog struct {
	next bom.CatalogStore
	ttl  time.Duration
}

func NewCachedCatalog(next bom.CatalogStore) *CachedCatalog {
	return &CachedCatalog{next: next, ttl: utils.GetCacheLifespan()}
}

type cachedMapping struct {
	Found       bool              `msgpack:"f"`
	DisplayName string            `msgpack:"n,omitempty"`
	Components  []cachedComponent `msgpack:"c,omitempty"`
}

type cachedComponent struct {
	Kind      ComponentKind     `msgpack:"k"`
	Ref       string            `msgpack:"r"`
	Quantity  float64           `msgpack:"q"`
	Unit      string            `msgpack:"u,omitempty"`
	Scope     string            `msgpack:"s,omitempty"`
	Overrides []cachedComponent `msgpack:"o,omitempty"`
}

func (c *CachedCatalog) LookupMapping(ctx context.Context, businessId string, subjectId string) (*bom.Mapping, error) {
	if !config.BomMappingCacheEnabled() || config.GetRedisDB() == nil {
		return c.next.LookupMapping(ctx, businessId, subjectId)
	}
	key := utils.MappingCacheKey(businessId, subjectId)
	data, ok, err := config.GetRedisBytes(key)
	if err != nil {
		config.LogWarning(config.GetLogger(), "models", "CachedCatalog.LookupMapping", "read mapping cache", key, err.Error())
	}
	if ok {
		if mapping, err := decodeMapping(data, subjectId); err == nil {
			return mapping, nil
		}
		config.LogWarning(config.GetLogger(), "models", "CachedCatalog.LookupMapping", "decode mapping cache", key, "dropping undecodable entry")
	}

	mapping, err := c.next.LookupMapping(ctx, businessId, subjectId)
	if err != nil {
		return nil, err
	}
	data, err = encodeMapping(mapping)
	if err == nil {
		err = config.SetRedisBytes(key, data, c.ttl)
	}
	if err != nil {
		config.LogWarning(config.GetLogger(), "models", "CachedCatalog.LookupMapping", "write mapping cache", key, err.Error())
	}
	return mapping, nil
}

// InvalidateMapping drops the cached mapping of subjectId. Failures are logged;
// the entry then lives until CACHE_LIFESPAN runs out.
func InvalidateMapping(businessId string, subjectId string) {
	if err := config.RemoveRedisKey(utils.MappingCacheKey(businessId, subjectId)); err != nil {
		config.LogError(config.GetLogger(), "models", "InvalidateMapping", "remove mapping cache", subjectId, err)
	}
}

func encodeMapping(mapping *bom.Mapping) ([]byte, error) {
	if mapping == nil {
		return msgpack.Marshal(cachedMapping{})
	}
	return msgpack.Marshal(cachedMapping{
		Found:       true,
		DisplayName: mapping.DisplayName,
		Components:  toCachedComponents(mapping.Components),
	})
}

func decodeMapping(data []byte, subjectId string) (*bom.Mapping, error) {
	var cached cachedMapping
	if err := msgpack.Unmarshal(data, &cached); err != nil {
		return nil, err
	}
	return cached.toMapping(subjectId), nil
}

func (cm cachedMapping) toMapping(subjectId string) *bom.Mapping {
	if !cm.Found {
		return nil
	}
	return &bom.Mapping{
		SubjectId:   subjectId,
		DisplayName: cm.DisplayName,
		Components:  fromCachedComponents(cm.Components),
	}
}

func toCachedComponents(components []bom.Component) []cachedComponent {
	out := make([]cachedComponent, 0, len(components))
	for _, c := range components {
		switch c := c.(type) {
		case bom.RawComponent:
			out = append(out, cachedComponent{Kind: ComponentKindRaw, Ref: c.RawItemId, Quantity: c.Quantity, Unit: c.Unit, Scope: c.ModifierScope})
		case bom.CompositeComponent:
			out = append(out, cachedComponent{Kind: ComponentKindComposite, Ref: c.NestedId, Quantity: c.Quantity, Scope: c.ModifierScope, Overrides: toCachedComponents(c.Overrides)})
		}
	}
	return out
}

func fromCachedComponents(cached []cachedComponent) []bom.Component {
	out := make([]bom.Component, 0, len(cached))
	for _, c := range cached {
		switch c.Kind {
		case ComponentKindRaw:
			out = append(out, bom.RawComponent{RawItemId: c.Ref, Quantity: c.Quantity, Unit: c.Unit, ModifierScope: c.Scope})
		case ComponentKindComposite:
			out = append(out, bom.CompositeComponent{NestedId: c.Ref, Quantity: c.Quantity, ModifierScope: c.Scope, Overrides: fromCachedComponents(c.Overrides)})
		}
	}
	return out
}
