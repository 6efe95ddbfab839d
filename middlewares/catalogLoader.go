package middlewares

import (
	"context"

	"github.com/graph-gophers/dataloader/v7"
	"github.com/mmdatafocus/bom_backend/bom"
	"github.com/mmdatafocus/bom_backend/models"
)

type mappingReader struct {
	businessId string
	store      *models.CatalogStore
}

func (r *mappingReader) getMappings(ctx context.Context, subjectIds []string) []*dataloader.Result[*bom.Mapping] {
	results, err := r.store.LookupMappings(ctx, r.businessId, subjectIds)
	if err != nil {
		return handleError[*bom.Mapping](len(subjectIds), err)
	}
	return generateLoaderResults(results, subjectIds)
}

type rawItemReader struct {
	businessId string
	store      *models.CatalogStore
}

func (r *rawItemReader) getRawItems(ctx context.Context, codes []string) []*dataloader.Result[*bom.RawItem] {
	results, err := r.store.LookupRawItems(ctx, r.businessId, codes)
	if err != nil {
		return handleError[*bom.RawItem](len(codes), err)
	}
	return generateLoaderResults(results, codes)
}

// LookupMapping serves the resolver from the batched mapping loader.
// Lookups for another business bypass the loader.
func (l *Loaders) LookupMapping(ctx context.Context, businessId string, subjectId string) (*bom.Mapping, error) {
	if businessId != l.businessId {
		return l.store.LookupMapping(ctx, businessId, subjectId)
	}
	return l.mappingLoader.Load(ctx, subjectId)()
}

func (l *Loaders) LookupRawItem(ctx context.Context, businessId string, rawItemId string) (*bom.RawItem, error) {
	if businessId != l.businessId {
		return l.store.LookupRawItem(ctx, businessId, rawItemId)
	}
	return l.rawItemLoader.Load(ctx, rawItemId)()
}

// Prime loads subjectIds in one batch so that later lookups hit the cache.
func (l *Loaders) Prime(ctx context.Context, subjectIds []string) []error {
	_, errs := l.mappingLoader.LoadMany(ctx, subjectIds)()
	return errs
}

// Clear forgets a cached mapping, e.g. after the catalog item was edited.
func (l *Loaders) Clear(ctx context.Context, subjectId string) {
	l.mappingLoader.Clear(ctx, subjectId)
}

func GetMapping(ctx context.Context, businessId string, subjectId string) (*bom.Mapping, error) {
	loaders := For(ctx)
	if loaders == nil {
		return models.NewCatalogStore().LookupMapping(ctx, businessId, subjectId)
	}
	return loaders.LookupMapping(ctx, businessId, subjectId)
}

func GetRawItem(ctx context.Context, businessId string, code string) (*bom.RawItem, error) {
	loaders := For(ctx)
	if loaders == nil {
		return models.NewCatalogStore().LookupRawItem(ctx, businessId, code)
	}
	return loaders.LookupRawItem(ctx, businessId, code)
}

var (
	_ bom.CatalogStore = (*Loaders)(nil)
	_ bom.StockStore   = (*Loaders)(nil)
)
