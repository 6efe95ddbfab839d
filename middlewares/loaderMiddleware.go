package middlewares

import (
	"context"
	"time"

	"github.com/graph-gophers/dataloader/v7"
	"github.com/mmdatafocus/bom_backend/bom"
	"github.com/mmdatafocus/bom_backend/models"
)

type ctxKey string

const (
	loadersKey = ctxKey("dataloaders")
)

// Loaders batch catalog reads of one business. A Loaders value caches what it
// has loaded for its whole lifetime, so build one per request or report run.
type Loaders struct {
	businessId string
	store      *models.CatalogStore

	mappingLoader *dataloader.Loader[string, *bom.Mapping]
	rawItemLoader *dataloader.Loader[string, *bom.RawItem]
}

// NewLoaders instantiates data loaders for businessId
func NewLoaders(businessId string, store *models.CatalogStore) *Loaders {
	if store == nil {
		store = models.NewCatalogStore()
	}
	mappingReader := &mappingReader{businessId: businessId, store: store}
	rawItemReader := &rawItemReader{businessId: businessId, store: store}

	return &Loaders{
		businessId:    businessId,
		store:         store,
		mappingLoader: dataloader.NewBatchedLoader(mappingReader.getMappings, dataloader.WithWait[string, *bom.Mapping](time.Millisecond)),
		rawItemLoader: dataloader.NewBatchedLoader(rawItemReader.getRawItems, dataloader.WithWait[string, *bom.RawItem](time.Millisecond)),
	}
}

// WithLoaders attaches loaders to ctx.
func WithLoaders(ctx context.Context, loaders *Loaders) context.Context {
	return context.WithValue(ctx, loadersKey, loaders)
}

// For returns the loaders attached to ctx, or nil.
func For(ctx context.Context) *Loaders {
	loaders, _ := ctx.Value(loadersKey).(*Loaders)
	return loaders
}

// handleError creates array of result with the same error repeated for as many items requested
func handleError[T any](itemsLength int, err error) []*dataloader.Result[T] {
	result := make([]*dataloader.Result[T], itemsLength)
	for i := 0; i < itemsLength; i++ {
		result[i] = &dataloader.Result[T]{Error: err}
	}
	return result
}

// turns a keyed lookup into dataloader results in key order.
// keys missing from resultMap get the zero value (a nil pointer).
func generateLoaderResults[K comparable, V any](resultMap map[K]V, keys []K) []*dataloader.Result[V] {
	loaderResults := make([]*dataloader.Result[V], 0, len(keys))
	for _, key := range keys {
		loaderResults = append(loaderResults, &dataloader.Result[V]{Data: resultMap[key]})
	}
	return loaderResults
}
