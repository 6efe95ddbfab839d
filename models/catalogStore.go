package models

import (
	"context"

	"github.com/mmdatafocus/bom_backend/bom"
	"github.com/mmdatafocus/bom_backend/config"
	"github.com/mmdatafocus/bom_backend/utils"
)

// CatalogStore serves resolver lookups from the database.
type CatalogStore struct{}

func NewCatalogStore() *CatalogStore { return &CatalogStore{} }

func (CatalogStore) LookupMapping(ctx context.Context, businessId string, subjectId string) (*bom.Mapping, error) {
	item, err := findCompositeItem(ctx, businessId, subjectId)
	if err != nil || item == nil {
		return nil, err
	}
	mapping := item.ToMapping()
	return &mapping, nil
}

func (CatalogStore) LookupRawItem(ctx context.Context, businessId string, rawItemId string) (*bom.RawItem, error) {
	item, err := utils.FetchModelWhere[RawItem](ctx, businessId, "code = ?", rawItemId)
	if err != nil || item == nil {
		return nil, err
	}
	raw := item.ToBom()
	return &raw, nil
}

// LookupMappings batches LookupMapping. Subjects without a mapping are absent from the result.
func (CatalogStore) LookupMappings(ctx context.Context, businessId string, subjectIds []string) (map[string]*bom.Mapping, error) {
	result := make(map[string]*bom.Mapping, len(subjectIds))
	if len(subjectIds) == 0 {
		return result, nil
	}
	var items []*CompositeItem
	err := config.GetDB().WithContext(ctx).
		Preload("Lines", "business_id = ?", businessId).
		Where("business_id = ? AND subject_id IN ?", businessId, utils.UniqueSlice(subjectIds)).
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	for _, item := range items {
		mapping := item.ToMapping()
		result[item.SubjectId] = &mapping
	}
	return result, nil
}

// LookupRawItems batches LookupRawItem. Unknown codes are absent from the result.
func (CatalogStore) LookupRawItems(ctx context.Context, businessId string, codes []string) (map[string]*bom.RawItem, error) {
	result := make(map[string]*bom.RawItem, len(codes))
	if len(codes) == 0 {
		return result, nil
	}
	var items []*RawItem
	err := config.GetDB().WithContext(ctx).
		Where("business_id = ? AND code IN ?", businessId, utils.UniqueSlice(codes)).
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	for _, item := range items {
		raw := item.ToBom()
		result[item.Code] = &raw
	}
	return result, nil
}
