package models

import (
	"context"
	"errors"
	"time"

	"github.com/mmdatafocus/bom_backend/config"
	"github.com/mmdatafocus/bom_backend/utils"
)

// ProductModifier is a customer facing add-on choice ("extra cheese").
// Composite lines scoped to it by name only count when it is selected.
type ProductModifier struct {
	ID         int       `gorm:"primary_key" json:"id"`
	BusinessId string    `gorm:"index;not null" json:"business_id"`
	Name       string    `gorm:"size:100;not null" json:"name"`
	IsActive   *bool     `gorm:"not null;default:true" json:"is_active"`
	CreatedAt  time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt  time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewProductModifier struct {
	Name string `json:"name" validate:"required,max=100"`
}

func CreateProductModifier(ctx context.Context, input *NewProductModifier) (*ProductModifier, error) {
	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}
	if err := utils.ValidateStruct(input); err != nil {
		return nil, err
	}
	if err := utils.ValidateUnique[ProductModifier](ctx, businessId, "name", input.Name, 0); err != nil {
		return nil, err
	}

	modifier := ProductModifier{
		BusinessId: businessId,
		Name:       input.Name,
		IsActive:   utils.NewTrue(),
	}
	db := config.GetDB()
	if err := db.WithContext(ctx).Create(&modifier).Error; err != nil {
		return nil, err
	}
	return &modifier, nil
}

func DeleteProductModifier(ctx context.Context, id int) (*ProductModifier, error) {
	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}
	result, err := utils.FetchModel[ProductModifier](ctx, businessId, id)
	if err != nil {
		return nil, err
	}

	count, err := utils.ResourceCountWhere[CompositeLine](ctx, businessId, "modifier_scope = ?", result.Name)
	if err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, errors.New("used by composite item")
	}

	db := config.GetDB()
	if err := db.WithContext(ctx).Delete(result).Error; err != nil {
		return nil, err
	}
	return result, nil
}

func ToggleActiveProductModifier(ctx context.Context, id int, isActive bool) (*ProductModifier, error) {
	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}
	result, err := utils.FetchModel[ProductModifier](ctx, businessId, id)
	if err != nil {
		return nil, err
	}
	db := config.GetDB()
	if err := db.WithContext(ctx).Model(result).Update("IsActive", isActive).Error; err != nil {
		return nil, err
	}
	return result, nil
}

func GetProductModifiers(ctx context.Context, isActive *bool) ([]*ProductModifier, error) {
	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}
	db := config.GetDB()
	dbCtx := db.WithContext(ctx).Where("business_id = ?", businessId)
	if isActive != nil {
		dbCtx = dbCtx.Where("is_active = ?", *isActive)
	}
	var results []*ProductModifier
	if err := dbCtx.Order("name").Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}
