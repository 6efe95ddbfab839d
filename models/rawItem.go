package models

import (
	"context"
	"errors"
	"time"

	"github.com/mmdatafocus/bom_backend/bom"
	"github.com/mmdatafocus/bom_backend/config"
	"github.com/mmdatafocus/bom_backend/utils"
	"github.com/shopspring/decimal"
)

// RawItem is a directly stocked ingredient. Code is the id composite lines use.
// CurrentStock is maintained by the inventory side; this service only reads it.
type RawItem struct {
	ID           int             `gorm:"primary_key" json:"id"`
	BusinessId   string          `gorm:"size:64;not null;uniqueIndex:idx_raw_items_business_code,priority:1" json:"business_id"`
	Code         string          `gorm:"size:100;not null;uniqueIndex:idx_raw_items_business_code,priority:2" json:"code"`
	Name         string          `gorm:"size:100;not null" json:"name"`
	NativeUnit   string          `gorm:"size:20;not null" json:"native_unit"`
	UnitCost     decimal.Decimal `gorm:"type:decimal(20,4);not null;default:0" json:"unit_cost"`
	CurrentStock decimal.Decimal `gorm:"type:decimal(20,4);not null;default:0" json:"current_stock"`
	CreatedAt    time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewRawItem struct {
	Code         string          `json:"code" validate:"required,max=100"`
	Name         string          `json:"name" validate:"required,max=100"`
	NativeUnit   string          `json:"native_unit" validate:"required,max=20"`
	UnitCost     decimal.Decimal `json:"unit_cost"`
	CurrentStock decimal.Decimal `json:"current_stock"`
}

func (item RawItem) ToBom() bom.RawItem {
	return bom.RawItem{
		Id:           item.Code,
		NativeUnit:   item.NativeUnit,
		UnitCost:     item.UnitCost.InexactFloat64(),
		CurrentStock: item.CurrentStock.InexactFloat64(),
	}
}

func (input *NewRawItem) validate(ctx context.Context, businessId string, id int) error {
	if err := utils.ValidateStruct(input); err != nil {
		return err
	}
	if input.UnitCost.IsNegative() {
		return errors.New("unit cost cannot be negative")
	}
	if input.CurrentStock.IsNegative() {
		return errors.New("current stock cannot be negative")
	}
	if err := utils.ValidateUnique[RawItem](ctx, businessId, "code", input.Code, id); err != nil {
		return err
	}
	count, err := utils.ResourceCountWhere[CompositeItem](ctx, businessId, "subject_id = ?", input.Code)
	if err != nil {
		return err
	}
	if count > 0 {
		return errors.New("code is already a composite subject id")
	}
	converter, err := LoadUnitConverter(ctx, businessId)
	if err != nil {
		return err
	}
	if !converter.Known(input.NativeUnit) {
		return errors.New("unknown unit " + input.NativeUnit)
	}
	return nil
}

func CreateRawItem(ctx context.Context, input *NewRawItem) (*RawItem, error) {
	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}
	if err := input.validate(ctx, businessId, 0); err != nil {
		return nil, err
	}

	item := RawItem{
		BusinessId:   businessId,
		Code:         input.Code,
		Name:         input.Name,
		NativeUnit:   input.NativeUnit,
		UnitCost:     input.UnitCost,
		CurrentStock: input.CurrentStock,
	}
	db := config.GetDB()
	if err := db.WithContext(ctx).Create(&item).Error; err != nil {
		return nil, err
	}
	return &item, nil
}

// UpdateRawItem changes name, native unit, cost and stock. The code is the
// catalog reference and stays fixed.
func UpdateRawItem(ctx context.Context, id int, input *NewRawItem) (*RawItem, error) {
	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}
	item, err := utils.FetchModel[RawItem](ctx, businessId, id)
	if err != nil {
		return nil, err
	}
	if input.Code != item.Code {
		return nil, errors.New("code cannot be changed")
	}
	if err := input.validate(ctx, businessId, id); err != nil {
		return nil, err
	}

	db := config.GetDB()
	err = db.WithContext(ctx).Model(item).Updates(map[string]interface{}{
		"Name":         input.Name,
		"NativeUnit":   input.NativeUnit,
		"UnitCost":     input.UnitCost,
		"CurrentStock": input.CurrentStock,
	}).Error
	if err != nil {
		return nil, err
	}
	return item, nil
}

func DeleteRawItem(ctx context.Context, id int) (*RawItem, error) {
	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}
	result, err := utils.FetchModel[RawItem](ctx, businessId, id)
	if err != nil {
		return nil, err
	}

	count, err := utils.ResourceCountWhere[CompositeLine](ctx, businessId, "raw_item_code = ?", result.Code)
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

func GetRawItem(ctx context.Context, id int) (*RawItem, error) {
	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}
	return utils.FetchModel[RawItem](ctx, businessId, id)
}

func GetRawItems(ctx context.Context, name *string) ([]*RawItem, error) {
	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}
	db := config.GetDB()
	dbCtx := db.WithContext(ctx).Where("business_id = ?", businessId)
	if name != nil && len(*name) > 0 {
		dbCtx = dbCtx.Where("name LIKE ? OR code LIKE ?", "%"+*name+"%", "%"+*name+"%")
	}
	var results []*RawItem
	if err := dbCtx.Order("code").Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}
